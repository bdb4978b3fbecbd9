// Package engine defines the narrow capability interface bgmd consumes from
// an audio engine, plus the implementations shipped with the daemon.
package engine

import (
	"errors"
	"fmt"
	"time"
)

// Handle identifies a playable channel. Zero is never a valid handle.
type Handle uint32

// SampleHandle identifies a decoded sample that channels can be derived from.
type SampleHandle uint32

// ChannelType is the kind of resource backing a channel
type ChannelType int

const (
	TypeUnknown ChannelType = iota
	TypeSample
	TypeStream
	TypeModule
)

// String returns the channel type name
func (t ChannelType) String() string {
	switch t {
	case TypeSample:
		return "sample"
	case TypeStream:
		return "stream"
	case TypeModule:
		return "module"
	default:
		return "unknown"
	}
}

// ChannelInfo describes a channel
type ChannelInfo struct {
	Type ChannelType
	Loop bool
	// Rate is the native sample rate of the source.
	Rate int
}

// Attributes are the per-channel playback settings.
// Freq 0 selects the source's native rate. Volume is 0..100, Pan is -100..100.
type Attributes struct {
	Freq   int `json:"freq"`
	Volume int `json:"volume"`
	Pan    int `json:"pan"`
}

// DefaultAttributes returns the settings a fresh channel starts with
func DefaultAttributes() Attributes {
	return Attributes{Freq: 0, Volume: 100, Pan: 0}
}

// Activity is the playback state of a channel
type Activity int

const (
	Stopped Activity = iota
	Playing
	Stalled
	Paused
)

// String returns the activity name
func (a Activity) String() string {
	switch a {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Stalled:
		return "stalled"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// MusicAttr selects a tracked-module attribute
type MusicAttr int

const (
	MusicAmplify MusicAttr = iota
	MusicBPM
	MusicPanSep
	MusicSpeed
	MusicGlobalVolume
	// MusicTrackVolume and MusicInstrumentVolume are indexed.
	MusicTrackVolume
	MusicInstrumentVolume
)

// TagKind selects a text tag of a tracked module
type TagKind int

const (
	TagTitle TagKind = iota
	TagMessage
	// TagInstrument and TagSample are indexed.
	TagInstrument
	TagSample
)

// InitOptions configures the output device
type InitOptions struct {
	// Device is the engine device number: -1 default, 0 no sound, 1.. a device.
	Device     int
	SampleRate int
	EightBit   bool
	Mono       bool
	Window     uintptr
}

// Engine is everything the control layer needs from an audio engine.
// Implementations need not be safe for concurrent use; callers serialize.
type Engine interface {
	Init(opts InitOptions) error
	Free() error

	LoadModule(path string) (Handle, error)
	LoadSample(path string) (SampleHandle, error)
	SampleChannel(s SampleHandle) (Handle, error)
	FreeSample(s SampleHandle) error
	StreamFile(path string) (Handle, error)
	StreamURL(url string) (Handle, error)
	// FreeChannel releases a stream or module channel.
	FreeChannel(h Handle) error

	ChannelInfo(h Handle) (ChannelInfo, error)
	SetLoop(h Handle, loop bool) error
	Attributes(h Handle) (Attributes, error)
	SetAttributes(h Handle, attrs Attributes) error

	Play(h Handle, restart bool) error
	Stop(h Handle) error
	Pause(h Handle) error
	Active(h Handle) (Activity, error)

	Length(h Handle) (int64, error)
	Position(h Handle) (int64, error)
	BytesToSeconds(h Handle, n int64) (float64, error)

	MusicAttribute(h Handle, attr MusicAttr, index int) (int, error)
	SetMusicAttribute(h Handle, attr MusicAttr, index int, value int) error
	Tag(h Handle, kind TagKind, index int) (string, error)
	// OrderPosition returns the order in the low 16 bits and the row in the
	// high 16 bits.
	OrderPosition(h Handle) (uint32, error)

	GlobalVolume() int
	SetGlobalVolume(vol int) error

	SlideVolume(h Handle, vol int, d time.Duration) error
	IsSliding(h Handle) bool
}

// Code is an engine failure code
type Code int

const (
	CodeInit Code = iota + 1
	CodeNotAvail
	CodeIllParam
	CodeFileOpen
	CodeFileForm
	CodeCodec
	CodeFormat
	CodeSpeaker
	CodeMem
	CodeNo3D
	CodeUnknown
	CodeNoNet
	CodeTimeout
	CodeHandle
	CodeStart
	CodeDecode
	CodeBufLost
	CodeNoHW
	CodeDevice
	CodeAlready
	CodeDriver
)

var codeNames = map[Code]string{
	CodeInit:     "not initialized",
	CodeNotAvail: "not available",
	CodeIllParam: "illegal parameter",
	CodeFileOpen: "file open",
	CodeFileForm: "file format",
	CodeCodec:    "codec",
	CodeFormat:   "format",
	CodeSpeaker:  "speaker",
	CodeMem:      "memory",
	CodeNo3D:     "no 3d",
	CodeUnknown:  "unknown",
	CodeNoNet:    "no net",
	CodeTimeout:  "timeout",
	CodeHandle:   "handle",
	CodeStart:    "start",
	CodeDecode:   "decode",
	CodeBufLost:  "buffer lost",
	CodeNoHW:     "no hardware",
	CodeDevice:   "device",
	CodeAlready:  "already",
	CodeDriver:   "driver",
}

// String returns the code name
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Error is a failure reported by an engine
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine %s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("engine %s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op string, code Code, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// CodeOf extracts the engine code from err, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// BytesPerSecond is the byte rate positions are measured in: 16-bit stereo.
func BytesPerSecond(rate int) int64 {
	return int64(rate) * 4
}
