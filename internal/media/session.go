// Package media provides OS-level media session integration.
package media

import (
	"path"
	"strings"
	"time"
)

// PlaybackState represents the playback state for media sessions
type PlaybackState int

const (
	StateStopped PlaybackState = iota
	StatePlaying
	StatePaused
)

// Metadata describes the song a session displays
type Metadata struct {
	ID       uint32
	Source   string
	Kind     string
	Duration time.Duration
}

// Title returns the display name of the source, its last path element
// without the extension.
func (m Metadata) Title() string {
	if m.Source == "" {
		return ""
	}
	base := path.Base(strings.ReplaceAll(m.Source, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// LoopStatus represents the loop mode for MPRIS
type LoopStatus string

const (
	LoopNone  LoopStatus = "None"
	LoopTrack LoopStatus = "Track"
)

// LoopStatusOf maps a song's loop flag to a loop status
func LoopStatusOf(loop bool) LoopStatus {
	if loop {
		return LoopTrack
	}
	return LoopNone
}

// Session is the interface for OS media session integration
type Session interface {
	// UpdateMetadata updates the currently playing song
	UpdateMetadata(metadata Metadata) error

	// UpdatePlaybackState updates the playback state and position
	UpdatePlaybackState(state PlaybackState, position time.Duration) error

	// UpdateLoopStatus updates the loop mode
	UpdateLoopStatus(status LoopStatus) error

	// SetCommandHandler sets the handler for media commands (play, pause, etc.)
	SetCommandHandler(handler CommandHandler)

	// Close releases resources
	Close() error
}

// Command represents a media command from the OS
type Command int

const (
	CmdPlay Command = iota
	CmdPause
	CmdPlayPause
	CmdStop
	CmdSetLoopStatus
)

// String returns the command name
func (c Command) String() string {
	switch c {
	case CmdPlay:
		return "Play"
	case CmdPause:
		return "Pause"
	case CmdPlayPause:
		return "PlayPause"
	case CmdStop:
		return "Stop"
	case CmdSetLoopStatus:
		return "SetLoopStatus"
	default:
		return "Unknown"
	}
}

// CommandHandler handles media commands from the OS
type CommandHandler interface {
	OnCommand(cmd Command, data interface{}) error
}

// CommandHandlerFunc is a function adapter for CommandHandler
type CommandHandlerFunc func(cmd Command, data interface{}) error

func (f CommandHandlerFunc) OnCommand(cmd Command, data interface{}) error {
	return f(cmd, data)
}

// NoOpSession is a session that does nothing
// Used when media session integration is not available
type NoOpSession struct{}

// NewNoOpSession creates a new no-op session
func NewNoOpSession() *NoOpSession {
	return &NoOpSession{}
}

func (s *NoOpSession) UpdateMetadata(metadata Metadata) error {
	return nil
}

func (s *NoOpSession) UpdatePlaybackState(state PlaybackState, position time.Duration) error {
	return nil
}

func (s *NoOpSession) UpdateLoopStatus(status LoopStatus) error {
	return nil
}

func (s *NoOpSession) SetCommandHandler(handler CommandHandler) {
}

func (s *NoOpSession) Close() error {
	return nil
}
