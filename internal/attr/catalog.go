// Package attr implements the named attribute catalog and the get/set
// dispatch that resolves "name<index>" strings against a song.
package attr

import (
	"github.com/austinkregel/local-media/bgmd/internal/engine"
	"github.com/samber/lo"
)

// Kind is one attribute of the closed catalog
type Kind int

const (
	Amplify Kind = iota
	BPM
	ChannelFreq
	ChannelPan
	ChannelVolume
	Filename
	ID
	InstrumentVolume
	Loop
	ModInstrument
	ModMessage
	ModSample
	ModTitle
	ModVolume
	PanSep
	Speed
	TrackVolume
	Type
	Stream
	Volume
)

// Flag is a capability flag of an attribute
type Flag uint8

const (
	// Global attributes act on process-wide settings; the song is ignored.
	Global Flag = 1 << iota
	// QuickPlaySafe attributes may be used while the quick play slot is
	// unloaded.
	QuickPlaySafe
)

// ValueType is the type of the last value returned by Get
type ValueType int

const (
	Unset   ValueType = -1
	Text    ValueType = 0
	Numeric ValueType = 1
)

// Descriptor describes one catalog entry
type Descriptor struct {
	Kind     Kind
	Name     string
	Flags    Flag
	ReadOnly bool
	// Min and Max bound numeric values on set.
	Min, Max int
	// Music and Tag select the engine attribute for module entries.
	Music engine.MusicAttr
	Tag   engine.TagKind
	// GetContext and SetContext label failures of each direction.
	GetContext string
	SetContext string
}

// Has reports whether d carries flag
func (d Descriptor) Has(flag Flag) bool {
	return d.Flags&flag != 0
}

// Indexed reports whether the attribute is addressed as name<index>
func (d Descriptor) Indexed() bool {
	switch d.Kind {
	case InstrumentVolume, TrackVolume, ModInstrument, ModSample:
		return true
	}
	return false
}

var catalog = []Descriptor{
	{Kind: Amplify, Name: "amplify", Min: 0, Max: 100, Music: engine.MusicAmplify,
		GetContext: "Failed to get module amplification level", SetContext: "Failed to set module amplification level"},
	{Kind: BPM, Name: "bpm", Min: 1, Max: 255, Music: engine.MusicBPM,
		GetContext: "Failed to get module BPM", SetContext: "Failed to set module BPM"},
	{Kind: ChannelFreq, Name: "cfreq", Flags: QuickPlaySafe, Min: 100, Max: 100000,
		GetContext: "Failed to get channel frequency", SetContext: "Failed to change channel frequency"},
	{Kind: ChannelPan, Name: "cpanning", Flags: QuickPlaySafe, Min: -100, Max: 100,
		GetContext: "Failed to get channel panning", SetContext: "Failed to change channel panning"},
	{Kind: ChannelVolume, Name: "cvolume", Flags: QuickPlaySafe, Min: 0, Max: 100,
		GetContext: "Failed to get channel volume", SetContext: "Failed to set channel volume"},
	{Kind: Filename, Name: "filename", ReadOnly: true,
		GetContext: "Failed to get song filename", SetContext: "Cannot change song filename"},
	{Kind: ID, Name: "id", ReadOnly: true,
		GetContext: "Failed to get song ID", SetContext: "Cannot change song ID"},
	{Kind: InstrumentVolume, Name: "ivolume", Min: 0, Max: 100, Music: engine.MusicInstrumentVolume,
		GetContext: "Failed to get module instrument volume", SetContext: "Failed to set module instrument volume"},
	{Kind: Loop, Name: "loop",
		GetContext: "Failed to get song looping", SetContext: "Failed to set song looping"},
	{Kind: ModInstrument, Name: "minstrument", ReadOnly: true, Tag: engine.TagInstrument,
		GetContext: "Failed to get module instrument name", SetContext: "Cannot change module instrument name"},
	{Kind: ModMessage, Name: "mmessage", ReadOnly: true, Tag: engine.TagMessage,
		GetContext: "Failed to get module message", SetContext: "Cannot change module message"},
	{Kind: ModSample, Name: "msample", ReadOnly: true, Tag: engine.TagSample,
		GetContext: "Failed to get module sample name", SetContext: "Cannot change module sample name"},
	{Kind: ModTitle, Name: "mtitle", ReadOnly: true, Tag: engine.TagTitle,
		GetContext: "Failed to get module title", SetContext: "Cannot change module title"},
	{Kind: ModVolume, Name: "mvolume", Min: 0, Max: 128, Music: engine.MusicGlobalVolume,
		GetContext: "Failed to get module global volume", SetContext: "Failed to set module global volume"},
	{Kind: PanSep, Name: "pansep", Min: 0, Max: 100, Music: engine.MusicPanSep,
		GetContext: "Failed to get module panning separation", SetContext: "Failed to set module panning separation"},
	{Kind: Speed, Name: "speed", Min: 0, Max: 255, Music: engine.MusicSpeed,
		GetContext: "Failed to get module speed", SetContext: "Failed to set module speed"},
	{Kind: TrackVolume, Name: "tvolume", Min: 0, Max: 100, Music: engine.MusicTrackVolume,
		GetContext: "Failed to get track volume", SetContext: "Failed to set track volume"},
	{Kind: Type, Name: "type", ReadOnly: true,
		GetContext: "Failed to get song type", SetContext: "Cannot change song type"},

	{Kind: Stream, Name: "stream", Flags: Global,
		GetContext: "Failed to get stream setting", SetContext: "Failed to set stream setting"},
	{Kind: Volume, Name: "volume", Flags: Global, Min: 0, Max: 100,
		GetContext: "Failed to get global volume", SetContext: "Failed to set global volume"},
}

// Lookup finds the catalog entry for a lowercase base name
func Lookup(base string) (Descriptor, bool) {
	return lo.Find(catalog, func(d Descriptor) bool {
		return d.Name == base
	})
}

// Catalog returns a copy of every catalog entry
func Catalog() []Descriptor {
	out := make([]Descriptor, len(catalog))
	copy(out, catalog)
	return out
}

// isModuleAttr reports whether k reads a tracked-module engine attribute
func isModuleAttr(k Kind) bool {
	switch k {
	case Amplify, BPM, InstrumentVolume, ModVolume, PanSep, Speed, TrackVolume:
		return true
	}
	return false
}

// isTag reports whether k reads a module text tag
func isTag(k Kind) bool {
	switch k {
	case ModInstrument, ModMessage, ModSample, ModTitle:
		return true
	}
	return false
}
