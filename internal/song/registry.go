// Package song keeps track of every loaded audio source. The quick play slot
// lives at index 0 of the arena and is never removed.
package song

import (
	"errors"

	"github.com/austinkregel/local-media/bgmd/internal/engine"
	"github.com/austinkregel/local-media/bgmd/internal/errs"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Slot is a song's index in the registry arena
type Slot int

// QuickPlay is the reserved slot of the quick play song
const QuickPlay Slot = 0

// DefaultCapacity bounds the number of songs a registry holds
const DefaultCapacity = 4096

var (
	// ErrInvalidTarget is returned when an id or source name resolves to nothing.
	ErrInvalidTarget = errors.New("invalid song")
	// ErrExhausted is returned when the registry is full.
	ErrExhausted = errors.New("song registry exhausted")
)

// Song is one loaded or loadable audio source
type Song struct {
	// ID is the engine channel. Zero means the quick play slot is unloaded.
	ID engine.Handle
	// Source is the path or URL the song was loaded from.
	Source string
	// Backup holds the quick play channel settings across unload and reload.
	Backup engine.Attributes
	// Sample is the decoded sample the channel was derived from, if any.
	Sample engine.SampleHandle

	slot Slot
}

// Slot returns the song's arena index
func (s *Song) Slot() Slot {
	return s.slot
}

// IsQuickPlay reports whether s is the quick play slot
func (s *Song) IsQuickPlay() bool {
	return s != nil && s.slot == QuickPlay
}

// Loaded reports whether s is bound to an engine channel
func (s *Song) Loaded() bool {
	return s != nil && s.ID != 0
}

// Registry is an index-stable arena of songs
type Registry struct {
	slots    []*Song
	free     []Slot
	order    []Slot
	capacity int
	logger   zerolog.Logger
}

// NewRegistry creates a registry holding only the quick play slot.
// A capacity of 0 selects DefaultCapacity.
func NewRegistry(logger zerolog.Logger, capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	r := &Registry{
		capacity: capacity,
		logger:   logger.With().Str("component", "registry").Logger(),
	}
	r.Reset()
	return r
}

// Reset drops every song and recreates an unloaded quick play slot with
// default settings.
func (r *Registry) Reset() {
	qp := &Song{slot: QuickPlay, Backup: engine.DefaultAttributes()}
	r.slots = []*Song{qp}
	r.free = nil
	r.order = []Slot{QuickPlay}
}

// QuickPlay returns the quick play slot
func (r *Registry) QuickPlay() *Song {
	return r.slots[QuickPlay]
}

// Create adds a song to the registry
func (r *Registry) Create(id engine.Handle, source string, sample engine.SampleHandle) (*Song, error) {
	if len(r.order) >= r.capacity {
		return nil, errs.Wrap(errs.Resource, "", ErrExhausted, "Out of memory.")
	}

	s := &Song{ID: id, Source: source, Sample: sample}
	if n := len(r.free); n > 0 {
		s.slot = r.free[n-1]
		r.free = r.free[:n-1]
		r.slots[s.slot] = s
	} else {
		s.slot = Slot(len(r.slots))
		r.slots = append(r.slots, s)
	}
	r.order = append(r.order, s.slot)

	r.logger.Debug().Int("slot", int(s.slot)).Str("source", source).Msg("song created")
	return s, nil
}

// Delete removes s from the registry. It refuses nil, the quick play slot and
// songs that are not in this registry.
func (r *Registry) Delete(s *Song) bool {
	if s == nil || s.IsQuickPlay() {
		return false
	}
	if int(s.slot) >= len(r.slots) || r.slots[s.slot] != s {
		return false
	}

	r.slots[s.slot] = nil
	r.free = append(r.free, s.slot)
	r.order = lo.Without(r.order, s.slot)

	r.logger.Debug().Int("slot", int(s.slot)).Str("source", s.Source).Msg("song deleted")
	return true
}

// FindByID returns the song bound to id. Id 0 always resolves to the quick
// play slot.
func (r *Registry) FindByID(id engine.Handle) *Song {
	if id == 0 {
		return r.QuickPlay()
	}
	return r.find(func(s *Song) bool { return s.ID == id })
}

// FindBySource returns the first song loaded from name. The empty name always
// resolves to the quick play slot.
func (r *Registry) FindBySource(name string) *Song {
	if name == "" {
		return r.QuickPlay()
	}
	return r.find(func(s *Song) bool { return s.Source == name })
}

func (r *Registry) find(match func(*Song) bool) *Song {
	slot, ok := lo.Find(r.order, func(slot Slot) bool {
		return match(r.slots[slot])
	})
	if !ok {
		return nil
	}
	return r.slots[slot]
}

// Songs returns every song in insertion order, quick play first
func (r *Registry) Songs() []*Song {
	return lo.Map(r.order, func(slot Slot, _ int) *Song {
		return r.slots[slot]
	})
}

// Loaded returns every song bound to a channel
func (r *Registry) Loaded() []*Song {
	return lo.Filter(r.Songs(), func(s *Song, _ int) bool {
		return s.Loaded()
	})
}

// Len returns the number of songs including the quick play slot
func (r *Registry) Len() int {
	return len(r.order)
}
