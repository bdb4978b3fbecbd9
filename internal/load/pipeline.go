// Package load turns source names into engine channels bound to songs and
// releases them again.
package load

import (
	"errors"

	"github.com/austinkregel/local-media/bgmd/internal/engine"
	"github.com/austinkregel/local-media/bgmd/internal/errs"
	"github.com/austinkregel/local-media/bgmd/internal/song"
	"github.com/rs/zerolog"
)

const (
	loadContext   = "Failed to load song"
	unloadContext = "Failed to unload song"
)

var (
	// ErrNetworkModule is returned for a tracked module addressed by URL.
	ErrNetworkModule = errors.New("tracked modules cannot be streamed")
	// ErrUnknownExtension is returned for a source of unrecognized type.
	ErrUnknownExtension = errors.New("unknown file extension")
)

// Pipeline loads and unloads songs
type Pipeline struct {
	eng    engine.Engine
	reg    *song.Registry
	logger zerolog.Logger
}

// New creates a load pipeline over an engine and a registry
func New(eng engine.Engine, reg *song.Registry, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		eng:    eng,
		reg:    reg,
		logger: logger.With().Str("component", "load").Logger(),
	}
}

// Choose picks the strategy for source. Modules cannot come from the
// network and unrecognized extensions are rejected.
func Choose(source string, preferStream bool) (Strategy, error) {
	class := Classify(source)
	network := IsNetwork(source)

	if class == Module && network {
		return 0, errs.Wrap(errs.State, loadContext, ErrNetworkModule,
			"Downloading tracked audio from the internet is not supported.")
	}

	switch class {
	case Module:
		return StrategyModule, nil
	case Sampled:
		if network {
			return StrategyNetworkStream, nil
		}
		if preferStream {
			return StrategyFileStream, nil
		}
		return StrategySample, nil
	}
	return 0, errs.Wrap(errs.Validation, loadContext, ErrUnknownExtension, "Unknown file extension.")
}

// Load classifies source and loads it with the matching strategy. When
// quickPlay is set the song replaces the quick play slot's occupant.
func (p *Pipeline) Load(source string, preferStream, quickPlay bool) (engine.Handle, error) {
	strategy, err := Choose(source, preferStream)
	if err != nil {
		return 0, err
	}
	return p.LoadWith(strategy, source, quickPlay)
}

// LoadModule loads a tracked module
func (p *Pipeline) LoadModule(source string, quickPlay bool) (engine.Handle, error) {
	return p.LoadWith(StrategyModule, source, quickPlay)
}

// LoadSample decodes source fully into memory
func (p *Pipeline) LoadSample(source string, quickPlay bool) (engine.Handle, error) {
	return p.LoadWith(StrategySample, source, quickPlay)
}

// LoadFileStream streams source from disk
func (p *Pipeline) LoadFileStream(source string, quickPlay bool) (engine.Handle, error) {
	return p.LoadWith(StrategyFileStream, source, quickPlay)
}

// LoadNetworkStream streams source from a URL
func (p *Pipeline) LoadNetworkStream(source string, quickPlay bool) (engine.Handle, error) {
	return p.LoadWith(StrategyNetworkStream, source, quickPlay)
}

// LoadWith loads source with an explicit strategy. A failure leaves no new
// song in the registry and no engine resource allocated.
func (p *Pipeline) LoadWith(strategy Strategy, source string, quickPlay bool) (engine.Handle, error) {
	ctx := strategy.context()

	s, err := p.prepare(source, quickPlay, ctx)
	if err != nil {
		return 0, err
	}

	var h engine.Handle
	switch strategy {
	case StrategyModule:
		h, err = p.eng.LoadModule(source)
	case StrategyFileStream:
		h, err = p.eng.StreamFile(source)
	case StrategyNetworkStream:
		h, err = p.eng.StreamURL(source)
	case StrategySample:
		h, err = p.loadSample(s, source, ctx)
		if err != nil {
			p.rollback(s)
			return 0, err
		}
	}
	if err != nil {
		p.rollback(s)
		p.logger.Debug().Err(err).Str("source", source).Stringer("strategy", strategy).Msg("load failed")
		return 0, errs.Wrap(errs.Engine, ctx, err, Message(strategy, err))
	}

	s.ID = h
	if quickPlay {
		if err := p.eng.SetAttributes(h, s.Backup); err != nil {
			p.logger.Warn().Err(err).Msg("Failed to restore quick play attributes")
		}
	}

	p.logger.Info().
		Uint32("id", uint32(h)).
		Str("source", source).
		Stringer("strategy", strategy).
		Bool("quick_play", quickPlay).
		Msg("Song loaded")
	return h, nil
}

func (p *Pipeline) loadSample(s *song.Song, source, ctx string) (engine.Handle, error) {
	sample, err := p.eng.LoadSample(source)
	if err != nil {
		return 0, errs.Wrap(errs.Engine, ctx, err, Message(StrategySample, err))
	}
	h, err := p.eng.SampleChannel(sample)
	if err != nil {
		if ferr := p.eng.FreeSample(sample); ferr != nil {
			p.logger.Warn().Err(ferr).Msg("Failed to free sample")
		}
		return 0, errs.Wrap(errs.Engine, ctx, err, "Could not create new channel.")
	}
	s.Sample = sample
	return h, nil
}

// prepare returns the song a load fills in. The quick play slot is emptied
// first; otherwise a placeholder song is created.
func (p *Pipeline) prepare(source string, quickPlay bool, ctx string) (*song.Song, error) {
	if !quickPlay {
		s, err := p.reg.Create(0, source, 0)
		if err != nil {
			return nil, errs.Wrap(errs.Resource, ctx, err, "Out of memory.")
		}
		return s, nil
	}

	qp := p.reg.QuickPlay()
	if qp.Loaded() {
		if err := p.Unload(qp); err != nil {
			return nil, err
		}
	}
	qp.Source = source
	return qp, nil
}

func (p *Pipeline) rollback(s *song.Song) {
	if s.IsQuickPlay() {
		s.ID = 0
		s.Sample = 0
		return
	}
	p.reg.Delete(s)
}

// Unload releases the engine resources of s. The quick play slot keeps its
// channel settings in its backup and stays in the registry; any other song
// is deleted. Unloading an unloaded quick play slot succeeds.
func (p *Pipeline) Unload(s *song.Song) error {
	if s == nil {
		return errs.Wrap(errs.Validation, unloadContext, song.ErrInvalidTarget, "Invalid ID or filename.")
	}
	if !s.Loaded() {
		return nil
	}

	if s.IsQuickPlay() {
		if attrs, err := p.eng.Attributes(s.ID); err == nil {
			s.Backup = attrs
		} else {
			p.logger.Warn().Err(err).Msg("Failed to save quick play attributes")
		}
		p.clear(s)
		return nil
	}

	p.clear(s)
	p.reg.Delete(s)
	return nil
}

// UnloadAll unloads every song, quick play included
func (p *Pipeline) UnloadAll() {
	for _, s := range p.reg.Songs() {
		if err := p.Unload(s); err != nil {
			p.logger.Warn().Err(err).Str("source", s.Source).Msg("Failed to unload song")
		}
	}
}

// clear frees the channel of s according to its type and unbinds it
func (p *Pipeline) clear(s *song.Song) {
	id := s.ID
	info, err := p.eng.ChannelInfo(id)
	if err != nil {
		p.logger.Warn().Err(err).Uint32("id", uint32(id)).Msg("Channel info unavailable during unload")
	} else {
		switch info.Type {
		case engine.TypeSample:
			p.eng.Stop(id)
			err = p.eng.FreeSample(s.Sample)
		case engine.TypeStream, engine.TypeModule:
			err = p.eng.FreeChannel(id)
		}
		if err != nil {
			p.logger.Warn().Err(err).Uint32("id", uint32(id)).Msg("Failed to free channel")
		}
	}

	s.ID = 0
	s.Sample = 0
	p.logger.Info().Uint32("id", uint32(id)).Str("source", s.Source).Msg("Song unloaded")
}
