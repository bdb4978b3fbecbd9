// Package bgm exposes the song registry, load pipeline, attribute dispatch
// and playback controller as one flat call surface of numbers and strings.
// Every call returns a sentinel on failure and leaves the reason in Error.
package bgm

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/austinkregel/local-media/bgmd/internal/attr"
	"github.com/austinkregel/local-media/bgmd/internal/engine"
	"github.com/austinkregel/local-media/bgmd/internal/errs"
	"github.com/austinkregel/local-media/bgmd/internal/load"
	"github.com/austinkregel/local-media/bgmd/internal/media"
	"github.com/austinkregel/local-media/bgmd/internal/playback"
	"github.com/austinkregel/local-media/bgmd/internal/song"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const initContext = "Failed to initialize BGM"

// InitParams are the device parameters of Init
type InitParams struct {
	// Device is -1 for no sound, 0 for the default device, or a device index.
	Device     int
	SampleRate int
	// BitDepth 1 selects 8-bit output and 2 selects 32-bit float loading.
	BitDepth int
	Mono     bool
	Window   uintptr
}

// SongInfo is a snapshot of one registry entry
type SongInfo struct {
	ID        uint32 `json:"id"`
	Source    string `json:"source"`
	QuickPlay bool   `json:"quickPlay"`
	Loaded    bool   `json:"loaded"`
	Type      string `json:"type"`
}

type settings struct {
	stream   atomic.Bool
	use32Bit atomic.Bool
}

func (s *settings) StreamByDefault() bool     { return s.stream.Load() }
func (s *settings) SetStreamByDefault(v bool) { s.stream.Store(v) }

// System owns every component behind the call surface. All calls are
// serialized.
type System struct {
	mu       sync.Mutex
	eng      engine.Engine
	reg      *song.Registry
	loader   *load.Pipeline
	dispatch *attr.Dispatcher
	player   *playback.Controller
	errctx   *errs.Context
	settings *settings
	logger   zerolog.Logger
}

// New creates a system over an engine. Init must succeed before songs can be
// loaded.
func New(eng engine.Engine, logger zerolog.Logger) *System {
	cfg := &settings{}
	cfg.stream.Store(true)

	reg := song.NewRegistry(logger, 0)
	loader := load.New(eng, reg, logger)
	return &System{
		eng:      eng,
		reg:      reg,
		loader:   loader,
		dispatch: attr.NewDispatcher(eng, cfg),
		player:   playback.NewController(eng, reg, loader, cfg, logger),
		errctx:   errs.NewContext(logger),
		settings: cfg,
		logger:   logger.With().Str("component", "bgm").Logger(),
	}
}

// SetSession publishes playback changes to session and routes its commands
// back into the system.
func (s *System) SetSession(session media.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.SetSession(session)
	if session != nil {
		session.SetCommandHandler(s)
	}
}

var initMessages = map[engine.Code]string{
	engine.CodeDevice:  "Invalid device number.",
	engine.CodeAlready: "Device already initialized.",
	engine.CodeDriver:  "Device driver unavailable.",
	engine.CodeFormat:  "Device does not support the output format.",
	engine.CodeMem:     "Out of memory.",
	engine.CodeNo3D:    "Device does not support 3D fx.",
}

// Init resets the registry and settings and initializes the engine.
// Device -1 and 0 trade places so that 0 selects the default device.
func (s *System) Init(p InitParams) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.errctx.Reset()
	s.errctx.Enter(initContext)
	s.reg.Reset()
	s.errctx.SetReporting(true)
	s.settings.SetStreamByDefault(true)
	s.settings.use32Bit.Store(p.BitDepth == 2)

	device := p.Device
	switch device {
	case -1:
		device = 0
	case 0:
		device = -1
	}
	rate := p.SampleRate
	if rate == 0 {
		rate = 44100
	}

	err := s.eng.Init(engine.InitOptions{
		Device:     device,
		SampleRate: rate,
		EightBit:   p.BitDepth == 1,
		Mono:       p.Mono,
		Window:     p.Window,
	})
	if err != nil {
		msg, ok := initMessages[engine.CodeOf(err)]
		if !ok {
			msg = "Unknown error occurred."
		}
		s.errctx.Record(errs.Wrap(errs.Engine, initContext, err, msg))
		return false
	}

	s.logger.Info().Int("device", device).Int("rate", rate).Bool("mono", p.Mono).Msg("Engine initialized")
	return true
}

// Close unloads every song and releases the engine
func (s *System) Close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loader.UnloadAll()
	if err := s.eng.Free(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to free engine")
	}
	s.reg.Reset()
	s.logger.Info().Msg("Engine closed")
	return true
}

// Error returns the last failure as "<context>: <message>"
func (s *System) Error() string {
	return s.errctx.Message()
}

// Failures counts the failures recorded since New
func (s *System) Failures() int {
	return s.errctx.Failures()
}

// SetReportErrors turns logging of failures on or off
func (s *System) SetReportErrors(enabled bool) bool {
	s.errctx.SetReporting(enabled)
	return true
}

// ReportErrors reports whether failures are logged
func (s *System) ReportErrors() bool {
	return s.errctx.Reporting()
}

// SetStreamByDefault sets whether implicit loads stream sampled audio
func (s *System) SetStreamByDefault(enabled bool) {
	s.settings.SetStreamByDefault(enabled)
}

// StreamByDefault reports whether implicit loads stream sampled audio
func (s *System) StreamByDefault() bool {
	return s.settings.StreamByDefault()
}

// Use32Bit reports whether Init asked for 32-bit float loading
func (s *System) Use32Bit() bool {
	return s.settings.use32Bit.Load()
}

// GetAttrTypeLast returns 0 if the last attribute read was text, 1 if it
// was numeric, and -1 before any read.
func (s *System) GetAttrTypeLast() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.dispatch.LastType())
}

// ListSongs returns a snapshot of the registry, quick play first
func (s *System) ListSongs() []SongInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return lo.Map(s.reg.Songs(), func(sg *song.Song, _ int) SongInfo {
		kind := engine.TypeUnknown
		if info, err := s.eng.ChannelInfo(sg.ID); err == nil && sg.Loaded() {
			kind = info.Type
		}
		return SongInfo{
			ID:        uint32(sg.ID),
			Source:    sg.Source,
			QuickPlay: sg.IsQuickPlay(),
			Loaded:    sg.Loaded(),
			Type:      kind.String(),
		}
	})
}

// OnCommand handles media session commands for the song it displays
func (s *System) OnCommand(cmd media.Command, data interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.player.Shown()
	if id == 0 {
		return nil
	}
	target := s.reg.FindByID(id)

	var err error
	switch cmd {
	case media.CmdPlay:
		err = s.player.Unpause(target)
	case media.CmdPause:
		err = s.player.Pause(target)
	case media.CmdPlayPause:
		activity, _ := s.player.Status(target)
		if activity == engine.Playing {
			err = s.player.Pause(target)
		} else {
			err = s.player.Unpause(target)
		}
	case media.CmdStop:
		err = s.player.Stop(target)
	case media.CmdSetLoopStatus:
		status, _ := data.(media.LoopStatus)
		err = s.eng.SetLoop(id, status == media.LoopTrack)
	}
	s.errctx.Record(err)
	return err
}

// handle converts a call surface id to a channel handle the way an unsigned
// cast would, so negative ids never resolve to the quick play slot.
func handle(id float64) engine.Handle {
	if math.IsNaN(id) || math.IsInf(id, 0) {
		return engine.Handle(math.MaxUint32)
	}
	return engine.Handle(uint32(int64(id)))
}

func truthy(v float64) bool {
	return v != 0 && !math.IsNaN(v)
}
