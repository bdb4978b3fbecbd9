// Package playback controls playing songs: start, stop, pause, status and
// position queries, and volume fades.
package playback

import (
	"errors"
	"time"

	"github.com/austinkregel/local-media/bgmd/internal/attr"
	"github.com/austinkregel/local-media/bgmd/internal/engine"
	"github.com/austinkregel/local-media/bgmd/internal/errs"
	"github.com/austinkregel/local-media/bgmd/internal/load"
	"github.com/austinkregel/local-media/bgmd/internal/media"
	"github.com/austinkregel/local-media/bgmd/internal/song"
	"github.com/rs/zerolog"
)

const (
	playContext     = "Failed to play song"
	stopContext     = "Failed to stop song"
	pauseContext    = "Failed to pause song"
	unpauseContext  = "Failed to unpause song"
	statusContext   = "Failed to get playing status of song"
	lengthContext   = "Failed to get song length"
	positionContext = "Failed to get song position"
	orderContext    = "Failed to get current module order"
	rowContext      = "Failed to get current module row"
	fadeContext     = "Failed to fade volume"
)

// ErrQuickPlayEmpty is returned by operations that need a loaded quick play
// song.
var ErrQuickPlayEmpty = errors.New("quick play song not loaded")

// StreamPreference reports whether implicit loads stream sampled audio
type StreamPreference interface {
	StreamByDefault() bool
}

// Controller plays songs held in a registry
type Controller struct {
	eng      engine.Engine
	reg      *song.Registry
	loader   *load.Pipeline
	prefs    StreamPreference
	session  media.Session
	logger   zerolog.Logger
	nowShown engine.Handle
}

// NewController creates a playback controller. Implicit loads go through
// loader with the stream preference from prefs.
func NewController(eng engine.Engine, reg *song.Registry, loader *load.Pipeline, prefs StreamPreference, logger zerolog.Logger) *Controller {
	return &Controller{
		eng:     eng,
		reg:     reg,
		loader:  loader,
		prefs:   prefs,
		session: media.NewNoOpSession(),
		logger:  logger.With().Str("component", "playback").Logger(),
	}
}

// SetSession sets the media session playback changes are published to
func (c *Controller) SetSession(session media.Session) {
	if session == nil {
		session = media.NewNoOpSession()
	}
	c.session = session
}

func invalidTarget(ctx, msg string) error {
	return errs.Wrap(errs.Validation, ctx, song.ErrInvalidTarget, msg)
}

var playMessages = map[engine.Code]string{
	engine.CodeHandle:  "Invalid song ID.",
	engine.CodeStart:   "Global output is stopped.",
	engine.CodeDecode:  "Channel is for decoding only.",
	engine.CodeBufLost: "Buffer lost.",
	engine.CodeNoHW:    "No hardware voices available.",
}

// Play sets the loop flag of channel id and plays it from the start
func (c *Controller) Play(id engine.Handle, loop bool) error {
	info, err := c.eng.ChannelInfo(id)
	if err != nil {
		return invalidTarget(playContext, "Invalid song ID.")
	}
	if info.Loop != loop {
		if err := c.eng.SetLoop(id, loop); err != nil {
			c.logger.Warn().Err(err).Uint32("id", uint32(id)).Msg("Failed to set loop flag")
		}
	}

	if err := c.eng.Play(id, true); err != nil {
		msg, ok := playMessages[engine.CodeOf(err)]
		if !ok {
			msg = "Unknown error occured."
		}
		return errs.Wrap(errs.Engine, playContext, err, msg)
	}

	c.publishPlaying(id, info.Type, loop)
	return nil
}

// PlayBySource plays the song loaded from name. A name that is not loaded,
// or that belongs to the quick play slot, is (re)loaded into quick play
// first.
func (c *Controller) PlayBySource(name string, loop bool) error {
	s := c.reg.FindBySource(name)
	if s == nil || s.IsQuickPlay() {
		if _, err := c.loader.Load(name, c.prefs.StreamByDefault(), true); err != nil {
			return err
		}
		s = c.reg.QuickPlay()
	}
	return c.Play(s.ID, loop)
}

// Stop stops s. The quick play song is unloaded instead, and channels made
// from a sample are paused since they cannot be stopped.
func (c *Controller) Stop(s *song.Song) error {
	if s.IsQuickPlay() {
		id := s.ID
		if err := c.loader.Unload(s); err != nil {
			return err
		}
		c.publishState(id, media.StateStopped)
		return nil
	}
	if s == nil {
		return invalidTarget(stopContext, "Invalid song ID or filename.")
	}

	if s.Sample != 0 {
		if err := c.eng.Pause(s.ID); err != nil {
			c.logger.Debug().Err(err).Uint32("id", uint32(s.ID)).Msg("sample stop ignored")
		}
	} else if err := c.eng.Stop(s.ID); err != nil {
		return errs.Wrap(errs.Engine, stopContext, err, "Song may have corrupt ID.")
	}

	c.publishState(s.ID, media.StateStopped)
	return nil
}

// Pause pauses s. Engine failures are ignored.
func (c *Controller) Pause(s *song.Song) error {
	if s == nil {
		return invalidTarget(pauseContext, "Invalid song ID or filename.")
	}
	if !s.Loaded() {
		return nil
	}

	if err := c.eng.Pause(s.ID); err != nil {
		c.logger.Debug().Err(err).Uint32("id", uint32(s.ID)).Msg("pause ignored")
	}
	c.publishState(s.ID, media.StatePaused)
	return nil
}

// Unpause resumes s where it was paused. Engine failures are ignored.
func (c *Controller) Unpause(s *song.Song) error {
	if s == nil {
		return invalidTarget(unpauseContext, "Invalid song ID or filename.")
	}
	if !s.Loaded() {
		return nil
	}

	if err := c.eng.Play(s.ID, false); err != nil {
		c.logger.Debug().Err(err).Uint32("id", uint32(s.ID)).Msg("unpause ignored")
	}
	c.publishState(s.ID, media.StatePlaying)
	return nil
}

// Status returns the activity of s. An unloaded or invalid channel is
// stopped.
func (c *Controller) Status(s *song.Song) (engine.Activity, error) {
	if s == nil {
		return engine.Stopped, invalidTarget(statusContext, "Invalid song ID or filename.")
	}
	if !s.Loaded() {
		return engine.Stopped, nil
	}
	activity, err := c.eng.Active(s.ID)
	if err != nil {
		return engine.Stopped, nil
	}
	return activity, nil
}

// Length returns the length of s in seconds
func (c *Controller) Length(s *song.Song) (float64, error) {
	return c.seconds(s, lengthContext, "Length not available.", c.eng.Length)
}

// Position returns the playing position of s in seconds
func (c *Controller) Position(s *song.Song) (float64, error) {
	return c.seconds(s, positionContext, "Unknown error.", c.eng.Position)
}

func (c *Controller) seconds(s *song.Song, ctx, failure string, bytes func(engine.Handle) (int64, error)) (float64, error) {
	if s == nil {
		return -1, invalidTarget(ctx, "Invalid ID or filename.")
	}
	if !s.Loaded() {
		return 0, nil
	}

	n, err := bytes(s.ID)
	if err != nil {
		return -1, errs.Wrap(errs.Engine, ctx, err, failure)
	}
	secs, err := c.eng.BytesToSeconds(s.ID, n)
	if err != nil {
		return -1, errs.Wrap(errs.Engine, ctx, err, failure)
	}
	return secs, nil
}

// Order returns the order a module song is playing
func (c *Controller) Order(s *song.Song) (int, error) {
	pos, err := c.orderPosition(s, orderContext)
	if err != nil || pos < 0 {
		return pos, err
	}
	return pos & 0xffff, nil
}

// Row returns the row within the current order of a module song
func (c *Controller) Row(s *song.Song) (int, error) {
	pos, err := c.orderPosition(s, rowContext)
	if err != nil || pos < 0 {
		return pos, err
	}
	return pos >> 16 & 0xffff, nil
}

func (c *Controller) orderPosition(s *song.Song, ctx string) (int, error) {
	if s == nil {
		return -1, invalidTarget(ctx, "Invalid ID or filename.")
	}
	if !s.Loaded() {
		return 0, nil
	}

	info, err := c.eng.ChannelInfo(s.ID)
	if err != nil || info.Type != engine.TypeModule {
		return -1, errs.Wrap(errs.State, ctx, attr.ErrNotModule, "Song is not a module.")
	}
	pos, err := c.eng.OrderPosition(s.ID)
	if err != nil {
		return -1, errs.Wrap(errs.Engine, ctx, err, "Unknown error.")
	}
	return int(pos), nil
}

// Fade slides the volume of s to vol over d
func (c *Controller) Fade(s *song.Song, vol int, d time.Duration) error {
	if s == nil {
		return invalidTarget(fadeContext, "Invalid ID or filename.")
	}
	if !s.Loaded() {
		return errs.Wrap(errs.State, fadeContext, ErrQuickPlayEmpty, "QP song not loaded.")
	}
	if err := c.eng.SlideVolume(s.ID, vol, d); err != nil {
		return errs.Wrap(errs.Engine, fadeContext, err, "Song may have corrupt ID.")
	}
	return nil
}

// IsFading reports whether the volume of s is sliding
func (c *Controller) IsFading(s *song.Song) bool {
	if !s.Loaded() {
		return false
	}
	return c.eng.IsSliding(s.ID)
}

// Shown returns the channel the media session currently displays, or 0
func (c *Controller) Shown() engine.Handle {
	if _, err := c.eng.ChannelInfo(c.nowShown); err != nil {
		return 0
	}
	return c.nowShown
}

func (c *Controller) publishPlaying(id engine.Handle, kind engine.ChannelType, loop bool) {
	var source string
	if s := c.reg.FindByID(id); s != nil {
		source = s.Source
	}

	var duration time.Duration
	if n, err := c.eng.Length(id); err == nil {
		if secs, err := c.eng.BytesToSeconds(id, n); err == nil {
			duration = time.Duration(secs * float64(time.Second))
		}
	}

	c.nowShown = id
	c.report(c.session.UpdateMetadata(media.Metadata{
		ID:       uint32(id),
		Source:   source,
		Kind:     kind.String(),
		Duration: duration,
	}))
	c.report(c.session.UpdateLoopStatus(media.LoopStatusOf(loop)))
	c.report(c.session.UpdatePlaybackState(media.StatePlaying, 0))
}

// publishState forwards a state change of the song the session shows
func (c *Controller) publishState(id engine.Handle, state media.PlaybackState) {
	if id == 0 || id != c.nowShown {
		return
	}

	var position time.Duration
	if state != media.StateStopped {
		if n, err := c.eng.Position(id); err == nil {
			if secs, err := c.eng.BytesToSeconds(id, n); err == nil {
				position = time.Duration(secs * float64(time.Second))
			}
		}
	}
	c.report(c.session.UpdatePlaybackState(state, position))
}

func (c *Controller) report(err error) {
	if err != nil {
		c.logger.Debug().Err(err).Msg("media session update failed")
	}
}
