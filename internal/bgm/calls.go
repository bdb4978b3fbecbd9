package bgm

import (
	"time"

	"github.com/austinkregel/local-media/bgmd/internal/attr"
	"github.com/austinkregel/local-media/bgmd/internal/engine"
	"github.com/austinkregel/local-media/bgmd/internal/load"
	"github.com/austinkregel/local-media/bgmd/internal/song"
	"github.com/samber/lo"
)

func (s *System) byID(id float64) *song.Song {
	return s.reg.FindByID(handle(id))
}

func (s *System) bySource(name string) *song.Song {
	return s.reg.FindBySource(name)
}

func (s *System) loaded(h engine.Handle, err error) float64 {
	if err != nil {
		s.errctx.Record(err)
		return 0
	}
	return float64(h)
}

func (s *System) ok(err error) bool {
	s.errctx.Record(err)
	return err == nil
}

// Load loads source with the strategy its type and location call for.
// It returns the new song id, or 0 on failure.
func (s *System) Load(source string, stream, quickPlay float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded(s.loader.Load(source, truthy(stream), truthy(quickPlay)))
}

func (s *System) loadWith(strategy load.Strategy, source string, quickPlay float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded(s.loader.LoadWith(strategy, source, truthy(quickPlay)))
}

// LoadModule loads a tracked module
func (s *System) LoadModule(source string, quickPlay float64) float64 {
	return s.loadWith(load.StrategyModule, source, quickPlay)
}

// LoadSample decodes a sampled file into memory
func (s *System) LoadSample(source string, quickPlay float64) float64 {
	return s.loadWith(load.StrategySample, source, quickPlay)
}

// LoadFileStream streams a sampled file from disk
func (s *System) LoadFileStream(source string, quickPlay float64) float64 {
	return s.loadWith(load.StrategyFileStream, source, quickPlay)
}

// LoadNetworkStream streams sampled audio from a URL
func (s *System) LoadNetworkStream(source string, quickPlay float64) float64 {
	return s.loadWith(load.StrategyNetworkStream, source, quickPlay)
}

func (s *System) unload(target *song.Song) bool {
	return s.ok(s.loader.Unload(target))
}

// UnloadByID unloads the song with id
func (s *System) UnloadByID(id float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unload(s.byID(id))
}

// UnloadBySource unloads the first song loaded from name
func (s *System) UnloadBySource(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unload(s.bySource(name))
}

// The quick play slot only counts as loaded while it holds a channel.
func isLoaded(target *song.Song) bool {
	if target == nil {
		return false
	}
	return !target.IsQuickPlay() || target.Loaded()
}

// IsLoadedByID reports whether id names a loaded song
func (s *System) IsLoadedByID(id float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return isLoaded(s.byID(id))
}

// IsLoadedBySource reports whether a song is loaded from name
func (s *System) IsLoadedBySource(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return isLoaded(s.bySource(name))
}

// PlayByID plays the channel id from the start
func (s *System) PlayByID(id, loop float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ok(s.player.Play(handle(id), truthy(loop)))
}

// PlayBySource plays the song loaded from name, loading it into quick play
// when needed
func (s *System) PlayBySource(name string, loop float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ok(s.player.PlayBySource(name, truthy(loop)))
}

// StopByID stops the song with id
func (s *System) StopByID(id float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ok(s.player.Stop(s.byID(id)))
}

// StopBySource stops the song loaded from name
func (s *System) StopBySource(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ok(s.player.Stop(s.bySource(name)))
}

// PauseByID pauses the song with id
func (s *System) PauseByID(id float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ok(s.player.Pause(s.byID(id)))
}

// PauseBySource pauses the song loaded from name
func (s *System) PauseBySource(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ok(s.player.Pause(s.bySource(name)))
}

// UnpauseByID resumes the song with id
func (s *System) UnpauseByID(id float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ok(s.player.Unpause(s.byID(id)))
}

// UnpauseBySource resumes the song loaded from name
func (s *System) UnpauseBySource(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ok(s.player.Unpause(s.bySource(name)))
}

func (s *System) status(target *song.Song) int {
	activity, err := s.player.Status(target)
	if err != nil {
		s.errctx.Record(err)
		return -1
	}
	return int(activity)
}

// IsPlayingByID returns 0 stopped, 1 playing, 2 stalled, 3 paused or -1
func (s *System) IsPlayingByID(id float64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status(s.byID(id))
}

// IsPlayingBySource is IsPlayingByID for a source name
func (s *System) IsPlayingBySource(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status(s.bySource(name))
}

func (s *System) number(v float64, err error) float64 {
	if err != nil {
		s.errctx.Record(err)
		return -1
	}
	return v
}

func (s *System) integer(v int, err error) int {
	if err != nil {
		s.errctx.Record(err)
		return -1
	}
	return v
}

// GetLenByID returns the length in seconds of the song with id, or -1
func (s *System) GetLenByID(id float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.number(s.player.Length(s.byID(id)))
}

// GetLenBySource returns the length in seconds of the song from name, or -1
func (s *System) GetLenBySource(name string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.number(s.player.Length(s.bySource(name)))
}

// GetPosByID returns the position in seconds of the song with id, or -1
func (s *System) GetPosByID(id float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.number(s.player.Position(s.byID(id)))
}

// GetPosBySource returns the position in seconds of the song from name, or -1
func (s *System) GetPosBySource(name string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.number(s.player.Position(s.bySource(name)))
}

// GetOrderByID returns the current order of a module, or -1
func (s *System) GetOrderByID(id float64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.integer(s.player.Order(s.byID(id)))
}

// GetOrderBySource returns the current order of a module, or -1
func (s *System) GetOrderBySource(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.integer(s.player.Order(s.bySource(name)))
}

// GetRowByID returns the current row of a module, or -1
func (s *System) GetRowByID(id float64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.integer(s.player.Row(s.byID(id)))
}

// GetRowBySource returns the current row of a module, or -1
func (s *System) GetRowBySource(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.integer(s.player.Row(s.bySource(name)))
}

func (s *System) getAttr(target *song.Song, name string) string {
	v, err := s.dispatch.Get(target, name)
	s.errctx.Record(err)
	return v
}

// GetAttrByID returns the named attribute of the song with id, or
// "-1000000" on failure
func (s *System) GetAttrByID(id float64, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAttr(s.byID(id), name)
}

// GetAttrBySource returns the named attribute of the song from source
func (s *System) GetAttrBySource(source, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAttr(s.bySource(source), name)
}

// SetAttrByID sets the named attribute of the song with id
func (s *System) SetAttrByID(id float64, name, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ok(s.dispatch.Set(s.byID(id), name, value))
}

// SetAttrBySource sets the named attribute of the song from source
func (s *System) SetAttrBySource(source, name, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ok(s.dispatch.Set(s.bySource(source), name, value))
}

func msec(v float64) time.Duration {
	if v < 0 {
		return 0
	}
	return time.Duration(v * float64(time.Millisecond))
}

// FadeVolByID slides the volume of the song with id to vol over msecs
func (s *System) FadeVolByID(id, vol, msecs float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ok(s.player.Fade(s.byID(id), int(vol), msec(msecs)))
}

// FadeVolBySource slides the volume of the song from name to vol over msecs
func (s *System) FadeVolBySource(name string, vol, msecs float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ok(s.player.Fade(s.bySource(name), int(vol), msec(msecs)))
}

// VolIsFadingByID reports whether the volume of the song with id is sliding
func (s *System) VolIsFadingByID(id float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.IsFading(s.byID(id))
}

// VolIsFadingBySource reports whether the volume of the song from name is
// sliding
func (s *System) VolIsFadingBySource(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.IsFading(s.bySource(name))
}

// AttributeNames lists the attribute catalog
func AttributeNames() []string {
	return lo.Map(attr.Catalog(), func(d attr.Descriptor, _ int) string {
		return d.Name
	})
}
