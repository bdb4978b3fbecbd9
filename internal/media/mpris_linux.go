//go:build linux

package media

import (
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	mprisInterface       = "org.mpris.MediaPlayer2"
	mprisPlayerInterface = "org.mpris.MediaPlayer2.Player"
	mprisBusName         = "org.mpris.MediaPlayer2.bgmd"
	mprisObjectPath      = "/org/mpris/MediaPlayer2"
	identity             = "bgmd"
)

var supportedMimeTypes = []string{
	"audio/mpeg",
	"audio/ogg",
	"audio/wav",
	"audio/x-aiff",
	"audio/x-mod",
	"audio/x-xm",
	"audio/x-s3m",
	"audio/x-it",
}

// MPRISSession publishes the last played song over MPRIS
type MPRISSession struct {
	mu         sync.Mutex
	conn       *dbus.Conn
	handler    CommandHandler
	metadata   Metadata
	state      PlaybackState
	position   time.Duration
	loopStatus LoopStatus
}

// NewSession creates a new MPRIS media session
func NewSession() (Session, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	reply, err := conn.RequestName(mprisBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to request bus name: %w", err)
	}

	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("bus name already taken")
	}

	session := &MPRISSession{
		conn:       conn,
		state:      StateStopped,
		loopStatus: LoopNone,
	}

	if err := session.exportInterfaces(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to export interfaces: %w", err)
	}

	return session, nil
}

func (s *MPRISSession) exportInterfaces() error {
	for _, iface := range []string{mprisInterface, mprisPlayerInterface, "org.freedesktop.DBus.Properties"} {
		if err := s.conn.Export(s, dbus.ObjectPath(mprisObjectPath), iface); err != nil {
			return err
		}
	}
	return nil
}

// UpdateMetadata updates the song metadata
func (s *MPRISSession) UpdateMetadata(metadata Metadata) error {
	s.mu.Lock()
	s.metadata = metadata
	props := map[string]dbus.Variant{
		"Metadata": dbus.MakeVariant(s.metadataMap()),
	}
	s.mu.Unlock()

	return s.emitPropertiesChanged(mprisPlayerInterface, props)
}

// UpdatePlaybackState updates the playback state
func (s *MPRISSession) UpdatePlaybackState(state PlaybackState, position time.Duration) error {
	s.mu.Lock()
	oldState := s.state
	s.state = state
	s.position = position
	props := map[string]dbus.Variant{
		"PlaybackStatus": dbus.MakeVariant(s.playbackStatus()),
	}
	s.mu.Unlock()

	// Clients extrapolate position from rate, so only a fresh start
	// needs an explicit Seeked signal.
	if oldState != state && state == StatePlaying {
		s.emitSeeked(position)
	}

	return s.emitPropertiesChanged(mprisPlayerInterface, props)
}

func (s *MPRISSession) emitSeeked(position time.Duration) error {
	return s.conn.Emit(
		dbus.ObjectPath(mprisObjectPath),
		mprisPlayerInterface+".Seeked",
		position.Microseconds(),
	)
}

// UpdateLoopStatus updates the loop mode
func (s *MPRISSession) UpdateLoopStatus(status LoopStatus) error {
	s.mu.Lock()
	s.loopStatus = status
	s.mu.Unlock()

	props := map[string]dbus.Variant{
		"LoopStatus": dbus.MakeVariant(string(status)),
	}
	return s.emitPropertiesChanged(mprisPlayerInterface, props)
}

// SetCommandHandler sets the handler for media commands
func (s *MPRISSession) SetCommandHandler(handler CommandHandler) {
	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()
}

// Close releases resources
func (s *MPRISSession) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *MPRISSession) dispatch(cmd Command, data interface{}) *dbus.Error {
	s.mu.Lock()
	handler := s.handler
	s.mu.Unlock()

	if handler == nil {
		return nil
	}
	if err := handler.OnCommand(cmd, data); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// org.mpris.MediaPlayer2 methods

func (s *MPRISSession) Raise() *dbus.Error {
	return nil
}

func (s *MPRISSession) Quit() *dbus.Error {
	return nil
}

// org.mpris.MediaPlayer2.Player methods

func (s *MPRISSession) Play() *dbus.Error {
	return s.dispatch(CmdPlay, nil)
}

func (s *MPRISSession) Pause() *dbus.Error {
	return s.dispatch(CmdPause, nil)
}

func (s *MPRISSession) PlayPause() *dbus.Error {
	return s.dispatch(CmdPlayPause, nil)
}

func (s *MPRISSession) Stop() *dbus.Error {
	return s.dispatch(CmdStop, nil)
}

// Next, Previous, Seek and SetPosition are required by the interface but
// songs have no track list and channels cannot be repositioned.
func (s *MPRISSession) Next() *dbus.Error {
	return nil
}

func (s *MPRISSession) Previous() *dbus.Error {
	return nil
}

func (s *MPRISSession) Seek(offset int64) *dbus.Error {
	return nil
}

func (s *MPRISSession) SetPosition(trackId dbus.ObjectPath, position int64) *dbus.Error {
	return nil
}

// org.freedesktop.DBus.Properties methods

func (s *MPRISSession) Get(iface, prop string) (dbus.Variant, *dbus.Error) {
	var props map[string]dbus.Variant
	switch iface {
	case mprisInterface:
		props = mediaPlayer2Properties()
	case mprisPlayerInterface:
		props = s.playerProperties()
	default:
		return dbus.Variant{}, dbus.MakeFailedError(fmt.Errorf("unknown interface: %s", iface))
	}

	v, ok := props[prop]
	if !ok {
		return dbus.Variant{}, dbus.MakeFailedError(fmt.Errorf("unknown property: %s", prop))
	}
	return v, nil
}

func (s *MPRISSession) GetAll(iface string) (map[string]dbus.Variant, *dbus.Error) {
	switch iface {
	case mprisInterface:
		return mediaPlayer2Properties(), nil
	case mprisPlayerInterface:
		return s.playerProperties(), nil
	}
	return nil, dbus.MakeFailedError(fmt.Errorf("unknown interface: %s", iface))
}

func (s *MPRISSession) Set(iface, prop string, value dbus.Variant) *dbus.Error {
	if iface != mprisPlayerInterface || prop != "LoopStatus" {
		return nil
	}

	status, ok := value.Value().(string)
	if !ok {
		return dbus.MakeFailedError(fmt.Errorf("invalid type for LoopStatus"))
	}
	s.mu.Lock()
	s.loopStatus = LoopStatus(status)
	s.mu.Unlock()
	return s.dispatch(CmdSetLoopStatus, LoopStatus(status))
}

func mediaPlayer2Properties() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"CanQuit":             dbus.MakeVariant(false),
		"CanRaise":            dbus.MakeVariant(false),
		"HasTrackList":        dbus.MakeVariant(false),
		"Identity":            dbus.MakeVariant(identity),
		"DesktopEntry":        dbus.MakeVariant(identity),
		"SupportedUriSchemes": dbus.MakeVariant([]string{"file", "http", "https", "ftp"}),
		"SupportedMimeTypes":  dbus.MakeVariant(supportedMimeTypes),
	}
}

func (s *MPRISSession) playerProperties() map[string]dbus.Variant {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]dbus.Variant{
		"PlaybackStatus": dbus.MakeVariant(s.playbackStatus()),
		"Metadata":       dbus.MakeVariant(s.metadataMap()),
		"Position":       dbus.MakeVariant(s.position.Microseconds()),
		"Rate":           dbus.MakeVariant(1.0),
		"MinimumRate":    dbus.MakeVariant(1.0),
		"MaximumRate":    dbus.MakeVariant(1.0),
		"CanGoNext":      dbus.MakeVariant(false),
		"CanGoPrevious":  dbus.MakeVariant(false),
		"CanPlay":        dbus.MakeVariant(s.metadata.ID != 0),
		"CanPause":       dbus.MakeVariant(s.metadata.ID != 0),
		"CanSeek":        dbus.MakeVariant(false),
		"CanControl":     dbus.MakeVariant(true),
		"Volume":         dbus.MakeVariant(1.0),
		"LoopStatus":     dbus.MakeVariant(string(s.loopStatus)),
	}
}

// playbackStatus requires s.mu
func (s *MPRISSession) playbackStatus() string {
	switch s.state {
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	default:
		return "Stopped"
	}
}

// metadataMap requires s.mu
func (s *MPRISSession) metadataMap() map[string]dbus.Variant {
	m := make(map[string]dbus.Variant)

	m["mpris:trackid"] = dbus.MakeVariant(dbus.ObjectPath(fmt.Sprintf("/org/bgmd/song/%d", s.metadata.ID)))

	if title := s.metadata.Title(); title != "" {
		m["xesam:title"] = dbus.MakeVariant(title)
	}
	if s.metadata.Source != "" {
		m["xesam:url"] = dbus.MakeVariant(s.metadata.Source)
	}
	if s.metadata.Kind != "" {
		m["xesam:genre"] = dbus.MakeVariant([]string{s.metadata.Kind})
	}
	if s.metadata.Duration > 0 {
		m["mpris:length"] = dbus.MakeVariant(s.metadata.Duration.Microseconds())
	}

	return m
}

func (s *MPRISSession) emitPropertiesChanged(iface string, props map[string]dbus.Variant) error {
	return s.conn.Emit(
		dbus.ObjectPath(mprisObjectPath),
		"org.freedesktop.DBus.Properties.PropertiesChanged",
		iface,
		props,
		[]string{},
	)
}
