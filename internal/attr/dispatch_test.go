package attr

import (
	"errors"
	"testing"

	"github.com/austinkregel/local-media/bgmd/internal/engine"
	"github.com/austinkregel/local-media/bgmd/internal/errs"
	"github.com/austinkregel/local-media/bgmd/internal/song"
	"github.com/rs/zerolog"
)

type fakeSettings struct {
	stream bool
}

func (f *fakeSettings) StreamByDefault() bool     { return f.stream }
func (f *fakeSettings) SetStreamByDefault(b bool) { f.stream = b }

type fixture struct {
	eng      *engine.Memory
	reg      *song.Registry
	settings *fakeSettings
	d        *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	eng := engine.NewMemory()
	if err := eng.Init(engine.InitOptions{Device: -1, SampleRate: 44100}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	settings := &fakeSettings{stream: true}
	return &fixture{
		eng:      eng,
		reg:      song.NewRegistry(zerolog.Nop(), 0),
		settings: settings,
		d:        NewDispatcher(eng, settings),
	}
}

func (f *fixture) stream(t *testing.T, path string) *song.Song {
	t.Helper()
	h, err := f.eng.StreamFile(path)
	if err != nil {
		t.Fatalf("StreamFile failed: %v", err)
	}
	s, err := f.reg.Create(h, path, 0)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return s
}

func (f *fixture) module(t *testing.T, path string) *song.Song {
	t.Helper()
	h, err := f.eng.LoadModule(path)
	if err != nil {
		t.Fatalf("LoadModule failed: %v", err)
	}
	s, err := f.reg.Create(h, path, 0)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return s
}

func TestChannelVolumeRange(t *testing.T) {
	f := newFixture(t)
	s := f.stream(t, "a.ogg")

	tests := []struct {
		value   string
		wantErr bool
	}{
		{"-1", true},
		{"101", true},
		{"50", false},
		{"0", false},
		{"100", false},
		{"abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			before, _ := f.d.Get(s, "cvolume")
			err := f.d.Set(s, "cvolume", tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set(%s) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			after, _ := f.d.Get(s, "cvolume")
			if tt.wantErr && after != before {
				t.Errorf("Expected failed set to leave %s, got %s", before, after)
			}
			if !tt.wantErr && after != tt.value {
				t.Errorf("Expected %s, got %s", tt.value, after)
			}
		})
	}
}

func TestOutOfRangeMessage(t *testing.T) {
	f := newFixture(t)
	s := f.stream(t, "a.ogg")

	err := f.d.Set(s, "cvolume", "101")
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("Expected ErrOutOfRange, got %v", err)
	}
	expected := "Failed to set channel volume: Value (101) not between 0 and 100."
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
}

func TestDecimalValuesTruncate(t *testing.T) {
	f := newFixture(t)
	s := f.stream(t, "a.ogg")

	if err := f.d.Set(s, "cpanning", "-20.9"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v, _ := f.d.Get(s, "cpanning"); v != "-20" {
		t.Errorf("Expected -20, got %s", v)
	}
}

func TestChannelFrequency(t *testing.T) {
	f := newFixture(t)
	s := f.stream(t, "a.ogg")

	if err := f.d.Set(s, "cfreq", "50"); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Expected 50 Hz to be rejected, got %v", err)
	}
	if err := f.d.Set(s, "cfreq", "22050"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v, _ := f.d.Get(s, "cfreq"); v != "22050" {
		t.Errorf("Expected 22050, got %s", v)
	}
	if err := f.d.Set(s, "cfreq", "0"); err != nil {
		t.Fatalf("Expected 0 to reset frequency, got %v", err)
	}
	if v, _ := f.d.Get(s, "cfreq"); v != "44100" {
		t.Errorf("Expected reset to 44100, got %s", v)
	}
}

func TestQuickPlayBackup(t *testing.T) {
	f := newFixture(t)
	qp := f.reg.QuickPlay()

	if v, err := f.d.Get(qp, "cvolume"); err != nil || v != "100" {
		t.Fatalf("Expected backup volume 100, got %s (%v)", v, err)
	}
	if err := f.d.Set(qp, "cpanning", "-30"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if qp.Backup.Pan != -30 {
		t.Errorf("Expected backup pan -30, got %d", qp.Backup.Pan)
	}

	_, err := f.d.Get(qp, "loop")
	if !errors.Is(err, ErrQuickPlayNotLoaded) {
		t.Errorf("Expected ErrQuickPlayNotLoaded, got %v", err)
	}
	if kind, _ := errs.KindOf(err); kind != errs.State {
		t.Errorf("Expected state error, got %s", kind)
	}

	if v, err := f.d.Get(qp, "volume"); err != nil || v != "100" {
		t.Errorf("Expected global volume through quick play, got %s (%v)", v, err)
	}
}

func TestReadOnly(t *testing.T) {
	f := newFixture(t)
	s := f.stream(t, "a.ogg")

	for _, name := range []string{"filename", "id", "type", "mtitle", "minstrument2"} {
		err := f.d.Set(s, name, "1")
		if !errors.Is(err, ErrReadOnly) {
			t.Errorf("Set(%s): expected ErrReadOnly, got %v", name, err)
		}
	}
}

func TestUnknownAndInvalidTarget(t *testing.T) {
	f := newFixture(t)
	s := f.stream(t, "a.ogg")

	v, err := f.d.Get(s, "bogus")
	if v != GetFailed || !errors.Is(err, ErrUnknownAttribute) {
		t.Errorf("Expected unknown attribute, got %s (%v)", v, err)
	}
	if err.Error() != `Failed to access attribute: "bogus" is not a valid attribute name.` {
		t.Errorf("Unexpected message %q", err.Error())
	}

	if _, err := f.d.Get(nil, "cvolume"); !errors.Is(err, song.ErrInvalidTarget) {
		t.Errorf("Expected ErrInvalidTarget, got %v", err)
	}
}

func TestModuleAttributes(t *testing.T) {
	f := newFixture(t)
	stream := f.stream(t, "a.ogg")
	mod := f.module(t, "b.it")

	if _, err := f.d.Get(stream, "bpm"); !errors.Is(err, ErrNotModule) {
		t.Errorf("Expected ErrNotModule, got %v", err)
	}
	if err := f.d.Set(stream, "speed", "3"); !errors.Is(err, ErrNotModule) {
		t.Errorf("Expected ErrNotModule, got %v", err)
	}

	if v, _ := f.d.Get(mod, "bpm"); v != "125" {
		t.Errorf("Expected default bpm 125, got %s", v)
	}
	if err := f.d.Set(mod, "bpm", "0"); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Expected bpm 0 to be rejected, got %v", err)
	}
	if err := f.d.Set(mod, "tvolume3", "40"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v, _ := f.d.Get(mod, "tvolume3"); v != "40" {
		t.Errorf("Expected track 3 volume 40, got %s", v)
	}
	if v, _ := f.d.Get(mod, "tvolume4"); v != "100" {
		t.Errorf("Expected untouched track volume 100, got %s", v)
	}
}

func TestTags(t *testing.T) {
	f := newFixture(t)
	mod := f.module(t, "b.it")
	f.eng.SetTag(mod.ID, engine.TagTitle, 0, "Title")

	v, err := f.d.Get(mod, "mtitle")
	if err != nil || v != "Title" {
		t.Fatalf("Expected Title, got %s (%v)", v, err)
	}
	if f.d.LastType() != Text {
		t.Errorf("Expected text type, got %d", f.d.LastType())
	}

	_, err = f.d.Get(mod, "msample1")
	if !errors.Is(err, ErrNotAvailable) {
		t.Errorf("Expected ErrNotAvailable, got %v", err)
	}
	if f.d.LastType() != Numeric {
		t.Errorf("Expected failed get to record numeric type, got %d", f.d.LastType())
	}
}

func TestGlobalAttributes(t *testing.T) {
	f := newFixture(t)
	s := f.stream(t, "a.ogg")

	if err := f.d.Set(s, "stream", "0"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if f.settings.stream {
		t.Error("Expected stream setting to be cleared")
	}
	if err := f.d.Set(s, "stream", "abc"); !errors.Is(err, ErrBadValue) {
		t.Errorf("Expected ErrBadValue, got %v", err)
	}
	if f.settings.stream {
		t.Error("Expected a rejected stream value to leave the setting unchanged")
	}
	if err := f.d.Set(s, "stream", "1"); err != nil || !f.settings.stream {
		t.Errorf("Expected stream setting to be set, got %v", err)
	}
	if err := f.d.Set(s, "volume", "40"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if f.eng.GlobalVolume() != 40 {
		t.Errorf("Expected global volume 40, got %d", f.eng.GlobalVolume())
	}
	if err := f.d.Set(s, "volume", "140"); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange, got %v", err)
	}
}

func TestTypeAndIdentity(t *testing.T) {
	f := newFixture(t)
	s := f.stream(t, "a.ogg")
	mod := f.module(t, "b.it")

	tests := []struct {
		s        *song.Song
		name     string
		expected string
		vt       ValueType
	}{
		{s, "type", "1", Numeric},
		{mod, "type", "2", Numeric},
		{s, "filename", "a.ogg", Text},
		{s, "loop", "0", Numeric},
	}

	for _, tt := range tests {
		v, err := f.d.Get(tt.s, tt.name)
		if err != nil || v != tt.expected {
			t.Errorf("Get(%s) = %s (%v), expected %s", tt.name, v, err, tt.expected)
		}
		if f.d.LastType() != tt.vt {
			t.Errorf("Get(%s) type = %d, expected %d", tt.name, f.d.LastType(), tt.vt)
		}
	}

	if err := f.d.Set(s, "loop", "1"); err != nil {
		t.Fatalf("Set loop failed: %v", err)
	}
	if v, _ := f.d.Get(s, "loop"); v != "1" {
		t.Errorf("Expected loop 1, got %s", v)
	}
}
