package bgm

import (
	"testing"
	"time"

	"github.com/austinkregel/local-media/bgmd/internal/engine"
	"github.com/austinkregel/local-media/bgmd/internal/media"
	"github.com/rs/zerolog"
)

func newTestSystem(t *testing.T) (*System, *engine.Memory) {
	t.Helper()
	eng := engine.NewMemory()
	sys := New(eng, zerolog.Nop())
	if !sys.Init(InitParams{Device: 0, SampleRate: 0}) {
		t.Fatalf("Init failed: %s", sys.Error())
	}
	return sys, eng
}

func TestInit(t *testing.T) {
	tests := []struct {
		name     string
		params   InitParams
		ok       bool
		expected string
	}{
		{"default device", InitParams{Device: 0}, true, ""},
		{"no sound", InitParams{Device: -1}, true, ""},
		{"invalid device", InitParams{Device: 5}, false, "Failed to initialize BGM: Invalid device number."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := New(engine.NewMemory(), zerolog.Nop())
			if got := sys.Init(tt.params); got != tt.ok {
				t.Fatalf("Init = %v, expected %v", got, tt.ok)
			}
			if sys.Error() != tt.expected {
				t.Errorf("Expected error %q, got %q", tt.expected, sys.Error())
			}
		})
	}
}

func TestInitTwice(t *testing.T) {
	sys, _ := newTestSystem(t)

	if sys.Init(InitParams{}) {
		t.Fatal("Expected second Init to fail")
	}
	if sys.Error() != "Failed to initialize BGM: Device already initialized." {
		t.Errorf("Unexpected error %q", sys.Error())
	}
}

func TestInitSettings(t *testing.T) {
	sys := New(engine.NewMemory(), zerolog.Nop())
	sys.SetStreamByDefault(false)
	sys.SetReportErrors(false)

	sys.Init(InitParams{BitDepth: 2})

	if !sys.StreamByDefault() || !sys.ReportErrors() {
		t.Error("Expected Init to restore stream and report defaults")
	}
	if !sys.Use32Bit() {
		t.Error("Expected bit depth 2 to select 32-bit loading")
	}
	if sys.GetAttrByID(0, "cvolume") != "100" {
		t.Error("Expected quick play backup volume 100")
	}
	if sys.GetAttrByID(0, "cfreq") != "0" {
		t.Error("Expected quick play backup frequency 0")
	}
}

func TestLoadAndUnload(t *testing.T) {
	sys, eng := newTestSystem(t)

	id := sys.Load("a.wav", 0, 0)
	if id == 0 {
		t.Fatalf("Load failed: %s", sys.Error())
	}
	if !sys.IsLoadedByID(id) || !sys.IsLoadedBySource("a.wav") {
		t.Error("Expected song to be loaded")
	}
	if sys.GetAttrByID(id, "type") != "0" {
		t.Errorf("Expected sample type, got %s", sys.GetAttrByID(id, "type"))
	}

	if !sys.UnloadBySource("a.wav") {
		t.Fatalf("Unload failed: %s", sys.Error())
	}
	if sys.IsLoadedByID(id) {
		t.Error("Expected song to be gone")
	}
	if len(eng.Live()) != 0 {
		t.Errorf("Expected no live channels, got %v", eng.Live())
	}

	if sys.UnloadByID(id) {
		t.Error("Expected unloading a missing id to fail")
	}
	if sys.Error() != "Failed to unload song: Invalid ID or filename." {
		t.Errorf("Unexpected error %q", sys.Error())
	}
}

func TestLoadFailures(t *testing.T) {
	sys, _ := newTestSystem(t)

	tests := []struct {
		name     string
		call     func() float64
		expected string
	}{
		{"network module", func() float64 { return sys.Load("HTTP://host/song.mod", 0, 0) },
			"Failed to load song: Downloading tracked audio from the internet is not supported."},
		{"unknown extension", func() float64 { return sys.Load("song.xyz", 0, 0) },
			"Failed to load song: Unknown file extension."},
		{"bad url", func() float64 { return sys.LoadNetworkStream("nohost.mp3", 0) },
			"Failed to create internet stream: Invalid URL."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if id := tt.call(); id != 0 {
				t.Fatalf("Expected failure, got id %v", id)
			}
			if sys.Error() != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, sys.Error())
			}
		})
	}

	if n := len(sys.ListSongs()); n != 1 {
		t.Errorf("Expected only quick play after failures, got %d songs", n)
	}
}

func TestNetworkStream(t *testing.T) {
	sys, _ := newTestSystem(t)

	id := sys.Load("http://host/song.mp3", 0, 0)
	if id == 0 {
		t.Fatalf("Load failed: %s", sys.Error())
	}
	if sys.GetAttrByID(id, "type") != "1" {
		t.Errorf("Expected stream type, got %s", sys.GetAttrByID(id, "type"))
	}
}

func TestQuickPlayRoundTrip(t *testing.T) {
	sys, _ := newTestSystem(t)

	if sys.IsLoadedByID(0) {
		t.Error("Expected empty quick play to report unloaded")
	}
	if !sys.UnloadByID(0) {
		t.Error("Expected unloading empty quick play to succeed")
	}

	if !sys.SetAttrByID(0, "cvolume", "30") || !sys.SetAttrByID(0, "cpanning", "-40") {
		t.Fatalf("Set failed: %s", sys.Error())
	}
	if sys.SetAttrByID(0, "loop", "1") {
		t.Error("Expected loop on empty quick play to fail")
	}
	if sys.Error() != "Failed to access attribute: No Quick play song loaded." {
		t.Errorf("Unexpected error %q", sys.Error())
	}

	if !sys.PlayBySource("theme.ogg", 1) {
		t.Fatalf("PlayBySource failed: %s", sys.Error())
	}
	if got := sys.GetAttrBySource("theme.ogg", "cvolume"); got != "30" {
		t.Errorf("Expected restored volume 30, got %s", got)
	}
	if got := sys.GetAttrByID(0, "cpanning"); got != "-40" {
		t.Errorf("Expected restored pan -40, got %s", got)
	}
	if sys.IsPlayingBySource("theme.ogg") != 1 {
		t.Error("Expected quick play song to be playing")
	}

	sys.SetAttrByID(0, "cvolume", "55")
	if !sys.StopByID(0) {
		t.Fatalf("Stop failed: %s", sys.Error())
	}
	if sys.IsLoadedByID(0) {
		t.Error("Expected stop to unload quick play")
	}
	if got := sys.GetAttrByID(0, "cvolume"); got != "55" {
		t.Errorf("Expected saved volume 55, got %s", got)
	}
}

func TestQuickPlaySequentialLoads(t *testing.T) {
	sys, eng := newTestSystem(t)

	first := sys.Load("one.ogg", 1, 1)
	second := sys.Load("two.ogg", 1, 1)
	if first == 0 || second == 0 {
		t.Fatalf("Load failed: %s", sys.Error())
	}
	live := eng.Live()
	if len(live) != 1 || float64(live[0]) != second {
		t.Errorf("Expected only %v live, got %v", second, live)
	}
}

func TestAttributes(t *testing.T) {
	sys, eng := newTestSystem(t)
	id := sys.LoadModule("level.it", 0)
	if id == 0 {
		t.Fatalf("LoadModule failed: %s", sys.Error())
	}
	eng.SetTag(engine.Handle(id), engine.TagTitle, 0, "Level One")

	if sys.GetAttrTypeLast() != -1 {
		t.Errorf("Expected -1 before any read, got %d", sys.GetAttrTypeLast())
	}

	if got := sys.GetAttrByID(id, "MTitle"); got != "Level One" {
		t.Errorf("Expected title, got %s", got)
	}
	if sys.GetAttrTypeLast() != 0 {
		t.Errorf("Expected text type, got %d", sys.GetAttrTypeLast())
	}

	if !sys.SetAttrBySource("level.it", "tvolume2", "25") {
		t.Fatalf("Set failed: %s", sys.Error())
	}
	if got := sys.GetAttrByID(id, "tvolume2"); got != "25" {
		t.Errorf("Expected 25, got %s", got)
	}
	if sys.GetAttrTypeLast() != 1 {
		t.Errorf("Expected numeric type, got %d", sys.GetAttrTypeLast())
	}

	if got := sys.GetAttrByID(id, "nope"); got != "-1000000" {
		t.Errorf("Expected failure sentinel, got %s", got)
	}
	if sys.SetAttrByID(id, "cvolume", "101") {
		t.Error("Expected out of range set to fail")
	}
	if sys.Error() != "Failed to set channel volume: Value (101) not between 0 and 100." {
		t.Errorf("Unexpected error %q", sys.Error())
	}
}

func TestPlaybackCalls(t *testing.T) {
	sys, eng := newTestSystem(t)
	eng.SetDuration("a.ogg", 8*time.Second)
	id := sys.LoadFileStream("a.ogg", 0)

	if !sys.PlayByID(id, 0) {
		t.Fatalf("Play failed: %s", sys.Error())
	}
	eng.Advance(engine.Handle(id), 2*time.Second)

	if sys.GetLenByID(id) != 8 || sys.GetLenBySource("a.ogg") != 8 {
		t.Errorf("Expected length 8, got %v", sys.GetLenByID(id))
	}
	if sys.GetPosByID(id) != 2 || sys.GetPosBySource("a.ogg") != 2 {
		t.Errorf("Expected position 2, got %v", sys.GetPosByID(id))
	}
	if !sys.PauseByID(id) || sys.IsPlayingByID(id) != 3 {
		t.Error("Expected paused")
	}
	if !sys.UnpauseBySource("a.ogg") || sys.IsPlayingByID(id) != 1 {
		t.Error("Expected playing")
	}
	if !sys.StopBySource("a.ogg") || sys.IsPlayingByID(id) != 0 {
		t.Error("Expected stopped")
	}
	if sys.GetOrderByID(id) != -1 || sys.GetRowBySource("a.ogg") != -1 {
		t.Error("Expected order and row to fail for streams")
	}

	if sys.IsPlayingByID(12345) != -1 || sys.IsPlayingBySource("missing.ogg") != -1 {
		t.Error("Expected -1 for unresolved songs")
	}
	if sys.GetLenByID(-1) != -1 {
		t.Error("Expected -1 length for a negative id")
	}
	if sys.PlayByID(12345, 0) {
		t.Error("Expected playing an unknown id to fail")
	}
	if sys.Error() != "Failed to play song: Invalid song ID." {
		t.Errorf("Unexpected error %q", sys.Error())
	}
}

func TestFade(t *testing.T) {
	sys, _ := newTestSystem(t)
	id := sys.Load("a.ogg", 1, 0)

	if !sys.FadeVolByID(id, 10, 60000) {
		t.Fatalf("Fade failed: %s", sys.Error())
	}
	if !sys.VolIsFadingBySource("a.ogg") {
		t.Error("Expected fading")
	}
	if sys.FadeVolBySource("", 10, 100) {
		t.Error("Expected fade on empty quick play to fail")
	}
	if sys.VolIsFadingByID(0) {
		t.Error("Expected empty quick play not to fade")
	}
}

func TestErrorPersistsAcrossSuccess(t *testing.T) {
	sys, _ := newTestSystem(t)

	if sys.Error() != "" {
		t.Errorf("Expected no error after Init, got %q", sys.Error())
	}
	sys.StopBySource("missing.ogg")
	msg := sys.Error()
	if msg != "Failed to stop song: Invalid song ID or filename." {
		t.Fatalf("Unexpected error %q", msg)
	}
	sys.Load("a.ogg", 1, 0)
	if sys.Error() != msg {
		t.Errorf("Expected success to keep %q, got %q", msg, sys.Error())
	}
}

func TestClose(t *testing.T) {
	sys, eng := newTestSystem(t)
	sys.Load("a.it", 0, 0)
	sys.Load("b.ogg", 1, 1)

	if !sys.Close() {
		t.Fatal("Close failed")
	}
	if eng.Initialized() {
		t.Error("Expected engine to be freed")
	}
	if n := len(sys.ListSongs()); n != 1 {
		t.Errorf("Expected only quick play after close, got %d", n)
	}
}

func TestListSongs(t *testing.T) {
	sys, _ := newTestSystem(t)
	mod := sys.Load("a.it", 0, 0)
	sys.Load("b.ogg", 1, 1)

	songs := sys.ListSongs()
	if len(songs) != 2 {
		t.Fatalf("Expected 2 songs, got %d", len(songs))
	}
	if !songs[0].QuickPlay || songs[0].Source != "b.ogg" || songs[0].Type != "stream" {
		t.Errorf("Unexpected quick play entry %+v", songs[0])
	}
	if songs[1].ID != uint32(mod) || songs[1].Type != "module" || !songs[1].Loaded {
		t.Errorf("Unexpected module entry %+v", songs[1])
	}
}

func TestMediaCommands(t *testing.T) {
	sys, _ := newTestSystem(t)
	sys.SetSession(media.NewNoOpSession())
	id := sys.Load("a.ogg", 1, 0)
	sys.PlayByID(id, 0)

	tests := []struct {
		cmd      media.Command
		data     interface{}
		expected int
	}{
		{media.CmdPause, nil, 3},
		{media.CmdPlay, nil, 1},
		{media.CmdPlayPause, nil, 3},
		{media.CmdPlayPause, nil, 1},
		{media.CmdStop, nil, 0},
	}

	for _, tt := range tests {
		if err := sys.OnCommand(tt.cmd, tt.data); err != nil {
			t.Fatalf("OnCommand(%s) failed: %v", tt.cmd, err)
		}
		if got := sys.IsPlayingByID(id); got != tt.expected {
			t.Errorf("After %s expected status %d, got %d", tt.cmd, tt.expected, got)
		}
	}

	if err := sys.OnCommand(media.CmdSetLoopStatus, media.LoopTrack); err != nil {
		t.Fatalf("OnCommand failed: %v", err)
	}
	if sys.GetAttrByID(id, "loop") != "1" {
		t.Error("Expected loop status to set the loop flag")
	}
}

func TestHandleConversion(t *testing.T) {
	tests := []struct {
		in       float64
		expected engine.Handle
	}{
		{0, 0},
		{7, 7},
		{7.9, 7},
		{-1, engine.Handle(0xffffffff)},
	}

	for _, tt := range tests {
		if got := handle(tt.in); got != tt.expected {
			t.Errorf("handle(%v) = %d, expected %d", tt.in, got, tt.expected)
		}
	}
}
