package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/austinkregel/local-media/bgmd/internal/bgm"
	"github.com/austinkregel/local-media/bgmd/internal/config"
)

func TestResolveSocket(t *testing.T) {
	tests := []struct {
		name     string
		flag     string
		cfg      *config.Config
		expected string
	}{
		{"flag wins", "/tmp/a.sock", &config.Config{SocketPath: "/tmp/b.sock"}, "/tmp/a.sock"},
		{"config", "", &config.Config{SocketPath: "/tmp/b.sock"}, "/tmp/b.sock"},
		{"default", "", &config.Config{}, defaultSocketPath()},
		{"no config", "", nil, defaultSocketPath()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveSocket(tt.flag, tt.cfg); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestFormatResult(t *testing.T) {
	tests := []struct {
		in       any
		expected string
	}{
		{float64(3), "3"},
		{12.5, "12.5"},
		{float64(-1), "-1"},
		{true, "true"},
		{"-1000000", "-1000000"},
		{nil, "nil"},
	}

	for _, tt := range tests {
		if got := formatResult(tt.in); got != tt.expected {
			t.Errorf("formatResult(%v) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}

func TestRenderSongs(t *testing.T) {
	var buf bytes.Buffer
	renderSongs(&buf, []bgm.SongInfo{
		{ID: 0, QuickPlay: true, Type: "unknown"},
		{ID: 7, Source: "music/title.xm", Loaded: true, Type: "module"},
	})

	out := buf.String()
	for _, want := range []string{"ID", "Source", "Quick Play", "(empty)", "music/title.xm", "module"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in table:\n%s", want, out)
		}
	}
	if strings.Contains(out, "QUICK PLAY") {
		t.Errorf("Expected headers as written, got:\n%s", out)
	}
}

func TestRenderFuncs(t *testing.T) {
	var buf bytes.Buffer
	renderFuncs(&buf, bgm.Funcs())

	if !strings.Contains(buf.String(), "number, string, string") {
		t.Errorf("Expected SetAttrById arguments in table:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "Arguments") {
		t.Errorf("Expected headers as written, got:\n%s", buf.String())
	}
}

func TestLoadConfigCreatesDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bgmd")

	mgr, err := loadConfig(dir)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if mgr.GetDir() != dir {
		t.Errorf("Expected dir %q, got %q", dir, mgr.GetDir())
	}
	if mgr.Get().Device.SampleRate != 44100 {
		t.Errorf("Expected default sample rate, got %d", mgr.Get().Device.SampleRate)
	}
}

func TestNewLoggerErrorLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bgm_error.log")

	logger, closer, err := newLogger(path, false)
	if err != nil {
		t.Fatalf("newLogger failed: %v", err)
	}
	logger.Info().Msg("not copied")
	logger.Error().Str("context", "Failed to load song").Msg("Unknown file extension.")
	closer.Close()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}
	data := string(raw)
	if strings.Contains(data, "not copied") {
		t.Error("Expected info entries to stay out of the error log")
	}
	if !strings.Contains(data, "Unknown file extension.") {
		t.Errorf("Expected the error entry in the log, got %q", data)
	}
}
