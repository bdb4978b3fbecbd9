// Package main is the entry point for bgmd.
// bgmd hosts the background music song registry as a daemon reachable over
// a unix socket, and doubles as its command line client and script runner.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/austinkregel/local-media/bgmd/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = ""

func main() {
	boa.CmdT[boa.NoParams]{
		Use:     "bgmd",
		Short:   "Background music song registry daemon",
		Version: appVersion(),
		SubCmds: []*cobra.Command{
			serveCmd(),
			callCmd(),
			songsCmd(),
			funcsCmd(),
			runCmd(),
		},
	}.Run()
}

func appVersion() string {
	if Version != "" {
		return Version
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi.Main.Version == "" {
		return "dev"
	}
	return bi.Main.Version
}

func defaultConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "bgmd"), nil
}

func defaultSocketPath() string {
	return fmt.Sprintf("/tmp/bgmd-%d.sock", os.Getuid())
}

// loadConfig opens the config manager for dir, or the default directory
func loadConfig(dir string) (*config.Manager, error) {
	if dir == "" {
		var err error
		if dir, err = defaultConfigDir(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	mgr := config.NewManager(dir)
	if err := mgr.Load(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return mgr, nil
}

// resolveSocket picks the flag, then the config file, then the default
func resolveSocket(flag string, cfg *config.Config) string {
	if flag != "" {
		return flag
	}
	if cfg != nil && cfg.SocketPath != "" {
		return cfg.SocketPath
	}
	return defaultSocketPath()
}

// newLogger writes to stderr for humans and, when errorLog is set, copies
// error level entries there as JSON lines.
func newLogger(errorLog string, verbose bool) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}

	if errorLog == "" {
		return zerolog.New(console).Level(level).With().Timestamp().Logger(), io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(errorLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("failed to open error log: %w", err)
	}
	writer := zerolog.MultiLevelWriter(
		console,
		&zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: f},
			Level:  zerolog.ErrorLevel,
		},
	)
	return zerolog.New(writer).Level(level).With().Timestamp().Logger(), f, nil
}
