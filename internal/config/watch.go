package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// settleDelay lets an editor finish writing before the file is re-read
const settleDelay = 50 * time.Millisecond

// Watch reloads the config file whenever it changes and calls onChange with
// the new behavior settings. Device settings are kept from the last Load
// since they only apply at startup. Watch blocks until ctx is done.
func (m *Manager) Watch(ctx context.Context, logger zerolog.Logger, onChange func(BehaviorConfig)) error {
	logger = logger.With().Str("component", "config").Logger()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	// Watch the directory so that editors replacing the file are seen.
	if err := fsw.Add(m.configDir); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	target := filepath.Clean(m.configPath)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			time.Sleep(settleDelay)
			behavior, changed, err := m.reloadBehavior()
			if err != nil {
				logger.Warn().Err(err).Msg("Ignoring invalid config change")
				continue
			}
			if changed {
				logger.Info().
					Bool("stream_by_default", behavior.StreamByDefault).
					Bool("report_errors", behavior.ReportErrors).
					Msg("Config reloaded")
				onChange(behavior)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("Config watcher error")
		}
	}
}

// reloadBehavior re-reads the file and applies its behavior settings
func (m *Manager) reloadBehavior() (BehaviorConfig, bool, error) {
	config, err := m.read()
	if err != nil {
		return BehaviorConfig{}, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	changed := m.config.Behavior != config.Behavior
	m.config.Behavior = config.Behavior
	return config.Behavior, changed, nil
}
