// Package config handles daemon configuration file management.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Config represents the daemon configuration
type Config struct {
	// Device settings, read once at startup
	Device DeviceConfig `json:"device"`

	// Behavior settings, reloaded while the daemon runs
	Behavior BehaviorConfig `json:"behavior"`

	// ErrorLog is the file failures are reported to. Relative paths are
	// resolved against the config directory; empty logs to stderr.
	ErrorLog string `json:"errorLog"`

	// SocketPath overrides the IPC socket location
	SocketPath string `json:"socketPath,omitempty"`
}

// DeviceConfig mirrors the parameters of Init
type DeviceConfig struct {
	// Index is -1 for no sound, 0 for the default device (default: 0)
	Index int `json:"index"`

	// SampleRate for audio output, 0 selects 44100
	SampleRate int `json:"sampleRate"`

	// BitDepth 0 for 16-bit, 1 for 8-bit output, 2 for 32-bit float loading
	BitDepth int `json:"bitDepth"`

	// Mono forces single channel output
	Mono bool `json:"mono"`
}

// BehaviorConfig contains behavior-related settings
type BehaviorConfig struct {
	// StreamByDefault - stream sampled audio when playing by source name
	StreamByDefault bool `json:"streamByDefault"`

	// ReportErrors - log every failure through the error log
	ReportErrors bool `json:"reportErrors"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Index:      0,
			SampleRate: 44100,
		},
		Behavior: BehaviorConfig{
			StreamByDefault: true,
			ReportErrors:    true,
		},
		ErrorLog: "bgm_error.log",
	}
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.RWMutex
	configDir  string
	configPath string
	config     *Config
}

// NewManager creates a new configuration manager
func NewManager(configDir string) *Manager {
	return &Manager{
		configDir:  configDir,
		configPath: filepath.Join(configDir, "config.json"),
		config:     DefaultConfig(),
	}
}

// Load reads the configuration from disk, writing the defaults if no file
// exists yet
func (m *Manager) Load() error {
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		m.mu.Lock()
		m.config = DefaultConfig()
		m.mu.Unlock()
		return m.Save()
	}

	config, err := m.read()
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.config = config
	m.mu.Unlock()
	return nil
}

func (m *Manager) read() (*Config, error) {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config := DefaultConfig() // Start with defaults
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return config, nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	m.mu.RLock()
	data, err := json.MarshalIndent(m.config, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := *m.config
	return &c
}

// GetPath returns the config file path
func (m *Manager) GetPath() string {
	return m.configPath
}

// GetDir returns the config directory
func (m *Manager) GetDir() string {
	return m.configDir
}

// ErrorLogPath returns the absolute error log path, or "" to log to stderr
func (m *Manager) ErrorLogPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p := m.config.ErrorLog
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.configDir, p)
}

// Update updates the configuration and saves it
func (m *Manager) Update(config *Config) error {
	m.mu.Lock()
	m.config = config
	m.mu.Unlock()
	return m.Save()
}

// SetBehavior updates the behavior settings and saves them
func (m *Manager) SetBehavior(behavior BehaviorConfig) error {
	m.mu.Lock()
	m.config.Behavior = behavior
	m.mu.Unlock()
	return m.Save()
}
