// Package config provides configuration management for the touchpad client.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Config represents the client configuration
type Config struct {
	// Target is the receiver address, either host:port or a ws:// or
	// wss:// URL
	Target string `json:"target"`

	// View identifies where the surface is placed. Toggle state is kept
	// separately per target and view.
	View string `json:"view"`

	// Sensitivity multiplies pointer motion
	Sensitivity float64 `json:"sensitivity"`

	// ScrollMultiplier multiplies scroll motion
	ScrollMultiplier float64 `json:"scroll_multiplier"`

	// InvertScroll flips both scroll axes
	InvertScroll bool `json:"invert_scroll"`

	// TapRadius is the largest movement in pixels still counted as a tap
	TapRadius float64 `json:"tap_radius"`

	// DoubleTapWindowMS bounds tap duration and the gap between two taps
	DoubleTapWindowMS int `json:"double_tap_window_ms"`

	// HoldDelayMS is how long a touch must rest to start a drag
	HoldDelayMS int `json:"hold_delay_ms"`

	// FrameIntervalMS is the motion flush period
	FrameIntervalMS int `json:"frame_interval_ms"`

	// ShowStatus shows the connection status line
	ShowStatus bool `json:"show_status"`

	// StatePath overrides where toggle state is stored
	StatePath string `json:"state_path,omitempty"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		View:              "default",
		Sensitivity:       1.0,
		ScrollMultiplier:  1.0,
		TapRadius:         6,
		DoubleTapWindowMS: 250,
		HoldDelayMS:       320,
		FrameIntervalMS:   16,
		ShowStatus:        true,
	}
}

// Validate checks the configuration and reports the first problem found
func (c *Config) Validate() error {
	if _, err := NormalizeTarget(c.Target); err != nil {
		return err
	}
	if c.Sensitivity <= 0 {
		return fmt.Errorf("%w: sensitivity must be positive", ErrInvalidValue)
	}
	if c.ScrollMultiplier <= 0 {
		return fmt.Errorf("%w: scroll_multiplier must be positive", ErrInvalidValue)
	}
	if c.TapRadius < 0 || c.DoubleTapWindowMS < 0 || c.HoldDelayMS < 0 || c.FrameIntervalMS < 0 {
		return fmt.Errorf("%w: thresholds must not be negative", ErrInvalidValue)
	}
	return nil
}

// URL returns the normalized socket URL of the target
func (c *Config) URL() (string, error) {
	return NormalizeTarget(c.Target)
}

// DoubleTapWindow returns DoubleTapWindowMS as a duration
func (c *Config) DoubleTapWindow() time.Duration {
	return time.Duration(c.DoubleTapWindowMS) * time.Millisecond
}

// HoldDelay returns HoldDelayMS as a duration
func (c *Config) HoldDelay() time.Duration {
	return time.Duration(c.HoldDelayMS) * time.Millisecond
}

// FrameInterval returns FrameIntervalMS as a duration
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMS) * time.Millisecond
}

// NormalizeTarget turns a configured address into a socket URL. A bare
// host:port becomes ws://host:port.
func NormalizeTarget(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", ErrMissingTarget
	}
	if !strings.Contains(target, "://") {
		target = "ws://" + target
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidTarget, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidTarget)
	}
	return u.String(), nil
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	onChanged  func()
}

// NewManager creates a configuration manager for path. An empty path
// selects the default location in the user config directory.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "config.json")
	}

	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}, nil
}

// DefaultDir returns the per-user directory for touchpad files
func DefaultDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "touchpad")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "touchpad")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "touchpad")
			break
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", "touchpad")
	}

	return configDir, nil
}

// Path returns the configuration file location
func (m *Manager) Path() string {
	return m.configPath
}

// Load reads the configuration from disk. Fields missing from the file keep
// their defaults.
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.configPath)
	if os.IsNotExist(err) {
		// No config file, use defaults
		return nil
	}
	if err != nil {
		return err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", m.configPath, err)
	}

	m.mu.Lock()
	m.config = cfg
	onChanged := m.onChanged
	m.mu.Unlock()

	if onChanged != nil {
		onChanged()
	}
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return err
	}

	log.Printf("Config: Saving configuration to %s (%d bytes)", m.configPath, len(data))
	return os.WriteFile(m.configPath, data, 0644)
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.config
}

// Set updates the configuration
func (m *Manager) Set(config Config) {
	m.mu.Lock()
	m.config = &config
	onChanged := m.onChanged
	m.mu.Unlock()
	if onChanged != nil {
		onChanged()
	}
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}

// Watch reloads the configuration whenever the file changes on disk, until
// ctx is cancelled. The directory is watched because editors usually
// replace files instead of writing them in place.
func (m *Manager) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		return err
	}

	name := filepath.Clean(m.configPath)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := m.Load(); err != nil {
				log.Printf("Config: Reload failed: %v", err)
				continue
			}
			log.Printf("Config: Reloaded %s", m.configPath)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("Config: Watch error: %v", err)
		}
	}
}
