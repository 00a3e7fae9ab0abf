package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/bryanchriswhite/CaptureDeck/internal/encoder"
	"github.com/bryanchriswhite/CaptureDeck/internal/logger"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	appName = "capturedeck"

	// CapturesDirName is the directory under the data dir that receives stills and recordings
	CapturesDirName = "captures"
	binDirName      = "bin"
	envPrefix       = "CAPTUREDECK"

	// MaxIntervalMs is the largest interval_ms a time.Duration can hold
	MaxIntervalMs = math.MaxInt64 / int64(time.Millisecond)
)

// Config represents the application configuration
type Config struct {
	ServerPort    int                 `json:"server_port" yaml:"server_port" mapstructure:"server_port"`
	LogLevel      string              `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	DataDir       string              `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	Capture       CaptureConfig       `json:"capture" yaml:"capture" mapstructure:"capture"`
	Recorder      RecorderConfig      `json:"recorder" yaml:"recorder" mapstructure:"recorder"`
	Notifications NotificationsConfig `json:"notifications" yaml:"notifications" mapstructure:"notifications"`
}

// CaptureConfig controls the still capture loop
type CaptureConfig struct {
	IntervalMs int `json:"interval_ms" yaml:"interval_ms" mapstructure:"interval_ms"`
	// MaxWidth downscales stills wider than this many pixels; 0 keeps the native size
	MaxWidth int `json:"max_width" yaml:"max_width" mapstructure:"max_width"`
}

// RecorderConfig controls the ffmpeg recorder
type RecorderConfig struct {
	FFmpegPath  string        `json:"ffmpeg_path" yaml:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	InputFormat string        `json:"input_format" yaml:"input_format" mapstructure:"input_format"`
	FrameRate   int           `json:"frame_rate" yaml:"frame_rate" mapstructure:"frame_rate"`
	DownloadURL string        `json:"download_url" yaml:"download_url" mapstructure:"download_url"`
	StopTimeout time.Duration `json:"stop_timeout" yaml:"stop_timeout" mapstructure:"stop_timeout"`
}

// NotificationsConfig controls desktop notifications for recording events
type NotificationsConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
}

// Interval returns the configured capture interval, clamped to what a
// time.Duration can represent
func (c CaptureConfig) Interval() time.Duration {
	return IntervalFromMs(int64(c.IntervalMs))
}

// IntervalFromMs converts milliseconds to a duration. Negative values become
// zero and values above MaxIntervalMs are clamped instead of overflowing.
func IntervalFromMs(ms int64) time.Duration {
	switch {
	case ms <= 0:
		return 0
	case ms > MaxIntervalMs:
		ms = MaxIntervalMs
	}
	return time.Duration(ms) * time.Millisecond
}

// Manager handles configuration
type Manager struct {
	configPath string
	v          *viper.Viper
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configFile string) (*Manager, error) {
	configDir, err := DefaultConfigDir()
	if err != nil {
		return nil, err
	}

	actualConfigPath := filepath.Join(configDir, "config.yaml")
	if configFile != "" {
		actualConfigPath = configFile
	}

	m := &Manager{
		configPath: actualConfigPath,
		v:          newViper(actualConfigPath),
	}

	if err := m.load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Str("data_dir", m.Get().DataDir).
		Msg("Config loaded")

	return m, nil
}

// DefaultConfigDir returns the directory holding config.yaml
func DefaultConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, appName), nil
}

// DefaultDataDir returns the per-user application data directory
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	if runtime.GOOS == "linux" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, ".local", "share", appName)
		}
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appName)
	}
	return filepath.Join(os.TempDir(), appName)
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		ServerPort: 8090,
		LogLevel:   "info",
		DataDir:    DefaultDataDir(),
		Capture: CaptureConfig{
			IntervalMs: 1000,
		},
		Recorder: RecorderConfig{
			InputFormat: encoder.DefaultInputFormat(),
			FrameRate:   30,
			StopTimeout: 30 * time.Second,
		},
	}
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("server_port", d.ServerPort)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("capture.interval_ms", d.Capture.IntervalMs)
	v.SetDefault("capture.max_width", d.Capture.MaxWidth)
	v.SetDefault("recorder.ffmpeg_path", d.Recorder.FFmpegPath)
	v.SetDefault("recorder.input_format", d.Recorder.InputFormat)
	v.SetDefault("recorder.frame_rate", d.Recorder.FrameRate)
	v.SetDefault("recorder.download_url", d.Recorder.DownloadURL)
	v.SetDefault("recorder.stop_timeout", d.Recorder.StopTimeout)
	v.SetDefault("notifications.enabled", d.Notifications.Enabled)
	return v
}

// load reads the configuration from disk, layering env overrides on top
func (m *Manager) load() error {
	var readErr error
	if _, err := os.Stat(m.configPath); err != nil {
		readErr = err
	} else if err := m.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	if err := m.refresh(); err != nil {
		return err
	}
	return readErr
}

// refresh rebuilds the typed config from the viper state
func (m *Manager) refresh() error {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}

	m.mu.Lock()
	m.config = &cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}
	cfg := *m.config
	return &cfg
}

// GetViper exposes the underlying viper instance for key-based access
func (m *Manager) GetViper() *viper.Viper {
	return m.v
}

// Validate checks the configuration for values the controller cannot work with
func (c *Config) Validate() error {
	if c.ServerPort < 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid server_port: %d", c.ServerPort)
	}
	if !logger.ValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log_level: %s (use: debug, info, warn, error)", c.LogLevel)
	}
	if c.Capture.IntervalMs < 0 || int64(c.Capture.IntervalMs) > MaxIntervalMs {
		return fmt.Errorf("invalid capture.interval_ms: %d", c.Capture.IntervalMs)
	}
	if c.Capture.MaxWidth < 0 {
		return fmt.Errorf("invalid capture.max_width: %d", c.Capture.MaxWidth)
	}
	if c.Recorder.FrameRate <= 0 {
		return fmt.Errorf("invalid recorder.frame_rate: %d", c.Recorder.FrameRate)
	}
	if c.Recorder.InputFormat == "" {
		return fmt.Errorf("recorder.input_format must not be empty")
	}
	if c.Recorder.StopTimeout < 0 {
		return fmt.Errorf("invalid recorder.stop_timeout: %s", c.Recorder.StopTimeout)
	}
	return nil
}

// Set updates a single key, validates the result and persists it
func (m *Manager) Set(key string, value interface{}) error {
	previous := m.v.Get(key)
	m.v.Set(key, value)

	err := m.refresh()
	if err == nil {
		err = m.Get().Validate()
	}
	if err != nil {
		m.v.Set(key, previous)
		if rerr := m.refresh(); rerr != nil {
			logger.WithComponent("config").Warn().Err(rerr).Msg("Failed to restore previous config")
		}
		return err
	}
	return m.Save()
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	cfg := m.Get()

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("config_dir", configDir).
			Msg("Failed to create config directory")
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("path", m.configPath).
			Msg("Failed to write config")
		return err
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}

// SetPort overrides the server port for this process without saving
func (m *Manager) SetPort(port int) {
	m.v.Set("server_port", port)
	m.mu.Lock()
	if m.config != nil {
		m.config.ServerPort = port
	}
	m.mu.Unlock()
}

// SetLogLevel overrides the log level for this process without saving
func (m *Manager) SetLogLevel(level string) {
	m.v.Set("log_level", level)
	m.mu.Lock()
	if m.config != nil {
		m.config.LogLevel = level
	}
	m.mu.Unlock()
}

// GetConfigPath returns the configuration file path
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// CapturesDir returns the directory stills and recordings are written to
func (c *Config) CapturesDir() string {
	return filepath.Join(c.DataDir, CapturesDirName)
}

// BinDir returns the directory a downloaded encoder is installed into
func (c *Config) BinDir() string {
	return filepath.Join(c.DataDir, binDirName)
}
