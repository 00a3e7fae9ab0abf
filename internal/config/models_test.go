package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bryanchriswhite/CaptureDeck/internal/encoder"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", filepath.Join(t.TempDir(), "data"))
	path := filepath.Join(t.TempDir(), "config.yaml")

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m, path
}

func TestNewManagerCreatesDefaults(t *testing.T) {
	m, path := newTestManager(t)

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	cfg := m.Get()
	if cfg.ServerPort != 8090 {
		t.Errorf("ServerPort = %d, want 8090", cfg.ServerPort)
	}
	if cfg.Capture.IntervalMs != 1000 {
		t.Errorf("Capture.IntervalMs = %d, want 1000", cfg.Capture.IntervalMs)
	}
	if cfg.Recorder.InputFormat != encoder.DefaultInputFormat() {
		t.Errorf("Recorder.InputFormat = %q, want %q", cfg.Recorder.InputFormat, encoder.DefaultInputFormat())
	}
	if cfg.Recorder.StopTimeout != 30*time.Second {
		t.Errorf("Recorder.StopTimeout = %s, want 30s", cfg.Recorder.StopTimeout)
	}
	if !strings.HasSuffix(cfg.DataDir, "capturedeck") {
		t.Errorf("DataDir = %q, want suffix capturedeck", cfg.DataDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestSetPersistsAcrossReload(t *testing.T) {
	m, path := newTestManager(t)

	if err := m.Set("capture.interval_ms", 250); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := m.Set("recorder.stop_timeout", "5s"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	reloaded, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() reload error = %v", err)
	}
	cfg := reloaded.Get()
	if cfg.Capture.IntervalMs != 250 {
		t.Errorf("IntervalMs = %d, want 250", cfg.Capture.IntervalMs)
	}
	if cfg.Capture.Interval() != 250*time.Millisecond {
		t.Errorf("Interval() = %s, want 250ms", cfg.Capture.Interval())
	}
	if cfg.Recorder.StopTimeout != 5*time.Second {
		t.Errorf("StopTimeout = %s, want 5s", cfg.Recorder.StopTimeout)
	}
}

func TestSetRejectsInvalidValue(t *testing.T) {
	m, _ := newTestManager(t)

	if err := m.Set("recorder.frame_rate", 0); err == nil {
		t.Fatal("Set(frame_rate=0) should fail")
	}
	if got := m.Get().Recorder.FrameRate; got != 30 {
		t.Errorf("FrameRate after rejected Set = %d, want 30", got)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("CAPTUREDECK_SERVER_PORT", "9191")
	m, _ := newTestManager(t)

	if got := m.Get().ServerPort; got != 9191 {
		t.Errorf("ServerPort = %d, want 9191 from env", got)
	}
}

func TestRuntimeOverridesAreNotSaved(t *testing.T) {
	m, path := newTestManager(t)

	m.SetPort(7000)
	m.SetLogLevel("debug")
	if got := m.Get().ServerPort; got != 7000 {
		t.Errorf("ServerPort = %d, want 7000", got)
	}

	reloaded, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() reload error = %v", err)
	}
	if got := reloaded.Get().ServerPort; got != 8090 {
		t.Errorf("reloaded ServerPort = %d, want 8090 (override must not be saved)", got)
	}
}

func TestDirectories(t *testing.T) {
	cfg := &Config{DataDir: filepath.Join("var", "deck")}

	if got, want := cfg.CapturesDir(), filepath.Join("var", "deck", "captures"); got != want {
		t.Errorf("CapturesDir() = %q, want %q", got, want)
	}
	if got, want := cfg.BinDir(), filepath.Join("var", "deck", "bin"); got != want {
		t.Errorf("BinDir() = %q, want %q", got, want)
	}
}

var tooLongMs = MaxIntervalMs + 1

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.ServerPort = 70000 }},
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
		{"interval", func(c *Config) { c.Capture.IntervalMs = -1 }},
		{"interval overflow", func(c *Config) { c.Capture.IntervalMs = int(tooLongMs) }},
		{"max width", func(c *Config) { c.Capture.MaxWidth = -5 }},
		{"frame rate", func(c *Config) { c.Recorder.FrameRate = 0 }},
		{"input format", func(c *Config) { c.Recorder.InputFormat = "" }},
		{"stop timeout", func(c *Config) { c.Recorder.StopTimeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestIntervalFromMs(t *testing.T) {
	tests := []struct {
		ms   int64
		want time.Duration
	}{
		{-5, 0},
		{0, 0},
		{250, 250 * time.Millisecond},
		{MaxIntervalMs, time.Duration(MaxIntervalMs) * time.Millisecond},
		{10000000000000, time.Duration(MaxIntervalMs) * time.Millisecond},
	}

	for _, tt := range tests {
		got := IntervalFromMs(tt.ms)
		if got != tt.want {
			t.Errorf("IntervalFromMs(%d) = %s, want %s", tt.ms, got, tt.want)
		}
		if got < 0 {
			t.Errorf("IntervalFromMs(%d) is negative", tt.ms)
		}
	}
}
