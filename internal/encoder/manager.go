package encoder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bryanchriswhite/CaptureDeck/internal/logger"
	"github.com/cenkalti/backoff/v4"
)

const (
	// StatusAvailable is reported when ffmpeg was already present
	StatusAvailable = "FFmpeg is already available"
	// StatusDownloaded is reported after a successful download
	StatusDownloaded = "FFmpeg downloaded successfully"
)

// Retry configuration constants
const (
	DefaultMaxRetries   = 3
	DefaultBaseDelay    = 500 * time.Millisecond
	DefaultMaxDelay     = 10 * time.Second
	DefaultJitterFactor = 0.2
)

// RetryConfig holds download retry settings.
type RetryConfig struct {
	MaxRetries   int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
}

// DefaultRetryConfig returns standard retry settings.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   DefaultMaxRetries,
		BaseDelay:    DefaultBaseDelay,
		MaxDelay:     DefaultMaxDelay,
		JitterFactor: DefaultJitterFactor,
	}
}

// ManagerConfig configures where ffmpeg is looked up and fetched from
type ManagerConfig struct {
	// FFmpegPath is an explicit binary path; empty means auto-locate
	FFmpegPath string
	// BinDir receives a downloaded binary and is searched before PATH
	BinDir string
	// DownloadURL points at a single ffmpeg executable; empty disables downloads
	DownloadURL string
	Retry       RetryConfig
	Client      *http.Client
}

// Manager locates ffmpeg and installs it on demand
type Manager struct {
	cfg ManagerConfig
	mu  sync.Mutex
}

// NewManager creates an encoder manager
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Minute}
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}
	return &Manager{cfg: cfg}
}

// Path returns the ffmpeg binary to run
func (m *Manager) Path() (string, error) {
	return Locate(m.cfg.FFmpegPath, m.cfg.BinDir)
}

// IsInstalled reports whether ffmpeg can be located
func (m *Manager) IsInstalled() bool {
	_, err := m.Path()
	return err == nil
}

// EnsureAvailable returns a status line once ffmpeg is usable, downloading it
// into BinDir when it is missing and a download URL is configured.
func (m *Manager) EnsureAvailable(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IsInstalled() {
		return StatusAvailable, nil
	}
	if m.cfg.FFmpegPath != "" || m.cfg.DownloadURL == "" {
		_, err := m.Path()
		return "", err
	}

	log := logger.WithComponent("encoder")
	log.Info().Str("url", m.cfg.DownloadURL).Msg("FFmpeg not found, downloading")

	err := backoff.RetryNotify(func() error {
		return m.download(ctx)
	}, newBackOff(ctx, m.cfg.Retry), func(err error, delay time.Duration) {
		log.Debug().Err(err).Dur("delay", delay).Msg("Retrying download")
	})
	if err != nil {
		return "", fmt.Errorf("failed to download FFmpeg: %w", err)
	}

	log.Info().Str("path", filepath.Join(m.cfg.BinDir, BinaryName())).Msg("FFmpeg installed")
	return StatusDownloaded, nil
}

// download fetches DownloadURL into BinDir atomically. Failures retrying
// cannot fix are wrapped with backoff.Permanent.
func (m *Manager) download(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.DownloadURL, nil)
	if err != nil {
		return backoff.Permanent(err)
	}

	resp, err := m.cfg.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %s", resp.Status)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := os.MkdirAll(m.cfg.BinDir, 0755); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create bin directory: %w", err))
	}

	tmp, err := os.CreateTemp(m.cfg.BinDir, BinaryName()+".*.part")
	if err != nil {
		return backoff.Permanent(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0755); err != nil {
		return backoff.Permanent(err)
	}
	return os.Rename(tmp.Name(), filepath.Join(m.cfg.BinDir, BinaryName()))
}

// newBackOff builds the download retry policy from cfg, bounded by
// MaxRetries and ctx
func newBackOff(ctx context.Context, cfg RetryConfig) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.BaseDelay
	b.MaxInterval = cfg.MaxDelay
	b.RandomizationFactor = cfg.JitterFactor
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(cfg.MaxRetries, 0))), ctx)
}
