// Package session owns the capture loop and the recording process. A single
// Controller is built at startup and shared by every API handler and command.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/bryanchriswhite/CaptureDeck/internal/capture"
	"github.com/bryanchriswhite/CaptureDeck/internal/encoder"
	"github.com/bryanchriswhite/CaptureDeck/internal/events"
	"github.com/bryanchriswhite/CaptureDeck/internal/logger"
	"github.com/bryanchriswhite/CaptureDeck/internal/output"
	"github.com/bryanchriswhite/CaptureDeck/internal/window"
)

var (
	// ErrAlreadyCapturing is returned by StartCapture while a loop is running
	ErrAlreadyCapturing = errors.New("already capturing")
	// ErrAlreadyRecording is returned by StartRecord while a recording is active
	ErrAlreadyRecording = errors.New("already recording")
	// ErrWindowNotFound is returned when the target window is not listed
	ErrWindowNotFound = errors.New("window not found")
	// ErrEmptyTitle is returned when recording a window that has no title
	ErrEmptyTitle = errors.New("window has no title; the recorder selects windows by title")
)

// StillWriter persists one captured frame and returns its absolute path
type StillWriter interface {
	WriteFrame(img image.Image) (string, error)
}

// Encoder makes the recorder binary available
type Encoder interface {
	EnsureAvailable(ctx context.Context) (string, error)
	Path() (string, error)
}

// Recording is a running recorder process
type Recording interface {
	SignalStop() error
	Wait(timeout time.Duration) error
	Kill() error
	Pid() int
	// Exited reports whether the process ended on its own or was reaped
	Exited() bool
}

// SpawnFunc starts the recorder binary at path with args, writing to output
type SpawnFunc func(path string, args []string, output string) (Recording, error)

// SpawnProcess starts a real ffmpeg process
func SpawnProcess(path string, args []string, output string) (Recording, error) {
	p, err := encoder.Start(path, args, output)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Options wires the controller to its collaborators
type Options struct {
	// Windows is consulted on every capture tick and on StartRecord
	Windows  window.Lister
	Capturer capture.Capturer
	Stills   StillWriter
	// CapturesDir receives stills and recordings
	CapturesDir string

	Encoder  Encoder
	Template encoder.Template
	Spawn    SpawnFunc
	// StopTimeout bounds StopRecord's wait; zero waits forever
	StopTimeout time.Duration

	Sink events.Sink
	Now  func() time.Time
}

// Status is a snapshot of the controller state
type Status struct {
	Capturing      bool   `json:"capturing"`
	CaptureWindow  string `json:"capture_window,omitempty"`
	IntervalMs     int64  `json:"interval_ms,omitempty"`
	Recording      bool   `json:"recording"`
	RecordWindow   string `json:"record_window,omitempty"`
	RecordingPath  string `json:"recording_path,omitempty"`
	RecordingPID   int    `json:"recording_pid,omitempty"`
	RecorderExited bool   `json:"recorder_exited,omitempty"`
	StoppingRecord bool   `json:"stopping_record,omitempty"`
	CapturesDir    string `json:"captures_dir"`
	CapturesTaken  int64  `json:"captures_taken"`
	LastCapture    string `json:"last_capture,omitempty"`
	CaptureFailure string `json:"last_capture_error,omitempty"`
}

// Controller coordinates the capture loop and the recording process. The two
// sub-states have independent locks and no method holds both.
type Controller struct {
	opts Options

	capMu       sync.Mutex
	capturing   bool
	generation  uint64
	capWindow   string
	capInterval time.Duration
	taken       int64
	lastPath    string
	lastErr     string

	recMu     sync.Mutex
	recording Recording
	recWindow string
	recPath   string
	// stopping is set while StopRecord waits for the process; recording
	// stays held so StartRecord keeps rejecting
	stopping bool
}

// New creates a controller
func New(opts Options) *Controller {
	if opts.Sink == nil {
		opts.Sink = events.Discard{}
	}
	if opts.Spawn == nil {
		opts.Spawn = SpawnProcess
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{opts: opts}
}

// CapturesDir returns the directory stills and recordings are written to
func (c *Controller) CapturesDir() string {
	return c.opts.CapturesDir
}

// StartCapture begins capturing windowID every interval in the background.
// An interval <= 0 polls without pausing.
func (c *Controller) StartCapture(windowID string, interval time.Duration) error {
	c.capMu.Lock()
	if c.capturing {
		c.capMu.Unlock()
		return ErrAlreadyCapturing
	}
	c.capturing = true
	c.generation++
	gen := c.generation
	c.capWindow = windowID
	c.capInterval = interval
	c.lastErr = ""
	c.capMu.Unlock()

	// The flag stays set on failure; nothing external was created yet
	if err := output.EnsureDir(c.opts.CapturesDir); err != nil {
		return err
	}

	logger.WithComponent("session").Info().
		Str("window_id", windowID).
		Dur("interval", interval).
		Msg("Capture started")

	go c.captureLoop(gen, windowID, interval)
	return nil
}

// StopCapture clears the capture flag. The loop exits at its next tick; this
// call does not wait for it.
func (c *Controller) StopCapture() error {
	c.capMu.Lock()
	wasCapturing := c.capturing
	c.capturing = false
	c.capMu.Unlock()

	if wasCapturing {
		logger.WithComponent("session").Info().Msg("Capture stopped")
	}
	return nil
}

// IsCapturing reports whether a capture loop is active
func (c *Controller) IsCapturing() bool {
	c.capMu.Lock()
	defer c.capMu.Unlock()
	return c.capturing
}

// active reports whether the loop started as gen should keep running. A loop
// from an earlier session exits even if a new one has since started.
func (c *Controller) active(gen uint64) bool {
	c.capMu.Lock()
	defer c.capMu.Unlock()
	return c.capturing && c.generation == gen
}

func (c *Controller) captureLoop(gen uint64, windowID string, interval time.Duration) {
	log := logger.WithComponent("capture-loop").With().Str("window_id", windowID).Logger()
	log.Debug().Msg("Capture loop running")
	defer func() { log.Debug().Msg("Capture loop exited") }()

	for c.active(gen) {
		c.tick(windowID)
		if interval > 0 {
			time.Sleep(interval)
		}
	}
}

// tick performs one capture attempt. Every failure is logged and swallowed.
func (c *Controller) tick(windowID string) {
	log := logger.WithComponent("capture-loop").With().Str("window_id", windowID).Logger()

	w, err := window.Resolve(c.opts.Windows, windowID)
	if err != nil {
		log.Warn().Err(err).Msg("Window lookup failed")
		w = nil
	}
	if w == nil {
		c.recordFailure("window not found")
		log.Warn().Msg("Target window not found, will retry")
		return
	}

	img, err := c.opts.Capturer.CaptureWindow(w)
	if err != nil {
		c.recordFailure(err.Error())
		log.Error().Err(err).Msg("Capture failed")
		return
	}

	path, err := c.opts.Stills.WriteFrame(img)
	if err != nil {
		c.recordFailure(err.Error())
		log.Error().Err(err).Msg("Failed to save capture")
		return
	}

	c.capMu.Lock()
	c.taken++
	c.lastPath = path
	c.lastErr = ""
	c.capMu.Unlock()

	log.Debug().Str("path", path).Msg("Capture saved")
	c.opts.Sink.Emit(events.CaptureTaken, path)
}

func (c *Controller) recordFailure(msg string) {
	c.capMu.Lock()
	c.lastErr = msg
	c.capMu.Unlock()
}

// StartRecord spawns the recorder for windowID
func (c *Controller) StartRecord(windowID string) error {
	c.recMu.Lock()
	defer c.recMu.Unlock()

	if c.recording != nil {
		return ErrAlreadyRecording
	}

	log := logger.WithComponent("recorder")

	if c.opts.Encoder == nil {
		return encoder.ErrNotInstalled
	}
	status, err := c.opts.Encoder.EnsureAvailable(context.Background())
	if err != nil {
		return fmt.Errorf("recorder unavailable: %w", err)
	}
	log.Debug().Str("status", status).Msg("Recorder available")

	binary, err := c.opts.Encoder.Path()
	if err != nil {
		return fmt.Errorf("recorder unavailable: %w", err)
	}

	w, err := window.Resolve(c.opts.Windows, windowID)
	if err != nil {
		return fmt.Errorf("failed to list windows: %w", err)
	}
	if w == nil {
		return fmt.Errorf("%w: %s", ErrWindowNotFound, windowID)
	}
	if w.Title == "" {
		return fmt.Errorf("%w: %s", ErrEmptyTitle, windowID)
	}

	out, err := filepath.Abs(filepath.Join(c.opts.CapturesDir, output.RecordingName(c.opts.Now())))
	if err != nil {
		return err
	}
	if err := output.EnsureDir(c.opts.CapturesDir); err != nil {
		return err
	}

	rec, err := c.opts.Spawn(binary, c.opts.Template.Args(w, out), out)
	if err != nil {
		return fmt.Errorf("failed to start recorder: %w", err)
	}

	c.recording = rec
	c.recWindow = windowID
	c.recPath = out

	log.Info().
		Str("window_id", windowID).
		Str("title", w.Title).
		Str("output", out).
		Int("pid", rec.Pid()).
		Msg("Recording started")

	c.opts.Sink.Emit(events.RecordingStarted, nil)
	return nil
}

// StopRecord asks the recorder to finish and waits for it to exit. Without an
// active recording it does nothing. A non-zero exit status is not an error.
// The wait happens outside the lock, so Status stays responsive; a concurrent
// StopRecord returns immediately.
func (c *Controller) StopRecord() error {
	c.recMu.Lock()
	rec := c.recording
	if rec == nil || c.stopping {
		c.recMu.Unlock()
		return nil
	}
	c.stopping = true
	path := c.recPath
	c.recMu.Unlock()

	log := logger.WithComponent("recorder").With().Str("output", path).Logger()

	if rec.Exited() {
		log.Warn().Msg("Recorder exited before it was asked to stop")
	}
	if err := rec.SignalStop(); err != nil {
		log.Debug().Err(err).Msg("Stop signal not delivered")
	}

	err := rec.Wait(c.opts.StopTimeout)

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		log.Debug().Int("exit_code", exitErr.ExitCode()).Msg("Recorder exited with non-zero status")
	case errors.Is(err, encoder.ErrStopTimeout):
		log.Warn().Dur("timeout", c.opts.StopTimeout).Msg("Recorder did not exit in time, killing")
		if kerr := rec.Kill(); kerr != nil {
			log.Error().Err(kerr).Msg("Failed to kill recorder")
		}
		c.releaseRecording()
		c.opts.Sink.Emit(events.RecordingStopped, nil)
		return fmt.Errorf("recorder did not stop within %s: %w", c.opts.StopTimeout, err)
	default:
		if kerr := rec.Kill(); kerr != nil {
			log.Error().Err(kerr).Msg("Failed to kill recorder")
		}
		c.releaseRecording()
		return fmt.Errorf("failed waiting for recorder: %w", err)
	}

	c.releaseRecording()
	log.Info().Msg("Recording stopped")
	c.opts.Sink.Emit(events.RecordingStopped, nil)
	return nil
}

// releaseRecording forgets the stopped process so a new recording may start
func (c *Controller) releaseRecording() {
	c.recMu.Lock()
	c.recording = nil
	c.recWindow = ""
	c.recPath = ""
	c.stopping = false
	c.recMu.Unlock()
}

// IsRecording reports whether a recorder process is held
func (c *Controller) IsRecording() bool {
	c.recMu.Lock()
	defer c.recMu.Unlock()
	return c.recording != nil
}

// Status returns a snapshot of both sub-states
func (c *Controller) Status() Status {
	s := Status{CapturesDir: c.opts.CapturesDir}

	c.capMu.Lock()
	s.Capturing = c.capturing
	if c.capturing {
		s.CaptureWindow = c.capWindow
		s.IntervalMs = c.capInterval.Milliseconds()
	}
	s.CapturesTaken = c.taken
	s.LastCapture = c.lastPath
	s.CaptureFailure = c.lastErr
	c.capMu.Unlock()

	c.recMu.Lock()
	if c.recording != nil {
		s.Recording = true
		s.RecordWindow = c.recWindow
		s.RecordingPath = c.recPath
		s.RecordingPID = c.recording.Pid()
		s.RecorderExited = c.recording.Exited()
		s.StoppingRecord = c.stopping
	}
	c.recMu.Unlock()

	return s
}

// Close stops the capture loop and any active recording
func (c *Controller) Close() error {
	c.StopCapture()
	return c.StopRecord()
}
