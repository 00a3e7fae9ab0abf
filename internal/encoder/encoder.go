// Package encoder drives an external ffmpeg process to record a window to video.
package encoder

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/bryanchriswhite/CaptureDeck/internal/window"
)

var (
	// ErrNotInstalled is returned when no ffmpeg binary can be found
	ErrNotInstalled = errors.New("ffmpeg not installed")
	// ErrStopTimeout is returned when ffmpeg does not exit within the stop timeout
	ErrStopTimeout = errors.New("timed out waiting for ffmpeg to exit")
)

// StopSignal is written to ffmpeg's stdin to make it finish the file and exit
const StopSignal = "q"

// Template holds the variable parts of the recording command line
type Template struct {
	// InputFormat is the ffmpeg capture device, e.g. gdigrab or x11grab
	InputFormat string
	FrameRate   int
	// Display is the X display x11grab reads from; empty uses $DISPLAY
	Display string
}

// Args builds the ffmpeg argument list recording w into output.
// The encoding options favour playback compatibility over size.
func (t Template) Args(w *window.Descriptor, output string) []string {
	args := []string{
		"-f", t.InputFormat,
		"-framerate", strconv.Itoa(t.FrameRate),
	}
	args = append(args, t.input(w)...)
	return append(args,
		"-vcodec", "libx264",
		"-pix_fmt", "yuv420p",
		"-profile:v", "baseline",
		"-level", "4.0",
		"-preset", "ultrafast",
		"-crf", "23",
		"-movflags", "+faststart",
		output,
	)
}

// input selects the capture target. gdigrab finds the window by title;
// x11grab has no window selector and grabs the window's screen rectangle.
func (t Template) input(w *window.Descriptor) []string {
	if t.InputFormat != "x11grab" {
		return []string{"-i", "title=" + w.Title}
	}

	display := t.Display
	if display == "" {
		display = os.Getenv("DISPLAY")
	}
	if display == "" {
		display = ":0"
	}

	// yuv420p needs even dimensions
	g := w.Geometry
	return []string{
		"-video_size", fmt.Sprintf("%dx%d", g.Width&^1, g.Height&^1),
		"-i", fmt.Sprintf("%s+%d,%d", display, g.X, g.Y),
	}
}

// DefaultInputFormat returns the ffmpeg capture device for this platform
func DefaultInputFormat() string {
	if runtime.GOOS == "windows" {
		return "gdigrab"
	}
	return "x11grab"
}

// BinaryName returns the platform file name of the ffmpeg executable
func BinaryName() string {
	if runtime.GOOS == "windows" {
		return "ffmpeg.exe"
	}
	return "ffmpeg"
}

// Locate finds ffmpeg: an explicitly configured path wins, then a binary
// previously downloaded into binDir, then the system PATH.
func Locate(configured, binDir string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured, nil
		}
		if p, err := exec.LookPath(configured); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("%w: configured path %s not found", ErrNotInstalled, configured)
	}

	if binDir != "" {
		p := filepath.Join(binDir, BinaryName())
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, nil
		}
	}

	if p, err := exec.LookPath("ffmpeg"); err == nil {
		return p, nil
	}
	return "", ErrNotInstalled
}
