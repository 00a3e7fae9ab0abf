package output

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
)

const (
	// StillExt is the extension of still captures
	StillExt = ".webp"
	// RecordingExt is the container extension of recordings
	RecordingExt = ".mp4"
)

// StillName returns the file name for a still captured at t
func StillName(t time.Time) string {
	return fmt.Sprintf("capture_%d%s", t.UnixMilli(), StillExt)
}

// RecordingName returns the file name for a recording started at t
func RecordingName(t time.Time) string {
	return fmt.Sprintf("recording_%d%s", t.UnixMilli(), RecordingExt)
}

// EnsureDir creates dir and any missing parents
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// StillWriter encodes frames as WebP files into a directory. Names are derived
// from the wall clock in milliseconds; two frames written within the same
// millisecond collide and the second write fails rather than overwriting.
type StillWriter struct {
	dir      string
	maxWidth int
	now      func() time.Time
}

// NewStillWriter creates a writer for dir. Frames wider than maxWidth are
// downscaled; maxWidth <= 0 keeps the native size.
func NewStillWriter(dir string, maxWidth int) *StillWriter {
	return &StillWriter{dir: dir, maxWidth: maxWidth, now: time.Now}
}

// Dir returns the output directory
func (w *StillWriter) Dir() string {
	return w.dir
}

// WriteFrame encodes img and returns the absolute path of the written file
func (w *StillWriter) WriteFrame(img image.Image) (string, error) {
	path, err := filepath.Abs(filepath.Join(w.dir, StillName(w.now())))
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}

	encErr := nativewebp.Encode(f, w.scale(img), nil)
	closeErr := f.Close()
	if err := errors.Join(encErr, closeErr); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	return path, nil
}

// scale downsizes img to maxWidth, preserving aspect ratio
func (w *StillWriter) scale(img image.Image) image.Image {
	b := img.Bounds()
	if w.maxWidth <= 0 || b.Dx() <= w.maxWidth {
		return img
	}

	height := b.Dy() * w.maxWidth / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w.maxWidth, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
