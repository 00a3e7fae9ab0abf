package output

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"golang.org/x/image/webp"
)

func testFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 128, A: 255})
		}
	}
	return img
}

func TestNames(t *testing.T) {
	ts := time.UnixMilli(1700000000123)

	if got := StillName(ts); got != "capture_1700000000123.webp" {
		t.Errorf("StillName() = %q", got)
	}
	if got := RecordingName(ts); got != "recording_1700000000123.mp4" {
		t.Errorf("RecordingName() = %q", got)
	}
}

func TestWriteFrameProducesWebP(t *testing.T) {
	dir := t.TempDir()
	w := NewStillWriter(dir, 0)

	path, err := w.WriteFrame(testFrame(16, 8))
	if err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}

	if !filepath.IsAbs(path) {
		t.Errorf("path %q should be absolute", path)
	}
	if ok, _ := regexp.MatchString(`capture_\d+\.webp$`, path); !ok {
		t.Errorf("path %q does not match capture_<digits>.webp", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	img, err := webp.Decode(f)
	if err != nil {
		t.Fatalf("written file is not decodable WebP: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
		t.Errorf("decoded size = %dx%d, want 16x8", b.Dx(), b.Dy())
	}
}

func TestWriteFrameDownscales(t *testing.T) {
	w := NewStillWriter(t.TempDir(), 10)

	path, err := w.WriteFrame(testFrame(40, 20))
	if err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	cfg, err := webp.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 10 || cfg.Height != 5 {
		t.Errorf("size = %dx%d, want 10x5", cfg.Width, cfg.Height)
	}
}

func TestWriteFrameSameMillisecondCollides(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	w := NewStillWriter(t.TempDir(), 0)
	w.now = func() time.Time { return fixed }

	if _, err := w.WriteFrame(testFrame(2, 2)); err != nil {
		t.Fatalf("first WriteFrame() error = %v", err)
	}
	if _, err := w.WriteFrame(testFrame(2, 2)); err == nil {
		t.Error("second write in the same millisecond should fail, not overwrite")
	}
}

func TestWriteFrameMissingDir(t *testing.T) {
	w := NewStillWriter(filepath.Join(t.TempDir(), "absent"), 0)
	if _, err := w.WriteFrame(testFrame(2, 2)); err == nil {
		t.Error("expected error when directory does not exist")
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "captures")
	if err := EnsureDir(dir); err != nil {
		t.Fatal(err)
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Errorf("directory not created: %v", err)
	}
	if err := EnsureDir(dir); err != nil {
		t.Errorf("EnsureDir on existing dir: %v", err)
	}
}
