package capture

import (
	"fmt"
	"image"

	"github.com/bryanchriswhite/CaptureDeck/internal/window"
	"github.com/kbinani/screenshot"
)

// RegionCapturer captures the screen rectangle a window occupies. It works on
// any platform screenshot supports but also picks up overlapping windows.
type RegionCapturer struct {
	grab     func(image.Rectangle) (*image.RGBA, error)
	displays func() int
}

// NewRegionCapturer creates a capturer backed by the screenshot library
func NewRegionCapturer() *RegionCapturer {
	return &RegionCapturer{
		grab:     screenshot.CaptureRect,
		displays: screenshot.NumActiveDisplays,
	}
}

// Name returns the capturer name
func (c *RegionCapturer) Name() string {
	return "region"
}

// Close is a no-op; screenshot holds no connection between calls
func (c *RegionCapturer) Close() error {
	return nil
}

// CaptureWindow grabs the window's on-screen rectangle
func (c *RegionCapturer) CaptureWindow(w *window.Descriptor) (*image.RGBA, error) {
	if w.Geometry.Empty() {
		return nil, fmt.Errorf("window %s has no on-screen geometry", w.ID)
	}
	if c.displays() == 0 {
		return nil, fmt.Errorf("no active displays found")
	}

	g := w.Geometry
	rect := image.Rect(g.X, g.Y, g.X+g.Width, g.Y+g.Height)
	img, err := c.grab(rect)
	if err != nil {
		return nil, fmt.Errorf("screenshot capture failed: %w", err)
	}
	return img, nil
}
