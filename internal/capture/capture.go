package capture

import (
	"image"

	"github.com/bryanchriswhite/CaptureDeck/internal/window"
)

// Capturer defines the interface for still-image capture backends
type Capturer interface {
	// CaptureWindow captures the contents of a specific window
	CaptureWindow(w *window.Descriptor) (*image.RGBA, error)

	// Name returns a human-readable name for this capturer
	Name() string

	// Close releases any connection held by the capturer
	Close() error
}
