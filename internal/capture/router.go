package capture

import (
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/bryanchriswhite/CaptureDeck/internal/logger"
	"github.com/bryanchriswhite/CaptureDeck/internal/window"
)

// Router tries each capturer in order and returns the first image produced
type Router struct {
	capturers []Capturer
	mu        sync.RWMutex
}

// NewRouter creates a router over explicit capturers, in priority order
func NewRouter(capturers ...Capturer) *Router {
	return &Router{capturers: capturers}
}

// NewDefaultRouter prefers X11 window capture and falls back to the screen
// region. Windows only has the region capturer.
func NewDefaultRouter() *Router {
	log := logger.WithComponent("capture-router")

	var capturers []Capturer
	if runtime.GOOS != "windows" {
		if x11, err := NewX11Capturer(); err != nil {
			log.Warn().Err(err).Msg("X11 capturer not available")
		} else {
			capturers = append(capturers, x11)
			log.Debug().Msg("X11 capturer initialized")
		}
	}
	capturers = append(capturers, NewRegionCapturer())

	return NewRouter(capturers...)
}

// Name returns the capturer name
func (r *Router) Name() string {
	return "router"
}

// CaptureWindow captures a window using the first capturer that succeeds
func (r *Router) CaptureWindow(w *window.Descriptor) (*image.RGBA, error) {
	r.mu.RLock()
	capturers := r.capturers
	r.mu.RUnlock()

	if len(capturers) == 0 {
		return nil, fmt.Errorf("no capturer available for window %s", w.ID)
	}

	log := logger.WithComponent("capture-router")

	var errs []error
	for _, c := range capturers {
		img, err := c.CaptureWindow(w)
		if err == nil {
			return img, nil
		}
		log.Debug().
			Str("capturer", c.Name()).
			Str("window_id", w.ID).
			Err(err).
			Msg("Capturer failed, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
	}

	return nil, errors.Join(errs...)
}

// Close closes all capturers
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, c := range r.capturers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.capturers = nil
	return errors.Join(errs...)
}
