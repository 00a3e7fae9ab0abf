package window

import (
	"fmt"

	"github.com/bryanchriswhite/CaptureDeck/internal/logger"
)

// Lister is anything that can produce the current window list
type Lister interface {
	ListWindows() ([]Descriptor, error)
}

// Directory lists user-selectable windows from a backend
type Directory struct {
	backend Backend
}

// NewDirectory creates a directory over the given backend
func NewDirectory(backend Backend) *Directory {
	return &Directory{backend: backend}
}

// Open connects to the platform backend: Win32 on Windows, X11 elsewhere
func Open() (*Directory, error) {
	b, err := openBackend()
	if err != nil {
		return nil, fmt.Errorf("no window backend available: %w", err)
	}
	logger.WithComponent("window").Debug().Str("backend", b.Name()).Msg("Window backend connected")
	return NewDirectory(b), nil
}

// ListWindows returns every window that has a title. Titleless windows are not
// selectable capture targets.
func (d *Directory) ListWindows() ([]Descriptor, error) {
	all, err := d.backend.ListWindows()
	if err != nil {
		return nil, err
	}

	windows := make([]Descriptor, 0, len(all))
	for _, w := range all {
		if w.Title == "" {
			continue
		}
		windows = append(windows, w)
	}
	return windows, nil
}

// Backend returns the underlying backend
func (d *Directory) Backend() Backend {
	return d.backend
}

// Close releases the backend connection
func (d *Directory) Close() error {
	return d.backend.Close()
}

// Resolve lists windows and returns the first whose identifier equals id.
// It returns nil, nil when no window matches; lookup errors are returned as is.
func Resolve(lister Lister, id string) (*Descriptor, error) {
	windows, err := lister.ListWindows()
	if err != nil {
		return nil, err
	}

	for i := range windows {
		if windows[i].ID == id {
			w := windows[i]
			return &w, nil
		}
	}
	return nil, nil
}
