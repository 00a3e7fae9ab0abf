package window

// Descriptor identifies one capturable window. Descriptors are produced fresh on
// every lookup and never cached.
type Descriptor struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	AppName  string   `json:"app_name"`
	PID      int      `json:"pid,omitempty"`
	Geometry Geometry `json:"geometry"`
}

// Geometry is the window rectangle in root (screen) coordinates
type Geometry struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether the rectangle has no area
func (g Geometry) Empty() bool {
	return g.Width <= 0 || g.Height <= 0
}

// Backend defines the interface for window discovery backends
type Backend interface {
	// ListWindows returns all application windows known to the display server,
	// including untitled ones
	ListWindows() ([]Descriptor, error)

	// Close closes the connection to the display server
	Close() error

	// Name returns the backend name (e.g., "x11")
	Name() string
}
