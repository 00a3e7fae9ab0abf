package window

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/CaptureDeck/internal/logger"
)

// X11Backend implements the Backend interface using X11
type X11Backend struct {
	conn  *xgb.Conn
	root  xproto.Window
	mu    sync.Mutex
	atoms map[string]xproto.Atom
}

// NewX11Backend creates a new X11 backend
func NewX11Backend() (*X11Backend, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	root := setup.DefaultScreen(conn).Root

	return &X11Backend{
		conn:  conn,
		root:  root,
		atoms: make(map[string]xproto.Atom),
	}, nil
}

// Close closes the X11 connection
func (b *X11Backend) Close() error {
	b.conn.Close()
	return nil
}

// Name returns the backend name
func (b *X11Backend) Name() string {
	return "x11"
}

// ListWindows returns all client windows using EWMH _NET_CLIENT_LIST with QueryTree fallback
func (b *X11Backend) ListWindows() ([]Descriptor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	log := logger.WithComponent("x11-backend")

	ids, err := b.clientList()
	if err != nil || len(ids) == 0 {
		log.Debug().Err(err).Msg("EWMH client list unavailable, falling back to QueryTree")
		tree, err := xproto.QueryTree(b.conn, b.root).Reply()
		if err != nil {
			return nil, fmt.Errorf("failed to query window tree: %w", err)
		}
		ids = tree.Children
	}

	windows := make([]Descriptor, 0, len(ids))
	for _, id := range ids {
		info, err := b.describe(id)
		if err != nil {
			log.Debug().Uint32("window_id", uint32(id)).Err(err).Msg("Skipping window")
			continue
		}
		// Override-redirect helpers and similar have neither
		if info.Title == "" && info.AppName == "" {
			continue
		}
		windows = append(windows, info)
	}

	log.Debug().Int("count", len(windows)).Msg("Listed windows")
	return windows, nil
}

// clientList reads _NET_CLIENT_LIST from the root window
func (b *X11Backend) clientList() ([]xproto.Window, error) {
	atom, err := b.atom("_NET_CLIENT_LIST")
	if err != nil {
		return nil, err
	}

	reply, err := xproto.GetProperty(b.conn, false, b.root, atom,
		xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get _NET_CLIENT_LIST property: %w", err)
	}

	ids := make([]xproto.Window, 0, len(reply.Value)/4)
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		ids = append(ids, xproto.Window(binary.LittleEndian.Uint32(reply.Value[i:])))
	}
	return ids, nil
}

// describe builds a descriptor for one window
func (b *X11Backend) describe(win xproto.Window) (Descriptor, error) {
	info := Descriptor{ID: strconv.FormatUint(uint64(win), 10)}

	geom, err := xproto.GetGeometry(b.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return info, fmt.Errorf("failed to get window geometry: %w", err)
	}
	info.Geometry = Geometry{Width: int(geom.Width), Height: int(geom.Height)}

	// Geometry is parent-relative; the region capturer needs screen coordinates
	if tr, err := xproto.TranslateCoordinates(b.conn, win, b.root, 0, 0).Reply(); err == nil {
		info.Geometry.X = int(tr.DstX)
		info.Geometry.Y = int(tr.DstY)
	} else {
		info.Geometry.X = int(geom.X)
		info.Geometry.Y = int(geom.Y)
	}

	info.Title = b.stringProperty(win, "_NET_WM_NAME")
	if info.Title == "" {
		info.Title = b.stringProperty(win, "WM_NAME")
	}

	// WM_CLASS is instance\0class\0
	parts := strings.Split(b.stringProperty(win, "WM_CLASS"), "\x00")
	if len(parts) >= 2 && parts[1] != "" {
		info.AppName = parts[1]
	} else if parts[0] != "" {
		info.AppName = parts[0]
	}

	if atom, err := b.atom("_NET_WM_PID"); err == nil {
		reply, err := xproto.GetProperty(b.conn, false, win, atom, xproto.AtomCardinal, 0, 1).Reply()
		if err == nil && len(reply.Value) >= 4 {
			info.PID = int(binary.LittleEndian.Uint32(reply.Value))
		}
	}

	return info, nil
}

// atom interns an atom by name, caching the result
func (b *X11Backend) atom(name string) (xproto.Atom, error) {
	if a, ok := b.atoms[name]; ok {
		return a, nil
	}
	reply, err := xproto.InternAtom(b.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	b.atoms[name] = reply.Atom
	return reply.Atom, nil
}

// stringProperty reads a property as a string, returning "" when unset
func (b *X11Backend) stringProperty(win xproto.Window, name string) string {
	atom, err := b.atom(name)
	if err != nil {
		return ""
	}
	reply, err := xproto.GetProperty(b.conn, false, win, atom,
		xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil || reply.ValueLen == 0 {
		return ""
	}
	return strings.TrimRight(string(reply.Value), "\x00")
}
