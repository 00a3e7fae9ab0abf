package capture

import (
	"fmt"
	"image"
	"strconv"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/CaptureDeck/internal/logger"
	"github.com/bryanchriswhite/CaptureDeck/internal/window"
)

// X11Capturer captures windows using X11 GetImage, through Composite when available
type X11Capturer struct {
	conn             *xgb.Conn
	screen           *xproto.ScreenInfo
	compositeEnabled bool
	mu               sync.Mutex
}

// NewX11Capturer connects to the X server and initializes Composite
func NewX11Capturer() (*X11Capturer, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	c := &X11Capturer{
		conn:   conn,
		screen: xproto.Setup(conn).DefaultScreen(conn),
	}

	log := logger.WithComponent("x11-capturer")
	if err := composite.Init(conn); err != nil {
		log.Warn().Err(err).Msg("Composite extension not available - obscured windows may capture incorrectly")
	} else {
		c.compositeEnabled = true
	}

	return c, nil
}

// Name returns the capturer name
func (c *X11Capturer) Name() string {
	return "x11"
}

// Close closes the X11 connection
func (c *X11Capturer) Close() error {
	c.conn.Close()
	return nil
}

// CaptureWindow captures a window by its descriptor
func (c *X11Capturer) CaptureWindow(w *window.Descriptor) (*image.RGBA, error) {
	id, err := strconv.ParseUint(w.ID, 10, 32)
	if err != nil || id == 0 {
		return nil, fmt.Errorf("not an X11 window id: %q", w.ID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	win := xproto.Window(id)

	attrs, err := xproto.GetWindowAttributes(c.conn, win).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get window attributes: %w", err)
	}
	if attrs.MapState != xproto.MapStateViewable {
		return nil, fmt.Errorf("window %s is not viewable", w.ID)
	}

	geom, err := xproto.GetGeometry(c.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get window geometry: %w", err)
	}

	drawable, release := c.drawableFor(win)
	defer release()

	reply, err := xproto.GetImage(
		c.conn,
		xproto.ImageFormatZPixmap,
		drawable,
		0, 0,
		geom.Width, geom.Height,
		0xffffffff,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	return c.convertImageData(reply.Data, int(geom.Width), int(geom.Height))
}

// drawableFor returns the Composite backing pixmap for win when possible,
// falling back to the window itself. release must always be called.
func (c *X11Capturer) drawableFor(win xproto.Window) (xproto.Drawable, func()) {
	noop := func() {}
	if !c.compositeEnabled {
		return xproto.Drawable(win), noop
	}

	log := logger.WithComponent("x11-capturer")
	if err := composite.RedirectWindowChecked(c.conn, win, composite.RedirectAutomatic).Check(); err != nil {
		log.Debug().Err(err).Uint32("window_id", uint32(win)).Msg("Composite redirect failed, capturing window directly")
		return xproto.Drawable(win), noop
	}
	unredirect := func() { composite.UnredirectWindow(c.conn, win, composite.RedirectAutomatic) }

	pixmap, err := xproto.NewPixmapId(c.conn)
	if err != nil {
		return xproto.Drawable(win), unredirect
	}
	if err := composite.NameWindowPixmapChecked(c.conn, win, pixmap).Check(); err != nil {
		return xproto.Drawable(win), unredirect
	}

	return xproto.Drawable(pixmap), func() {
		xproto.FreePixmap(c.conn, pixmap)
		unredirect()
	}
}

// convertImageData converts 24/32-bit BGRX Z-pixmap data to RGBA
func (c *X11Capturer) convertImageData(data []byte, width, height int) (*image.RGBA, error) {
	depth := int(c.screen.RootDepth)
	if depth != 24 && depth != 32 {
		return nil, fmt.Errorf("unsupported root depth %d", depth)
	}
	if len(data) < width*height*4 {
		return nil, fmt.Errorf("short image data: %d bytes for %dx%d", len(data), width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		o := i * 4
		img.Pix[o] = data[o+2]
		img.Pix[o+1] = data[o+1]
		img.Pix[o+2] = data[o]
		img.Pix[o+3] = 255
	}
	return img, nil
}
