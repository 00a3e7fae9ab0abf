package capture

import (
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/CaptureDeck/internal/window"
)

var fakeScreen24 = xproto.ScreenInfo{RootDepth: 24}

type fakeCapturer struct {
	name   string
	img    *image.RGBA
	err    error
	calls  int
	closed bool
}

func (f *fakeCapturer) CaptureWindow(*window.Descriptor) (*image.RGBA, error) {
	f.calls++
	return f.img, f.err
}
func (f *fakeCapturer) Name() string { return f.name }
func (f *fakeCapturer) Close() error { f.closed = true; return nil }

func TestRouterUsesFirstSuccess(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	first := &fakeCapturer{name: "x11", img: img}
	second := &fakeCapturer{name: "region", err: errors.New("unused")}

	got, err := NewRouter(first, second).CaptureWindow(&window.Descriptor{ID: "1"})
	if err != nil {
		t.Fatalf("CaptureWindow() error = %v", err)
	}
	if got != img {
		t.Error("expected image from first capturer")
	}
	if second.calls != 0 {
		t.Error("second capturer should not be called")
	}
}

func TestRouterFallsBack(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	first := &fakeCapturer{name: "x11", err: errors.New("not viewable")}
	second := &fakeCapturer{name: "region", img: img}

	got, err := NewRouter(first, second).CaptureWindow(&window.Descriptor{ID: "1"})
	if err != nil {
		t.Fatalf("CaptureWindow() error = %v", err)
	}
	if got != img {
		t.Error("expected image from fallback capturer")
	}
}

func TestRouterJoinsErrors(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	r := NewRouter(&fakeCapturer{name: "a", err: errA}, &fakeCapturer{name: "b", err: errB})

	_, err := r.CaptureWindow(&window.Descriptor{ID: "1"})
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("error = %v, want both capturer errors", err)
	}
}

func TestRouterEmpty(t *testing.T) {
	if _, err := NewRouter().CaptureWindow(&window.Descriptor{ID: "9"}); err == nil {
		t.Error("expected error with no capturers")
	}
}

func TestRouterClose(t *testing.T) {
	a := &fakeCapturer{name: "a"}
	r := NewRouter(a)
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if !a.closed {
		t.Error("capturer should be closed")
	}
}

func TestRegionCapturerUsesGeometry(t *testing.T) {
	var gotRect image.Rectangle
	c := &RegionCapturer{
		displays: func() int { return 1 },
		grab: func(r image.Rectangle) (*image.RGBA, error) {
			gotRect = r
			return image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy())), nil
		},
	}

	w := &window.Descriptor{ID: "1", Geometry: window.Geometry{X: 10, Y: 20, Width: 300, Height: 200}}
	img, err := c.CaptureWindow(w)
	if err != nil {
		t.Fatalf("CaptureWindow() error = %v", err)
	}
	if want := image.Rect(10, 20, 310, 220); gotRect != want {
		t.Errorf("rect = %v, want %v", gotRect, want)
	}
	if img.Bounds().Dx() != 300 {
		t.Errorf("width = %d, want 300", img.Bounds().Dx())
	}
}

func TestRegionCapturerRejectsEmptyGeometry(t *testing.T) {
	c := &RegionCapturer{
		displays: func() int { return 1 },
		grab: func(image.Rectangle) (*image.RGBA, error) {
			t.Fatal("grab should not be called")
			return nil, nil
		},
	}
	if _, err := c.CaptureWindow(&window.Descriptor{ID: "1"}); err == nil {
		t.Error("expected error for empty geometry")
	}
}

func TestRegionCapturerNoDisplays(t *testing.T) {
	c := &RegionCapturer{displays: func() int { return 0 }}
	w := &window.Descriptor{ID: "1", Geometry: window.Geometry{Width: 1, Height: 1}}

	_, err := c.CaptureWindow(w)
	if err == nil || !strings.Contains(err.Error(), "no active displays") {
		t.Errorf("error = %v, want no active displays", err)
	}
}

func TestConvertImageData(t *testing.T) {
	c := &X11Capturer{screen: &fakeScreen24}
	// two BGRX pixels: pure blue, pure red
	data := []byte{255, 0, 0, 0, 0, 0, 255, 0}

	img, err := c.convertImageData(data, 2, 1)
	if err != nil {
		t.Fatalf("convertImageData() error = %v", err)
	}
	if p := img.RGBAAt(0, 0); p.B != 255 || p.R != 0 || p.A != 255 {
		t.Errorf("pixel 0 = %+v, want blue", p)
	}
	if p := img.RGBAAt(1, 0); p.R != 255 || p.B != 0 {
		t.Errorf("pixel 1 = %+v, want red", p)
	}

	if _, err := c.convertImageData(data[:4], 2, 1); err == nil {
		t.Error("expected error for short data")
	}
}
