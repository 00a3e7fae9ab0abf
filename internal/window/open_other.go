//go:build !windows

package window

func openBackend() (Backend, error) {
	return NewX11Backend()
}
