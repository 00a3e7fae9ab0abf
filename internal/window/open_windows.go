//go:build windows

package window

func openBackend() (Backend, error) {
	return NewWin32Backend()
}
