//go:build windows

package window

import (
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"unsafe"

	"github.com/bryanchriswhite/CaptureDeck/internal/logger"
	"golang.org/x/sys/windows"
)

var (
	user32                   = windows.NewLazySystemDLL("user32.dll")
	procGetWindowTextW       = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW = user32.NewProc("GetWindowTextLengthW")
	procGetWindowRect        = user32.NewProc("GetWindowRect")
)

// EnumWindows results, collected through a single callback
var (
	enumMu       sync.Mutex
	enumFound    []windows.HWND
	enumCallback = syscall.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		enumFound = append(enumFound, hwnd)
		return 1 // continue
	})
)

// Win32Backend implements the Backend interface using the Win32 window list
type Win32Backend struct{}

// NewWin32Backend checks that user32 is usable
func NewWin32Backend() (*Win32Backend, error) {
	if err := procGetWindowTextW.Find(); err != nil {
		return nil, fmt.Errorf("failed to load user32.dll: %w", err)
	}
	return &Win32Backend{}, nil
}

// Close is a no-op; there is no connection to release
func (b *Win32Backend) Close() error {
	return nil
}

// Name returns the backend name
func (b *Win32Backend) Name() string {
	return "win32"
}

// ListWindows returns visible top-level windows in z-order
func (b *Win32Backend) ListWindows() ([]Descriptor, error) {
	enumMu.Lock()
	enumFound = nil
	err := windows.EnumWindows(enumCallback, nil)
	handles := append([]windows.HWND(nil), enumFound...)
	enumMu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("failed to enumerate windows: %w", err)
	}

	windowList := make([]Descriptor, 0, len(handles))
	for _, hwnd := range handles {
		if !windows.IsWindowVisible(hwnd) {
			continue
		}
		info := describeHWND(hwnd)
		if info.Title == "" && info.AppName == "" {
			continue
		}
		windowList = append(windowList, info)
	}

	logger.WithComponent("win32-backend").Debug().Int("count", len(windowList)).Msg("Listed windows")
	return windowList, nil
}

func describeHWND(hwnd windows.HWND) Descriptor {
	info := Descriptor{
		ID:    strconv.FormatUint(uint64(hwnd), 10),
		Title: windowText(hwnd),
	}

	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err == nil {
		info.PID = int(pid)
		info.AppName = processName(pid)
	}

	var r windows.Rect
	if ret, _, _ := procGetWindowRect.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&r))); ret != 0 {
		info.Geometry = Geometry{
			X:      int(r.Left),
			Y:      int(r.Top),
			Width:  int(r.Right - r.Left),
			Height: int(r.Bottom - r.Top),
		}
	}
	return info
}

func windowText(hwnd windows.HWND) string {
	n, _, _ := procGetWindowTextLengthW.Call(uintptr(hwnd))
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf)
}

// processName returns the executable file name, e.g. notepad.exe
func processName(pid uint32) string {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return ""
	}
	return filepath.Base(windows.UTF16ToString(buf[:size]))
}
