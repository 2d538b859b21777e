package game

import (
	"fmt"
	"image"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/lxn/win"

	"github.com/salieri-auto/menunav/internal/utils/winproc"
)

type rect struct{ Left, Top, Right, Bottom int32 }

// Window wraps the native handle of the game window plus the cached
// client-area geometry everything else works in. Coordinates handed to
// the capture and input layers are client-relative, (0, 0) at the
// top-left of the client area.
type Window struct {
	HWND  win.HWND
	Title string

	mu     sync.Mutex
	leftX  int
	topY   int
	width  int
	height int
}

// FindWindow locates the game window by its exact title.
func FindWindow(title string) (*Window, error) {
	winproc.SetProcessDpiAware.Call()

	ptr, err := syscall.UTF16PtrFromString(title)
	if err != nil {
		return nil, err
	}
	hwnd, _, _ := winproc.FindWindow.Call(0, uintptr(unsafe.Pointer(ptr)))
	if hwnd == 0 {
		return nil, fmt.Errorf("window %q not found", title)
	}

	w := &Window{HWND: win.HWND(hwnd), Title: title}
	w.updatePosition()
	return w, nil
}

// Focus restores the window when minimised and brings it to the
// foreground so captures show live content.
func (w *Window) Focus() {
	if iconic, _, _ := winproc.IsIconic.Call(uintptr(w.HWND)); iconic != 0 {
		win.ShowWindow(w.HWND, win.SW_RESTORE)
		time.Sleep(300 * time.Millisecond)
	}
	winproc.SetForegroundWin.Call(uintptr(w.HWND))
	w.updatePosition()
}

// updatePosition refreshes the cached client rect. The window can be
// dragged around mid-run, so callers refresh before injecting events.
func (w *Window) updatePosition() {
	var rc rect
	winproc.GetClientRect.Call(uintptr(w.HWND), uintptr(unsafe.Pointer(&rc)))

	var point struct{ X, Y int32 }
	winproc.ClientToScreen.Call(uintptr(w.HWND), uintptr(unsafe.Pointer(&point)))

	w.mu.Lock()
	w.leftX = int(point.X)
	w.topY = int(point.Y)
	w.width = int(rc.Right - rc.Left)
	w.height = int(rc.Bottom - rc.Top)
	w.mu.Unlock()
}

// Geometry returns the screen position of the client-area origin and
// its size.
func (w *Window) Geometry() (leftX, topY, width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.leftX, w.topY, w.width, w.height
}

func (w *Window) Bounds() image.Rectangle {
	_, _, width, height := w.Geometry()
	return image.Rect(0, 0, width, height)
}
