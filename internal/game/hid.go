package game

import (
	"sync"
	"time"

	"github.com/lxn/win"

	"github.com/salieri-auto/menunav/internal/utils"
)

const pointerSteps = 12

// HID injects pointer and keyboard events straight into the game
// window's message queue, so the bot keeps working while the window is
// in the background. All coordinates are client-relative.
type HID struct {
	window        *Window
	clickDuration time.Duration

	mu    sync.Mutex
	lastX int
	lastY int
	moved bool
}

func NewHID(window *Window, clickDuration time.Duration) *HID {
	return &HID{window: window, clickDuration: clickDuration}
}

// MovePointer walks the cursor to (x, y) in a handful of interpolated
// hops rather than teleporting it, some menus ignore clicks that are
// not preceded by motion over the button.
func (hid *HID) MovePointer(x, y int) {
	hid.window.updatePosition()
	leftX, topY, _, _ := hid.window.Geometry()
	absX := leftX + x
	absY := topY + y

	hid.mu.Lock()
	startX, startY, moved := hid.lastX, hid.lastY, hid.moved
	hid.lastX, hid.lastY, hid.moved = absX, absY, true
	hid.mu.Unlock()

	if moved {
		for i := 1; i < pointerSteps; i++ {
			ix := startX + (absX-startX)*i/pointerSteps
			iy := startY + (absY-startY)*i/pointerSteps
			win.PostMessage(hid.window.HWND, win.WM_MOUSEMOVE, 0, calculateLparam(ix, iy))
			utils.Sleep(4)
		}
	}

	lParam := calculateLparam(absX, absY)
	win.SendMessage(hid.window.HWND, win.WM_NCHITTEST, 0, lParam)
	win.SendMessage(hid.window.HWND, win.WM_SETCURSOR, 0x000105A8, 0x2010001)
	win.PostMessage(hid.window.HWND, win.WM_MOUSEMOVE, 0, lParam)
}

// Click presses and releases the left button at (x, y), holding it
// down for the configured click duration.
func (hid *HID) Click(x, y int) error {
	hid.MovePointer(x, y)

	leftX, topY, _, _ := hid.window.Geometry()
	lParam := calculateLparam(leftX+x, topY+y)

	win.SendMessage(hid.window.HWND, win.WM_LBUTTONDOWN, 1, lParam)
	utils.Sleep(int(hid.clickDuration.Milliseconds()))
	win.SendMessage(hid.window.HWND, win.WM_LBUTTONUP, 1, lParam)
	return nil
}

// PressKey taps a key by its configured name, e.g. "esc".
func (hid *HID) PressKey(key string) error {
	vk, err := virtualKey(key)
	if err != nil {
		return err
	}

	win.SendMessage(hid.window.HWND, win.WM_KEYDOWN, uintptr(vk), 0)
	utils.Sleep(60)
	win.SendMessage(hid.window.HWND, win.WM_KEYUP, uintptr(vk), 0)
	return nil
}

func calculateLparam(x, y int) uintptr {
	return uintptr(y<<16 | x)
}
