package game

import (
	"fmt"
	"strings"

	"github.com/lxn/win"
)

var namedKeys = map[string]uint32{
	"esc":       win.VK_ESCAPE,
	"escape":    win.VK_ESCAPE,
	"enter":     win.VK_RETURN,
	"return":    win.VK_RETURN,
	"space":     win.VK_SPACE,
	"tab":       win.VK_TAB,
	"backspace": win.VK_BACK,
	"up":        win.VK_UP,
	"down":      win.VK_DOWN,
	"left":      win.VK_LEFT,
	"right":     win.VK_RIGHT,
	"home":      win.VK_HOME,
	"end":       win.VK_END,
	"pageup":    win.VK_PRIOR,
	"pagedown":  win.VK_NEXT,
	"f1":        win.VK_F1,
	"f2":        win.VK_F2,
	"f3":        win.VK_F3,
	"f4":        win.VK_F4,
	"f5":        win.VK_F5,
	"f6":        win.VK_F6,
	"f7":        win.VK_F7,
	"f8":        win.VK_F8,
	"f9":        win.VK_F9,
	"f10":       win.VK_F10,
	"f11":       win.VK_F11,
	"f12":       win.VK_F12,
}

// virtualKey resolves a configured key name to a virtual-key code.
// Single letters and digits map straight to their VK codes.
func virtualKey(name string) (uint32, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if vk, ok := namedKeys[key]; ok {
		return vk, nil
	}
	if len(key) == 1 {
		c := key[0]
		if c >= 'a' && c <= 'z' {
			return uint32(c - 'a' + 'A'), nil
		}
		if c >= '0' && c <= '9' {
			return uint32(c), nil
		}
	}
	return 0, fmt.Errorf("unknown key %q", name)
}
