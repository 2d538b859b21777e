package game

import (
	"testing"

	"github.com/lxn/win"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtualKeyNames(t *testing.T) {
	for name, want := range map[string]uint32{
		"esc":    win.VK_ESCAPE,
		"Escape": win.VK_ESCAPE,
		" enter": win.VK_RETURN,
		"space":  win.VK_SPACE,
		"f5":     win.VK_F5,
		"a":      'A',
		"Z":      'Z',
		"7":      '7',
	} {
		vk, err := virtualKey(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, vk, name)
	}
}

func TestVirtualKeyUnknown(t *testing.T) {
	_, err := virtualKey("super+shift")
	assert.Error(t, err)
}
