package xkb

import (
	"github.com/bnema/wayskk/internal/logger"
	"github.com/bnema/wayskk/internal/protocols"
)

// xkbV1Offset is the distance between evdev scancodes and xkb keycodes.
const xkbV1Offset = 8

// Keycode maps a raw scancode from the keyboard grab to the keycode the
// compiled keymap expects.
func Keycode(format protocols.KeymapFormat, scancode uint32) uint32 {
	switch format {
	case protocols.KeymapFormatXkbV1:
		return scancode + xkbV1Offset
	case protocols.KeymapFormatNoKeymap:
		return scancode
	default:
		logger.Warn("Undefined keymap format, using raw keycode", "format", uint32(format))
		return scancode
	}
}
