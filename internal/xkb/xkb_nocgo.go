//go:build !cgo || !(linux || freebsd)

package xkb

import "github.com/bnema/wayskk/internal/keysym"

// Supported reports whether this build links libxkbcommon.
const Supported = false

// Without libxkbcommon no keymap ever compiles and every key is forwarded
// verbatim.
type keymap struct{}

func compileKeymap([]byte) (*keymap, error) {
	return nil, ErrUnsupported
}

func (*keymap) keySym(uint32) keysym.Keysym         { return keysym.NoSymbol }
func (*keymap) updateKey(uint32, bool)              {}
func (*keymap) updateMask(_, _, _, _ uint32)        {}
func (*keymap) modifiers() (ctrl, shift, alt bool) { return false, false, false }
func (*keymap) destroy()                            {}
