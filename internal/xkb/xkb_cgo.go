//go:build cgo && (linux || freebsd)

package xkb

/*
#cgo LDFLAGS: -lxkbcommon
#cgo freebsd CFLAGS: -I/usr/local/include
#cgo freebsd LDFLAGS: -L/usr/local/lib

#include <stdlib.h>
#include <xkbcommon/xkbcommon.h>
*/
import "C"

import (
	"errors"
	"unsafe"

	"github.com/bnema/wayskk/internal/keysym"
)

var (
	modNameCtrl  = []byte("Control\x00")
	modNameShift = []byte("Shift\x00")
	modNameAlt   = []byte("Mod1\x00")
)

const Supported = true

// keymap is a compiled libxkbcommon keymap with its live state.
type keymap struct {
	ctx   *C.struct_xkb_context
	km    *C.struct_xkb_keymap
	state *C.struct_xkb_state
}

func compileKeymap(text []byte) (*keymap, error) {
	if len(text) == 0 {
		return nil, errors.New("empty keymap")
	}
	k := &keymap{ctx: C.xkb_context_new(C.XKB_CONTEXT_NO_FLAGS)}
	if k.ctx == nil {
		return nil, errors.New("xkb_context_new failed")
	}
	k.km = C.xkb_keymap_new_from_buffer(k.ctx, (*C.char)(unsafe.Pointer(&text[0])), C.size_t(len(text)), C.XKB_KEYMAP_FORMAT_TEXT_V1, C.XKB_KEYMAP_COMPILE_NO_FLAGS)
	if k.km == nil {
		k.destroy()
		return nil, errors.New("xkb_keymap_new_from_buffer failed")
	}
	k.state = C.xkb_state_new(k.km)
	if k.state == nil {
		k.destroy()
		return nil, errors.New("xkb_state_new failed")
	}
	return k, nil
}

func (k *keymap) keySym(keycode uint32) keysym.Keysym {
	return keysym.Keysym(C.xkb_state_key_get_one_sym(k.state, C.xkb_keycode_t(keycode)))
}

func (k *keymap) updateKey(keycode uint32, down bool) {
	dir := C.enum_xkb_key_direction(C.XKB_KEY_UP)
	if down {
		dir = C.XKB_KEY_DOWN
	}
	C.xkb_state_update_key(k.state, C.xkb_keycode_t(keycode), dir)
}

func (k *keymap) updateMask(depressed, latched, locked, group uint32) {
	C.xkb_state_update_mask(k.state, C.xkb_mod_mask_t(depressed), C.xkb_mod_mask_t(latched), C.xkb_mod_mask_t(locked), 0, 0, C.xkb_layout_index_t(group))
}

func (k *keymap) modActive(name []byte) bool {
	return C.xkb_state_mod_name_is_active(k.state, (*C.char)(unsafe.Pointer(&name[0])), C.XKB_STATE_MODS_EFFECTIVE) == 1
}

func (k *keymap) modifiers() (ctrl, shift, alt bool) {
	return k.modActive(modNameCtrl), k.modActive(modNameShift), k.modActive(modNameAlt)
}

func (k *keymap) destroy() {
	if k.state != nil {
		C.xkb_state_unref(k.state)
		k.state = nil
	}
	if k.km != nil {
		C.xkb_keymap_unref(k.km)
		k.km = nil
	}
	if k.ctx != nil {
		C.xkb_context_unref(k.ctx)
		k.ctx = nil
	}
}
