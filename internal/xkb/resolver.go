// Package xkb turns grabbed scancodes into keysyms using the keymap the
// compositor announces.
package xkb

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/bnema/wayskk/internal/keysym"
	"github.com/bnema/wayskk/internal/protocols"
	"golang.org/x/sys/unix"
)

var (
	// ErrUnsupported is returned by Compile in builds without libxkbcommon.
	ErrUnsupported = errors.New("keymap compilation requires cgo and libxkbcommon")
	// ErrKeymapFormat is returned for keymaps that are not xkb_v1 text.
	ErrKeymapFormat = errors.New("keymap format cannot be compiled")
)

// Resolver tracks one compiled keymap and its modifier state.
type Resolver struct {
	format protocols.KeymapFormat
	km     *keymap
}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Compile maps size bytes of fd and compiles them. The caller keeps
// ownership of fd. Calling Compile on a ready resolver is a no-op.
func (r *Resolver) Compile(format protocols.KeymapFormat, fd int, size uint32) error {
	if r.km != nil {
		return nil
	}
	r.format = format
	if format != protocols.KeymapFormatXkbV1 {
		return fmt.Errorf("%w: %s", ErrKeymapFormat, format)
	}
	if size == 0 {
		return errors.New("empty keymap")
	}

	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return fmt.Errorf("mmap keymap: %w", err)
	}
	defer func() { _ = unix.Munmap(data) }()

	km, err := compileKeymap(bytes.TrimRight(data, "\x00"))
	if err != nil {
		return err
	}
	r.km = km
	return nil
}

// Ready reports whether a keymap has been compiled.
func (r *Resolver) Ready() bool {
	return r.km != nil
}

// Resolve looks up the keysym of scancode, then feeds the key transition
// into the state. The modifiers reported are the effective ones after the
// transition.
func (r *Resolver) Resolve(scancode uint32, pressed bool) (keysym.Event, bool) {
	if r.km == nil {
		return keysym.Event{}, false
	}
	code := Keycode(r.format, scancode)
	ev := keysym.Event{Sym: r.km.keySym(code)}
	r.km.updateKey(code, pressed)
	ev.Ctrl, ev.Shift, ev.Alt = r.km.modifiers()
	return ev, true
}

// UpdateMask applies a wl_keyboard.modifiers style mask.
func (r *Resolver) UpdateMask(depressed, latched, locked, group uint32) {
	if r.km == nil {
		return
	}
	r.km.updateMask(depressed, latched, locked, group)
}

func (r *Resolver) Close() {
	if r.km != nil {
		r.km.destroy()
		r.km = nil
	}
}
