// Package keysym defines the semantic key identities produced by the keymap
// and consumed by the conversion engine.
package keysym

import (
	"fmt"
	"strings"
)

// Keysym is an X11 keysym value as reported by libxkbcommon.
type Keysym uint32

const (
	NoSymbol Keysym = 0x0000

	Space      Keysym = 0x0020
	Exclam     Keysym = 0x0021
	Comma      Keysym = 0x002c
	Minus      Keysym = 0x002d
	Period     Keysym = 0x002e
	Slash      Keysym = 0x002f
	Key0       Keysym = 0x0030
	Key9       Keysym = 0x0039
	Question   Keysym = 0x003f
	KeyA       Keysym = 0x0041
	KeyZ       Keysym = 0x005a
	BracketL   Keysym = 0x005b
	BracketR   Keysym = 0x005d
	Keya       Keysym = 0x0061
	Keyg       Keysym = 0x0067
	Keyj       Keysym = 0x006a
	Keyl       Keysym = 0x006c
	Keyq       Keysym = 0x0071
	Keyx       Keysym = 0x0078
	Keyz       Keysym = 0x007a
	AsciiTilde Keysym = 0x007e

	BackSpace Keysym = 0xff08
	Tab       Keysym = 0xff09
	Return    Keysym = 0xff0d
	Escape    Keysym = 0xff1b
	Left      Keysym = 0xff51
	Up        Keysym = 0xff52
	Right     Keysym = 0xff53
	Down      Keysym = 0xff54
	KPEnter   Keysym = 0xff8d
	ShiftL    Keysym = 0xffe1
	ShiftR    Keysym = 0xffe2
	ControlL  Keysym = 0xffe3
	ControlR  Keysym = 0xffe4
	AltL      Keysym = 0xffe9
	AltR      Keysym = 0xffea
	Delete    Keysym = 0xffff
)

var names = map[Keysym]string{
	NoSymbol:  "NoSymbol",
	Space:     "space",
	BackSpace: "BackSpace",
	Tab:       "Tab",
	Return:    "Return",
	Escape:    "Escape",
	Left:      "Left",
	Up:        "Up",
	Right:     "Right",
	Down:      "Down",
	KPEnter:   "KP_Enter",
	ShiftL:    "Shift_L",
	ShiftR:    "Shift_R",
	ControlL:  "Control_L",
	ControlR:  "Control_R",
	AltL:      "Alt_L",
	AltR:      "Alt_R",
	Delete:    "Delete",
}

// Rune returns the character typed by a printable Latin-1 keysym. Keysyms in
// that range equal their code point.
func (k Keysym) Rune() (rune, bool) {
	if (k >= 0x20 && k <= 0x7e) || (k >= 0xa0 && k <= 0xff) {
		return rune(k), true
	}
	return 0, false
}

// IsModifier reports whether k is a bare modifier key.
func (k Keysym) IsModifier() bool {
	return k >= ShiftL && k <= 0xffee
}

func (k Keysym) String() string {
	if n, ok := names[k]; ok {
		return n
	}
	if r, ok := k.Rune(); ok {
		return string(r)
	}
	return fmt.Sprintf("0x%04x", uint32(k))
}

// Event is a resolved key press with its effective modifiers.
type Event struct {
	Sym   Keysym
	Ctrl  bool
	Shift bool
	Alt   bool
}

// Rune returns the printable character of an unmodified or shifted key.
func (e Event) Rune() (rune, bool) {
	if e.Ctrl || e.Alt {
		return 0, false
	}
	return e.Sym.Rune()
}

// String renders e in Emacs notation, e.g. "C-j" or "M-x".
func (e Event) String() string {
	var b strings.Builder
	if e.Ctrl {
		b.WriteString("C-")
	}
	if e.Alt {
		b.WriteString("M-")
	}
	if e.Shift {
		if _, printable := e.Sym.Rune(); !printable {
			b.WriteString("S-")
		}
	}
	b.WriteString(e.Sym.String())
	return b.String()
}
