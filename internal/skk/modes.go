package skk

import (
	"fmt"
	"strings"

	"golang.org/x/text/width"
)

// InputMode selects the character set typed in direct composition.
type InputMode int

const (
	Ascii InputMode = iota
	Hiragana
	Katakana
	Zenkaku
)

func (m InputMode) String() string {
	switch m {
	case Ascii:
		return "ascii"
	case Hiragana:
		return "hiragana"
	case Katakana:
		return "katakana"
	case Zenkaku:
		return "zenkaku"
	default:
		return fmt.Sprintf("InputMode(%d)", int(m))
	}
}

// ParseInputMode accepts the names produced by String.
func ParseInputMode(s string) (InputMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ascii":
		return Ascii, nil
	case "hiragana":
		return Hiragana, nil
	case "katakana":
		return Katakana, nil
	case "zenkaku":
		return Zenkaku, nil
	default:
		return Ascii, fmt.Errorf("unknown input mode %q", s)
	}
}

// CompositionMode is the SKK conversion phase.
type CompositionMode int

const (
	// Direct commits every character as typed.
	Direct CompositionMode = iota
	// PreComposition collects a reading, shown after ▽.
	PreComposition
	// Selection shows a candidate for the reading, after ▼.
	Selection
)

func (m CompositionMode) String() string {
	switch m {
	case Direct:
		return "direct"
	case PreComposition:
		return "precomposition"
	case Selection:
		return "selection"
	default:
		return fmt.Sprintf("CompositionMode(%d)", int(m))
	}
}

const (
	preCompositionMarker = "▽"
	selectionMarker      = "▼"
)

func toKatakana(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'ぁ' && r <= 'ゖ' {
			return r + ('ァ' - 'ぁ')
		}
		return r
	}, s)
}

// kana renders hiragana in the script of mode.
func kana(mode InputMode, s string) string {
	if mode == Katakana {
		return toKatakana(s)
	}
	return s
}

func otherKana(mode InputMode) InputMode {
	if mode == Katakana {
		return Hiragana
	}
	return Katakana
}

func toZenkaku(s string) string {
	return width.Widen.String(s)
}
