// Package skk implements an SKK kana-kanji conversion engine driven by
// semantic key events.
package skk

import (
	"errors"
	"strings"
	"unicode"

	"github.com/bnema/wayskk/internal/keysym"
	"github.com/bnema/wayskk/internal/logger"
)

// Engine holds the composition state of one input context.
type Engine struct {
	input InputMode
	comp  CompositionMode
	dicts []Dictionary

	romaji  romaji
	reading strings.Builder // hiragana collected in PreComposition

	// okuri conversion, started by an uppercase letter inside ▽
	okuri       bool
	okuriPrefix rune
	okuriKana   string

	candidates []Candidate
	index      int

	output strings.Builder
}

// NewEngine starts in Direct composition with the given input mode. dicts
// are consulted in order.
func NewEngine(mode InputMode, dicts []Dictionary) *Engine {
	return &Engine{input: mode, dicts: dicts}
}

func (e *Engine) InputMode() InputMode {
	return e.input
}

func (e *Engine) CompositionMode() CompositionMode {
	return e.comp
}

func isCtrl(ev keysym.Event, sym keysym.Keysym) bool {
	return ev.Ctrl && !ev.Alt && ev.Sym == sym
}

// WillProcess reports whether ProcessKeyEvent would consume ev in the
// current state. Alt chords are never consumed.
func (e *Engine) WillProcess(ev keysym.Event) bool {
	if ev.Alt || ev.Sym.IsModifier() {
		return false
	}
	if e.input == Ascii && e.comp == Direct {
		return isCtrl(ev, keysym.Keyj)
	}
	if e.input == Zenkaku && e.comp == Direct {
		if isCtrl(ev, keysym.Keyj) {
			return true
		}
		_, ok := ev.Rune()
		return ok
	}

	switch e.comp {
	case Direct:
		pending := e.romaji.pending != ""
		if ev.Ctrl {
			return (isCtrl(ev, keysym.Keyj) || isCtrl(ev, keysym.Keyg)) && pending
		}
		if ev.Sym == keysym.BackSpace {
			return pending
		}
		r, ok := ev.Rune()
		if !ok {
			return false
		}
		return pending || isRomajiStart(r)
	default:
		if ev.Ctrl {
			return isCtrl(ev, keysym.Keyj) || isCtrl(ev, keysym.Keyg)
		}
		switch ev.Sym {
		case keysym.Return, keysym.KPEnter, keysym.BackSpace, keysym.Escape:
			return true
		}
		_, ok := ev.Rune()
		return ok
	}
}

func isRomajiStart(r rune) bool {
	if (r >= 'A' && r <= 'Z') || r == 'l' || r == 'q' {
		return true
	}
	_, ok := romajiTable[string(r)]
	return ok || romajiPrefixes[string(r)]
}

// ProcessKeyEvent feeds ev into the state machine. Callers are expected to
// consult WillProcess first; unconsumable events are ignored.
func (e *Engine) ProcessKeyEvent(ev keysym.Event) {
	if !e.WillProcess(ev) {
		return
	}
	logger.Debug("Engine key", "key", ev.String(), "input", e.input, "composition", e.comp)

	switch e.comp {
	case Selection:
		e.processSelection(ev)
	case PreComposition:
		e.processPreComposition(ev)
	default:
		e.processDirect(ev)
	}
}

func (e *Engine) processDirect(ev keysym.Event) {
	switch e.input {
	case Ascii:
		if isCtrl(ev, keysym.Keyj) {
			e.input = Hiragana
		}
		return
	case Zenkaku:
		if isCtrl(ev, keysym.Keyj) {
			e.input = Hiragana
			return
		}
		if r, ok := ev.Rune(); ok {
			e.output.WriteString(toZenkaku(string(r)))
		}
		return
	}

	switch {
	case isCtrl(ev, keysym.Keyj):
		e.output.WriteString(kana(e.input, e.romaji.flush()))
		return
	case isCtrl(ev, keysym.Keyg):
		e.romaji.reset()
		return
	case ev.Sym == keysym.BackSpace:
		e.romaji.backspace()
		return
	}

	r, _ := ev.Rune()
	if e.romaji.pending == "" {
		switch r {
		case 'l':
			e.input = Ascii
			return
		case 'L':
			e.input = Zenkaku
			return
		case 'q':
			e.input = otherKana(e.input)
			return
		}
	}
	if r >= 'A' && r <= 'Z' {
		e.output.WriteString(kana(e.input, e.romaji.flush()))
		e.comp = PreComposition
		e.reading.WriteString(e.romaji.feed(unicode.ToLower(r)))
		return
	}
	e.output.WriteString(kana(e.input, e.romaji.feed(r)))
}

func (e *Engine) processPreComposition(ev keysym.Event) {
	switch {
	case isCtrl(ev, keysym.Keyg), ev.Sym == keysym.Escape:
		e.resetComposition()
		return
	case isCtrl(ev, keysym.Keyj), ev.Sym == keysym.Return, ev.Sym == keysym.KPEnter:
		e.commitReading(e.input)
		return
	case ev.Sym == keysym.BackSpace:
		switch {
		case e.romaji.pending != "":
			e.romaji.backspace()
		case e.okuri:
			e.okuri = false
			e.okuriKana = ""
		case e.reading.Len() > 0:
			rs := []rune(e.reading.String())
			e.reading.Reset()
			e.reading.WriteString(string(rs[:len(rs)-1]))
		default:
			e.resetComposition()
		}
		return
	}

	r, _ := ev.Rune()
	if e.okuri {
		e.feedOkuri(unicode.ToLower(r))
		return
	}
	switch {
	case r == ' ':
		e.reading.WriteString(e.romaji.flush())
		e.startConversion()
	case r == 'q':
		e.commitReading(otherKana(e.input))
	case r == 'l' && e.romaji.pending == "":
		e.commitReading(e.input)
		e.input = Ascii
	case r >= 'A' && r <= 'Z' && e.reading.Len() > 0:
		e.reading.WriteString(e.romaji.flush())
		e.okuri = true
		e.okuriPrefix = unicode.ToLower(r)
		e.feedOkuri(e.okuriPrefix)
	default:
		e.reading.WriteString(e.romaji.feed(unicode.ToLower(r)))
	}
}

// feedOkuri collects okurigana; the conversion starts once it forms kana.
func (e *Engine) feedOkuri(r rune) {
	e.okuriKana += e.romaji.feed(r)
	if e.okuriKana != "" && e.romaji.pending == "" {
		e.startConversion()
	}
}

func (e *Engine) lookupKey() (string, bool) {
	if e.okuri {
		return e.reading.String() + string(e.okuriPrefix), true
	}
	return e.reading.String(), false
}

func (e *Engine) startConversion() {
	key, okuri := e.lookupKey()
	e.candidates = e.lookup(key, okuri)
	if len(e.candidates) == 0 {
		logger.Debug("No candidates", "reading", key)
		if e.okuri {
			e.okuri = false
			e.reading.WriteString(e.okuriKana)
			e.okuriKana = ""
		}
		return
	}
	e.index = 0
	e.comp = Selection
}

func (e *Engine) lookup(reading string, okuri bool) []Candidate {
	var out []Candidate
	seen := make(map[string]bool)
	for _, d := range e.dicts {
		for _, c := range d.Lookup(reading, okuri) {
			if !seen[c.Text] {
				seen[c.Text] = true
				out = append(out, c)
			}
		}
	}
	return out
}

func (e *Engine) processSelection(ev keysym.Event) {
	switch {
	case isCtrl(ev, keysym.Keyg), ev.Sym == keysym.Escape, ev.Sym == keysym.BackSpace:
		e.cancelSelection()
		return
	case isCtrl(ev, keysym.Keyj), ev.Sym == keysym.Return, ev.Sym == keysym.KPEnter:
		e.commitCandidate()
		return
	}

	r, _ := ev.Rune()
	switch r {
	case ' ':
		if e.index < len(e.candidates)-1 {
			e.index++
		}
	case 'x':
		if e.index == 0 {
			e.cancelSelection()
			return
		}
		e.index--
	default:
		// Any other character commits and starts over in Direct.
		e.commitCandidate()
		if e.WillProcess(ev) {
			e.processDirect(ev)
		} else if r, ok := ev.Rune(); ok {
			e.output.WriteRune(r)
		}
	}
}

func (e *Engine) cancelSelection() {
	e.comp = PreComposition
	e.candidates = nil
	e.index = 0
	e.okuri = false
	e.okuriKana = ""
}

func (e *Engine) commitCandidate() {
	c := e.candidates[e.index]
	key, okuri := e.lookupKey()
	for _, d := range e.dicts {
		if l, ok := d.(Learner); ok {
			l.Learn(key, okuri, c)
		}
	}
	e.output.WriteString(c.Text)
	e.output.WriteString(kana(e.input, e.okuriKana))
	e.resetComposition()
}

func (e *Engine) commitReading(mode InputMode) {
	text := e.reading.String() + e.romaji.flush()
	e.output.WriteString(kana(mode, text))
	e.resetComposition()
}

func (e *Engine) resetComposition() {
	e.comp = Direct
	e.romaji.reset()
	e.reading.Reset()
	e.candidates = nil
	e.index = 0
	e.okuri = false
	e.okuriPrefix = 0
	e.okuriKana = ""
}

// Preedit returns the text under composition, if any.
func (e *Engine) Preedit() (string, bool) {
	var s string
	switch e.comp {
	case Direct:
		s = e.romaji.pending
	case PreComposition:
		s = preCompositionMarker + kana(e.input, e.reading.String())
		if e.okuri {
			s += "*" + kana(e.input, e.okuriKana)
		}
		s += e.romaji.pending
	case Selection:
		s = selectionMarker + e.candidates[e.index].Text + kana(e.input, e.okuriKana)
	}
	return s, s != ""
}

// PollOutput returns and clears the text committed since the last call.
func (e *Engine) PollOutput() (string, bool) {
	if e.output.Len() == 0 {
		return "", false
	}
	s := e.output.String()
	e.output.Reset()
	return s, true
}

// SaveState writes back every user dictionary.
func (e *Engine) SaveState() error {
	var errs []error
	for _, d := range e.dicts {
		if l, ok := d.(Learner); ok {
			if err := l.Save(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
