package ui

import (
	"testing"

	"github.com/bnema/wayskk/internal/keysym"
	"github.com/bnema/wayskk/internal/skk"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestKeyEvents(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
		want []keysym.Event
	}{
		{"lowercase", runes("a"), []keysym.Event{{Sym: keysym.Keya}}},
		{"uppercase sets shift", runes("A"), []keysym.Event{{Sym: keysym.KeyA, Shift: true}}},
		{"paste splits", runes("ka"), []keysym.Event{{Sym: 'k'}, {Sym: keysym.Keya}}},
		{"non ascii dropped", runes("あ"), []keysym.Event{}},
		{"alt chord", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x"), Alt: true}, []keysym.Event{{Sym: keysym.Keyx, Alt: true}}},
		{"space", tea.KeyMsg{Type: tea.KeySpace}, []keysym.Event{{Sym: keysym.Space}}},
		{"enter", tea.KeyMsg{Type: tea.KeyEnter}, []keysym.Event{{Sym: keysym.Return}}},
		{"ctrl+j", tea.KeyMsg{Type: tea.KeyCtrlJ}, []keysym.Event{{Sym: keysym.Keyj, Ctrl: true}}},
		{"ctrl+g", tea.KeyMsg{Type: tea.KeyCtrlG}, []keysym.Event{{Sym: keysym.Keyg, Ctrl: true}}},
		{"unmapped", tea.KeyMsg{Type: tea.KeyF1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KeyEvents(tt.msg))
		})
	}
}

func TestPlaygroundRoutesKeys(t *testing.T) {
	engine := skk.NewEngine(skk.Ascii, []skk.Dictionary{skk.EmptyDictionary{}})
	m := NewPlaygroundModel(engine)

	send := func(msgs ...tea.KeyMsg) {
		for _, msg := range msgs {
			_, cmd := m.Update(msg)
			require.Nil(t, cmd)
		}
	}

	send(runes("h"), runes("i"))
	assert.Equal(t, "hi", m.Text(), "ascii mode types through")

	send(tea.KeyMsg{Type: tea.KeyCtrlJ})
	assert.Equal(t, skk.Hiragana, engine.InputMode())

	send(runes("k"), runes("a"))
	assert.Equal(t, "hiか", m.Text())

	send(tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, "hi", m.Text(), "backspace with nothing pending edits the text")

	send(runes("A"))
	preedit, ok := engine.Preedit()
	require.True(t, ok)
	assert.Equal(t, "▽あ", preedit)
	assert.Contains(t, m.View(), "あ")

	send(tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Empty(t, m.Text())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.NotNil(t, cmd)
}
