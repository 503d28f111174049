package ui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bnema/wayskk/internal/keysym"
	"github.com/bnema/wayskk/internal/skk"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Converter is the conversion engine as the playground drives it.
type Converter interface {
	InputMode() skk.InputMode
	WillProcess(ev keysym.Event) bool
	ProcessKeyEvent(ev keysym.Event)
	Preedit() (string, bool)
	PollOutput() (string, bool)
}

type playgroundKeys struct {
	Quit  key.Binding
	Clear key.Binding
}

func (k playgroundKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Clear}
}

func (k playgroundKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultPlaygroundKeys = playgroundKeys{
	Quit:  key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	Clear: key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear")),
}

var (
	preeditStyle = lipgloss.NewStyle().Underline(true).Foreground(ColorInfo)
	modeStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
)

// PlaygroundModel routes terminal keystrokes through a converter the same
// way the daemon routes grabbed keys: consumed keys go to the engine, the
// rest are typed as is.
type PlaygroundModel struct {
	engine Converter
	keys   playgroundKeys
	help   help.Model
	text   strings.Builder
}

func NewPlaygroundModel(engine Converter) *PlaygroundModel {
	return &PlaygroundModel{
		engine: engine,
		keys:   defaultPlaygroundKeys,
		help:   help.New(),
	}
}

// Text returns everything committed so far.
func (m *PlaygroundModel) Text() string {
	return m.text.String()
}

func (m *PlaygroundModel) Init() tea.Cmd {
	return nil
}

func (m *PlaygroundModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Clear):
			m.text.Reset()
			return m, nil
		}
		for _, ev := range KeyEvents(msg) {
			m.route(ev)
		}
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	}
	return m, nil
}

func (m *PlaygroundModel) route(ev keysym.Event) {
	if !m.engine.WillProcess(ev) {
		m.typeThrough(ev)
		return
	}
	m.engine.ProcessKeyEvent(ev)
	if out, ok := m.engine.PollOutput(); ok {
		m.text.WriteString(out)
	}
}

// typeThrough applies a key the engine passed on, as the focused text field
// would.
func (m *PlaygroundModel) typeThrough(ev keysym.Event) {
	switch ev.Sym {
	case keysym.BackSpace:
		s := m.text.String()
		_, size := utf8.DecodeLastRuneInString(s)
		m.text.Reset()
		m.text.WriteString(s[:len(s)-size])
	case keysym.Return:
		m.text.WriteByte('\n')
	default:
		if r, ok := ev.Rune(); ok {
			m.text.WriteRune(r)
		}
	}
}

func (m *PlaygroundModel) View() string {
	var b strings.Builder
	b.WriteString(FormatHeader("wayskk playground"))
	b.WriteString("\n")
	b.WriteString(FormatKeyValue("mode", modeStyle.Render(m.engine.InputMode().String())))
	b.WriteString("\n\n")
	b.WriteString(m.text.String())
	if preedit, ok := m.engine.Preedit(); ok {
		b.WriteString(preeditStyle.Render(preedit))
	}
	b.WriteString(SubtleStyle.Render("▏"))
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// KeyEvents translates a terminal key press into keysym events. A paste or
// a multi-rune message yields one event per rune.
func KeyEvents(msg tea.KeyMsg) []keysym.Event {
	var ev keysym.Event
	switch msg.Type {
	case tea.KeyRunes:
		evs := make([]keysym.Event, 0, len(msg.Runes))
		for _, r := range msg.Runes {
			if r < 0x20 || r > 0x7e {
				continue
			}
			evs = append(evs, keysym.Event{Sym: keysym.Keysym(r), Shift: unicode.IsUpper(r), Alt: msg.Alt})
		}
		return evs
	case tea.KeySpace:
		ev.Sym = keysym.Space
	case tea.KeyEnter:
		ev.Sym = keysym.Return
	case tea.KeyBackspace:
		ev.Sym = keysym.BackSpace
	case tea.KeyEsc:
		ev.Sym = keysym.Escape
	case tea.KeyTab:
		ev.Sym = keysym.Tab
	case tea.KeyLeft:
		ev.Sym = keysym.Left
	case tea.KeyRight:
		ev.Sym = keysym.Right
	case tea.KeyUp:
		ev.Sym = keysym.Up
	case tea.KeyDown:
		ev.Sym = keysym.Down
	case tea.KeyCtrlJ:
		ev = keysym.Event{Sym: keysym.Keyj, Ctrl: true}
	case tea.KeyCtrlG:
		ev = keysym.Event{Sym: keysym.Keyg, Ctrl: true}
	default:
		return nil
	}
	ev.Alt = msg.Alt
	return []keysym.Event{ev}
}
