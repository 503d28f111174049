package protocols

import "os"

// InputMethodEvent is one of the zwp_input_method_v2 events:
// ActivateEvent, DeactivateEvent, SurroundingTextEvent, TextChangeCauseEvent,
// ContentTypeEvent, DoneEvent or UnavailableEvent.
type InputMethodEvent interface {
	inputMethodEvent()
}

// ActivateEvent marks the input method as requested by the focused text input.
// It takes effect on the next DoneEvent.
type ActivateEvent struct{}

// DeactivateEvent withdraws the activation request. It takes effect on the
// next DoneEvent.
type DeactivateEvent struct{}

type SurroundingTextEvent struct {
	Text   string
	Cursor uint32
	Anchor uint32
}

type TextChangeCauseEvent struct {
	Cause ChangeCause
}

type ContentTypeEvent struct {
	Hint    uint32
	Purpose uint32
}

// DoneEvent atomically applies every state change sent since the previous one.
type DoneEvent struct{}

// UnavailableEvent means the compositor revoked the input method. The object
// is inert afterwards and should be destroyed.
type UnavailableEvent struct{}

func (ActivateEvent) inputMethodEvent()        {}
func (DeactivateEvent) inputMethodEvent()      {}
func (SurroundingTextEvent) inputMethodEvent() {}
func (TextChangeCauseEvent) inputMethodEvent() {}
func (ContentTypeEvent) inputMethodEvent()     {}
func (DoneEvent) inputMethodEvent()            {}
func (UnavailableEvent) inputMethodEvent()     {}

// ChangeCause is zwp_text_input_v3.change_cause.
type ChangeCause uint32

const (
	ChangeCauseInputMethod ChangeCause = 0
	ChangeCauseOther       ChangeCause = 1
)

// KeyboardGrabEvent is one of the zwp_input_method_keyboard_grab_v2 events:
// KeymapEvent, KeyEvent, ModifiersEvent or RepeatInfoEvent.
type KeyboardGrabEvent interface {
	keyboardGrabEvent()
}

// KeymapEvent carries the keymap of the grabbed keyboard. The receiver owns
// File and must close it.
type KeymapEvent struct {
	Format KeymapFormat
	File   *os.File
	Size   uint32
}

type KeyEvent struct {
	Serial uint32
	Time   uint32
	Key    uint32
	State  KeyState
}

type ModifiersEvent struct {
	Serial    uint32
	Depressed uint32
	Latched   uint32
	Locked    uint32
	Group     uint32
}

type RepeatInfoEvent struct {
	Rate  int32
	Delay int32
}

func (KeymapEvent) keyboardGrabEvent()     {}
func (KeyEvent) keyboardGrabEvent()        {}
func (ModifiersEvent) keyboardGrabEvent()  {}
func (RepeatInfoEvent) keyboardGrabEvent() {}

// KeymapFormat is wl_keyboard.keymap_format.
type KeymapFormat uint32

const (
	KeymapFormatNoKeymap KeymapFormat = 0
	KeymapFormatXkbV1    KeymapFormat = 1
)

func (f KeymapFormat) String() string {
	switch f {
	case KeymapFormatNoKeymap:
		return "no_keymap"
	case KeymapFormatXkbV1:
		return "xkb_v1"
	default:
		return "unknown"
	}
}

// KeyState is wl_keyboard.key_state.
type KeyState uint32

const (
	KeyStateReleased KeyState = 0
	KeyStatePressed  KeyState = 1
)

func (s KeyState) String() string {
	if s == KeyStatePressed {
		return "pressed"
	}
	return "released"
}

// InputMethodHandler receives input method events in delivery order.
// A non-nil error aborts the current dispatch pass.
type InputMethodHandler interface {
	HandleInputMethodEvent(ev InputMethodEvent) error
}

// KeyboardGrabHandler receives keyboard grab events in delivery order.
type KeyboardGrabHandler interface {
	HandleKeyboardGrabEvent(ev KeyboardGrabEvent) error
}
