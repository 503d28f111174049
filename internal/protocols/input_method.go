package protocols

import (
	"fmt"
	"os"

	"github.com/bnema/wayskk/internal/wire"
	"golang.org/x/sys/unix"
)

const (
	InputMethodManagerInterface = "zwp_input_method_manager_v2"
	InputMethodInterface        = "zwp_input_method_v2"
	KeyboardGrabInterface       = "zwp_input_method_keyboard_grab_v2"
)

// InputMethodManager is zwp_input_method_manager_v2.
type InputMethodManager struct {
	BaseProxy
}

func (m *InputMethodManager) Interface() string { return InputMethodManagerInterface }

// BindInputMethodManager binds zwp_input_method_manager_v2 version 1.
func (c *Client) BindInputMethodManager() (*InputMethodManager, error) {
	m := &InputMethodManager{BaseProxy: BaseProxy{client: c, id: c.newID()}}
	if _, err := c.bind(InputMethodManagerInterface, 1, m); err != nil {
		return nil, err
	}
	return m, nil
}

// GetInputMethod registers as the input method of seat. Events go to h.
func (m *InputMethodManager) GetInputMethod(seat *Seat, h InputMethodHandler) (*InputMethod, error) {
	im := &InputMethod{
		BaseProxy: BaseProxy{client: m.client, id: m.client.newID()},
		handler:   h,
	}

	// Opcode 0: get_input_method
	req := m.request(0)
	req.PutObject(seat.ID())
	req.PutObject(im.id)
	if err := m.client.send(req); err != nil {
		return nil, err
	}
	m.client.register(im)
	return im, nil
}

func (m *InputMethodManager) Destroy() error {
	if m.destroyed {
		return nil
	}
	m.destroyed = true
	// Opcode 1: destroy
	return m.client.send(m.request(1))
}

func (m *InputMethodManager) dispatch(*wire.Message) error {
	return nil
}

// InputMethod is zwp_input_method_v2.
type InputMethod struct {
	BaseProxy
	handler InputMethodHandler
}

func (im *InputMethod) Interface() string { return InputMethodInterface }

// SetHandler replaces the event receiver.
func (im *InputMethod) SetHandler(h InputMethodHandler) {
	im.handler = h
}

// CommitString queues text to be committed on the next Commit.
func (im *InputMethod) CommitString(text string) error {
	// Opcode 0: commit_string
	req := im.request(0)
	req.PutString(text)
	return im.client.send(req)
}

// SetPreeditString queues preedit text with a cursor span in bytes.
func (im *InputMethod) SetPreeditString(text string, cursorBegin, cursorEnd int32) error {
	// Opcode 1: set_preedit_string
	req := im.request(1)
	req.PutString(text)
	req.PutInt32(cursorBegin)
	req.PutInt32(cursorEnd)
	return im.client.send(req)
}

func (im *InputMethod) DeleteSurroundingText(before, after uint32) error {
	// Opcode 2: delete_surrounding_text
	req := im.request(2)
	req.PutUint32(before)
	req.PutUint32(after)
	return im.client.send(req)
}

// Commit applies the pending preedit, commit and delete requests.
func (im *InputMethod) Commit(serial uint32) error {
	// Opcode 3: commit
	req := im.request(3)
	req.PutUint32(serial)
	return im.client.send(req)
}

// GrabKeyboard requests exclusive keyboard input. Events go to h.
func (im *InputMethod) GrabKeyboard(h KeyboardGrabHandler) (*KeyboardGrab, error) {
	grab := &KeyboardGrab{
		BaseProxy: BaseProxy{client: im.client, id: im.client.newID()},
		handler:   h,
	}

	// Opcode 5: grab_keyboard
	req := im.request(5)
	req.PutObject(grab.id)
	if err := im.client.send(req); err != nil {
		return nil, err
	}
	im.client.register(grab)
	return grab, nil
}

// Destroy destroys the input method, which also ends any keyboard grab.
func (im *InputMethod) Destroy() error {
	if im.destroyed {
		return nil
	}
	im.destroyed = true
	// Opcode 6: destroy
	return im.client.send(im.request(6))
}

func (im *InputMethod) dispatch(msg *wire.Message) error {
	var ev InputMethodEvent
	switch msg.Opcode {
	case 0:
		ev = ActivateEvent{}
	case 1:
		ev = DeactivateEvent{}
	case 2:
		ev = SurroundingTextEvent{
			Text:   msg.ReadString(),
			Cursor: msg.ReadUint32(),
			Anchor: msg.ReadUint32(),
		}
	case 3:
		ev = TextChangeCauseEvent{Cause: ChangeCause(msg.ReadUint32())}
	case 4:
		ev = ContentTypeEvent{Hint: msg.ReadUint32(), Purpose: msg.ReadUint32()}
	case 5:
		ev = DoneEvent{}
	case 6:
		ev = UnavailableEvent{}
	default:
		return fmt.Errorf("%s@%d: unknown event opcode %d", InputMethodInterface, im.id, msg.Opcode)
	}
	if err := msg.Err(); err != nil {
		return err
	}
	if im.destroyed || im.handler == nil {
		return nil
	}
	return im.handler.HandleInputMethodEvent(ev)
}

// KeyboardGrab is zwp_input_method_keyboard_grab_v2.
type KeyboardGrab struct {
	BaseProxy
	handler KeyboardGrabHandler
}

func (g *KeyboardGrab) Interface() string { return KeyboardGrabInterface }

// Release ends the grab.
func (g *KeyboardGrab) Release() error {
	if g.destroyed {
		return nil
	}
	g.destroyed = true
	// Opcode 0: release
	return g.client.send(g.request(0))
}

func (g *KeyboardGrab) dispatch(msg *wire.Message) error {
	var ev KeyboardGrabEvent
	switch msg.Opcode {
	case 0:
		format := KeymapFormat(msg.ReadUint32())
		fd := msg.ReadFd()
		size := msg.ReadUint32()
		if err := msg.Err(); err != nil {
			if fd >= 0 {
				_ = unix.Close(fd)
			}
			return err
		}
		file := os.NewFile(uintptr(fd), "keymap")
		if g.destroyed || g.handler == nil {
			return file.Close()
		}
		ev = KeymapEvent{Format: format, File: file, Size: size}
	case 1:
		ev = KeyEvent{
			Serial: msg.ReadUint32(),
			Time:   msg.ReadUint32(),
			Key:    msg.ReadUint32(),
			State:  KeyState(msg.ReadUint32()),
		}
	case 2:
		ev = ModifiersEvent{
			Serial:    msg.ReadUint32(),
			Depressed: msg.ReadUint32(),
			Latched:   msg.ReadUint32(),
			Locked:    msg.ReadUint32(),
			Group:     msg.ReadUint32(),
		}
	case 3:
		ev = RepeatInfoEvent{Rate: msg.ReadInt32(), Delay: msg.ReadInt32()}
	default:
		return fmt.Errorf("%s@%d: unknown event opcode %d", KeyboardGrabInterface, g.id, msg.Opcode)
	}
	if err := msg.Err(); err != nil {
		return err
	}
	if g.destroyed || g.handler == nil {
		return nil
	}
	return g.handler.HandleKeyboardGrabEvent(ev)
}
