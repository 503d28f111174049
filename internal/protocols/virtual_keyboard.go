package protocols

import (
	"fmt"

	"github.com/bnema/wayskk/internal/wire"
)

// Protocol interface names for virtual keyboard
const (
	VirtualKeyboardManagerInterface = "zwp_virtual_keyboard_manager_v1"
	VirtualKeyboardInterface        = "zwp_virtual_keyboard_v1"
)

// VirtualKeyboardManager is zwp_virtual_keyboard_manager_v1.
type VirtualKeyboardManager struct {
	BaseProxy
}

func (m *VirtualKeyboardManager) Interface() string { return VirtualKeyboardManagerInterface }

// BindVirtualKeyboardManager binds zwp_virtual_keyboard_manager_v1 version 1.
func (c *Client) BindVirtualKeyboardManager() (*VirtualKeyboardManager, error) {
	m := &VirtualKeyboardManager{BaseProxy: BaseProxy{client: c, id: c.newID()}}
	if _, err := c.bind(VirtualKeyboardManagerInterface, 1, m); err != nil {
		return nil, err
	}
	return m, nil
}

// CreateVirtualKeyboard creates a new virtual keyboard on seat
func (m *VirtualKeyboardManager) CreateVirtualKeyboard(seat *Seat) (*VirtualKeyboard, error) {
	keyboard := &VirtualKeyboard{BaseProxy: BaseProxy{client: m.client, id: m.client.newID()}}

	// Opcode 0: create_virtual_keyboard
	req := m.request(0)
	req.PutObject(seat.ID())
	req.PutObject(keyboard.id)
	if err := m.client.send(req); err != nil {
		return nil, err
	}
	m.client.register(keyboard)
	return keyboard, nil
}

// Destroy forgets the manager. The protocol has no destructor for it.
func (m *VirtualKeyboardManager) Destroy() error {
	m.destroyed = true
	return nil
}

// Virtual keyboard manager has no events
func (m *VirtualKeyboardManager) dispatch(*wire.Message) error {
	return nil
}

// VirtualKeyboard is zwp_virtual_keyboard_v1: an emulated keyboard whose
// keys reach the focused client as if typed on hardware.
type VirtualKeyboard struct {
	BaseProxy
}

func (k *VirtualKeyboard) Interface() string { return VirtualKeyboardInterface }

// Keymap sets the keyboard mapping. fd stays owned by the caller.
func (k *VirtualKeyboard) Keymap(format uint32, fd int, size uint32) error {
	if fd < 0 {
		return fmt.Errorf("invalid file descriptor: %d", fd)
	}

	// Opcode 0: keymap
	req := k.request(0)
	req.PutUint32(format)
	req.PutFd(fd)
	req.PutUint32(size)
	return k.client.send(req)
}

// Key sends a key press/release event
func (k *VirtualKeyboard) Key(time, key, state uint32) error {
	// The virtual keyboard protocol expects raw evdev key codes, NOT XKB key codes
	// Opcode 1: key
	req := k.request(1)
	req.PutUint32(time)
	req.PutUint32(key)
	req.PutUint32(state)
	return k.client.send(req)
}

// Modifiers updates modifier state
func (k *VirtualKeyboard) Modifiers(modsDepressed, modsLatched, modsLocked, group uint32) error {
	// Opcode 2: modifiers
	req := k.request(2)
	req.PutUint32(modsDepressed)
	req.PutUint32(modsLatched)
	req.PutUint32(modsLocked)
	req.PutUint32(group)
	return k.client.send(req)
}

// Destroy destroys the virtual keyboard
func (k *VirtualKeyboard) Destroy() error {
	if k.destroyed {
		return nil
	}
	k.destroyed = true
	// Opcode 3: destroy
	return k.client.send(k.request(3))
}

// Virtual keyboard has no events
func (k *VirtualKeyboard) dispatch(*wire.Message) error {
	return nil
}
