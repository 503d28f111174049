// Package bridge routes grabbed keystrokes either to the conversion engine
// or back out through the virtual keyboard, and follows the input method
// activation protocol.
package bridge

import (
	"errors"
	"fmt"

	"github.com/bnema/wayskk/internal/keysym"
	"github.com/bnema/wayskk/internal/logger"
	"github.com/bnema/wayskk/internal/protocols"
)

// ErrInputMethodUnavailable is returned once the compositor revokes the
// input method. It is terminal.
var ErrInputMethodUnavailable = errors.New("input method unavailable")

// VirtualKeyboard injects keys as if typed on hardware.
type VirtualKeyboard interface {
	Keymap(format uint32, fd int, size uint32) error
	Key(time, key, state uint32) error
	Modifiers(depressed, latched, locked, group uint32) error
	Destroy() error
}

// InputMethod is the text-input side of the compositor connection.
type InputMethod interface {
	SetPreeditString(text string, cursorBegin, cursorEnd int32) error
	CommitString(text string) error
	Commit(serial uint32) error
	GrabKeyboard(h protocols.KeyboardGrabHandler) (KeyboardGrab, error)
	Destroy() error
}

type KeyboardGrab interface {
	Release() error
}

// Resolver turns scancodes into keysyms once a keymap is compiled.
type Resolver interface {
	Compile(format protocols.KeymapFormat, fd int, size uint32) error
	Ready() bool
	Resolve(scancode uint32, pressed bool) (keysym.Event, bool)
	UpdateMask(depressed, latched, locked, group uint32)
	Close()
}

// Engine is the conversion engine contract.
type Engine interface {
	WillProcess(ev keysym.Event) bool
	ProcessKeyEvent(ev keysym.Event)
	Preedit() (string, bool)
	PollOutput() (string, bool)
	SaveState() error
}

// Bridge owns the virtual keyboard, the input method and the keyboard grab.
// It is driven from a single goroutine.
type Bridge struct {
	vk       VirtualKeyboard
	im       InputMethod
	grab     KeyboardGrab
	resolver Resolver
	engine   Engine

	keymapInitDone bool

	// activating is what the compositor last asked for, active what was
	// applied on the last Done.
	activating bool
	active     bool

	imDestroyed bool
	closed      bool
}

func New(vk VirtualKeyboard, im InputMethod, resolver Resolver, engine Engine) *Bridge {
	return &Bridge{
		vk:       vk,
		im:       im,
		resolver: resolver,
		engine:   engine,
	}
}

// HandleInputMethodEvent implements protocols.InputMethodHandler.
func (b *Bridge) HandleInputMethodEvent(ev protocols.InputMethodEvent) error {
	switch ev := ev.(type) {
	case protocols.ActivateEvent:
		logger.Debug("Input method activate")
		b.activating = true
	case protocols.DeactivateEvent:
		logger.Debug("Input method deactivate")
		b.activating = false
	case protocols.DoneEvent:
		return b.reconcile()
	case protocols.UnavailableEvent:
		logger.Error("Input method unavailable, another input method may be running")
		if err := b.destroyInputMethod(); err != nil {
			logger.Warn("Destroying input method failed", "error", err)
		}
		return ErrInputMethodUnavailable
	case protocols.SurroundingTextEvent:
		logger.Debug("Surrounding text", "text", ev.Text, "cursor", ev.Cursor, "anchor", ev.Anchor)
	case protocols.TextChangeCauseEvent:
		logger.Debug("Text change cause", "cause", ev.Cause)
	case protocols.ContentTypeEvent:
		logger.Debug("Content type", "hint", ev.Hint, "purpose", ev.Purpose)
	default:
		logger.Debug("Ignoring input method event", "event", fmt.Sprintf("%T", ev))
	}
	return nil
}

// reconcile applies the pending activation state.
func (b *Bridge) reconcile() error {
	switch {
	case b.activating && !b.active:
		grab, err := b.im.GrabKeyboard(b)
		if err != nil {
			return fmt.Errorf("failed to grab keyboard: %w", err)
		}
		b.grab = grab
		b.active = true
		logger.Info("Keyboard grabbed")
	case !b.activating && b.active:
		if b.grab != nil {
			if err := b.grab.Release(); err != nil {
				return fmt.Errorf("failed to release keyboard grab: %w", err)
			}
		}
		b.grab = nil
		b.active = false
		logger.Info("Keyboard grab released")
	}
	return nil
}

// HandleKeyboardGrabEvent implements protocols.KeyboardGrabHandler.
func (b *Bridge) HandleKeyboardGrabEvent(ev protocols.KeyboardGrabEvent) error {
	switch ev := ev.(type) {
	case protocols.KeymapEvent:
		return b.handleKeymap(ev)
	case protocols.KeyEvent:
		return b.handleKey(ev)
	case protocols.ModifiersEvent:
		logger.Debug("Modifiers", "depressed", ev.Depressed, "latched", ev.Latched, "locked", ev.Locked, "group", ev.Group)
		b.resolver.UpdateMask(ev.Depressed, ev.Latched, ev.Locked, ev.Group)
		return b.vk.Modifiers(ev.Depressed, ev.Latched, ev.Locked, ev.Group)
	case protocols.RepeatInfoEvent:
		logger.Debug("Repeat info", "rate", ev.Rate, "delay", ev.Delay)
	default:
		logger.Debug("Ignoring keyboard grab event", "event", fmt.Sprintf("%T", ev))
	}
	return nil
}

func (b *Bridge) handleKeymap(ev protocols.KeymapEvent) error {
	defer ev.File.Close()

	if b.keymapInitDone {
		logger.Debug("Ignoring repeated keymap", "format", ev.Format, "size", ev.Size)
		return nil
	}
	b.keymapInitDone = true

	fd := int(ev.File.Fd())
	if err := b.vk.Keymap(uint32(ev.Format), fd, ev.Size); err != nil {
		return fmt.Errorf("failed to forward keymap: %w", err)
	}
	if err := b.resolver.Compile(ev.Format, fd, ev.Size); err != nil {
		logger.Warn("Keymap not compiled, keys will be forwarded verbatim", "format", ev.Format, "error", err)
		return nil
	}
	logger.Debug("Keymap compiled", "format", ev.Format, "size", ev.Size)
	return nil
}

func (b *Bridge) handleKey(ev protocols.KeyEvent) error {
	pressed := ev.State == protocols.KeyStatePressed
	if !b.resolver.Ready() {
		return b.forward(ev)
	}

	kev, _ := b.resolver.Resolve(ev.Key, pressed)
	logger.Debug("Key", "scancode", ev.Key, "state", ev.State, "keysym", kev.String())
	if pressed && b.engine.WillProcess(kev) {
		return b.route(kev)
	}
	return b.forward(ev)
}

func (b *Bridge) forward(ev protocols.KeyEvent) error {
	return b.vk.Key(ev.Time, ev.Key, uint32(ev.State))
}

// route feeds the engine and publishes its preedit and output as a single
// input method commit.
func (b *Bridge) route(ev keysym.Event) error {
	b.engine.ProcessKeyEvent(ev)

	var count uint32
	if preedit, ok := b.engine.Preedit(); ok && preedit != "" {
		if err := b.im.SetPreeditString(preedit, 0, 0); err != nil {
			return err
		}
		count++
	}
	if text, ok := b.engine.PollOutput(); ok {
		if err := b.im.CommitString(text); err != nil {
			return err
		}
		count++
	}
	return b.im.Commit(count)
}

func (b *Bridge) destroyInputMethod() error {
	if b.imDestroyed {
		return nil
	}
	b.imDestroyed = true
	// Destroying the input method ends the grab with it.
	b.grab = nil
	b.active = false
	return b.im.Destroy()
}

// State reports the activation state derived from the two flags.
func (b *Bridge) State() ActivationState {
	switch {
	case b.activating && b.active:
		return Active
	case b.activating:
		return ActivationRequested
	case b.active:
		return DeactivationRequested
	default:
		return Inactive
	}
}

// Grabbed reports whether a keyboard grab is held.
func (b *Bridge) Grabbed() bool {
	return b.grab != nil
}

// Close flushes engine state and destroys the protocol objects. Only the
// first call has an effect.
func (b *Bridge) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	if err := b.engine.SaveState(); err != nil {
		logger.Error("Saving engine state failed", "error", err)
		errs = append(errs, fmt.Errorf("save engine state: %w", err))
	}
	if err := b.destroyInputMethod(); err != nil {
		errs = append(errs, fmt.Errorf("destroy input method: %w", err))
	}
	if err := b.vk.Destroy(); err != nil {
		errs = append(errs, fmt.Errorf("destroy virtual keyboard: %w", err))
	}
	b.resolver.Close()
	return errors.Join(errs...)
}
