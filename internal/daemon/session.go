// Package daemon negotiates the compositor globals, runs the event loop and
// tears everything down on exit.
package daemon

import (
	"errors"
	"fmt"

	"github.com/bnema/wayskk/internal/bridge"
	"github.com/bnema/wayskk/internal/logger"
	"github.com/bnema/wayskk/internal/protocols"
)

// inputMethod adapts the protocol object to the bridge's interface.
type inputMethod struct {
	*protocols.InputMethod
}

func (m inputMethod) GrabKeyboard(h protocols.KeyboardGrabHandler) (bridge.KeyboardGrab, error) {
	g, err := m.InputMethod.GrabKeyboard(h)
	if err != nil {
		return nil, err
	}
	return g, nil
}

type release struct {
	name string
	fn   func() error
}

// Session owns every object acquired during setup. Close releases them in
// reverse order of acquisition.
type Session struct {
	Client *protocols.Client
	Bridge *bridge.Bridge

	releases []release
	closed   bool
}

func (s *Session) push(name string, fn func() error) {
	s.releases = append(s.releases, release{name: name, fn: fn})
}

func (s *Session) pop() {
	s.releases = s.releases[:len(s.releases)-1]
}

// Setup takes ownership of client and binds everything the daemon needs.
// On failure, including a panic, whatever was acquired is released before
// returning.
func Setup(client *protocols.Client, engine bridge.Engine, resolver bridge.Resolver) (s *Session, err error) {
	s = &Session{Client: client}
	s.push("connection", func() error {
		// Destructors queued above are best effort: the socket may be gone.
		if err := client.Flush(); err != nil {
			logger.Debug("Final flush failed", "error", err)
		}
		return client.Close()
	})

	defer func() {
		if r := recover(); r != nil {
			_ = s.Close()
			panic(r)
		}
		if err != nil {
			_ = s.Close()
			s = nil
		}
	}()

	if _, err := client.Registry(); err != nil {
		return s, fmt.Errorf("failed to get registry: %w", err)
	}
	if err := client.Roundtrip(); err != nil {
		return s, fmt.Errorf("initial roundtrip failed: %w", err)
	}

	seat, err := client.BindSeat()
	if err != nil {
		return s, err
	}
	s.push("seat", seat.Release)

	vkManager, err := client.BindVirtualKeyboardManager()
	if err != nil {
		return s, err
	}
	s.push("virtual keyboard manager", vkManager.Destroy)

	imManager, err := client.BindInputMethodManager()
	if err != nil {
		return s, err
	}
	s.push("input method manager", imManager.Destroy)

	vk, err := vkManager.CreateVirtualKeyboard(seat)
	if err != nil {
		return s, fmt.Errorf("failed to create virtual keyboard: %w", err)
	}
	s.push("virtual keyboard", vk.Destroy)

	im, err := imManager.GetInputMethod(seat, nil)
	if err != nil {
		return s, fmt.Errorf("failed to get input method: %w", err)
	}
	s.push("input method", im.Destroy)

	// From here on the bridge owns the keyboard and the input method.
	b := bridge.New(vk, inputMethod{im}, resolver, engine)
	im.SetHandler(b)
	s.pop()
	s.pop()
	s.Bridge = b
	s.push("bridge", b.Close)

	if err := client.Roundtrip(); err != nil {
		return s, fmt.Errorf("setup roundtrip failed: %w", err)
	}

	logger.Info("Input method registered", "seat", seat.Name)
	return s, nil
}

// Close runs every release once, newest first, and reports all failures.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for i := len(s.releases) - 1; i >= 0; i-- {
		r := s.releases[i]
		if err := r.fn(); err != nil {
			logger.Warn("Release failed", "object", r.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", r.name, err))
		}
	}
	s.releases = nil
	return errors.Join(errs...)
}
