package daemon

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/bnema/wayskk/internal/bridge"
	"github.com/bnema/wayskk/internal/protocols"
	"github.com/bnema/wayskk/internal/skk"
	"github.com/bnema/wayskk/internal/wire"
	"github.com/bnema/wayskk/internal/xkb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// fakeCompositor serves one client from its own goroutine. It advertises
// globals on get_registry, answers every wl_display.sync, and records each
// request as "sender.opcode" until the client hangs up.
type fakeCompositor struct {
	conn    *wire.Conn
	globals []protocols.Global
	onReq   func(c *fakeCompositor, m *wire.Message)

	mu       sync.Mutex
	requests []string
	err      error
	done     chan struct{}
}

func startCompositor(t *testing.T, globals ...protocols.Global) (*protocols.Client, *fakeCompositor) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)

	srv := &fakeCompositor{
		conn:    wire.NewConn(fds[1]),
		globals: globals,
		done:    make(chan struct{}),
	}
	t.Cleanup(func() { _ = srv.conn.Close() })
	return protocols.NewClient(wire.NewConn(fds[0])), srv
}

func (c *fakeCompositor) serve() {
	go func() {
		defer close(c.done)
		if err := c.loop(); err != nil {
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
		}
	}()
}

func (c *fakeCompositor) loop() error {
	fds := []unix.PollFd{{Fd: int32(c.conn.Fd()), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, 5000)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.New("client went quiet")
		}

		err = c.conn.ReadMessages()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil && !errors.Is(err, wire.ErrWouldBlock) {
			return err
		}
		for {
			m, err := c.conn.Next()
			if err != nil {
				return err
			}
			if m == nil {
				break
			}
			if err := c.handle(m); err != nil {
				return err
			}
		}
	}
}

func (c *fakeCompositor) handle(m *wire.Message) error {
	c.mu.Lock()
	c.requests = append(c.requests, fmt.Sprintf("%d.%d", m.Sender, m.Opcode))
	c.mu.Unlock()

	if m.Sender == 1 {
		switch m.Opcode {
		case 0: // sync
			cb := m.ReadObject()
			c.emit(cb, 0, func(e *wire.Message) { e.PutUint32(0) })
			c.emit(1, 1, func(e *wire.Message) { e.PutUint32(uint32(cb)) })
		case 1: // get_registry
			registry := m.ReadObject()
			for _, g := range c.globals {
				c.emit(registry, 0, func(e *wire.Message) {
					e.PutUint32(g.Name)
					e.PutString(g.Interface)
					e.PutUint32(g.Version)
				})
			}
		}
	}
	if c.onReq != nil {
		c.onReq(c, m)
	}
	return c.conn.Flush()
}

func (c *fakeCompositor) emit(sender wire.ObjectID, opcode uint16, build func(e *wire.Message)) {
	e := wire.NewMessage(sender, opcode)
	build(e)
	_ = c.conn.Queue(e)
}

// wait blocks until the client has disconnected and returns the requests
// seen.
func (c *fakeCompositor) wait(t *testing.T) []string {
	t.Helper()
	<-c.done
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NoError(t, c.err)
	return c.requests
}

var allGlobals = []protocols.Global{
	{Name: 1, Interface: protocols.SeatInterface, Version: 8},
	{Name: 2, Interface: protocols.VirtualKeyboardManagerInterface, Version: 1},
	{Name: 3, Interface: protocols.InputMethodManagerInterface, Version: 1},
}

func testEngine() *skk.Engine {
	return skk.NewEngine(skk.Ascii, []skk.Dictionary{skk.EmptyDictionary{}})
}

func TestSetupAndClose(t *testing.T) {
	client, srv := startCompositor(t, allGlobals...)
	srv.serve()

	s, err := Setup(client, testEngine(), xkb.NewResolver())
	require.NoError(t, err)
	require.NotNil(t, s.Bridge)
	assert.Equal(t, bridge.Inactive, s.Bridge.State())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "second close is a no-op")

	assert.Equal(t, []string{
		"1.1", // get_registry
		"1.0", // sync
		"2.0", "2.0", "2.0", // bind seat, vk manager, im manager
		"5.0", // create_virtual_keyboard
		"6.0", // get_input_method
		"1.0", // sync
		"8.6", // input method destroy
		"7.3", // virtual keyboard destroy
		"6.1", // input method manager destroy
		"4.3", // seat release
	}, srv.wait(t))
}

func TestSetupUnwindsOnMissingGlobal(t *testing.T) {
	client, srv := startCompositor(t, allGlobals[0], allGlobals[2])
	srv.serve()

	s, err := Setup(client, testEngine(), xkb.NewResolver())
	require.Error(t, err)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, protocols.ErrGlobalMissing)
	assert.Contains(t, err.Error(), protocols.VirtualKeyboardManagerInterface)

	assert.Equal(t, []string{"1.1", "1.0", "2.0", "4.3"}, srv.wait(t))
}

func TestSetupRevokedDuringNegotiation(t *testing.T) {
	client, srv := startCompositor(t, allGlobals...)
	srv.onReq = func(c *fakeCompositor, m *wire.Message) {
		if m.Sender == 6 && m.Opcode == 0 {
			// unavailable on the new input method
			c.emit(8, 6, func(*wire.Message) {})
		}
	}
	srv.serve()

	s, err := Setup(client, testEngine(), xkb.NewResolver())
	require.Error(t, err)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, bridge.ErrInputMethodUnavailable)

	reqs := srv.wait(t)
	assert.Equal(t, []string{"8.6", "7.3", "6.1", "4.3"}, reqs[len(reqs)-4:])
	assert.Len(t, reqs, 12, "the input method is destroyed exactly once")
}
