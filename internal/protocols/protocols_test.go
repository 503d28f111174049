package protocols

import (
	"errors"
	"testing"

	"github.com/bnema/wayskk/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// compositor is the far end of a socketpair, driven by the test.
type compositor struct {
	t    *testing.T
	conn *wire.Conn
}

func newTestClient(t *testing.T) (*Client, *compositor) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	c := NewClient(wire.NewConn(fds[0]))
	srv := &compositor{t: t, conn: wire.NewConn(fds[1])}
	t.Cleanup(func() {
		_ = c.Close()
		_ = srv.conn.Close()
	})
	return c, srv
}

func (s *compositor) send(sender wire.ObjectID, opcode uint16, build func(m *wire.Message)) {
	s.t.Helper()
	m := wire.NewMessage(sender, opcode)
	if build != nil {
		build(m)
	}
	require.NoError(s.t, s.conn.Queue(m))
	require.NoError(s.t, s.conn.Flush())
}

func (s *compositor) global(registry wire.ObjectID, name uint32, iface string, version uint32) {
	s.send(registry, 0, func(m *wire.Message) {
		m.PutUint32(name)
		m.PutString(iface)
		m.PutUint32(version)
	})
}

func (s *compositor) done(callback wire.ObjectID) {
	s.send(callback, 0, func(m *wire.Message) { m.PutUint32(0) })
	s.send(1, 1, func(m *wire.Message) { m.PutUint32(uint32(callback)) })
}

// requests drains every request the client has flushed.
func (s *compositor) requests() []*wire.Message {
	s.t.Helper()
	var out []*wire.Message
	for {
		err := s.conn.ReadMessages()
		if errors.Is(err, wire.ErrWouldBlock) {
			break
		}
		require.NoError(s.t, err)
	}
	for {
		m, err := s.conn.Next()
		require.NoError(s.t, err)
		if m == nil {
			return out
		}
		out = append(out, m)
	}
}

func pump(t *testing.T, c *Client) error {
	t.Helper()
	for {
		err := c.ReadMessages()
		if errors.Is(err, wire.ErrWouldBlock) {
			break
		}
		require.NoError(t, err)
	}
	return c.Dispatch()
}

// advertise performs the initial registry roundtrip. The registry gets id 2
// and the sync callback id 3.
func advertise(t *testing.T, c *Client, srv *compositor, globals ...Global) {
	t.Helper()
	for _, g := range globals {
		srv.global(2, g.Name, g.Interface, g.Version)
	}
	srv.done(3)

	_, err := c.Registry()
	require.NoError(t, err)
	require.NoError(t, c.Roundtrip())
}

var standardGlobals = []Global{
	{Name: 1, Interface: SeatInterface, Version: 8},
	{Name: 2, Interface: VirtualKeyboardManagerInterface, Version: 1},
	{Name: 3, Interface: InputMethodManagerInterface, Version: 1},
}

type recorder struct {
	im   []InputMethodEvent
	grab []KeyboardGrabEvent
	err  error
}

func (r *recorder) HandleInputMethodEvent(ev InputMethodEvent) error {
	r.im = append(r.im, ev)
	return r.err
}

func (r *recorder) HandleKeyboardGrabEvent(ev KeyboardGrabEvent) error {
	r.grab = append(r.grab, ev)
	return r.err
}

func TestRoundtripCollectsGlobals(t *testing.T) {
	c, srv := newTestClient(t)
	advertise(t, c, srv, standardGlobals...)

	assert.Len(t, c.Globals(), 3)
	g, ok := c.FindGlobal(InputMethodManagerInterface)
	require.True(t, ok)
	assert.Equal(t, uint32(3), g.Name)

	reqs := srv.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, wire.ObjectID(1), reqs[0].Sender, "get_registry")
	assert.Equal(t, uint16(1), reqs[0].Opcode)
	assert.Equal(t, wire.ObjectID(2), reqs[0].ReadObject())
	assert.Equal(t, uint16(0), reqs[1].Opcode, "sync")
	assert.Equal(t, wire.ObjectID(3), reqs[1].ReadObject())
}

func TestGlobalRemove(t *testing.T) {
	c, srv := newTestClient(t)
	advertise(t, c, srv, standardGlobals...)

	srv.send(2, 1, func(m *wire.Message) { m.PutUint32(2) })
	require.NoError(t, pump(t, c))

	_, ok := c.FindGlobal(VirtualKeyboardManagerInterface)
	assert.False(t, ok)
}

func TestBindClampsVersion(t *testing.T) {
	c, srv := newTestClient(t)
	advertise(t, c, srv, standardGlobals...)
	srv.requests()

	seat, err := c.BindSeat()
	require.NoError(t, err)
	require.NoError(t, c.Flush())

	reqs := srv.requests()
	require.Len(t, reqs, 1)
	bind := reqs[0]
	assert.Equal(t, wire.ObjectID(2), bind.Sender)
	assert.Equal(t, uint32(1), bind.ReadUint32())
	assert.Equal(t, SeatInterface, bind.ReadString())
	assert.Equal(t, uint32(SeatVersion), bind.ReadUint32())
	assert.Equal(t, seat.ID(), bind.ReadObject())
}

func TestBindMissingGlobal(t *testing.T) {
	c, srv := newTestClient(t)
	advertise(t, c, srv, Global{Name: 1, Interface: SeatInterface, Version: 7})

	_, err := c.BindInputMethodManager()
	assert.ErrorIs(t, err, ErrGlobalMissing)
}

func setupInputMethod(t *testing.T) (*Client, *compositor, *InputMethod, *recorder) {
	t.Helper()
	c, srv := newTestClient(t)
	advertise(t, c, srv, standardGlobals...)

	seat, err := c.BindSeat()
	require.NoError(t, err)
	mgr, err := c.BindInputMethodManager()
	require.NoError(t, err)
	rec := &recorder{}
	im, err := mgr.GetInputMethod(seat, rec)
	require.NoError(t, err)
	require.NoError(t, c.Flush())
	srv.requests()
	return c, srv, im, rec
}

func TestInputMethodEventsInOrder(t *testing.T) {
	c, srv, im, rec := setupInputMethod(t)

	srv.send(im.ID(), 0, nil)
	srv.send(im.ID(), 2, func(m *wire.Message) {
		m.PutString("hello")
		m.PutUint32(5)
		m.PutUint32(5)
	})
	srv.send(im.ID(), 3, func(m *wire.Message) { m.PutUint32(1) })
	srv.send(im.ID(), 4, func(m *wire.Message) {
		m.PutUint32(0x10)
		m.PutUint32(2)
	})
	srv.send(im.ID(), 5, nil)
	srv.send(im.ID(), 1, nil)
	srv.send(im.ID(), 6, nil)

	require.NoError(t, pump(t, c))

	assert.Equal(t, []InputMethodEvent{
		ActivateEvent{},
		SurroundingTextEvent{Text: "hello", Cursor: 5, Anchor: 5},
		TextChangeCauseEvent{Cause: ChangeCauseOther},
		ContentTypeEvent{Hint: 0x10, Purpose: 2},
		DoneEvent{},
		DeactivateEvent{},
		UnavailableEvent{},
	}, rec.im)
}

func TestHandlerErrorStopsDispatch(t *testing.T) {
	c, srv, im, rec := setupInputMethod(t)
	rec.err = errors.New("stop")

	srv.send(im.ID(), 6, nil)
	srv.send(im.ID(), 0, nil)

	err := pump(t, c)
	assert.EqualError(t, err, "stop")
	assert.Len(t, rec.im, 1)
}

func TestInputMethodRequests(t *testing.T) {
	c, srv, im, _ := setupInputMethod(t)

	require.NoError(t, im.SetPreeditString("か", 0, 0))
	require.NoError(t, im.CommitString("漢字"))
	require.NoError(t, im.Commit(2))
	require.NoError(t, c.Flush())

	reqs := srv.requests()
	require.Len(t, reqs, 3)

	assert.Equal(t, uint16(1), reqs[0].Opcode)
	assert.Equal(t, "か", reqs[0].ReadString())
	assert.Equal(t, int32(0), reqs[0].ReadInt32())
	assert.Equal(t, int32(0), reqs[0].ReadInt32())

	assert.Equal(t, uint16(0), reqs[1].Opcode)
	assert.Equal(t, "漢字", reqs[1].ReadString())

	assert.Equal(t, uint16(3), reqs[2].Opcode)
	assert.Equal(t, uint32(2), reqs[2].ReadUint32())
}

func TestKeyboardGrabEvents(t *testing.T) {
	c, srv, im, _ := setupInputMethod(t)

	rec := &recorder{}
	grab, err := im.GrabKeyboard(rec)
	require.NoError(t, err)
	require.NoError(t, c.Flush())
	reqs := srv.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, uint16(5), reqs[0].Opcode)
	assert.Equal(t, grab.ID(), reqs[0].ReadObject())

	memfd, err := unix.MemfdCreate("keymap", unix.MFD_CLOEXEC)
	require.NoError(t, err)
	defer unix.Close(memfd)
	_, err = unix.Write(memfd, []byte("keymap\x00"))
	require.NoError(t, err)

	srv.send(grab.ID(), 0, func(m *wire.Message) {
		m.PutUint32(uint32(KeymapFormatXkbV1))
		m.PutFd(memfd)
		m.PutUint32(7)
	})
	srv.send(grab.ID(), 3, func(m *wire.Message) {
		m.PutInt32(25)
		m.PutInt32(600)
	})
	srv.send(grab.ID(), 2, func(m *wire.Message) {
		m.PutUint32(10)
		m.PutUint32(1)
		m.PutUint32(0)
		m.PutUint32(2)
		m.PutUint32(0)
	})
	srv.send(grab.ID(), 1, func(m *wire.Message) {
		m.PutUint32(11)
		m.PutUint32(1234)
		m.PutUint32(30)
		m.PutUint32(uint32(KeyStatePressed))
	})

	require.NoError(t, pump(t, c))
	require.Len(t, rec.grab, 4)

	keymap, ok := rec.grab[0].(KeymapEvent)
	require.True(t, ok)
	assert.Equal(t, KeymapFormatXkbV1, keymap.Format)
	assert.Equal(t, uint32(7), keymap.Size)
	data := make([]byte, keymap.Size)
	_, err = keymap.File.ReadAt(data, 0)
	require.NoError(t, err)
	assert.Equal(t, "keymap\x00", string(data))
	require.NoError(t, keymap.File.Close())

	assert.Equal(t, RepeatInfoEvent{Rate: 25, Delay: 600}, rec.grab[1])
	assert.Equal(t, ModifiersEvent{Serial: 10, Depressed: 1, Locked: 2}, rec.grab[2])
	assert.Equal(t, KeyEvent{Serial: 11, Time: 1234, Key: 30, State: KeyStatePressed}, rec.grab[3])
}

func TestReleasedGrabDropsEvents(t *testing.T) {
	c, srv, im, _ := setupInputMethod(t)

	rec := &recorder{}
	grab, err := im.GrabKeyboard(rec)
	require.NoError(t, err)
	require.NoError(t, grab.Release())
	require.NoError(t, grab.Release(), "release is idempotent")
	require.NoError(t, c.Flush())
	reqs := srv.requests()
	require.Len(t, reqs, 2, "grab_keyboard + a single release")

	srv.send(grab.ID(), 1, func(m *wire.Message) {
		m.PutUint32(1)
		m.PutUint32(2)
		m.PutUint32(30)
		m.PutUint32(1)
	})
	require.NoError(t, pump(t, c))
	assert.Empty(t, rec.grab)
}

func TestDisplayErrorIsProtocolError(t *testing.T) {
	c, srv, im, _ := setupInputMethod(t)

	srv.send(1, 0, func(m *wire.Message) {
		m.PutObject(im.ID())
		m.PutUint32(0)
		m.PutString("input method already registered")
	})

	err := pump(t, c)
	var perr *wire.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, InputMethodInterface, perr.Interface)
	assert.Equal(t, im.ID(), perr.ObjectID)
	assert.Equal(t, err, c.ProtocolError())
}

func TestVirtualKeyboardRequests(t *testing.T) {
	c, srv := newTestClient(t)
	advertise(t, c, srv, standardGlobals...)

	seat, err := c.BindSeat()
	require.NoError(t, err)
	mgr, err := c.BindVirtualKeyboardManager()
	require.NoError(t, err)
	vk, err := mgr.CreateVirtualKeyboard(seat)
	require.NoError(t, err)
	require.NoError(t, c.Flush())
	srv.requests()

	memfd, err := unix.MemfdCreate("keymap", unix.MFD_CLOEXEC)
	require.NoError(t, err)
	defer unix.Close(memfd)

	require.NoError(t, vk.Keymap(1, memfd, 64))
	require.NoError(t, vk.Key(100, 30, 1))
	require.NoError(t, vk.Modifiers(1, 0, 2, 0))
	require.NoError(t, vk.Destroy())
	require.NoError(t, vk.Destroy())
	require.NoError(t, c.Flush())

	reqs := srv.requests()
	require.Len(t, reqs, 4)

	assert.Equal(t, uint16(0), reqs[0].Opcode)
	assert.Equal(t, uint32(1), reqs[0].ReadUint32())
	fd := reqs[0].ReadFd()
	require.GreaterOrEqual(t, fd, 0)
	_ = unix.Close(fd)
	assert.Equal(t, uint32(64), reqs[0].ReadUint32())

	assert.Equal(t, uint16(1), reqs[1].Opcode)
	assert.Equal(t, uint32(100), reqs[1].ReadUint32())
	assert.Equal(t, uint32(30), reqs[1].ReadUint32())

	assert.Equal(t, uint16(2), reqs[2].Opcode)
	assert.Equal(t, uint16(3), reqs[3].Opcode)

	assert.Error(t, vk.Keymap(1, -1, 0))
}
