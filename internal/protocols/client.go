// Package protocols provides typed client-side objects for the Wayland
// interfaces wayskk speaks: the core display/registry/seat plumbing,
// zwp_virtual_keyboard_unstable_v1 and zwp_input_method_unstable_v2.
package protocols

import (
	"errors"
	"fmt"

	"github.com/bnema/wayskk/internal/logger"
	"github.com/bnema/wayskk/internal/wire"
	"golang.org/x/sys/unix"
)

// ErrGlobalMissing is returned when the compositor does not advertise a
// global the daemon needs.
var ErrGlobalMissing = errors.New("required global not advertised by compositor")

// Proxy is a client-side protocol object.
type Proxy interface {
	ID() wire.ObjectID
	Interface() string
	dispatch(msg *wire.Message) error
}

// BaseProxy carries the identity shared by every object.
type BaseProxy struct {
	client    *Client
	id        wire.ObjectID
	destroyed bool
}

func (p *BaseProxy) ID() wire.ObjectID {
	return p.id
}

// Client returns the connection the object lives on.
func (p *BaseProxy) Client() *Client {
	return p.client
}

// Destroyed reports whether a destructor request has been sent. Events for
// destroyed objects are still decoded, so that attached descriptors get
// closed, but no handler runs.
func (p *BaseProxy) Destroyed() bool {
	return p.destroyed
}

func (p *BaseProxy) request(opcode uint16) *wire.Message {
	return wire.NewMessage(p.id, opcode)
}

// Global is an entry announced through wl_registry.global.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Client owns the connection and the object table.
type Client struct {
	conn     *wire.Conn
	objects  map[wire.ObjectID]Proxy
	nextID   wire.ObjectID
	display  *Display
	registry *Registry
	globals  map[uint32]Global
	protoErr *wire.ProtocolError
}

// Connect dials the compositor and wraps the connection.
func Connect(name string) (*Client, error) {
	conn, err := wire.Dial(name)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Wayland display: %w", err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection. wl_display is object 1.
func NewClient(conn *wire.Conn) *Client {
	c := &Client{
		conn:    conn,
		objects: make(map[wire.ObjectID]Proxy),
		nextID:  2,
		globals: make(map[uint32]Global),
	}
	c.display = &Display{BaseProxy: BaseProxy{client: c, id: 1}}
	c.objects[1] = c.display
	return c
}

func (c *Client) Display() *Display {
	return c.display
}

func (c *Client) Fd() int {
	return c.conn.Fd()
}

func (c *Client) newID() wire.ObjectID {
	id := c.nextID
	c.nextID++
	return id
}

func (c *Client) register(p Proxy) {
	c.objects[p.ID()] = p
}

func (c *Client) send(m *wire.Message) error {
	return c.conn.Queue(m)
}

// Registry returns wl_registry, requesting it on first use.
func (c *Client) Registry() (*Registry, error) {
	if c.registry != nil {
		return c.registry, nil
	}
	r, err := c.display.GetRegistry()
	if err != nil {
		return nil, err
	}
	c.registry = r
	return r, nil
}

// Globals returns a snapshot of the advertised globals.
func (c *Client) Globals() []Global {
	out := make([]Global, 0, len(c.globals))
	for _, g := range c.globals {
		out = append(out, g)
	}
	return out
}

// FindGlobal looks up a global by interface name.
func (c *Client) FindGlobal(iface string) (Global, bool) {
	for _, g := range c.globals {
		if g.Interface == iface {
			return g, true
		}
	}
	return Global{}, false
}

// bind binds the global advertising iface at min(advertised, version).
func (c *Client) bind(iface string, version uint32, p Proxy) (uint32, error) {
	g, ok := c.FindGlobal(iface)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrGlobalMissing, iface)
	}
	if g.Version < version {
		version = g.Version
	}
	r, err := c.Registry()
	if err != nil {
		return 0, err
	}
	if err := r.Bind(g.Name, iface, version, p); err != nil {
		return 0, err
	}
	return version, nil
}

// ReadMessages reads from the socket without blocking.
func (c *Client) ReadMessages() error {
	return c.conn.ReadMessages()
}

// Flush writes queued requests without blocking.
func (c *Client) Flush() error {
	return c.conn.Flush()
}

func (c *Client) PendingOutput() bool {
	return c.conn.PendingOutput()
}

// ProtocolError returns the error the compositor reported, or nil.
func (c *Client) ProtocolError() error {
	if c.protoErr == nil {
		return nil
	}
	return c.protoErr
}

// Dispatch delivers every buffered event, in arrival order, to its object.
// It stops at the first handler error.
func (c *Client) Dispatch() error {
	for {
		msg, err := c.conn.Next()
		if err != nil {
			return err
		}
		if msg == nil {
			return nil
		}
		obj, ok := c.objects[msg.Sender]
		if !ok {
			logger.Debug("Event for unknown object", "id", msg.Sender, "opcode", msg.Opcode)
			continue
		}
		if err := obj.dispatch(msg); err != nil {
			return err
		}
	}
}

// Roundtrip blocks until the compositor has processed every request sent so
// far. It is meant for startup negotiation, before the event loop runs.
func (c *Client) Roundtrip() error {
	cb, err := c.display.Sync()
	if err != nil {
		return err
	}
	done := false
	cb.onDone = func(uint32) { done = true }

	for !done {
		if err := c.flushBlocking(); err != nil {
			return err
		}
		if err := waitFd(c.conn.Fd(), unix.POLLIN); err != nil {
			return err
		}
		if err := c.conn.ReadMessages(); err != nil && !errors.Is(err, wire.ErrWouldBlock) {
			return fmt.Errorf("roundtrip read: %w", err)
		}
		if err := c.Dispatch(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) flushBlocking() error {
	for {
		err := c.conn.Flush()
		if err == nil {
			return nil
		}
		if !errors.Is(err, wire.ErrWouldBlock) {
			return err
		}
		if err := waitFd(c.conn.Fd(), unix.POLLOUT); err != nil {
			return err
		}
	}
}

func waitFd(fd int, events int16) error {
	fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
	for {
		_, err := unix.Poll(fds, -1)
		if err == nil {
			return nil
		}
		if !errors.Is(err, unix.EINTR) {
			return fmt.Errorf("poll: %w", err)
		}
	}
}

// Close closes the connection. Objects become unusable.
func (c *Client) Close() error {
	return c.conn.Close()
}
