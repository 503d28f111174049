package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

// maxFdsPerMessage matches libwayland's MAX_FDS_OUT.
const maxFdsPerMessage = 28

// Conn is a client connection to a Wayland compositor. It never blocks:
// reads and flushes that cannot make progress return ErrWouldBlock.
//
// Conn is not safe for concurrent use; it belongs to the event loop.
type Conn struct {
	fd int

	in    []byte
	inFds []int

	out    []byte
	outFds []int

	rbuf [MaxMessageSize]byte
	oob  []byte

	closed bool
}

// SocketPath resolves the compositor socket for a display name. An empty
// name falls back to $WAYLAND_DISPLAY, then "wayland-0".
func SocketPath(name string) (string, error) {
	if name == "" {
		name = os.Getenv("WAYLAND_DISPLAY")
	}
	if name == "" {
		name = "wayland-0"
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(dir, name), nil
}

// Dial connects to the compositor. An inherited $WAYLAND_SOCKET takes
// precedence over the socket path.
func Dial(name string) (*Conn, error) {
	if s := os.Getenv("WAYLAND_SOCKET"); s != "" {
		fd, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid WAYLAND_SOCKET %q: %w", s, err)
		}
		_ = os.Unsetenv("WAYLAND_SOCKET")
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("failed to set WAYLAND_SOCKET non-blocking: %w", err)
		}
		return NewConn(fd), nil
	}

	path, err := SocketPath(name)
	if err != nil {
		return nil, err
	}
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create socket: %w", err)
	}
	if err := unix.Connect(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("failed to connect to %s: %w", path, err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("failed to set socket non-blocking: %w", err)
	}
	return NewConn(fd), nil
}

// NewConn wraps a connected, non-blocking stream socket. The Conn takes
// ownership of fd.
func NewConn(fd int) *Conn {
	return &Conn{
		fd:  fd,
		oob: make([]byte, unix.CmsgSpace(maxFdsPerMessage*4)),
	}
}

// Fd returns the socket descriptor for polling.
func (c *Conn) Fd() int {
	return c.fd
}

// ReadMessages performs one non-blocking read and buffers whatever arrived.
// Complete messages are then available through Next.
func (c *Conn) ReadMessages() error {
	if c.closed {
		return ErrClosed
	}
	n, oobn, _, _, err := unix.Recvmsg(c.fd, c.rbuf[:], c.oob, unix.MSG_CMSG_CLOEXEC|unix.MSG_DONTWAIT)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			return ErrWouldBlock
		}
		return fmt.Errorf("wayland: recvmsg: %w", err)
	}
	if oobn > 0 {
		fds, err := parseRights(c.oob[:oobn])
		c.inFds = append(c.inFds, fds...)
		if err != nil {
			return err
		}
	}
	if n == 0 && oobn == 0 {
		return io.EOF
	}
	c.in = append(c.in, c.rbuf[:n]...)
	return nil
}

func parseRights(oob []byte) ([]int, error) {
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, fmt.Errorf("wayland: control message: %w", err)
	}
	var fds []int
	for i := range msgs {
		if msgs[i].Header.Level != unix.SOL_SOCKET || msgs[i].Header.Type != unix.SCM_RIGHTS {
			continue
		}
		got, err := unix.ParseUnixRights(&msgs[i])
		if err != nil {
			return fds, fmt.Errorf("wayland: SCM_RIGHTS: %w", err)
		}
		fds = append(fds, got...)
	}
	return fds, nil
}

// Next pops the next complete message from the inbound buffer. It returns
// nil when no complete message is buffered.
func (c *Conn) Next() (*Message, error) {
	if len(c.in) < headerSize {
		return nil, nil
	}
	sender := binary.NativeEndian.Uint32(c.in[0:4])
	word := binary.NativeEndian.Uint32(c.in[4:8])
	size := int(word >> 16)
	if size < headerSize || size > MaxMessageSize || size%4 != 0 {
		return nil, fmt.Errorf("%w: object %d announces %d bytes", ErrFraming, sender, size)
	}
	if len(c.in) < size {
		return nil, nil
	}
	data := make([]byte, size-headerSize)
	copy(data, c.in[headerSize:size])
	c.in = append(c.in[:0], c.in[size:]...)
	return &Message{
		Sender: ObjectID(sender),
		Opcode: uint16(word & 0xffff),
		data:   data,
		conn:   c,
	}, nil
}

// Queue appends a request to the outbound buffer. Nothing is written until
// Flush.
func (c *Conn) Queue(m *Message) error {
	if c.closed {
		return ErrClosed
	}
	size := m.Size()
	if size > MaxMessageSize {
		return fmt.Errorf("wayland: request of %d bytes exceeds %d", size, MaxMessageSize)
	}
	dups := make([]int, 0, len(m.fds))
	for _, fd := range m.fds {
		dup, err := unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
		if err != nil {
			closeAll(dups)
			return fmt.Errorf("wayland: dup fd %d: %w", fd, err)
		}
		dups = append(dups, dup)
	}
	c.out = binary.NativeEndian.AppendUint32(c.out, uint32(m.Sender))
	c.out = binary.NativeEndian.AppendUint32(c.out, uint32(size)<<16|uint32(m.Opcode))
	c.out = append(c.out, m.data...)
	c.outFds = append(c.outFds, dups...)
	return nil
}

// PendingOutput reports whether queued requests are waiting for Flush.
func (c *Conn) PendingOutput() bool {
	return len(c.out) > 0
}

// Flush writes as much of the outbound buffer as the socket accepts.
func (c *Conn) Flush() error {
	if c.closed {
		return ErrClosed
	}
	for len(c.out) > 0 {
		var oob []byte
		fds := c.outFds
		if len(fds) > maxFdsPerMessage {
			fds = fds[:maxFdsPerMessage]
		}
		if len(fds) > 0 {
			oob = unix.UnixRights(fds...)
		}
		n, err := unix.SendmsgN(c.fd, c.out, oob, nil, unix.MSG_NOSIGNAL|unix.MSG_DONTWAIT)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EAGAIN) {
				return ErrWouldBlock
			}
			return fmt.Errorf("wayland: sendmsg: %w", err)
		}
		closeAll(fds)
		c.outFds = c.outFds[len(fds):]
		c.out = append(c.out[:0], c.out[n:]...)
	}
	return nil
}

// Close releases the socket and any descriptors still buffered.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	closeAll(c.inFds)
	closeAll(c.outFds)
	c.inFds, c.outFds = nil, nil
	return unix.Close(c.fd)
}

func closeAll(fds []int) {
	for _, fd := range fds {
		_ = unix.Close(fd)
	}
}
