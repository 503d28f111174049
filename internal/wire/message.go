// Package wire implements the Wayland wire format on top of a non-blocking
// unix socket.
//
// A message is a header of two 32-bit words (sender object id, then
// size<<16|opcode) followed by the arguments. Integers are host byte order,
// strings and arrays are length-prefixed and padded to 32 bits, and file
// descriptors travel out of band as SCM_RIGHTS control messages.
package wire

import (
	"encoding/binary"
	"fmt"
)

// ObjectID identifies a protocol object on a connection. Zero is the null object.
type ObjectID uint32

const (
	headerSize = 8

	// MaxMessageSize is the largest message libwayland accepts.
	MaxMessageSize = 4096
)

// Message is a single request or event.
type Message struct {
	Sender ObjectID
	Opcode uint16

	data []byte
	fds  []int
	off  int
	err  error
	conn *Conn
}

// NewMessage starts an outgoing request from sender.
func NewMessage(sender ObjectID, opcode uint16) *Message {
	return &Message{Sender: sender, Opcode: opcode}
}

// Size returns the encoded size of the message, header included.
func (m *Message) Size() int {
	return headerSize + len(m.data)
}

// Args returns the raw argument bytes.
func (m *Message) Args() []byte {
	return m.data
}

// Fds returns the descriptors attached with PutFd.
func (m *Message) Fds() []int {
	return m.fds
}

func (m *Message) PutUint32(v uint32) {
	m.data = binary.NativeEndian.AppendUint32(m.data, v)
}

func (m *Message) PutInt32(v int32) {
	m.PutUint32(uint32(v))
}

func (m *Message) PutObject(id ObjectID) {
	m.PutUint32(uint32(id))
}

// PutString appends a NUL-terminated, padded string.
func (m *Message) PutString(s string) {
	m.PutUint32(uint32(len(s) + 1))
	m.data = append(m.data, s...)
	m.data = append(m.data, 0)
	m.pad()
}

func (m *Message) PutArray(b []byte) {
	m.PutUint32(uint32(len(b)))
	m.data = append(m.data, b...)
	m.pad()
}

// PutFd attaches a file descriptor. The caller keeps ownership of fd; the
// connection sends a duplicate.
func (m *Message) PutFd(fd int) {
	m.fds = append(m.fds, fd)
}

func (m *Message) pad() {
	for len(m.data)%4 != 0 {
		m.data = append(m.data, 0)
	}
}

// Err reports the first decoding error, if any.
func (m *Message) Err() error {
	return m.err
}

func (m *Message) ReadUint32() uint32 {
	if m.err != nil {
		return 0
	}
	if len(m.data)-m.off < 4 {
		m.err = fmt.Errorf("%w: object %d opcode %d", ErrShortMessage, m.Sender, m.Opcode)
		return 0
	}
	v := binary.NativeEndian.Uint32(m.data[m.off:])
	m.off += 4
	return v
}

func (m *Message) ReadInt32() int32 {
	return int32(m.ReadUint32())
}

func (m *Message) ReadObject() ObjectID {
	return ObjectID(m.ReadUint32())
}

// ReadString decodes a string argument. A null string decodes as "".
func (m *Message) ReadString() string {
	b := m.readBlob()
	if len(b) == 0 {
		return ""
	}
	// Drop the NUL terminator.
	return string(b[:len(b)-1])
}

func (m *Message) ReadArray() []byte {
	b := m.readBlob()
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (m *Message) readBlob() []byte {
	n := int(m.ReadUint32())
	if m.err != nil {
		return nil
	}
	padded := (n + 3) &^ 3
	if len(m.data)-m.off < padded {
		m.err = fmt.Errorf("%w: object %d opcode %d", ErrShortMessage, m.Sender, m.Opcode)
		return nil
	}
	b := m.data[m.off : m.off+n]
	m.off += padded
	return b
}

// ReadFd takes the next descriptor received on the connection. The caller
// owns the returned descriptor.
func (m *Message) ReadFd() int {
	if m.err != nil {
		return -1
	}
	if m.conn == nil || len(m.conn.inFds) == 0 {
		m.err = fmt.Errorf("%w: object %d opcode %d", ErrMissingFd, m.Sender, m.Opcode)
		return -1
	}
	fd := m.conn.inFds[0]
	m.conn.inFds = m.conn.inFds[1:]
	return fd
}
