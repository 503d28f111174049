package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrWouldBlock is returned by ReadMessages and Flush when the socket
	// is not ready. It is routine; retry on the next wake-up.
	ErrWouldBlock = errors.New("wayland: operation would block")

	ErrShortMessage = errors.New("wayland: message shorter than its signature")
	ErrMissingFd    = errors.New("wayland: expected file descriptor not received")
	ErrFraming      = errors.New("wayland: invalid message header")
	ErrClosed       = errors.New("wayland: connection closed")
)

// ProtocolError is a fatal error reported by the compositor through
// wl_display.error.
type ProtocolError struct {
	ObjectID  ObjectID
	Interface string
	Code      uint32
	Message   string
}

func (e *ProtocolError) Error() string {
	iface := e.Interface
	if iface == "" {
		iface = "unknown"
	}
	return fmt.Sprintf("wayland protocol error on %s@%d (code %d): %s", iface, e.ObjectID, e.Code, e.Message)
}
