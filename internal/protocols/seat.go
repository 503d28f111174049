package protocols

import (
	"github.com/bnema/wayskk/internal/logger"
	"github.com/bnema/wayskk/internal/wire"
)

const SeatInterface = "wl_seat"

// SeatVersion is the highest wl_seat version wayskk binds.
const SeatVersion = 7

// Seat is wl_seat. wayskk only needs it as an argument to the virtual
// keyboard and input method factories.
type Seat struct {
	BaseProxy
	version uint32

	Name         string
	Capabilities uint32
}

func (s *Seat) Interface() string { return SeatInterface }

// BindSeat binds the first advertised seat.
func (c *Client) BindSeat() (*Seat, error) {
	s := &Seat{BaseProxy: BaseProxy{client: c, id: c.newID()}}
	v, err := c.bind(SeatInterface, SeatVersion, s)
	if err != nil {
		return nil, err
	}
	s.version = v
	return s, nil
}

// Release destroys the seat object (wl_seat.release, since version 5).
func (s *Seat) Release() error {
	if s.destroyed {
		return nil
	}
	s.destroyed = true
	if s.version < 5 {
		return nil
	}
	// Opcode 3: release
	return s.client.send(s.request(3))
}

func (s *Seat) dispatch(msg *wire.Message) error {
	switch msg.Opcode {
	case 0: // capabilities
		s.Capabilities = msg.ReadUint32()
	case 1: // name
		s.Name = msg.ReadString()
		logger.Debug("Seat", "name", s.Name)
	}
	return msg.Err()
}
