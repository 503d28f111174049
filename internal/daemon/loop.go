package daemon

import (
	"errors"
	"fmt"
	"io"
	"syscall"

	"github.com/bnema/wayskk/internal/bridge"
	"github.com/bnema/wayskk/internal/logger"
	"github.com/bnema/wayskk/internal/wire"
	"golang.org/x/sys/unix"
)

// Transport is the compositor connection as the loop drives it.
type Transport interface {
	Fd() int
	ReadMessages() error
	Dispatch() error
	Flush() error
	PendingOutput() bool
	ProtocolError() error
}

// SignalSource is a pollable descriptor that reports delivered signals.
type SignalSource interface {
	Fd() int
	Drain() (syscall.Signal, bool, error)
}

// Loop multiplexes the transport and the signal descriptor on one
// goroutine. Every protocol callback runs from Run.
type Loop struct {
	transport Transport
	signals   SignalSource
	poll      func(fds []unix.PollFd, timeout int) (int, error)
}

func NewLoop(transport Transport, signals SignalSource) *Loop {
	return &Loop{transport: transport, signals: signals, poll: unix.Poll}
}

const errEvents = unix.POLLERR | unix.POLLHUP | unix.POLLNVAL

// Run blocks until a signal arrives, the input method is revoked, or the
// connection fails.
func (l *Loop) Run() Outcome {
	// Requests queued during setup go out before the first wait.
	if err := l.flush(); err != nil {
		return l.fail(err)
	}

	fds := make([]unix.PollFd, 2)
	for {
		fds[0] = unix.PollFd{Fd: int32(l.transport.Fd()), Events: unix.POLLIN}
		fds[1] = unix.PollFd{Fd: int32(l.signals.Fd()), Events: unix.POLLIN}
		// Writable interest only while there is something to write, so
		// that an idle socket does not wake us continuously.
		if l.transport.PendingOutput() {
			fds[0].Events |= unix.POLLOUT
		}

		if _, err := l.poll(fds, -1); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return failed(fmt.Errorf("poll: %w", err))
		}

		var stop *Outcome

		if sig := fds[1].Revents; sig != 0 {
			if sig&unix.POLLIN != 0 {
				s, ok, err := l.signals.Drain()
				if err != nil {
					return failed(err)
				}
				if ok {
					o := signaled(s)
					stop = &o
				}
			} else if sig&errEvents != 0 {
				return failed(errors.New("signal descriptor failed"))
			}
		}

		if tr := fds[0].Revents; tr != 0 {
			if tr&unix.POLLNVAL != 0 {
				return failed(errors.New("transport descriptor is invalid"))
			}
			if tr&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
				if o, done := l.readAndDispatch(); done {
					return o
				}
			}
			if err := l.flush(); err != nil {
				return l.fail(err)
			}
		}

		if stop != nil {
			return *stop
		}
	}
}

func (l *Loop) readAndDispatch() (Outcome, bool) {
	err := l.transport.ReadMessages()
	switch {
	case errors.Is(err, wire.ErrWouldBlock):
		logger.Debug("Spurious wakeup on transport")
	case errors.Is(err, io.EOF):
		return l.fail(errors.New("compositor closed the connection")), true
	case err != nil:
		return l.fail(fmt.Errorf("read: %w", err)), true
	}

	if err := l.transport.Dispatch(); err != nil {
		if errors.Is(err, bridge.ErrInputMethodUnavailable) {
			return Outcome{Reason: Revoked, Err: err}, true
		}
		return l.fail(fmt.Errorf("dispatch: %w", err)), true
	}
	return Outcome{}, false
}

func (l *Loop) flush() error {
	if err := l.transport.Flush(); err != nil && !errors.Is(err, wire.ErrWouldBlock) {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// fail attaches the compositor's protocol error, if one was reported and
// err does not already carry it.
func (l *Loop) fail(err error) Outcome {
	if perr := l.transport.ProtocolError(); perr != nil {
		var pe *wire.ProtocolError
		if !errors.As(err, &pe) {
			err = fmt.Errorf("%w: %v", err, perr)
		}
	}
	return failed(err)
}
