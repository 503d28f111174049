package daemon

import (
	"fmt"
	"syscall"

	"github.com/bnema/wayskk/internal/logger"
)

// Reason classifies why the daemon stopped.
type Reason int

const (
	// Signaled is an intentional shutdown on SIGINT or SIGTERM.
	Signaled Reason = iota
	// Revoked means the compositor withdrew the input method.
	Revoked
	// Failed covers transport, protocol and setup errors.
	Failed
)

func (r Reason) String() string {
	switch r {
	case Signaled:
		return "signaled"
	case Revoked:
		return "revoked"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the single terminal result of a daemon run.
type Outcome struct {
	Reason Reason
	Signal syscall.Signal
	Err    error
}

func signaled(sig syscall.Signal) Outcome {
	return Outcome{Reason: Signaled, Signal: sig}
}

func failed(err error) Outcome {
	return Outcome{Reason: Failed, Err: err}
}

// ExitCode maps the outcome to a process status. Signals follow the shell
// convention of 128 plus the signal number.
func (o Outcome) ExitCode() int {
	switch o.Reason {
	case Signaled:
		return 128 + int(o.Signal)
	case Revoked:
		return 2
	default:
		return 1
	}
}

func (o Outcome) String() string {
	switch o.Reason {
	case Signaled:
		return fmt.Sprintf("received signal %s", o.Signal)
	case Revoked:
		return "input method revoked by compositor"
	default:
		return fmt.Sprintf("failed: %v", o.Err)
	}
}

// Log reports the outcome at the matching level.
func (o Outcome) Log() {
	switch o.Reason {
	case Signaled:
		logger.Info("Received signal, shutting down", "signal", o.Signal.String())
	case Revoked:
		logger.Error("Input method revoked by compositor, shutting down")
	default:
		logger.Error("Daemon stopped", "error", o.Err)
	}
}
