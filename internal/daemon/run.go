package daemon

import (
	"errors"
	"syscall"

	"github.com/bnema/wayskk/internal/bridge"
	"github.com/bnema/wayskk/internal/logger"
	"github.com/bnema/wayskk/internal/protocols"
)

// Run connects to display, sets up the input method and serves it until the
// process is told to stop. Teardown has finished when Run returns.
func Run(display string, engine bridge.Engine, resolver bridge.Resolver) Outcome {
	// Installed first so that a signal during setup is not fatal.
	signals, err := NewSignalPipe(syscall.SIGINT, syscall.SIGTERM)
	if err != nil {
		return failed(err)
	}
	defer func() {
		if err := signals.Close(); err != nil {
			logger.Warn("Closing signal pipe failed", "error", err)
		}
	}()

	client, err := protocols.Connect(display)
	if err != nil {
		resolver.Close()
		return failed(err)
	}

	session, err := Setup(client, engine, resolver)
	if err != nil {
		resolver.Close()
		if errors.Is(err, bridge.ErrInputMethodUnavailable) {
			return Outcome{Reason: Revoked, Err: err}
		}
		return failed(err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("Teardown incomplete", "error", err)
		}
	}()

	logger.Info("Waiting for input method activation")
	return NewLoop(client, signals).Run()
}
