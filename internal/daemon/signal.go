package daemon

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// SignalPipe turns process signals into a pollable descriptor. Each
// delivered signal writes its number as one byte to a non-blocking pipe.
type SignalPipe struct {
	r, w int
	ch   chan os.Signal
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewSignalPipe(sigs ...os.Signal) (*SignalPipe, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("failed to create signal pipe: %w", err)
	}
	p := &SignalPipe{
		r:    fds[0],
		w:    fds[1],
		ch:   make(chan os.Signal, 8),
		done: make(chan struct{}),
	}
	signal.Notify(p.ch, sigs...)

	p.wg.Add(1)
	go p.relay()
	return p, nil
}

func (p *SignalPipe) relay() {
	defer p.wg.Done()
	for {
		select {
		case sig := <-p.ch:
			s, ok := sig.(syscall.Signal)
			if !ok {
				continue
			}
			// A full pipe already holds a pending signal.
			_, _ = unix.Write(p.w, []byte{byte(s)})
		case <-p.done:
			return
		}
	}
}

func (p *SignalPipe) Fd() int {
	return p.r
}

// Drain consumes every queued signal and returns the last one.
func (p *SignalPipe) Drain() (syscall.Signal, bool, error) {
	var (
		buf  [16]byte
		last syscall.Signal
		got  bool
	)
	for {
		n, err := unix.Read(p.r, buf[:])
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if errors.Is(err, unix.EAGAIN) {
			return last, got, nil
		}
		if err != nil {
			return last, got, fmt.Errorf("read signal pipe: %w", err)
		}
		if n == 0 {
			return last, got, errors.New("signal pipe closed")
		}
		last = syscall.Signal(buf[n-1])
		got = true
	}
}

// Close stops signal delivery and closes the pipe.
func (p *SignalPipe) Close() error {
	var err error
	p.once.Do(func() {
		signal.Stop(p.ch)
		close(p.done)
		p.wg.Wait()
		err = errors.Join(unix.Close(p.r), unix.Close(p.w))
	})
	return err
}
