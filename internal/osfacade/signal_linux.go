//go:build linux

package osfacade

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// Signalfd funnels a fixed set of blocked signals through a readable
// descriptor, so the engine observes SIGINT/SIGTERM via the same
// epoll-driven dispatch loop as every other event source instead of an
// async signal handler.
type Signalfd struct {
	fd int
}

// NewSignalfd blocks sigs on the calling thread (they must stay blocked for
// the lifetime of the returned source) and creates a signalfd to receive
// them.
func NewSignalfd(sigs ...unix.Signal) (*Signalfd, error) {
	var set unix.Sigset_t
	for _, s := range sigs {
		addSignal(&set, s)
	}
	if err := unix.PthreadSigmask(unix.SIG_BLOCK, &set, nil); err != nil {
		return nil, fmt.Errorf("osfacade: sigprocmask: %w", err)
	}
	fd, err := unix.Signalfd(-1, &set, unix.SFD_NONBLOCK|unix.SFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("osfacade: signalfd: %w", err)
	}
	return &Signalfd{fd: fd}, nil
}

func (s *Signalfd) Fd() int { return s.fd }

// Take reads one pending signalfd_siginfo record. It must be called once
// per readiness notification; the kernel coalesces repeats of the same
// signal number, so the result is an edge, not a count.
func (s *Signalfd) Take() (SignalInfo, error) {
	var buf [128]byte // sizeof(struct signalfd_siginfo)
	n, err := unix.Read(s.fd, buf[:])
	if err != nil {
		return SignalInfo{}, fmt.Errorf("osfacade: signalfd read: %w", err)
	}
	if n < 4 {
		return SignalInfo{}, fmt.Errorf("osfacade: signalfd short read: %d bytes", n)
	}
	signo := binary.LittleEndian.Uint32(buf[0:4])
	return SignalInfo{Signo: int(signo)}, nil
}

func (s *Signalfd) Close() error {
	return unix.Close(s.fd)
}

func addSignal(set *unix.Sigset_t, sig unix.Signal) {
	// unix.Sigset_t is an array of uint64 words on linux/amd64 and
	// linux/arm64; signal numbers are 1-based.
	bit := uint(sig) - 1
	word := bit / 64
	set.Val[word] |= 1 << (bit % 64)
}
