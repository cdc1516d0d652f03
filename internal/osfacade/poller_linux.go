//go:build linux

package osfacade

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Epoll is the Multiplexer implementation: a level-triggered epoll
// instance plus an fd -> binding dispatch table, the Go-idiomatic
// replacement for the original's epfd.bind/rebind/wait wrapper.
type Epoll struct {
	fd       int
	bindings map[int]*binding
}

type binding struct {
	descriptor Descriptor
	handler    Handler
	events     Events
}

// NewEpoll creates a new epoll instance with FD_CLOEXEC set.
func NewEpoll() (*Epoll, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("osfacade: epoll_create1: %w", err)
	}
	return &Epoll{fd: fd, bindings: make(map[int]*binding)}, nil
}

func (e *Epoll) Fd() int { return e.fd }

func (e *Epoll) Bind(d Descriptor, handler Handler, events Events) error {
	fd := d.Fd()
	b := &binding{descriptor: d, handler: handler, events: events}
	ev := unix.EpollEvent{Events: toEpollMask(events), Fd: int32(fd)}
	if err := unix.EpollCtl(e.fd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("osfacade: epoll_ctl(add, fd=%d): %w", fd, err)
	}
	e.bindings[fd] = b
	return nil
}

func (e *Epoll) Rebind(d Descriptor, events Events) error {
	fd := d.Fd()
	b, ok := e.bindings[fd]
	if !ok {
		return fmt.Errorf("osfacade: rebind: fd %d not bound", fd)
	}
	if b.events == events {
		return nil
	}
	b.events = events
	ev := unix.EpollEvent{Events: toEpollMask(events), Fd: int32(fd)}
	if err := unix.EpollCtl(e.fd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("osfacade: epoll_ctl(mod, fd=%d): %w", fd, err)
	}
	return nil
}

// Wait blocks until the kernel reports readiness on at least one
// descriptor, then dispatches every ready handler before returning.
func (e *Epoll) Wait() error {
	var raw [16]unix.EpollEvent
	for {
		n, err := unix.EpollWait(e.fd, raw[:], -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("osfacade: epoll_wait: %w", err)
		}
		for i := 0; i < n; i++ {
			b, ok := e.bindings[int(raw[i].Fd)]
			if !ok {
				continue
			}
			b.handler(fromEpollMask(raw[i].Events))
		}
		return nil
	}
}

func (e *Epoll) Close() error {
	return unix.Close(e.fd)
}

func toEpollMask(events Events) uint32 {
	var m uint32
	if events&EventIn != 0 {
		m |= unix.EPOLLIN
	}
	if events&EventOut != 0 {
		m |= unix.EPOLLOUT
	}
	return m
}

func fromEpollMask(m uint32) Events {
	var e Events
	if m&unix.EPOLLIN != 0 {
		e |= EventIn
	}
	if m&unix.EPOLLOUT != 0 {
		e |= EventOut
	}
	return e
}
