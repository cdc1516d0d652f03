//go:build linux

package osfacade

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Timerfd is a monotonic-clock timerfd, the keep-alive FSM's tick source.
type Timerfd struct {
	fd int
}

// NewTimerfd creates a disarmed timerfd on the monotonic clock.
func NewTimerfd() (*Timerfd, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("osfacade: timerfd_create: %w", err)
	}
	return &Timerfd{fd: fd}, nil
}

func (t *Timerfd) Fd() int { return t.fd }

func (t *Timerfd) SetAbsolute(deadline TimeSpec, cancelOnSet bool) error {
	spec := unix.ItimerSpec{
		Value:    unix.NsecToTimespec(deadline.Sec*1e9 + deadline.Nsec),
		Interval: unix.Timespec{},
	}
	flags := unix.TFD_TIMER_ABSTIME
	if cancelOnSet {
		flags |= unix.TFD_TIMER_CANCEL_ON_SET
	}
	if err := unix.TimerfdSettime(t.fd, flags, &spec, nil); err != nil {
		return fmt.Errorf("osfacade: timerfd_settime(absolute): %w", err)
	}
	return nil
}

func (t *Timerfd) SetPeriodic(base, interval TimeSpec) error {
	spec := unix.ItimerSpec{
		Value:    unix.NsecToTimespec(base.Sec*1e9 + base.Nsec),
		Interval: unix.NsecToTimespec(interval.Sec*1e9 + interval.Nsec),
	}
	if err := unix.TimerfdSettime(t.fd, 0, &spec, nil); err != nil {
		return fmt.Errorf("osfacade: timerfd_settime(periodic): %w", err)
	}
	return nil
}

func (t *Timerfd) ReadTickCount() (uint64, error) {
	var buf [8]byte
	n, err := unix.Read(t.fd, buf[:])
	if err != nil {
		if err == unix.EAGAIN {
			return 0, nil
		}
		return 0, fmt.Errorf("osfacade: timerfd read: %w", err)
	}
	if n != 8 {
		return 0, fmt.Errorf("osfacade: timerfd short read: %d bytes", n)
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v, nil
}

func (t *Timerfd) Close() error {
	return unix.Close(t.fd)
}
