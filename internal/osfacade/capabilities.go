// Package osfacade is the link engine's only window onto the operating
// system: a small set of capability interfaces — Descriptor, Readable,
// Writable, Closeable — composed per concrete resource (serial port, tun
// device, timer, signal source) and dispatched through one multiplexer.
//
// This mirrors the original implementation's Linux.hpp capability wrappers
// (themselves built on inheritance); here dispatch is structural (Go
// interfaces) rather than class hierarchies, and the multiplexer boundary
// uses a tagged registration (one *binding per descriptor) instead of
// virtual calls.
package osfacade

import "fmt"

// Events is a level-triggered readiness bitmask, deliberately small and
// independent of any one multiplexer implementation's event constants.
type Events uint32

const (
	EventNone Events = 0
	EventIn   Events = 1 << 0
	EventOut  Events = 1 << 1
)

func (e Events) String() string {
	switch e {
	case EventNone:
		return "none"
	case EventIn:
		return "in"
	case EventOut:
		return "out"
	case EventIn | EventOut:
		return "in|out"
	default:
		return fmt.Sprintf("events(%#x)", uint32(e))
	}
}

// Descriptor is anything that can be registered with a Multiplexer.
type Descriptor interface {
	Fd() int
}

// Closeable is anything the engine must release on shutdown.
type Closeable interface {
	Close() error
}

// Handler is invoked by the multiplexer with the readiness events that
// fired for its descriptor. Handlers run to completion with no
// preemption; they must not block.
type Handler func(Events)

// Multiplexer is the engine's single suspension point.
type Multiplexer interface {
	// Bind registers fd with handler, initially interested in events.
	Bind(d Descriptor, handler Handler, events Events) error
	// Rebind changes the interest set for an already-bound descriptor.
	Rebind(d Descriptor, events Events) error
	// Wait blocks until at least one bound descriptor is ready, then
	// dispatches its handler(s). It returns after dispatching one batch of
	// ready descriptors (so the caller's "while !terminating { wait() }"
	// loop controls termination, per spec).
	Wait() error
	Close() error
}

// Serial is the non-blocking serial character device.
type Serial interface {
	Descriptor
	Closeable
	Read(buf []byte) (int, error)
	Write(buf []byte) (int, error)
}

// TunFrame is one datagram exchanged with the tun device, including the
// 4-byte tun_frame_info prefix the kernel prepends/expects.
type TunFrame struct {
	Buf []byte
}

// Tun is the non-blocking virtual point-to-point network interface.
type Tun interface {
	Descriptor
	Closeable
	SetPointToPoint(bool) error
	SetMTU(mtu int) error
	SetAddr(addr, mask [4]byte) error
	SetUp(bool) error
	Recv() (TunFrame, error)
	Send(TunFrame) error
}

// Clock identifies which monotonic source a Timer is built on. IpLink only
// ever uses the monotonic clock; the type exists so call sites read as
// self-documenting as the original Linux::Clock::monotonic argument did.
type Clock int

const ClockMonotonic Clock = 0

// TimeSpec is a wall/monotonic instant or duration with nanosecond
// resolution, independent of any particular syscall struct layout.
type TimeSpec struct {
	Sec  int64
	Nsec int64
}

// Timer is a one-shot or periodic monotonic timer, readable for its
// expiration tick count.
type Timer interface {
	Descriptor
	Closeable
	// SetAbsolute arms (or disarms, if deadline is zero) the timer to fire
	// once at deadline. Each call replaces any deadline set earlier.
	// cancelOnSet adds TFD_TIMER_CANCEL_ON_SET to the TFD_TIMER_ABSTIME
	// flags passed to the kernel.
	SetAbsolute(deadline TimeSpec, cancelOnSet bool) error
	// SetPeriodic arms a repeating timer: first fires at base, then every
	// interval thereafter.
	SetPeriodic(base, interval TimeSpec) error
	// ReadTickCount consumes the expiration counter (must be called after
	// every readiness notification, even if the value is discarded).
	ReadTickCount() (uint64, error)
}

// SignalInfo describes one delivered signal.
type SignalInfo struct {
	Signo int
}

// SignalSource funnels a fixed set of blocked signals through the
// multiplexer instead of asynchronous signal handlers.
type SignalSource interface {
	Descriptor
	Closeable
	Take() (SignalInfo, error)
}
