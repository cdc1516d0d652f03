//go:build linux

package osfacade

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MonotonicNow reads CLOCK_MONOTONIC, the basis for every absolute
// deadline the engine arms a Timer with.
func MonotonicNow() (TimeSpec, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return TimeSpec{}, fmt.Errorf("osfacade: clock_gettime(MONOTONIC): %w", err)
	}
	return TimeSpec{Sec: int64(ts.Sec), Nsec: int64(ts.Nsec)}, nil
}
