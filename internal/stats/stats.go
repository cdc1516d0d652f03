// Package stats holds the link engine's free-running counters, dumped on
// SIGUSR1. One counter per field in the original implementation's
// Stats.hpp X_STATS table.
package stats

import (
	"fmt"
	"io"
	"sync/atomic"
)

// Stats is safe for concurrent increment/read, though the engine itself is
// single-threaded; SIGUSR1 dumping happens from the same loop goroutine.
type Stats struct {
	UARTRxBytes  atomic.Uint64
	UARTTxBytes  atomic.Uint64
	UARTRxErrors atomic.Uint64

	TunRxBytes        atomic.Uint64
	TunTxBytes        atomic.Uint64
	TunRxIgnoredBytes atomic.Uint64

	TunRxFrames        atomic.Uint64
	TunTxFrames        atomic.Uint64
	TunRxIgnoredFrames atomic.Uint64
}

func (s *Stats) IncUARTRxBytes(n int)  { s.UARTRxBytes.Add(uint64(n)) }
func (s *Stats) IncUARTTxBytes(n int)  { s.UARTTxBytes.Add(uint64(n)) }
func (s *Stats) IncUARTRxErrors(n int) { s.UARTRxErrors.Add(uint64(n)) }

func (s *Stats) IncTunRxBytes(n int)        { s.TunRxBytes.Add(uint64(n)) }
func (s *Stats) IncTunTxBytes(n int)        { s.TunTxBytes.Add(uint64(n)) }
func (s *Stats) IncTunRxIgnoredBytes(n int) { s.TunRxIgnoredBytes.Add(uint64(n)) }

func (s *Stats) IncTunRxFrames(n int)        { s.TunRxFrames.Add(uint64(n)) }
func (s *Stats) IncTunTxFrames(n int)        { s.TunTxFrames.Add(uint64(n)) }
func (s *Stats) IncTunRxIgnoredFrames(n int) { s.TunRxIgnoredFrames.Add(uint64(n)) }

// Print dumps every counter, one per line, matching the original Stats::print.
func (s *Stats) Print(w io.Writer) {
	fmt.Fprintf(w, "\tuart_rx_bytes: %d\n", s.UARTRxBytes.Load())
	fmt.Fprintf(w, "\tuart_tx_bytes: %d\n", s.UARTTxBytes.Load())
	fmt.Fprintf(w, "\tuart_rx_errors: %d\n", s.UARTRxErrors.Load())
	fmt.Fprintf(w, "\ttun_rx_bytes: %d\n", s.TunRxBytes.Load())
	fmt.Fprintf(w, "\ttun_tx_bytes: %d\n", s.TunTxBytes.Load())
	fmt.Fprintf(w, "\ttun_rx_ignored_bytes: %d\n", s.TunRxIgnoredBytes.Load())
	fmt.Fprintf(w, "\ttun_rx_frames: %d\n", s.TunRxFrames.Load())
	fmt.Fprintf(w, "\ttun_tx_frames: %d\n", s.TunTxFrames.Load())
	fmt.Fprintf(w, "\ttun_rx_ignored_frames: %d\n", s.TunRxIgnoredFrames.Load())
	fmt.Fprintln(w)
}
