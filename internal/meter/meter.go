// Package meter implements a bounded-history rate meter, used to print a
// live throughput readout while the link is up. Purely cosmetic: it
// observes byte counters but never feeds back into link behavior.
package meter

// Meter keeps the most recent historyLen samples of a monotonically
// increasing counter (e.g. bytes transferred) and computes a rate over the
// span they cover, mirroring the original implementation's Meter<T,T>
// template.
type Meter struct {
	historyLen int
	interval   float64 // seconds between samples
	history    []uint64
}

// New returns a Meter that retains historyLen samples, each interval
// seconds apart.
func New(historyLen int, interval float64) Meter {
	return Meter{historyLen: historyLen, interval: interval}
}

// Write records one new sample (pushed to the front, like the original's
// deque-based history).
func (m *Meter) Write(value uint64) {
	m.history = append([]uint64{value}, m.history...)
	if len(m.history) > m.historyLen {
		m.history = m.history[:m.historyLen]
	}
}

// Size returns the number of retained samples.
func (m *Meter) Size() int {
	return len(m.history)
}

// Diff returns history[0] - history[len-1], i.e. the change over the
// entire retained window.
func (m *Meter) Diff() uint64 {
	if len(m.history) < 2 {
		return 0
	}
	return m.history[0] - m.history[len(m.history)-1]
}

// Rate returns Diff() divided by the elapsed time across the window, in
// units per second.
func (m *Meter) Rate() float64 {
	n := len(m.history)
	if n < 2 {
		return 0
	}
	elapsed := float64(n-1) * m.interval
	if elapsed <= 0 {
		return 0
	}
	return float64(m.Diff()) / elapsed
}
