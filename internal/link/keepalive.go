package link

// liveness is the keep-alive / peer-liveness FSM (spec §4.5), kept free of
// any OS facade dependency so it can be driven directly by tests: callers
// own the timers and decide when to call OnMissedKeepalive and
// OnReceivedKeepalive, this type
// only tracks the missed-interval counter and the connected edge.
type liveness struct {
	limit            int
	missedKeepalives int
	connected        bool
}

// newLiveness returns the FSM in its startup state: disconnected, with the
// counter pre-set to 1 so a single missed interval does not by itself
// declare disconnection.
func newLiveness(limit int) *liveness {
	return &liveness{limit: limit, missedKeepalives: 1}
}

func (l *liveness) Connected() bool {
	return l.connected
}

// OnMissedKeepalive advances the miss counter. It reports whether this
// call is the disconnect edge (connected -> disconnected), which fires
// exactly once: the pre-increment comparison against limit means once the
// counter reaches limit it stays pegged there, so repeated timer
// expirations after the edge never re-fire it.
func (l *liveness) OnMissedKeepalive() (becameDisconnected bool) {
	if l.missedKeepalives < l.limit {
		l.missedKeepalives++
	}
	if l.missedKeepalives == l.limit && l.connected {
		l.connected = false
		return true
	}
	return false
}

// OnReceivedKeepalive is called on any valid inbound activity (a keepalive
// frame, an IP frame, or even just raw UART bytes). It reports whether
// this call is the connect edge.
func (l *liveness) OnReceivedKeepalive() (becameConnected bool) {
	l.missedKeepalives = 0
	wasConnected := l.connected
	l.connected = true
	return !wasConnected
}
