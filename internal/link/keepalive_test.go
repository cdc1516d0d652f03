package link

import (
	"testing"

	"github.com/battlesnake/iplink/internal/testutil/testlog"
)

func TestLivenessNoSpuriousEdgeWithoutInboundActivity(t *testing.T) {
	testlog.Start(t)
	l := newLiveness(3)
	for i := 0; i < 10; i++ {
		if edge := l.OnMissedKeepalive(); edge {
			t.Fatalf("spurious disconnect edge at expiration %d", i)
		}
	}
	if l.Connected() {
		t.Fatalf("connected=true, want false")
	}
}

func TestLivenessConnectThenDisconnectAfterLimitMisses(t *testing.T) {
	testlog.Start(t)
	l := newLiveness(3)

	if edge := l.OnReceivedKeepalive(); !edge {
		t.Fatalf("expected connect edge on first inbound activity")
	}
	if !l.Connected() {
		t.Fatalf("connected=false after inbound activity")
	}
	// Second call with no intervening miss must not re-fire the edge.
	if edge := l.OnReceivedKeepalive(); edge {
		t.Fatalf("unexpected repeat connect edge")
	}

	if edge := l.OnMissedKeepalive(); edge {
		t.Fatalf("disconnect edge fired too early (miss 1)")
	}
	if edge := l.OnMissedKeepalive(); edge {
		t.Fatalf("disconnect edge fired too early (miss 2)")
	}
	if edge := l.OnMissedKeepalive(); !edge {
		t.Fatalf("expected disconnect edge on miss 3 (limit)")
	}
	if l.Connected() {
		t.Fatalf("connected=true after reaching limit")
	}

	// Further expirations must not re-fire the edge.
	for i := 0; i < 5; i++ {
		if edge := l.OnMissedKeepalive(); edge {
			t.Fatalf("repeat disconnect edge at extra expiration %d", i)
		}
	}
}

func TestLivenessReconnectAfterDisconnect(t *testing.T) {
	testlog.Start(t)
	l := newLiveness(2)
	l.OnReceivedKeepalive()
	l.OnMissedKeepalive()
	if edge := l.OnMissedKeepalive(); !edge {
		t.Fatalf("expected disconnect edge")
	}
	if edge := l.OnReceivedKeepalive(); !edge {
		t.Fatalf("expected reconnect edge")
	}
	if !l.Connected() {
		t.Fatalf("connected=false after reconnect")
	}
}
