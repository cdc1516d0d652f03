package link

import (
	"github.com/battlesnake/iplink/internal/config"
	"github.com/battlesnake/iplink/internal/osfacade"
)

// fakeMultiplexer records bind/rebind calls instead of driving a real
// epoll loop, so tests can assert readiness (Property P6) without
// touching the kernel.
type fakeMultiplexer struct {
	events map[int]osfacade.Events
	closed bool
}

func newFakeMultiplexer() *fakeMultiplexer {
	return &fakeMultiplexer{events: make(map[int]osfacade.Events)}
}

func (m *fakeMultiplexer) Bind(d osfacade.Descriptor, _ osfacade.Handler, events osfacade.Events) error {
	m.events[d.Fd()] = events
	return nil
}

func (m *fakeMultiplexer) Rebind(d osfacade.Descriptor, events osfacade.Events) error {
	m.events[d.Fd()] = events
	return nil
}

func (m *fakeMultiplexer) Wait() error { return nil }

func (m *fakeMultiplexer) Close() error { m.closed = true; return nil }

type fakeSerial struct {
	fd       int
	readBuf  []byte
	writes   [][]byte
	writeErr error
	readErr  error
}

func (s *fakeSerial) Fd() int { return s.fd }

func (s *fakeSerial) Read(buf []byte) (int, error) {
	if s.readErr != nil {
		return 0, s.readErr
	}
	n := copy(buf, s.readBuf)
	s.readBuf = s.readBuf[n:]
	return n, nil
}

func (s *fakeSerial) Write(buf []byte) (int, error) {
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)
	s.writes = append(s.writes, cp)
	return len(buf), nil
}

func (s *fakeSerial) Close() error { return nil }

type fakeTun struct {
	fd      int
	up      bool
	recvBuf []osfacade.TunFrame
	sent    []osfacade.TunFrame
}

func (t *fakeTun) Fd() int                           { return t.fd }
func (t *fakeTun) SetPointToPoint(bool) error        { return nil }
func (t *fakeTun) SetMTU(int) error                  { return nil }
func (t *fakeTun) SetAddr(_, _ [4]byte) error        { return nil }
func (t *fakeTun) SetUp(up bool) error               { t.up = up; return nil }
func (t *fakeTun) Close() error                      { return nil }
func (t *fakeTun) Send(f osfacade.TunFrame) error    { t.sent = append(t.sent, f); return nil }
func (t *fakeTun) Recv() (osfacade.TunFrame, error) {
	if len(t.recvBuf) == 0 {
		return osfacade.TunFrame{}, nil
	}
	f := t.recvBuf[0]
	t.recvBuf = t.recvBuf[1:]
	return f, nil
}

type fakeTimer struct {
	fd       int
	absolute []osfacade.TimeSpec
}

func (t *fakeTimer) Fd() int { return t.fd }
func (t *fakeTimer) SetAbsolute(deadline osfacade.TimeSpec, _ bool) error {
	t.absolute = append(t.absolute, deadline)
	return nil
}
func (t *fakeTimer) SetPeriodic(_, _ osfacade.TimeSpec) error { return nil }
func (t *fakeTimer) ReadTickCount() (uint64, error)           { return 1, nil }
func (t *fakeTimer) Close() error                             { return nil }

type fakeSignalSource struct {
	fd    int
	queue []osfacade.SignalInfo
}

func (s *fakeSignalSource) Fd() int { return s.fd }
func (s *fakeSignalSource) Take() (osfacade.SignalInfo, error) {
	if len(s.queue) == 0 {
		return osfacade.SignalInfo{}, nil
	}
	info := s.queue[0]
	s.queue = s.queue[1:]
	return info, nil
}
func (s *fakeSignalSource) Close() error { return nil }

func newTestEngine(cfg config.Config) (*Engine, *fakeMultiplexer, *fakeSerial, *fakeTun) {
	mux := newFakeMultiplexer()
	uart := &fakeSerial{fd: 10}
	tun := &fakeTun{fd: 11}
	sig := &fakeSignalSource{fd: 12}
	sendKA := &fakeTimer{fd: 13}
	recvKA := &fakeTimer{fd: 14}

	e := New(cfg, mux, uart, tun, sig, sendKA, recvKA, nil)
	return e, mux, uart, tun
}
