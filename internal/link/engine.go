// Package link implements the reactor at the center of IpLink: the
// byte/frame queues, the conditional readiness subscriptions that provide
// backpressure between the UART and tun descriptors, and the keep-alive
// liveness FSM that ties peer state to the tun interface.
package link

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/battlesnake/iplink/internal/config"
	"github.com/battlesnake/iplink/internal/hexdump"
	"github.com/battlesnake/iplink/internal/kiss"
	"github.com/battlesnake/iplink/internal/meter"
	"github.com/battlesnake/iplink/internal/osfacade"
	"github.com/battlesnake/iplink/internal/packet"
	"github.com/battlesnake/iplink/internal/sifmt"
	"github.com/battlesnake/iplink/internal/stats"
)

// tunFrameInfoLen is sizeof(tun_frame_info) = {flags:u16, proto:u16}.
const tunFrameInfoLen = 4

// minIPPacketLen is the minimum valid IPv4 header length plus the host
// metadata prefix tun prepends.
const minIPPacketLen = 20 + tunFrameInfoLen

const scratchSize = 64 * 1024

const meterInterval = 0.5 // seconds, matches the half-second meter timer

// Engine is the link reactor. It owns every descriptor and both queues for
// its entire lifetime; nothing else reads or mutates them (spec §5).
type Engine struct {
	cfg config.Config

	mux    osfacade.Multiplexer
	uart   osfacade.Serial
	tun    osfacade.Tun
	sigSrc osfacade.SignalSource
	sendKA osfacade.Timer
	recvKA osfacade.Timer
	meterT osfacade.Timer // nil unless cfg.Meter

	decoder *kiss.Decoder
	txQueue byteQueue
	rxQueue frameQueue
	live    *liveness

	terminating bool
	tunUp       bool

	keepaliveInterval timeSpec

	stats *stats.Stats

	rxMeter meter.Meter
	txMeter meter.Meter

	scratch [scratchSize]byte
}

type timeSpec = osfacade.TimeSpec

// New constructs the engine. Every descriptor must already be opened and
// configured (serial termios, tun ifname/mtu/addr) by the caller; New only
// wires them into the reactor and establishes the initial FSM state.
func New(cfg config.Config, mux osfacade.Multiplexer, uart osfacade.Serial, tun osfacade.Tun, sigSrc osfacade.SignalSource, sendKA, recvKA, meterTimer osfacade.Timer) *Engine {
	maxPacketLength := tunFrameInfoLen + cfg.MTU

	e := &Engine{
		cfg:     cfg,
		mux:     mux,
		uart:    uart,
		tun:     tun,
		sigSrc:  sigSrc,
		sendKA:  sendKA,
		recvKA:  recvKA,
		meterT:  meterTimer,
		decoder: kiss.NewDecoder(maxPacketLength),
		live:    newLiveness(cfg.KeepaliveLimit),
		stats:   &stats.Stats{},
		rxMeter: meter.New(15, meterInterval),
		txMeter: meter.New(15, meterInterval),
	}

	e.keepaliveInterval = msToTimeSpec(cfg.KeepaliveIntervalMS)

	// Initial conditions per spec §4.5: tun starts down if updown-managed,
	// otherwise it is brought up immediately.
	e.tunUp = !cfg.Updown

	return e
}

func msToTimeSpec(ms int) timeSpec {
	return timeSpec{Sec: int64(ms) / 1000, Nsec: (int64(ms) % 1000) * 1e6}
}

func addTimeSpec(a, b timeSpec) timeSpec {
	sec := a.Sec + b.Sec
	nsec := a.Nsec + b.Nsec
	if nsec >= 1e9 {
		sec++
		nsec -= 1e9
	}
	return timeSpec{Sec: sec, Nsec: nsec}
}

// Run wires up descriptor bindings, performs the spec §4.5 startup
// sequence, and blocks servicing the multiplexer until a termination
// signal is observed.
func (e *Engine) Run() error {
	if err := e.bindAll(); err != nil {
		return err
	}

	if e.tunUp {
		if err := e.tun.SetUp(true); err != nil {
			return fmt.Errorf("link: bring tun up at startup: %w", err)
		}
		log.Info().Msg("[tun up]")
	}

	if e.cfg.KeepaliveIntervalMS > 0 {
		if err := e.armSendKA(); err != nil {
			return err
		}
		if err := e.armRecvKA(); err != nil {
			return err
		}
		// "emit one keep-alive so the peer can notice us" (spec §4.5).
		e.sendKeepalive()
	}

	e.recomputeReadiness()

	for !e.terminating {
		if err := e.mux.Wait(); err != nil {
			return err
		}
	}
	return e.shutdown()
}

func (e *Engine) bindAll() error {
	binds := []struct {
		d osfacade.Descriptor
		h osfacade.Handler
		e osfacade.Events
	}{
		{e.sigSrc, e.onSignal, osfacade.EventIn},
		{e.sendKA, e.onSendKATimer, osfacade.EventIn},
		{e.recvKA, e.onRecvKATimer, osfacade.EventIn},
		{e.uart, e.onUART, osfacade.EventNone},
		{e.tun, e.onTun, osfacade.EventNone},
	}
	for _, b := range binds {
		if err := e.mux.Bind(b.d, b.h, b.e); err != nil {
			return fmt.Errorf("link: bind %T: %w", b.d, err)
		}
	}
	if e.meterT != nil {
		if err := e.mux.Bind(e.meterT, e.onMeterTimer, osfacade.EventIn); err != nil {
			return fmt.Errorf("link: bind meter timer: %w", err)
		}
		if err := e.meterT.SetPeriodic(timeSpec{Nsec: 500_000_000}, timeSpec{Nsec: 500_000_000}); err != nil {
			return fmt.Errorf("link: arm meter timer: %w", err)
		}
	}
	return nil
}

func (e *Engine) shutdown() error {
	if err := e.tun.SetUp(false); err != nil {
		log.Warn().Err(err).Msg("failed to bring tun down on shutdown")
	}
	var firstErr error
	for _, c := range []osfacade.Closeable{e.uart, e.tun, e.sendKA, e.recvKA, e.sigSrc, e.mux} {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// recomputeReadiness enforces Property P6 after every handler invocation.
func (e *Engine) recomputeReadiness() {
	uartEvents := osfacade.EventNone
	if e.rxQueue.Empty() {
		uartEvents |= osfacade.EventIn
	}
	if !e.txQueue.Empty() {
		uartEvents |= osfacade.EventOut
	}
	if err := e.mux.Rebind(e.uart, uartEvents); err != nil {
		log.Error().Err(err).Msg("rebind uart readiness")
	}

	tunEvents := osfacade.EventNone
	if e.tunUp && e.txQueue.Empty() {
		tunEvents |= osfacade.EventIn
	}
	if e.tunUp && !e.rxQueue.Empty() {
		tunEvents |= osfacade.EventOut
	}
	if err := e.mux.Rebind(e.tun, tunEvents); err != nil {
		log.Error().Err(err).Msg("rebind tun readiness")
	}
}

func (e *Engine) onSignal(_ osfacade.Events) {
	info, err := e.sigSrc.Take()
	if err != nil {
		log.Error().Err(err).Msg("signal source read failed")
		e.terminating = true
		return
	}
	switch info.Signo {
	case sigINT, sigTERM, sigQUIT:
		e.terminating = true
	case sigUSR1:
		e.stats.Print(logWriter{})
	}
	e.recomputeReadiness()
}

func (e *Engine) onSendKATimer(_ osfacade.Events) {
	if _, err := e.sendKA.ReadTickCount(); err != nil {
		log.Error().Err(err).Msg("send-KA timer read failed")
	}
	e.sendKeepalive()
	e.recomputeReadiness()
}

func (e *Engine) onRecvKATimer(_ osfacade.Events) {
	if _, err := e.recvKA.ReadTickCount(); err != nil {
		log.Error().Err(err).Msg("recv-KA timer read failed")
	}
	e.onMissedKeepalive()
	if err := e.armRecvKA(); err != nil {
		log.Error().Err(err).Msg("re-arm recv-KA timer")
	}
	e.recomputeReadiness()
}

func (e *Engine) onMeterTimer(_ osfacade.Events) {
	if _, err := e.meterT.ReadTickCount(); err != nil {
		log.Error().Err(err).Msg("meter timer read failed")
	}
	e.rxMeter.Write(e.stats.UARTRxBytes.Load())
	e.txMeter.Write(e.stats.UARTTxBytes.Load())
	fmt.Fprintf(os.Stderr, "[rx:%s @ %s/s]  [tx:%s @ %s/s]\n",
		sifmt.Format(float64(e.stats.UARTRxBytes.Load()), "B", 3), sifmt.Format(e.rxMeter.Rate(), "B", 3),
		sifmt.Format(float64(e.stats.UARTTxBytes.Load()), "B", 3), sifmt.Format(e.txMeter.Rate(), "B", 3))
}

func (e *Engine) onUART(events osfacade.Events) {
	if events&osfacade.EventIn != 0 {
		e.onUARTReadable()
	}
	if events&osfacade.EventOut != 0 {
		e.onUARTWritable()
	}
	e.recomputeReadiness()
}

func (e *Engine) onUARTReadable() {
	n, err := e.uart.Read(e.scratch[:])
	if err != nil {
		log.Error().Err(err).Msg("uart read failed")
		e.terminating = true
		return
	}
	if n == 0 {
		return
	}
	e.stats.IncUARTRxBytes(n)
	if e.cfg.Verbose {
		hexdump.Dump(logWriter{}, "UART => codec", e.scratch[:n])
	}
	frames := e.decoder.Feed(e.scratch[:n])
	for _, f := range frames {
		e.rxQueue.Push(f)
	}
	// Any inbound serial activity is evidence of peer liveness, regardless
	// of whether it decoded to a complete, valid frame.
	e.onReceivedKeepalive()
}

func (e *Engine) onUARTWritable() {
	head := e.txQueue.Bytes()
	if len(head) == 0 {
		return
	}
	blockSize := min(len(head), scratchSize)
	copy(e.scratch[:blockSize], head[:blockSize])

	n, err := e.uart.Write(e.scratch[:blockSize])
	if err != nil {
		log.Error().Err(err).Msg("uart write failed")
		e.terminating = true
		return
	}
	e.txQueue.Advance(n)
	if n > 0 {
		e.stats.IncUARTTxBytes(n)
		e.onSentKeepalive()
	}
}

func (e *Engine) onTun(events osfacade.Events) {
	if events&osfacade.EventIn != 0 {
		e.onTunReadable()
	}
	if events&osfacade.EventOut != 0 {
		e.onTunWritable()
	}
	e.recomputeReadiness()
}

func (e *Engine) onTunReadable() {
	frame, err := e.tun.Recv()
	if err != nil {
		log.Error().Err(err).Msg("tun read failed")
		e.terminating = true
		return
	}
	if len(frame.Buf) == 0 {
		return
	}
	if !e.tunUp {
		e.stats.IncTunRxIgnoredBytes(len(frame.Buf))
		e.stats.IncTunRxIgnoredFrames(1)
		return
	}
	e.stats.IncTunRxBytes(len(frame.Buf))
	e.stats.IncTunRxFrames(1)
	if e.cfg.Verbose {
		hexdump.Dump(logWriter{}, "TUN ==> UART", frame.Buf)
	}
	e.txQueue.Push(packet.Encode(packet.FrameTypeIPPacket, frame.Buf))
}

func (e *Engine) onTunWritable() {
	raw, ok := e.rxQueue.Pop()
	if !ok {
		return
	}
	frameType, payload, err := packet.Decode(raw)
	if err != nil {
		e.stats.IncUARTRxErrors(1)
		if e.cfg.Verbose {
			hexdump.Dump(logWriter{}, fmt.Sprintf("UART =!> TUN [%v]", err), raw)
		}
		return
	}
	switch frameType {
	case packet.FrameTypeKeepalive:
		e.onReceivedKeepalive()
	case packet.FrameTypeIPPacket:
		if len(payload) < minIPPacketLen {
			e.stats.IncUARTRxErrors(1)
			if e.cfg.Verbose {
				hexdump.Dump(logWriter{}, "UART =!> TUN [short ip packet]", payload)
			}
			return
		}
		if err := e.tun.Send(osfacade.TunFrame{Buf: payload}); err != nil {
			log.Error().Err(err).Msg("tun write failed")
			e.terminating = true
			return
		}
		e.stats.IncTunTxBytes(len(payload))
		e.stats.IncTunTxFrames(1)
		if e.cfg.Verbose {
			hexdump.Dump(logWriter{}, "UART ==> TUN", payload)
		}
		e.onReceivedKeepalive()
	default:
		e.stats.IncUARTRxErrors(1)
		if e.cfg.Verbose {
			hexdump.Dump(logWriter{}, fmt.Sprintf("UART =!> TUN [unknown frame type %#02x]", byte(frameType)), raw)
		}
	}
}

func (e *Engine) sendKeepalive() {
	e.txQueue.Push(packet.Encode(packet.FrameTypeKeepalive, []byte{byte(packet.FrameTypeKeepalive)}))
	if err := e.armSendKA(); err != nil {
		log.Error().Err(err).Msg("re-arm send-KA timer")
	}
}

func (e *Engine) onSentKeepalive() {
	if err := e.armSendKA(); err != nil {
		log.Error().Err(err).Msg("re-arm send-KA timer on sent bytes")
	}
}

func (e *Engine) onMissedKeepalive() {
	if e.live.OnMissedKeepalive() {
		e.peerDisconnected()
	}
}

func (e *Engine) onReceivedKeepalive() {
	if e.live.OnReceivedKeepalive() {
		e.peerConnected()
	}
	if err := e.armRecvKA(); err != nil {
		log.Error().Err(err).Msg("re-arm recv-KA timer on inbound activity")
	}
}

func (e *Engine) peerConnected() {
	log.Info().Msg("[peer connected]")
	if e.cfg.Updown {
		e.setTunUpDown(true)
	}
}

func (e *Engine) peerDisconnected() {
	log.Info().Msg("[peer disconnected]")
	e.txQueue.Clear()
	e.rxQueue.Clear()
	if e.cfg.Updown {
		e.setTunUpDown(false)
	}
}

// setTunUpDown is idempotent and only touches the OS if the state actually
// changes (spec §4.4).
func (e *Engine) setTunUpDown(up bool) {
	if e.tunUp == up {
		return
	}
	if err := e.tun.SetUp(up); err != nil {
		log.Error().Err(err).Bool("up", up).Msg("failed to set tun up/down")
		return
	}
	e.tunUp = up
	if up {
		log.Info().Msg("[tun up]")
	} else {
		log.Info().Msg("[tun down]")
	}
}

// armSendKA and armRecvKA implement the §4.5 arming rule: deadline =
// clock_gettime(MONOTONIC) + interval, set absolute with cancel-on-set.
func (e *Engine) armSendKA() error {
	if e.cfg.KeepaliveIntervalMS <= 0 {
		return nil
	}
	now, err := osfacade.MonotonicNow()
	if err != nil {
		return fmt.Errorf("link: arm send-KA: %w", err)
	}
	if err := e.sendKA.SetAbsolute(addTimeSpec(now, e.keepaliveInterval), true); err != nil {
		return fmt.Errorf("link: arm send-KA: %w", err)
	}
	return nil
}

func (e *Engine) armRecvKA() error {
	if e.cfg.KeepaliveIntervalMS <= 0 {
		return nil
	}
	now, err := osfacade.MonotonicNow()
	if err != nil {
		return fmt.Errorf("link: arm recv-KA: %w", err)
	}
	if err := e.recvKA.SetAbsolute(addTimeSpec(now, e.keepaliveInterval), true); err != nil {
		return fmt.Errorf("link: arm recv-KA: %w", err)
	}
	return nil
}

// logWriter adapts io.Writer-shaped callers (stats.Print, hexdump.Dump) to
// the structured logger, one Info line per Write call.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	log.Info().Msg(string(p))
	return len(p), nil
}

const (
	sigINT  = 2
	sigQUIT = 3
	sigUSR1 = 10
	sigTERM = 15
)
