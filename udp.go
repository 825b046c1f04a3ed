// FILE: udp.go
package skylog

import (
	"net"
	"time"
	"unicode/utf8"

	"github.com/vmihailenco/msgpack/v5"
)

// maxDatagramBytes is the safe payload bound for one record. Staying well
// under the common 9KB+ path MTU ceiling keeps datagrams unfragmented on
// typical networks.
const maxDatagramBytes = 8192

// udpSocketResetInterval limits how often a failed socket is recreated.
const udpSocketResetInterval = 1 * time.Second

// defaultUDPTimeout bounds a single send.
const defaultUDPTimeout = 500 * time.Millisecond

// wireRecord is the machine-parseable datagram envelope: one msgpack map
// per record, no framing beyond the datagram boundary itself.
type wireRecord struct {
	Time      time.Time `msgpack:"time"`
	Level     string    `msgpack:"level"`
	Job       string    `msgpack:"job"`
	PID       int       `msgpack:"pid"`
	Message   string    `msgpack:"msg"`
	Truncated bool      `msgpack:"truncated,omitempty"`
}

// udpDest is the write half of the UDP broadcast sink: fire-and-forget,
// no acknowledgment, no retry, no ordering guarantee.
type udpDest struct {
	*sinkStats
	name    string
	addr    string
	timeout time.Duration
	report  reportFunc

	conn      net.Conn
	lastReset time.Time
}

func newUDPSink(name string, threshold int64, addr string, timeout time.Duration, queueSize int, policy OverflowPolicy, report reportFunc) (Sink, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return nil, &ConfigError{Section: "handler", Key: "host/port",
			Reason: "invalid address '" + addr + "': " + err.Error()}
	}
	if timeout <= 0 {
		timeout = defaultUDPTimeout
	}
	dest := &udpDest{
		sinkStats: &sinkStats{},
		name:      name,
		addr:      addr,
		timeout:   timeout,
		report:    report,
	}
	return newQueued(name, threshold, dest, dest.sinkStats, queueSize, policy, report), nil
}

// emit serializes the record and sends it as a single datagram.
func (d *udpDest) emit(rec Record) error {
	payload, err := encodeWireRecord(rec)
	if err != nil {
		return &SinkIOError{Sink: d.name, Op: "encode", Err: err}
	}

	if d.conn == nil {
		if err := d.dial(); err != nil {
			return err
		}
	}

	_ = d.conn.SetWriteDeadline(time.Now().Add(d.timeout))
	if _, err := d.conn.Write(payload); err != nil {
		d.resetSocket()
		return &SinkIOError{Sink: d.name, Op: "send", Err: err}
	}
	d.degraded.Store(false)
	return nil
}

// encodeWireRecord marshals a record, truncating the message with a marker
// when the payload would exceed the datagram bound. Truncation is never a
// send failure.
func encodeWireRecord(rec Record) ([]byte, error) {
	wire := wireRecord{
		Time:    rec.Time,
		Level:   LevelToString(rec.Level),
		Job:     rec.Job,
		PID:     rec.PID,
		Message: rec.Message,
	}
	payload, err := msgpack.Marshal(&wire)
	if err != nil {
		return nil, err
	}
	if len(payload) <= maxDatagramBytes {
		return payload, nil
	}

	// Cut the message by the overage plus slack for the truncated flag,
	// re-encoding until the payload fits.
	wire.Truncated = true
	overhead := len(payload) - len(wire.Message)
	allowed := maxDatagramBytes - overhead - 16
	if allowed < 0 {
		allowed = 0
	}
	for {
		// Never split a multi-byte rune at the cut point.
		cut := allowed
		for cut > 0 && !utf8.RuneStart(rec.Message[cut]) {
			cut--
		}
		wire.Message = rec.Message[:cut]
		payload, err = msgpack.Marshal(&wire)
		if err != nil {
			return nil, err
		}
		if len(payload) <= maxDatagramBytes || allowed == 0 {
			return payload, nil
		}
		allowed /= 2
	}
}

// dial opens the socket, recreating it at most once per reset interval
// after a failure.
func (d *udpDest) dial() error {
	if d.degraded.Load() && time.Since(d.lastReset) < udpSocketResetInterval {
		return ErrSinkExhausted
	}
	d.lastReset = time.Now()

	conn, err := net.DialTimeout("udp", d.addr, d.timeout)
	if err != nil {
		if !d.degraded.Swap(true) {
			d.report("sink %s: socket unavailable: %v\n", d.name, err)
		}
		return &SinkIOError{Sink: d.name, Op: "dial", Err: err}
	}
	d.conn = conn
	return nil
}

func (d *udpDest) resetSocket() {
	if d.conn != nil {
		_ = d.conn.Close()
		d.conn = nil
	}
	d.lastReset = time.Now()
	d.degraded.Store(true)
}

func (d *udpDest) sync() error { return nil }

func (d *udpDest) release() error {
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}
