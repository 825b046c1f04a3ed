// FILE: dispatcher.go
package skylog

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// Default tuning shared by the sink queues.
const (
	defaultQueueSize       = 1024
	defaultShutdownTimeout = 2 * time.Second
)

// Dispatcher is the single entry point of the pipeline. It holds an ordered
// set of sinks composed at boot time and fans every emitted record out to
// the sinks whose threshold it passes.
//
// Dispatchers are explicit instances with a clear lifecycle, never an
// ambient singleton: construct (directly, via Builder, or via
// NewFromConfig), Register, Start, Emit, Shutdown. Tests build independent
// dispatchers in isolation.
type Dispatcher struct {
	sinks []Sink
	level int64
	job   string
	pid   int

	started        atomic.Bool
	shutdownCalled atomic.Bool
	stderrReports  bool

	heartbeatStop chan struct{}
	heartbeatIntv time.Duration
}

// Option configures a Dispatcher at construction.
type Option func(*Dispatcher)

// WithLevel sets the pipeline-wide minimum severity.
func WithLevel(level int64) Option {
	return func(d *Dispatcher) { d.level = level }
}

// WithHeartbeat enables periodic emission of pipeline statistics.
func WithHeartbeat(interval time.Duration) Option {
	return func(d *Dispatcher) { d.heartbeatIntv = interval }
}

// WithStderrReports enables last-resort diagnostics on stderr for sink
// internals (degradation, drops). Off by default.
func WithStderrReports(enable bool) Option {
	return func(d *Dispatcher) { d.stderrReports = enable }
}

// New creates a dispatcher for the given job name with no sinks registered.
func New(job string, opts ...Option) *Dispatcher {
	if strings.TrimSpace(job) == "" {
		job = "skylog"
	}
	d := &Dispatcher{
		job:   job,
		pid:   os.Getpid(),
		level: LevelInfo,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Job returns the per-run job name stamped onto records.
func (d *Dispatcher) Job() string { return d.job }

// Register adds a sink before emission begins. The sink set is boot-time
// composition: registration after Start is an error.
func (d *Dispatcher) Register(s Sink) error {
	if d.started.Load() {
		return fmtErrorf("cannot register sink %q: dispatcher already started", s.Name())
	}
	d.sinks = append(d.sinks, s)
	return nil
}

// Start begins accepting records. Safe to call once per lifecycle.
func (d *Dispatcher) Start() error {
	if d.shutdownCalled.Load() {
		return fmtErrorf("dispatcher already shut down")
	}
	if !d.started.CompareAndSwap(false, true) {
		return nil
	}
	if d.heartbeatIntv > 0 {
		d.heartbeatStop = make(chan struct{})
		go d.runHeartbeat(d.heartbeatIntv, d.heartbeatStop)
	}
	return nil
}

// Emit fans a record out to every registered sink whose threshold it
// passes, in declared order. A failing sink is isolated: Emit never
// propagates sink errors and never blocks on slow sinks beyond a bounded
// enqueue. Safe for concurrent callers without coordination.
func (d *Dispatcher) Emit(rec Record) {
	if !d.started.Load() || d.shutdownCalled.Load() {
		return
	}
	if rec.Level < d.level {
		return
	}
	// sinks is immutable after Start, so no lock is needed here.
	for _, s := range d.sinks {
		if rec.Level >= s.Threshold() {
			s.Write(rec)
		}
	}
}

// Debug logs a message at debug level.
func (d *Dispatcher) Debug(args ...any) { d.emitLevel(LevelDebug, args) }

// Info logs a message at info level.
func (d *Dispatcher) Info(args ...any) { d.emitLevel(LevelInfo, args) }

// Warn logs a message at warning level.
func (d *Dispatcher) Warn(args ...any) { d.emitLevel(LevelWarn, args) }

// Error logs a message at error level.
func (d *Dispatcher) Error(args ...any) { d.emitLevel(LevelError, args) }

// Critical logs a message at critical level.
func (d *Dispatcher) Critical(args ...any) { d.emitLevel(LevelCritical, args) }

func (d *Dispatcher) emitLevel(level int64, args []any) {
	if !d.started.Load() || d.shutdownCalled.Load() || level < d.level {
		return
	}
	d.Emit(d.newRecord(level, args))
}

// Flush drains every sink's buffered records within the timeout.
func (d *Dispatcher) Flush(timeout time.Duration) error {
	var finalErr error
	for _, s := range d.sinks {
		finalErr = combineErrors(finalErr, s.Flush(timeout))
	}
	return finalErr
}

// Shutdown stops accepting records and closes every sink: buffered writes
// are flushed within the grace period, then file handles, sockets and
// connections are released even if a fault occurred mid-operation.
func (d *Dispatcher) Shutdown(timeout ...time.Duration) error {
	if !d.shutdownCalled.CompareAndSwap(false, true) {
		return nil
	}
	effectiveTimeout := defaultShutdownTimeout
	if len(timeout) > 0 {
		effectiveTimeout = timeout[0]
	}

	if d.heartbeatStop != nil {
		close(d.heartbeatStop)
	}

	var finalErr error
	for _, s := range d.sinks {
		finalErr = combineErrors(finalErr, s.Close(effectiveTimeout))
	}
	return finalErr
}

// Stats returns a per-sink snapshot of delivery counters, keyed by sink
// name. Degraded sinks surface here rather than failing silently.
func (d *Dispatcher) Stats() map[string]SinkStats {
	stats := make(map[string]SinkStats, len(d.sinks))
	for _, s := range d.sinks {
		stats[s.Name()] = s.Stats()
	}
	return stats
}

// report writes internal sink diagnostics to stderr when enabled. This is
// the last-resort channel for faults in the sinks themselves.
func (d *Dispatcher) report(format string, args ...any) {
	if !d.stderrReports {
		return
	}
	if !strings.HasPrefix(format, "skylog: ") {
		format = "skylog: " + format
	}
	fmt.Fprintf(os.Stderr, format, args...)
}
