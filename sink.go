// FILE: sink.go
package skylog

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Sink is an independent output destination for log records. Each sink owns
// its output resource exclusively, applies its own level threshold, and
// isolates its failures from the dispatcher and from other sinks.
type Sink interface {
	Name() string
	Threshold() int64
	// Write hands a record to the sink's write path. It never returns an
	// error and never blocks the caller beyond a bounded enqueue attempt.
	Write(rec Record)
	// Flush drains buffered records and syncs the underlying resource.
	Flush(timeout time.Duration) error
	// Close drains with a bounded grace period and releases the resource.
	Close(timeout time.Duration) error
	Stats() SinkStats
}

// SinkStats is a point-in-time snapshot of a sink's delivery counters.
type SinkStats struct {
	Delivered uint64
	Dropped   uint64 // records lost to queue overflow or disabled sink
	Failed    uint64 // write attempts that errored
	Degraded  bool
}

// sinkStats holds the live counters shared between a sink's producer side
// and its worker.
type sinkStats struct {
	delivered atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
	degraded  atomic.Bool
}

func (s *sinkStats) snapshot() SinkStats {
	return SinkStats{
		Delivered: s.delivered.Load(),
		Dropped:   s.dropped.Load(),
		Failed:    s.failed.Load(),
		Degraded:  s.degraded.Load(),
	}
}

// OverflowPolicy defines how a full sink queue treats new records.
// Queues are always bounded; unbounded growth is not an option.
type OverflowPolicy int

const (
	// DropNewest discards the incoming record when the queue is full.
	DropNewest OverflowPolicy = iota
	// DropOldest evicts the oldest queued record to admit the new one.
	DropOldest
)

// String returns the configuration name of the policy.
func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop_oldest"
	default:
		return "drop_newest"
	}
}

// destination is the synchronous write half of an asynchronous sink.
// Its methods are called only by the owning worker goroutine.
type destination interface {
	emit(rec Record) error
	sync() error
	release() error
}

// queued wraps a destination with a bounded channel and a dedicated worker,
// so slow I/O never blocks producers.
type queued struct {
	*sinkStats
	name      string
	threshold int64
	dest      destination
	policy    OverflowPolicy
	report    reportFunc

	ch         chan Record
	flushReq   chan chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
	closeErr   error
	releaseErr error // written by the worker before done closes
}

// reportFunc is the last-resort diagnostics channel for sink internals.
type reportFunc func(format string, args ...any)

func newQueued(name string, threshold int64, dest destination, stats *sinkStats, size int, policy OverflowPolicy, report reportFunc) *queued {
	if size <= 0 {
		size = defaultQueueSize
	}
	q := &queued{
		sinkStats: stats,
		name:      name,
		threshold: threshold,
		dest:      dest,
		policy:    policy,
		report:    report,
		ch:        make(chan Record, size),
		flushReq:  make(chan chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *queued) Name() string     { return q.name }
func (q *queued) Threshold() int64 { return q.threshold }
func (q *queued) Stats() SinkStats { return q.snapshot() }

// Write enqueues a record without blocking. Overflow is resolved by the
// configured policy and counted, never grown past the queue bound.
func (q *queued) Write(rec Record) {
	defer func() {
		if r := recover(); r != nil { // send on closed channel after shutdown
			q.dropped.Add(1)
		}
	}()

	select {
	case q.ch <- rec:
		return
	default:
	}

	if q.policy == DropOldest {
		select {
		case <-q.ch:
			q.dropped.Add(1)
		default:
		}
		select {
		case q.ch <- rec:
			return
		default:
		}
	}
	q.dropped.Add(1)
}

// Flush asks the worker to drain queued records and sync, then waits for
// confirmation or the timeout.
func (q *queued) Flush(timeout time.Duration) error {
	confirm := make(chan struct{})
	select {
	case q.flushReq <- confirm:
	case <-q.done:
		return fmtErrorf("sink %s already closed", q.name)
	case <-time.After(timeout):
		return fmtErrorf("sink %s: flush request not accepted within %v", q.name, timeout)
	}
	select {
	case <-confirm:
		return nil
	case <-q.done:
		return nil
	case <-time.After(timeout):
		return fmtErrorf("sink %s: timeout waiting for flush confirmation (%v)", q.name, timeout)
	}
}

// Close stops accepting records and waits for the worker to drain within
// the grace period. The destination's resource is released by the worker
// itself once its loop exits, so a slow drain never tears state down under
// a live writer; on timeout the release simply happens after Close returns.
func (q *queued) Close(timeout time.Duration) error {
	q.closeOnce.Do(func() {
		close(q.ch)
		select {
		case <-q.done:
			q.closeErr = q.releaseErr
		case <-time.After(timeout):
			q.closeErr = fmtErrorf("sink %s did not drain within %v", q.name, timeout)
		}
	})
	return q.closeErr
}

// run is the single writer for the destination's state, including its
// release: no other goroutine touches the destination.
func (q *queued) run() {
	defer func() {
		q.releaseErr = q.dest.release()
		close(q.done)
	}()
	for {
		select {
		case rec, ok := <-q.ch:
			if !ok {
				_ = q.dest.sync()
				return
			}
			q.write(rec)
		case confirm := <-q.flushReq:
			if !q.drain() {
				close(confirm)
				return
			}
			_ = q.dest.sync()
			close(confirm)
		}
	}
}

// drain consumes everything already queued. Returns false when the channel
// was closed during the drain.
func (q *queued) drain() bool {
	for {
		select {
		case rec, ok := <-q.ch:
			if !ok {
				_ = q.dest.sync()
				return false
			}
			q.write(rec)
		default:
			return true
		}
	}
}

func (q *queued) write(rec Record) {
	err := q.dest.emit(rec)
	if err == nil {
		q.delivered.Add(1)
		return
	}
	q.failed.Add(1)
	if !errors.Is(err, ErrSinkExhausted) { // exhausted writes are already counted once
		q.report("sink %s: write failed: %v\n", q.name, err)
	}
}
