// FILE: console.go
package skylog

import (
	"io"
	"os"
	"sync"
	"time"
)

// ConsoleSink writes rendered text plus a newline to the process's standard
// error stream. It is synchronous and blocking: the console is the
// last-resort channel and must observe every record the moment Emit
// returns. On write failure it retries once, then drops to a disabled
// state instead of crashing or failing silently forever.
type ConsoleSink struct {
	*sinkStats
	name      string
	threshold int64
	formatter *Formatter
	report    reportFunc

	mu       sync.Mutex
	w        io.Writer
	disabled bool
}

func newConsoleSink(name string, threshold int64, f *Formatter, report reportFunc) *ConsoleSink {
	return &ConsoleSink{
		sinkStats: &sinkStats{},
		name:      name,
		threshold: threshold,
		formatter: f,
		report:    report,
		w:         os.Stderr,
	}
}

func (c *ConsoleSink) Name() string     { return c.name }
func (c *ConsoleSink) Threshold() int64 { return c.threshold }
func (c *ConsoleSink) Stats() SinkStats { return c.snapshot() }

// Write renders and emits the record under the sink-local lock.
func (c *ConsoleSink) Write(rec Record) {
	data := c.formatter.renderOrDump(rec)
	line := make([]byte, 0, len(data)+1)
	line = append(line, data...)
	line = append(line, '\n')

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disabled {
		c.dropped.Add(1)
		return
	}

	if _, err := c.w.Write(line); err != nil {
		c.failed.Add(1)
		// One retry, then disable: a broken stderr cannot be reported
		// anywhere more reliable than stderr itself.
		if _, err = c.w.Write(line); err != nil {
			c.failed.Add(1)
			c.disabled = true
			c.degraded.Store(true)
			c.report("sink %s: stderr write failed twice, sink disabled: %v\n", c.name, err)
			return
		}
	}
	c.delivered.Add(1)
}

// Flush is a no-op: console writes are unbuffered.
func (c *ConsoleSink) Flush(time.Duration) error { return nil }

// Close marks the sink disabled. Stderr itself is not ours to close.
func (c *ConsoleSink) Close(time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disabled = true
	return nil
}
