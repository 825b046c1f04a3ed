// FILE: heartbeat.go
package skylog

import (
	"fmt"
	"sort"
	"time"
)

// runHeartbeat periodically emits a pipeline statistics record through the
// dispatcher itself, so a degraded sink becomes visible on the healthy
// ones instead of failing silently.
func (d *Dispatcher) runHeartbeat(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sequence := uint64(0)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			sequence++
			d.Emit(d.newRecord(LevelInfo, d.heartbeatArgs(sequence)))
		}
	}
}

// heartbeatArgs flattens the per-sink counters into message arguments,
// in stable name order.
func (d *Dispatcher) heartbeatArgs(sequence uint64) []any {
	stats := d.Stats()
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	args := []any{"heartbeat", "sequence", sequence}
	for _, name := range names {
		s := stats[name]
		args = append(args, fmt.Sprintf("%s(delivered=%d dropped=%d failed=%d degraded=%t)",
			name, s.Delivered, s.Dropped, s.Failed, s.Degraded))
	}
	return args
}
