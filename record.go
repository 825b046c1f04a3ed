// FILE: record.go
package skylog

import (
	"fmt"
	"strconv"
	"time"
)

// Record is a single log event. It is immutable once constructed and may be
// read by multiple sinks concurrently; contextual metadata (PID, Job) is
// attached at creation and never mutated afterward.
type Record struct {
	Time    time.Time
	Level   int64
	Message string
	PID     int
	Job     string
}

// newRecord stamps a record with the dispatcher's process context.
func (d *Dispatcher) newRecord(level int64, args []any) Record {
	return Record{
		Time:    time.Now(),
		Level:   level,
		Message: joinArgs(args),
		PID:     d.pid,
		Job:     d.job,
	}
}

// joinArgs renders variadic log arguments as a space-separated message.
func joinArgs(args []any) string {
	buf := make([]byte, 0, 128)
	for i, arg := range args {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = appendValue(buf, arg)
	}
	return string(buf)
}

// appendValue converts a value to its text representation.
func appendValue(buf []byte, v any) []byte {
	switch val := v.(type) {
	case string:
		return append(buf, val...)
	case int:
		return strconv.AppendInt(buf, int64(val), 10)
	case int64:
		return strconv.AppendInt(buf, val, 10)
	case uint:
		return strconv.AppendUint(buf, uint64(val), 10)
	case uint64:
		return strconv.AppendUint(buf, val, 10)
	case float32:
		return strconv.AppendFloat(buf, float64(val), 'f', -1, 32)
	case float64:
		return strconv.AppendFloat(buf, val, 'f', -1, 64)
	case bool:
		return strconv.AppendBool(buf, val)
	case nil:
		return append(buf, "nil"...)
	case time.Time:
		return val.AppendFormat(buf, time.RFC3339Nano)
	case error:
		return append(buf, val.Error()...)
	case fmt.Stringer:
		return append(buf, val.String()...)
	case []byte:
		return append(buf, val...)
	default:
		return append(buf, fmt.Sprintf("%+v", val)...)
	}
}
