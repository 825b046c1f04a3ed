// FILE: record_test.go
package skylog

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJoinArgsTypes(t *testing.T) {
	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name     string
		args     []any
		expected string
	}{
		{"strings", []any{"hello", "world"}, "hello world"},
		{"mixed numbers", []any{"count", 3, int64(-7), uint(12)}, "count 3 -7 12"},
		{"floats", []any{1.5, float32(0.25)}, "1.5 0.25"},
		{"bool and nil", []any{true, nil, false}, "true nil false"},
		{"time", []any{ts}, "2025-06-01T00:00:00Z"},
		{"error value", []any{errors.New("boom")}, "boom"},
		{"bytes", []any{[]byte("raw")}, "raw"},
		{"empty", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, joinArgs(tc.args))
		})
	}
}

func TestNewRecordStampsContext(t *testing.T) {
	d := New("stamp-test")
	rec := d.newRecord(LevelError, []any{"failure", "code", 500})

	assert.Equal(t, LevelError, rec.Level)
	assert.Equal(t, "failure code 500", rec.Message)
	assert.Equal(t, "stamp-test", rec.Job)
	assert.NotZero(t, rec.PID)
	assert.WithinDuration(t, time.Now(), rec.Time, time.Second)
}
