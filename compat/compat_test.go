// FILE: compat/compat_test.go
package compat

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamato/skylog"
)

// captureSink records everything written to it, for adapter assertions.
type captureSink struct {
	mu   sync.Mutex
	recs []skylog.Record
}

func (s *captureSink) Name() string                 { return "capture" }
func (s *captureSink) Threshold() int64             { return skylog.LevelDebug }
func (s *captureSink) Flush(time.Duration) error    { return nil }
func (s *captureSink) Close(time.Duration) error    { return nil }
func (s *captureSink) Stats() skylog.SinkStats      { return skylog.SinkStats{} }
func (s *captureSink) Write(rec skylog.Record) {
	s.mu.Lock()
	s.recs = append(s.recs, rec)
	s.mu.Unlock()
}

func (s *captureSink) records() []skylog.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]skylog.Record, len(s.recs))
	copy(out, s.recs)
	return out
}

func newTestDispatcher(t *testing.T) (*skylog.Dispatcher, *captureSink) {
	t.Helper()
	sink := &captureSink{}
	d := skylog.New("compat-test", skylog.WithLevel(skylog.LevelDebug))
	require.NoError(t, d.Register(sink))
	require.NoError(t, d.Start())
	t.Cleanup(func() { _ = d.Shutdown(time.Second) })
	return d, sink
}

func TestGnetAdapterLevels(t *testing.T) {
	d, sink := newTestDispatcher(t)
	adapter := NewGnetAdapter(d)

	adapter.Debugf("debug %d", 1)
	adapter.Infof("info %d", 2)
	adapter.Warnf("warn %d", 3)
	adapter.Errorf("error %d", 4)

	recs := sink.records()
	require.Len(t, recs, 4)
	assert.Equal(t, skylog.LevelDebug, recs[0].Level)
	assert.Equal(t, skylog.LevelInfo, recs[1].Level)
	assert.Equal(t, skylog.LevelWarn, recs[2].Level)
	assert.Equal(t, skylog.LevelError, recs[3].Level)
	assert.Contains(t, recs[3].Message, "error 4")
	assert.Contains(t, recs[3].Message, "gnet:")
}

func TestGnetAdapterFatalHandler(t *testing.T) {
	d, sink := newTestDispatcher(t)

	var fatalMsg string
	adapter := NewGnetAdapter(d, WithFatalHandler(func(msg string) {
		fatalMsg = msg
	}))

	adapter.Fatalf("unrecoverable: %s", "listener gone")

	assert.Equal(t, "unrecoverable: listener gone", fatalMsg)
	recs := sink.records()
	require.Len(t, recs, 1)
	assert.Equal(t, skylog.LevelCritical, recs[0].Level)
}

func TestFastHTTPAdapterDetectsLevel(t *testing.T) {
	d, sink := newTestDispatcher(t)
	adapter := NewFastHTTPAdapter(d)

	adapter.Printf("error when serving connection %s", "1.2.3.4")
	adapter.Printf("serving requests on %s", ":8080")

	recs := sink.records()
	require.Len(t, recs, 2)
	assert.Equal(t, skylog.LevelError, recs[0].Level)
	assert.Equal(t, skylog.LevelInfo, recs[1].Level)
}

func TestFastHTTPAdapterCustomDetector(t *testing.T) {
	d, sink := newTestDispatcher(t)
	adapter := NewFastHTTPAdapter(d,
		WithDefaultLevel(skylog.LevelWarn),
		WithLevelDetector(func(msg string) int64 {
			if strings.Contains(msg, "slow") {
				return skylog.LevelError
			}
			return 0 // fall back to the default level
		}),
	)

	adapter.Printf("slow request")
	adapter.Printf("ordinary message")

	recs := sink.records()
	require.Len(t, recs, 2)
	assert.Equal(t, skylog.LevelError, recs[0].Level)
	assert.Equal(t, skylog.LevelWarn, recs[1].Level)
}

func TestDetectLogLevel(t *testing.T) {
	cases := []struct {
		msg      string
		expected int64
	}{
		{"panic recovered in handler", skylog.LevelCritical},
		{"request failed with status 502", skylog.LevelError},
		{"TLS handshake warning", skylog.LevelWarn},
		{"debug: connection pool state", skylog.LevelDebug},
		{"listening on :8080", skylog.LevelInfo},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, DetectLogLevel(tc.msg), "msg=%q", tc.msg)
	}
}
