// FILE: console_test.go
package skylog

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyWriter fails the first failures writes, then succeeds.
type flakyWriter struct {
	bytes.Buffer
	failures int
}

func (w *flakyWriter) Write(p []byte) (int, error) {
	if w.failures > 0 {
		w.failures--
		return 0, errors.New("stream broken")
	}
	return w.Buffer.Write(p)
}

func TestConsoleWritesRenderedLine(t *testing.T) {
	var buf bytes.Buffer
	c := newConsoleSink("console", LevelInfo, NewFormatter(TemplateShort, time.RFC3339), discardReport)
	c.w = &buf

	c.Write(testRecord())

	assert.Equal(t, "2025-06-01T12:30:45Z WARNING disk almost full\n", buf.String())
	assert.Equal(t, uint64(1), c.Stats().Delivered)
}

func TestConsoleRetriesOnceThenSucceeds(t *testing.T) {
	w := &flakyWriter{failures: 1}
	c := newConsoleSink("console", LevelInfo, NewFormatter(TemplateNone, ""), discardReport)
	c.w = w

	c.Write(testRecord())

	assert.Contains(t, w.String(), "disk almost full")
	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Delivered)
	assert.Equal(t, uint64(1), stats.Failed)
	assert.False(t, stats.Degraded)
}

func TestConsoleDisablesAfterDoubleFailure(t *testing.T) {
	w := &flakyWriter{failures: 2}
	c := newConsoleSink("console", LevelInfo, NewFormatter(TemplateNone, ""), discardReport)
	c.w = w

	c.Write(testRecord())

	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.Failed)
	assert.True(t, stats.Degraded)

	// Disabled: later records are dropped, not retried.
	c.Write(testRecord())
	assert.Equal(t, uint64(1), c.Stats().Dropped)
	assert.Empty(t, w.String())
}

func TestConsoleCloseDisables(t *testing.T) {
	var buf bytes.Buffer
	c := newConsoleSink("console", LevelInfo, NewFormatter(TemplateNone, ""), discardReport)
	c.w = &buf

	require.NoError(t, c.Close(time.Second))
	c.Write(testRecord())

	assert.Empty(t, buf.String())
	assert.Equal(t, uint64(1), c.Stats().Dropped)
}
