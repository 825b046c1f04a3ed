// FILE: builder_test.go
package skylog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderComposesPipeline(t *testing.T) {
	dir := t.TempDir()

	d, err := NewBuilder("builder-test").
		Level("debug").
		Console("console", "critical", "short").
		RotatingFile("mainlog", "debug", "none", filepath.Join(dir, "{job}.log"), "1024", 2).
		Build()
	require.NoError(t, err)
	require.NoError(t, d.Start())

	d.Info("hello from builder")
	require.NoError(t, d.Flush(time.Second))
	require.NoError(t, d.Shutdown(time.Second))

	data, err := os.ReadFile(filepath.Join(dir, "builder-test.log"))
	require.NoError(t, err)
	assert.Equal(t, "hello from builder\n", string(data))
}

func TestBuilderPreservesHandlerOrder(t *testing.T) {
	d, err := NewBuilder("ordered").
		Console("second", "info", "short").
		Console("first", "info", "short"). // declaration order, not name order
		Build()
	require.NoError(t, err)
	defer d.Shutdown()

	require.Len(t, d.sinks, 2)
	assert.Equal(t, "second", d.sinks[0].Name())
	assert.Equal(t, "first", d.sinks[1].Name())
}

func TestBuilderRejectsBadLevel(t *testing.T) {
	_, err := NewBuilder("bad").
		Level("blaring").
		Console("console", "info", "short").
		Build()
	assert.Error(t, err)
}

func TestBuilderRejectsDuplicateHandler(t *testing.T) {
	_, err := NewBuilder("dup").
		Console("console", "info", "short").
		Console("console", "debug", "long").
		Build()
	assert.Error(t, err)
}

func TestBuilderErrorShortCircuits(t *testing.T) {
	// After the first error, later calls do not mask it.
	_, err := NewBuilder("chain").
		Level("nonsense").
		Level("info").
		Console("console", "info", "short").
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonsense")
}
