// FILE: compat/gnet.go
package compat

import (
	"fmt"
	"os"
	"time"

	"github.com/gamato/skylog"
)

// GnetAdapter wraps a skylog.Dispatcher to implement gnet's
// logging.Logger interface, so gnet servers log through the pipeline.
type GnetAdapter struct {
	dispatcher   *skylog.Dispatcher
	fatalHandler func(msg string) // Customizable fatal behavior
}

// NewGnetAdapter creates a new gnet-compatible logger adapter.
func NewGnetAdapter(d *skylog.Dispatcher, opts ...GnetOption) *GnetAdapter {
	adapter := &GnetAdapter{
		dispatcher: d,
		fatalHandler: func(msg string) {
			os.Exit(1) // Default behavior matches gnet expectations
		},
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// GnetOption allows customizing adapter behavior.
type GnetOption func(*GnetAdapter)

// WithFatalHandler sets a custom fatal handler.
func WithFatalHandler(handler func(string)) GnetOption {
	return func(a *GnetAdapter) {
		a.fatalHandler = handler
	}
}

// Debugf logs at debug level with printf-style formatting.
func (a *GnetAdapter) Debugf(format string, args ...any) {
	a.dispatcher.Debug("gnet:", fmt.Sprintf(format, args...))
}

// Infof logs at info level with printf-style formatting.
func (a *GnetAdapter) Infof(format string, args ...any) {
	a.dispatcher.Info("gnet:", fmt.Sprintf(format, args...))
}

// Warnf logs at warn level with printf-style formatting.
func (a *GnetAdapter) Warnf(format string, args ...any) {
	a.dispatcher.Warn("gnet:", fmt.Sprintf(format, args...))
}

// Errorf logs at error level with printf-style formatting.
func (a *GnetAdapter) Errorf(format string, args ...any) {
	a.dispatcher.Error("gnet:", fmt.Sprintf(format, args...))
}

// Fatalf logs at critical level and triggers the fatal handler.
func (a *GnetAdapter) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.dispatcher.Critical("gnet:", msg)

	// Ensure sinks are drained before exit
	_ = a.dispatcher.Flush(100 * time.Millisecond)

	if a.fatalHandler != nil {
		a.fatalHandler(msg)
	}
}
