// FILE: compat/fasthttp.go
package compat

import (
	"fmt"
	"strings"

	"github.com/gamato/skylog"
)

// FastHTTPAdapter wraps a skylog.Dispatcher to implement fasthttp's
// Logger interface.
type FastHTTPAdapter struct {
	dispatcher    *skylog.Dispatcher
	defaultLevel  int64
	levelDetector func(string) int64 // Function to detect log level from message
}

// NewFastHTTPAdapter creates a new fasthttp-compatible logger adapter.
func NewFastHTTPAdapter(d *skylog.Dispatcher, opts ...FastHTTPOption) *FastHTTPAdapter {
	adapter := &FastHTTPAdapter{
		dispatcher:    d,
		defaultLevel:  skylog.LevelInfo,
		levelDetector: DetectLogLevel, // Default level detection
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// FastHTTPOption allows customizing adapter behavior.
type FastHTTPOption func(*FastHTTPAdapter)

// WithDefaultLevel sets the default log level for Printf calls.
func WithDefaultLevel(level int64) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.defaultLevel = level
	}
}

// WithLevelDetector sets a custom function to detect log level from message content.
func WithLevelDetector(detector func(string) int64) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.levelDetector = detector
	}
}

// Printf implements fasthttp's Logger interface.
func (a *FastHTTPAdapter) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	// Detect log level from message content
	level := a.defaultLevel
	if a.levelDetector != nil {
		if detected := a.levelDetector(msg); detected != 0 {
			level = detected
		}
	}

	switch level {
	case skylog.LevelDebug:
		a.dispatcher.Debug("fasthttp:", msg)
	case skylog.LevelWarn:
		a.dispatcher.Warn("fasthttp:", msg)
	case skylog.LevelError:
		a.dispatcher.Error("fasthttp:", msg)
	case skylog.LevelCritical:
		a.dispatcher.Critical("fasthttp:", msg)
	default:
		a.dispatcher.Info("fasthttp:", msg)
	}
}

// DetectLogLevel attempts to detect log level from message content.
func DetectLogLevel(msg string) int64 {
	msgLower := strings.ToLower(msg)

	if strings.Contains(msgLower, "panic") ||
		strings.Contains(msgLower, "fatal") {
		return skylog.LevelCritical
	}

	if strings.Contains(msgLower, "error") ||
		strings.Contains(msgLower, "failed") {
		return skylog.LevelError
	}

	if strings.Contains(msgLower, "warn") ||
		strings.Contains(msgLower, "warning") ||
		strings.Contains(msgLower, "deprecated") {
		return skylog.LevelWarn
	}

	if strings.Contains(msgLower, "debug") ||
		strings.Contains(msgLower, "trace") {
		return skylog.LevelDebug
	}

	return skylog.LevelInfo
}
