// FILE: errors.go
package skylog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSinkExhausted marks a write skipped because the sink's retry budget
// is spent and it is waiting for its next attempt window.
var ErrSinkExhausted = errors.New("skylog: sink retry budget exhausted")

// ConfigError reports a malformed or missing mandatory configuration value.
// It is fatal at startup: a pipeline is never built from an invalid config.
type ConfigError struct {
	Section string
	Key     string
	Reason  string
}

func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("skylog: config [%s] %s: %s", e.Section, e.Key, e.Reason)
	}
	return fmt.Sprintf("skylog: config [%s]: %s", e.Section, e.Reason)
}

// FormatError reports a template placeholder the record does not carry.
// It is recovered at the sink boundary with a raw field dump.
type FormatError struct {
	Placeholder string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("skylog: unknown placeholder '{%s}'", e.Placeholder)
}

// SinkIOError wraps an I/O failure on a sink's output resource.
type SinkIOError struct {
	Sink string
	Op   string
	Err  error
}

func (e *SinkIOError) Error() string {
	return fmt.Sprintf("skylog: sink %s: %s: %v", e.Sink, e.Op, e.Err)
}

func (e *SinkIOError) Unwrap() error { return e.Err }

// fmtErrorf wrapper
func fmtErrorf(format string, args ...any) error {
	if !strings.HasPrefix(format, "skylog: ") {
		format = "skylog: " + format
	}
	return fmt.Errorf(format, args...)
}

// combineErrors helper
func combineErrors(err1, err2 error) error {
	if err1 == nil {
		return err2
	}
	if err2 == nil {
		return err1
	}
	return fmt.Errorf("%v; %w", err1, err2)
}
