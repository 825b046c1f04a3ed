// FILE: builder.go
package skylog

// Builder provides a fluent API for composing a pipeline without a config
// file. It accumulates a Config and defers validation to Build.
type Builder struct {
	cfg *Config
	seq []string // declared handler order
	err error    // accumulate errors for deferred handling
}

// NewBuilder creates a builder for the given job name.
func NewBuilder(job string) *Builder {
	return &Builder{
		cfg: &Config{
			Logger:   LoggerConfig{Job: job, Level: "info"},
			Handlers: map[string]HandlerConfig{},
		},
	}
}

// Build validates the accumulated configuration and constructs the
// dispatcher with its sinks, unstarted.
func (b *Builder) Build() (*Dispatcher, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.cfg.Logger.Handlers = b.seq
	return NewFromConfig(b.cfg)
}

// Level sets the pipeline-wide minimum severity.
func (b *Builder) Level(level string) *Builder {
	if b.err != nil {
		return b
	}
	if _, err := ParseLevel(level); err != nil {
		b.err = err
		return b
	}
	b.cfg.Logger.Level = level
	return b
}

// HeartbeatIntervalS enables periodic pipeline statistics emission.
func (b *Builder) HeartbeatIntervalS(interval int64) *Builder {
	b.cfg.Logger.HeartbeatIntervalS = interval
	return b
}

// StderrReports enables last-resort sink diagnostics on stderr.
func (b *Builder) StderrReports(enable bool) *Builder {
	b.cfg.Logger.InternalErrorsToStderr = enable
	return b
}

// Handler adds a fully specified sink declaration under the given name.
func (b *Builder) Handler(name string, hc HandlerConfig) *Builder {
	if _, dup := b.cfg.Handlers[name]; dup {
		b.err = fmtErrorf("handler '%s' declared twice", name)
		return b
	}
	b.cfg.Handlers[name] = hc
	b.seq = append(b.seq, name)
	return b
}

// Console adds a console sink.
func (b *Builder) Console(name, level, formatter string) *Builder {
	return b.Handler(name, HandlerConfig{Kind: KindConsole, Level: level, Formatter: formatter})
}

// RotatingFile adds a rotating file sink. maxSize accepts an arithmetic
// expression, e.g. "100*1024*1024".
func (b *Builder) RotatingFile(name, level, formatter, path, maxSize string, maxGenerations int) *Builder {
	return b.Handler(name, HandlerConfig{
		Kind: KindRotatingFile, Level: level, Formatter: formatter,
		Path: path, MaxSize: maxSize, MaxGenerations: maxGenerations,
	})
}

// Database adds a best-effort database sink.
func (b *Builder) Database(name, level, dsn string) *Builder {
	return b.Handler(name, HandlerConfig{Kind: KindDatabase, Level: level, Formatter: "none", DSN: dsn})
}

// UDP adds a fire-and-forget UDP broadcast sink.
func (b *Builder) UDP(name, level, host string, port int) *Builder {
	return b.Handler(name, HandlerConfig{Kind: KindUDP, Level: level, Formatter: "none", Host: host, Port: port})
}
