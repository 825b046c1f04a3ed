// FILE: config.go
package skylog

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Sink kind identifiers recognized in handler sections.
const (
	KindConsole      = "console"
	KindRotatingFile = "rotating_file"
	KindDatabase     = "database"
	KindUDP          = "udp"
)

// Config is the declarative description of a pipeline: one logger section,
// named formatter sections, named handler sections. It is loaded once at
// startup and never mutated for the process lifetime.
type Config struct {
	Logger     LoggerConfig               `toml:"logger"`
	Formatters map[string]FormatterConfig `toml:"formatter"`
	Handlers   map[string]HandlerConfig   `toml:"handler"`
}

// LoggerConfig is the pipeline-wide section.
type LoggerConfig struct {
	Level string `toml:"level"` // minimum severity for the whole pipeline
	Job   string `toml:"job"`   // per-run job name, substituted into file paths

	// Handlers is the explicit, validated enabled-sink set, in emission
	// order. There is no implicit default set.
	Handlers []string `toml:"handlers"`

	HeartbeatIntervalS     int64 `toml:"heartbeat_interval_s"` // 0 = disabled
	InternalErrorsToStderr bool  `toml:"internal_errors_to_stderr"`
}

// FormatterConfig declares a rendering template. Recognized placeholders:
// {timestamp}, {pid}, {level}, {message}, {job}.
type FormatterConfig struct {
	Format  string `toml:"format"`
	DateFmt string `toml:"datefmt"` // Go time layout, default RFC3339Nano
}

// HandlerConfig declares one sink. Kind selects the variant; the remaining
// fields are kind-specific parameters.
type HandlerConfig struct {
	Kind      string `toml:"kind"`
	Level     string `toml:"level"`     // override, defaults to logger level
	Formatter string `toml:"formatter"` // formatter section reference

	// rotating_file
	Path           string `toml:"path"`     // template, "{job}" substituted
	MaxSize        string `toml:"max_size"` // bytes; arithmetic expression allowed
	MaxGenerations int    `toml:"max_generations"`

	// database
	DSN string `toml:"dsn"`

	// udp
	Host string `toml:"host"`
	Port int    `toml:"port"`

	// async queue tuning (file, database, udp)
	QueueSize int    `toml:"queue_size"`
	Overflow  string `toml:"overflow"` // drop_newest (default) or drop_oldest
	TimeoutMs int64  `toml:"timeout_ms"`
}

// builtinFormatters are the canonical templates available without
// declaration; a formatter section of the same name overrides them.
var builtinFormatters = map[string]FormatterConfig{
	"short": {Format: TemplateShort},
	"long":  {Format: TemplateLong},
	"none":  {Format: TemplateNone},
}

// LoadConfig reads and validates a TOML pipeline configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmtErrorf("failed to load config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration. Any violation is a ConfigError: the
// process must not start with an invalid sink declared.
func (c *Config) Validate() error {
	if c.Logger.Level != "" {
		if _, err := ParseLevel(c.Logger.Level); err != nil {
			return &ConfigError{Section: "logger", Key: "level", Reason: err.Error()}
		}
	}
	if c.Logger.HeartbeatIntervalS < 0 {
		return &ConfigError{Section: "logger", Key: "heartbeat_interval_s", Reason: "cannot be negative"}
	}
	if len(c.Logger.Handlers) == 0 {
		return &ConfigError{Section: "logger", Key: "handlers", Reason: "at least one handler must be enabled"}
	}

	seen := make(map[string]bool, len(c.Logger.Handlers))
	for _, name := range c.Logger.Handlers {
		if strings.ContainsAny(name, " \t") {
			return &ConfigError{Section: "logger", Key: "handlers",
				Reason: "handler name '" + name + "' contains whitespace"}
		}
		if seen[name] {
			return &ConfigError{Section: "logger", Key: "handlers",
				Reason: "handler '" + name + "' listed twice"}
		}
		seen[name] = true
		hc, ok := c.Handlers[name]
		if !ok {
			return &ConfigError{Section: "logger", Key: "handlers",
				Reason: "handler '" + name + "' has no [handler." + name + "] section"}
		}
		if err := c.validateHandler(name, hc); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateHandler(name string, hc HandlerConfig) error {
	section := "handler." + name

	if hc.Level != "" {
		if _, err := ParseLevel(hc.Level); err != nil {
			return &ConfigError{Section: section, Key: "level", Reason: err.Error()}
		}
	}
	if hc.Formatter != "" {
		if _, err := c.formatterFor(hc.Formatter); err != nil {
			return &ConfigError{Section: section, Key: "formatter", Reason: err.Error()}
		}
	}
	switch hc.Overflow {
	case "", "drop_newest", "drop_oldest":
	default:
		return &ConfigError{Section: section, Key: "overflow",
			Reason: "invalid policy '" + hc.Overflow + "' (use drop_newest or drop_oldest)"}
	}
	if hc.QueueSize < 0 {
		return &ConfigError{Section: section, Key: "queue_size", Reason: "cannot be negative"}
	}

	switch hc.Kind {
	case KindConsole:
		// No mandatory args.
	case KindRotatingFile:
		if strings.TrimSpace(hc.Path) == "" {
			return &ConfigError{Section: section, Key: "path", Reason: "mandatory for rotating_file"}
		}
		size, err := ParseSizeExpr(hc.MaxSize)
		if err != nil {
			return &ConfigError{Section: section, Key: "max_size", Reason: err.Error()}
		}
		if size <= 0 {
			return &ConfigError{Section: section, Key: "max_size", Reason: "must be positive"}
		}
		if hc.MaxGenerations < 1 {
			return &ConfigError{Section: section, Key: "max_generations", Reason: "must be at least 1"}
		}
	case KindDatabase:
		if strings.TrimSpace(hc.DSN) == "" {
			return &ConfigError{Section: section, Key: "dsn", Reason: "mandatory for database"}
		}
		if _, err := dialectorFor(hc.DSN); err != nil {
			return &ConfigError{Section: section, Key: "dsn", Reason: err.Error()}
		}
	case KindUDP:
		if strings.TrimSpace(hc.Host) == "" {
			return &ConfigError{Section: section, Key: "host", Reason: "mandatory for udp"}
		}
		if hc.Port < 1 || hc.Port > 65535 {
			return &ConfigError{Section: section, Key: "port", Reason: "must be in 1..65535"}
		}
	case "":
		return &ConfigError{Section: section, Key: "kind", Reason: "mandatory"}
	default:
		return &ConfigError{Section: section, Key: "kind",
			Reason: "unknown kind '" + hc.Kind + "' (use console, rotating_file, database, udp)"}
	}
	return nil
}

// formatterFor resolves a formatter reference against declared sections,
// falling back to the builtin templates.
func (c *Config) formatterFor(name string) (FormatterConfig, error) {
	if fc, ok := c.Formatters[name]; ok {
		return fc, nil
	}
	if fc, ok := builtinFormatters[name]; ok {
		return fc, nil
	}
	return FormatterConfig{}, fmtErrorf("formatter '%s' is not declared", name)
}

// ParseSizeExpr evaluates a byte-size value that may be written as an
// arithmetic sum of products, e.g. "100*1024*1024".
func ParseSizeExpr(expr string) (int64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, fmtErrorf("empty size expression")
	}
	var total int64
	for _, term := range strings.Split(expr, "+") {
		product := int64(1)
		for _, factor := range strings.Split(term, "*") {
			n, err := strconv.ParseInt(strings.TrimSpace(factor), 10, 64)
			if err != nil {
				return 0, fmtErrorf("invalid size expression '%s': %w", expr, err)
			}
			product *= n
		}
		total += product
	}
	return total, nil
}

// NewFromConfig builds the pipeline a validated configuration declares:
// the sink registry is composed in handler-list order, each sink with its
// own formatter and threshold. The dispatcher is returned unstarted.
func NewFromConfig(cfg *Config) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := LevelInfo
	if cfg.Logger.Level != "" {
		level, _ = ParseLevel(cfg.Logger.Level)
	}

	opts := []Option{WithLevel(level), WithStderrReports(cfg.Logger.InternalErrorsToStderr)}
	if cfg.Logger.HeartbeatIntervalS > 0 {
		opts = append(opts, WithHeartbeat(time.Duration(cfg.Logger.HeartbeatIntervalS)*time.Second))
	}
	d := New(cfg.Logger.Job, opts...)

	for _, name := range cfg.Logger.Handlers {
		sink, err := cfg.buildSink(name, d, level)
		if err != nil {
			// Release the sinks already built before failing boot.
			_ = d.Shutdown(time.Second)
			return nil, err
		}
		if err := d.Register(sink); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// NewFromConfigFile is the LoadConfig + NewFromConfig convenience.
func NewFromConfigFile(path string) (*Dispatcher, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg)
}

func (c *Config) buildSink(name string, d *Dispatcher, pipelineLevel int64) (Sink, error) {
	hc := c.Handlers[name]

	threshold := pipelineLevel
	if hc.Level != "" {
		threshold, _ = ParseLevel(hc.Level)
	}

	formatterName := hc.Formatter
	if formatterName == "" {
		formatterName = "short"
	}
	fc, err := c.formatterFor(formatterName)
	if err != nil {
		return nil, &ConfigError{Section: "handler." + name, Key: "formatter", Reason: err.Error()}
	}
	formatter := NewFormatter(fc.Format, fc.DateFmt)

	policy := DropNewest
	if hc.Overflow == "drop_oldest" {
		policy = DropOldest
	}
	timeout := time.Duration(hc.TimeoutMs) * time.Millisecond

	switch hc.Kind {
	case KindConsole:
		return newConsoleSink(name, threshold, formatter, d.report), nil
	case KindRotatingFile:
		maxSize, _ := ParseSizeExpr(hc.MaxSize)
		return newRotatingFileSink(name, threshold, formatter, hc.Path, d.job,
			maxSize, hc.MaxGenerations, hc.QueueSize, policy, d.report)
	case KindDatabase:
		return newDatabaseSink(name, threshold, hc.DSN, timeout, hc.QueueSize, policy, d.report)
	case KindUDP:
		addr := net.JoinHostPort(hc.Host, strconv.Itoa(hc.Port))
		return newUDPSink(name, threshold, addr, timeout, hc.QueueSize, policy, d.report)
	default:
		return nil, &ConfigError{Section: "handler." + name, Key: "kind", Reason: "unknown kind"}
	}
}
