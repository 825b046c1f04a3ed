// FILE: config_test.go
package skylog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:    "info",
			Job:      "test",
			Handlers: []string{"console"},
		},
		Handlers: map[string]HandlerConfig{
			"console": {Kind: KindConsole},
		},
	}
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"bad pipeline level", func(c *Config) { c.Logger.Level = "loud" }, "level"},
		{"negative heartbeat", func(c *Config) { c.Logger.HeartbeatIntervalS = -1 }, "heartbeat_interval_s"},
		{"no handlers enabled", func(c *Config) { c.Logger.Handlers = nil }, "handlers"},
		{"whitespace in name", func(c *Config) { c.Logger.Handlers = []string{"my handler"} }, "handlers"},
		{"missing section", func(c *Config) { c.Logger.Handlers = []string{"ghost"} }, "handlers"},
		{"duplicate handler", func(c *Config) { c.Logger.Handlers = []string{"console", "console"} }, "handlers"},
		{"bad handler level", func(c *Config) {
			c.Handlers["console"] = HandlerConfig{Kind: KindConsole, Level: "shout"}
		}, "level"},
		{"undeclared formatter", func(c *Config) {
			c.Handlers["console"] = HandlerConfig{Kind: KindConsole, Formatter: "fancy"}
		}, "formatter"},
		{"bad overflow policy", func(c *Config) {
			c.Handlers["console"] = HandlerConfig{Kind: KindConsole, Overflow: "block"}
		}, "overflow"},
		{"missing kind", func(c *Config) {
			c.Handlers["console"] = HandlerConfig{}
		}, "kind"},
		{"unknown kind", func(c *Config) {
			c.Handlers["console"] = HandlerConfig{Kind: "syslog"}
		}, "kind"},
		{"file without path", func(c *Config) {
			c.Handlers["console"] = HandlerConfig{Kind: KindRotatingFile, MaxSize: "1024", MaxGenerations: 1}
		}, "path"},
		{"file with bad size", func(c *Config) {
			c.Handlers["console"] = HandlerConfig{Kind: KindRotatingFile, Path: "x.log", MaxSize: "a lot", MaxGenerations: 1}
		}, "max_size"},
		{"file without generations", func(c *Config) {
			c.Handlers["console"] = HandlerConfig{Kind: KindRotatingFile, Path: "x.log", MaxSize: "1024"}
		}, "max_generations"},
		{"database without dsn", func(c *Config) {
			c.Handlers["console"] = HandlerConfig{Kind: KindDatabase}
		}, "dsn"},
		{"database bad scheme", func(c *Config) {
			c.Handlers["console"] = HandlerConfig{Kind: KindDatabase, DSN: "postgres://x"}
		}, "dsn"},
		{"udp without host", func(c *Config) {
			c.Handlers["console"] = HandlerConfig{Kind: KindUDP, Port: 514}
		}, "host"},
		{"udp bad port", func(c *Config) {
			c.Handlers["console"] = HandlerConfig{Kind: KindUDP, Host: "localhost", Port: 70000}
		}, "port"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.key, ce.Key)
		})
	}
}

func TestFormatterForBuiltinsAndOverrides(t *testing.T) {
	cfg := validConfig()

	fc, err := cfg.formatterFor("short")
	require.NoError(t, err)
	assert.Equal(t, TemplateShort, fc.Format)

	// A declared section of the same name overrides the builtin.
	cfg.Formatters = map[string]FormatterConfig{
		"short": {Format: "{message}!"},
	}
	fc, err = cfg.formatterFor("short")
	require.NoError(t, err)
	assert.Equal(t, "{message}!", fc.Format)

	_, err = cfg.formatterFor("missing")
	assert.Error(t, err)
}

func TestParseSizeExpr(t *testing.T) {
	cases := []struct {
		in       string
		expected int64
	}{
		{"1024", 1024},
		{"100*1024*1024", 100 * 1024 * 1024},
		{"1*1024 + 512", 1536},
		{" 8 * 8 ", 64},
	}
	for _, tc := range cases {
		size, err := ParseSizeExpr(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.expected, size, "input %q", tc.in)
	}

	for _, bad := range []string{"", "abc", "10*", "1..5"} {
		_, err := ParseSizeExpr(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestLoadConfigFromTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.toml")
	content := `
[logger]
level = "debug"
job = "loader-test"
handlers = ["console", "mainlog"]
heartbeat_interval_s = 30

[formatter.verbose]
format = "{timestamp} {pid} {level} [{job}] {message}"
datefmt = "2006-01-02 15:04:05"

[handler.console]
kind = "console"
level = "warning"

[handler.mainlog]
kind = "rotating_file"
formatter = "verbose"
path = "` + filepath.ToSlash(dir) + `/{job}.log"
max_size = "1024*1024"
max_generations = 4
queue_size = 256
overflow = "drop_oldest"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "loader-test", cfg.Logger.Job)
	assert.Equal(t, []string{"console", "mainlog"}, cfg.Logger.Handlers)
	assert.Equal(t, int64(30), cfg.Logger.HeartbeatIntervalS)

	hc := cfg.Handlers["mainlog"]
	assert.Equal(t, KindRotatingFile, hc.Kind)
	assert.Equal(t, "verbose", hc.Formatter)
	assert.Equal(t, 4, hc.MaxGenerations)
	assert.Equal(t, 256, hc.QueueSize)
	assert.Equal(t, "drop_oldest", hc.Overflow)

	assert.Equal(t, "2006-01-02 15:04:05", cfg.Formatters["verbose"].DateFmt)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.toml")
	content := `
[logger]
handlers = ["phantom"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	var ce *ConfigError
	assert.ErrorAs(t, err, &ce)
}

func TestNewFromConfigBuildsPipeline(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		Logger: LoggerConfig{
			Level:    "debug",
			Job:      "built",
			Handlers: []string{"console", "mainlog"},
		},
		Handlers: map[string]HandlerConfig{
			"console": {Kind: KindConsole, Level: "critical"},
			"mainlog": {
				Kind: KindRotatingFile, Formatter: "none",
				Path: filepath.Join(dir, "{job}.log"), MaxSize: "1024", MaxGenerations: 2,
			},
		},
	}

	d, err := NewFromConfig(cfg)
	require.NoError(t, err)
	require.NoError(t, d.Start())

	d.Info("written to file only")
	require.NoError(t, d.Flush(time.Second))
	require.NoError(t, d.Shutdown(time.Second))

	data, err := os.ReadFile(filepath.Join(dir, "built.log"))
	require.NoError(t, err)
	assert.Equal(t, "written to file only\n", string(data))

	stats := d.Stats()
	assert.Equal(t, uint64(1), stats["mainlog"].Delivered)
	assert.Zero(t, stats["console"].Delivered)
}

func TestNewFromConfigHandlerThresholdDefaultsToPipeline(t *testing.T) {
	cfg := validConfig()
	cfg.Logger.Level = "error"

	d, err := NewFromConfig(cfg)
	require.NoError(t, err)
	defer d.Shutdown()

	stats := d.Stats()
	require.Contains(t, stats, "console")

	require.Len(t, d.sinks, 1)
	assert.Equal(t, LevelError, d.sinks[0].Threshold())
}
