package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a fully valid configuration for testing.
func validConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "test-service",
			Version:     "1.0.0",
			Environment: "local",
		},
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxRequestSize:  1048576,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Exceptions: ExceptionsConfig{
			CorrelationHeader: "X-Correlation-Id",
			DefaultMessage:    "An internal error has occurred",
			DefaultStatusCode: 500,
		},
	}
}

func TestConfig_Validate_Accepts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"baseline", func(*Config) {}},
		{"environment dev", func(c *Config) { c.App.Environment = "dev" }},
		{"environment qa", func(c *Config) { c.App.Environment = "qa" }},
		{"environment prod", func(c *Config) { c.App.Environment = "prod" }},
		{"environment test", func(c *Config) { c.App.Environment = "test" }},
		{"port 1", func(c *Config) { c.Server.Port = 1 }},
		{"port 65535", func(c *Config) { c.Server.Port = 65535 }},
		{"level trace", func(c *Config) { c.Log.Level = "trace" }},
		{"level debug", func(c *Config) { c.Log.Level = "debug" }},
		{"level warn", func(c *Config) { c.Log.Level = "warn" }},
		{"level error", func(c *Config) { c.Log.Level = "error" }},
		{"format text", func(c *Config) { c.Log.Format = "text" }},
		{"format pretty", func(c *Config) { c.Log.Format = "pretty" }},
		{"file disabled without path", func(c *Config) { c.Log.File = LogFileConfig{Enabled: false} }},
		{"file enabled", func(c *Config) {
			c.Log.File = LogFileConfig{Enabled: true, Path: "/var/log/app.log", MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 28}
		}},
		{"telemetry disabled without endpoint", func(c *Config) { c.Telemetry = TelemetryConfig{Enabled: false} }},
		{"telemetry enabled", func(c *Config) {
			c.Telemetry = TelemetryConfig{Enabled: true, Endpoint: "http://localhost:4317", ServiceName: "svc", SamplingRate: 0.5}
		}},
		{"sampling rate 0", func(c *Config) { c.Telemetry.SamplingRate = 0 }},
		{"sampling rate 1", func(c *Config) { c.Telemetry.SamplingRate = 1 }},
		{"default status 100", func(c *Config) { c.Exceptions.DefaultStatusCode = 100 }},
		{"default status 999", func(c *Config) { c.Exceptions.DefaultStatusCode = 999 }},
		{"trace correlation", func(c *Config) { c.Exceptions.CorrelationFromTrace = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestConfig_Validate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing name", func(c *Config) { c.App.Name = "" }, "app.name is required"},
		{"missing version", func(c *Config) { c.App.Version = "" }, "app.version is required"},
		{"missing environment", func(c *Config) { c.App.Environment = "" }, "app.environment is required"},
		{"unknown environment", func(c *Config) { c.App.Environment = "staging" }, "app.environment must be one of: local dev qa prod test"},
		{"port 0", func(c *Config) { c.Server.Port = 0 }, "server.port is required"},
		{"negative port", func(c *Config) { c.Server.Port = -1 }, "server.port must be at least 1"},
		{"port too high", func(c *Config) { c.Server.Port = 65536 }, "server.port must be at most 65535"},
		{"missing host", func(c *Config) { c.Server.Host = "" }, "server.host is required"},
		{"short read timeout", func(c *Config) { c.Server.ReadTimeout = 500 * time.Millisecond }, "server.read_timeout must be at least 1s"},
		{"no request size", func(c *Config) { c.Server.MaxRequestSize = 0 }, "server.max_request_size"},
		{"unknown level", func(c *Config) { c.Log.Level = "verbose" }, "log.level must be one of"},
		{"upper case level", func(c *Config) { c.Log.Level = "DEBUG" }, "log.level"},
		{"unknown format", func(c *Config) { c.Log.Format = "xml" }, "log.format must be one of"},
		{"file without path", func(c *Config) { c.Log.File = LogFileConfig{Enabled: true} }, "log.file.path is required when Enabled true"},
		{"file too large", func(c *Config) {
			c.Log.File = LogFileConfig{Enabled: true, Path: "/var/log/app.log", MaxSizeMB: 1025}
		}, "log.file.max_size must be at most 1024"},
		{"telemetry without endpoint", func(c *Config) {
			c.Telemetry = TelemetryConfig{Enabled: true, ServiceName: "svc"}
		}, "telemetry.endpoint"},
		{"telemetry without service name", func(c *Config) {
			c.Telemetry = TelemetryConfig{Enabled: true, Endpoint: "http://localhost:4317"}
		}, "telemetry.service_name"},
		{"telemetry endpoint not a url", func(c *Config) {
			c.Telemetry = TelemetryConfig{Enabled: true, Endpoint: "not-a-url", ServiceName: "svc"}
		}, "telemetry.endpoint must be a valid URL"},
		{"negative sampling rate", func(c *Config) { c.Telemetry.SamplingRate = -0.1 }, "telemetry.sampling_rate"},
		{"sampling rate above 1", func(c *Config) { c.Telemetry.SamplingRate = 1.1 }, "telemetry.sampling_rate"},
		{"missing correlation header", func(c *Config) { c.Exceptions.CorrelationHeader = "" }, "exceptions.correlation_header is required"},
		{"missing default message", func(c *Config) { c.Exceptions.DefaultMessage = "" }, "exceptions.default_message is required"},
		{"default status 0", func(c *Config) { c.Exceptions.DefaultStatusCode = 0 }, "exceptions.default_status_code"},
		{"default status 99", func(c *Config) { c.Exceptions.DefaultStatusCode = 99 }, "exceptions.default_status_code must be at least 100"},
		{"default status 1000", func(c *Config) { c.Exceptions.DefaultStatusCode = 1000 }, "exceptions.default_status_code must be at most 999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_Validate_ReportsEveryField(t *testing.T) {
	cfg := &Config{
		App:    AppConfig{Environment: "invalid"},
		Server: ServerConfig{Port: -1},
	}

	err := cfg.Validate()
	require.Error(t, err)

	for _, key := range []string{"app.name", "app.version", "app.environment", "server.port", "exceptions"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestExceptionsConfig_Defaults(t *testing.T) {
	cfg := validConfig()
	cfg.Exceptions.DefaultStatusCode = 503
	cfg.Exceptions.DefaultMessage = "try later"

	d := cfg.Exceptions.Defaults()
	assert.Equal(t, 503, d.StatusCode)
	assert.Equal(t, "try later", d.Message)
}

func TestConfigKey(t *testing.T) {
	tests := []struct {
		namespace string
		want      string
	}{
		{"Config.server.port", "server.port"},
		{"Config.exceptions.default_status_code", "exceptions.default_status_code"},
		{"Config.log.file.path", "log.file.path"},
		{"Config", "Config"},
	}

	for _, tt := range tests {
		t.Run(tt.namespace, func(t *testing.T) {
			assert.Equal(t, tt.want, configKey(tt.namespace))
		})
	}
}
