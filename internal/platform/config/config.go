// Package config loads the service configuration with koanf and validates
// it before anything starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jsamuelsen/go-exceptions-api/internal/exceptions"
)

// Defaults that other packages or tests refer to.
const (
	DefaultServerPort       = 8080
	DefaultMaxRequestSize   = 1 << 20
	DefaultLogFileMaxSizeMB = 100
	DefaultEnvFile          = ".env"

	envPrefix = "APP_"
	configDir = "configs"
)

// Config is the root configuration structure.
type Config struct {
	App        AppConfig        `koanf:"app"        validate:"required"`
	Server     ServerConfig     `koanf:"server"     validate:"required"`
	Log        LogConfig        `koanf:"log"        validate:"required"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Exceptions ExceptionsConfig `koanf:"exceptions" validate:"required"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	Host            string        `koanf:"host"             validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig contains rolling log file settings.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"        validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"    validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"     validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig contains OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true,omitempty,url"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
}

// ExceptionsConfig contains settings for the failure-handling middleware.
type ExceptionsConfig struct {
	// CorrelationHeader names the header read from requests and echoed on
	// responses.
	CorrelationHeader string `koanf:"correlation_header" validate:"required"`

	// CorrelationFromTrace uses the W3C trace ID as the correlation value
	// when the request carries no correlation header.
	CorrelationFromTrace bool `koanf:"correlation_from_trace"`

	// DefaultMessage is the client message for failures that have none.
	DefaultMessage string `koanf:"default_message" validate:"required"`

	// DefaultStatusCode is the status for unregistered failures.
	DefaultStatusCode int `koanf:"default_status_code" validate:"required,min=100,max=999"`

	// DegradeOnResolverError answers with the fallback response instead of
	// re-raising when a registered resolver fails.
	DegradeOnResolverError bool `koanf:"degrade_on_resolver_error"`
}

// defaults returns the default configuration values.
func defaults() map[string]any {
	return map[string]any{
		"app.name":        "go-exceptions-api",
		"app.version":     "dev",
		"app.environment": "local",

		"server.port":             DefaultServerPort,
		"server.host":             "0.0.0.0",
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "10s",
		"server.max_request_size": DefaultMaxRequestSize,

		"log.level":            "info",
		"log.format":           "json",
		"log.file.enabled":     false,
		"log.file.path":        "./logs/app.log",
		"log.file.max_size":    DefaultLogFileMaxSizeMB,
		"log.file.max_backups": 3,
		"log.file.max_age":     28,
		"log.file.compress":    true,

		"telemetry.enabled":       false,
		"telemetry.endpoint":      "",
		"telemetry.service_name":  "go-exceptions-api",
		"telemetry.sampling_rate": 1.0,

		"exceptions.correlation_header":        exceptions.DefaultCorrelationKey,
		"exceptions.correlation_from_trace":    false,
		"exceptions.default_message":           exceptions.DefaultMessage,
		"exceptions.default_status_code":       exceptions.DefaultStatusCode,
		"exceptions.degrade_on_resolver_error": false,
	}
}

// Load reads the configuration for profile. Later layers override earlier
// ones:
//  1. defaults
//  2. configs/base.yaml
//  3. configs/{profile}.yaml
//  4. APP_ entries of the .env file
//  5. APP_ environment variables
//
// Missing files are skipped.
func Load(profile string) (*Config, error) {
	return LoadWithEnvFile(profile, DefaultEnvFile)
}

// LoadWithEnvFile is Load with an explicit dotenv path. An empty path skips
// the dotenv layer.
func LoadWithEnvFile(profile, envFile string) (*Config, error) {
	k := koanf.New(".")

	layers := []struct {
		name string
		load func(*koanf.Koanf) error
	}{
		{"defaults", func(k *koanf.Koanf) error { return k.Load(confmap.Provider(defaults(), "."), nil) }},
		{"base config", yamlLayer(filepath.Join(configDir, "base.yaml"))},
		{fmt.Sprintf("profile config %q", profile), yamlLayer(profilePath(profile))},
		{fmt.Sprintf("env file %q", envFile), dotenvLayer(envFile)},
		{"env vars", func(k *koanf.Koanf) error { return k.Load(env.Provider(envPrefix, ".", envKey), nil) }},
	}

	for _, layer := range layers {
		if err := layer.load(k); err != nil {
			return nil, fmt.Errorf("loading %s: %w", layer.name, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

func profilePath(profile string) string {
	if profile == "" {
		return ""
	}

	return filepath.Join(configDir, profile+".yaml")
}

// envKey maps APP_LOG_LEVEL to log.level. Keys whose leaf contains an
// underscore (exceptions.default_message) are matched by knownKey.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	if known, ok := knownKey(key); ok {
		return known
	}

	return strings.ReplaceAll(key, "_", ".")
}

// knownKey finds the default key whose underscored form equals key.
func knownKey(key string) (string, bool) {
	for k := range defaults() {
		if strings.ReplaceAll(k, ".", "_") == key {
			return k, true
		}
	}

	return "", false
}

// exists reports whether path names a file. Empty paths never exist.
func exists(path string) bool {
	if path == "" {
		return false
	}

	_, err := os.Stat(path)

	return !errors.Is(err, os.ErrNotExist)
}

func yamlLayer(path string) func(*koanf.Koanf) error {
	return func(k *koanf.Koanf) error {
		if !exists(path) {
			return nil
		}

		return k.Load(file.Provider(path), yaml.Parser())
	}
}

// dotenvLayer loads the APP_ entries of a dotenv file without touching the
// process environment.
func dotenvLayer(path string) func(*koanf.Koanf) error {
	return func(k *koanf.Koanf) error {
		if !exists(path) {
			return nil
		}

		vars, err := godotenv.Read(path)
		if err != nil {
			return err
		}

		values := make(map[string]any, len(vars))
		for name, value := range vars {
			if strings.HasPrefix(name, envPrefix) {
				values[envKey(name)] = value
			}
		}

		return k.Load(confmap.Provider(values, "."), nil)
	}
}

// Defaults returns the classifier fallback described by the config.
func (c ExceptionsConfig) Defaults() exceptions.Defaults {
	return exceptions.Defaults{StatusCode: c.DefaultStatusCode, Message: c.DefaultMessage}
}
