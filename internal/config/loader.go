package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "quizhub.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "QUIZHUB_PORT")
	setString(&cfg.Server.CORSOrigin, "QUIZHUB_CORS_ORIGIN")
	setString(&cfg.NATS.URL, "NATS_URL")
	setDuration(&cfg.NATS.ReconnectWait, "QUIZHUB_NATS_RECONNECT_WAIT")
	setString(&cfg.Logging.Level, "QUIZHUB_LOG_LEVEL")
	setString(&cfg.Logging.Service, "QUIZHUB_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "QUIZHUB_LOG_ASYNC")
	setInt(&cfg.Hub.SendBuffer, "QUIZHUB_SEND_BUFFER")
	setDuration(&cfg.Hub.WriteTimeout, "QUIZHUB_WRITE_TIMEOUT")
	setDuration(&cfg.Hub.ShutdownTimeout, "QUIZHUB_SHUTDOWN_TIMEOUT")
	setInt(&cfg.Breaker.MaxFailures, "QUIZHUB_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "QUIZHUB_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "QUIZHUB_RATE_RPS")
	setInt(&cfg.Rate.Burst, "QUIZHUB_RATE_BURST")
	setInt64(&cfg.Cache.L1MaxSizeMB, "QUIZHUB_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "QUIZHUB_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "QUIZHUB_CACHE_L2_TTL")
	setString(&cfg.Telemetry.OTLPEndpoint, "QUIZHUB_OTLP_ENDPOINT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Hub.SendBuffer < 1 {
		return errors.New("hub.send_buffer must be >= 1")
	}
	if cfg.Hub.ShutdownTimeout <= 0 {
		return errors.New("hub.shutdown_timeout must be positive")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
