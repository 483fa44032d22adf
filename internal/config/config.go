// Package config provides hierarchical configuration loading for QuizHub.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the QuizHub service.
type Config struct {
	Server    Server    `yaml:"server"`
	NATS      NATS      `yaml:"nats"`
	Logging   Logging   `yaml:"logging"`
	Hub       Hub       `yaml:"hub"`
	Breaker   Breaker   `yaml:"breaker"`
	Rate      Rate      `yaml:"rate"`
	Cache     Cache     `yaml:"cache"`
	Telemetry Telemetry `yaml:"telemetry"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// NATS holds backplane connection configuration.
type NATS struct {
	URL           string        `yaml:"url"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Hub holds per-connection and shutdown tuning for the broadcast hub.
type Hub struct {
	// SendBuffer is the bounded outbound queue per connection. A
	// connection that falls this many events behind is closed.
	SendBuffer int `yaml:"send_buffer"`
	// WriteTimeout bounds a single websocket write.
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// ShutdownTimeout bounds the graceful drain of all connections.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Breaker holds circuit breaker configuration for backplane publishes.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Rate holds producer API rate limiter configuration.
type Rate struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Cache holds room snapshot cache configuration.
type Cache struct {
	L1MaxSizeMB int64         `yaml:"l1_max_size_mb"`
	L2Bucket    string        `yaml:"l2_bucket"`
	L2TTL       time.Duration `yaml:"l2_ttl"`
}

// Telemetry holds OpenTelemetry exporter configuration. An empty endpoint
// disables export; instruments still record locally as no-ops.
type Telemetry struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:3000",
		},
		NATS: NATS{
			URL:           "nats://localhost:4222",
			ReconnectWait: 2 * time.Second,
		},
		Logging: Logging{
			Level:   "info",
			Service: "quizhub",
		},
		Hub: Hub{
			SendBuffer:      32,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Rate: Rate{
			RequestsPerSecond: 10,
			Burst:             100,
		},
		Cache: Cache{
			L1MaxSizeMB: 64,
			L2Bucket:    "quizhub-snapshots",
			L2TTL:       time.Hour,
		},
	}
}
