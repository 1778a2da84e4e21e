// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DefaultWindow is the event lookback used when a scoring call
	// does not specify one: 30d, 90d or 365d.
	DefaultWindow string `koanf:"default_window"`

	// RescoreQueueSize bounds the in-memory rescore job queue.
	RescoreQueueSize int `koanf:"rescore_queue_size"`

	// WorkerCount sets the number of rescore workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the external-feed event id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// EventBase and SeverityStep calibrate the local risk
	// contribution: each in-window event adds base + step*severity.
	EventBase    float64 `koanf:"event_base"`
	SeverityStep float64 `koanf:"severity_step"`

	// TelematicsLatencyMinMS and TelematicsLatencyMaxMS bound the
	// simulated provider latency of the in-memory gateway.
	TelematicsLatencyMinMS int `koanf:"telematics_latency_min_ms"`
	TelematicsLatencyMaxMS int `koanf:"telematics_latency_max_ms"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":9080",
		DefaultWindow:          "90d",
		RescoreQueueSize:       10_000,
		WorkerCount:            runtime.NumCPU() * 2,
		DedupeSize:             50_000,
		EventBase:              16,
		SeverityStep:           9,
		TelematicsLatencyMinMS: 5,
		TelematicsLatencyMaxMS: 25,
	}
}
