package config

import "time"

// Config is the configuration for the batching client binary.
type Config struct {
	URL             string `json:"url"`
	LogLevel        string `json:"logLevel"`
	MaxBatchSize    int    `json:"maxBatchSize"`    // queries per batch, 0 = unlimited
	MaxPayloadBytes int    `json:"maxPayloadBytes"` // summed input bytes per batch, 0 = unlimited
	BatchWindow     int    `json:"batchWindow"`     // ms - coalescing window for same-burst queries
	RequestTimeout  int    `json:"requestTimeout"`  // ms - per-call wait budget
}

// Default values
const (
	DefaultLogLevel        = "info"
	DefaultMaxBatchSize    = 64
	DefaultMaxPayloadBytes = 1 << 20
	DefaultBatchWindow     = 1    // ms
	DefaultRequestTimeout  = 5000 // ms
)

// GetBatchWindowDuration returns the coalescing window as time.Duration
func (c *Config) GetBatchWindowDuration() time.Duration {
	return time.Duration(c.BatchWindow) * time.Millisecond
}

// GetRequestTimeoutDuration returns the request timeout as time.Duration
func (c *Config) GetRequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Millisecond
}
