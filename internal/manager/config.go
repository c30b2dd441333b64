package manager

import (
	"io"
	"time"
)

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultLlamaBin       = "llama-server"
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 8081
	DefaultCtxSize        = 2048
	DefaultGPULayers      = 99
	DefaultBatchSize      = 256
	DefaultHealthInterval = time.Second
	DefaultHealthAttempts = 300
	DefaultHealthTimeout  = 500 * time.Millisecond
	DefaultStopGrace      = 5 * time.Second
	// DefaultSplitThreshold is 11GiB, a margin below a 12GiB card.
	DefaultSplitThreshold int64 = 11 << 30
)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	LlamaBin  string
	Host      string
	Port      int
	CtxSize   int
	// GPULayers is passed as --n-gpu-layers. Zero means the default; use a
	// negative value for CPU only.
	GPULayers int
	BatchSize int
	ExtraArgs []string

	// ForceSplit always adds --split-mode layer.
	ForceSplit bool
	// SplitThreshold in bytes; blobs larger than this are split across devices.
	SplitThreshold int64

	HealthInterval time.Duration
	HealthAttempts int
	HealthTimeout  time.Duration
	StopGrace      time.Duration

	// Stdout and Stderr receive the child's output. Nil discards stdout and
	// keeps only the stderr tail.
	Stdout io.Writer
	Stderr io.Writer
}

func (c Config) withDefaults() Config {
	if c.LlamaBin == "" {
		c.LlamaBin = DefaultLlamaBin
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	if c.CtxSize <= 0 {
		c.CtxSize = DefaultCtxSize
	}
	if c.GPULayers == 0 {
		c.GPULayers = DefaultGPULayers
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.SplitThreshold <= 0 {
		c.SplitThreshold = DefaultSplitThreshold
	}
	if c.HealthInterval <= 0 {
		c.HealthInterval = DefaultHealthInterval
	}
	if c.HealthAttempts <= 0 {
		c.HealthAttempts = DefaultHealthAttempts
	}
	if c.HealthTimeout <= 0 {
		c.HealthTimeout = DefaultHealthTimeout
	}
	if c.StopGrace <= 0 {
		c.StopGrace = DefaultStopGrace
	}
	return c
}
