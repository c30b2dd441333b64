package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	units "github.com/docker/go-units"
	"github.com/rs/zerolog"

	"llamagate/internal/common/fsutil"
)

// Config holds runtime parameters for the gateway.
type Config struct {
	// Addr is the listen address of the gateway.
	Addr string `json:"addr" yaml:"addr" toml:"addr"`
	// ModelsDir is an Ollama models directory holding manifests/ and blobs/.
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	// ManifestsDir and BlobsDir override the locations derived from ModelsDir.
	ManifestsDir string `json:"manifests_dir" yaml:"manifests_dir" toml:"manifests_dir"`
	BlobsDir     string `json:"blobs_dir" yaml:"blobs_dir" toml:"blobs_dir"`
	// DefaultModel is started when a request arrives with no backend running.
	DefaultModel string `json:"default_model" yaml:"default_model" toml:"default_model"`
	// Preload starts DefaultModel at startup.
	Preload bool `json:"preload" yaml:"preload" toml:"preload"`
	// APIVersion is reported by /api/version.
	APIVersion string `json:"api_version" yaml:"api_version" toml:"api_version"`
	// MaxBodyBytes caps request bodies read to find the model field.
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	// CORSOrigins enables CORS for the listed origins when non-empty.
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	Backend Backend     `json:"backend" yaml:"backend" toml:"backend"`
	Env     Environment `json:"env" yaml:"env" toml:"env"`
}

// Backend configures the supervised llama-server.
type Backend struct {
	Bin       string   `json:"bin" yaml:"bin" toml:"bin"`
	Host      string   `json:"host" yaml:"host" toml:"host"`
	Port      int      `json:"port" yaml:"port" toml:"port"`
	CtxSize   int      `json:"ctx_size" yaml:"ctx_size" toml:"ctx_size"`
	GPULayers int      `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`
	BatchSize int      `json:"batch_size" yaml:"batch_size" toml:"batch_size"`
	ExtraArgs []string `json:"extra_args" yaml:"extra_args" toml:"extra_args"`
	// SplitMode forces --split-mode layer regardless of model size.
	SplitMode bool `json:"split_mode" yaml:"split_mode" toml:"split_mode"`
	// SplitThreshold is a size such as "11GiB".
	SplitThreshold string `json:"split_threshold" yaml:"split_threshold" toml:"split_threshold"`
	// Durations are Go duration strings such as "1s".
	HealthInterval string `json:"health_interval" yaml:"health_interval" toml:"health_interval"`
	HealthAttempts int    `json:"health_attempts" yaml:"health_attempts" toml:"health_attempts"`
	HealthTimeout  string `json:"health_timeout" yaml:"health_timeout" toml:"health_timeout"`
	StopGrace      string `json:"stop_grace" yaml:"stop_grace" toml:"stop_grace"`
	// Quiet discards the child's stdout and stderr instead of inheriting them.
	Quiet bool `json:"quiet" yaml:"quiet" toml:"quiet"`
}

// Environment selects how the llama-server environment is prepared.
type Environment struct {
	// Provider is one of shell, file, none.
	Provider string `json:"provider" yaml:"provider" toml:"provider"`
	Shell    string `json:"shell" yaml:"shell" toml:"shell"`
	Script   string `json:"script" yaml:"script" toml:"script"`
	File     string `json:"file" yaml:"file" toml:"file"`
}

// Environment providers.
const (
	EnvProviderShell = "shell"
	EnvProviderFile  = "file"
	EnvProviderNone  = "none"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:         "0.0.0.0:8080",
		ModelsDir:    "/ollama_data/models",
		DefaultModel: "phi4",
		Preload:      true,
		APIVersion:   "0.5.4",
		MaxBodyBytes: 32 << 20,
		LogLevel:     "info",
		LogFormat:    "console",
		Backend: Backend{
			Bin:            "/app/llama-server",
			Host:           "127.0.0.1",
			Port:           8081,
			CtxSize:        2048,
			GPULayers:      99,
			BatchSize:      256,
			SplitThreshold: "11GiB",
			HealthInterval: "1s",
			HealthAttempts: 300,
			HealthTimeout:  "500ms",
			StopGrace:      "5s",
		},
		Env: Environment{
			Provider: EnvProviderShell,
			Shell:    "bash -c",
			Script:   "source /opt/intel/oneapi/setvars.sh --force > /dev/null 2>&1 && env",
		},
	}
}

// Dirs returns the absolute manifests and blobs directories.
func (c Config) Dirs() (manifests, blobs string, err error) {
	models, err := fsutil.AbsDir(c.ModelsDir)
	if err != nil {
		return "", "", err
	}
	manifests, blobs = filepath.Join(models, "manifests"), filepath.Join(models, "blobs")
	if c.ManifestsDir != "" {
		if manifests, err = fsutil.AbsDir(c.ManifestsDir); err != nil {
			return "", "", err
		}
	}
	if c.BlobsDir != "" {
		if blobs, err = fsutil.AbsDir(c.BlobsDir); err != nil {
			return "", "", err
		}
	}
	return manifests, blobs, nil
}

// SplitThresholdBytes parses Backend.SplitThreshold.
func (b Backend) SplitThresholdBytes() (int64, error) {
	n, err := units.RAMInBytes(b.SplitThreshold)
	if err != nil {
		return 0, fmt.Errorf("split_threshold %q: %w", b.SplitThreshold, err)
	}
	return n, nil
}

// Durations parses the backend timing fields.
func (b Backend) Durations() (interval, timeout, grace time.Duration, err error) {
	fields := []struct {
		name string
		val  string
		dst  *time.Duration
	}{
		{"health_interval", b.HealthInterval, &interval},
		{"health_timeout", b.HealthTimeout, &timeout},
		{"stop_grace", b.StopGrace, &grace},
	}
	for _, f := range fields {
		d, perr := time.ParseDuration(f.val)
		if perr != nil {
			return 0, 0, 0, fmt.Errorf("%s %q: %w", f.name, f.val, perr)
		}
		if d <= 0 {
			return 0, 0, 0, fmt.Errorf("%s must be positive", f.name)
		}
		*f.dst = d
	}
	return interval, timeout, grace, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr is empty"))
	}
	if strings.TrimSpace(c.ModelsDir) == "" && (c.ManifestsDir == "" || c.BlobsDir == "") {
		errs = append(errs, errors.New("models_dir is empty"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("max_body_bytes must be positive"))
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log_format %q: want json or console", c.LogFormat))
	}
	b := c.Backend
	if strings.TrimSpace(b.Bin) == "" {
		errs = append(errs, errors.New("backend.bin is empty"))
	}
	if b.Port <= 0 || b.Port > 65535 {
		errs = append(errs, fmt.Errorf("backend.port %d out of range", b.Port))
	}
	if b.CtxSize <= 0 || b.BatchSize <= 0 || b.HealthAttempts <= 0 {
		errs = append(errs, errors.New("backend.ctx_size, batch_size and health_attempts must be positive"))
	}
	if _, err := b.SplitThresholdBytes(); err != nil {
		errs = append(errs, fmt.Errorf("backend.%w", err))
	}
	if _, _, _, err := b.Durations(); err != nil {
		errs = append(errs, fmt.Errorf("backend.%w", err))
	}
	switch c.Env.Provider {
	case EnvProviderShell, EnvProviderNone:
	case EnvProviderFile:
		if c.Env.File == "" {
			errs = append(errs, errors.New("env.file is required for the file provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("env.provider %q: want shell, file or none", c.Env.Provider))
	}
	return errors.Join(errs...)
}
