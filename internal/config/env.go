package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	shellwords "github.com/mattn/go-shellwords"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LLAMAGATE_"

// ApplyEnv overlays LLAMAGATE_* variables read through lookup (os.LookupEnv
// when nil). The bare SPLIT_MODE=true switch is honoured as well.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	var errs []string
	integer := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, EnvPrefix+key+": "+err.Error())
				return
			}
			*dst = n
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, name+": "+err.Error())
				return
			}
			*dst = b
		}
	}

	str("ADDR", &c.Addr)
	str("MODELS_DIR", &c.ModelsDir)
	str("MANIFESTS_DIR", &c.ManifestsDir)
	str("BLOBS_DIR", &c.BlobsDir)
	str("DEFAULT_MODEL", &c.DefaultModel)
	boolean(EnvPrefix+"PRELOAD", &c.Preload)
	str("API_VERSION", &c.APIVersion)
	if v, ok := lookup(EnvPrefix + "MAX_BODY_BYTES"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, EnvPrefix+"MAX_BODY_BYTES: "+err.Error())
		} else {
			c.MaxBodyBytes = n
		}
	}
	if v, ok := lookup(EnvPrefix + "CORS_ORIGINS"); ok {
		c.CORSOrigins = SplitCSV(v)
	}
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)

	str("LLAMA_BIN", &c.Backend.Bin)
	str("LLAMA_HOST", &c.Backend.Host)
	integer("LLAMA_PORT", &c.Backend.Port)
	integer("LLAMA_CTX_SIZE", &c.Backend.CtxSize)
	integer("LLAMA_GPU_LAYERS", &c.Backend.GPULayers)
	integer("LLAMA_BATCH_SIZE", &c.Backend.BatchSize)
	if v, ok := lookup(EnvPrefix + "LLAMA_EXTRA_ARGS"); ok {
		args, err := shellwords.Parse(v)
		if err != nil {
			errs = append(errs, EnvPrefix+"LLAMA_EXTRA_ARGS: "+err.Error())
		} else {
			c.Backend.ExtraArgs = args
		}
	}
	// legacy switch: only "true" turns it on, anything else is off
	if v, ok := lookup("SPLIT_MODE"); ok {
		c.Backend.SplitMode = strings.EqualFold(strings.TrimSpace(v), "true")
	}
	boolean(EnvPrefix+"SPLIT_MODE", &c.Backend.SplitMode)
	str("SPLIT_THRESHOLD", &c.Backend.SplitThreshold)
	str("HEALTH_INTERVAL", &c.Backend.HealthInterval)
	integer("HEALTH_ATTEMPTS", &c.Backend.HealthAttempts)
	str("HEALTH_TIMEOUT", &c.Backend.HealthTimeout)
	str("STOP_GRACE", &c.Backend.StopGrace)

	str("ENV_PROVIDER", &c.Env.Provider)
	str("ENV_SHELL", &c.Env.Shell)
	str("ENV_SCRIPT", &c.Env.Script)
	str("ENV_FILE", &c.Env.File)

	if len(errs) > 0 {
		return fmt.Errorf("environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SplitCSV splits a comma-separated list, trimming blanks.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
