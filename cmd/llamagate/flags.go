package main

import (
	"os"

	"github.com/spf13/cobra"

	"llamagate/internal/config"
)

// bindFlags registers the persistent flags. Only flags set explicitly on
// the command line override file and environment values.
func bindFlags(root *cobra.Command) {
	d := config.Default()
	pf := root.PersistentFlags()
	pf.String("config", os.Getenv("LLAMAGATE_CONFIG"), "Config file (.yaml, .json or .toml)")
	pf.String("addr", d.Addr, "HTTP listen address")
	pf.String("models-dir", d.ModelsDir, "Ollama models directory (manifests/ and blobs/)")
	pf.String("manifests-dir", "", "Override the manifests directory")
	pf.String("blobs-dir", "", "Override the blobs directory")
	pf.String("default-model", d.DefaultModel, "Model started when a request arrives with nothing running")
	pf.Bool("preload", d.Preload, "Start the default model at startup")
	pf.StringSlice("cors-origins", nil, "Allowed CORS origins")
	pf.String("log-level", d.LogLevel, "Log level: debug|info|warn|error")
	pf.String("log-format", d.LogFormat, "Log format: console|json")
	pf.String("llama-bin", d.Backend.Bin, "Path to llama-server")
	pf.Int("llama-port", d.Backend.Port, "Port llama-server listens on")
	pf.Int("ctx-size", d.Backend.CtxSize, "llama-server --ctx-size")
	pf.Int("gpu-layers", d.Backend.GPULayers, "llama-server --n-gpu-layers (negative for CPU only)")
	pf.Int("batch-size", d.Backend.BatchSize, "llama-server --batch-size")
	pf.Bool("split-mode", d.Backend.SplitMode, "Always pass --split-mode layer")
	pf.String("split-threshold", d.Backend.SplitThreshold, "Model size above which --split-mode layer is added")
	pf.String("env-provider", d.Env.Provider, "llama-server environment: shell|file|none")
	pf.String("env-file", "", "dotenv file layered over the provider environment")
	pf.Bool("quiet", false, "Discard llama-server stdout and stderr")
}

// loadConfig resolves defaults < file < environment < flags and validates
// the result.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	fl := cmd.Flags()
	cfg := config.Default()
	if path, _ := fl.GetString("config"); path != "" {
		c, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return cfg, err
	}

	str := func(name string, dst *string) {
		if fl.Changed(name) {
			*dst, _ = fl.GetString(name)
		}
	}
	integer := func(name string, dst *int) {
		if fl.Changed(name) {
			*dst, _ = fl.GetInt(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if fl.Changed(name) {
			*dst, _ = fl.GetBool(name)
		}
	}
	str("addr", &cfg.Addr)
	str("models-dir", &cfg.ModelsDir)
	str("manifests-dir", &cfg.ManifestsDir)
	str("blobs-dir", &cfg.BlobsDir)
	str("default-model", &cfg.DefaultModel)
	boolean("preload", &cfg.Preload)
	if fl.Changed("cors-origins") {
		cfg.CORSOrigins, _ = fl.GetStringSlice("cors-origins")
	}
	str("log-level", &cfg.LogLevel)
	str("log-format", &cfg.LogFormat)
	str("llama-bin", &cfg.Backend.Bin)
	integer("llama-port", &cfg.Backend.Port)
	integer("ctx-size", &cfg.Backend.CtxSize)
	integer("gpu-layers", &cfg.Backend.GPULayers)
	integer("batch-size", &cfg.Backend.BatchSize)
	boolean("split-mode", &cfg.Backend.SplitMode)
	str("split-threshold", &cfg.Backend.SplitThreshold)
	str("env-provider", &cfg.Env.Provider)
	str("env-file", &cfg.Env.File)
	boolean("quiet", &cfg.Backend.Quiet)

	return cfg, cfg.Validate()
}
