package main

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"llamagate/internal/config"
	"llamagate/internal/manager"
)

// newLogger builds the process logger from the log_level and log_format settings.
func newLogger(cfg config.Config, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	if cfg.LogFormat == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("service", "llamagate").Logger()
}

// managerConfig translates the backend section into supervisor settings.
func managerConfig(cfg config.Config) (manager.Config, error) {
	b := cfg.Backend
	threshold, err := b.SplitThresholdBytes()
	if err != nil {
		return manager.Config{}, err
	}
	interval, timeout, grace, err := b.Durations()
	if err != nil {
		return manager.Config{}, err
	}
	mc := manager.Config{
		LlamaBin:       b.Bin,
		Host:           b.Host,
		Port:           b.Port,
		CtxSize:        b.CtxSize,
		GPULayers:      b.GPULayers,
		BatchSize:      b.BatchSize,
		ExtraArgs:      b.ExtraArgs,
		ForceSplit:     b.SplitMode,
		SplitThreshold: threshold,
		HealthInterval: interval,
		HealthAttempts: b.HealthAttempts,
		HealthTimeout:  timeout,
		StopGrace:      grace,
	}
	if !b.Quiet {
		mc.Stdout, mc.Stderr = os.Stdout, os.Stderr
	}
	return mc, nil
}

// envProvider selects how the llama-server environment is built. A dotenv
// file given alongside the shell provider is layered on top of it.
func envProvider(e config.Environment) manager.EnvironmentProvider {
	switch e.Provider {
	case config.EnvProviderNone:
		return manager.NoopProvider{}
	case config.EnvProviderFile:
		return manager.FileProvider{Path: e.File}
	}
	shell := manager.ShellProvider{Shell: e.Shell, Script: e.Script}
	if e.File == "" {
		return shell
	}
	return manager.ChainProvider{shell, manager.FileProvider{Path: e.File}}
}
