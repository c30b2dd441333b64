package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"llamagate/internal/config"
	"llamagate/internal/httpapi"
	"llamagate/internal/manager"
	"llamagate/internal/registry"
)

const shutdownTimeout = 5 * time.Second

func serveCmd(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg, cmd.ErrOrStderr())
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg, log, nil)
}

// serve runs the gateway until ctx is cancelled. ready, when non-nil,
// receives the bound listen address.
func serve(ctx context.Context, cfg config.Config, log zerolog.Logger, ready chan<- string) error {
	manifests, blobs, err := cfg.Dirs()
	if err != nil {
		return err
	}
	store := registry.NewStore(registry.Options{ManifestsDir: manifests, BlobsDir: blobs, Logger: &log})
	if _, err := store.Refresh(ctx); err != nil {
		return fmt.Errorf("scan models: %w", err)
	}

	mcfg, err := managerConfig(cfg)
	if err != nil {
		return err
	}
	mgr := manager.New(mcfg,
		manager.WithEnvironment(envProvider(cfg.Env)),
		manager.WithLogger(log),
		manager.WithPublisher(manager.LogPublisher{Logger: log}),
	)

	// startCtx bounds backend starts triggered by requests or preload; it is
	// cancelled first on shutdown so nobody keeps waiting on a health gate.
	startCtx, cancelStarts := context.WithCancel(context.Background())
	defer cancelStarts()

	handler := httpapi.NewMux(httpapi.Options{
		Registry:     store,
		Backend:      mgr,
		Logger:       &log,
		DefaultModel: cfg.DefaultModel,
		Version:      cfg.APIVersion,
		MaxBodyBytes: cfg.MaxBodyBytes,
		CORS:         httpapi.CORSOptions{Origins: cfg.CORSOrigins},
		BaseContext:  startCtx,
		StartedAt:    time.Now(),
	})

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Str("models", manifests).Str("llama_bin", mcfg.LlamaBin).Msg("llamagate listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	if ready != nil {
		ready <- ln.Addr().String()
	}

	if cfg.Preload {
		go preload(startCtx, store, mgr, cfg.DefaultModel, log)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case serveErr = <-errCh:
		log.Error().Err(serveErr).Msg("server error")
	}

	cancelStarts()
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown incomplete; closing connections")
		_ = srv.Close()
	}
	cctx, ccancel := context.WithTimeout(context.Background(), mcfg.StopGrace+shutdownTimeout)
	defer ccancel()
	if err := mgr.Close(cctx); err != nil {
		log.Warn().Err(err).Msg("backend stop")
	}
	return serveErr
}

// preload starts the default model so the first request does not pay for it.
func preload(ctx context.Context, store *registry.Store, mgr *manager.Manager, model string, log zerolog.Logger) {
	if model == "" {
		return
	}
	path, ok := store.Resolve(model)
	if !ok {
		log.Warn().Str("model", model).Msg("default model not found; skipping preload")
		return
	}
	if err := mgr.EnsureRunning(ctx, path); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Str("model", model).Msg("preload failed")
	}
}
