package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llamagate/internal/config"
	"llamagate/internal/manager"
	"llamagate/pkg/types"
)

// modelsTree writes a one-model Ollama layout and returns its root.
func modelsTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	content := []byte("not really gguf")
	sum := sha256.Sum256(content)
	h := hex.EncodeToString(sum[:])
	mdir := filepath.Join(root, "manifests", "registry.ollama.ai", "library", "phi4")
	require.NoError(t, os.MkdirAll(mdir, 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "blobs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "blobs", "sha256-"+h), content, 0o644))
	m, err := json.Marshal(map[string]any{
		"schemaVersion": 2,
		"layers": []map[string]any{
			{"mediaType": "application/vnd.ollama.image.model", "digest": "sha256:" + h, "size": len(content)},
		},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(mdir, "latest"), m, 0o644))
	return root
}

func parsed(t *testing.T, args ...string) config.Config {
	t.Helper()
	root := newRootCmd(io.Discard, io.Discard)
	require.NoError(t, root.ParseFlags(args))
	cfg, err := loadConfig(root)
	require.NoError(t, err)
	return cfg
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llamagate.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":7000\"\ndefault_model: qwen\nbackend:\n  port: 9001\n  ctx_size: 4096\n"), 0o644))
	t.Setenv("LLAMAGATE_LLAMA_PORT", "9100")

	cfg := parsed(t, "--config", path, "--addr", ":7777")
	assert.Equal(t, ":7777", cfg.Addr, "flag beats file")
	assert.Equal(t, 9100, cfg.Backend.Port, "env beats file")
	assert.Equal(t, 4096, cfg.Backend.CtxSize, "file beats default")
	assert.Equal(t, "qwen", cfg.DefaultModel)
	assert.Equal(t, "/app/llama-server", cfg.Backend.Bin, "default kept")
}

func TestUnchangedFlagsDoNotOverrideEnv(t *testing.T) {
	t.Setenv("LLAMAGATE_DEFAULT_MODEL", "mistral")
	cfg := parsed(t)
	assert.Equal(t, "mistral", cfg.DefaultModel)
}

func TestRunExitCodes(t *testing.T) {
	var out, errb bytes.Buffer
	require.Equal(t, 0, run([]string{"version"}, &out, &errb))
	assert.Equal(t, "llamagate dev (ollama api 0.5.4)\n", out.String())

	errb.Reset()
	require.Equal(t, 1, run([]string{"--log-format", "xml", "version"}, io.Discard, &errb))
	assert.Contains(t, errb.String(), "log_format")

	require.Equal(t, 1, run([]string{"nope"}, io.Discard, io.Discard))
}

func TestModelsCommand(t *testing.T) {
	dir := modelsTree(t)
	var out bytes.Buffer
	require.Equal(t, 0, run([]string{"--models-dir", dir, "models"}, &out, io.Discard))
	assert.Contains(t, out.String(), "phi4:latest")
	assert.NotContains(t, out.String(), "TARGET")

	out.Reset()
	require.Equal(t, 0, run([]string{"--models-dir", dir, "models", "--all"}, &out, io.Discard))
	assert.Contains(t, out.String(), "TARGET")
	// the bare alias row points at its canonical manifest
	var aliasRow string
	for _, line := range strings.Split(out.String(), "\n") {
		if f := strings.Fields(line); len(f) > 0 && f[0] == "phi4" {
			aliasRow = line
		}
	}
	assert.Contains(t, aliasRow, "phi4:latest")
}

func TestManagerConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.Quiet = true
	cfg.Backend.SplitThreshold = "4GiB"
	cfg.Backend.ExtraArgs = []string{"--flash-attn"}
	mc, err := managerConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, int64(4)<<30, mc.SplitThreshold)
	assert.Equal(t, 500*time.Millisecond, mc.HealthTimeout)
	assert.Equal(t, []string{"--flash-attn"}, mc.ExtraArgs)
	assert.Nil(t, mc.Stdout)
	assert.Nil(t, mc.Stderr)

	cfg.Backend.Quiet = false
	mc, err = managerConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, os.Stderr, mc.Stderr)
}

func TestEnvProviderSelection(t *testing.T) {
	assert.IsType(t, manager.NoopProvider{}, envProvider(config.Environment{Provider: config.EnvProviderNone}))
	assert.IsType(t, manager.FileProvider{}, envProvider(config.Environment{Provider: config.EnvProviderFile, File: "x.env"}))
	assert.IsType(t, manager.ShellProvider{}, envProvider(config.Environment{Provider: config.EnvProviderShell}))
	chain, ok := envProvider(config.Environment{Provider: config.EnvProviderShell, File: "x.env"}).(manager.ChainProvider)
	require.True(t, ok)
	assert.Len(t, chain, 2)
}

func TestServeListsAndShutsDown(t *testing.T) {
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.ModelsDir = modelsTree(t)
	cfg.Preload = false
	cfg.Env.Provider = config.EnvProviderNone
	cfg.Backend.Bin = filepath.Join(t.TempDir(), "missing-llama-server")
	log := newLogger(cfg, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, log, ready) }()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/api/tags")
	require.NoError(t, err)
	var tags types.TagsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tags))
	resp.Body.Close()
	require.Len(t, tags.Models, 1)
	assert.Equal(t, "phi4:latest", tags.Models[0].Name)

	// the default model cannot start: the binary does not exist
	resp, err = http.Post("http://"+addr+"/v1/chat/completions", "application/json", strings.NewReader(`{"model":"phi4"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
