package manager

import (
	"context"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"
)

const stderrTailSize = 4096

// process is one spawned llama-server.
type process struct {
	cmd       *exec.Cmd
	path      string
	pid       int
	split     bool
	startedAt time.Time
	stderr    *tailWriter

	// done is closed once the process has been reaped; waitErr is valid after.
	done    chan struct{}
	waitErr error
}

func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// BuildArgs returns the llama-server command line for path.
func BuildArgs(cfg Config, path string, split bool) []string {
	cfg = cfg.withDefaults()
	gpu := cfg.GPULayers
	if gpu < 0 {
		gpu = 0
	}
	args := []string{
		"-m", path,
		"--ctx-size", strconv.Itoa(cfg.CtxSize),
		"--host", cfg.Host,
		"--port", strconv.Itoa(cfg.Port),
		"--n-gpu-layers", strconv.Itoa(gpu),
		"--batch-size", strconv.Itoa(cfg.BatchSize),
	}
	if split {
		args = append(args, "--split-mode", "layer")
	}
	return append(args, cfg.ExtraArgs...)
}

// spawn starts llama-server for path. The process is not tied to ctx: it
// outlives the request that caused it.
func (m *Manager) spawn(ctx context.Context, path string) (*process, error) {
	env, err := processEnviron(ctx, m.env)
	if err != nil {
		m.log.Error().Err(err).Str("path", path).Msg("environment provider failed")
		m.pub.Publish(Event{Name: EventEnvError, Path: path, Fields: map[string]any{"error": err.Error()}})
		return nil, &LoadError{Kind: LoadEnvironment, Path: path, Err: err}
	}

	split, size := m.splitFor(path)
	args := BuildArgs(m.cfg, path, split)

	cmd := exec.Command(m.cfg.LlamaBin, args...)
	cmd.Env = env
	tail := newTailWriter(stderrTailSize)
	cmd.Stdout = m.cfg.Stdout
	if m.cfg.Stderr != nil {
		cmd.Stderr = io.MultiWriter(m.cfg.Stderr, tail)
	} else {
		cmd.Stderr = tail
	}
	// bound the wait for output pipes held open by grandchildren
	cmd.WaitDelay = m.cfg.StopGrace

	m.log.Info().Str("bin", m.cfg.LlamaBin).Strs("args", args).Msg("starting llama-server")
	if err := cmd.Start(); err != nil {
		m.log.Error().Err(err).Str("path", path).Msg("spawn failed")
		return nil, &LoadError{Kind: LoadSpawn, Path: path, Err: err}
	}

	p := &process{
		cmd:       cmd,
		path:      path,
		pid:       cmd.Process.Pid,
		split:     split,
		startedAt: time.Now(),
		stderr:    tail,
		done:      make(chan struct{}),
	}
	go func() {
		p.waitErr = cmd.Wait()
		backendUp.Set(0)
		m.log.Info().Int("pid", p.pid).AnErr("exit", p.waitErr).Msg("llama-server exited")
		close(p.done)
	}()

	m.pub.Publish(Event{Name: EventSpawnStart, Path: path, Fields: map[string]any{
		"pid": p.pid, "port": m.cfg.Port, "split": split, "size": size,
	}})
	return p, nil
}

// terminate sends SIGTERM and waits for the grace period (or ctx), then kills.
func (m *Manager) terminate(ctx context.Context, p *process) {
	if p.exited() {
		return
	}
	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	t := time.NewTimer(m.cfg.StopGrace)
	defer t.Stop()
	select {
	case <-p.done:
		return
	case <-t.C:
		m.log.Warn().Int("pid", p.pid).Dur("grace", m.cfg.StopGrace).Msg("llama-server ignored SIGTERM; killing")
	case <-ctx.Done():
		m.log.Warn().Int("pid", p.pid).Msg("stop cancelled; killing llama-server")
	}
	_ = p.cmd.Process.Kill()
	<-p.done
}

// stopLocked terminates and forgets the current process. Caller holds mu.
func (m *Manager) stopLocked(ctx context.Context) {
	p := m.proc
	if p == nil {
		return
	}
	if p.exited() {
		m.log.Debug().Int("pid", p.pid).Msg("reaping exited llama-server")
	} else {
		m.updateView(p, func(s *Snapshot) { s.State = StateStopping })
		m.log.Info().Int("pid", p.pid).Str("path", p.path).Msg("stopping llama-server")
		m.terminate(ctx, p)
		backendStops.Inc()
		m.pub.Publish(Event{Name: EventSpawnStop, Path: p.path, Fields: map[string]any{"pid": p.pid}})
	}
	m.proc = nil
	m.ready = false
	m.updateView(nil, func(s *Snapshot) { s.State = StateIdle })
}

// tailWriter keeps the last n bytes written to it.
type tailWriter struct {
	mu  sync.Mutex
	n   int
	buf []byte
}

func newTailWriter(n int) *tailWriter { return &tailWriter{n: n} }

func (w *tailWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, b...)
	if over := len(w.buf) - w.n; over > 0 {
		w.buf = append(w.buf[:0], w.buf[over:]...)
	}
	return len(b), nil
}

func (w *tailWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return string(w.buf)
}
