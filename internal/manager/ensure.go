package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// EnsureRunning makes the backend serve the weights at path.
//
// A ready backend on the same path is left alone. A live one on the same
// path that never passed its health gate is polled again without a
// respawn. Anything else is stopped and replaced. The whole sequence holds
// the slot lock, so concurrent callers are serialized and readers of
// Current never observe a swap halfway.
//
// Cancelling ctx abandons the wait only; the process keeps starting and a
// later call for the same path picks up where this one left off.
func (m *Manager) EnsureRunning(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("model path is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed.Err() != nil {
		return errClosed
	}

	if p := m.proc; p != nil && p.path == path && !p.exited() {
		if m.ready {
			m.pub.Publish(Event{Name: EventEnsureNoop, Path: path})
			return nil
		}
		m.log.Info().Int("pid", p.pid).Str("path", path).Msg("backend alive but not ready; resuming health wait")
		return m.awaitReady(ctx, p)
	}

	// the outgoing process always gets its full grace period
	m.stopLocked(context.WithoutCancel(ctx))
	if err := ctx.Err(); err != nil {
		return err
	}

	m.updateView(nil, func(s *Snapshot) { s.State = StateStarting })
	p, err := m.spawn(ctx, path)
	if err != nil {
		backendStarts.WithLabelValues(string(LoadErrorKind(err))).Inc()
		m.updateView(nil, func(s *Snapshot) {
			s.State = StateIdle
			s.LastError = err.Error()
			s.StartsTotal++
		})
		return err
	}
	m.proc = p
	m.ready = false
	m.updateView(p, func(s *Snapshot) { s.StartsTotal++ })
	return m.awaitReady(ctx, p)
}

// awaitReady runs the health gate for p and records the outcome. Caller holds mu.
func (m *Manager) awaitReady(ctx context.Context, p *process) error {
	m.updateView(p, func(s *Snapshot) { s.State = StateStarting })
	start := time.Now()
	err := m.waitHealthy(ctx, p)
	waited := time.Since(start)

	switch {
	case err == nil:
		backendHealthWait.Observe(waited.Seconds())
		backendStarts.WithLabelValues("ok").Inc()
		backendUp.Set(1)
		m.ready = true
		m.updateView(p, func(s *Snapshot) {
			s.State = StateReady
			s.LastError = ""
		})
		m.log.Info().Int("pid", p.pid).Str("path", p.path).Dur("waited", waited).Msg("backend ready")
		m.pub.Publish(Event{Name: EventSpawnReady, Path: p.path, Fields: map[string]any{"pid": p.pid, "url": m.URL()}})
		return nil

	case errors.Is(err, errExited):
		cause := errExited
		if p.waitErr != nil {
			cause = fmt.Errorf("%w: %v", errExited, p.waitErr)
		}
		le := &LoadError{Kind: LoadPrematureExit, Path: p.path, StderrTail: strings.TrimSpace(p.stderr.String()), Err: cause}
		backendStarts.WithLabelValues(string(le.Kind)).Inc()
		m.proc = nil
		m.ready = false
		m.updateView(nil, func(s *Snapshot) {
			s.State = StateIdle
			s.LastError = le.Error()
		})
		m.log.Error().Err(cause).Int("pid", p.pid).Str("path", p.path).Msg("backend exited prematurely")
		m.pub.Publish(Event{Name: EventSpawnExit, Path: p.path, Fields: map[string]any{"pid": p.pid, "error": cause.Error()}})
		return le

	case errors.Is(err, errHealthTimeout):
		le := &LoadError{Kind: LoadHealthTimeout, Path: p.path, Err: fmt.Errorf("%w after %d attempts", errHealthTimeout, m.cfg.HealthAttempts)}
		backendStarts.WithLabelValues(string(le.Kind)).Inc()
		m.updateView(p, func(s *Snapshot) { s.LastError = le.Error() })
		m.log.Error().Int("pid", p.pid).Str("path", p.path).Dur("waited", waited).Msg("backend never became healthy; leaving it running")
		m.pub.Publish(Event{Name: EventSpawnTimeout, Path: p.path, Fields: map[string]any{"pid": p.pid}})
		return le

	default:
		m.log.Info().Err(err).Int("pid", p.pid).Str("path", p.path).Msg("health wait abandoned")
		return err
	}
}
