package manager

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

var (
	errExited        = errors.New("process exited before becoming healthy")
	errHealthTimeout = errors.New("health check attempts exhausted")
	errClosed        = errors.New("manager closed")
)

// waitHealthy polls /health until the backend answers at all, the process
// exits, the attempt ceiling is reached, or ctx is done.
func (m *Manager) waitHealthy(ctx context.Context, p *process) error {
	url := m.URL() + "/health"
	for attempt := 1; ; attempt++ {
		if p.exited() {
			return errExited
		}
		if m.probe(ctx, url) && !p.exited() {
			return nil
		}
		if attempt >= m.cfg.HealthAttempts {
			return errHealthTimeout
		}
		t := time.NewTimer(m.cfg.HealthInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-m.closed.Done():
			t.Stop()
			return context.Canceled
		case <-p.done:
			t.Stop()
			return errExited
		case <-t.C:
		}
	}
}

// probe reports whether url produced any HTTP response within HealthTimeout.
func (m *Manager) probe(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.HealthTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
	return true
}
