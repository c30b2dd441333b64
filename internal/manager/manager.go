package manager

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

// Manager owns the single backend slot.
type Manager struct {
	cfg    Config
	env    EnvironmentProvider
	pub    EventPublisher
	log    zerolog.Logger
	client *http.Client

	// closed aborts health waits on Close.
	closed    context.Context
	closeFunc context.CancelFunc

	mu    sync.Mutex
	proc  *process
	ready bool

	// view mirrors the slot for readers that must not wait on mu.
	viewMu   sync.RWMutex
	view     Snapshot
	viewProc *process
}

// Option customizes a Manager.
type Option func(*Manager)

// WithEnvironment sets the provider consulted before every spawn.
func WithEnvironment(p EnvironmentProvider) Option {
	return func(m *Manager) {
		if p != nil {
			m.env = p
		}
	}
}

// WithPublisher installs an EventPublisher for lifecycle events.
func WithPublisher(p EventPublisher) Option {
	return func(m *Manager) {
		if p != nil {
			m.pub = p
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l.With().Str("component", "supervisor").Logger() }
}

// WithHTTPClient replaces the client used for health probes.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) {
		if c != nil {
			m.client = c
		}
	}
}

// New constructs an idle Manager. No process is started until EnsureRunning.
func New(cfg Config, opts ...Option) *Manager {
	// Timeout=0: every probe carries its own context deadline.
	m := &Manager{
		cfg:    cfg.withDefaults(),
		env:    NoopProvider{},
		pub:    noopPublisher{},
		log:    zerolog.Nop(),
		client: &http.Client{Timeout: 0},
	}
	for _, o := range opts {
		o(m)
	}
	m.closed, m.closeFunc = context.WithCancel(context.Background())
	m.view = Snapshot{State: StateIdle}
	return m
}

// URL is the base address the backend listens on.
func (m *Manager) URL() string {
	return "http://" + net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
}

// Config returns the effective configuration, defaults applied.
func (m *Manager) Config() Config { return m.cfg }

// Current returns the live, ready backend. It waits for any swap in
// progress, so a caller never sees a half-started process.
func (m *Manager) Current() (Backend, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.proc == nil || !m.ready || m.proc.exited() {
		return Backend{}, false
	}
	return Backend{URL: m.URL(), Path: m.proc.path}, true
}

// IsAlive reports whether a backend process is running, ready or not.
// It does not wait for a swap in progress.
func (m *Manager) IsAlive() bool {
	m.viewMu.RLock()
	p := m.viewProc
	m.viewMu.RUnlock()
	return p != nil && !p.exited()
}

// Ready reports whether the backend passed its health gate. Unlike Current
// it does not wait for a swap in progress.
func (m *Manager) Ready() bool {
	return m.Snapshot().State == StateReady
}

// Snapshot returns a read-only view of the supervisor state without
// waiting for a swap in progress.
func (m *Manager) Snapshot() Snapshot {
	m.viewMu.RLock()
	s, p := m.view, m.viewProc
	m.viewMu.RUnlock()
	if p != nil && p.exited() && s.State != StateStopping {
		s.State = StateIdle
		s.PID = 0
	}
	return s
}

func (m *Manager) updateView(p *process, fn func(*Snapshot)) {
	m.viewMu.Lock()
	defer m.viewMu.Unlock()
	m.viewProc = p
	if p != nil {
		m.view.Path = p.path
		m.view.PID = p.pid
		m.view.URL = m.URL()
		m.view.StartedAt = p.startedAt
		m.view.Split = p.split
	} else {
		m.view.Path, m.view.PID, m.view.URL = "", 0, ""
		m.view.Split = false
	}
	if fn != nil {
		fn(&m.view)
	}
}

// Stop terminates the current backend, if any: SIGTERM, then SIGKILL once
// the grace period or ctx runs out.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked(ctx)
	return nil
}

// Close aborts any health wait in progress and stops the backend.
func (m *Manager) Close(ctx context.Context) error {
	m.closeFunc()
	return m.Stop(ctx)
}
