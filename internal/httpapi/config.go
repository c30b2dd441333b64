package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"llamagate/internal/manager"
	"llamagate/internal/registry"
	"llamagate/pkg/types"
)

// Defaults applied when corresponding Options fields are unset.
const (
	DefaultVersion      = "0.5.4"
	DefaultMaxBodyBytes = 32 << 20
)

// ModelRegistry is the name resolution side the HTTP layer needs.
type ModelRegistry interface {
	Current() *registry.Registry
	Refresh(ctx context.Context) (*registry.Registry, error)
	Details(e registry.Entry) registry.Details
}

// Backend is the supervisor side the HTTP layer needs.
type Backend interface {
	EnsureRunning(ctx context.Context, path string) error
	Current() (manager.Backend, bool)
	Ready() bool
	Status() types.BackendStatus
}

// CORSOptions enables CORS when Origins is non-empty.
type CORSOptions struct {
	Origins []string
	Methods []string
	Headers []string
}

// Options wires the router to its collaborators.
type Options struct {
	Registry ModelRegistry
	Backend  Backend
	// Logger is optional; nil discards.
	Logger *zerolog.Logger
	// DefaultModel is started when a forward arrives with nothing running.
	DefaultModel string
	// Version is reported by /api/version.
	Version string
	// MaxBodyBytes caps bodies read to find the model field.
	MaxBodyBytes int64
	CORS         CORSOptions
	// BaseContext is cancelled on shutdown; backend starts triggered by a
	// request stop waiting when it is done.
	BaseContext context.Context
	// Transport overrides the round tripper used to reach the backend.
	Transport http.RoundTripper
	// StartedAt anchors uptime in /status.
	StartedAt time.Time
}

func (o Options) withDefaults() Options {
	if o.Version == "" {
		o.Version = DefaultVersion
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if o.BaseContext == nil {
		o.BaseContext = context.Background()
	}
	if o.StartedAt.IsZero() {
		o.StartedAt = time.Now()
	}
	return o
}
