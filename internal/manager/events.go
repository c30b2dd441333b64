package manager

import "github.com/rs/zerolog"

// Event names published by the supervisor.
const (
	EventEnsureNoop   = "ensure_noop"
	EventEnvError     = "env_error"
	EventSpawnStart   = "spawn_start"
	EventSpawnReady   = "spawn_ready"
	EventSpawnExit    = "spawn_exit"
	EventSpawnTimeout = "spawn_timeout"
	EventSpawnStop    = "spawn_stop"
)

// Event represents a supervisor lifecycle event.
// Minimal and stable: name + model path and optional fields via key/values.
type Event struct {
	Name   string
	Path   string
	Fields map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// LogPublisher writes every event to a zerolog logger at debug level.
type LogPublisher struct {
	Logger zerolog.Logger
}

func (p LogPublisher) Publish(e Event) {
	p.Logger.Debug().Str("event", e.Name).Str("path", e.Path).Fields(e.Fields).Msg("backend event")
}

// MultiPublisher fans out to several publishers in order.
type MultiPublisher []EventPublisher

func (m MultiPublisher) Publish(e Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(e)
		}
	}
}
