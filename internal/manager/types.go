package manager

import "time"

// State is the lifecycle state of the backend slot.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateReady    State = "ready"
	StateStopping State = "stopping"
)

// Backend identifies a live, ready llama-server.
type Backend struct {
	// URL is the base address, e.g. http://127.0.0.1:8081.
	URL string
	// Path is the weights file the process was started with.
	Path string
}

// Snapshot is a read-only projection of the supervisor state.
type Snapshot struct {
	State       State
	Path        string
	URL         string
	PID         int
	StartedAt   time.Time
	Split       bool
	LastError   string
	StartsTotal uint64
}
