// Package manager supervises the single llama-server process behind the
// gateway. It is structured into small files by concern:
//
//   - manager.go: Manager type, constructor and options, read accessors.
//   - config.go: Config and package defaults.
//   - types.go: lifecycle State, Snapshot and Backend.
//   - errors.go: error types and Is* helpers.
//   - ensure.go: EnsureRunning, the check/stop/spawn/health sequence.
//   - process.go: spawning, terminating and reaping the child process.
//   - health.go: the bounded, cancellable health gate.
//   - split.go: the --split-mode decision.
//   - env.go: EnvironmentProvider and its adapters.
//   - events.go, eventpub_memory.go: lifecycle events.
//   - metrics.go: Prometheus collectors.
//   - status_report.go: the /status payload.
//
// At most one process runs at a time. Every transition happens under one
// mutex, so once EnsureRunning returns nil the backend keeps serving that
// model until another EnsureRunning call swaps it.
package manager
