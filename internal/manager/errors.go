package manager

import (
	"errors"
	"fmt"
)

// LoadKind classifies why a start attempt failed.
type LoadKind string

const (
	LoadSpawn         LoadKind = "spawn"
	LoadPrematureExit LoadKind = "premature_exit"
	LoadHealthTimeout LoadKind = "health_timeout"
	LoadEnvironment   LoadKind = "environment"
)

// LoadError reports a failed attempt to bring a model up. The supervisor
// never retries; the caller decides.
type LoadError struct {
	Kind LoadKind
	Path string
	// StderrTail holds the last bytes the process wrote, when it exited early.
	StderrTail string
	Err        error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("load %s (%s)", e.Path, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.StderrTail != "" {
		msg += "; stderr tail: " + e.StderrTail
	}
	return msg
}

func (e *LoadError) Unwrap() error { return e.Err }

// IsLoadError reports whether err is (or wraps) a LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// LoadErrorKind returns the kind of a wrapped LoadError, or "".
func LoadErrorKind(err error) LoadKind {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

// EnvironmentProviderError reports that the launch environment could not
// be obtained.
type EnvironmentProviderError struct {
	Provider string
	Err      error
}

func (e *EnvironmentProviderError) Error() string {
	return fmt.Sprintf("environment provider %s: %v", e.Provider, e.Err)
}

func (e *EnvironmentProviderError) Unwrap() error { return e.Err }

// IsEnvironmentError reports whether err is (or wraps) an EnvironmentProviderError.
func IsEnvironmentError(err error) bool {
	var ee *EnvironmentProviderError
	return errors.As(err, &ee)
}

// modelNotFoundError is returned when a requested name has no registry entry.
type modelNotFoundError struct{ name string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.name }

// ErrModelNotFound returns an error for a name that does not resolve.
func ErrModelNotFound(name string) error { return modelNotFoundError{name: name} }

// IsModelNotFound reports whether the error indicates a missing model.
func IsModelNotFound(err error) bool {
	var nf modelNotFoundError
	return errors.As(err, &nf)
}

// noBackendError signals a forward with nothing running and no usable default.
type noBackendError struct{ msg string }

func (e noBackendError) Error() string { return e.msg }

// ErrNoBackend constructs a noBackendError.
func ErrNoBackend(msg string) error { return noBackendError{msg: msg} }

// IsNoBackend reports whether err indicates that no backend is available (503).
func IsNoBackend(err error) bool {
	var nb noBackendError
	return errors.As(err, &nb)
}
