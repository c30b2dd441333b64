package registry

import (
	"errors"
	"fmt"
)

// ManifestParseError reports a manifest that could not be read or understood.
// It is scoped to one file; the scan that hit it keeps going.
type ManifestParseError struct {
	Path string
	Err  error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("manifest %s: %v", e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() error { return e.Err }

// IsManifestParseError reports whether err is (or wraps) a ManifestParseError.
func IsManifestParseError(err error) bool {
	var pe *ManifestParseError
	return errors.As(err, &pe)
}

// BlobMissingError reports a manifest whose weight blob is absent on disk.
type BlobMissingError struct {
	Name string
	Path string
}

func (e *BlobMissingError) Error() string {
	return fmt.Sprintf("blob missing for %s: %s", e.Name, e.Path)
}

// IsBlobMissing reports whether err is (or wraps) a BlobMissingError.
func IsBlobMissing(err error) bool {
	var be *BlobMissingError
	return errors.As(err, &be)
}

var (
	errNoModelLayer = errors.New("no model layer")
	errBadPath      = errors.New("path does not match <namespace>/<name>/<tag>")
)
