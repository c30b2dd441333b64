package registry

import (
	"sort"
	"time"

	digest "github.com/opencontainers/go-digest"
)

// Entry is what a registry key resolves to.
type Entry struct {
	// Name is the canonical full name of the manifest behind this key.
	Name       string
	Namespace  string
	Model      string
	Tag        string
	BlobPath   string
	Digest     digest.Digest
	Size       int64
	ModifiedAt time.Time
	// Alias is set for keys other than the canonical full name.
	Alias bool
}

// Registry is an immutable name -> blob mapping. Build a new one to change it.
type Registry struct {
	entries map[string]Entry
}

func newRegistry(entries map[string]Entry) *Registry {
	if entries == nil {
		entries = make(map[string]Entry)
	}
	return &Registry{entries: entries}
}

// Empty returns a registry with no entries.
func Empty() *Registry { return newRegistry(nil) }

// Len returns the number of resolvable keys, aliases included.
func (r *Registry) Len() int { return len(r.entries) }

// Lookup returns the entry registered under exactly name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// ResolveEntry tries name as-is, then name:latest.
func (r *Registry) ResolveEntry(name string) (Entry, bool) {
	if name == "" {
		return Entry{}, false
	}
	if e, ok := r.entries[name]; ok {
		return e, true
	}
	if e, ok := r.entries[name+":"+DefaultTag]; ok {
		return e, true
	}
	return Entry{}, false
}

// Resolve returns the blob path for name, trying name:latest as a fallback.
func (r *Registry) Resolve(name string) (string, bool) {
	e, ok := r.ResolveEntry(name)
	if !ok {
		return "", false
	}
	return e.BlobPath, true
}

// Names returns all keys, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.entries))
	for k := range r.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Paths returns a copy of the key -> blob path mapping.
func (r *Registry) Paths() map[string]string {
	out := make(map[string]string, len(r.entries))
	for k, e := range r.entries {
		out[k] = e.BlobPath
	}
	return out
}
