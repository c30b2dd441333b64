package httpapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"llamagate/internal/manager"
	"llamagate/internal/registry"
	"llamagate/pkg/types"
)

// writeModel installs a manifest + blob pair under root in the Ollama layout
// and returns the blob path.
func writeModel(t *testing.T, root, ns, name, tag, content string) string {
	t.Helper()
	sum := sha256.Sum256([]byte(content))
	hexsum := hex.EncodeToString(sum[:])
	blobs := filepath.Join(root, "blobs")
	mdir := filepath.Join(root, "manifests", "registry.ollama.ai", ns, name)
	for _, d := range []string{blobs, mdir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	blob := filepath.Join(blobs, "sha256-"+hexsum)
	if err := os.WriteFile(blob, []byte(content), 0o644); err != nil {
		t.Fatalf("write blob: %v", err)
	}
	m, _ := json.Marshal(map[string]any{
		"schemaVersion": 2,
		"layers": []map[string]any{
			{"mediaType": registry.MediaTypeModel, "digest": "sha256:" + hexsum, "size": len(content)},
		},
	})
	if err := os.WriteFile(filepath.Join(mdir, tag), m, 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return blob
}

// newStore returns a refreshed registry store over root.
func newStore(t *testing.T, root string) *registry.Store {
	t.Helper()
	s := registry.NewStore(registry.Options{
		ManifestsDir: filepath.Join(root, "manifests"),
		BlobsDir:     filepath.Join(root, "blobs"),
	})
	if _, err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	return s
}

// fakeBackend stands in for the supervisor. EnsureRunning marks path as
// current and points it at url. A non-empty swapTo makes the next
// EnsureRunning leave that model current instead, as if another request
// won the slot.
type fakeBackend struct {
	mu        sync.Mutex
	url       string
	path      string
	running   bool
	starting  bool
	ensureErr error
	swapTo    string
	ensured   []string
}

func (f *fakeBackend) EnsureRunning(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured = append(f.ensured, path)
	if f.ensureErr != nil {
		return f.ensureErr
	}
	f.path = path
	if f.swapTo != "" {
		f.path, f.swapTo = f.swapTo, ""
	}
	f.running = true
	return nil
}

func (f *fakeBackend) Current() (manager.Backend, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return manager.Backend{}, false
	}
	return manager.Backend{URL: f.url, Path: f.path}, true
}

func (f *fakeBackend) IsAlive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running || f.starting
}

func (f *fakeBackend) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeBackend) Status() types.BackendStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := types.BackendStatus{State: "idle"}
	if f.starting {
		st = types.BackendStatus{State: "starting", ModelPath: f.path}
	}
	if f.running {
		st = types.BackendStatus{State: "ready", ModelPath: f.path, URL: f.url}
	}
	return st
}

func (f *fakeBackend) ensuredPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ensured...)
}

// echoBackend answers every request with a JSON description of it.
func echoBackend(w http.ResponseWriter, r *http.Request) {
	var body []byte
	if r.Body != nil {
		body, _ = readAll(r)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Backend", "echo")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"method":          r.Method,
		"path":            r.URL.Path,
		"query":           r.URL.RawQuery,
		"host":            r.Host,
		"body":            string(body),
		"x_custom":        r.Header.Get("X-Custom"),
		"x_hop":           r.Header.Get("X-Hop"),
		"accept_encoding": r.Header.Get("Accept-Encoding"),
	})
}

type echoed struct {
	Method         string `json:"method"`
	Path           string `json:"path"`
	Query          string `json:"query"`
	Host           string `json:"host"`
	Body           string `json:"body"`
	XCustom        string `json:"x_custom"`
	XHop           string `json:"x_hop"`
	AcceptEncoding string `json:"accept_encoding"`
}
