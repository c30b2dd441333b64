package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// modelsTree is a throwaway Ollama-style models directory.
type modelsTree struct {
	t         *testing.T
	root      string
	manifests string
	blobs     string
}

func newModelsTree(t *testing.T) *modelsTree {
	t.Helper()
	root := t.TempDir()
	mt := &modelsTree{
		t:         t,
		root:      root,
		manifests: filepath.Join(root, "manifests"),
		blobs:     filepath.Join(root, "blobs"),
	}
	require.NoError(t, os.MkdirAll(mt.manifests, 0o755))
	require.NoError(t, os.MkdirAll(mt.blobs, 0o755))
	return mt
}

func (mt *modelsTree) opts() Options {
	return Options{ManifestsDir: mt.manifests, BlobsDir: mt.blobs}
}

// add writes a manifest at registry.ollama.ai/<ns>/<name>/<tag> whose model
// layer points at a fresh blob. It returns the blob path.
func (mt *modelsTree) add(ns, name, tag string) string {
	mt.t.Helper()
	return mt.addAt(filepath.Join("registry.ollama.ai", ns, name, tag), ns+"/"+name+":"+tag, true)
}

// addAt writes a manifest at rel. content seeds the blob bytes (and so the
// digest). When withBlob is false the blob file is not created.
func (mt *modelsTree) addAt(rel, content string, withBlob bool) string {
	mt.t.Helper()
	sum := sha256.Sum256([]byte(content))
	hexsum := hex.EncodeToString(sum[:])
	blob := filepath.Join(mt.blobs, "sha256-"+hexsum)
	if withBlob {
		require.NoError(mt.t, os.WriteFile(blob, []byte(content), 0o644))
	}
	m := map[string]any{
		"schemaVersion": 2,
		"mediaType":     "application/vnd.docker.distribution.manifest.v2+json",
		"config": map[string]any{
			"mediaType": "application/vnd.docker.container.image.v1+json",
			"digest":    "sha256:" + hexsum,
			"size":      len(content),
		},
		"layers": []map[string]any{
			{"mediaType": "application/vnd.ollama.image.license", "digest": "sha256:" + hexsum, "size": 1},
			{"mediaType": MediaTypeModel, "digest": "sha256:" + hexsum, "size": len(content)},
		},
	}
	b, err := json.Marshal(m)
	require.NoError(mt.t, err)
	mt.writeManifest(rel, b)
	return blob
}

func (mt *modelsTree) writeManifest(rel string, b []byte) {
	mt.t.Helper()
	p := filepath.Join(mt.manifests, rel)
	require.NoError(mt.t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(mt.t, os.WriteFile(p, b, 0o644))
}
