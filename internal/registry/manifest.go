package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	digest "github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

const (
	// DefaultNamespace is implied when a name carries no namespace.
	DefaultNamespace = "library"
	// DefaultTag is implied when a name carries no tag.
	DefaultTag = "latest"
	// MediaTypeModel marks the layer holding the model weights.
	MediaTypeModel = "application/vnd.ollama.image.model"
)

// ManifestEntry is one manifest file as found on disk.
type ManifestEntry struct {
	Namespace  string
	Name       string
	Tag        string
	Layers     []ocispec.Descriptor
	Path       string
	ModifiedAt time.Time
}

// FullName is the canonical key: name:tag for the default namespace,
// namespace/name:tag otherwise.
func (m *ManifestEntry) FullName() string {
	return fullName(m.Namespace, m.Name, m.Tag)
}

// WeightsLayer returns the first layer carrying model weights.
func (m *ManifestEntry) WeightsLayer() (ocispec.Descriptor, bool) {
	for _, l := range m.Layers {
		if l.MediaType == MediaTypeModel {
			return l, true
		}
	}
	return ocispec.Descriptor{}, false
}

// readManifest parses the manifest at path. ns/name/tag come from the
// path and are attached as-is.
func readManifest(path, ns, name, tag string) (*ManifestEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ManifestParseError{Path: path, Err: err}
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, &ManifestParseError{Path: path, Err: err}
	}
	var m ocispec.Manifest
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, &ManifestParseError{Path: path, Err: err}
	}
	return &ManifestEntry{
		Namespace:  ns,
		Name:       name,
		Tag:        tag,
		Layers:     m.Layers,
		Path:       path,
		ModifiedAt: fi.ModTime(),
	}, nil
}

// BlobFileName maps a digest to its file name in the blob store:
// "sha256:<hex>" becomes "sha256-<hex>".
func BlobFileName(d digest.Digest) (string, error) {
	if err := d.Validate(); err != nil {
		return "", fmt.Errorf("digest %q: %w", d, err)
	}
	return d.Algorithm().String() + "-" + d.Encoded(), nil
}

// blobPath joins the blob file name for d onto blobsDir.
func blobPath(blobsDir string, d digest.Digest) (string, error) {
	name, err := BlobFileName(d)
	if err != nil {
		return "", err
	}
	return filepath.Join(blobsDir, name), nil
}
