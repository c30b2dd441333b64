package registry

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/rs/zerolog"

	"llamagate/internal/common/fsutil"
)

// Options locates the on-disk model store.
type Options struct {
	ManifestsDir string
	BlobsDir     string
	Logger       *zerolog.Logger
}

func (o Options) logger() zerolog.Logger {
	if o.Logger == nil {
		return zerolog.Nop()
	}
	return *o.Logger
}

// Scan walks the manifest tree and builds a fresh Registry. Problems with
// individual manifests are logged and skipped; only a cancelled context or
// an unreadable root makes Scan fail.
func Scan(ctx context.Context, opts Options) (*Registry, error) {
	log := opts.logger()
	root := opts.ManifestsDir
	if !fsutil.PathExists(root) {
		log.Warn().Str("dir", root).Msg("manifests dir does not exist")
		return Empty(), nil
	}

	entries := make(map[string]Entry)
	// namespaced full names seen in the tree, in walk order. Manifests whose
	// blob is missing still count against short alias uniqueness.
	var namespaced []string
	seen := make(map[string]struct{})

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			log.Error().Err(err).Str("path", path).Msg("walk manifests")
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("bad manifest path")
			return nil
		}
		ns, name, tag, err := parseManifestPath(rel)
		if err != nil {
			log.Warn().Err(err).Str("path", rel).Msg("skipping manifest")
			return nil
		}
		if ns != DefaultNamespace {
			full := fullName(ns, name, tag)
			if _, dup := seen[full]; !dup {
				seen[full] = struct{}{}
				namespaced = append(namespaced, full)
			}
		}
		e, err := loadEntry(path, ns, name, tag, opts.BlobsDir)
		if err != nil {
			if IsBlobMissing(err) {
				log.Warn().Err(err).Msg("skipping manifest")
			} else {
				log.Error().Err(err).Msg("skipping manifest")
			}
			return nil
		}
		if prev, dup := entries[e.Name]; dup {
			log.Warn().Str("model", e.Name).Str("kept", prev.BlobPath).Str("path", rel).Msg("duplicate manifest name")
			return nil
		}
		entries[e.Name] = e
		if tag == DefaultTag {
			latest := e
			latest.Alias = true
			entries[shortName(ns, name)] = latest
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	addShortAliases(entries, namespaced, log)

	reg := newRegistry(entries)
	log.Info().Int("keys", reg.Len()).Strs("models", reg.Names()).Msg("registry scanned")
	return reg, nil
}

// loadEntry reads one manifest and checks its weight blob.
func loadEntry(path, ns, name, tag, blobsDir string) (Entry, error) {
	m, err := readManifest(path, ns, name, tag)
	if err != nil {
		return Entry{}, err
	}
	layer, ok := m.WeightsLayer()
	if !ok {
		return Entry{}, &ManifestParseError{Path: path, Err: errNoModelLayer}
	}
	bp, err := blobPath(blobsDir, layer.Digest)
	if err != nil {
		return Entry{}, &ManifestParseError{Path: path, Err: err}
	}
	fi, ok := fsutil.RegularFile(bp)
	if !ok {
		return Entry{}, &BlobMissingError{Name: m.FullName(), Path: bp}
	}
	return Entry{
		Name:       m.FullName(),
		Namespace:  ns,
		Model:      name,
		Tag:        tag,
		BlobPath:   bp,
		Digest:     layer.Digest,
		Size:       fi.Size(),
		ModifiedAt: m.ModifiedAt,
	}, nil
}

// addShortAliases registers base:tag and base for a namespaced model when
// no other namespaced manifest shares its base name, loadable or not.
// Aliases never replace a key that is already present.
func addShortAliases(entries map[string]Entry, namespaced []string, log zerolog.Logger) {
	counts := make(map[string]int, len(namespaced))
	for _, n := range namespaced {
		counts[baseName(n)]++
	}
	for _, n := range namespaced {
		base := baseName(n)
		if counts[base] != 1 {
			log.Debug().Str("model", n).Str("alias", base).Int("candidates", counts[base]).Msg("short alias ambiguous, not registered")
			continue
		}
		e, ok := entries[n]
		if !ok {
			continue
		}
		e.Alias = true
		for _, key := range []string{shortTagged(n), base} {
			if prev, taken := entries[key]; taken {
				log.Debug().Str("alias", key).Str("model", n).Str("owner", prev.Name).Msg("short alias already taken")
				continue
			}
			entries[key] = e
			if key == base && e.Tag != DefaultTag {
				log.Warn().Str("alias", base).Str("model", n).Msg("bare alias points at a non-latest tag")
			}
		}
	}
}
