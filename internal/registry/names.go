package registry

import (
	"path/filepath"
	"sort"
	"strings"
)

func fullName(ns, name, tag string) string {
	if ns == DefaultNamespace {
		return name + ":" + tag
	}
	return ns + "/" + name + ":" + tag
}

func shortName(ns, name string) string {
	if ns == DefaultNamespace {
		return name
	}
	return ns + "/" + name
}

// parseManifestPath derives namespace, name and tag from a manifest path
// relative to the manifests root. The last three segments are
// namespace/name/tag; leading segments (registry host) are ignored.
func parseManifestPath(rel string) (ns, name, tag string, err error) {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	switch {
	case len(parts) >= 3:
		ns, name, tag = parts[len(parts)-3], parts[len(parts)-2], parts[len(parts)-1]
	case len(parts) == 2:
		ns, name, tag = DefaultNamespace, parts[0], parts[1]
	default:
		return "", "", "", errBadPath
	}
	if ns == "" || name == "" || tag == "" {
		return "", "", "", errBadPath
	}
	return ns, name, tag, nil
}

// baseName strips namespace and tag: "acme/phi4-x:latest" -> "phi4-x".
func baseName(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		key = key[i+1:]
	}
	if i := strings.Index(key, ":"); i >= 0 {
		key = key[:i]
	}
	return key
}

// shortTagged strips only the namespace: "acme/phi4-x:latest" -> "phi4-x:latest".
func shortTagged(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}

// DisplayNames filters registry keys for listing endpoints. Only tagged
// keys are shown, and a namespaced key is hidden when the bare key with
// the same name:tag suffix exists. The result is sorted.
func DisplayNames(keys []string) []string {
	bare := make(map[string]struct{})
	var tagged []string
	for _, k := range keys {
		if !strings.Contains(k, ":") {
			continue
		}
		tagged = append(tagged, k)
		if !strings.Contains(k, "/") {
			bare[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(tagged))
	for _, k := range tagged {
		if strings.Contains(k, "/") {
			if _, dup := bare[shortTagged(k)]; dup {
				continue
			}
		}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
