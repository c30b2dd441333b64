// Package registry discovers installed models from an Ollama-style manifest
// tree and maps resolvable names to weight blob paths.
//
// A scan walks <models>/manifests, reads each manifest's model layer digest
// and checks the matching file in <models>/blobs. Keys take three shapes:
// namespace/name:tag, name:tag (default namespace), and short aliases
// without a tag that resolve as :latest. A namespaced model also gets
// name:tag and name aliases when no other namespaced model shares its
// base name.
package registry
