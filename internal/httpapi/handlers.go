package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"llamagate/internal/manager"
	"llamagate/internal/registry"
	"llamagate/pkg/types"
)

// openAICreated is the fixed "created" stamp for models without a manifest time.
const openAICreated = 1677610602

// listing refreshes the registry and returns it with its display names.
// A failed refresh falls back to the last published registry.
func (s *server) listing(r *http.Request) (*registry.Registry, []string) {
	reg := s.refreshed(r)
	return reg, registry.DisplayNames(reg.Names())
}

func (s *server) handleTags(w http.ResponseWriter, r *http.Request) {
	reg, names := s.listing(r)
	resp := types.TagsResponse{Models: make([]types.ModelTag, 0, len(names))}
	for _, name := range names {
		e, ok := reg.Lookup(name)
		if !ok {
			continue
		}
		d := s.registry.Details(e)
		families := []string{}
		if d.Family != "" {
			families = []string{d.Family}
		}
		resp.Models = append(resp.Models, types.ModelTag{
			Name:       name,
			Model:      name,
			ModifiedAt: e.ModifiedAt.UTC().Format(time.RFC3339),
			Size:       e.Size,
			Digest:     e.Digest.Encoded(),
			Details: types.ModelDetails{
				Format:            d.Format,
				Family:            d.Family,
				Families:          families,
				ParameterSize:     d.ParameterSize,
				QuantizationLevel: d.QuantizationLevel,
			},
		})
	}
	writeJSON(w, resp)
}

func (s *server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, types.VersionResponse{Version: s.opts.Version})
}

func (s *server) handleModels(w http.ResponseWriter, r *http.Request) {
	reg, names := s.listing(r)
	resp := types.OpenAIModelList{Object: "list", Data: make([]types.OpenAIModel, 0, len(names))}
	for _, name := range names {
		created := int64(openAICreated)
		if e, ok := reg.Lookup(name); ok && !e.ModifiedAt.IsZero() {
			created = e.ModifiedAt.Unix()
		}
		resp.Data = append(resp.Data, types.OpenAIModel{ID: name, Object: "model", Created: created, OwnedBy: "ollama"})
	}
	writeJSON(w, resp)
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	writeJSON(w, types.StatusResponse{
		Backend:        s.backend.Status(),
		RegistryKeys:   s.registry.Current().Len(),
		UptimeSeconds:  int64(now.Sub(s.opts.StartedAt).Seconds()),
		ServerTimeUnix: now.Unix(),
	})
}

// refreshed rescans the model store so pulls and removals show up without
// a restart. A failed scan falls back to the last published registry.
func (s *server) refreshed(r *http.Request) *registry.Registry {
	reg, err := s.registry.Refresh(r.Context())
	if err != nil {
		log := requestLog(s.log, r)
		log.Warn().Err(err).Msg("registry refresh failed; serving last scan")
		return s.registry.Current()
	}
	return reg
}

// resolve looks name up in a fresh scan of the model store.
func (s *server) resolve(r *http.Request, name string) (string, bool) {
	return s.refreshed(r).Resolve(name)
}

// ensure starts path on the backend, giving up when the client leaves or
// the server shuts down.
func (s *server) ensure(r *http.Request, path string) error {
	ctx, cancel := joinContexts(s.opts.BaseContext, r.Context())
	defer cancel()
	return s.backend.EnsureRunning(ctx, path)
}

// handleModelRequest serves the OpenAI endpoints that carry a model field:
// the named model is resolved and made current before the buffered body
// is forwarded.
func (s *server) handleModelRequest(w http.ResponseWriter, r *http.Request) {
	log := requestLog(s.log, r)
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", mbe.Limit))
			return
		}
		writeJSONError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	var peek struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal(body, &peek); err != nil {
		writeError(w, errBadJSON)
		return
	}

	var b manager.Backend
	if peek.Model == "" {
		b, err = s.currentOrDefault(r)
	} else {
		b, err = s.backendFor(r, peek.Model)
	}
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		log.Warn().Err(err).Str("model", peek.Model).Msg("no backend for request")
		writeError(w, err)
		return
	}
	s.forward(w, r, b, bytes.NewReader(body), int64(len(body)))
}

// backendFor resolves model and makes it the running backend.
func (s *server) backendFor(r *http.Request, model string) (manager.Backend, error) {
	path, ok := s.resolve(r, model)
	if !ok {
		return manager.Backend{}, manager.ErrModelNotFound(model)
	}
	if err := s.ensure(r, path); err != nil {
		if manager.IsLoadError(err) {
			return manager.Backend{}, fmt.Errorf("failed to load model %s: %w", model, err)
		}
		return manager.Backend{}, err
	}
	b, ok := s.backend.Current()
	if !ok {
		return manager.Backend{}, manager.ErrNoBackend("backend stopped before the request could be forwarded")
	}
	if b.Path != path {
		log := requestLog(s.log, r)
		log.Warn().Str("model", model).Str("want", path).Str("serving", b.Path).Msg("backend swapped before forward")
		return manager.Backend{}, manager.ErrNoBackend(fmt.Sprintf("model %s was replaced by another request before forwarding", model))
	}
	return b, nil
}

// currentOrDefault returns the running backend, starting the default model
// when nothing is running.
func (s *server) currentOrDefault(r *http.Request) (manager.Backend, error) {
	if b, ok := s.backend.Current(); ok {
		return b, nil
	}
	const noModel = "no model loaded and no default found"
	if s.opts.DefaultModel == "" {
		return manager.Backend{}, manager.ErrNoBackend(noModel)
	}
	path, ok := s.resolve(r, s.opts.DefaultModel)
	if !ok {
		return manager.Backend{}, manager.ErrNoBackend(noModel)
	}
	if err := s.ensure(r, path); err != nil {
		if r.Context().Err() != nil {
			return manager.Backend{}, err
		}
		return manager.Backend{}, manager.ErrNoBackend(fmt.Sprintf("%s: default model %s: %v", noModel, s.opts.DefaultModel, err))
	}
	b, ok := s.backend.Current()
	if !ok {
		return manager.Backend{}, manager.ErrNoBackend(noModel)
	}
	return b, nil
}

// handleForward relays any other request to the running backend.
func (s *server) handleForward(w http.ResponseWriter, r *http.Request) {
	b, err := s.currentOrDefault(r)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		log := requestLog(s.log, r)
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("no backend for request")
		writeError(w, err)
		return
	}
	s.forward(w, r, b, r.Body, r.ContentLength)
}
