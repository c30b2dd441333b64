package registry

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

var (
	registryModels = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "llamagate",
		Subsystem: "registry",
		Name:      "keys",
		Help:      "Number of resolvable model names in the published registry",
	})
	registryScans = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "llamagate",
		Subsystem: "registry",
		Name:      "scans_total",
		Help:      "Total registry rebuilds by result",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(registryModels, registryScans)
}

// Store publishes the current Registry. Rebuilds replace it wholesale, so
// readers always see either the old or the new mapping.
type Store struct {
	opts  Options
	cur   atomic.Pointer[Registry]
	group singleflight.Group

	detailsMu sync.Mutex
	details   map[string]Details // key: digest
}

// NewStore returns a Store holding an empty registry. Call Refresh to populate it.
func NewStore(opts Options) *Store {
	s := &Store{opts: opts, details: make(map[string]Details)}
	s.cur.Store(Empty())
	return s
}

// Current returns the last published registry.
func (s *Store) Current() *Registry { return s.cur.Load() }

// Resolve looks name up in the current registry.
func (s *Store) Resolve(name string) (string, bool) { return s.Current().Resolve(name) }

// Refresh rescans the manifest tree and publishes the result. Concurrent
// callers share one scan. The scan itself is not tied to any caller's
// context; a caller that gives up gets ctx.Err() while the scan completes.
func (s *Store) Refresh(ctx context.Context) (*Registry, error) {
	ch := s.group.DoChan("scan", func() (any, error) {
		reg, err := Scan(context.Background(), s.opts)
		if err != nil {
			registryScans.WithLabelValues("error").Inc()
			return nil, err
		}
		s.cur.Store(reg)
		registryModels.Set(float64(reg.Len()))
		registryScans.WithLabelValues("ok").Inc()
		return reg, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Registry), nil
	}
}

// Details returns GGUF metadata for e's blob, reading it at most once per digest.
func (s *Store) Details(e Entry) Details {
	key := e.Digest.String()
	s.detailsMu.Lock()
	d, ok := s.details[key]
	s.detailsMu.Unlock()
	if ok {
		return d
	}
	d, err := ReadDetails(e.BlobPath)
	if err != nil {
		log := s.opts.logger()
		log.Debug().Err(err).Str("model", e.Name).Msg("gguf metadata unavailable")
	}
	s.detailsMu.Lock()
	s.details[key] = d
	s.detailsMu.Unlock()
	return d
}
