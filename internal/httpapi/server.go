package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type server struct {
	opts     Options
	registry ModelRegistry
	backend  Backend
	log      zerolog.Logger
	client   *http.Client
}

// NewMux builds the gateway router: listing and admin endpoints are served
// locally, model-bearing OpenAI endpoints select the backend first, and
// everything else is forwarded as-is.
func NewMux(opts Options) http.Handler {
	opts = opts.withDefaults()
	s := &server{
		opts:     opts,
		registry: opts.Registry,
		backend:  opts.Backend,
		log:      zerolog.Nop(),
		client:   newBackendClient(opts.Transport),
	}
	if opts.Logger != nil {
		s.log = opts.Logger.With().Str("component", "http").Logger()
	}

	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if len(opts.CORS.Origins) > 0 {
		r.Use(corsHandler(opts.CORS))
	}

	// Compression only where the gateway renders the body itself; proxied
	// bytes go out exactly as the backend sent them.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5))
		r.Use(nosniff)
		r.Get("/api/tags", s.handleTags)
		r.Get("/api/version", s.handleVersion)
		r.Get("/v1/models", s.handleModels)
		r.Get("/status", s.handleStatus)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.backend.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no backend"))
	})
	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	for _, p := range []string{"/v1/chat/completions", "/v1/completions", "/v1/embeddings"} {
		r.Post(p, s.handleModelRequest)
	}
	r.Get("/health", s.handleForward)
	r.HandleFunc("/*", s.handleForward)

	return r
}

func nosniff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r)
	})
}

func corsHandler(c CORSOptions) func(http.Handler) http.Handler {
	methods := c.Methods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	}
	headers := c.Headers
	if len(headers) == 0 {
		headers = []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: c.Origins,
		AllowedMethods: methods,
		AllowedHeaders: headers,
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	})
}
