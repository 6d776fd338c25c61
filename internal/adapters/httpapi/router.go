package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/Guilhem-Bonnet/termin-watch/internal/app"
)

// WatcherSnapshot est fourni par le superviseur.
type WatcherSnapshot interface {
	Snapshot() []app.WatcherStats
}

type Server struct {
	logger   zerolog.Logger
	bus      *app.Broadcaster
	watchers WatcherSnapshot
	// metrics est optionnel (nil = pas de /metrics).
	metrics http.Handler
}

func NewServer(logger zerolog.Logger, bus *app.Broadcaster, watchers WatcherSnapshot, metrics http.Handler) *Server {
	return &Server{logger: logger, bus: bus, watchers: watchers, metrics: metrics}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote_ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(accessLogFn))

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(defaultRequestTimeout))
			r.Get("/health", s.handleHealth)
			r.Get("/version", s.handleVersion)
		})

		// Flux longs: pas de timeout de requête.
		r.Get("/events", s.handleEvents)
		r.Get("/ws", s.handleWebSocket)
	})

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	return r
}
