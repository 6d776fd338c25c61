package httpapi

import (
	"net/http"
	"time"

	"github.com/Guilhem-Bonnet/termin-watch/internal/app"
	"github.com/Guilhem-Bonnet/termin-watch/internal/buildinfo"
	"github.com/Guilhem-Bonnet/termin-watch/internal/httpjson"
	"github.com/rs/zerolog/hlog"
)

const defaultRequestTimeout = 30 * time.Second

type healthResponse struct {
	Status      string             `json:"status"`
	Subscribers int                `json:"subscribers"`
	Watchers    []app.WatcherStats `json:"watchers"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Watchers: []app.WatcherStats{}}
	if s.bus != nil {
		resp.Subscribers = s.bus.Subscribers()
	}
	if s.watchers != nil {
		resp.Watchers = s.watchers.Snapshot()
	}
	httpjson.Write(w, http.StatusOK, resp)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, buildinfo.Current())
}

func accessLogFn(r *http.Request, status, size int, duration time.Duration) {
	logger := hlog.FromRequest(r)
	logger.Info().
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("http")
}
