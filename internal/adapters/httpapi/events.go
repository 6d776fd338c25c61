package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Guilhem-Bonnet/termin-watch/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/termin-watch/internal/app"
	"github.com/Guilhem-Bonnet/termin-watch/internal/httpjson"
	"github.com/rs/zerolog/hlog"
)

const heartbeatInterval = 15 * time.Second

// handleEvents diffuse les mises à jour en SSE. Le replay des derniers
// payloads arrive avant tout publish suivant.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		httpjson.WriteError(w, http.StatusServiceUnavailable, "broadcaster not configured")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := memorybus.NewSubscription(0)
	s.bus.Connect(sub)
	defer func() {
		sub.Close()
		s.bus.Disconnect(sub)
	}()

	fmt.Fprintf(w, "event: hello\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	logger := hlog.FromRequest(r)
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprintf(w, "event: ping\ndata: {}\n\n")
			flusher.Flush()
		case <-sub.Ready():
			items, open := sub.Drain()
			for _, p := range items {
				b, err := json.Marshal(app.ToStatusDTO(p))
				if err != nil {
					continue
				}
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", app.EventAppointmentsUpdate, b); err != nil {
					return
				}
			}
			flusher.Flush()
			if !open {
				logger.Warn().Str("subscriber_id", sub.ID()).Msg("sse subscriber fell behind, closing")
				return
			}
		}
	}
}
