package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/Guilhem-Bonnet/termin-watch/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/termin-watch/internal/app"
	"github.com/Guilhem-Bonnet/termin-watch/internal/domain"
	"github.com/Guilhem-Bonnet/termin-watch/internal/httpjson"
	"github.com/rs/zerolog/hlog"
	ws "nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const writeTimeout = 10 * time.Second

// handleWebSocket pousse des enveloppes {"event","data"}. Les messages du
// client sont ignorés; CloseRead détecte sa déconnexion.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		httpjson.WriteError(w, http.StatusServiceUnavailable, "broadcaster not configured")
		return
	}
	logger := hlog.FromRequest(r)

	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	ctx := conn.CloseRead(r.Context())

	sub := memorybus.NewSubscription(0)
	s.bus.Connect(sub)
	defer func() {
		sub.Close()
		s.bus.Disconnect(sub)
	}()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "")
			return
		case <-sub.Ready():
			items, open := sub.Drain()
			for _, p := range items {
				if err := writeEnvelope(ctx, conn, p); err != nil {
					logger.Debug().Err(err).Str("subscriber_id", sub.ID()).Msg("websocket write failed")
					return
				}
			}
			if !open {
				logger.Warn().Str("subscriber_id", sub.ID()).Msg("websocket subscriber fell behind, closing")
				conn.Close(ws.StatusPolicyViolation, "too slow")
				return
			}
		}
	}
}

func writeEnvelope(ctx context.Context, conn *ws.Conn, p domain.StatusPayload) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, app.Envelope{Event: app.EventAppointmentsUpdate, Data: app.ToStatusDTO(p)})
}
