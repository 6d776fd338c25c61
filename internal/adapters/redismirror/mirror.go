// Package redismirror relaie les payloads diffusés vers un canal Redis pub/sub,
// pour d'autres processus (bots, dashboards) qui ne parlent pas WebSocket.
package redismirror

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Guilhem-Bonnet/termin-watch/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/termin-watch/internal/app"
	"github.com/Guilhem-Bonnet/termin-watch/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const DefaultChannel = "termin-watch:appointments"

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Mirror est un abonné comme un autre: le broadcaster l'alimente, Run vide la file vers Redis.
type Mirror struct {
	logger  zerolog.Logger
	client  publisher
	channel string
	sub     *memorybus.Subscription
}

func New(logger zerolog.Logger, client publisher, channel string) *Mirror {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Mirror{logger: logger, client: client, channel: channel, sub: memorybus.NewSubscription(0)}
}

// Dial ouvre un client Redis et vérifie la connexion.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (m *Mirror) ID() string { return "redis-mirror-" + m.sub.ID() }

func (m *Mirror) Send(p domain.StatusPayload) bool { return m.sub.Send(p) }

// Run publie jusqu'à l'annulation de ctx. Une erreur Redis est loggée et le
// payload suivant est tenté normalement.
func (m *Mirror) Run(ctx context.Context) {
	defer m.sub.Close()
	m.logger.Info().Str("channel", m.channel).Msg("redis mirror started")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("redis mirror stopped")
			return
		case <-m.sub.Ready():
			items, open := m.sub.Drain()
			for _, p := range items {
				m.publish(ctx, p)
			}
			if !open {
				m.logger.Warn().Msg("redis mirror fell behind, unsubscribed")
				return
			}
		}
	}
}

func (m *Mirror) publish(ctx context.Context, p domain.StatusPayload) {
	b, err := json.Marshal(app.Envelope{Event: app.EventAppointmentsUpdate, Data: app.ToStatusDTO(p)})
	if err != nil {
		return
	}
	if err := m.client.Publish(ctx, m.channel, b).Err(); err != nil {
		m.logger.Warn().Err(err).Str("resource_id", p.ResourceID).Msg("redis publish failed")
	}
}
