package app

import (
	"sync"

	"github.com/Guilhem-Bonnet/termin-watch/internal/domain"
	"github.com/Guilhem-Bonnet/termin-watch/internal/ports"
	"github.com/rs/zerolog"
)

// Broadcaster diffuse chaque nouveau payload aux abonnés connectés et rejoue
// les derniers payloads connus aux nouveaux arrivants.
//
// mu sérialise Publish et Connect: un abonné voit donc les payloads dans
// l'ordre de publication, sans trou entre le replay et le publish suivant.
// Les Send sont non bloquants, le verrou n'est jamais tenu pendant une I/O.
type Broadcaster struct {
	logger  zerolog.Logger
	subs    ports.SubscriberRegistry
	store   *StateStore
	metrics ports.Metrics

	mu sync.Mutex
}

func NewBroadcaster(logger zerolog.Logger, subs ports.SubscriberRegistry, store *StateStore, metrics ports.Metrics) *Broadcaster {
	return &Broadcaster{logger: logger, subs: subs, store: store, metrics: metrics}
}

func (b *Broadcaster) Publish(p domain.StatusPayload) {
	b.mu.Lock()
	defer b.mu.Unlock()

	gone := 0
	b.subs.ForEach(func(sub ports.Subscriber) {
		if !sub.Send(p) {
			// Déconnecté entre-temps: pas une erreur.
			b.subs.Remove(sub.ID())
			gone++
		}
	})
	if gone > 0 {
		b.logger.Debug().Int("removed", gone).Str("resource_id", p.ResourceID).Msg("dropped disconnected subscribers")
		b.reportSubscribers()
	}
}

// Connect enregistre sub puis lui envoie immédiatement le dernier payload de chaque ressource.
func (b *Broadcaster) Connect(sub ports.Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs.Add(sub)
	for _, p := range b.store.Latest() {
		if !sub.Send(p) {
			b.subs.Remove(sub.ID())
			break
		}
	}
	b.logger.Debug().Str("subscriber_id", sub.ID()).Int("subscribers", b.subs.Len()).Msg("subscriber connected")
	b.reportSubscribers()
}

// Disconnect est idempotent.
func (b *Broadcaster) Disconnect(sub ports.Subscriber) {
	b.subs.Remove(sub.ID())
	b.logger.Debug().Str("subscriber_id", sub.ID()).Msg("subscriber disconnected")
	b.reportSubscribers()
}

func (b *Broadcaster) Subscribers() int { return b.subs.Len() }

func (b *Broadcaster) reportSubscribers() {
	if b.metrics != nil {
		b.metrics.SetSubscribers(b.subs.Len())
	}
}
