// Package alert implémente le hook d'alerte locale des watchers (bip terminal + log).
package alert

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Guilhem-Bonnet/termin-watch/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	bellInfo  = "\a"
	bellError = "\a\a"
)

type Options struct {
	// Quiet désactive les bips (les logs restent).
	Quiet bool

	// MinInterval espace deux bips, toutes ressources confondues.
	MinInterval time.Duration
}

// Notifier émet un bip sur out quand des créneaux sont trouvés ou qu'un fetch échoue.
// Les bips sont limités par un token bucket pour ne pas sonner N fois d'affilée
// quand plusieurs ressources publient en même temps.
type Notifier struct {
	logger  zerolog.Logger
	opts    Options
	limiter *rate.Limiter

	mu  sync.Mutex
	out io.Writer
}

func New(logger zerolog.Logger, out io.Writer, opts Options) *Notifier {
	if opts.MinInterval <= 0 {
		opts.MinInterval = 10 * time.Second
	}
	return &Notifier{
		logger:  logger,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Every(opts.MinInterval), 1),
		out:     out,
	}
}

func (n *Notifier) SlotsFound(ctx context.Context, resourceID string, slots domain.SlotSet) error {
	ev := n.logger.Info().Str("resource_id", resourceID).Int("slots", len(slots))
	if !slots.Empty() {
		ev = ev.Time("first_slot", slots[0])
	}
	ev.Msg("appointments available")
	return n.ring(bellInfo)
}

func (n *Notifier) FetchFailed(ctx context.Context, resourceID string, reason string) error {
	return n.ring(bellError)
}

func (n *Notifier) ring(bell string) error {
	if n.opts.Quiet || n.out == nil {
		return nil
	}
	if !n.limiter.Allow() {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := io.WriteString(n.out, bell); err != nil {
		return fmt.Errorf("alert bell: %w", err)
	}
	return nil
}
