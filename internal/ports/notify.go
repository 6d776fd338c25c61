package ports

import (
	"context"

	"github.com/Guilhem-Bonnet/termin-watch/internal/domain"
)

// Notifier est le hook d'alerte appelé par les watchers, en fire-and-forget.
type Notifier interface {
	SlotsFound(ctx context.Context, resourceID string, slots domain.SlotSet) error
	FetchFailed(ctx context.Context, resourceID string, reason string) error
}

// Metrics est optionnel; voir internal/telemetry.
type Metrics interface {
	ObserveCycle(p domain.StatusPayload, seconds float64)
	SetSubscribers(n int)
	WatcherRestarted(resourceID string)
}
