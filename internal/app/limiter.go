package app

import (
	"context"
	"sync"

	"github.com/Guilhem-Bonnet/termin-watch/internal/domain"
	"github.com/Guilhem-Bonnet/termin-watch/internal/ports"
)

// FetchLimiter plafonne le nombre de fetchs simultanés vers le portail, tous
// watchers confondus. Le plafond peut changer à chaud via SetLimit.
type FetchLimiter struct {
	mu       sync.Mutex
	limit    int
	inFlight int
	notify   chan struct{}
}

func NewFetchLimiter(limit int) *FetchLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &FetchLimiter{limit: limit, notify: make(chan struct{})}
}

func (l *FetchLimiter) Limit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit
}

func (l *FetchLimiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight
}

func (l *FetchLimiter) SetLimit(limit int) {
	if limit <= 0 {
		limit = 1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.limit == limit {
		return
	}
	l.limit = limit
	l.wakeLocked()
}

// Acquire attend une place libre ou l'annulation de ctx.
func (l *FetchLimiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		if l.inFlight < l.limit {
			l.inFlight++
			l.mu.Unlock()
			return nil
		}
		ch := l.notify
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

func (l *FetchLimiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inFlight > 0 {
		l.inFlight--
	}
	l.wakeLocked()
}

// wakeLocked réveille tous les waiters (close + nouveau channel).
func (l *FetchLimiter) wakeLocked() {
	close(l.notify)
	l.notify = make(chan struct{})
}

type limitedFetcher struct {
	inner   ports.SlotFetcher
	limiter *FetchLimiter
}

// LimitFetcher fait passer chaque Fetch par le limiteur. L'attente compte dans
// le timeout du cycle.
func LimitFetcher(f ports.SlotFetcher, l *FetchLimiter) ports.SlotFetcher {
	if l == nil {
		return f
	}
	return &limitedFetcher{inner: f, limiter: l}
}

func (f *limitedFetcher) Fetch(ctx context.Context, fetchTarget string) (domain.SlotSet, error) {
	if err := f.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer f.limiter.Release()
	return f.inner.Fetch(ctx, fetchTarget)
}
