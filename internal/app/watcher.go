package app

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/Guilhem-Bonnet/termin-watch/internal/domain"
	"github.com/Guilhem-Bonnet/termin-watch/internal/ports"
	"github.com/rs/zerolog"
)

type WatcherOptions struct {
	PollInterval time.Duration
	FetchTimeout time.Duration

	// Now est injectable pour les tests.
	Now func() time.Time
}

func DefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{
		PollInterval: 180 * time.Second,
		FetchTimeout: 45 * time.Second,
		Now:          time.Now,
	}
}

// Watcher surveille une ressource: fetch -> état -> publish -> sleep, jusqu'à l'annulation du contexte.
type Watcher struct {
	logger   zerolog.Logger
	res      domain.Resource
	fetcher  ports.SlotFetcher
	store    *StateStore
	bus      *Broadcaster
	notifier ports.Notifier
	metrics  ports.Metrics
	opts     WatcherOptions

	seq uint64
}

func NewWatcher(logger zerolog.Logger, res domain.Resource, fetcher ports.SlotFetcher, store *StateStore, bus *Broadcaster, notifier ports.Notifier, metrics ports.Metrics, opts WatcherOptions) *Watcher {
	def := DefaultWatcherOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = def.FetchTimeout
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	store.Init(res.ID)
	w := &Watcher{logger: logger, res: res, fetcher: fetcher, store: store, bus: bus, notifier: notifier, metrics: metrics, opts: opts}
	// Reprise après un redémarrage par le superviseur: on continue la séquence.
	if st, ok := store.Get(res.ID); ok {
		w.seq = st.LastPayload.Seq
	}
	return w
}

func (w *Watcher) Run(ctx context.Context) {
	w.logger.Info().Dur("interval", w.opts.PollInterval).Msg("watcher started")
	for {
		if _, ok := w.cycle(ctx); !ok {
			w.logger.Info().Msg("watcher stopped")
			return
		}

		timer := time.NewTimer(w.opts.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.logger.Info().Msg("watcher stopped")
			return
		case <-timer.C:
		}
	}
}

// cycle exécute un tour complet. ok=false si le contexte a été annulé en cours
// de fetch: rien n'est alors écrit ni publié.
func (w *Watcher) cycle(ctx context.Context) (domain.StatusPayload, bool) {
	started := w.opts.Now()
	slots, err := w.fetch(ctx)
	if ctx.Err() != nil {
		return domain.StatusPayload{}, false
	}

	p := w.next(slots, err)
	w.store.Update(p)
	w.bus.Publish(p)

	if w.metrics != nil {
		w.metrics.ObserveCycle(p, w.opts.Now().Sub(started).Seconds())
	}

	if err != nil {
		w.logger.Warn().Err(err).Uint64("seq", p.Seq).Msg("fetch failed")
		w.notify(ctx, func(ctx context.Context) error { return w.notifier.FetchFailed(ctx, w.res.ID, p.Failure) })
	} else {
		w.logger.Info().Int("slots", len(slots)).Uint64("seq", p.Seq).Msg("appointments checked")
		if !slots.Empty() {
			found := slots
			w.notify(ctx, func(ctx context.Context) error { return w.notifier.SlotsFound(ctx, w.res.ID, found) })
		}
	}
	return p, true
}

// fetch borne l'appel au fetcher et convertit un panic en erreur.
func (w *Watcher) fetch(ctx context.Context) (slots domain.SlotSet, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("fetcher panicked")
			slots, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, w.opts.FetchTimeout)
	defer cancel()
	return w.fetcher.Fetch(fetchCtx, w.res.FetchTarget)
}

// next construit le payload du cycle; LastNonEmptyAt n'avance que si des créneaux ont été trouvés.
func (w *Watcher) next(slots domain.SlotSet, err error) domain.StatusPayload {
	now := w.opts.Now().UTC()
	prev, _ := w.store.Get(w.res.ID)

	w.seq++
	p := domain.StatusPayload{
		ResourceID:     w.res.ID,
		Seq:            w.seq,
		ObservedAt:     now,
		Slots:          domain.SlotSet{},
		LastNonEmptyAt: prev.LastPayload.LastNonEmptyAt,
	}
	if err != nil {
		p.Failure = "Error: " + err.Error()
		return p
	}
	if slots != nil {
		p.Slots = slots
	}
	if !p.Slots.Empty() {
		p.LastNonEmptyAt = now
	}
	return p
}

func (w *Watcher) notify(ctx context.Context, fn func(ctx context.Context) error) {
	if w.notifier == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				w.logger.Warn().Interface("panic", r).Msg("notifier panicked")
			}
		}()
		if err := fn(ctx); err != nil {
			w.logger.Warn().Err(err).Msg("notifier failed")
		}
	}()
}
