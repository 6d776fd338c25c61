package app

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/Guilhem-Bonnet/termin-watch/internal/domain"
	"github.com/Guilhem-Bonnet/termin-watch/internal/ports"
	"github.com/rs/zerolog"
)

// Runner est une boucle longue annulable (un Watcher en production).
type Runner interface {
	Run(ctx context.Context)
}

type RunnerFactory func(res domain.Resource) Runner

// WatcherStats est une vue best-effort d'un watcher, pour /health.
type WatcherStats struct {
	ResourceID  string    `json:"resourceId"`
	Name        string    `json:"name,omitempty"`
	Running     bool      `json:"running"`
	Restarts    int       `json:"restarts"`
	StartedAt   time.Time `json:"startedAt"`
	LastPanicAt time.Time `json:"lastPanicAt,omitempty"`
	LastPanic   string    `json:"lastPanic,omitempty"`
}

// Supervisor lit la liste des ressources une seule fois et lance un watcher par ressource.
//
// Les échecs d'un cycle sont déjà convertis en payload par le watcher; seul un
// panic qui s'échappe de la boucle arrive ici, il est loggé et le watcher est
// relancé après RestartDelay.
type Supervisor struct {
	logger   zerolog.Logger
	registry ports.ResourceRegistry
	factory  RunnerFactory
	metrics  ports.Metrics

	RestartDelay time.Duration

	wg    sync.WaitGroup
	mu    sync.Mutex
	stats map[string]*WatcherStats
}

func NewSupervisor(logger zerolog.Logger, registry ports.ResourceRegistry, factory RunnerFactory, metrics ports.Metrics) *Supervisor {
	return &Supervisor{
		logger:       logger,
		registry:     registry,
		factory:      factory,
		metrics:      metrics,
		RestartDelay: 180 * time.Second,
		stats:        map[string]*WatcherStats{},
	}
}

// Start renvoie une erreur si le registre est illisible: sans liste, pas de watchers.
func (s *Supervisor) Start(ctx context.Context) (int, error) {
	resources, err := s.registry.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list resources: %w", err)
	}
	if len(resources) == 0 {
		s.logger.Warn().Msg("no resources registered, nothing to watch")
		return 0, nil
	}

	for _, res := range resources {
		res := res
		s.mu.Lock()
		s.stats[res.ID] = &WatcherStats{ResourceID: res.ID, Name: res.Name}
		s.mu.Unlock()

		s.logger.Info().Str("resource_id", res.ID).Str("target", res.FetchTarget).Msg("looking for appointments")
		s.wg.Add(1)
		go s.supervise(ctx, res)
	}
	return len(resources), nil
}

// Wait bloque jusqu'à l'arrêt de tous les watchers.
func (s *Supervisor) Wait() { s.wg.Wait() }

func (s *Supervisor) Snapshot() []WatcherStats {
	s.mu.Lock()
	out := make([]WatcherStats, 0, len(s.stats))
	for _, st := range s.stats {
		out = append(out, *st)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceID < out[j].ResourceID })
	return out
}

func (s *Supervisor) supervise(ctx context.Context, res domain.Resource) {
	defer s.wg.Done()

	delay := s.RestartDelay
	if delay <= 0 {
		delay = 180 * time.Second
	}

	for {
		crashed := s.runOnce(ctx, res)
		if !crashed || ctx.Err() != nil {
			return
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.mu.Lock()
		s.stats[res.ID].Restarts++
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.WatcherRestarted(res.ID)
		}
		s.logger.Warn().Str("resource_id", res.ID).Msg("restarting watcher")
	}
}

// runOnce renvoie true si la boucle s'est terminée sur un panic.
func (s *Supervisor) runOnce(ctx context.Context, res domain.Resource) (crashed bool) {
	s.mu.Lock()
	st := s.stats[res.ID]
	st.Running = true
	st.StartedAt = time.Now().UTC()
	s.mu.Unlock()

	defer func() {
		r := recover()

		s.mu.Lock()
		st.Running = false
		if r != nil {
			st.LastPanicAt = time.Now().UTC()
			st.LastPanic = fmt.Sprint(r)
		}
		s.mu.Unlock()

		if r != nil {
			s.logger.Error().
				Str("resource_id", res.ID).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("WATCHER CRASHED: monitoring of this resource is interrupted")
			crashed = true
		}
	}()

	s.factory(res).Run(ctx)
	return false
}
