package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Guilhem-Bonnet/termin-watch/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/termin-watch/internal/domain"
	"github.com/Guilhem-Bonnet/termin-watch/internal/ports"
	"github.com/rs/zerolog"
)

type fetchResult struct {
	slots domain.SlotSet
	err   error
	panic string
	block bool
}

// scriptedFetcher rejoue une suite de résultats; le dernier est répété.
type scriptedFetcher struct {
	mu      sync.Mutex
	results []fetchResult
	calls   int
	targets []string
}

func (f *scriptedFetcher) Fetch(ctx context.Context, target string) (domain.SlotSet, error) {
	f.mu.Lock()
	i := f.calls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	r := f.results[i]
	f.calls++
	f.targets = append(f.targets, target)
	f.mu.Unlock()

	if r.panic != "" {
		panic(r.panic)
	}
	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return r.slots, r.err
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// stepClock avance d'une minute à chaque lecture.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

type notification struct {
	resourceID string
	kind       string
	slots      int
	reason     string
}

type fakeNotifier struct {
	ch chan notification
}

func newFakeNotifier() *fakeNotifier { return &fakeNotifier{ch: make(chan notification, 16)} }

func (n *fakeNotifier) SlotsFound(ctx context.Context, id string, slots domain.SlotSet) error {
	n.ch <- notification{resourceID: id, kind: "found", slots: len(slots)}
	return nil
}

func (n *fakeNotifier) FetchFailed(ctx context.Context, id, reason string) error {
	n.ch <- notification{resourceID: id, kind: "failed", reason: reason}
	return errors.New("no speaker")
}

type fakeMetrics struct {
	mu          sync.Mutex
	cycles      int
	subscribers int
	restarts    map[string]int
}

func (m *fakeMetrics) ObserveCycle(p domain.StatusPayload, seconds float64) {
	m.mu.Lock()
	m.cycles++
	m.mu.Unlock()
}

func (m *fakeMetrics) SetSubscribers(n int) {
	m.mu.Lock()
	m.subscribers = n
	m.mu.Unlock()
}

func (m *fakeMetrics) WatcherRestarted(id string) {
	m.mu.Lock()
	if m.restarts == nil {
		m.restarts = map[string]int{}
	}
	m.restarts[id]++
	m.mu.Unlock()
}

func (m *fakeMetrics) Restarts(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restarts[id]
}

type fakeRepo struct {
	mu    sync.Mutex
	items map[string]domain.Resource
	err   error
}

func newFakeRepo(items ...domain.Resource) *fakeRepo {
	r := &fakeRepo{items: map[string]domain.Resource{}}
	for _, it := range items {
		r.items[it.ID] = it
	}
	return r
}

func (r *fakeRepo) List(ctx context.Context) ([]domain.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]domain.Resource, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) Get(ctx context.Context, id string) (domain.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return domain.Resource{}, ports.ErrNotFound
	}
	return it, nil
}

func (r *fakeRepo) Create(ctx context.Context, res domain.Resource) (domain.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[res.ID]; ok {
		return domain.Resource{}, ports.ErrConflict
	}
	r.items[res.ID] = res
	return res, nil
}

func (r *fakeRepo) Upsert(ctx context.Context, res domain.Resource) (domain.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[res.ID] = res
	return res, nil
}

func (r *fakeRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return ports.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func newTestBus(store *StateStore, metrics ports.Metrics) *Broadcaster {
	return NewBroadcaster(zerolog.Nop(), memorybus.New(), store, metrics)
}

func drain(sub *memorybus.Subscription) []domain.StatusPayload {
	items, _ := sub.Drain()
	return items
}
