package memorybus

import (
	"sort"
	"sync"

	"github.com/Guilhem-Bonnet/termin-watch/internal/ports"
)

// Registry suit les abonnés connectés. Sûr pour de nombreux écrivains et lecteurs.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]ports.Subscriber
}

func New() *Registry {
	return &Registry{subs: make(map[string]ports.Subscriber)}
}

func (r *Registry) Add(sub ports.Subscriber) {
	if sub == nil {
		return
	}
	r.mu.Lock()
	r.subs[sub.ID()] = sub
	r.mu.Unlock()
}

// Remove est idempotent.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.subs, id)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// ForEach appelle fn sur un instantané de la liste, hors verrou: fn peut donc
// ajouter ou retirer des abonnés sans blocage.
func (r *Registry) ForEach(fn func(sub ports.Subscriber)) {
	r.mu.RLock()
	snapshot := make([]ports.Subscriber, 0, len(r.subs))
	for _, sub := range r.subs {
		snapshot = append(snapshot, sub)
	}
	r.mu.RUnlock()

	// Ordre stable, pratique pour les logs et les tests.
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].ID() < snapshot[j].ID() })
	for _, sub := range snapshot {
		fn(sub)
	}
}
