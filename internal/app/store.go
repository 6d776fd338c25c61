package app

import (
	"sort"
	"sync"

	"github.com/Guilhem-Bonnet/termin-watch/internal/domain"
)

// StateStore garde, par ressource, le dernier payload observé.
//
// Chaque entrée n'est écrite que par le watcher de sa ressource mais elle est
// lue par le broadcaster (replay au connect) et le endpoint de santé.
type StateStore struct {
	mu     sync.RWMutex
	states map[string]*domain.WatcherState
}

func NewStateStore() *StateStore {
	return &StateStore{states: make(map[string]*domain.WatcherState)}
}

// Init crée l'entrée d'une ressource si elle n'existe pas encore.
func (s *StateStore) Init(resourceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[resourceID]; !ok {
		s.states[resourceID] = &domain.WatcherState{ResourceID: resourceID}
	}
}

func (s *StateStore) Update(p domain.StatusPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[p.ResourceID]
	if !ok {
		st = &domain.WatcherState{ResourceID: p.ResourceID}
		s.states[p.ResourceID] = st
	}
	st.LastPayload = p
}

// Get renvoie une copie de l'état; ok=false si la ressource n'est pas suivie.
func (s *StateStore) Get(resourceID string) (domain.WatcherState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[resourceID]
	if !ok {
		return domain.WatcherState{}, false
	}
	return *st, true
}

// Latest renvoie le dernier payload de chaque ressource ayant terminé au moins
// un cycle, trié par ResourceID.
func (s *StateStore) Latest() []domain.StatusPayload {
	s.mu.RLock()
	out := make([]domain.StatusPayload, 0, len(s.states))
	for _, st := range s.states {
		if st.LastPayload.Seq == 0 {
			continue
		}
		out = append(out, st.LastPayload)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ResourceID < out[j].ResourceID })
	return out
}
