package memorybus

import (
	"sync"

	"github.com/Guilhem-Bonnet/termin-watch/internal/domain"
	"github.com/rs/xid"
)

// DefaultMaxPending borne la file d'un abonné. Au-delà, l'abonné est fermé
// (déconnecté) plutôt que de perdre ou réordonner des messages.
const DefaultMaxPending = 1024

// Subscription est un abonné en mémoire avec une file ordonnée.
//
// Send n'est jamais bloquant; la session de transport consomme via Ready/Drain.
// Chaque payload porte un Seq par ressource: un payload dont le Seq a déjà été
// vu pour cette ressource est ignoré (replay au connect qui croise un publish).
type Subscription struct {
	id string

	mu         sync.Mutex
	pending    []domain.StatusPayload
	lastSeq    map[string]uint64
	closed     bool
	maxPending int

	ready chan struct{}
}

func NewSubscription(maxPending int) *Subscription {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	return &Subscription{
		id:         xid.New().String(),
		lastSeq:    map[string]uint64{},
		maxPending: maxPending,
		ready:      make(chan struct{}, 1),
	}
}

func (s *Subscription) ID() string { return s.id }

func (s *Subscription) Send(p domain.StatusPayload) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if p.Seq != 0 && p.Seq <= s.lastSeq[p.ResourceID] {
		s.mu.Unlock()
		return true
	}
	if len(s.pending) >= s.maxPending {
		// Trop en retard: on ferme, la session verra Drain() renvoyer open=false.
		s.closed = true
		s.mu.Unlock()
		s.signal()
		return false
	}
	if p.Seq != 0 {
		s.lastSeq[p.ResourceID] = p.Seq
	}
	s.pending = append(s.pending, p)
	s.mu.Unlock()
	s.signal()
	return true
}

// Ready est signalé dès qu'il y a quelque chose à Drain (ou que l'abonné est fermé).
func (s *Subscription) Ready() <-chan struct{} { return s.ready }

// Drain renvoie les payloads en attente, dans l'ordre, et si l'abonné est encore ouvert.
func (s *Subscription) Drain() ([]domain.StatusPayload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out, !s.closed
}

func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription) signal() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}
