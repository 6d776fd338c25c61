package domain

import (
	"sort"
	"time"
)

// SlotSet est une suite strictement croissante d'instants UTC réservables.
type SlotSet []time.Time

// NewSlotSet normalise ts en UTC, trie et supprime les doublons.
func NewSlotSet(ts ...time.Time) SlotSet {
	if len(ts) == 0 {
		return SlotSet{}
	}
	out := make(SlotSet, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.UTC())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })

	n := 0
	for i, t := range out {
		if i > 0 && t.Equal(out[n-1]) {
			continue
		}
		out[n] = t
		n++
	}
	return out[:n]
}

// Union renvoie l'union triée et dédupliquée des deux ensembles.
func Union(a, b SlotSet) SlotSet {
	all := make([]time.Time, 0, len(a)+len(b))
	all = append(all, a...)
	all = append(all, b...)
	return NewSlotSet(all...)
}

func (s SlotSet) Empty() bool { return len(s) == 0 }

// StatusPayload résume un cycle d'observation d'une ressource.
//
// Failure vide => succès (Slots peut être vide, ce n'est pas une erreur).
// Failure non vide => échec, Slots est toujours vide.
type StatusPayload struct {
	ResourceID string

	// Seq est le numéro de cycle de la ressource (1, 2, ...). Il sert à garantir
	// une livraison unique et ordonnée par abonné.
	Seq uint64

	ObservedAt time.Time
	Slots      SlotSet
	Failure    string

	// LastNonEmptyAt est zéro tant qu'aucun cycle n'a trouvé de créneau.
	LastNonEmptyAt time.Time
}

func (p StatusPayload) OK() bool { return p.Failure == "" }

// WatcherState est l'état mutable d'une ressource, écrit uniquement par son watcher.
type WatcherState struct {
	ResourceID  string
	LastPayload StatusPayload
}
