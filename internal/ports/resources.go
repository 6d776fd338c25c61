package ports

import (
	"context"

	"github.com/Guilhem-Bonnet/termin-watch/internal/domain"
)

// ResourceRegistry est la lecture dont le superviseur a besoin au démarrage.
type ResourceRegistry interface {
	List(ctx context.Context) ([]domain.Resource, error)
}

// ResourceRepository ajoute la gestion du registre (CLI, seed de config).
type ResourceRepository interface {
	ResourceRegistry
	Get(ctx context.Context, id string) (domain.Resource, error)
	// Create renvoie ErrConflict si l'id existe déjà.
	Create(ctx context.Context, res domain.Resource) (domain.Resource, error)
	Upsert(ctx context.Context, res domain.Resource) (domain.Resource, error)
	Delete(ctx context.Context, id string) error
}

// SlotFetcher renvoie les créneaux disponibles pour une cible (page "termin/all").
type SlotFetcher interface {
	Fetch(ctx context.Context, fetchTarget string) (domain.SlotSet, error)
}
