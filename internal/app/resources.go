package app

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/Guilhem-Bonnet/termin-watch/internal/domain"
	"github.com/Guilhem-Bonnet/termin-watch/internal/ports"
)

// TargetFunc construit la page "termin/all" d'un numéro de service.
type TargetFunc func(serviceID string) string

// ResourceService gère le registre des ressources (CLI et seed de config).
// Le superviseur, lui, ne fait qu'un List au démarrage.
type ResourceService struct {
	repo   ports.ResourceRepository
	target TargetFunc
}

func NewResourceService(repo ports.ResourceRepository, target TargetFunc) *ResourceService {
	return &ResourceService{repo: repo, target: target}
}

var reServiceID = regexp.MustCompile(`^\d+$`)

// ServiceIDFromURL extrait le numéro de service du dernier segment de l'URL
// (ex: https://service.berlin.de/dienstleistung/120686/ -> 120686).
func ServiceIDFromURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", &CodedError{Code: CodeInvalidServiceURL, Message: fmt.Sprintf("invalid service url %q", raw), Err: err}
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	id := parts[len(parts)-1]
	if !reServiceID.MatchString(id) {
		return "", &CodedError{Code: CodeInvalidServiceURL, Message: fmt.Sprintf("service url %q does not end with a service number", raw)}
	}
	return id, nil
}

func (s *ResourceService) build(serviceURL, name string) (domain.Resource, error) {
	serviceURL = strings.TrimSpace(serviceURL)
	if serviceURL == "" {
		return domain.Resource{}, &CodedError{Code: CodeMissingServiceURL, Message: "missing service url"}
	}
	id, err := ServiceIDFromURL(serviceURL)
	if err != nil {
		return domain.Resource{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "service " + id
	}
	return domain.Resource{
		ID:          id,
		Name:        name,
		ServiceURL:  serviceURL,
		FetchTarget: s.target(id),
	}, nil
}

// Add enregistre une ressource; ErrConflict si elle est déjà suivie.
func (s *ResourceService) Add(ctx context.Context, serviceURL, name string) (domain.Resource, error) {
	res, err := s.build(serviceURL, name)
	if err != nil {
		return domain.Resource{}, err
	}
	return s.repo.Create(ctx, res)
}

func (s *ResourceService) List(ctx context.Context) ([]domain.Resource, error) {
	return s.repo.List(ctx)
}

func (s *ResourceService) Get(ctx context.Context, id string) (domain.Resource, error) {
	return s.repo.Get(ctx, strings.TrimSpace(id))
}

func (s *ResourceService) Remove(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, strings.TrimSpace(id))
}

// SeedEntry vient de la section "resources" du fichier de config.
type SeedEntry struct {
	ServiceURL string
	Name       string
}

// Seed insère ou met à jour les entrées de config. Idempotent.
func (s *ResourceService) Seed(ctx context.Context, entries []SeedEntry) (int, error) {
	n := 0
	for _, e := range entries {
		res, err := s.build(e.ServiceURL, e.Name)
		if err != nil {
			return n, err
		}
		if _, err := s.repo.Upsert(ctx, res); err != nil {
			return n, fmt.Errorf("seed %s: %w", res.ID, err)
		}
		n++
	}
	return n, nil
}
