package domain

import "time"

type Resource struct {
	// ID est le numéro de service (dernier segment de ServiceURL), ex: "120686".
	ID string

	// Name est un libellé libre pour affichage/logs.
	Name string

	// ServiceURL pointe vers la page publique du service (ex: https://service.berlin.de/dienstleistung/120686/).
	ServiceURL string

	// FetchTarget est la page "termin/all" interrogée à chaque cycle.
	FetchTarget string

	CreatedAt time.Time
	UpdatedAt time.Time
}
