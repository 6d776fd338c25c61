package ports

import "github.com/Guilhem-Bonnet/termin-watch/internal/domain"

// Subscriber est une connexion vivante (session WebSocket, SSE, miroir Redis...).
//
// Send ne doit jamais bloquer. Il renvoie false si l'abonné est déconnecté,
// auquel cas il est simplement retiré.
type Subscriber interface {
	ID() string
	Send(p domain.StatusPayload) bool
}

type SubscriberRegistry interface {
	Add(sub Subscriber)
	Remove(id string)
	ForEach(fn func(sub Subscriber))
	Len() int
}
