package app

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Guilhem-Bonnet/termin-watch/internal/domain"
)

// WireTimeFormat est le format des dates envoyées aux clients (UTC, à la seconde).
const WireTimeFormat = "2006-01-02T15:04:05Z"

// EventAppointmentsUpdate est le nom d'événement côté transport (WebSocket/SSE).
const EventAppointmentsUpdate = "appointments_update"

type StatusDTO struct {
	ResourceID              string   `json:"resourceId"`
	Time                    string   `json:"time"`
	Status                  int      `json:"status"`
	AppointmentDates        []string `json:"appointmentDates"`
	LastAppointmentsFoundOn *string  `json:"lastAppointmentsFoundOn,omitempty"`
	Message                 *string  `json:"message,omitempty"`
}

// Envelope est ce qui transite sur la WebSocket.
type Envelope struct {
	Event string    `json:"event"`
	Data  StatusDTO `json:"data"`
}

func FormatWireTime(t time.Time) string {
	return t.UTC().Format(WireTimeFormat)
}

func ToStatusDTO(p domain.StatusPayload) StatusDTO {
	dto := StatusDTO{
		ResourceID:       p.ResourceID,
		Time:             FormatWireTime(p.ObservedAt),
		Status:           http.StatusOK,
		AppointmentDates: make([]string, 0, len(p.Slots)),
	}
	if !p.OK() {
		dto.Status = http.StatusInternalServerError
		msg := p.Failure
		dto.Message = &msg
	} else {
		for _, t := range p.Slots {
			dto.AppointmentDates = append(dto.AppointmentDates, FormatWireTime(t))
		}
	}
	if !p.LastNonEmptyAt.IsZero() {
		v := FormatWireTime(p.LastNonEmptyAt)
		dto.LastAppointmentsFoundOn = &v
	}
	return dto
}

func MarshalStatus(p domain.StatusPayload) ([]byte, error) {
	return json.Marshal(ToStatusDTO(p))
}
