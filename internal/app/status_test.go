package app

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/termin-watch/internal/domain"
)

func TestToStatusDTO_Success(t *testing.T) {
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	p := domain.StatusPayload{
		ResourceID:     "120686",
		Seq:            1,
		ObservedAt:     at,
		Slots:          domain.NewSlotSet(time.Unix(1700003600, 0), time.Unix(1700000000, 0)),
		LastNonEmptyAt: at,
	}
	dto := ToStatusDTO(p)
	if dto.Status != 200 || dto.Message != nil {
		t.Fatalf("unexpected dto: %+v", dto)
	}
	want := []string{"2023-11-14T22:13:20Z", "2023-11-14T23:13:20Z"}
	if len(dto.AppointmentDates) != 2 || dto.AppointmentDates[0] != want[0] || dto.AppointmentDates[1] != want[1] {
		t.Fatalf("unexpected dates: %v", dto.AppointmentDates)
	}
	if dto.LastAppointmentsFoundOn == nil || *dto.LastAppointmentsFoundOn != "2024-01-01T10:00:00Z" {
		t.Fatalf("unexpected lastAppointmentsFoundOn")
	}
}

func TestMarshalStatus_FailureShape(t *testing.T) {
	p := domain.StatusPayload{
		ResourceID: "120686",
		Seq:        1,
		ObservedAt: time.Date(2024, 1, 1, 10, 3, 0, 0, time.UTC),
		Failure:    "Error: timeout",
	}
	b, err := MarshalStatus(p)
	if err != nil {
		t.Fatalf("MarshalStatus: %v", err)
	}
	s := string(b)
	for _, part := range []string{`"status":500`, `"appointmentDates":[]`, `"message":"Error: timeout"`, `"time":"2024-01-01T10:03:00Z"`} {
		if !strings.Contains(s, part) {
			t.Fatalf("missing %s in %s", part, s)
		}
	}
	if strings.Contains(s, "lastAppointmentsFoundOn") {
		t.Fatalf("lastAppointmentsFoundOn must be omitted when never found: %s", s)
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
}
