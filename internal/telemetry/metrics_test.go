package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/termin-watch/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_ObserveCycle(t *testing.T) {
	m := NewMetrics()

	found := time.Unix(1700000000, 0).UTC()
	m.ObserveCycle(domain.StatusPayload{ResourceID: "120686", Slots: domain.NewSlotSet(found), LastNonEmptyAt: found}, 0.3)
	m.ObserveCycle(domain.StatusPayload{ResourceID: "120686", Failure: "Error: timeout", LastNonEmptyAt: found}, 20)

	if got := testutil.ToFloat64(m.cycles.WithLabelValues("120686", "ok")); got != 1 {
		t.Fatalf("ok cycles: want 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.cycles.WithLabelValues("120686", "error")); got != 1 {
		t.Fatalf("error cycles: want 1, got %v", got)
	}
	// Un échec ne remet pas la jauge à zéro.
	if got := testutil.ToFloat64(m.slots.WithLabelValues("120686")); got != 1 {
		t.Fatalf("available slots: want 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.lastFound.WithLabelValues("120686")); got != 1700000000 {
		t.Fatalf("last found: want 1700000000, got %v", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.SetSubscribers(3)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "termin_watch_subscribers 3") {
		t.Fatalf("expected subscribers gauge in output")
	}
}
