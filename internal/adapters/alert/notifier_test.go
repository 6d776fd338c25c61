package alert

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/termin-watch/internal/domain"
	"github.com/rs/zerolog"
)

func TestNotifier_RingsOncePerInterval(t *testing.T) {
	var buf bytes.Buffer
	n := New(zerolog.Nop(), &buf, Options{MinInterval: time.Hour})

	slots := domain.NewSlotSet(time.Unix(1700000000, 0))
	for i := 0; i < 3; i++ {
		if err := n.SlotsFound(context.Background(), "120686", slots); err != nil {
			t.Fatalf("SlotsFound: %v", err)
		}
	}
	if got := buf.String(); got != bellInfo {
		t.Fatalf("expected a single bell, got %q", got)
	}
}

func TestNotifier_QuietNeverRings(t *testing.T) {
	var buf bytes.Buffer
	n := New(zerolog.Nop(), &buf, Options{Quiet: true})

	_ = n.SlotsFound(context.Background(), "120686", domain.NewSlotSet(time.Unix(1700000000, 0)))
	_ = n.FetchFailed(context.Background(), "120686", "Error: boom")
	if buf.Len() != 0 {
		t.Fatalf("quiet notifier wrote %q", buf.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("tty gone") }

func TestNotifier_ReportsWriteError(t *testing.T) {
	n := New(zerolog.Nop(), failingWriter{}, Options{})
	if err := n.FetchFailed(context.Background(), "120686", "Error: boom"); err == nil {
		t.Fatalf("expected write error")
	}
}
