package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/termin-watch/internal/domain"
	"github.com/rs/zerolog"
)

type runnerFunc func(ctx context.Context)

func (f runnerFunc) Run(ctx context.Context) { f(ctx) }

func TestSupervisor_RegistryErrorIsFatal(t *testing.T) {
	repo := newFakeRepo()
	repo.err = errors.New("disk on fire")
	sup := NewSupervisor(zerolog.Nop(), repo, func(domain.Resource) Runner {
		t.Fatalf("no watcher should start")
		return nil
	}, nil)

	n, err := sup.Start(context.Background())
	if err == nil || n != 0 {
		t.Fatalf("expected error, got n=%d err=%v", n, err)
	}
	if !errors.Is(err, repo.err) {
		t.Fatalf("error should wrap the registry error: %v", err)
	}
}

func TestSupervisor_EmptyRegistry(t *testing.T) {
	sup := NewSupervisor(zerolog.Nop(), newFakeRepo(), nil, nil)
	n, err := sup.Start(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("expected 0 watchers, got n=%d err=%v", n, err)
	}
	sup.Wait()
}

func TestSupervisor_RestartsCrashedWatcher(t *testing.T) {
	repo := newFakeRepo(domain.Resource{ID: "A"}, domain.Resource{ID: "B"})
	m := &fakeMetrics{}

	var mu sync.Mutex
	runs := map[string]int{}
	restarted := make(chan struct{})

	sup := NewSupervisor(zerolog.Nop(), repo, func(res domain.Resource) Runner {
		return runnerFunc(func(ctx context.Context) {
			mu.Lock()
			runs[res.ID]++
			n := runs[res.ID]
			mu.Unlock()
			if res.ID == "A" && n == 1 {
				panic("watcher bug")
			}
			if res.ID == "A" && n == 2 {
				close(restarted)
			}
			<-ctx.Done()
		})
	}, m)
	sup.RestartDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	n, err := sup.Start(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Start: n=%d err=%v", n, err)
	}

	select {
	case <-restarted:
	case <-time.After(2 * time.Second):
		t.Fatalf("crashed watcher was not restarted")
	}

	snap := sup.Snapshot()
	if len(snap) != 2 || snap[0].ResourceID != "A" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap[0].Restarts != 1 || snap[0].LastPanic != "watcher bug" {
		t.Fatalf("unexpected stats for A: %+v", snap[0])
	}
	if snap[1].Restarts != 0 {
		t.Fatalf("B must be unaffected by A's crash: %+v", snap[1])
	}
	if m.Restarts("A") != 1 {
		t.Fatalf("restart should be reported to metrics")
	}

	cancel()
	waitDone(t, sup)

	mu.Lock()
	defer mu.Unlock()
	if runs["B"] != 1 {
		t.Fatalf("B should have run once, got %d", runs["B"])
	}
}

func TestSupervisor_CancelDuringRestartDelay(t *testing.T) {
	repo := newFakeRepo(domain.Resource{ID: "A"})
	crashed := make(chan struct{})
	sup := NewSupervisor(zerolog.Nop(), repo, func(res domain.Resource) Runner {
		return runnerFunc(func(ctx context.Context) {
			close(crashed)
			panic("boom")
		})
	}, nil)
	sup.RestartDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := sup.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-crashed
	cancel()
	waitDone(t, sup)
}

func waitDone(t *testing.T, sup *Supervisor) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		sup.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("supervisor did not stop")
	}
}
