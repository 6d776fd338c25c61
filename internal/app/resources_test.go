package app

import (
	"context"
	"errors"
	"testing"
)

func testTarget(id string) string {
	return "https://service.berlin.de/terminvereinbarung/termin/all/" + id + "/"
}

func TestServiceIDFromURL(t *testing.T) {
	cases := map[string]string{
		"https://service.berlin.de/dienstleistung/120686/":   "120686",
		"https://service.berlin.de/dienstleistung/120686":    "120686",
		" https://service.berlin.de/dienstleistung/326798/ ": "326798",
	}
	for in, want := range cases {
		got, err := ServiceIDFromURL(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %q err=%v", in, got, err)
		}
	}

	for _, bad := range []string{"", "not a url", "https://service.berlin.de/dienstleistung/"} {
		_, err := ServiceIDFromURL(bad)
		var ce *CodedError
		if !errors.As(err, &ce) || ce.Code != CodeInvalidServiceURL {
			t.Fatalf("%q: expected invalid_service_url, got %v", bad, err)
		}
	}
}

func TestResourceService_AddListRemove(t *testing.T) {
	svc := NewResourceService(newFakeRepo(), testTarget)
	ctx := context.Background()

	res, err := svc.Add(ctx, "https://service.berlin.de/dienstleistung/120686/", "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if res.ID != "120686" || res.Name != "service 120686" || res.FetchTarget != testTarget("120686") {
		t.Fatalf("unexpected resource: %+v", res)
	}

	if _, err := svc.Add(ctx, "https://service.berlin.de/dienstleistung/120686/", "again"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	list, err := svc.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("List: %v %v", list, err)
	}

	if err := svc.Remove(ctx, "120686"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := svc.Get(ctx, "120686"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestResourceService_AddRejectsMissingURL(t *testing.T) {
	svc := NewResourceService(newFakeRepo(), testTarget)
	_, err := svc.Add(context.Background(), "  ", "x")
	var ce *CodedError
	if !errors.As(err, &ce) || ce.Code != CodeMissingServiceURL {
		t.Fatalf("expected missing_service_url, got %v", err)
	}
}

func TestResourceService_SeedIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := NewResourceService(repo, testTarget)
	entries := []SeedEntry{
		{ServiceURL: "https://service.berlin.de/dienstleistung/120686/", Name: "Anmeldung"},
		{ServiceURL: "https://service.berlin.de/dienstleistung/120703/"},
	}
	for i := 0; i < 2; i++ {
		n, err := svc.Seed(context.Background(), entries)
		if err != nil || n != 2 {
			t.Fatalf("Seed #%d: n=%d err=%v", i+1, n, err)
		}
	}
	list, _ := repo.List(context.Background())
	if len(list) != 2 || list[0].Name != "Anmeldung" {
		t.Fatalf("unexpected registry: %+v", list)
	}
}
