package app

import "testing"

func TestStateStore_InitGetUpdate(t *testing.T) {
	s := NewStateStore()
	if _, ok := s.Get("A"); ok {
		t.Fatalf("unknown resource should not be found")
	}

	s.Init("A")
	st, ok := s.Get("A")
	if !ok || st.LastPayload.Seq != 0 {
		t.Fatalf("unexpected initial state: %+v", st)
	}

	s.Update(okPayload("A", 1))
	s.Init("A") // ne doit pas écraser
	st, _ = s.Get("A")
	if st.LastPayload.Seq != 1 {
		t.Fatalf("Init must not reset an existing state")
	}
	if len(s.Latest()) != 1 {
		t.Fatalf("expected one latest payload")
	}
}
