package session

import (
	"sync"
	"testing"
)

func TestSessionLifecycle(t *testing.T) {
	s := New(4)

	if s.State() != StateConnecting {
		t.Fatalf("initial state = %v, want connecting", s.State())
	}
	if s.ID == "" {
		t.Fatal("session ID is empty")
	}

	if !s.Activate("red") {
		t.Fatal("Activate() from connecting = false")
	}
	if s.State() != StateActive || s.Color() != "red" {
		t.Fatalf("after Activate: state=%v color=%q", s.State(), s.Color())
	}
	if s.Activate("blue") {
		t.Fatal("second Activate() = true, want false")
	}

	s.Close()
	if !s.IsClosed() || s.State() != StateDisconnected {
		t.Fatalf("after Close: state=%v", s.State())
	}
	if s.Activate("green") {
		t.Fatal("Activate() after Close = true, want false")
	}

	select {
	case <-s.Context().Done():
	default:
		t.Fatal("Done() not closed after Close()")
	}

	// idempotent
	s.Close()
}

func TestSessionIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := New(1).ID
		if seen[id] {
			t.Fatalf("duplicate session id %q", id)
		}
		seen[id] = true
	}
}

func TestSessionEnqueueBounded(t *testing.T) {
	s := New(2)

	if !s.Enqueue([]byte("a")) || !s.Enqueue([]byte("b")) {
		t.Fatal("Enqueue within capacity failed")
	}
	if s.Enqueue([]byte("c")) {
		t.Fatal("Enqueue on full queue = true, want false")
	}

	if got := string(<-s.Outbound()); got != "a" {
		t.Fatalf("first message = %q, want a", got)
	}
	if got := string(<-s.Outbound()); got != "b" {
		t.Fatalf("second message = %q, want b", got)
	}
}

func TestSessionEnqueueAfterClose(t *testing.T) {
	s := New(2)
	s.Close()

	if s.Enqueue([]byte("x")) {
		t.Fatal("Enqueue after Close = true, want false")
	}
	if _, ok := <-s.Outbound(); ok {
		t.Fatal("outbound channel still open after Close")
	}
}

func TestSessionConcurrentEnqueueAndClose(t *testing.T) {
	s := New(8)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Enqueue([]byte("x"))
			}
		}()
	}

	go func() {
		for range s.Outbound() {
		}
	}()

	s.Close()
	wg.Wait()
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateConnecting:   "connecting",
		StateActive:       "active",
		StateDisconnected: "disconnected",
		State(42):         "unknown",
	}
	for st, want := range tests {
		if got := st.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", st, got, want)
		}
	}
}
