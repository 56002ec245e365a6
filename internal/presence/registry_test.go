package presence

import (
	"fmt"
	"testing"

	"realtime-canvas/internal/model"
)

func TestRegistryRoundRobinColors(t *testing.T) {
	palette := []string{"red", "blue", "green"}
	r := NewRegistry(palette)

	for n := 0; n < 7; n++ {
		conn := r.Register(string(rune('a' + n)))
		if want := palette[n%len(palette)]; conn.AssignedColor != want {
			t.Fatalf("connection %d color = %q, want %q", n, conn.AssignedColor, want)
		}
	}
	if r.Count() != 7 {
		t.Fatalf("Count() = %d, want 7", r.Count())
	}
}

func TestRegistryColorUsesCountBeforeJoin(t *testing.T) {
	r := NewRegistry([]string{"red", "blue"})

	r.Register("c1") // red
	r.Register("c2") // blue
	r.Unregister("c1")

	// one entry left, so the next join gets palette[1]
	if got := r.Register("c3").AssignedColor; got != "blue" {
		t.Fatalf("c3 color = %q, want blue", got)
	}
}

func TestRegistryRegisterIsIdempotent(t *testing.T) {
	r := NewRegistry([]string{"red", "blue"})

	first := r.Register("c1")
	again := r.Register("c1")
	if first != again {
		t.Fatalf("re-register returned %+v, want %+v", again, first)
	}
	if r.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", r.Count())
	}
}

func TestRegistryUnregisterUnknownIsNoop(t *testing.T) {
	r := NewRegistry(nil)
	r.Register("c1")

	if !r.Unregister("c1") {
		t.Fatal("Unregister(c1) = false, want true")
	}
	if r.Unregister("c1") {
		t.Fatal("second Unregister(c1) = true, want false")
	}
	if r.Unregister("nobody") {
		t.Fatal("Unregister(nobody) = true, want false")
	}
	if r.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", r.Count())
	}
}

func TestRegistryIDsKeepJoinOrder(t *testing.T) {
	r := NewRegistry(nil)
	for _, id := range []string{"a", "b", "c", "d"} {
		r.Register(id)
	}
	r.Unregister("b")

	got := r.IDs()
	want := []string{"a", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("IDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("IDs() = %v, want %v", got, want)
		}
	}
}

func TestRegistryDefaultPalette(t *testing.T) {
	r := NewRegistry(nil)
	if got := r.Register("c1").AssignedColor; got != model.DefaultPalette[0] {
		t.Fatalf("color = %q, want %q", got, model.DefaultPalette[0])
	}

	if n := len(model.DefaultPalette); n != 6 {
		t.Fatalf("default palette has %d colors, want 6", n)
	}
	for i := 2; i <= 7; i++ {
		r.Register(fmt.Sprintf("c%d", i))
	}
	// seventh connection wraps to the first color
	if got, ok := r.Lookup("c7"); !ok || got.AssignedColor != "#FF6B6B" {
		t.Fatalf("c7 = %+v (found=%v), want color #FF6B6B", got, ok)
	}

	p := r.Palette()
	p[0] = "mutated"
	if r.Palette()[0] == "mutated" {
		t.Fatal("Palette() exposed internal slice")
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry([]string{"red"})
	r.Register("c1")

	conn, ok := r.Lookup("c1")
	if !ok || conn.AssignedColor != "red" {
		t.Fatalf("Lookup(c1) = %+v, %v", conn, ok)
	}
	if _, ok := r.Lookup("c2"); ok {
		t.Fatal("Lookup(c2) found an entry")
	}
}
