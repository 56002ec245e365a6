package canvas

import (
	"errors"
	"sync"
	"testing"
	"time"

	"realtime-canvas/internal/model"
)

func xs(ops []model.DrawOperation) []float64 {
	out := make([]float64, len(ops))
	for i, op := range ops {
		out[i] = *op.X
	}
	return out
}

func TestHistoryAppendAssignsSequence(t *testing.T) {
	h := NewHistory(10)

	for i := 1; i <= 3; i++ {
		stored, err := h.Append(model.NewDot(float64(i), 0, "red"))
		if err != nil {
			t.Fatalf("Append() error: %v", err)
		}
		if stored.Sequence != uint64(i) {
			t.Fatalf("sequence = %d, want %d", stored.Sequence, i)
		}
	}

	if got := h.LastSequence(); got != 3 {
		t.Fatalf("LastSequence() = %d, want 3", got)
	}
}

func TestHistoryBoundedFIFO(t *testing.T) {
	const capacity = 5
	h := NewHistory(capacity)

	for i := 1; i <= 12; i++ {
		if _, err := h.Append(model.NewDot(float64(i), 0, "red")); err != nil {
			t.Fatalf("Append(%d) error: %v", i, err)
		}
		if h.Len() > capacity {
			t.Fatalf("Len() = %d exceeds cap %d", h.Len(), capacity)
		}
	}

	got := xs(h.Snapshot())
	want := []float64{8, 9, 10, 11, 12}
	if len(got) != len(want) {
		t.Fatalf("snapshot len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("snapshot = %v, want %v", got, want)
		}
	}
}

func TestHistoryRejectsInvalidWithoutConsumingSequence(t *testing.T) {
	h := NewHistory(3)

	if _, err := h.Append(model.NewLine("red", model.Point{X: 1, Y: 1})); !errors.Is(err, model.ErrInvalidOperation) {
		t.Fatalf("Append(single point line) = %v, want ErrInvalidOperation", err)
	}
	if h.Len() != 0 {
		t.Fatalf("Len() = %d after rejected append, want 0", h.Len())
	}

	stored, err := h.Append(model.NewDot(1, 1, "red"))
	if err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if stored.Sequence != 1 {
		t.Fatalf("sequence = %d, want 1", stored.Sequence)
	}
}

func TestHistoryMaxPathPoints(t *testing.T) {
	h := NewHistory(3, WithMaxPathPoints(3))

	long := model.NewLine("red",
		model.Point{X: 0, Y: 0}, model.Point{X: 1, Y: 1},
		model.Point{X: 2, Y: 2}, model.Point{X: 3, Y: 3},
	)
	if _, err := h.Append(long); !errors.Is(err, model.ErrInvalidOperation) {
		t.Fatalf("Append(long line) = %v, want ErrInvalidOperation", err)
	}
}

func TestHistoryClearKeepsSequenceMonotonic(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 4; i++ {
		if _, err := h.Append(model.NewDot(float64(i), 0, "red")); err != nil {
			t.Fatal(err)
		}
	}

	cleared := h.Clear()
	if len(cleared) != 3 {
		t.Fatalf("Clear() returned %d ops, want 3", len(cleared))
	}
	if h.Len() != 0 || len(h.Snapshot()) != 0 {
		t.Fatalf("history not empty after Clear()")
	}

	stored, err := h.Append(model.NewDot(9, 9, "red"))
	if err != nil {
		t.Fatal(err)
	}
	if stored.Sequence != 5 {
		t.Fatalf("sequence after clear = %d, want 5", stored.Sequence)
	}
}

func TestHistorySnapshotIsCopy(t *testing.T) {
	h := NewHistory(3)
	if _, err := h.Append(model.NewLine("red", model.Point{X: 0, Y: 0}, model.Point{X: 1, Y: 1})); err != nil {
		t.Fatal(err)
	}

	snap := h.Snapshot()
	snap[0].Path[0].X = 100
	snap[0].Color = "blue"

	again := h.Snapshot()
	if again[0].Path[0].X != 0 || again[0].Color != "red" {
		t.Fatalf("stored operation was mutated through snapshot: %+v", again[0])
	}
}

func TestHistoryAppendStampsClock(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	h := NewHistory(3, WithClock(func() time.Time { return fixed }))

	stored, err := h.Append(model.NewDot(1, 1, "red"))
	if err != nil {
		t.Fatal(err)
	}
	if stored.AppliedAt != fixed.UnixMilli() {
		t.Fatalf("AppliedAt = %d, want %d", stored.AppliedAt, fixed.UnixMilli())
	}
}

func TestHistoryDefaultCap(t *testing.T) {
	if got := NewHistory(0).Cap(); got != model.DefaultHistoryCap {
		t.Fatalf("Cap() = %d, want %d", got, model.DefaultHistoryCap)
	}
}

func TestHistoryConcurrentAppendsKeepTotalOrder(t *testing.T) {
	h := NewHistory(1000)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if _, err := h.Append(model.NewDot(1, 1, "red")); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	snap := h.Snapshot()
	if len(snap) != 400 {
		t.Fatalf("len = %d, want 400", len(snap))
	}
	for i := 1; i < len(snap); i++ {
		if snap[i].Sequence != snap[i-1].Sequence+1 {
			t.Fatalf("sequence gap at %d: %d after %d", i, snap[i].Sequence, snap[i-1].Sequence)
		}
	}
}

func TestHistoryRejectsLineWithPointFields(t *testing.T) {
	h := NewHistory(10)

	op := model.NewLine("red", model.Point{X: 0, Y: 0}, model.Point{X: 1, Y: 1})
	x, y := 3.0, 4.0
	op.X, op.Y = &x, &y

	if _, err := h.Append(op); !errors.Is(err, model.ErrInvalidOperation) {
		t.Fatalf("Append(line with x/y) = %v, want ErrInvalidOperation", err)
	}
	if h.Len() != 0 || h.LastSequence() != 0 {
		t.Fatalf("history changed: len=%d last=%d", h.Len(), h.LastSequence())
	}
}
