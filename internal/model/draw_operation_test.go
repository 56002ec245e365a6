package model

import (
	"errors"
	"math"
	"testing"
)

func TestDrawOperationValidate(t *testing.T) {
	x, y := 1.0, 2.0
	nan := math.NaN()

	tests := []struct {
		name    string
		op      DrawOperation
		maxPath int
		wantErr bool
	}{
		{"dot ok", NewDot(1, 2, "red"), 0, false},
		{"dot missing color", NewDot(1, 2, ""), 0, true},
		{"dot missing y", DrawOperation{Kind: OpKindDot, Color: "red", X: &x}, 0, true},
		{"dot missing x", DrawOperation{Kind: OpKindDot, Color: "red", Y: &y}, 0, true},
		{"dot nan", DrawOperation{Kind: OpKindDot, Color: "red", X: &nan, Y: &y}, 0, true},
		{"dot with path", DrawOperation{Kind: OpKindDot, Color: "red", X: &x, Y: &y, Path: []Point{{1, 1}}}, 0, true},
		{"line ok", NewLine("red", Point{0, 0}, Point{1, 1}), 0, false},
		{"line single point", NewLine("red", Point{0, 0}), 0, true},
		{"line empty", NewLine("red"), 0, true},
		{"line over limit", NewLine("red", Point{0, 0}, Point{1, 1}, Point{2, 2}), 2, true},
		{"line at limit", NewLine("red", Point{0, 0}, Point{1, 1}), 2, false},
		{"line with x", DrawOperation{Kind: OpKindLine, Color: "red", X: &x, Path: []Point{{0, 0}, {1, 1}}}, 0, true},
		{"line with x and y", DrawOperation{Kind: OpKindLine, Color: "red", X: &x, Y: &y, Path: []Point{{0, 0}, {1, 1}}}, 0, true},
		{"line inf point", NewLine("red", Point{0, 0}, Point{math.Inf(1), 1}), 0, true},
		{"unknown kind", DrawOperation{Kind: "circle", Color: "red"}, 0, true},
		{"empty kind", DrawOperation{Color: "red"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op.Validate(tt.maxPath)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidOperation) {
					t.Fatalf("Validate() = %v, want ErrInvalidOperation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestDrawOperationCloneIsDeep(t *testing.T) {
	orig := NewLine("red", Point{0, 0}, Point{1, 1})
	dot := NewDot(3, 4, "blue")

	lineCopy := orig.Clone()
	lineCopy.Path[0].X = 99
	if orig.Path[0].X != 0 {
		t.Fatalf("mutating clone path changed original: %v", orig.Path)
	}

	dotCopy := dot.Clone()
	*dotCopy.X = 42
	if *dot.X != 3 {
		t.Fatalf("mutating clone x changed original: %v", *dot.X)
	}
}
