package seq

import (
	"errors"
	"testing"
)

// TestResolveLayoutImplicit verifies the single-segment default
func TestResolveLayoutImplicit(t *testing.T) {
	buf := NewTensor[float32](6, 2)
	layout, err := ResolveLayout(buf, nil)
	if err != nil {
		t.Fatalf("ResolveLayout failed: %v", err)
	}
	if layout.Outer != 6 || layout.Block != 2 {
		t.Errorf("Expected outer 6 block 2, got %d %d", layout.Outer, layout.Block)
	}
	if !layout.Implicit || len(layout.Lengths) != 1 || layout.Lengths[0] != 6 {
		t.Errorf("Expected implicit lengths [6], got %v", layout.Lengths)
	}
}

// TestResolveLayoutExplicit verifies supplied lengths pass through as-is
func TestResolveLayoutExplicit(t *testing.T) {
	buf := NewTensor[int64](6)
	layout, err := ResolveLayout(buf, []int64{2, 4})
	if err != nil {
		t.Fatalf("ResolveLayout failed: %v", err)
	}
	if layout.Implicit {
		t.Error("Explicit lengths flagged implicit")
	}
	if len(layout.Lengths) != 2 || layout.Lengths[0] != 2 || layout.Lengths[1] != 4 {
		t.Errorf("Expected lengths [2, 4], got %v", layout.Lengths)
	}
}

// TestResolveLayoutNoDims rejects dimensionless buffers
func TestResolveLayoutNoDims(t *testing.T) {
	buf := &Tensor[float32]{Data: []float32{1}}
	if _, err := ResolveLayout(buf, nil); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}
}

// TestValidateSegments covers the running-total invariant
func TestValidateSegments(t *testing.T) {
	cases := []struct {
		name    string
		lengths []int64
		rows    int64
		minLen  int64
		wantErr bool
	}{
		{"exact sum", []int64{3, 3}, 6, 0, false},
		{"under-sum accepted", []int64{2, 2}, 6, 0, false},
		{"overrun", []int64{4, 3}, 6, 0, true},
		{"overrun at first segment", []int64{7}, 6, 0, true},
		{"negative length", []int64{-1, 7}, 6, 0, true},
		{"below pad width", []int64{1, 5}, 6, 2, true},
		{"at pad width", []int64{2, 4}, 6, 2, false},
		{"empty lengths", []int64{}, 6, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSegments(tc.lengths, tc.rows, tc.minLen)
			if tc.wantErr && !errors.Is(err, ErrLengthOverrun) {
				t.Errorf("Expected ErrLengthOverrun, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}
