package seq

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/floats"
)

// TestGatherZeroTemplate runs the canonical scenario: the 8-row padded
// buffer with zero start padding sums to [0]
func TestGatherZeroTemplate(t *testing.T) {
	in := NewTensorFromSlice([]float32{0, 1, 2, 3, 0, 4, 5, 6}, 8)

	start, end, err := GatherPadding(in, []int64{4, 4}, PadWidths{Start: 1, End: 0}, false)
	if err != nil {
		t.Fatalf("GatherPadding failed: %v", err)
	}
	if end != nil {
		t.Error("Expected nil end accumulator for single-output gather")
	}
	if diff := cmp.Diff([]float32{0}, start.Data); diff != "" {
		t.Errorf("Gathered sum mismatch (-want +got):\n%s", diff)
	}
}

// TestGatherIsTemplateGradient checks the defining property: padding a
// zero payload with template T across k segments gathers back k*T
func TestGatherIsTemplateGradient(t *testing.T) {
	const k = 3
	payload := NewTensor[float32](6, 2) // zeros
	lengths := []int64{2, 1, 3}
	widths := PadWidths{Start: 2, End: 1}

	startTmpl := NewTensorFromSlice([]float32{1.5, -2}, 2)
	endTmpl := NewTensorFromSlice([]float32{4, 0.25}, 2)

	padded, paddedLens, err := AddPadding(payload, lengths, startTmpl, endTmpl, widths)
	if err != nil {
		t.Fatalf("AddPadding failed: %v", err)
	}

	start, end, err := GatherPadding(padded, paddedLens, widths, true)
	if err != nil {
		t.Fatalf("GatherPadding failed: %v", err)
	}
	// 2 start rows per segment, 1 end row per segment
	wantStart := []float32{k * 2 * 1.5, k * 2 * -2}
	wantEnd := []float32{k * 4, k * 0.25}
	if diff := cmp.Diff(wantStart, start.Data); diff != "" {
		t.Errorf("Start gradient mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantEnd, end.Data); diff != "" {
		t.Errorf("End gradient mismatch (-want +got):\n%s", diff)
	}

	// Single-output mode folds both sides together
	combined, _, err := GatherPadding(padded, paddedLens, widths, false)
	if err != nil {
		t.Fatalf("GatherPadding failed: %v", err)
	}
	wantCombined := []float32{wantStart[0] + wantEnd[0], wantStart[1] + wantEnd[1]}
	if diff := cmp.Diff(wantCombined, combined.Data); diff != "" {
		t.Errorf("Combined gradient mismatch (-want +got):\n%s", diff)
	}
}

// TestGatherAgainstReference sums the padding rows of a random padded
// buffer independently and compares
func TestGatherAgainstReference(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const rows, block = 14, 3
	lengths := []int64{5, 4, 5}
	widths := PadWidths{Start: 1, End: 1}

	in := NewTensor[float64](rows, block)
	for i := range in.Data {
		in.Data[i] = rng.NormFloat64()
	}

	refStart := make([]float64, block)
	refEnd := make([]float64, block)
	row := 0
	for _, length := range lengths {
		refRow := func(dst []float64, r int) {
			floats.Add(dst, in.Data[r*block:(r+1)*block])
		}
		refRow(refStart, row)
		refRow(refEnd, row+int(length)-1)
		row += int(length)
	}

	start, end, err := GatherPadding(in, lengths, widths, true)
	if err != nil {
		t.Fatalf("GatherPadding failed: %v", err)
	}
	if !floats.EqualApprox(refStart, start.Data, 1e-12) {
		t.Errorf("Start sum mismatch: want %v, got %v", refStart, start.Data)
	}
	if !floats.EqualApprox(refEnd, end.Data, 1e-12) {
		t.Errorf("End sum mismatch: want %v, got %v", refEnd, end.Data)
	}
}

// TestGatherZeroWidth yields all-zero accumulators of block size
func TestGatherZeroWidth(t *testing.T) {
	in := NewTensor[float32](4, 3)
	for i := range in.Data {
		in.Data[i] = 1
	}
	start, end, err := GatherPadding(in, nil, PadWidths{Start: 0, End: 0}, true)
	if err != nil {
		t.Fatalf("GatherPadding failed: %v", err)
	}
	if diff := cmp.Diff([]float32{0, 0, 0}, start.Data); diff != "" {
		t.Errorf("Expected zero start accumulator (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float32{0, 0, 0}, end.Data); diff != "" {
		t.Errorf("Expected zero end accumulator (-want +got):\n%s", diff)
	}
}

// TestGatherBool accumulates boolean padding by logical OR
func TestGatherBool(t *testing.T) {
	in := NewTensorFromSlice([]bool{
		false, true, // segment 1: start row, payload
		true, false, // segment 2: start row, payload
	}, 4)
	start, _, err := GatherPadding(in, []int64{2, 2}, PadWidths{Start: 1, End: 0}, false)
	if err != nil {
		t.Fatalf("GatherPadding failed: %v", err)
	}
	if diff := cmp.Diff([]bool{true}, start.Data); diff != "" {
		t.Errorf("Bool gather mismatch (-want +got):\n%s", diff)
	}
}

// TestGatherRejectsShortSegments requires every padded segment to hold at
// least the combined padding width
func TestGatherRejectsShortSegments(t *testing.T) {
	in := NewTensor[float32](4)
	if _, _, err := GatherPadding(in, []int64{1, 3}, PadWidths{Start: 1, End: 1}, false); err == nil {
		t.Error("Expected error for segment shorter than pad width")
	}
}
