package seq

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/floats"
)

func randomBatch(rng *rand.Rand, rows, block int) *Tensor[float32] {
	t := NewTensor[float32](rows, block)
	for i := range t.Data {
		t.Data[i] = rng.Float32()*2 - 1
	}
	return t
}

// TestAddPaddingParallelMatchesSerial fans the insertion out over several
// worker counts and expects byte-identical output
func TestAddPaddingParallelMatchesSerial(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	in := randomBatch(rng, 100, 4)
	lengths := []int64{10, 25, 1, 40, 24}
	widths := PadWidths{Start: 2, End: 1}
	tmpl := NewTensorFromSlice([]float32{9, 8, 7, 6}, 4)

	want, wantLens, err := AddPadding(in, lengths, tmpl, nil, widths)
	if err != nil {
		t.Fatalf("AddPadding failed: %v", err)
	}

	for _, workers := range []int{0, 1, 2, 3, 8, 100} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			got, gotLens, err := AddPaddingParallel(in, lengths, tmpl, nil, widths, workers)
			if err != nil {
				t.Fatalf("AddPaddingParallel failed: %v", err)
			}
			if diff := cmp.Diff(want.Data, got.Data); diff != "" {
				t.Errorf("Parallel output differs from serial (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(wantLens, gotLens); diff != "" {
				t.Errorf("Parallel lengths differ from serial (-want +got):\n%s", diff)
			}
		})
	}
}

// TestRemovePaddingParallelMatchesSerial checks removal the same way
func TestRemovePaddingParallelMatchesSerial(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	in := randomBatch(rng, 60, 3)
	lengths := []int64{12, 3, 20, 25}
	widths := PadWidths{Start: 1, End: 1}

	want, wantLens, err := RemovePadding(in, lengths, widths)
	if err != nil {
		t.Fatalf("RemovePadding failed: %v", err)
	}

	for _, workers := range []int{0, 1, 2, 7} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			got, gotLens, err := RemovePaddingParallel(in, lengths, widths, workers)
			if err != nil {
				t.Fatalf("RemovePaddingParallel failed: %v", err)
			}
			if diff := cmp.Diff(want.Data, got.Data); diff != "" {
				t.Errorf("Parallel output differs from serial (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(wantLens, gotLens); diff != "" {
				t.Errorf("Parallel lengths differ from serial (-want +got):\n%s", diff)
			}
		})
	}
}

// TestGatherPaddingParallelMatchesSerial tolerates float reassociation from
// the per-worker merge but requires the sums to agree closely
func TestGatherPaddingParallelMatchesSerial(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	in := randomBatch(rng, 80, 5)
	lengths := []int64{16, 16, 16, 16, 16}
	widths := PadWidths{Start: 2, End: 2}

	wantStart, wantEnd, err := GatherPadding(in, lengths, widths, true)
	if err != nil {
		t.Fatalf("GatherPadding failed: %v", err)
	}

	toF64 := func(s []float32) []float64 {
		out := make([]float64, len(s))
		for i, v := range s {
			out[i] = float64(v)
		}
		return out
	}

	for _, workers := range []int{0, 1, 2, 5} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			gotStart, gotEnd, err := GatherPaddingParallel(in, lengths, widths, true, workers)
			if err != nil {
				t.Fatalf("GatherPaddingParallel failed: %v", err)
			}
			if !floats.EqualApprox(toF64(wantStart.Data), toF64(gotStart.Data), 1e-4) {
				t.Errorf("Start sums diverge: want %v, got %v", wantStart.Data, gotStart.Data)
			}
			if !floats.EqualApprox(toF64(wantEnd.Data), toF64(gotEnd.Data), 1e-4) {
				t.Errorf("End sums diverge: want %v, got %v", wantEnd.Data, gotEnd.Data)
			}
		})
	}
}

// TestGatherPaddingParallelInt matches serial exactly for integer kinds
func TestGatherPaddingParallelInt(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	in := NewTensor[int64](40, 2)
	for i := range in.Data {
		in.Data[i] = rng.Int63n(1000) - 500
	}
	lengths := []int64{10, 10, 10, 10}
	widths := PadWidths{Start: 1, End: 1}

	wantStart, wantEnd, err := GatherPadding(in, lengths, widths, true)
	if err != nil {
		t.Fatalf("GatherPadding failed: %v", err)
	}
	gotStart, gotEnd, err := GatherPaddingParallel(in, lengths, widths, true, 3)
	if err != nil {
		t.Fatalf("GatherPaddingParallel failed: %v", err)
	}
	if diff := cmp.Diff(wantStart.Data, gotStart.Data); diff != "" {
		t.Errorf("Start sums differ (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantEnd.Data, gotEnd.Data); diff != "" {
		t.Errorf("End sums differ (-want +got):\n%s", diff)
	}
}

// TestParallelValidation checks the parallel variants reject bad inputs
// just like the serial ones
func TestParallelValidation(t *testing.T) {
	in := NewTensor[float32](6)
	if _, _, err := AddPaddingParallel(in, []int64{4, 4}, nil, nil, PadWidths{Start: 1, End: 1}, 2); err == nil {
		t.Error("Expected length overrun error from AddPaddingParallel")
	}
	if _, _, err := RemovePaddingParallel(in, []int64{1, 5}, PadWidths{Start: 1, End: 1}, 2); err == nil {
		t.Error("Expected short-segment error from RemovePaddingParallel")
	}
	if _, _, err := AddPaddingParallel(in, nil, nil, nil, PadWidths{Start: -1, End: 0}, 2); err == nil {
		t.Error("Expected negative width error from AddPaddingParallel")
	}
}

// TestWorkerRanges checks the contiguous split covers every segment once
func TestWorkerRanges(t *testing.T) {
	for _, tc := range []struct{ n, workers int }{
		{10, 3}, {3, 10}, {1, 1}, {100, 7}, {5, 0},
	} {
		covered := 0
		prev := 0
		for _, r := range workerRanges(tc.n, tc.workers) {
			if r[0] != prev {
				t.Errorf("n=%d workers=%d: gap before range %v", tc.n, tc.workers, r)
			}
			if r[1] <= r[0] {
				t.Errorf("n=%d workers=%d: empty range %v", tc.n, tc.workers, r)
			}
			covered += r[1] - r[0]
			prev = r[1]
		}
		if covered != tc.n {
			t.Errorf("n=%d workers=%d: covered %d segments", tc.n, tc.workers, covered)
		}
	}
}
