package seq

import "fmt"

// Layout describes how a buffer divides into rows and segments.
type Layout struct {
	Outer    int     // leading-dimension extent (row count)
	Block    int     // elements per row
	Lengths  []int64 // effective segment lengths
	Implicit bool    // true when no lengths were supplied
}

// ResolveLayout derives the row count, block size, and effective segment
// lengths for a buffer. A nil lengths vector means one implicit segment
// spanning every row. Supplied lengths are taken as-is here; consistency
// against the row count is checked by ValidateSegments during the pass
// that uses the offsets, so the buffer is never walked twice.
func ResolveLayout[T Element](t *Tensor[T], lengths []int64) (Layout, error) {
	if t == nil || len(t.Shape) < 1 {
		return Layout{}, fmt.Errorf("seqpad: buffer needs at least one dimension: %w", ErrShapeMismatch)
	}
	layout := Layout{
		Outer:   t.Shape[0],
		Block:   t.BlockSize(),
		Lengths: lengths,
	}
	if lengths == nil {
		layout.Lengths = []int64{int64(layout.Outer)}
		layout.Implicit = true
	}
	return layout, nil
}

// ValidateSegments enforces the length invariants: every length is
// non-negative and at least minLen (the combined padding width for the
// remove and gather passes), and the running total never exceeds rows.
//
// The final total is deliberately NOT required to equal rows: lengths that
// sum to less leave trailing rows unaccounted for and are accepted. Callers
// must not rely on under-sum detection.
func ValidateSegments(lengths []int64, rows int64, minLen int64) error {
	var total int64
	for i, length := range lengths {
		if length < 0 {
			return fmt.Errorf("seqpad: segment %d has negative length %d: %w", i, length, ErrLengthOverrun)
		}
		if length < minLen {
			return fmt.Errorf("seqpad: segment %d length %d is shorter than the combined padding width %d: %w",
				i, length, minLen, ErrLengthOverrun)
		}
		total += length
		if total > rows {
			return fmt.Errorf("seqpad: segment %d: running length total %d exceeds %d rows: %w",
				i, total, rows, ErrLengthOverrun)
		}
	}
	return nil
}
