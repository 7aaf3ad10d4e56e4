package seq

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// The parallel variants produce the same output as their serial
// counterparts. Lengths are validated and resolved into per-segment spans
// up front; each worker then owns a contiguous run of segments whose write
// regions are disjoint by construction, so no synchronization is needed
// beyond the final wait. GatherPaddingParallel gives each worker its own
// accumulators and merges them in worker order, keeping float results
// deterministic for a fixed worker count.

// segmentSpan locates one segment's read and write regions, in elements.
type segmentSpan struct {
	rows   int // payload rows on the input side
	inOff  int
	outOff int
}

// resolveSpans lays segments out across the input and output buffers.
// grow is the signed per-segment row delta: +pad for insertion, -pad for
// removal.
func resolveSpans(lengths []int64, block, grow int) []segmentSpan {
	spans := make([]segmentSpan, len(lengths))
	inOff, outOff := 0, 0
	for i, length := range lengths {
		spans[i] = segmentSpan{rows: int(length), inOff: inOff, outOff: outOff}
		inOff += int(length) * block
		outOff += (int(length) + grow) * block
	}
	return spans
}

// workerRanges splits n segments into at most workers contiguous chunks.
func workerRanges(n, workers int) [][2]int {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}
	ranges := make([][2]int, 0, workers)
	for i := 0; i < workers; i++ {
		lo := i * n / workers
		hi := (i + 1) * n / workers
		if lo < hi {
			ranges = append(ranges, [2]int{lo, hi})
		}
	}
	return ranges
}

// AddPaddingParallel is AddPadding with the segment loop fanned out across
// workers goroutines (GOMAXPROCS when workers <= 0).
func AddPaddingParallel[T Element](in *Tensor[T], lengths []int64, startPad, endPad *Tensor[T], widths PadWidths, workers int) (*Tensor[T], []int64, error) {
	w, err := widths.Normalize()
	if err != nil {
		return nil, nil, err
	}
	layout, err := ResolveLayout(in, lengths)
	if err != nil {
		return nil, nil, err
	}
	if endPad == nil {
		endPad = startPad
	}
	if err := checkTemplate(startPad, layout.Block, "start"); err != nil {
		return nil, nil, err
	}
	if err := checkTemplate(endPad, layout.Block, "end"); err != nil {
		return nil, nil, err
	}
	if w.Total() == 0 {
		return in.Clone(), append([]int64(nil), lengths...), nil
	}
	if err := ValidateSegments(layout.Lengths, int64(layout.Outer), 0); err != nil {
		return nil, nil, err
	}

	outShape := append([]int(nil), in.Shape...)
	outShape[0] += w.Total() * len(layout.Lengths)
	out := NewTensor[T](outShape...)

	block := layout.Block
	spans := resolveSpans(layout.Lengths, block, w.Total())
	var g errgroup.Group
	for _, r := range workerRanges(len(spans), workers) {
		g.Go(func() error {
			for _, span := range spans[r[0]:r[1]] {
				off := fillTemplateRows(out.Data, span.outOff, startPad, w.Start, block)
				n := span.rows * block
				copy(out.Data[off:off+n], in.Data[span.inOff:span.inOff+n])
				fillTemplateRows(out.Data, off+n, endPad, w.End, block)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if lengths == nil {
		return out, nil, nil
	}
	outLengths := make([]int64, len(lengths))
	for i, length := range lengths {
		outLengths[i] = length + int64(w.Total())
	}
	return out, outLengths, nil
}

// RemovePaddingParallel is RemovePadding with the segment loop fanned out
// across workers goroutines.
func RemovePaddingParallel[T Element](in *Tensor[T], lengths []int64, widths PadWidths, workers int) (*Tensor[T], []int64, error) {
	w, err := widths.Normalize()
	if err != nil {
		return nil, nil, err
	}
	layout, err := ResolveLayout(in, lengths)
	if err != nil {
		return nil, nil, err
	}
	if w.Total() == 0 {
		return in.Clone(), append([]int64(nil), lengths...), nil
	}
	if err := ValidateSegments(layout.Lengths, int64(layout.Outer), int64(w.Total())); err != nil {
		return nil, nil, err
	}

	outShape := append([]int(nil), in.Shape...)
	outShape[0] -= w.Total() * len(layout.Lengths)
	out := NewTensor[T](outShape...)

	block := layout.Block
	spans := resolveSpans(layout.Lengths, block, -w.Total())
	var g errgroup.Group
	for _, r := range workerRanges(len(spans), workers) {
		g.Go(func() error {
			for _, span := range spans[r[0]:r[1]] {
				payload := (span.rows - w.Total()) * block
				from := span.inOff + w.Start*block
				copy(out.Data[span.outOff:span.outOff+payload], in.Data[from:from+payload])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if lengths == nil {
		return out, nil, nil
	}
	outLengths := make([]int64, len(lengths))
	for i, length := range lengths {
		outLengths[i] = length - int64(w.Total())
	}
	return out, outLengths, nil
}

// GatherPaddingParallel is GatherPadding with per-worker partial
// accumulators, merged in worker order after the wait.
func GatherPaddingParallel[T Element](in *Tensor[T], lengths []int64, widths PadWidths, separateEnd bool, workers int) (*Tensor[T], *Tensor[T], error) {
	w, err := widths.Normalize()
	if err != nil {
		return nil, nil, err
	}
	layout, err := ResolveLayout(in, lengths)
	if err != nil {
		return nil, nil, err
	}

	start := NewTensor[T](in.Shape[1:]...)
	var end *Tensor[T]
	if separateEnd {
		end = NewTensor[T](in.Shape[1:]...)
	}
	if w.Total() == 0 {
		return start, end, nil
	}
	if err := ValidateSegments(layout.Lengths, int64(layout.Outer), int64(w.Total())); err != nil {
		return nil, nil, err
	}

	block := layout.Block
	spans := resolveSpans(layout.Lengths, block, 0)
	ranges := workerRanges(len(spans), workers)
	partialStart := make([][]T, len(ranges))
	partialEnd := make([][]T, len(ranges))

	var g errgroup.Group
	for i, r := range ranges {
		g.Go(func() error {
			pStart := make([]T, block)
			pEnd := pStart
			if separateEnd {
				pEnd = make([]T, block)
			}
			for _, span := range spans[r[0]:r[1]] {
				off := span.inOff
				for j := 0; j < w.Start; j++ {
					accumulateRow(pStart, in.Data[off:off+block])
					off += block
				}
				off += (span.rows - w.Total()) * block
				for j := 0; j < w.End; j++ {
					accumulateRow(pEnd, in.Data[off:off+block])
					off += block
				}
			}
			partialStart[i] = pStart
			if separateEnd {
				partialEnd[i] = pEnd
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	for _, p := range partialStart {
		accumulateRow(start.Data, p)
	}
	if separateEnd {
		for _, p := range partialEnd {
			accumulateRow(end.Data, p)
		}
	}
	return start, end, nil
}
