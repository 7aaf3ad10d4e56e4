package seq

// GatherPadding sums the padding rows of a previously padded buffer down
// to block-sized vectors. With separateEnd false it returns a single
// accumulator holding the sum of every start and end padding row, the
// convention when one shared template filled both sides. With separateEnd
// true the start and end rows accumulate into separate vectors.
//
// This is the gradient of AddPadding with respect to its padding
// templates: each template row was copied into every segment, so its
// gradient is the sum of the corresponding rows across segments. Zero
// widths are permitted and yield all-zero accumulators.
//
// Boolean buffers accumulate by logical OR, the saturating form of
// addition for that kind.
func GatherPadding[T Element](in *Tensor[T], lengths []int64, widths PadWidths, separateEnd bool) (*Tensor[T], *Tensor[T], error) {
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
	endDst := start
	if separateEnd {
		end = NewTensor[T](in.Shape[1:]...)
		endDst = end
	}

	if w.Total() == 0 {
		return start, end, nil
	}

	if err := ValidateSegments(layout.Lengths, int64(layout.Outer), int64(w.Total())); err != nil {
		return nil, nil, err
	}

	block := layout.Block
	off := 0
	for _, length := range layout.Lengths {
		for j := 0; j < w.Start; j++ {
			accumulateRow(start.Data, in.Data[off:off+block])
			off += block
		}
		off += (int(length) - w.Total()) * block
		for j := 0; j < w.End; j++ {
			accumulateRow(endDst.Data, in.Data[off:off+block])
			off += block
		}
	}
	return start, end, nil
}

// accumulateRow adds src element-wise into dst. The kinds are a closed
// set, so the dispatch below is exhaustive.
func accumulateRow[T Element](dst, src []T) {
	switch d := any(dst).(type) {
	case []bool:
		s := any(src).([]bool)
		for i := range d {
			d[i] = d[i] || s[i]
		}
	case []int32:
		s := any(src).([]int32)
		for i := range d {
			d[i] += s[i]
		}
	case []int64:
		s := any(src).([]int64)
		for i := range d {
			d[i] += s[i]
		}
	case []float32:
		s := any(src).([]float32)
		for i := range d {
			d[i] += s[i]
		}
	case []float64:
		s := any(src).([]float64)
		for i := range d {
			d[i] += s[i]
		}
	}
}
