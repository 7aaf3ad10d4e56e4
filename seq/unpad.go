package seq

// RemovePadding is the exact inverse of AddPadding for the same widths:
// it strips widths.Start rows from the front and widths.End rows from the
// back of every segment. lengths must be the post-insertion (padded)
// lengths; when non-nil, the second return value holds the reduced lengths
// (each entry shrunk by widths.Total()). Payload rows are copied verbatim,
// so the round trip through AddPadding recovers the original buffer
// bit-for-bit regardless of template content.
func RemovePadding[T Element](in *Tensor[T], lengths []int64, widths PadWidths) (*Tensor[T], []int64, error) {
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
	inOff, outOff := 0, 0
	for _, length := range layout.Lengths {
		payload := (int(length) - w.Total()) * block
		from := inOff + w.Start*block
		copy(out.Data[outOff:outOff+payload], in.Data[from:from+payload])
		inOff += int(length) * block
		outOff += payload
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
