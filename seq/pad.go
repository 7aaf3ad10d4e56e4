package seq

import "fmt"

// PadWidths configures how many rows are inserted or removed at each
// segment boundary. A negative End means "same as Start", mirroring the
// end_padding_width=-1 convention of the operator arguments.
type PadWidths struct {
	Start int
	End   int
}

// DefaultPadWidths returns the operator defaults: one row of padding on
// each side (End defaults to Start).
func DefaultPadWidths() PadWidths {
	return PadWidths{Start: 1, End: -1}
}

// Normalize applies the End-defaults-to-Start rule and rejects negative
// widths. All operations normalize their widths before touching data.
func (w PadWidths) Normalize() (PadWidths, error) {
	if w.Start < 0 {
		return PadWidths{}, fmt.Errorf("seqpad: start width %d: %w", w.Start, ErrNegativeWidth)
	}
	if w.End < 0 {
		w.End = w.Start
	}
	return w, nil
}

// Total returns the number of rows added or removed per segment.
func (w PadWidths) Total() int {
	return w.Start + w.End
}

// AddPadding expands each segment of in by widths.Start rows at its front
// and widths.End rows at its back. New rows are copies of the matching
// template, or zero-filled when the template is nil; a lone start template
// is reused for the end. The output has
// rows(in) + widths.Total()*numSegments rows.
//
// When lengths is non-nil the second return value holds the post-insertion
// segment lengths (each entry grown by widths.Total()); otherwise it is nil.
// Zero widths degenerate to an exact copy of the input and lengths.
func AddPadding[T Element](in *Tensor[T], lengths []int64, startPad, endPad *Tensor[T], widths PadWidths) (*Tensor[T], []int64, error) {
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
	inOff, outOff := 0, 0
	for _, length := range layout.Lengths {
		outOff = fillTemplateRows(out.Data, outOff, startPad, w.Start, block)
		n := int(length) * block
		copy(out.Data[outOff:outOff+n], in.Data[inOff:inOff+n])
		inOff += n
		outOff += n
		outOff = fillTemplateRows(out.Data, outOff, endPad, w.End, block)
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

// fillTemplateRows writes count copies of the template starting at off and
// returns the advanced offset. A nil template leaves the freshly allocated
// rows at their zero values.
func fillTemplateRows[T Element](dst []T, off int, tmpl *Tensor[T], count, block int) int {
	if tmpl == nil {
		return off + count*block
	}
	for j := 0; j < count; j++ {
		copy(dst[off:off+block], tmpl.Data)
		off += block
	}
	return off
}

func checkTemplate[T Element](tmpl *Tensor[T], block int, side string) error {
	if tmpl == nil {
		return nil
	}
	if tmpl.Size() != block {
		return fmt.Errorf("seqpad: %s template has %d elements, want block size %d: %w",
			side, tmpl.Size(), block, ErrShapeMismatch)
	}
	return nil
}
