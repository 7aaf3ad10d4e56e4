package gpu

import (
	"github.com/openfluke/seqpad/seq"
)

// Source markers in a pad row map. Non-negative entries are payload row
// indices into the input buffer.
const (
	rowStartPad int32 = -1
	rowEndPad   int32 = -2
	rowZero     int32 = -3 // output row with no source (under-sum lengths leave a zero tail)
)

// Row classes in a gather row mask.
const (
	maskPayload uint32 = 0
	maskStart   uint32 = 1
	maskEnd     uint32 = 2
)

func effectiveLengths(lengths []int64, rows int) []int64 {
	if lengths == nil {
		return []int64{int64(rows)}
	}
	return lengths
}

// padRowMap maps each output row of an insertion to its source: a payload
// row index, or one of the template markers. Widths must be normalized.
func padRowMap(lengths []int64, rows int, w seq.PadWidths) ([]int32, error) {
	lengths = effectiveLengths(lengths, rows)
	if err := seq.ValidateSegments(lengths, int64(rows), 0); err != nil {
		return nil, err
	}
	outRows := rows + w.Total()*len(lengths)
	rowMap := make([]int32, 0, outRows)
	src := int32(0)
	for _, length := range lengths {
		for j := 0; j < w.Start; j++ {
			rowMap = append(rowMap, rowStartPad)
		}
		for j := int64(0); j < length; j++ {
			rowMap = append(rowMap, src)
			src++
		}
		for j := 0; j < w.End; j++ {
			rowMap = append(rowMap, rowEndPad)
		}
	}
	for len(rowMap) < outRows {
		rowMap = append(rowMap, rowZero)
	}
	return rowMap, nil
}

// unpadRowMap maps each output row of a removal to its source row in the
// padded input. lengths are the padded lengths; widths must be normalized.
func unpadRowMap(lengths []int64, rows int, w seq.PadWidths) ([]int32, error) {
	lengths = effectiveLengths(lengths, rows)
	if err := seq.ValidateSegments(lengths, int64(rows), int64(w.Total())); err != nil {
		return nil, err
	}
	outRows := rows - w.Total()*len(lengths)
	rowMap := make([]int32, 0, outRows)
	src := int32(0)
	for _, length := range lengths {
		src += int32(w.Start)
		for j := int64(0); j < length-int64(w.Total()); j++ {
			rowMap = append(rowMap, src)
			src++
		}
		src += int32(w.End)
	}
	for len(rowMap) < outRows {
		rowMap = append(rowMap, rowZero)
	}
	return rowMap, nil
}

// gatherRowMask classifies each row of a padded input as payload, start
// padding, or end padding. lengths are the padded lengths; widths must be
// normalized.
func gatherRowMask(lengths []int64, rows int, w seq.PadWidths) ([]uint32, error) {
	lengths = effectiveLengths(lengths, rows)
	if err := seq.ValidateSegments(lengths, int64(rows), int64(w.Total())); err != nil {
		return nil, err
	}
	mask := make([]uint32, rows)
	row := 0
	for _, length := range lengths {
		for j := 0; j < w.Start; j++ {
			mask[row] = maskStart
			row++
		}
		row += int(length) - w.Total()
		for j := 0; j < w.End; j++ {
			mask[row] = maskEnd
			row++
		}
	}
	return mask, nil
}
