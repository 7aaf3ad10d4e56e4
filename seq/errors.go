package seq

import "errors"

var (
	// ErrShapeMismatch indicates a padding template whose element count
	// does not equal the data buffer's block size.
	ErrShapeMismatch = errors.New("seqpad: shape mismatch")

	// ErrLengthOverrun indicates segment lengths that are inconsistent
	// with the buffer: a running total exceeding the row count, a negative
	// length, or a segment shorter than the combined padding width.
	ErrLengthOverrun = errors.New("seqpad: invalid segment lengths")

	// ErrNegativeWidth indicates a padding width that is still negative
	// after defaulting.
	ErrNegativeWidth = errors.New("seqpad: negative padding width")
)
