// Package seq implements padding operations over segmented, row-major
// buffers. A buffer holds a batch of variable-length sequences concatenated
// end-to-end along its leading dimension; a lengths vector partitions the
// rows into segments. The package provides:
//   - AddPadding: insert fixed-width padding rows at each segment boundary,
//     filled from a template or with zeros
//   - RemovePadding: the exact inverse, stripping the boundary rows
//   - GatherPadding: sum the padding rows back into a single block-sized
//     vector, the gradient of AddPadding with respect to its templates
//
// Example:
//
//	data := seq.NewTensorFromSlice([]float32{1, 2, 3, 4, 5, 6}, 6)
//	padded, lens, _ := seq.AddPadding(data, []int64{3, 3}, nil, nil, seq.PadWidths{Start: 1, End: 0})
//	// padded.Data == [0 1 2 3 0 4 5 6], lens == [4 4]
//	restored, _, _ := seq.RemovePadding(padded, lens, seq.PadWidths{Start: 1, End: 0})
//	// restored.Data == [1 2 3 4 5 6]
package seq

// Element is the set of element kinds the engine supports. Every kind is
// fixed-width, copyable, and zero-constructible, so one generic kernel
// covers all of them.
type Element interface {
	bool | int32 | int64 | float32 | float64
}

// Tensor is a contiguous row-major buffer. The leading dimension counts
// rows; the product of the remaining dimensions is the block size (number
// of elements per row).
type Tensor[T Element] struct {
	Data  []T
	Shape []int
}

// NewTensor creates a zero-filled tensor with the given shape.
func NewTensor[T Element](shape ...int) *Tensor[T] {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if n < 0 {
		n = 0
	}
	return &Tensor[T]{
		Data:  make([]T, n),
		Shape: append([]int(nil), shape...),
	}
}

// NewTensorFromSlice wraps an existing slice in a tensor with the given
// shape. The slice is used directly, not copied.
func NewTensorFromSlice[T Element](data []T, shape ...int) *Tensor[T] {
	return &Tensor[T]{
		Data:  data,
		Shape: append([]int(nil), shape...),
	}
}

// Size returns the total number of elements.
func (t *Tensor[T]) Size() int {
	return len(t.Data)
}

// Outer returns the leading-dimension extent (the row count). A tensor
// with no dimensions has a single implicit row.
func (t *Tensor[T]) Outer() int {
	if len(t.Shape) == 0 {
		return 1
	}
	return t.Shape[0]
}

// BlockSize returns the number of elements per row: the product of all
// dimensions except the leading one, or 1 for a 1-D tensor.
func (t *Tensor[T]) BlockSize() int {
	block := 1
	for _, d := range t.Shape[1:] {
		block *= d
	}
	return block
}

// Clone returns a deep copy.
func (t *Tensor[T]) Clone() *Tensor[T] {
	return &Tensor[T]{
		Data:  append([]T(nil), t.Data...),
		Shape: append([]int(nil), t.Shape...),
	}
}

// Reshape returns a view of the same data under a new shape, or nil if the
// element counts do not match.
func (t *Tensor[T]) Reshape(shape ...int) *Tensor[T] {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if n != len(t.Data) {
		return nil
	}
	return &Tensor[T]{
		Data:  t.Data,
		Shape: append([]int(nil), shape...),
	}
}
