package seq

import (
	"testing"
)

// TestTensorCreation verifies basic tensor construction
func TestTensorCreation(t *testing.T) {
	tensor := NewTensor[float32](3, 4)
	if tensor.Size() != 12 {
		t.Errorf("Expected size 12, got %d", tensor.Size())
	}
	if len(tensor.Shape) != 2 || tensor.Shape[0] != 3 || tensor.Shape[1] != 4 {
		t.Errorf("Expected shape [3, 4], got %v", tensor.Shape)
	}
	if tensor.Outer() != 3 {
		t.Errorf("Expected outer 3, got %d", tensor.Outer())
	}
	if tensor.BlockSize() != 4 {
		t.Errorf("Expected block size 4, got %d", tensor.BlockSize())
	}

	data := []float64{1, 2, 3, 4, 5, 6}
	tensor2 := NewTensorFromSlice(data, 2, 3)
	if tensor2.Size() != 6 {
		t.Errorf("Expected size 6, got %d", tensor2.Size())
	}
	if tensor2.Data[0] != 1 || tensor2.Data[5] != 6 {
		t.Errorf("Data not correctly initialized")
	}
}

// TestTensorBlockSize verifies block size for 1-D and N-D shapes
func TestTensorBlockSize(t *testing.T) {
	if got := NewTensor[int32](7).BlockSize(); got != 1 {
		t.Errorf("1-D block size: expected 1, got %d", got)
	}
	if got := NewTensor[int32](5, 2, 3).BlockSize(); got != 6 {
		t.Errorf("3-D block size: expected 6, got %d", got)
	}
}

// TestTensorClone verifies cloning is deep
func TestTensorClone(t *testing.T) {
	original := NewTensorFromSlice([]int32{1, 2, 3, 4}, 4)
	clone := original.Clone()

	original.Data[0] = 100

	if clone.Data[0] != 1 {
		t.Errorf("Clone was modified when original changed")
	}
}

// TestTensorReshape verifies reshaping
func TestTensorReshape(t *testing.T) {
	tensor := NewTensorFromSlice([]float32{1, 2, 3, 4, 5, 6}, 6)
	reshaped := tensor.Reshape(2, 3)

	if reshaped == nil {
		t.Fatal("Reshape returned nil")
	}
	if len(reshaped.Shape) != 2 || reshaped.Shape[0] != 2 || reshaped.Shape[1] != 3 {
		t.Errorf("Expected shape [2, 3], got %v", reshaped.Shape)
	}

	invalid := tensor.Reshape(2, 2)
	if invalid != nil {
		t.Error("Invalid reshape should return nil")
	}
}
