// Package tensor implements the dense float32 tensor the model core computes on.
//
// Storage is a flat row-major slice with precomputed strides. Binary operations
// validate shape compatibility (exact match or broadcast-compatible) before
// touching data and return *ShapeError on any mismatch.
package tensor

import (
	"fmt"
	"math"

	"github.com/23skdu/longbow-herald/internal/metrics"
)

// Tensor is a dense multi-dimensional float32 array.
type Tensor struct {
	Data    []float32
	Shape   []int
	Strides []int
}

func computeStrides(shape []int) []int {
	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}

func copyShape(shape []int) []int {
	out := make([]int, len(shape))
	copy(out, shape)
	return out
}

// New allocates a zero-filled tensor with the given shape.
func New(shape ...int) *Tensor {
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	metrics.RecordTensorAlloc(size * 4)
	return &Tensor{
		Data:    make([]float32, size),
		Shape:   copyShape(shape),
		Strides: computeStrides(shape),
	}
}

// FromSlice copies data into a new tensor of the given shape.
func FromSlice(data []float32, shape ...int) (*Tensor, error) {
	size := 1
	for _, dim := range shape {
		if dim <= 0 {
			return nil, Errorf("from_slice", "invalid dimension %d in shape %v", dim, shape)
		}
		size *= dim
	}
	if len(data) != size {
		return nil, Errorf("from_slice", "data length %d does not match shape %v (%d elements)",
			len(data), shape, size)
	}
	t := New(shape...)
	copy(t.Data, data)
	return t, nil
}

// Size returns the total number of elements.
func (t *Tensor) Size() int {
	size := 1
	for _, dim := range t.Shape {
		size *= dim
	}
	return size
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int { return len(t.Shape) }

func (t *Tensor) flatIndex(indices []int) int {
	if len(indices) != len(t.Shape) {
		panic(fmt.Sprintf("tensor: %d indices for rank-%d tensor", len(indices), len(t.Shape)))
	}
	idx := 0
	for i, v := range indices {
		if v < 0 || v >= t.Shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of bounds for axis %d (size %d)", v, i, t.Shape[i]))
		}
		idx += v * t.Strides[i]
	}
	return idx
}

// At returns the element at the given indices.
func (t *Tensor) At(indices ...int) float32 {
	return t.Data[t.flatIndex(indices)]
}

// SetAt stores a value at the given indices.
func (t *Tensor) SetAt(value float32, indices ...int) {
	t.Data[t.flatIndex(indices)] = value
}

// Reshape returns a view sharing the underlying data with a new shape.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	if size != len(t.Data) {
		return nil, Errorf("reshape", "cannot view %v (%d elements) as %v (%d elements)",
			t.Shape, len(t.Data), shape, size)
	}
	return &Tensor{
		Data:    t.Data,
		Shape:   copyShape(shape),
		Strides: computeStrides(shape),
	}, nil
}

// Transpose exchanges two axes, materializing the result.
func (t *Tensor) Transpose(axis1, axis2 int) (*Tensor, error) {
	rank := len(t.Shape)
	if axis1 < 0 || axis1 >= rank || axis2 < 0 || axis2 >= rank {
		return nil, Errorf("transpose", "axes (%d, %d) out of range for rank %d", axis1, axis2, rank)
	}
	if axis1 == axis2 {
		return t.Clone(), nil
	}

	newShape := copyShape(t.Shape)
	newShape[axis1], newShape[axis2] = newShape[axis2], newShape[axis1]
	out := New(newShape...)

	src := make([]int, rank)
	dst := make([]int, rank)
	var walk func(axis int)
	walk = func(axis int) {
		if axis == rank {
			copy(dst, src)
			dst[axis1], dst[axis2] = dst[axis2], dst[axis1]
			out.Data[out.flatIndex(dst)] = t.Data[t.flatIndex(src)]
			return
		}
		for i := 0; i < t.Shape[axis]; i++ {
			src[axis] = i
			walk(axis + 1)
		}
	}
	walk(0)
	return out, nil
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	out := New(t.Shape...)
	copy(out.Data, t.Data)
	return out
}

// ShapeEquals reports whether two tensors have identical shapes.
func (t *Tensor) ShapeEquals(other *Tensor) bool {
	if len(t.Shape) != len(other.Shape) {
		return false
	}
	for i := range t.Shape {
		if t.Shape[i] != other.Shape[i] {
			return false
		}
	}
	return true
}

// Equals reports whether two tensors match in shape and values within tolerance.
func (t *Tensor) Equals(other *Tensor, tolerance float32) bool {
	if !t.ShapeEquals(other) {
		return false
	}
	for i := range t.Data {
		if math.Abs(float64(t.Data[i]-other.Data[i])) > float64(tolerance) {
			return false
		}
	}
	return true
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v", t.Shape)
}
