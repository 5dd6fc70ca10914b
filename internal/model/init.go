package model

import (
	"math"
	"math/rand"

	"github.com/23skdu/longbow-herald/internal/tensor"
)

// newWeight allocates a (rows, cols) matrix with scaled uniform values.
// The bound sqrt(6/(rows+cols)) keeps activations in range at any width.
func newWeight(rng *rand.Rand, rows, cols int) *tensor.Tensor {
	w := tensor.New(rows, cols)
	limit := float32(math.Sqrt(6 / float64(rows+cols)))
	for i := range w.Data {
		w.Data[i] = (rng.Float32()*2 - 1) * limit
	}
	return w
}

// newBias allocates a zero bias vector of the given width.
func newBias(n int) *tensor.Tensor {
	return tensor.New(n)
}

// newOnes allocates a vector initialized to one (layer-norm scale).
func newOnes(n int) *tensor.Tensor {
	t := tensor.New(n)
	for i := range t.Data {
		t.Data[i] = 1
	}
	return t
}
