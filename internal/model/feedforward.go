package model

import (
	"math/rand"

	"github.com/23skdu/longbow-herald/internal/tensor"
)

// FeedForward is the position-wise two-layer transform: an affine projection
// DModel -> DFF, ReLU, then an affine projection DFF -> DModel. It is applied
// identically at every sequence position; only attention mixes positions.
type FeedForward struct {
	W1 *tensor.Tensor // (DModel, DFF)
	B1 *tensor.Tensor // (DFF,)
	W2 *tensor.Tensor // (DFF, DModel)
	B2 *tensor.Tensor // (DModel,)
}

func NewFeedForward(rng *rand.Rand, dModel, dFF int) *FeedForward {
	return &FeedForward{
		W1: newWeight(rng, dModel, dFF),
		B1: newBias(dFF),
		W2: newWeight(rng, dFF, dModel),
		B2: newBias(dModel),
	}
}

// Forward maps (batch, seq, DModel) to (batch, seq, DModel).
func (ff *FeedForward) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	hidden, err := tensor.MatMul(x, ff.W1)
	if err != nil {
		return nil, err
	}
	hidden, err = tensor.Add(hidden, ff.B1)
	if err != nil {
		return nil, err
	}
	out, err := tensor.MatMul(hidden.ReLU(), ff.W2)
	if err != nil {
		return nil, err
	}
	return tensor.Add(out, ff.B2)
}
