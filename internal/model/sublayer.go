package model

import "github.com/23skdu/longbow-herald/internal/tensor"

// Sublayer wraps an arbitrary transformation with a residual connection
// followed by layer normalization: Norm(x + fn(x)). The residual sum happens
// before normalization; the order is fixed.
type Sublayer struct {
	Norm *LayerNorm
}

func NewSublayer(dim int, eps float32) *Sublayer {
	return &Sublayer{Norm: NewLayerNorm(dim, eps)}
}

// Forward applies fn to x, adds the result back onto x and normalizes.
func (s *Sublayer) Forward(x *tensor.Tensor, fn func(*tensor.Tensor) (*tensor.Tensor, error)) (*tensor.Tensor, error) {
	y, err := fn(x)
	if err != nil {
		return nil, err
	}
	sum, err := tensor.Add(x, y)
	if err != nil {
		return nil, err
	}
	return s.Norm.Forward(sum)
}
