package model

import (
	"math"

	"github.com/23skdu/longbow-herald/internal/tensor"
)

// LayerNorm rescales each position's feature vector to zero mean and unit
// variance over the feature axis, then applies a learned per-feature scale
// and shift. Each batch element and sequence position normalizes
// independently.
type LayerNorm struct {
	Scale *tensor.Tensor // (dim,)
	Shift *tensor.Tensor // (dim,)
	Eps   float32
}

func NewLayerNorm(dim int, eps float32) *LayerNorm {
	return &LayerNorm{
		Scale: newOnes(dim),
		Shift: newBias(dim),
		Eps:   eps,
	}
}

// Forward normalizes the last axis of x, which must match the learned width.
func (ln *LayerNorm) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	dim := x.Shape[len(x.Shape)-1]
	if dim != len(ln.Scale.Data) {
		return nil, tensor.Errorf("layernorm", "feature width %d != learned width %d",
			dim, len(ln.Scale.Data))
	}

	out := tensor.New(x.Shape...)
	rows := len(x.Data) / dim
	for r := 0; r < rows; r++ {
		row := x.Data[r*dim : (r+1)*dim]
		dst := out.Data[r*dim : (r+1)*dim]

		var mean float32
		for _, v := range row {
			mean += v
		}
		mean /= float32(dim)

		var variance float32
		for _, v := range row {
			d := v - mean
			variance += d * d
		}
		variance /= float32(dim)

		invStd := float32(1 / math.Sqrt(float64(variance+ln.Eps)))
		for i, v := range row {
			dst[i] = (v-mean)*invStd*ln.Scale.Data[i] + ln.Shift.Data[i]
		}
	}
	return out, nil
}
