package model

import (
	"math"

	"github.com/23skdu/longbow-herald/internal/tensor"
)

// PositionalEncoding returns the (seqLen, dModel) sinusoidal position table:
// even feature index 2i holds sin(pos / 10000^(2i/dModel)) and the following
// odd index holds the matching cos. Deterministic and parameter-free; added
// to embeddings so position information survives permutation-invariant
// attention.
func PositionalEncoding(seqLen, dModel int) *tensor.Tensor {
	pe := tensor.New(seqLen, dModel)
	for pos := 0; pos < seqLen; pos++ {
		row := pe.Data[pos*dModel : (pos+1)*dModel]
		for i := 0; i < dModel; i += 2 {
			angle := float64(pos) / math.Pow(10000, float64(i)/float64(dModel))
			row[i] = float32(math.Sin(angle))
			if i+1 < dModel {
				row[i+1] = float32(math.Cos(angle))
			}
		}
	}
	return pe
}
