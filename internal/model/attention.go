package model

import (
	"math"
	"math/rand"
	"sync"

	"github.com/23skdu/longbow-herald/internal/metrics"
	"github.com/23skdu/longbow-herald/internal/tensor"
)

// ScaledDotProduct computes attention over q (..., seqQ, dK), k (..., seqK, dK)
// and v (..., seqK, dV), returning (..., seqQ, dV). It owns no parameters.
//
// Raw scores are q·kᵀ scaled by 1/sqrt(dK). With causal set, scores at key
// position j > query position i are forced to -inf before normalization, so
// future positions receive exactly zero weight. The mask applies to the raw
// scores, never to the normalized weights.
func ScaledDotProduct(q, k, v *tensor.Tensor, causal bool) (*tensor.Tensor, error) {
	if len(q.Shape) < 2 || len(k.Shape) < 2 || len(v.Shape) < 2 {
		return nil, tensor.Errorf("attention", "operands must be at least 2D, got %v/%v/%v",
			q.Shape, k.Shape, v.Shape)
	}
	dK := q.Shape[len(q.Shape)-1]
	if k.Shape[len(k.Shape)-1] != dK {
		return nil, tensor.Errorf("attention", "query head width %d != key head width %d",
			dK, k.Shape[len(k.Shape)-1])
	}
	seqK := k.Shape[len(k.Shape)-2]
	if v.Shape[len(v.Shape)-2] != seqK {
		return nil, tensor.Errorf("attention", "key sequence length %d != value sequence length %d",
			seqK, v.Shape[len(v.Shape)-2])
	}

	scores, err := tensor.MatMulTransB(q, k)
	if err != nil {
		return nil, err
	}
	scale := float32(1 / math.Sqrt(float64(dK)))
	for i := range scores.Data {
		scores.Data[i] *= scale
	}

	if causal {
		maskFuture(scores)
	}

	weights := tensor.Softmax(scores)
	auditRows(weights)

	return tensor.MatMul(weights, v)
}

// maskFuture sets score (i, j) to -inf for every j > i in each trailing
// (seqQ, seqK) slice.
func maskFuture(scores *tensor.Tensor) {
	negInf := float32(math.Inf(-1))
	seqQ := scores.Shape[len(scores.Shape)-2]
	seqK := scores.Shape[len(scores.Shape)-1]
	slab := seqQ * seqK
	for base := 0; base < len(scores.Data); base += slab {
		for i := 0; i < seqQ; i++ {
			row := scores.Data[base+i*seqK : base+(i+1)*seqK]
			for j := i + 1; j < seqK; j++ {
				row[j] = negInf
			}
		}
	}
}

// auditRows counts weight rows whose sum drifted from 1.0.
func auditRows(weights *tensor.Tensor) {
	rowLen := weights.Shape[len(weights.Shape)-1]
	drifted := 0
	for base := 0; base < len(weights.Data); base += rowLen {
		var sum float32
		for _, w := range weights.Data[base : base+rowLen] {
			sum += w
		}
		if math.Abs(float64(sum-1)) > 1e-4 {
			drifted++
		}
	}
	metrics.RecordAttentionRowDrift(drifted)
}

// Head is one attention head with its own query/key/value projections, each
// shaped (DModel, HeadDim).
type Head struct {
	WQuery *tensor.Tensor
	WKey   *tensor.Tensor
	WValue *tensor.Tensor
	Causal bool
}

// NewHead builds a head projecting dModel-wide inputs into headDim-wide
// query/key/value spaces.
func NewHead(rng *rand.Rand, dModel, headDim int, causal bool) *Head {
	return &Head{
		WQuery: newWeight(rng, dModel, headDim),
		WKey:   newWeight(rng, dModel, headDim),
		WValue: newWeight(rng, dModel, headDim),
		Causal: causal,
	}
}

// Forward projects x into query space and memory into key/value space, then
// delegates to ScaledDotProduct. A nil memory means self-attention: keys and
// values come from x itself. One code path serves both.
//
// x: (batch, seq, DModel); memory: (batch, seqMem, DModel) or nil.
// Output: (batch, seq, HeadDim).
func (h *Head) Forward(x, memory *tensor.Tensor) (*tensor.Tensor, error) {
	q, err := tensor.MatMul(x, h.WQuery)
	if err != nil {
		return nil, err
	}
	src := memory
	if src == nil {
		src = x
	}
	k, err := tensor.MatMul(src, h.WKey)
	if err != nil {
		return nil, err
	}
	v, err := tensor.MatMul(src, h.WValue)
	if err != nil {
		return nil, err
	}
	return ScaledDotProduct(q, k, v, h.Causal)
}

// MultiHeadAttention runs h independent heads in parallel, concatenates their
// outputs along the feature axis and projects back to DModel with WOutput.
// Heads share no parameters.
type MultiHeadAttention struct {
	Heads   []*Head
	WOutput *tensor.Tensor // (Heads*HeadDim, DModel)
}

// NewMultiHeadAttention builds heads attention heads over a dModel-wide
// residual stream. dModel must divide evenly by heads so the concatenated
// head outputs line up with WOutput's input width.
func NewMultiHeadAttention(rng *rand.Rand, dModel, heads int, causal bool) (*MultiHeadAttention, error) {
	if heads <= 0 {
		return nil, configErrf("heads", "%d (must be positive)", heads)
	}
	if dModel%heads != 0 {
		return nil, configErrf("d_model", "%d not divisible by heads %d", dModel, heads)
	}
	headDim := dModel / heads

	hs := make([]*Head, heads)
	for i := range hs {
		hs[i] = NewHead(rng, dModel, headDim, causal)
	}
	return &MultiHeadAttention{
		Heads:   hs,
		WOutput: newWeight(rng, heads*headDim, dModel),
	}, nil
}

// Forward computes all heads over the same (x, memory) pair. Heads are
// independent, so they fan out across goroutines; each writes only its own
// slot, and per-head reduction order is untouched, so output is
// deterministic under any scheduling.
//
// Output shape matches x: (batch, seq, DModel).
func (m *MultiHeadAttention) Forward(x, memory *tensor.Tensor) (*tensor.Tensor, error) {
	outs := make([]*tensor.Tensor, len(m.Heads))
	errs := make([]error, len(m.Heads))

	var wg sync.WaitGroup
	wg.Add(len(m.Heads))
	for i, h := range m.Heads {
		go func(i int, h *Head) {
			defer wg.Done()
			outs[i], errs[i] = h.Forward(x, memory)
		}(i, h)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	cat, err := tensor.Concat(outs, len(x.Shape)-1)
	if err != nil {
		return nil, err
	}
	return tensor.MatMul(cat, m.WOutput)
}
