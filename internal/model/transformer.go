package model

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/23skdu/longbow-herald/internal/logger"
	"github.com/23skdu/longbow-herald/internal/metrics"
	"github.com/23skdu/longbow-herald/internal/tensor"
)

// Transformer is the full encoder-decoder model. One embedding matrix serves
// three roles: source embedding, target embedding and, transposed, the final
// projection back to vocabulary space (weight tying). It is owned here and
// never copied; the projection reads it at forward time, so external weight
// updates are visible everywhere at once.
type Transformer struct {
	Config    Config
	Embedding *tensor.Tensor // (VocabSize, DModel)
	Encoder   *Encoder
	Decoder   *Decoder
}

// New validates cfg and builds a model with deterministic seeded weights.
func New(cfg Config) (*Transformer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	emb := newWeight(rng, cfg.VocabSize, cfg.DModel)
	enc, err := NewEncoder(rng, cfg)
	if err != nil {
		return nil, err
	}
	dec, err := NewDecoder(rng, cfg)
	if err != nil {
		return nil, err
	}

	logger.Log.With("model").Info("transformer constructed",
		"vocab_size", cfg.VocabSize,
		"layers", cfg.Layers,
		"heads", cfg.Heads,
		"d_model", cfg.DModel,
		"d_ff", cfg.DFF,
	)
	return &Transformer{
		Config:    cfg,
		Embedding: emb,
		Encoder:   enc,
		Decoder:   dec,
	}, nil
}

// Forward runs full inference: source token indices (batch, seqSrc) and
// already right-shifted target indices (batch, seqTgt) in, a per-position
// probability distribution (batch, seqTgt, VocabSize) out. Each output row
// is a simplex: non-negative, summing to one.
func (m *Transformer) Forward(source, target [][]int) (*tensor.Tensor, error) {
	start := time.Now()

	src, err := m.embed(source)
	if err != nil {
		return nil, err
	}
	memory, err := m.Encoder.Forward(src)
	if err != nil {
		return nil, err
	}

	tgt, err := m.embed(target)
	if err != nil {
		return nil, err
	}
	dec, err := m.Decoder.Forward(tgt, memory)
	if err != nil {
		return nil, err
	}

	// Tied output projection: decoder state against the transpose of the
	// shared embedding matrix, folded into the kernel.
	logits, err := tensor.MatMulTransB(dec, m.Embedding)
	if err != nil {
		return nil, err
	}
	auditFinite("logits", logits)
	probs := tensor.Softmax(logits)

	metrics.RecordForward(time.Since(start))
	metrics.RecordSequenceLength(len(source[0]))
	metrics.RecordSequenceLength(len(target[0]))
	return probs, nil
}

// embed looks up token rows in the shared embedding matrix, scales by
// sqrt(DModel) so the positional signal does not swamp the embeddings, and
// adds the sinusoidal position table.
func (m *Transformer) embed(tokens [][]int) (*tensor.Tensor, error) {
	if len(tokens) == 0 || len(tokens[0]) == 0 {
		return nil, tensor.Errorf("embed", "empty token batch")
	}
	batch := len(tokens)
	seqLen := len(tokens[0])
	dModel := m.Config.DModel

	out := tensor.New(batch, seqLen, dModel)
	scale := float32(math.Sqrt(float64(dModel)))
	for b, row := range tokens {
		if len(row) != seqLen {
			return nil, tensor.Errorf("embed", "ragged batch: row %d has %d tokens, row 0 has %d",
				b, len(row), seqLen)
		}
		for s, id := range row {
			if id < 0 || id >= m.Config.VocabSize {
				metrics.RecordValidationError("embed", "index_out_of_range")
				return nil, &IndexError{Index: id, VocabSize: m.Config.VocabSize}
			}
			src := m.Embedding.Data[id*dModel : (id+1)*dModel]
			dst := out.Data[(b*seqLen+s)*dModel : (b*seqLen+s+1)*dModel]
			for i, v := range src {
				dst[i] = v * scale
			}
		}
	}
	return tensor.Add(out, PositionalEncoding(seqLen, dModel))
}

// Parameters returns every learnable tensor keyed by a stable name. The
// shared embedding appears once, under "embedding".
func (m *Transformer) Parameters() map[string]*tensor.Tensor {
	params := map[string]*tensor.Tensor{"embedding": m.Embedding}
	for i, l := range m.Encoder.Layers {
		prefix := fmt.Sprintf("encoder.%d", i)
		collectAttention(params, prefix+".self", l.SelfAttn)
		collectFeedForward(params, prefix+".ff", l.FF)
		collectNorm(params, prefix+".norm_attn", l.SubAttn.Norm)
		collectNorm(params, prefix+".norm_ff", l.SubFF.Norm)
	}
	for i, l := range m.Decoder.Layers {
		prefix := fmt.Sprintf("decoder.%d", i)
		collectAttention(params, prefix+".self", l.SelfAttn)
		collectAttention(params, prefix+".cross", l.CrossAttn)
		collectFeedForward(params, prefix+".ff", l.FF)
		collectNorm(params, prefix+".norm_self", l.SubSelf.Norm)
		collectNorm(params, prefix+".norm_cross", l.SubCross.Norm)
		collectNorm(params, prefix+".norm_ff", l.SubFF.Norm)
	}
	return params
}

// SetParameters copies values into the model's existing tensors by name,
// preserving the embedding aliasing. Shapes must match exactly; unknown
// names are rejected.
func (m *Transformer) SetParameters(params map[string]*tensor.Tensor) error {
	own := m.Parameters()
	for name, src := range params {
		dst, ok := own[name]
		if !ok {
			return tensor.Errorf("set_parameters", "unknown parameter %q", name)
		}
		if !dst.ShapeEquals(src) {
			return tensor.Errorf("set_parameters", "parameter %q: shape %v != expected %v",
				name, src.Shape, dst.Shape)
		}
		copy(dst.Data, src.Data)
	}
	return nil
}

// auditFinite counts NaN and Inf entries so instability shows up in metrics
// before it surfaces as garbage output.
func auditFinite(name string, t *tensor.Tensor) {
	var nan, inf int
	for _, v := range t.Data {
		f := float64(v)
		switch {
		case math.IsNaN(f):
			nan++
		case math.IsInf(f, 0):
			inf++
		}
	}
	metrics.RecordNumericalInstability(name, nan, inf)
}

func collectAttention(params map[string]*tensor.Tensor, prefix string, mha *MultiHeadAttention) {
	for h, head := range mha.Heads {
		params[fmt.Sprintf("%s.head.%d.wq", prefix, h)] = head.WQuery
		params[fmt.Sprintf("%s.head.%d.wk", prefix, h)] = head.WKey
		params[fmt.Sprintf("%s.head.%d.wv", prefix, h)] = head.WValue
	}
	params[prefix+".wo"] = mha.WOutput
}

func collectFeedForward(params map[string]*tensor.Tensor, prefix string, ff *FeedForward) {
	params[prefix+".w1"] = ff.W1
	params[prefix+".b1"] = ff.B1
	params[prefix+".w2"] = ff.W2
	params[prefix+".b2"] = ff.B2
}

func collectNorm(params map[string]*tensor.Tensor, prefix string, ln *LayerNorm) {
	params[prefix+".scale"] = ln.Scale
	params[prefix+".shift"] = ln.Shift
}
