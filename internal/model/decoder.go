package model

import (
	"math/rand"

	"github.com/23skdu/longbow-herald/internal/tensor"
)

// DecoderLayer is one decoder block: causal self-attention over the decoder's
// own sequence, cross-attention with queries from the decoder state and
// keys/values from the encoder memory, then the feed-forward network. Each
// stage sits behind a residual+norm sublayer.
type DecoderLayer struct {
	SelfAttn  *MultiHeadAttention
	CrossAttn *MultiHeadAttention
	FF        *FeedForward
	SubSelf   *Sublayer
	SubCross  *Sublayer
	SubFF     *Sublayer
}

func NewDecoderLayer(rng *rand.Rand, cfg Config) (*DecoderLayer, error) {
	selfAttn, err := NewMultiHeadAttention(rng, cfg.DModel, cfg.Heads, true)
	if err != nil {
		return nil, err
	}
	crossAttn, err := NewMultiHeadAttention(rng, cfg.DModel, cfg.Heads, false)
	if err != nil {
		return nil, err
	}
	return &DecoderLayer{
		SelfAttn:  selfAttn,
		CrossAttn: crossAttn,
		FF:        NewFeedForward(rng, cfg.DModel, cfg.DFF),
		SubSelf:   NewSublayer(cfg.DModel, cfg.Eps),
		SubCross:  NewSublayer(cfg.DModel, cfg.Eps),
		SubFF:     NewSublayer(cfg.DModel, cfg.Eps),
	}, nil
}

func (l *DecoderLayer) Forward(x, memory *tensor.Tensor) (*tensor.Tensor, error) {
	x, err := l.SubSelf.Forward(x, func(in *tensor.Tensor) (*tensor.Tensor, error) {
		return l.SelfAttn.Forward(in, nil)
	})
	if err != nil {
		return nil, err
	}
	x, err = l.SubCross.Forward(x, func(in *tensor.Tensor) (*tensor.Tensor, error) {
		return l.CrossAttn.Forward(in, memory)
	})
	if err != nil {
		return nil, err
	}
	return l.SubFF.Forward(x, l.FF.Forward)
}

// Decoder applies N layers in sequence; every layer consumes the same fixed
// encoder memory alongside the previous layer's output.
type Decoder struct {
	Layers []*DecoderLayer
}

func NewDecoder(rng *rand.Rand, cfg Config) (*Decoder, error) {
	layers := make([]*DecoderLayer, cfg.Layers)
	for i := range layers {
		layer, err := NewDecoderLayer(rng, cfg)
		if err != nil {
			return nil, err
		}
		layers[i] = layer
	}
	return &Decoder{Layers: layers}, nil
}

func (d *Decoder) Forward(x, memory *tensor.Tensor) (*tensor.Tensor, error) {
	var err error
	for _, layer := range d.Layers {
		x, err = layer.Forward(x, memory)
		if err != nil {
			return nil, err
		}
	}
	return x, nil
}
