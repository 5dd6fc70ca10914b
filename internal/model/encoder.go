package model

import (
	"math/rand"

	"github.com/23skdu/longbow-herald/internal/tensor"
)

// EncoderLayer is one encoder block: unmasked self-attention followed by the
// position-wise feed-forward network, each behind a residual+norm sublayer.
type EncoderLayer struct {
	SelfAttn *MultiHeadAttention
	FF       *FeedForward
	SubAttn  *Sublayer
	SubFF    *Sublayer
}

func NewEncoderLayer(rng *rand.Rand, cfg Config) (*EncoderLayer, error) {
	attn, err := NewMultiHeadAttention(rng, cfg.DModel, cfg.Heads, false)
	if err != nil {
		return nil, err
	}
	return &EncoderLayer{
		SelfAttn: attn,
		FF:       NewFeedForward(rng, cfg.DModel, cfg.DFF),
		SubAttn:  NewSublayer(cfg.DModel, cfg.Eps),
		SubFF:    NewSublayer(cfg.DModel, cfg.Eps),
	}, nil
}

func (l *EncoderLayer) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	x, err := l.SubAttn.Forward(x, func(in *tensor.Tensor) (*tensor.Tensor, error) {
		return l.SelfAttn.Forward(in, nil)
	})
	if err != nil {
		return nil, err
	}
	return l.SubFF.Forward(x, l.FF.Forward)
}

// Encoder applies N independently-initialized layers in strict sequence. Its
// final output is the memory every decoder layer cross-attends into.
type Encoder struct {
	Layers []*EncoderLayer
}

func NewEncoder(rng *rand.Rand, cfg Config) (*Encoder, error) {
	layers := make([]*EncoderLayer, cfg.Layers)
	for i := range layers {
		layer, err := NewEncoderLayer(rng, cfg)
		if err != nil {
			return nil, err
		}
		layers[i] = layer
	}
	return &Encoder{Layers: layers}, nil
}

func (e *Encoder) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	var err error
	for _, layer := range e.Layers {
		x, err = layer.Forward(x)
		if err != nil {
			return nil, err
		}
	}
	return x, nil
}
