package model

import (
	"math"
	"math/rand"
	"testing"

	"github.com/23skdu/longbow-herald/internal/tensor"
)

func TestLayerNormZeroMeanUnitVariance(t *testing.T) {
	ln := NewLayerNorm(16, 1e-5)

	rng := rand.New(rand.NewSource(1))
	x := tensor.New(2, 3, 16)
	for i := range x.Data {
		x.Data[i] = rng.Float32()*10 - 5
	}

	out, err := ln.Forward(x)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	for r := 0; r < 6; r++ {
		var mean float32
		for c := 0; c < 16; c++ {
			mean += out.Data[r*16+c]
		}
		mean /= 16
		if math.Abs(float64(mean)) > 1e-5 {
			t.Errorf("row %d mean %v, want ~0", r, mean)
		}

		var variance float32
		for c := 0; c < 16; c++ {
			d := out.Data[r*16+c] - mean
			variance += d * d
		}
		variance /= 16
		if math.Abs(float64(variance-1)) > 1e-3 {
			t.Errorf("row %d variance %v, want ~1", r, variance)
		}
	}
}

func TestLayerNormScaleShift(t *testing.T) {
	ln := NewLayerNorm(4, 1e-5)
	for i := range ln.Scale.Data {
		ln.Scale.Data[i] = 2
		ln.Shift.Data[i] = 3
	}

	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, 1, 4)
	out, err := ln.Forward(x)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	plain := NewLayerNorm(4, 1e-5)
	base, _ := plain.Forward(x)
	for i := range out.Data {
		want := base.Data[i]*2 + 3
		if math.Abs(float64(out.Data[i]-want)) > 1e-5 {
			t.Errorf("element %d: got %v, want %v", i, out.Data[i], want)
		}
	}
}

func TestLayerNormWidthMismatch(t *testing.T) {
	ln := NewLayerNorm(8, 1e-5)
	if _, err := ln.Forward(tensor.New(2, 3, 4)); err == nil {
		t.Error("expected error on feature width mismatch")
	}
}

func TestSublayerZeroTransformIsPureNorm(t *testing.T) {
	// With L(x) = 0 the wrapper must reduce to Norm(x) exactly, which
	// isolates the residual addition.
	s := NewSublayer(8, 1e-5)

	rng := rand.New(rand.NewSource(2))
	x := tensor.New(2, 3, 8)
	for i := range x.Data {
		x.Data[i] = rng.Float32()*4 - 2
	}

	zero := func(in *tensor.Tensor) (*tensor.Tensor, error) {
		return tensor.New(in.Shape...), nil
	}
	got, err := s.Forward(x, zero)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	want, err := s.Norm.Forward(x)
	if err != nil {
		t.Fatalf("Norm failed: %v", err)
	}
	if !got.Equals(want, 0) {
		t.Error("Sublayer with zero transform must equal Norm(x) exactly")
	}
}

func TestSublayerResidualOrder(t *testing.T) {
	// The residual sum happens before normalization: feeding L(x) = x must
	// equal Norm(2x), not 2*Norm(x).
	s := NewSublayer(4, 1e-5)
	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, 1, 4)

	identity := func(in *tensor.Tensor) (*tensor.Tensor, error) { return in, nil }
	got, err := s.Forward(x, identity)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	want, _ := s.Norm.Forward(x.Scale(2))
	if !got.Equals(want, 1e-6) {
		t.Error("residual must be summed before normalization")
	}
}

func TestSublayerPropagatesError(t *testing.T) {
	s := NewSublayer(4, 1e-5)
	x := tensor.New(1, 4)
	fail := func(in *tensor.Tensor) (*tensor.Tensor, error) {
		return nil, tensor.Errorf("test", "boom")
	}
	if _, err := s.Forward(x, fail); err == nil {
		t.Error("expected inner error to propagate")
	}
}
