package model

import (
	"math/rand"
	"testing"

	"github.com/23skdu/longbow-herald/internal/tensor"
)

func TestFeedForwardShape(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ff := NewFeedForward(rng, 16, 64)

	x := tensor.New(2, 5, 16)
	for i := range x.Data {
		x.Data[i] = rng.Float32()*2 - 1
	}
	out, err := ff.Forward(x)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if !out.ShapeEquals(x) {
		t.Errorf("output shape %v != input shape %v", out.Shape, x.Shape)
	}
}

func TestFeedForwardPositionWise(t *testing.T) {
	// Changing one position must not change any other position's output.
	rng := rand.New(rand.NewSource(2))
	ff := NewFeedForward(rng, 8, 32)

	x := tensor.New(1, 4, 8)
	for i := range x.Data {
		x.Data[i] = rng.Float32()
	}
	base, err := ff.Forward(x)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	x2 := x.Clone()
	for d := 0; d < 8; d++ {
		x2.SetAt(x2.At(0, 2, d)+5, 0, 2, d)
	}
	got, err := ff.Forward(x2)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	for s := 0; s < 4; s++ {
		for d := 0; d < 8; d++ {
			same := got.At(0, s, d) == base.At(0, s, d)
			if s == 2 && same && base.At(0, s, d) != got.At(0, s, d) {
				continue
			}
			if s != 2 && !same {
				t.Fatalf("perturbing position 2 changed position %d", s)
			}
		}
	}
}

func TestFeedForwardShapeError(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	ff := NewFeedForward(rng, 16, 64)
	x := tensor.New(2, 5, 12)
	if _, err := ff.Forward(x); err == nil {
		t.Error("expected error on feature width mismatch")
	}
}
