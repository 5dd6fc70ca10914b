package model

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/23skdu/longbow-herald/internal/tensor"
)

func TestMultiHeadOutputShape(t *testing.T) {
	for _, heads := range []int{1, 2, 4, 8} {
		rng := rand.New(rand.NewSource(1))
		mha, err := NewMultiHeadAttention(rng, 32, heads, false)
		if err != nil {
			t.Fatalf("heads=%d: construction failed: %v", heads, err)
		}

		x := tensor.New(2, 5, 32)
		for i := range x.Data {
			x.Data[i] = rng.Float32()
		}
		out, err := mha.Forward(x, nil)
		if err != nil {
			t.Fatalf("heads=%d: Forward failed: %v", heads, err)
		}
		if !out.ShapeEquals(x) {
			t.Errorf("heads=%d: output shape %v != input shape %v", heads, out.Shape, x.Shape)
		}
	}
}

func TestMultiHeadConstructionFailure(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := NewMultiHeadAttention(rng, 512, 7, false)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError for 512 %% 7 != 0, got %v", err)
	}

	if _, err := NewMultiHeadAttention(rng, 512, 0, false); err == nil {
		t.Error("expected error for zero heads")
	}
}

func TestMultiHeadHeadsOwnDistinctWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	mha, err := NewMultiHeadAttention(rng, 16, 4, false)
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}
	for i := 0; i < len(mha.Heads); i++ {
		for j := i + 1; j < len(mha.Heads); j++ {
			if mha.Heads[i].WQuery.Equals(mha.Heads[j].WQuery, 0) {
				t.Errorf("heads %d and %d share identical query weights", i, j)
			}
		}
	}
}

func TestMultiHeadDeterministicUnderParallelism(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	mha, err := NewMultiHeadAttention(rng, 64, 8, false)
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}
	x := tensor.New(4, 16, 64)
	for i := range x.Data {
		x.Data[i] = rng.Float32()*2 - 1
	}

	first, err := mha.Forward(x, nil)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	for run := 0; run < 10; run++ {
		again, err := mha.Forward(x, nil)
		if err != nil {
			t.Fatalf("Forward failed: %v", err)
		}
		if !again.Equals(first, 0) {
			t.Fatal("parallel head fan-out produced different bits across runs")
		}
	}
}

func TestMultiHeadCrossAttention(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	mha, err := NewMultiHeadAttention(rng, 16, 2, false)
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}
	x := tensor.New(1, 3, 16)
	memory := tensor.New(1, 7, 16)
	for i := range x.Data {
		x.Data[i] = rng.Float32()
	}
	for i := range memory.Data {
		memory.Data[i] = rng.Float32()
	}

	out, err := mha.Forward(x, memory)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if !out.ShapeEquals(x) {
		t.Errorf("cross-attention output shape %v != query shape %v", out.Shape, x.Shape)
	}
}

func TestMultiHeadShapeErrorPropagates(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	mha, err := NewMultiHeadAttention(rng, 16, 2, false)
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}
	// Wrong feature width for the head projections.
	x := tensor.New(1, 3, 8)
	_, err = mha.Forward(x, nil)
	var shapeErr *tensor.ShapeError
	if !errors.As(err, &shapeErr) {
		t.Errorf("expected ShapeError, got %v", err)
	}
}
