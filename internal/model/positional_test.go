package model

import (
	"math"
	"testing"
)

func TestPositionalEncodingDeterministic(t *testing.T) {
	a := PositionalEncoding(32, 16)
	for i := 0; i < 5; i++ {
		b := PositionalEncoding(32, 16)
		if !a.Equals(b, 0) {
			t.Fatal("encoding table differs between calls")
		}
	}
}

func TestPositionalEncodingPositionZero(t *testing.T) {
	// sin(0) = 0, cos(0) = 1 regardless of the frequency, so the first row
	// alternates 0, 1, 0, 1, ...
	pe := PositionalEncoding(4, 8)
	for i := 0; i < 8; i++ {
		want := float32(0)
		if i%2 == 1 {
			want = 1
		}
		if pe.At(0, i) != want {
			t.Errorf("position 0 feature %d = %v, want %v", i, pe.At(0, i), want)
		}
	}
}

func TestPositionalEncodingKnownValues(t *testing.T) {
	const dModel = 8
	pe := PositionalEncoding(16, dModel)

	for _, pos := range []int{1, 3, 10} {
		for i := 0; i < dModel; i += 2 {
			angle := float64(pos) / math.Pow(10000, float64(i)/float64(dModel))
			wantSin := float32(math.Sin(angle))
			wantCos := float32(math.Cos(angle))
			if pe.At(pos, i) != wantSin {
				t.Errorf("pos %d feature %d = %v, want sin %v", pos, i, pe.At(pos, i), wantSin)
			}
			if pe.At(pos, i+1) != wantCos {
				t.Errorf("pos %d feature %d = %v, want cos %v", pos, i+1, pe.At(pos, i+1), wantCos)
			}
		}
	}
}

func TestPositionalEncodingBounded(t *testing.T) {
	pe := PositionalEncoding(64, 32)
	for i, v := range pe.Data {
		if v < -1 || v > 1 {
			t.Fatalf("entry %d = %v outside [-1, 1]", i, v)
		}
	}
}

func TestPositionalEncodingOddWidth(t *testing.T) {
	// An odd model width leaves the trailing sin without a cos partner; the
	// table must still fill without panicking.
	pe := PositionalEncoding(4, 5)
	if pe.Shape[0] != 4 || pe.Shape[1] != 5 {
		t.Fatalf("unexpected shape %v", pe.Shape)
	}
	if pe.At(0, 4) != 0 {
		t.Errorf("trailing even feature at position 0 = %v, want sin(0) = 0", pe.At(0, 4))
	}
}
