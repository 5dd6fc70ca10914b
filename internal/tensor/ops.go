package tensor

import "math"

// Add returns the element-wise sum of a and b with broadcasting.
func Add(a, b *Tensor) (*Tensor, error) {
	return elementwise("add", a, b, func(x, y float32) float32 { return x + y })
}

// Mul returns the element-wise product of a and b with broadcasting.
func Mul(a, b *Tensor) (*Tensor, error) {
	return elementwise("mul", a, b, func(x, y float32) float32 { return x * y })
}

// Scale returns t with every element multiplied by s.
func (t *Tensor) Scale(s float32) *Tensor {
	out := New(t.Shape...)
	for i, v := range t.Data {
		out.Data[i] = v * s
	}
	return out
}

// ReLU returns max(0, x) element-wise.
func (t *Tensor) ReLU() *Tensor {
	out := New(t.Shape...)
	for i, v := range t.Data {
		if v > 0 {
			out.Data[i] = v
		}
	}
	return out
}

// Softmax normalizes the last axis of t into probability distributions.
// Each row is shifted by its maximum before exponentiation; the summation
// order over a row is fixed left-to-right, so output is deterministic.
func Softmax(t *Tensor) *Tensor {
	out := New(t.Shape...)
	rowLen := t.Shape[len(t.Shape)-1]
	rows := len(t.Data) / rowLen
	for r := 0; r < rows; r++ {
		row := t.Data[r*rowLen : (r+1)*rowLen]
		dst := out.Data[r*rowLen : (r+1)*rowLen]

		maxVal := float32(math.Inf(-1))
		for _, v := range row {
			if v > maxVal {
				maxVal = v
			}
		}
		var sum float32
		for i, v := range row {
			e := float32(math.Exp(float64(v - maxVal)))
			dst[i] = e
			sum += e
		}
		inv := 1 / sum
		for i := range dst {
			dst[i] *= inv
		}
	}
	return out
}

// Concat joins tensors along the given axis. All other axes must match.
func Concat(tensors []*Tensor, axis int) (*Tensor, error) {
	if len(tensors) == 0 {
		return nil, Errorf("concat", "no operands")
	}
	first := tensors[0]
	rank := len(first.Shape)
	if axis < 0 || axis >= rank {
		return nil, Errorf("concat", "axis %d out of range for rank %d", axis, rank)
	}

	outShape := copyShape(first.Shape)
	for i := 1; i < len(tensors); i++ {
		t := tensors[i]
		if len(t.Shape) != rank {
			return nil, Errorf("concat", "rank mismatch: %v vs %v", first.Shape, t.Shape)
		}
		for j := range t.Shape {
			if j == axis {
				continue
			}
			if t.Shape[j] != first.Shape[j] {
				return nil, Errorf("concat", "shapes %v and %v differ on axis %d", first.Shape, t.Shape, j)
			}
		}
		outShape[axis] += t.Shape[axis]
	}
	out := New(outShape...)

	outer := 1
	for i := 0; i < axis; i++ {
		outer *= outShape[i]
	}
	inner := 1
	for i := axis + 1; i < rank; i++ {
		inner *= outShape[i]
	}

	// Row-major layout: each operand contributes one contiguous block of
	// shape[axis]*inner elements per outer index.
	outBlock := outShape[axis] * inner
	for o := 0; o < outer; o++ {
		offset := o * outBlock
		for _, t := range tensors {
			block := t.Shape[axis] * inner
			copy(out.Data[offset:offset+block], t.Data[o*block:(o+1)*block])
			offset += block
		}
	}
	return out, nil
}

func elementwise(op string, a, b *Tensor, fn func(x, y float32) float32) (*Tensor, error) {
	outShape, err := broadcastShapes(op, a.Shape, b.Shape)
	if err != nil {
		return nil, err
	}
	out := New(outShape...)

	// Fast path: identical shapes need no index arithmetic.
	if a.ShapeEquals(b) {
		for i := range out.Data {
			out.Data[i] = fn(a.Data[i], b.Data[i])
		}
		return out, nil
	}

	indices := make([]int, len(outShape))
	for flat := range out.Data {
		rem := flat
		for i := len(outShape) - 1; i >= 0; i-- {
			indices[i] = rem % outShape[i]
			rem /= outShape[i]
		}
		out.Data[flat] = fn(a.Data[broadcastIndex(indices, outShape, a)], b.Data[broadcastIndex(indices, outShape, b)])
	}
	return out, nil
}

// broadcastShapes aligns trailing axes: each pair must match or one must be 1.
func broadcastShapes(op string, a, b []int) ([]int, error) {
	rank := len(a)
	if len(b) > rank {
		rank = len(b)
	}
	out := make([]int, rank)
	for i := 0; i < rank; i++ {
		da, db := 1, 1
		if i < len(a) {
			da = a[len(a)-1-i]
		}
		if i < len(b) {
			db = b[len(b)-1-i]
		}
		if da != db && da != 1 && db != 1 {
			return nil, Errorf(op, "shapes %v and %v are not broadcast-compatible", a, b)
		}
		if da > db {
			out[rank-1-i] = da
		} else {
			out[rank-1-i] = db
		}
	}
	return out, nil
}

func broadcastIndex(outIndices, outShape []int, t *Tensor) int {
	diff := len(outShape) - len(t.Shape)
	idx := 0
	for i := range t.Shape {
		v := outIndices[i+diff]
		if t.Shape[i] == 1 {
			v = 0
		}
		idx += v * t.Strides[i]
	}
	return idx
}
