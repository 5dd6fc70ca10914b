package tensor

import (
	"runtime"
	"sync"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// MatMul multiplies over the last two axes: a (..., m, k) @ b (..., k, n)
// produces (..., m, n). A 2D b is broadcast across all leading axes of a;
// otherwise leading axes must match exactly.
func MatMul(a, b *Tensor) (*Tensor, error) {
	return matmul("matmul", a, b, false)
}

// MatMulTransB multiplies a by the transpose of b over the last two axes:
// a (..., m, k) @ b (..., n, k)^T produces (..., m, n). Leading axes follow
// the same rule as MatMul. The transpose is folded into the kernel, so b is
// never materialized transposed.
func MatMulTransB(a, b *Tensor) (*Tensor, error) {
	return matmul("matmul_trans_b", a, b, true)
}

func matmul(op string, a, b *Tensor, transB bool) (*Tensor, error) {
	if len(a.Shape) < 2 || len(b.Shape) < 2 {
		return nil, Errorf(op, "operands must be at least 2D, got %v and %v", a.Shape, b.Shape)
	}

	m := a.Shape[len(a.Shape)-2]
	k := a.Shape[len(a.Shape)-1]
	var kb, n int
	if transB {
		n = b.Shape[len(b.Shape)-2]
		kb = b.Shape[len(b.Shape)-1]
	} else {
		kb = b.Shape[len(b.Shape)-2]
		n = b.Shape[len(b.Shape)-1]
	}
	if k != kb {
		return nil, Errorf(op, "inner dimensions differ: %v vs %v", a.Shape, b.Shape)
	}

	leadA := a.Shape[:len(a.Shape)-2]
	batch := 1
	for _, dim := range leadA {
		batch *= dim
	}

	broadcastB := len(b.Shape) == 2
	if !broadcastB {
		leadB := b.Shape[:len(b.Shape)-2]
		if len(leadB) != len(leadA) {
			return nil, Errorf(op, "leading axes differ: %v vs %v", a.Shape, b.Shape)
		}
		for i := range leadA {
			if leadA[i] != leadB[i] {
				return nil, Errorf(op, "leading axes differ: %v vs %v", a.Shape, b.Shape)
			}
		}
	}

	outShape := append(copyShape(leadA), m, n)
	out := New(outShape...)

	aStep := m * k
	bStep := 0
	if !broadcastB {
		bStep = n * k
	}
	outStep := m * n

	slice := func(bi int) {
		aSlab := a.Data[bi*aStep : (bi+1)*aStep]
		bSlab := b.Data
		if !broadcastB {
			bSlab = b.Data[bi*bStep : (bi+1)*bStep]
		}
		gemm(transB, m, n, k, aSlab, bSlab, out.Data[bi*outStep:(bi+1)*outStep])
	}

	if batch <= 1 {
		for bi := 0; bi < batch; bi++ {
			slice(bi)
		}
		return out, nil
	}

	// Batch slices are independent and write disjoint output ranges, so the
	// fan-out cannot change any per-slice reduction order.
	workers := runtime.NumCPU()
	if workers > batch {
		workers = batch
	}
	chunk := (batch + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < batch; start += chunk {
		end := start + chunk
		if end > batch {
			end = batch
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for bi := start; bi < end; bi++ {
				slice(bi)
			}
		}(start, end)
	}
	wg.Wait()
	return out, nil
}

// gemm computes c = a @ b (or a @ b^T) for one 2D slice via float32 BLAS.
func gemm(transB bool, m, n, k int, a, b, c []float32) {
	ta := blas.NoTrans
	tb := blas.NoTrans
	ldb := n
	rowsB, colsB := k, n
	if transB {
		tb = blas.Trans
		ldb = k
		rowsB, colsB = n, k
	}
	blas32.Gemm(ta, tb, 1,
		blas32.General{Rows: m, Cols: k, Stride: k, Data: a},
		blas32.General{Rows: rowsB, Cols: colsB, Stride: ldb, Data: b},
		0,
		blas32.General{Rows: m, Cols: n, Stride: n, Data: c})
}
