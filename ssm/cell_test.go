package ssm

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestCellStepKnownValues(t *testing.T) {
	// x' = A x + K w + B u + b with hand-checked numbers.
	A := mat.NewDense(2, 2, []float64{1, 0, 0, 2})
	K := mat.NewDense(2, 1, []float64{1, -1})
	B := mat.NewDense(2, 1, []float64{0.5, 0})
	bias := mat.NewVecDense(2, []float64{0.1, 0.2})
	cell := NewCell(A, K, B, bias)

	x := mat.NewVecDense(2, []float64{1, 1})
	w := mat.NewVecDense(1, []float64{2})
	u := mat.NewVecDense(1, []float64{4})
	next := mat.NewVecDense(2, nil)
	cell.Step(x, w, u, next)

	want := []float64{1 + 2 + 2 + 0.1, 2 - 2 + 0 + 0.2}
	for i, v := range want {
		if math.Abs(next.AtVec(i)-v) > 1e-12 {
			t.Errorf("next[%d] = %v, want %v", i, next.AtVec(i), v)
		}
	}
}

func TestNewCellRejectsMismatchedDims(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for mismatched dimensions")
		}
	}()
	NewCell(
		mat.NewDense(2, 2, nil),
		mat.NewDense(3, 1, nil),
		mat.NewDense(2, 1, nil),
		mat.NewVecDense(2, nil),
	)
}

func TestCellShadowSharesShapeNotValues(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cell := NewRandomCell(3, 2, 1, rng)
	g := cell.Shadow()

	ps := cell.RawSlices()
	gs := g.RawSlices()
	if len(ps) != len(gs) {
		t.Fatalf("shadow exposes %d slices, cell %d", len(gs), len(ps))
	}
	for i := range ps {
		if len(ps[i]) != len(gs[i]) {
			t.Errorf("slice %d: shadow has %d entries, cell %d", i, len(gs[i]), len(ps[i]))
		}
		for _, v := range gs[i] {
			if v != 0 {
				t.Fatal("shadow not zero valued")
			}
		}
	}
}

func TestCellOrders(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	cell := NewRandomCell(4, 3, 2, rng)
	if cell.StateOrder() != 4 || cell.DriveOrder() != 3 || cell.ControlOrder() != 2 {
		t.Errorf("orders = (%d, %d, %d), want (4, 3, 2)",
			cell.StateOrder(), cell.DriveOrder(), cell.ControlOrder())
	}
}
