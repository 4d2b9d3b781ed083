package ssm

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestModelRunShapesAndZeroStart(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	m := NewModel(NewRandomCell(3, 2, 1, rng), NewLinearReadout(3, 2, rng))

	T := 10
	W := mat.NewDense(T, 2, nil)
	U := mat.NewDense(T, 1, nil)
	states, preds, err := m.Run(W, U)
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != T {
		t.Fatalf("got %d states, want %d", len(states), T)
	}
	for i := 0; i < 3; i++ {
		if states[0].AtVec(i) != 0 {
			t.Error("recursion did not start from the zero state")
		}
	}
	pr, pc := preds.Dims()
	if pr != T || pc != 2 {
		t.Errorf("predictions are %dx%d, want %dx2", pr, pc, T)
	}
}

func TestModelRunReadoutBeforeStep(t *testing.T) {
	// With A = I, B = 0, b = 0 and K = I, the state at time t is the sum
	// of w(0)..w(t-1), and the readout at t must see exactly that sum.
	A := mat.NewDense(1, 1, []float64{1})
	K := mat.NewDense(1, 1, []float64{1})
	B := mat.NewDense(1, 1, []float64{0})
	bias := mat.NewVecDense(1, nil)
	out := &LinearReadout{C: mat.NewDense(1, 1, []float64{1}), D: mat.NewVecDense(1, nil)}
	m := NewModel(NewCell(A, K, B, bias), out)

	W := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	U := mat.NewDense(4, 1, nil)
	_, preds, err := m.Run(W, U)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 1, 3, 6}
	for i, v := range want {
		if math.Abs(preds.At(i, 0)-v) > 1e-12 {
			t.Errorf("pred[%d] = %v, want %v", i, preds.At(i, 0), v)
		}
	}
}

func TestModelRunDimensionErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := NewModel(NewRandomCell(2, 2, 1, rng), NewLinearReadout(2, 1, rng))

	if _, _, err := m.Run(mat.NewDense(5, 2, nil), mat.NewDense(4, 1, nil)); err == nil {
		t.Error("expected error for mismatched row counts")
	}
	if _, _, err := m.Run(mat.NewDense(5, 3, nil), mat.NewDense(5, 1, nil)); err == nil {
		t.Error("expected error for wrong drive width")
	}
}

func TestStateMatrix(t *testing.T) {
	states := []*mat.VecDense{
		mat.NewVecDense(2, []float64{1, 2}),
		mat.NewVecDense(2, []float64{3, 4}),
	}
	X := StateMatrix(states)
	if X.At(0, 1) != 2 || X.At(1, 0) != 3 {
		t.Error("states not stacked row-wise")
	}
}
