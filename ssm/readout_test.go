package ssm

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestLinearReadoutForward(t *testing.T) {
	r := &LinearReadout{
		C: mat.NewDense(2, 3, []float64{1, 0, 0, 0, 1, 1}),
		D: mat.NewVecDense(2, []float64{0.5, -0.5}),
	}
	y := r.Forward(mat.NewVecDense(3, []float64{1, 2, 3}))
	want := []float64{1.5, 4.5}
	for i, v := range want {
		if math.Abs(y.AtVec(i)-v) > 1e-12 {
			t.Errorf("y[%d] = %v, want %v", i, y.AtVec(i), v)
		}
	}
}

func TestMLPReadoutRange(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	r := NewMLPReadout(4, 3, rng)
	for trial := 0; trial < 20; trial++ {
		x := mat.NewVecDense(4, nil)
		for i := 0; i < 4; i++ {
			x.SetVec(i, 10*rng.NormFloat64())
		}
		y := r.Forward(x)
		for i := 0; i < y.Len(); i++ {
			if v := y.AtVec(i); v <= 0 || v >= 1 {
				t.Fatalf("sigmoid output %v outside (0, 1)", v)
			}
		}
	}
}

// finite-difference check of the readout backward pass through a scalar
// objective L = sum(y).
func checkReadoutGradient(t *testing.T, r Readout, nx int) {
	t.Helper()
	rng := rand.New(rand.NewSource(11))
	x := mat.NewVecDense(nx, nil)
	for i := 0; i < nx; i++ {
		x.SetVec(i, rng.NormFloat64())
	}
	dy := mat.NewVecDense(r.OutDim(), nil)
	for i := 0; i < dy.Len(); i++ {
		dy.SetVec(i, 1)
	}

	sum := func() float64 {
		y := r.Forward(x)
		var s float64
		for i := 0; i < y.Len(); i++ {
			s += y.AtVec(i)
		}
		return s
	}

	g := r.Shadow()
	dx := r.Backward(x, dy, g)

	const eps = 1e-6
	// Parameter gradients.
	params := r.RawSlices()
	grads := g.RawSlices()
	for si, p := range params {
		for j := range p {
			orig := p[j]
			p[j] = orig + eps
			plus := sum()
			p[j] = orig - eps
			minus := sum()
			p[j] = orig

			numeric := (plus - minus) / (2 * eps)
			if diff := math.Abs(numeric - grads[si][j]); diff > 1e-5+1e-4*math.Abs(numeric) {
				t.Errorf("param slice %d entry %d: analytic %v, numeric %v", si, j, grads[si][j], numeric)
			}
		}
	}
	// State gradient.
	for i := 0; i < nx; i++ {
		orig := x.AtVec(i)
		x.SetVec(i, orig+eps)
		plus := sum()
		x.SetVec(i, orig-eps)
		minus := sum()
		x.SetVec(i, orig)

		numeric := (plus - minus) / (2 * eps)
		if diff := math.Abs(numeric - dx.AtVec(i)); diff > 1e-5+1e-4*math.Abs(numeric) {
			t.Errorf("dx[%d]: analytic %v, numeric %v", i, dx.AtVec(i), numeric)
		}
	}
}

func TestLinearReadoutGradient(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	checkReadoutGradient(t, NewLinearReadout(4, 2, rng), 4)
}

func TestMLPReadoutGradient(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	checkReadoutGradient(t, NewMLPReadout(4, 2, rng), 4)
}
