package simulate

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/felolivee/CLOC-RNN-IPSID/signal"
	"github.com/felolivee/CLOC-RNN-IPSID/ssm"
)

func testDiscrete() *Discrete {
	return &Discrete{
		A: mat.NewDense(2, 2, []float64{0.9, 0, 0, 0.8}),
		B: mat.NewDense(2, 1, []float64{1, 0}),
		C: mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
		D: mat.NewDense(1, 2, []float64{1, -1}),
	}
}

func TestDiscreteGenerateShapes(t *testing.T) {
	s, err := testDiscrete().Generate(
		[]func(float64) float64{signal.Sine(1, 0.1, 0)},
		Config{T: 100, Ts: 0.1, Seed: 1},
	)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 100 {
		t.Fatalf("series length %d, want 100", s.Len())
	}
	ny, nu, nz := s.Dims()
	if ny != 2 || nu != 1 || nz != 1 {
		t.Errorf("dims = (%d, %d, %d), want (2, 1, 1)", ny, nu, nz)
	}
}

func TestDiscreteGenerateDeterministicPerSeed(t *testing.T) {
	ctrl := []func(float64) float64{signal.Sine(1, 0.1, 0)}
	cfg := Config{T: 50, Ts: 0.1, ProcessNoise: 0.1, ObsNoise: 0.1, Seed: 5}

	a, err := testDiscrete().Generate(ctrl, cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := testDiscrete().Generate(ctrl, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(a.Y, b.Y) || !mat.Equal(a.Z, b.Z) {
		t.Error("same seed produced different series")
	}

	cfg.Seed = 6
	c, err := testDiscrete().Generate(ctrl, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if mat.Equal(a.Y, c.Y) {
		t.Error("different seeds produced identical series")
	}
}

func TestDiscreteNoiselessMatchesManualRecursion(t *testing.T) {
	d := testDiscrete()
	ctrl := []func(float64) float64{signal.Step(1, 0)}
	s, err := d.Generate(ctrl, Config{T: 20, Ts: 1, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}

	x := mat.NewVecDense(2, nil)
	var tmp, next mat.VecDense
	u := mat.NewVecDense(1, []float64{1})
	for k := 0; k < 20; k++ {
		if diff := math.Abs(s.Y.At(k, 0) - x.AtVec(0)); diff > 1e-12 {
			t.Fatalf("y(%d) off by %v", k, diff)
		}
		if diff := math.Abs(s.Z.At(k, 0) - (x.AtVec(0) - x.AtVec(1))); diff > 1e-12 {
			t.Fatalf("z(%d) off by %v", k, diff)
		}
		next.MulVec(d.A, x)
		tmp.MulVec(d.B, u)
		next.AddVec(&next, &tmp)
		x.CopyVec(&next)
	}
}

func TestDiscreteGenerateRejectsControlMismatch(t *testing.T) {
	if _, err := testDiscrete().Generate(nil, Config{T: 10, Ts: 1}); err == nil {
		t.Error("expected error for missing control functions")
	}
}

func TestContinuousSamplesControls(t *testing.T) {
	input := []signal.VectorFunction{
		signal.NewInput(signal.Sine(1, 0.5, 0), mat.NewVecDense(2, []float64{1, 0})),
	}
	model := ssm.NewDampedRotation(1, 0.5, input)
	behavior := mat.NewDense(1, 2, []float64{1, 0})
	cfg := Config{T: 100, Ts: 0.01, Seed: 3}

	s, err := Continuous(model, behavior, cfg)
	if err != nil {
		t.Fatal(err)
	}
	for k := 0; k < 100; k++ {
		want := math.Sin(2 * math.Pi * 0.5 * (float64(k) * cfg.Ts))
		if diff := math.Abs(s.U.At(k, 0) - want); diff > 1e-12 {
			t.Fatalf("control sample %d off by %v", k, diff)
		}
	}
}

func TestContinuousBehaviorConsistentWithObservation(t *testing.T) {
	// The damped rotation observes the full state, so with behavior map
	// [1 0] the z channel must equal the first y channel when no noise is
	// injected.
	input := []signal.VectorFunction{
		signal.NewInput(signal.Step(1, 0), mat.NewVecDense(2, []float64{1, 0})),
	}
	model := ssm.NewDampedRotation(1, 0.5, input)
	behavior := mat.NewDense(1, 2, []float64{1, 0})

	s, err := Continuous(model, behavior, Config{T: 50, Ts: 0.05, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	var nonzero bool
	for k := 0; k < 50; k++ {
		if diff := math.Abs(s.Z.At(k, 0) - s.Y.At(k, 0)); diff > 1e-12 {
			t.Fatalf("z(%d) = %v, y0(%d) = %v", k, s.Z.At(k, 0), k, s.Y.At(k, 0))
		}
		if s.Y.At(k, 0) != 0 {
			nonzero = true
		}
	}
	if !nonzero {
		t.Error("driven system never left the origin")
	}
}

func TestContinuousRejectsModelWithoutInputs(t *testing.T) {
	A := mat.NewDense(1, 1, []float64{-1})
	C := mat.NewDense(1, 1, []float64{1})
	model := ssm.NewLinearStateSpaceModel(A, C, nil)
	if _, err := Continuous(model, mat.NewDense(1, 1, []float64{1}), Config{T: 10, Ts: 0.1}); err == nil {
		t.Error("expected error for model with no input functions")
	}
}

func TestContinuousRejectsBadBehaviorMap(t *testing.T) {
	input := []signal.VectorFunction{
		signal.NewInput(signal.Step(1, 0), mat.NewVecDense(2, []float64{1, 0})),
	}
	model := ssm.NewDampedRotation(1, 0.5, input)
	if _, err := Continuous(model, mat.NewDense(1, 3, nil), Config{T: 10, Ts: 0.1}); err == nil {
		t.Error("expected error for behavior map with wrong width")
	}
}
