package eval

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/felolivee/CLOC-RNN-IPSID/dataset"
	"github.com/felolivee/CLOC-RNN-IPSID/ssm"
)

// exactSystem builds a single-stage system whose cell ignores y, together
// with a series generated by the very same recursion, so every score
// should come out perfect.
func exactSystem(T int) (*ssm.System, *dataset.Series) {
	A := mat.NewDense(2, 2, []float64{0.9, 0, 0, 0.8})
	K := mat.NewDense(2, 2, nil)
	B := mat.NewDense(2, 1, []float64{1, 0.5})
	out := &ssm.LinearReadout{
		C: mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
		D: mat.NewVecDense(2, nil),
	}
	sys := &ssm.System{Behavior: ssm.NewModel(ssm.NewCell(A, K, B, mat.NewVecDense(2, nil)), out)}

	Y := mat.NewDense(T, 2, nil)
	U := mat.NewDense(T, 1, nil)
	x := mat.NewVecDense(2, nil)
	w := mat.NewVecDense(2, nil)
	u := mat.NewVecDense(1, nil)
	for t := 0; t < T; t++ {
		u.SetVec(0, math.Sin(0.3*float64(t)))
		U.Set(t, 0, u.AtVec(0))
		Y.SetRow(t, out.Forward(x).RawVector().Data)
		next := mat.NewVecDense(2, nil)
		sys.Behavior.Cell.Step(x, w, u, next)
		x.CopyVec(next)
	}
	Z := mat.DenseCopyOf(Y)
	s, err := dataset.NewSeries(Y, U, Z)
	if err != nil {
		panic(err)
	}
	return sys, s
}

func TestOneStepPerfectSystem(t *testing.T) {
	sys, s := exactSystem(60)
	rep, err := OneStep(sys, s)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Behavior == nil || rep.Observation == nil {
		t.Fatal("expected both behavior and observation scores")
	}
	if rep.Behavior.MeanRMSE() > 1e-10 {
		t.Errorf("behavior RMSE = %v, want ~0", rep.Behavior.MeanRMSE())
	}
	if rep.Observation.MeanRMSE() > 1e-10 {
		t.Errorf("observation RMSE = %v, want ~0", rep.Observation.MeanRMSE())
	}
	if math.Abs(rep.Observation.MeanR2()-1) > 1e-10 {
		t.Errorf("observation R2 = %v, want 1", rep.Observation.MeanR2())
	}
	if rep.Prediction == nil || rep.Prediction.X1 == nil {
		t.Error("report should carry the latent trajectory")
	}
}

func TestSimulatedPerfectSystem(t *testing.T) {
	sys, s := exactSystem(60)
	rep, err := Simulated(sys, s, 20, 30)
	if err != nil {
		t.Fatal(err)
	}
	if rep.SimObservation == nil || rep.SimBehavior == nil {
		t.Fatal("expected both simulation scores")
	}
	if rep.SimObservation.MeanRMSE() > 1e-10 {
		t.Errorf("simulated observation RMSE = %v, want ~0", rep.SimObservation.MeanRMSE())
	}
	if rep.SimBehavior.MeanRMSE() > 1e-10 {
		t.Errorf("simulated behavior RMSE = %v, want ~0", rep.SimBehavior.MeanRMSE())
	}
}

func TestSimulatedRejectsBadSpan(t *testing.T) {
	sys, s := exactSystem(30)
	if _, err := Simulated(sys, s, 25, 10); err == nil {
		t.Error("expected error for span past the series end")
	}
}

func TestImperfectSystemScoresBelowPerfect(t *testing.T) {
	sys, s := exactSystem(60)
	sys.Behavior.Cell.A.Set(0, 0, 0.5)
	rep, err := OneStep(sys, s)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Observation.MeanRMSE() <= 0 {
		t.Error("perturbed system should not predict perfectly")
	}
	if rep.Observation.MeanR2() >= 1 {
		t.Error("perturbed system should lose R2")
	}
}
