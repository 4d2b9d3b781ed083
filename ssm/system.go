package ssm

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// System is the fitted two-stage composition. The behavior stage is driven
// by the observations y and read out into the behavior signal z. The
// optional neural stage is driven by [y ; x1] and read out into y itself,
// capturing dynamics the first stage left behind. The auxiliary readouts
// regress the opposite signal from each stage's frozen states.
type System struct {
	Behavior *Model
	Neural   *Model
	// ObsFromBehavior predicts y from the behavior states.
	ObsFromBehavior Readout
	// BehaviorFromNeural predicts z from the neural states.
	BehaviorFromNeural Readout
}

// Prediction holds one-step predictions and the latent trajectories they
// were read from.
type Prediction struct {
	// Z is the behavior predicted by the behavior stage.
	Z *mat.Dense
	// Y is the observation prediction (neural stage when present,
	// otherwise the auxiliary readout).
	Y *mat.Dense
	// Z2 is the behavior re-predicted from the neural states, when the
	// auxiliary readout exists.
	Z2 *mat.Dense
	// X1 and X2 are the latent state trajectories.
	X1, X2 *mat.Dense
}

// Predict replays the recursion one step at a time feeding the observed
// y, the closed-loop prediction mode.
func (s *System) Predict(Y, U mat.Matrix) (*Prediction, error) {
	if s.Behavior == nil {
		return nil, errors.New("ssm: system has no behavior stage")
	}
	x1, z1, err := s.Behavior.Run(Y, U)
	if err != nil {
		return nil, err
	}
	pred := &Prediction{Z: z1, X1: StateMatrix(x1)}

	_, ny := Y.Dims()
	if s.Neural != nil {
		W2 := DriveWithStates(Y, x1)
		x2, y2, err := s.Neural.Run(W2, U)
		if err != nil {
			return nil, err
		}
		pred.Y = y2
		pred.X2 = StateMatrix(x2)
		if s.BehaviorFromNeural != nil {
			pred.Z2 = applyReadout(s.BehaviorFromNeural, x2)
		}
	} else if s.ObsFromBehavior != nil {
		pred.Y = applyReadout(s.ObsFromBehavior, x1)
	} else if s.Behavior.Out.OutDim() == ny {
		// Single-stage system trained directly against y.
		pred.Y = z1
	}
	return pred, nil
}

// Simulate filters closed loop through the first start steps, then runs
// open loop for h steps feeding its own observation predictions back in
// place of y. Controls stay observed throughout. It returns the simulated
// observations and behavior for the open-loop span.
func (s *System) Simulate(Y, U mat.Matrix, start, h int) (ysim, zsim *mat.Dense, err error) {
	if s.Behavior == nil {
		return nil, nil, errors.New("ssm: system has no behavior stage")
	}
	T, ny := Y.Dims()
	if start < 0 || h < 1 || start+h > T {
		return nil, nil, fmt.Errorf("ssm: simulation span [%d, %d) outside series of length %d", start, start+h, T)
	}
	if !s.canPredictObservations(ny) {
		return nil, nil, errors.New("ssm: system has no observation readout to feed back")
	}

	nx1 := s.Behavior.Cell.StateOrder()
	x1 := mat.NewVecDense(nx1, nil)
	var x2 *mat.VecDense
	if s.Neural != nil {
		x2 = mat.NewVecDense(s.Neural.Cell.StateOrder(), nil)
	}

	ysim = mat.NewDense(h, ny, nil)
	zsim = mat.NewDense(h, s.Behavior.Out.OutDim(), nil)

	y := mat.NewVecDense(ny, nil)
	u := mat.NewVecDense(s.Behavior.Cell.ControlOrder(), nil)
	for t := 0; t < start+h; t++ {
		open := t >= start
		if open {
			yhat := s.predictObservation(x1, x2)
			y.CopyVec(yhat)
			ysim.SetRow(t-start, yhat.RawVector().Data)
			zsim.SetRow(t-start, s.Behavior.Out.Forward(x1).RawVector().Data)
		} else {
			mat.Row(y.RawVector().Data, t, Y)
		}
		mat.Row(u.RawVector().Data, t, U)

		next1 := mat.NewVecDense(nx1, nil)
		s.Behavior.Cell.Step(x1, y, u, next1)
		if s.Neural != nil {
			w2 := concatVec(y, x1)
			next2 := mat.NewVecDense(x2.Len(), nil)
			s.Neural.Cell.Step(x2, w2, u, next2)
			x2 = next2
		}
		x1 = next1
	}
	return ysim, zsim, nil
}

func (s *System) canPredictObservations(ny int) bool {
	switch {
	case s.Neural != nil:
		return s.Neural.Out.OutDim() == ny
	case s.ObsFromBehavior != nil:
		return s.ObsFromBehavior.OutDim() == ny
	default:
		return s.Behavior.Out.OutDim() == ny
	}
}

func (s *System) predictObservation(x1, x2 *mat.VecDense) *mat.VecDense {
	switch {
	case s.Neural != nil:
		return s.Neural.Out.Forward(x2)
	case s.ObsFromBehavior != nil:
		return s.ObsFromBehavior.Forward(x1)
	default:
		return s.Behavior.Out.Forward(x1)
	}
}

// DriveWithStates builds the stage-two drive matrix with rows
// [y(t) ; x1(t)], observations first.
func DriveWithStates(Y mat.Matrix, states []*mat.VecDense) *mat.Dense {
	T, ny := Y.Dims()
	nx := states[0].Len()
	W := mat.NewDense(T, ny+nx, nil)
	row := make([]float64, ny)
	for t := 0; t < T; t++ {
		mat.Row(row, t, Y)
		for j, v := range row {
			W.Set(t, j, v)
		}
		for j := 0; j < nx; j++ {
			W.Set(t, ny+j, states[t].AtVec(j))
		}
	}
	return W
}

func applyReadout(r Readout, states []*mat.VecDense) *mat.Dense {
	out := mat.NewDense(len(states), r.OutDim(), nil)
	for t, x := range states {
		out.SetRow(t, r.Forward(x).RawVector().Data)
	}
	return out
}

func concatVec(a, b *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(a.Len()+b.Len(), nil)
	for i := 0; i < a.Len(); i++ {
		out.SetVec(i, a.AtVec(i))
	}
	for i := 0; i < b.Len(); i++ {
		out.SetVec(a.Len()+i, b.AtVec(i))
	}
	return out
}
