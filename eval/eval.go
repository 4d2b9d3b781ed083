package eval

import (
	"github.com/felolivee/CLOC-RNN-IPSID/dataset"
	"github.com/felolivee/CLOC-RNN-IPSID/ssm"
)

// Report bundles the scores of one evaluation pass.
type Report struct {
	// Behavior and Observation score the one-step predictions.
	Behavior    *Metrics
	Observation *Metrics
	// SimObservation and SimBehavior score the open-loop simulation;
	// nil when simulation was not requested.
	SimObservation *Metrics
	SimBehavior    *Metrics

	Prediction *ssm.Prediction
}

// OneStep replays the fitted system closed loop over the series and
// scores its one-step predictions.
func OneStep(sys *ssm.System, s *dataset.Series) (*Report, error) {
	pred, err := sys.Predict(s.Y, s.U)
	if err != nil {
		return nil, err
	}
	rep := &Report{Prediction: pred}
	if pred.Z != nil {
		if rep.Behavior, err = Score(pred.Z, s.Z); err != nil {
			return nil, err
		}
	}
	if pred.Y != nil {
		if rep.Observation, err = Score(pred.Y, s.Y); err != nil {
			return nil, err
		}
	}
	return rep, nil
}

// Simulated warms the system up closed loop for start steps, then open-loop
// simulates h steps and scores them against the recorded span.
func Simulated(sys *ssm.System, s *dataset.Series, start, h int) (*Report, error) {
	ysim, zsim, err := sys.Simulate(s.Y, s.U, start, h)
	if err != nil {
		return nil, err
	}
	_, ny := s.Y.Dims()
	_, nz := s.Z.Dims()

	rep := &Report{}
	ytruth := s.Y.Slice(start, start+h, 0, ny)
	if rep.SimObservation, err = Score(ysim, ytruth); err != nil {
		return nil, err
	}
	if _, zc := zsim.Dims(); zc == nz {
		ztruth := s.Z.Slice(start, start+h, 0, nz)
		if rep.SimBehavior, err = Score(zsim, ztruth); err != nil {
			return nil, err
		}
	}
	return rep, nil
}
