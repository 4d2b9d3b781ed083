package train

import (
	"fmt"
	"math/rand"

	log "github.com/sirupsen/logrus"

	"github.com/felolivee/CLOC-RNN-IPSID/dataset"
	"github.com/felolivee/CLOC-RNN-IPSID/ssm"
)

// Options configures the two-stage identification pipeline. Stage one
// learns the behavior-relevant latent states by minimizing the behavior
// loss; stage two, when NeuralStates is positive, learns residual
// observation dynamics from [y ; x1] with stage one frozen.
type Options struct {
	BehaviorStates int
	// NeuralStates disables the second stage when zero.
	NeuralStates int
	// Nonlinear selects MLP readouts instead of linear projections.
	Nonlinear bool

	Stage1   Config
	Stage2   Config
	Readouts Config

	// Seed drives parameter initialization.
	Seed int64
}

// Result bundles the fitted system with the loss histories of each fit.
type Result struct {
	System              *ssm.System
	Stage1Loss          []float64
	Stage2Loss          []float64
	ObsReadoutLoss      []float64
	BehaviorReadoutLoss []float64
}

// FinalLoss returns the last epoch loss of the last stage that was
// fitted, the number a checkpoint records.
func (r *Result) FinalLoss() float64 {
	if n := len(r.Stage2Loss); n > 0 {
		return r.Stage2Loss[n-1]
	}
	if n := len(r.Stage1Loss); n > 0 {
		return r.Stage1Loss[n-1]
	}
	return 0
}

func (o Options) newReadout(nx, nd int, rng *rand.Rand) ssm.Readout {
	if o.Nonlinear {
		return ssm.NewMLPReadout(nx, nd, rng)
	}
	return ssm.NewLinearReadout(nx, nd, rng)
}

// FitSystem runs the full pipeline on a series.
func FitSystem(s *dataset.Series, opts Options) (*Result, error) {
	if opts.BehaviorStates < 1 {
		return nil, fmt.Errorf("train: behavior state count must be positive, got %d", opts.BehaviorStates)
	}
	ny, nu, nz := s.Dims()
	rng := rand.New(rand.NewSource(opts.Seed))

	res := &Result{System: &ssm.System{}}

	// Stage 1: behavior-relevant dynamics.
	behavior := ssm.NewModel(
		ssm.NewRandomCell(opts.BehaviorStates, ny, nu, rng),
		opts.newReadout(opts.BehaviorStates, nz, rng),
	)
	log.WithFields(log.Fields{
		"states":  opts.BehaviorStates,
		"epochs":  opts.Stage1.Epochs,
		"horizon": opts.Stage1.Horizon,
	}).Info("fitting behavior stage")
	loss, err := Fit(behavior, s.Y, s.U, s.Z, opts.Stage1)
	if err != nil {
		return nil, fmt.Errorf("behavior stage: %w", err)
	}
	res.System.Behavior = behavior
	res.Stage1Loss = loss

	// Frozen behavior states over the whole series.
	x1, _, err := behavior.Run(s.Y, s.U)
	if err != nil {
		return nil, err
	}
	X1 := ssm.StateMatrix(x1)

	// Auxiliary observation readout from the behavior states.
	obsOut := opts.newReadout(opts.BehaviorStates, ny, rng)
	loss, err = FitReadout(obsOut, X1, s.Y, opts.Readouts)
	if err != nil {
		return nil, fmt.Errorf("observation readout: %w", err)
	}
	res.System.ObsFromBehavior = obsOut
	res.ObsReadoutLoss = loss

	if opts.NeuralStates < 1 {
		return res, nil
	}

	// Stage 2: residual observation dynamics, driven by [y ; x1].
	W2 := ssm.DriveWithStates(s.Y, x1)
	neural := ssm.NewModel(
		ssm.NewRandomCell(opts.NeuralStates, ny+opts.BehaviorStates, nu, rng),
		opts.newReadout(opts.NeuralStates, ny, rng),
	)
	log.WithFields(log.Fields{
		"states":  opts.NeuralStates,
		"epochs":  opts.Stage2.Epochs,
		"horizon": opts.Stage2.Horizon,
	}).Info("fitting neural stage")
	loss, err = Fit(neural, W2, s.U, s.Y, opts.Stage2)
	if err != nil {
		return nil, fmt.Errorf("neural stage: %w", err)
	}
	res.System.Neural = neural
	res.Stage2Loss = loss

	// Auxiliary behavior readout from the neural states.
	x2, _, err := neural.Run(W2, s.U)
	if err != nil {
		return nil, err
	}
	X2 := ssm.StateMatrix(x2)
	behaviorOut := opts.newReadout(opts.NeuralStates, nz, rng)
	loss, err = FitReadout(behaviorOut, X2, s.Z, opts.Readouts)
	if err != nil {
		return nil, fmt.Errorf("behavior readout: %w", err)
	}
	res.System.BehaviorFromNeural = behaviorOut
	res.BehaviorReadoutLoss = loss

	return res, nil
}
