// Package train fits state-space models to recorded series by gradient
// descent. Gradients are computed by backpropagation through the unrolled
// recursion over each training window.
package train

import (
	"fmt"
	"math"
	"math/rand"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/felolivee/CLOC-RNN-IPSID/dataset"
	"github.com/felolivee/CLOC-RNN-IPSID/gonumx"
	"github.com/felolivee/CLOC-RNN-IPSID/ssm"
)

// Config holds the hyperparameters of one fitting run.
type Config struct {
	// Horizon is the window length H the recursion is unrolled over.
	Horizon int
	// Stride between window starts.
	Stride int
	// BatchSize in windows; 0 means full batch.
	BatchSize int
	Epochs    int
	// Optimizer is "adam" or "sgd".
	Optimizer string
	LearnRate float64
	Momentum  float64
	// Clip bounds the global gradient norm; 0 disables.
	Clip float64
	Seed int64
	// LogEvery controls epoch logging; 0 logs every 10 epochs.
	LogEvery int
}

func (cfg Config) optimizer() (Optimizer, error) {
	switch cfg.Optimizer {
	case "", "adam":
		return NewAdam(cfg.LearnRate), nil
	case "sgd":
		return NewSGD(cfg.LearnRate, cfg.Momentum), nil
	default:
		return nil, fmt.Errorf("train: unknown optimizer %q", cfg.Optimizer)
	}
}

// Fit trains the model to predict target from the driving rows of W and
// the controls U. It returns the per-epoch mean window loss.
func Fit(m *ssm.Model, W, U, target *mat.Dense, cfg Config) ([]float64, error) {
	T, nw := W.Dims()
	tu, nu := U.Dims()
	td, nd := target.Dims()
	if tu != T || td != T {
		return nil, fmt.Errorf("train: row counts differ (drive=%d, control=%d, target=%d)", T, tu, td)
	}
	if nw != m.Cell.DriveOrder() || nu != m.Cell.ControlOrder() || nd != m.Out.OutDim() {
		return nil, fmt.Errorf("train: channel widths don't match model")
	}

	starts, err := dataset.WindowStarts(T, cfg.Horizon, cfg.Stride)
	if err != nil {
		return nil, err
	}
	opt, err := cfg.optimizer()
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	g := m.Shadow()
	params := m.RawSlices()
	grads := g.RawSlices()

	logEvery := cfg.LogEvery
	if logEvery <= 0 {
		logEvery = 10
	}

	history := make([]float64, 0, cfg.Epochs)
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		var epochLoss float64
		for _, batch := range dataset.Batches(starts, cfg.BatchSize, rng) {
			zeroSlices(grads)
			gradScale := 1. / float64(len(batch))
			for _, s := range batch {
				wb := W.Slice(s, s+cfg.Horizon, 0, nw)
				ub := U.Slice(s, s+cfg.Horizon, 0, nu)
				tb := target.Slice(s, s+cfg.Horizon, 0, nd)
				epochLoss += windowLoss(m, g, wb, ub, tb, gradScale)
			}
			clipByGlobalNorm(grads, cfg.Clip)
			opt.Step(params, grads)
		}
		epochLoss /= float64(len(starts))
		history = append(history, epochLoss)

		if math.IsNaN(epochLoss) || math.IsInf(epochLoss, 0) || gonumx.SliceNANORINF(params) {
			return history, fmt.Errorf("train: diverged at epoch %d (loss %v)", epoch, epochLoss)
		}
		if epoch%logEvery == 0 || epoch == cfg.Epochs-1 {
			log.WithFields(log.Fields{
				"epoch": epoch,
				"loss":  epochLoss,
			}).Debug("fit epoch")
		}
	}
	return history, nil
}

// windowLoss unrolls the model over one window, accumulates parameter
// gradients into g scaled by gradScale, and returns the window's mean
// squared error. The recursion starts from x(0) = 0 and the readout at
// step t sees the state before the step to t+1, so the final step of the
// window carries no gradient.
func windowLoss(m *ssm.Model, g *ssm.Model, W, U, target mat.Matrix, gradScale float64) float64 {
	h, nw := W.Dims()
	_, nu := U.Dims()
	_, nd := target.Dims()
	nx := m.Cell.StateOrder()

	states := make([]*mat.VecDense, h)
	preds := make([]*mat.VecDense, h)
	w := mat.NewVecDense(nw, nil)
	u := mat.NewVecDense(nu, nil)
	tgt := mat.NewVecDense(nd, nil)

	// Forward pass.
	var loss float64
	x := mat.NewVecDense(nx, nil)
	for t := 0; t < h; t++ {
		states[t] = x
		preds[t] = m.Out.Forward(x)
		mat.Row(tgt.RawVector().Data, t, target)
		for i := 0; i < nd; i++ {
			d := preds[t].AtVec(i) - tgt.AtVec(i)
			loss += d * d
		}
		if t < h-1 {
			mat.Row(w.RawVector().Data, t, W)
			mat.Row(u.RawVector().Data, t, U)
			next := mat.NewVecDense(nx, nil)
			m.Cell.Step(x, w, u, next)
			x = next
		}
	}
	loss /= float64(h * nd)

	// Backward pass. dnext holds dL/dx(t+1) entering iteration t.
	scale := 2. * gradScale / float64(h*nd)
	dnext := mat.NewVecDense(nx, nil)
	dy := mat.NewVecDense(nd, nil)
	dxCell := mat.NewVecDense(nx, nil)
	for t := h - 1; t >= 0; t-- {
		mat.Row(tgt.RawVector().Data, t, target)
		for i := 0; i < nd; i++ {
			dy.SetVec(i, scale*(preds[t].AtVec(i)-tgt.AtVec(i)))
		}
		dcur := m.Out.Backward(states[t], dy, g.Out)
		if t < h-1 {
			mat.Row(w.RawVector().Data, t, W)
			mat.Row(u.RawVector().Data, t, U)
			m.Cell.Backward(states[t], w, u, dnext, g.Cell, dxCell)
			dcur.AddVec(dcur, dxCell)
		}
		dnext = dcur
	}
	return loss
}

// FitReadout regresses a readout onto precomputed latent states, leaving
// the states themselves fixed. X has one state per row. It returns the
// per-epoch mean loss.
func FitReadout(r ssm.Readout, X, target *mat.Dense, cfg Config) ([]float64, error) {
	T, nx := X.Dims()
	td, nd := target.Dims()
	if td != T {
		return nil, fmt.Errorf("train: states have %d rows, target has %d", T, td)
	}
	if nx != r.InDim() || nd != r.OutDim() {
		return nil, fmt.Errorf("train: readout shape (%d -> %d) doesn't match data (%d -> %d)",
			r.InDim(), r.OutDim(), nx, nd)
	}
	opt, err := cfg.optimizer()
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	g := r.Shadow()
	params := r.RawSlices()
	grads := g.RawSlices()

	rows := make([]int, T)
	for i := range rows {
		rows[i] = i
	}

	x := mat.NewVecDense(nx, nil)
	tgt := mat.NewVecDense(nd, nil)
	dy := mat.NewVecDense(nd, nil)

	history := make([]float64, 0, cfg.Epochs)
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		var epochLoss float64
		for _, batch := range dataset.Batches(rows, cfg.BatchSize, rng) {
			zeroSlices(grads)
			scale := 2. / float64(nd*len(batch))
			for _, i := range batch {
				mat.Row(x.RawVector().Data, i, X)
				mat.Row(tgt.RawVector().Data, i, target)
				pred := r.Forward(x)
				for j := 0; j < nd; j++ {
					d := pred.AtVec(j) - tgt.AtVec(j)
					epochLoss += d * d / float64(nd)
					dy.SetVec(j, scale*d)
				}
				r.Backward(x, dy, g)
			}
			clipByGlobalNorm(grads, cfg.Clip)
			opt.Step(params, grads)
		}
		epochLoss /= float64(T)
		history = append(history, epochLoss)
		if math.IsNaN(epochLoss) || math.IsInf(epochLoss, 0) {
			return history, fmt.Errorf("train: readout fit diverged at epoch %d", epoch)
		}
	}
	return history, nil
}
