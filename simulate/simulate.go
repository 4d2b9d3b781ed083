// Package simulate generates synthetic identification series from known
// ground-truth systems, either a discrete-time recursion or a
// continuous-time model integrated between sampling instants.
package simulate

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/felolivee/CLOC-RNN-IPSID/dataset"
	"github.com/felolivee/CLOC-RNN-IPSID/ode"
	"github.com/felolivee/CLOC-RNN-IPSID/ssm"
)

// Config controls a generation run.
type Config struct {
	// T is the number of samples.
	T int
	// Ts is the sampling period.
	Ts float64
	// ProcessNoise and ObsNoise are standard deviations added to the
	// state update and the recorded y/z channels.
	ProcessNoise float64
	ObsNoise     float64
	Seed         int64
	// Substeps per sampling interval for continuous integration; 0
	// means 4.
	Substeps int
}

// Discrete is a ground-truth discrete-time system
//
// x(t+1) = A x(t) + B u(t) + w(t)
//
// y(t) = C x(t) + v(t), z(t) = D x(t) + v'(t)
type Discrete struct {
	A, B, C, D *mat.Dense
}

// Generate runs the recursion for cfg.T steps, sampling each control
// function at t = i*Ts.
func (d *Discrete) Generate(controls []func(float64) float64, cfg Config) (*dataset.Series, error) {
	nx, _ := d.A.Dims()
	_, nu := d.B.Dims()
	if len(controls) != nu {
		return nil, fmt.Errorf("simulate: %d control functions for %d control channels", len(controls), nu)
	}
	if cfg.T < 1 {
		return nil, errors.New("simulate: sample count must be positive")
	}
	ny, _ := d.C.Dims()
	nz, _ := d.D.Dims()
	rng := rand.New(rand.NewSource(cfg.Seed))

	Y := mat.NewDense(cfg.T, ny, nil)
	U := mat.NewDense(cfg.T, nu, nil)
	Z := mat.NewDense(cfg.T, nz, nil)

	x := mat.NewVecDense(nx, nil)
	u := mat.NewVecDense(nu, nil)
	var tmp, next mat.VecDense
	for t := 0; t < cfg.T; t++ {
		now := float64(t) * cfg.Ts
		for j, ctrl := range controls {
			u.SetVec(j, ctrl(now))
		}
		U.SetRow(t, u.RawVector().Data)
		observe(Y, t, d.C, x, cfg.ObsNoise, rng)
		observe(Z, t, d.D, x, cfg.ObsNoise, rng)

		next.MulVec(d.A, x)
		tmp.MulVec(d.B, u)
		next.AddVec(&next, &tmp)
		for i := 0; i < nx; i++ {
			next.SetVec(i, next.AtVec(i)+cfg.ProcessNoise*rng.NormFloat64())
		}
		x.CopyVec(&next)
	}
	return dataset.NewSeries(Y, U, Z)
}

// Continuous integrates a continuous-time model with RK4 between samples
// and records its sampled observations. The model's input functions are
// recorded as the control channels; behavior maps the state to z.
func Continuous(model *ssm.LinearStateSpaceModel, behavior *mat.Dense, cfg Config) (*dataset.Series, error) {
	if cfg.T < 1 {
		return nil, errors.New("simulate: sample count must be positive")
	}
	if cfg.Ts <= 0 {
		return nil, errors.New("simulate: sampling period must be positive")
	}
	substeps := cfg.Substeps
	if substeps < 1 {
		substeps = 4
	}

	nx := model.StateSpaceOrder()
	ny := model.ObservationSpaceOrder()
	nu := len(model.Input)
	if nu == 0 {
		return nil, errors.New("simulate: model has no input functions to record as controls")
	}
	nz, nbc := behavior.Dims()
	if nbc != nx {
		return nil, fmt.Errorf("simulate: behavior map has %d columns, state order is %d", nbc, nx)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	rk := ode.NewRK4()

	Y := mat.NewDense(cfg.T, ny, nil)
	U := mat.NewDense(cfg.T, nu, nil)
	Z := mat.NewDense(cfg.T, nz, nil)

	x := mat.NewVecDense(nx, nil)
	for t := 0; t < cfg.T; t++ {
		now := float64(t) * cfg.Ts
		for j, inp := range model.Input {
			U.Set(t, j, inp.U(now))
		}
		observe(Y, t, model.C, x, cfg.ObsNoise, rng)
		observe(Z, t, behavior, x, cfg.ObsNoise, rng)

		if err := rk.Integrate(now, now+cfg.Ts, substeps, x, model); err != nil {
			return nil, err
		}
		for i := 0; i < nx; i++ {
			x.SetVec(i, x.AtVec(i)+cfg.ProcessNoise*rng.NormFloat64())
		}
	}
	return dataset.NewSeries(Y, U, Z)
}

func observe(dst *mat.Dense, t int, proj mat.Matrix, x mat.Vector, noise float64, rng *rand.Rand) {
	m, _ := proj.Dims()
	row := mat.NewVecDense(m, nil)
	row.MulVec(proj, x)
	for i := 0; i < m; i++ {
		row.SetVec(i, row.AtVec(i)+noise*rng.NormFloat64())
	}
	dst.SetRow(t, row.RawVector().Data)
}
