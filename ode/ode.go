// Package ode implements explicit Runge-Kutta methods,
// https://en.wikipedia.org/wiki/Runge–Kutta_methods, used to integrate
// continuous-time systems between sampling instants.
package ode

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// DifferentiableSystem is any system exposing its state derivative.
type DifferentiableSystem interface {
	Derivative(t float64, state mat.Vector) mat.Vector
}

// butcherTableau describes the approximate solution, see
// https://en.wikipedia.org/wiki/Runge–Kutta_methods.
type butcherTableau struct {
	stages           int
	weights          []float64
	nodes            []float64
	rungeKuttaMatrix [][]float64
}

// RungeKutta holds the butcherTableau which describes the Runge Kutta method.
type RungeKutta struct {
	description butcherTableau
}

// Stages returns the number of stages of the method.
func (rk RungeKutta) Stages() int { return rk.description.stages }

// Step advances state in place from t = from to t = to in a single step.
func (rk RungeKutta) Step(from, to float64, state *mat.VecDense, system DifferentiableSystem) {
	var tmp mat.VecDense

	m := state.Len()
	h := to - from
	// The precomputed derivative points
	K := make([]mat.Vector, rk.description.stages)
	for index := range K {
		tmp.CloneFromVec(state)
		// Combine previously computed derivative points according to the
		// Butcher tableau.
		for index2, a := range rk.description.rungeKuttaMatrix[index] {
			tmp.AddScaledVec(&tmp, h*a, K[index2])
		}
		K[index] = system.Derivative(from+h*rk.description.nodes[index], &tmp)
	}

	// Sum up the different contributions with relevant weights.
	res := mat.NewVecDense(m, nil)
	res.CloneFromVec(state)
	for index, k := range K {
		res.AddScaledVec(res, h*rk.description.weights[index], k)
	}
	state.CopyVec(res)
}

// Integrate advances state from t = from to t = to using steps fixed
// substeps of equal length.
func (rk RungeKutta) Integrate(from, to float64, steps int, state *mat.VecDense, system DifferentiableSystem) error {
	if steps < 1 {
		return errors.New("ode: number of substeps must be positive")
	}
	h := (to - from) / float64(steps)
	for index := 0; index < steps; index++ {
		t := from + float64(index)*h
		rk.Step(t, t+h, state, system)
	}
	return nil
}

// NewRK4 function returns a forth order Runge-Kutta object
func NewRK4() *RungeKutta {
	var temp butcherTableau
	temp.stages = 4
	temp.nodes = []float64{0, 1. / 2., 1. / 2., 1}
	temp.weights = []float64{1. / 6., 1. / 3., 1. / 3., 1. / 6.}
	temp.rungeKuttaMatrix = [][]float64{
		nil,
		{1. / 2.},
		{0, 1. / 2.},
		{0, 0, 1.},
	}
	return &RungeKutta{temp}
}

// NewEulerMethod returns a RungeKutta that does the Euler method.
func NewEulerMethod() *RungeKutta {
	var temp butcherTableau
	temp.stages = 1
	temp.nodes = []float64{0}
	temp.weights = []float64{1}
	temp.rungeKuttaMatrix = [][]float64{nil}
	return &RungeKutta{temp}
}
