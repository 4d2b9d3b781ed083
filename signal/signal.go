// Package signal provides the scalar excitation sources used to drive
// synthetic systems. A VectorFunction pairs a scalar function of time with
// an input vector, so that in
//
// x'(t) = A x(t) + B u(t)
//
// the term B u(t) is represented as a vector B and a scalar function u(t).
package signal

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// VectorFunction is an input abstraction that associates each time
// argument with a vector valued output.
type VectorFunction struct {
	U func(float64) float64
	B *mat.VecDense
}

// Bu is an alias in the state space model:
//
// Ax + Bu(t)
// where Bu(t) is a vectorial function
func (vf VectorFunction) Bu(t float64) *mat.VecDense {
	return vf.Value(t)
}

// Value returns the vectorial function value
func (vf VectorFunction) Value(t float64) *mat.VecDense {
	var res mat.VecDense
	res.CloneFromVec(vf.B)
	res.ScaleVec(vf.U(t), &res)
	return &res
}

// NewInput returns a new VectorFunction initalised with u(t) and B
func NewInput(u func(float64) float64, B *mat.VecDense) VectorFunction {
	return VectorFunction{u, B}
}

// Sine returns amp * sin(2 pi freq t + phase).
func Sine(amp, freq, phase float64) func(float64) float64 {
	return func(t float64) float64 {
		return amp * math.Sin(2.*math.Pi*freq*t+phase)
	}
}

// Step returns a step of height amp switching on at t0.
func Step(amp, t0 float64) func(float64) float64 {
	return func(t float64) float64 {
		if t < t0 {
			return 0.
		}
		return amp
	}
}

// WhiteNoise returns a zero-mean Gaussian source with standard deviation
// sigma. The source ignores t and draws from rng on every call, so it is
// only meaningful when sampled once per time step in order.
func WhiteNoise(sigma float64, rng *rand.Rand) func(float64) float64 {
	return func(float64) float64 {
		return sigma * rng.NormFloat64()
	}
}
