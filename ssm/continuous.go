package ssm

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/felolivee/CLOC-RNN-IPSID/signal"
)

// LinearStateSpaceModel is a continuous-time linear system
//
// x'(t) = A x(t) + B input[0](t) ... + B input[N](t)
//
// y(t) = C x(t)
//
// sampled by the simulate package to produce ground-truth series.
type LinearStateSpaceModel struct {
	// State Dynamics
	A mat.Matrix
	// Observation matrix
	C mat.Matrix
	// List of input functions
	Input []signal.VectorFunction
}

// NewLinearStateSpaceModel creates a new linear state space model
func NewLinearStateSpaceModel(A, C mat.Matrix, input []signal.VectorFunction) *LinearStateSpaceModel {
	m, n := A.Dims()
	_, nC := C.Dims()
	if m != n || nC != m {
		panic(errors.New("ssm: system parameters don't match"))
	}
	for _, inp := range input {
		if inp.B.Len() != m {
			panic(errors.New("ssm: input vector doesn't match state order"))
		}
	}
	return &LinearStateSpaceModel{A, C, input}
}

// NewIntegratorChain returns a linear state space model of an integrator
// chain of size N with input.
func NewIntegratorChain(N int, stageGain float64, input []signal.VectorFunction) *LinearStateSpaceModel {
	a := make([]float64, N*N)
	c := make([]float64, N)
	stride := N
	for row := 0; row < N; row++ {
		c[row] = 1
		for column := 0; column < N; column++ {
			if row == (column + 1) {
				a[row*stride+column] = stageGain
			}
		}
	}
	A := mat.NewDense(N, N, a)
	C := mat.NewDense(1, N, c)
	return NewLinearStateSpaceModel(A, C, input)
}

// NewDampedRotation returns a two-state oscillator rotating at freq Hz
// with decay rate damp, observed on both states.
func NewDampedRotation(freq, damp float64, input []signal.VectorFunction) *LinearStateSpaceModel {
	w := 2. * math.Pi * freq
	A := mat.NewDense(2, 2, []float64{-damp, -w, w, -damp})
	C := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	return NewLinearStateSpaceModel(A, C, input)
}

// Derivative returns the state derivative
// x'(t) = Ax(t) + Bu(t)
func (model *LinearStateSpaceModel) Derivative(t float64, state mat.Vector) mat.Vector {
	m, _ := model.A.Dims()
	if state.Len() != m {
		panic(errors.New("ssm: state vector doesn't match state transition matrix"))
	}
	res := mat.NewVecDense(m, nil)
	res.MulVec(model.A, state)
	for _, input := range model.Input {
		res.AddVec(res, input.Bu(t))
	}
	return res
}

// Observation returns the observed state y(t) = C x(t).
func (model *LinearStateSpaceModel) Observation(state mat.Vector) *mat.VecDense {
	mC, _ := model.C.Dims()
	res := mat.NewVecDense(mC, nil)
	res.MulVec(model.C, state)
	return res
}

// StateSpaceOrder returns the state space order
func (model *LinearStateSpaceModel) StateSpaceOrder() int {
	m, _ := model.A.Dims()
	return m
}

// ObservationSpaceOrder returns the observation space order.
func (model *LinearStateSpaceModel) ObservationSpaceOrder() int {
	m, _ := model.C.Dims()
	return m
}
