// Package ssm implements the discrete-time state-space models that are
// fitted by the train package. The central recursion is
//
// x(t+1) = A x(t) + K w(t) + B u(t) + b
//
// where w(t) is the driving observation vector and u(t) the control. A
// readout maps the latent state x(t) to a prediction.
package ssm

import (
	"errors"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/felolivee/CLOC-RNN-IPSID/gonumx"
)

// Cell is the recurrent affine map of one model stage.
type Cell struct {
	// State transition
	A *mat.Dense
	// Correction gain applied to the driving observation
	K *mat.Dense
	// Control matrix
	B *mat.Dense
	// Affine term
	Bias *mat.VecDense
}

// NewCell returns a cell with the given weights. All dimensions must be
// consistent with A being (nx by nx).
func NewCell(A, K, B *mat.Dense, bias *mat.VecDense) *Cell {
	m, n := A.Dims()
	mK, _ := K.Dims()
	mB, _ := B.Dims()
	if m != n || mK != m || mB != m || bias.Len() != m {
		panic(errors.New("ssm: cell parameters don't match"))
	}
	return &Cell{A, K, B, bias}
}

// NewRandomCell returns a cell with nx latent states driven by nw
// observation channels and nu controls, initialized with the affine-layer
// scheme from gonumx.
func NewRandomCell(nx, nw, nu int, rng *rand.Rand) *Cell {
	return &Cell{
		A:    gonumx.LinearInit(nx, nx, rng),
		K:    gonumx.LinearInit(nx, nw, rng),
		B:    gonumx.LinearInit(nx, nu, rng),
		Bias: gonumx.LinearInitVec(nx, nx, rng),
	}
}

// StateOrder returns the latent state dimension.
func (c *Cell) StateOrder() int {
	m, _ := c.A.Dims()
	return m
}

// DriveOrder returns the dimension of the driving observation vector.
func (c *Cell) DriveOrder() int {
	_, n := c.K.Dims()
	return n
}

// ControlOrder returns the control dimension.
func (c *Cell) ControlOrder() int {
	_, n := c.B.Dims()
	return n
}

// Step writes A x + K w + B u + b into next. The next vector must have
// length StateOrder.
func (c *Cell) Step(x, w, u mat.Vector, next *mat.VecDense) {
	var tmp mat.VecDense
	next.MulVec(c.A, x)
	tmp.MulVec(c.K, w)
	next.AddVec(next, &tmp)
	tmp.MulVec(c.B, u)
	next.AddVec(next, &tmp)
	next.AddVec(next, c.Bias)
}

// Backward accumulates into g the gradients of the step at (x, w, u) given
// dnext, the loss gradient with respect to the step's output. It writes
// A' dnext, the gradient with respect to x through the step, into dx.
func (c *Cell) Backward(x, w, u mat.Vector, dnext mat.Vector, g *Cell, dx *mat.VecDense) {
	g.A.RankOne(g.A, 1, dnext, x)
	g.K.RankOne(g.K, 1, dnext, w)
	g.B.RankOne(g.B, 1, dnext, u)
	g.Bias.AddVec(g.Bias, dnext)
	dx.MulVec(c.A.T(), dnext)
}

// Shadow returns a zero-valued cell of the same shape, used to accumulate
// gradients during fitting.
func (c *Cell) Shadow() *Cell {
	m, _ := c.A.Dims()
	_, nw := c.K.Dims()
	_, nu := c.B.Dims()
	return &Cell{
		A:    mat.NewDense(m, m, nil),
		K:    mat.NewDense(m, nw, nil),
		B:    mat.NewDense(m, nu, nil),
		Bias: mat.NewVecDense(m, nil),
	}
}

// RawSlices exposes the backing arrays of the cell parameters, in a fixed
// order shared with Shadow, for use by optimizers.
func (c *Cell) RawSlices() [][]float64 {
	return [][]float64{
		c.A.RawMatrix().Data,
		c.K.RawMatrix().Data,
		c.B.RawMatrix().Data,
		c.Bias.RawVector().Data,
	}
}
