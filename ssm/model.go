package ssm

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Model is one stage of the identification pipeline: a recurrent cell
// together with the readout that its latent states are trained against.
type Model struct {
	Cell *Cell
	Out  Readout
}

// NewModel pairs a cell with a readout. The readout input must match the
// cell's state order.
func NewModel(cell *Cell, out Readout) *Model {
	if out.InDim() != cell.StateOrder() {
		panic(errors.New("ssm: readout input doesn't match cell state order"))
	}
	return &Model{cell, out}
}

// Shadow returns a zero-valued model of the same shape for gradient
// accumulation.
func (m *Model) Shadow() *Model {
	return &Model{m.Cell.Shadow(), m.Out.Shadow()}
}

// RawSlices exposes all parameter backing arrays, cell first.
func (m *Model) RawSlices() [][]float64 {
	return append(m.Cell.RawSlices(), m.Out.RawSlices()...)
}

// Run unrolls the recursion over the rows of W (driving observations) and
// U (controls) starting from x(0) = 0. It returns the latent states
// x(0)..x(T-1) and the readout applied to each state. The readout at step
// t sees the state accumulated before the step to t+1.
func (m *Model) Run(W, U mat.Matrix) ([]*mat.VecDense, *mat.Dense, error) {
	T, nw := W.Dims()
	tu, nu := U.Dims()
	if tu != T {
		return nil, nil, fmt.Errorf("ssm: drive has %d rows, control has %d", T, tu)
	}
	if nw != m.Cell.DriveOrder() || nu != m.Cell.ControlOrder() {
		return nil, nil, fmt.Errorf("ssm: drive/control widths (%d, %d) don't match cell (%d, %d)",
			nw, nu, m.Cell.DriveOrder(), m.Cell.ControlOrder())
	}

	nx := m.Cell.StateOrder()
	states := make([]*mat.VecDense, T)
	preds := mat.NewDense(T, m.Out.OutDim(), nil)

	x := mat.NewVecDense(nx, nil)
	w := mat.NewVecDense(nw, nil)
	u := mat.NewVecDense(nu, nil)
	for t := 0; t < T; t++ {
		states[t] = mat.NewVecDense(nx, nil)
		states[t].CopyVec(x)
		preds.SetRow(t, m.Out.Forward(x).RawVector().Data)
		if t < T-1 {
			mat.Row(w.RawVector().Data, t, W)
			mat.Row(u.RawVector().Data, t, U)
			next := mat.NewVecDense(nx, nil)
			m.Cell.Step(x, w, u, next)
			x = next
		}
	}
	return states, preds, nil
}

// StateMatrix stacks latent states as rows of a dense matrix.
func StateMatrix(states []*mat.VecDense) *mat.Dense {
	if len(states) == 0 {
		panic(errors.New("ssm: no states to stack"))
	}
	nx := states[0].Len()
	out := mat.NewDense(len(states), nx, nil)
	for t, x := range states {
		out.SetRow(t, x.RawVector().Data)
	}
	return out
}
