package ssm

import (
	"errors"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/felolivee/CLOC-RNN-IPSID/gonumx"
)

// Readout maps a latent state to a prediction. Backward accumulates
// parameter gradients into g, which must come from the readout's own
// Shadow, and returns the loss gradient with respect to the state.
type Readout interface {
	Forward(x mat.Vector) *mat.VecDense
	Backward(x, dy mat.Vector, g Readout) *mat.VecDense
	Shadow() Readout
	RawSlices() [][]float64
	InDim() int
	OutDim() int
}

// LinearReadout is the observation projection y = C x + d.
type LinearReadout struct {
	C *mat.Dense
	D *mat.VecDense
}

// NewLinearReadout returns a linear readout from nx states to ny outputs.
func NewLinearReadout(nx, ny int, rng *rand.Rand) *LinearReadout {
	return &LinearReadout{
		C: gonumx.LinearInit(ny, nx, rng),
		D: gonumx.LinearInitVec(ny, nx, rng),
	}
}

func (r *LinearReadout) InDim() int {
	_, n := r.C.Dims()
	return n
}

func (r *LinearReadout) OutDim() int {
	m, _ := r.C.Dims()
	return m
}

func (r *LinearReadout) Forward(x mat.Vector) *mat.VecDense {
	y := mat.NewVecDense(r.OutDim(), nil)
	y.MulVec(r.C, x)
	y.AddVec(y, r.D)
	return y
}

func (r *LinearReadout) Backward(x, dy mat.Vector, g Readout) *mat.VecDense {
	gr, ok := g.(*LinearReadout)
	if !ok {
		panic(errors.New("ssm: gradient readout type mismatch"))
	}
	gr.C.RankOne(gr.C, 1, dy, x)
	gr.D.AddVec(gr.D, dy)
	dx := mat.NewVecDense(r.InDim(), nil)
	dx.MulVec(r.C.T(), dy)
	return dx
}

func (r *LinearReadout) Shadow() Readout {
	m, n := r.C.Dims()
	return &LinearReadout{
		C: mat.NewDense(m, n, nil),
		D: mat.NewVecDense(m, nil),
	}
}

func (r *LinearReadout) RawSlices() [][]float64 {
	return [][]float64{r.C.RawMatrix().Data, r.D.RawVector().Data}
}

// MLPReadout is the nonlinear projection
//
// y = sigmoid(W2 relu(W1 x + b1) + b2)
//
// with a square hidden layer, mirroring the nonlinear observation and
// behavior readouts of the identification pipeline.
type MLPReadout struct {
	W1 *mat.Dense
	B1 *mat.VecDense
	W2 *mat.Dense
	B2 *mat.VecDense
}

// NewMLPReadout returns a nonlinear readout from nx states to ny outputs.
// The hidden layer has nx units.
func NewMLPReadout(nx, ny int, rng *rand.Rand) *MLPReadout {
	return &MLPReadout{
		W1: gonumx.LinearInit(nx, nx, rng),
		B1: gonumx.LinearInitVec(nx, nx, rng),
		W2: gonumx.LinearInit(ny, nx, rng),
		B2: gonumx.LinearInitVec(ny, nx, rng),
	}
}

func (r *MLPReadout) InDim() int {
	_, n := r.W1.Dims()
	return n
}

func (r *MLPReadout) OutDim() int {
	m, _ := r.W2.Dims()
	return m
}

// hidden computes the pre-activation a = W1 x + b1.
func (r *MLPReadout) hidden(x mat.Vector) *mat.VecDense {
	a := mat.NewVecDense(r.InDim(), nil)
	a.MulVec(r.W1, x)
	a.AddVec(a, r.B1)
	return a
}

func (r *MLPReadout) Forward(x mat.Vector) *mat.VecDense {
	a := r.hidden(x)
	for i := 0; i < a.Len(); i++ {
		if a.AtVec(i) < 0 {
			a.SetVec(i, 0)
		}
	}
	y := mat.NewVecDense(r.OutDim(), nil)
	y.MulVec(r.W2, a)
	y.AddVec(y, r.B2)
	for i := 0; i < y.Len(); i++ {
		y.SetVec(i, sigmoid(y.AtVec(i)))
	}
	return y
}

func (r *MLPReadout) Backward(x, dy mat.Vector, g Readout) *mat.VecDense {
	gr, ok := g.(*MLPReadout)
	if !ok {
		panic(errors.New("ssm: gradient readout type mismatch"))
	}

	// Recompute the forward intermediates from x.
	a := r.hidden(x)
	h := mat.NewVecDense(a.Len(), nil)
	for i := 0; i < a.Len(); i++ {
		if a.AtVec(i) > 0 {
			h.SetVec(i, a.AtVec(i))
		}
	}
	s := mat.NewVecDense(r.OutDim(), nil)
	s.MulVec(r.W2, h)
	s.AddVec(s, r.B2)

	// ds = dy * sigmoid'(s)
	ds := mat.NewVecDense(r.OutDim(), nil)
	for i := 0; i < s.Len(); i++ {
		y := sigmoid(s.AtVec(i))
		ds.SetVec(i, dy.AtVec(i)*y*(1.-y))
	}
	gr.W2.RankOne(gr.W2, 1, ds, h)
	gr.B2.AddVec(gr.B2, ds)

	// da = W2' ds masked by relu'(a)
	da := mat.NewVecDense(a.Len(), nil)
	da.MulVec(r.W2.T(), ds)
	for i := 0; i < a.Len(); i++ {
		if a.AtVec(i) <= 0 {
			da.SetVec(i, 0)
		}
	}
	gr.W1.RankOne(gr.W1, 1, da, x)
	gr.B1.AddVec(gr.B1, da)

	dx := mat.NewVecDense(r.InDim(), nil)
	dx.MulVec(r.W1.T(), da)
	return dx
}

func (r *MLPReadout) Shadow() Readout {
	m1, n1 := r.W1.Dims()
	m2, n2 := r.W2.Dims()
	return &MLPReadout{
		W1: mat.NewDense(m1, n1, nil),
		B1: mat.NewVecDense(m1, nil),
		W2: mat.NewDense(m2, n2, nil),
		B2: mat.NewVecDense(m2, nil),
	}
}

func (r *MLPReadout) RawSlices() [][]float64 {
	return [][]float64{
		r.W1.RawMatrix().Data,
		r.B1.RawVector().Data,
		r.W2.RawMatrix().Data,
		r.B2.RawVector().Data,
	}
}

func sigmoid(v float64) float64 {
	return 1. / (1. + math.Exp(-v))
}
