package train

import (
	"math"
)

// Optimizer applies one update to the raw parameter slices given matching
// gradient slices.
type Optimizer interface {
	Step(params, grads [][]float64)
}

// SGD is stochastic gradient descent with classical momentum.
type SGD struct {
	LearnRate float64
	Momentum  float64

	velocity [][]float64
}

// NewSGD returns an SGD optimizer.
func NewSGD(learnRate, momentum float64) *SGD {
	return &SGD{LearnRate: learnRate, Momentum: momentum}
}

func (o *SGD) Step(params, grads [][]float64) {
	if o.velocity == nil {
		o.velocity = zerosLike(params)
	}
	for i, p := range params {
		v := o.velocity[i]
		g := grads[i]
		for j := range p {
			v[j] = o.Momentum*v[j] + g[j]
			p[j] -= o.LearnRate * v[j]
		}
	}
}

// Adam implements the Adam update rule with bias correction.
type Adam struct {
	LearnRate float64
	Beta1     float64
	Beta2     float64
	Eps       float64

	m, v [][]float64
	t    int
}

// NewAdam returns an Adam optimizer with the usual moment defaults.
func NewAdam(learnRate float64) *Adam {
	return &Adam{LearnRate: learnRate, Beta1: 0.9, Beta2: 0.999, Eps: 1e-8}
}

func (o *Adam) Step(params, grads [][]float64) {
	if o.m == nil {
		o.m = zerosLike(params)
		o.v = zerosLike(params)
	}
	o.t++
	c1 := 1. - math.Pow(o.Beta1, float64(o.t))
	c2 := 1. - math.Pow(o.Beta2, float64(o.t))
	for i, p := range params {
		m := o.m[i]
		v := o.v[i]
		g := grads[i]
		for j := range p {
			m[j] = o.Beta1*m[j] + (1.-o.Beta1)*g[j]
			v[j] = o.Beta2*v[j] + (1.-o.Beta2)*g[j]*g[j]
			mhat := m[j] / c1
			vhat := v[j] / c2
			p[j] -= o.LearnRate * mhat / (math.Sqrt(vhat) + o.Eps)
		}
	}
}

func zerosLike(params [][]float64) [][]float64 {
	out := make([][]float64, len(params))
	for i, p := range params {
		out[i] = make([]float64, len(p))
	}
	return out
}

func zeroSlices(grads [][]float64) {
	for _, g := range grads {
		for j := range g {
			g[j] = 0
		}
	}
}

// clipByGlobalNorm rescales grads so their joint Euclidean norm does not
// exceed limit. A limit of zero disables clipping.
func clipByGlobalNorm(grads [][]float64, limit float64) {
	if limit <= 0 {
		return
	}
	var sum float64
	for _, g := range grads {
		for _, v := range g {
			sum += v * v
		}
	}
	norm := math.Sqrt(sum)
	if norm <= limit {
		return
	}
	scale := limit / norm
	for _, g := range grads {
		for j := range g {
			g[j] *= scale
		}
	}
}
