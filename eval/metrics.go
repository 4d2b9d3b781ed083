// Package eval scores fitted systems against ground truth, both in
// one-step prediction and in open-loop simulation, and renders comparison
// plots.
package eval

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Metrics holds per-channel prediction scores.
type Metrics struct {
	RMSE []float64
	R2   []float64
	Corr []float64
}

// Score compares predictions against truth row by row.
func Score(pred, truth mat.Matrix) (*Metrics, error) {
	tp, np := pred.Dims()
	tt, nt := truth.Dims()
	if tp != tt || np != nt {
		return nil, fmt.Errorf("eval: prediction is %dx%d, truth is %dx%d", tp, np, tt, nt)
	}
	if tp == 0 {
		return nil, fmt.Errorf("eval: nothing to score")
	}

	m := &Metrics{
		RMSE: make([]float64, np),
		R2:   make([]float64, np),
		Corr: make([]float64, np),
	}
	p := make([]float64, tp)
	q := make([]float64, tp)
	for j := 0; j < np; j++ {
		mat.Col(p, j, pred)
		mat.Col(q, j, truth)

		var sse float64
		for i := range p {
			d := p[i] - q[i]
			sse += d * d
		}
		m.RMSE[j] = math.Sqrt(sse / float64(tp))

		mean := stat.Mean(q, nil)
		var sst float64
		for i := range q {
			d := q[i] - mean
			sst += d * d
		}
		if sst > 0 {
			m.R2[j] = 1. - sse/sst
		} else {
			m.R2[j] = math.NaN()
		}
		m.Corr[j] = stat.Correlation(p, q, nil)
	}
	return m, nil
}

// MeanRMSE averages the per-channel RMSE.
func (m *Metrics) MeanRMSE() float64 {
	return stat.Mean(m.RMSE, nil)
}

// MeanR2 averages the per-channel R2, skipping undefined channels.
func (m *Metrics) MeanR2() float64 {
	var sum float64
	var n int
	for _, v := range m.R2 {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
