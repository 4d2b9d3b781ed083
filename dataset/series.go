// Package dataset holds time-series records and the windowing used to cut
// them into overlapping training horizons.
package dataset

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Series is one recorded session: observations Y, controls U and behavior
// Z, all with one row per time step.
type Series struct {
	Y *mat.Dense
	U *mat.Dense
	Z *mat.Dense
}

// NewSeries validates that all three records cover the same number of
// time steps.
func NewSeries(y, u, z *mat.Dense) (*Series, error) {
	ty, _ := y.Dims()
	tu, _ := u.Dims()
	tz, _ := z.Dims()
	if tu != ty || tz != ty {
		return nil, fmt.Errorf("dataset: record lengths differ (y=%d, u=%d, z=%d)", ty, tu, tz)
	}
	return &Series{Y: y, U: u, Z: z}, nil
}

// Len returns the number of time steps.
func (s *Series) Len() int {
	t, _ := s.Y.Dims()
	return t
}

// Dims returns the channel counts (ny, nu, nz).
func (s *Series) Dims() (ny, nu, nz int) {
	_, ny = s.Y.Dims()
	_, nu = s.U.Dims()
	_, nz = s.Z.Dims()
	return ny, nu, nz
}

// Slice returns a view of the rows [from, to).
func (s *Series) Slice(from, to int) (*Series, error) {
	if from < 0 || to > s.Len() || from >= to {
		return nil, fmt.Errorf("dataset: slice [%d, %d) outside series of length %d", from, to, s.Len())
	}
	_, ny := s.Y.Dims()
	_, nu := s.U.Dims()
	_, nz := s.Z.Dims()
	return &Series{
		Y: s.Y.Slice(from, to, 0, ny).(*mat.Dense),
		U: s.U.Slice(from, to, 0, nu).(*mat.Dense),
		Z: s.Z.Slice(from, to, 0, nz).(*mat.Dense),
	}, nil
}

// Scaler records per-channel affine transforms so that standardized data
// can be mapped back.
type Scaler struct {
	YMean, YStd []float64
	ZMean, ZStd []float64
}

// Standardize returns a copy of the series with y and z standardized per
// channel to zero mean and unit variance, together with the scaler that
// inverts the transform. Controls are left untouched. Channels with zero
// variance keep their values shifted but unscaled.
func (s *Series) Standardize() (*Series, *Scaler) {
	ny, _, nz := s.Dims()
	sc := &Scaler{
		YMean: make([]float64, ny), YStd: make([]float64, ny),
		ZMean: make([]float64, nz), ZStd: make([]float64, nz),
	}
	y := standardizeCols(s.Y, sc.YMean, sc.YStd)
	z := standardizeCols(s.Z, sc.ZMean, sc.ZStd)
	u := mat.DenseCopyOf(s.U)
	return &Series{Y: y, U: u, Z: z}, sc
}

func standardizeCols(m *mat.Dense, means, stds []float64) *mat.Dense {
	t, n := m.Dims()
	out := mat.NewDense(t, n, nil)
	col := make([]float64, t)
	for j := 0; j < n; j++ {
		mat.Col(col, j, m)
		mean := stat.Mean(col, nil)
		std := stat.StdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		means[j] = mean
		stds[j] = std
		for i := 0; i < t; i++ {
			out.Set(i, j, (col[i]-mean)/std)
		}
	}
	return out
}

// InvertY maps standardized observation rows back to the original scale
// in place.
func (sc *Scaler) InvertY(y *mat.Dense) {
	invertCols(y, sc.YMean, sc.YStd)
}

// InvertZ maps standardized behavior rows back to the original scale in
// place.
func (sc *Scaler) InvertZ(z *mat.Dense) {
	invertCols(z, sc.ZMean, sc.ZStd)
}

func invertCols(m *mat.Dense, means, stds []float64) {
	t, n := m.Dims()
	for j := 0; j < n && j < len(means); j++ {
		for i := 0; i < t; i++ {
			m.Set(i, j, m.At(i, j)*stds[j]+means[j])
		}
	}
}
