package gonumx

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Eye returns the (m by n) identity
func Eye(m, n int) mat.Matrix {
	data := make([]float64, int(math.Min(float64(m), float64(n))))
	for entry := range data {
		data[entry] = 1
	}
	return mat.NewDiagonalRect(m, n, data)
}

// NANORINF checks if there are any NAN or INF in matrix
func NANORINF(matrix mat.Matrix) bool {
	m, n := matrix.Dims()
	for row := 0; row < m; row++ {
		for col := 0; col < n; col++ {
			if math.IsNaN(matrix.At(row, col)) || math.IsInf(matrix.At(row, col), 0) {
				return true
			}
		}
	}
	return false
}

// SliceNANORINF checks raw parameter slices for NAN or INF entries.
func SliceNANORINF(slices [][]float64) bool {
	for _, s := range slices {
		for _, v := range s {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return true
			}
		}
	}
	return false
}

// Uniform fills a new (m by n) matrix with samples drawn uniformly from
// [-bound, bound].
func Uniform(m, n int, bound float64, rng *rand.Rand) *mat.Dense {
	data := make([]float64, m*n)
	for index := range data {
		data[index] = bound * (2.*rng.Float64() - 1.)
	}
	return mat.NewDense(m, n, data)
}

// LinearInit initializes a (rows by fanIn) weight matrix with the
// uniform(-1/sqrt(fanIn), 1/sqrt(fanIn)) scheme used for affine layers.
func LinearInit(rows, fanIn int, rng *rand.Rand) *mat.Dense {
	return Uniform(rows, fanIn, 1./math.Sqrt(float64(fanIn)), rng)
}

// LinearInitVec initializes a bias vector with the same bound as the
// weight matrix it accompanies.
func LinearInitVec(n, fanIn int, rng *rand.Rand) *mat.VecDense {
	bound := 1. / math.Sqrt(float64(fanIn))
	data := make([]float64, n)
	for index := range data {
		data[index] = bound * (2.*rng.Float64() - 1.)
	}
	return mat.NewVecDense(n, data)
}
