// Package kalman provides a steady-state Kalman one-step predictor used
// as a baseline against the fitted models. The predictor gain is obtained
// by iterating the discrete-time Riccati recursion to its fixed point.
package kalman

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/felolivee/CLOC-RNN-IPSID/gonumx"
)

// Filter is the predictor form
//
// x(t+1) = A x(t) + B u(t) + L (y(t) - C x(t))
//
// yhat(t) = C x(t)
//
// with the steady-state gain L.
type Filter struct {
	A *mat.Dense
	// B may be nil for autonomous systems.
	B *mat.Dense
	C *mat.Dense
	L *mat.Dense
}

// SteadyState computes the stationary predictor for the system (A, C)
// with process noise covariance Q and measurement noise covariance R, by
// iterating the Riccati recursion until the covariance stops moving.
func SteadyState(A, B, C, Q, R *mat.Dense, tol float64, maxIter int) (*Filter, error) {
	nx, nxc := A.Dims()
	ny, nyc := C.Dims()
	if nx != nxc {
		return nil, errors.New("kalman: A must be square")
	}
	if nyc != nx {
		return nil, fmt.Errorf("kalman: C has %d columns, want %d", nyc, nx)
	}
	if qr, qc := Q.Dims(); qr != nx || qc != nx {
		return nil, errors.New("kalman: Q must match the state order")
	}
	if rr, rc := R.Dims(); rr != ny || rc != ny {
		return nil, errors.New("kalman: R must match the observation order")
	}
	if tol <= 0 {
		tol = 1e-9
	}
	if maxIter <= 0 {
		maxIter = 10000
	}

	// P starts at Q; the recursion is
	// P <- A (P - P C' S^-1 C P) A' + Q with S = C P C' + R.
	P := mat.DenseCopyOf(Q)
	var (
		PCt, S, Kt, KCP, inner, next, diff mat.Dense
	)
	for iter := 0; iter < maxIter; iter++ {
		PCt.Mul(P, C.T())
		S.Mul(C, &PCt)
		S.Add(&S, R)

		// K = P C' S^-1 solved as S' K' = (P C')'.
		if err := Kt.Solve(S.T(), PCt.T()); err != nil {
			return nil, fmt.Errorf("kalman: innovation covariance singular: %w", err)
		}

		KCP.Mul(Kt.T(), C)
		KCP.Mul(&KCP, P)
		inner.Sub(P, &KCP)
		next.Mul(A, &inner)
		next.Mul(&next, A.T())
		next.Add(&next, Q)

		if gonumx.NANORINF(&next) {
			return nil, errors.New("kalman: Riccati recursion diverged")
		}
		diff.Sub(&next, P)
		P.Copy(&next)
		if mat.Norm(&diff, 2) < tol {
			// L = A K at the fixed point.
			var L mat.Dense
			L.Mul(A, Kt.T())
			f := &Filter{A: mat.DenseCopyOf(A), C: mat.DenseCopyOf(C), L: mat.DenseCopyOf(&L)}
			if B != nil {
				f.B = mat.DenseCopyOf(B)
			}
			return f, nil
		}
	}
	return nil, errors.New("kalman: Riccati recursion did not converge")
}

// Predict runs the predictor over the rows of Y (and U when the filter
// has a control matrix), returning the one-step observation predictions.
func (f *Filter) Predict(Y, U mat.Matrix) (*mat.Dense, error) {
	T, ny := Y.Dims()
	nx, _ := f.A.Dims()
	if cy, _ := f.C.Dims(); cy != ny {
		return nil, fmt.Errorf("kalman: series has %d observation channels, filter expects %d", ny, cy)
	}
	var nu int
	if f.B != nil {
		if U == nil {
			return nil, errors.New("kalman: filter has a control matrix but no controls were given")
		}
		tu, n := U.Dims()
		if tu != T {
			return nil, fmt.Errorf("kalman: controls have %d rows, observations %d", tu, T)
		}
		nu = n
	}

	preds := mat.NewDense(T, ny, nil)
	x := mat.NewVecDense(nx, nil)
	y := mat.NewVecDense(ny, nil)
	yhat := mat.NewVecDense(ny, nil)
	innov := mat.NewVecDense(ny, nil)
	var tmp, next mat.VecDense
	u := mat.NewVecDense(max(nu, 1), nil)

	for t := 0; t < T; t++ {
		yhat.MulVec(f.C, x)
		preds.SetRow(t, yhat.RawVector().Data)

		mat.Row(y.RawVector().Data, t, Y)
		innov.SubVec(y, yhat)

		next.MulVec(f.A, x)
		tmp.MulVec(f.L, innov)
		next.AddVec(&next, &tmp)
		if f.B != nil {
			mat.Row(u.RawVector().Data, t, U)
			tmp.MulVec(f.B, u)
			next.AddVec(&next, &tmp)
		}
		x.CopyVec(&next)
	}
	return preds, nil
}
