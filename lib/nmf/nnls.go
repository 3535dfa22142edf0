//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package nmf

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// NNLS solves argmin_x ||Ax - b|| subject to x >= 0 with the active set method of
// Lawson and Hanson. It returns the solution and the residual norm.
func NNLS(a mat.Matrix, b []float64) ([]float64, float64, error) {
	m, n := a.Dims()
	if len(b) != m {
		return nil, 0, errors.Errorf("nnls: %d row(s) in A, %d value(s) in b", m, len(b))
	}
	for j := 0; j < n; j++ {
		zero := true
		for i := 0; i < m; i++ {
			if a.At(i, j) != 0 {
				zero = false
				break
			}
		}
		if zero {
			return nil, 0, errors.Wrapf(ErrDegenerateBasis, "column %d is zero", j+1)
		}
	}
	bv := mat.NewVecDense(m, append([]float64(nil), b...))
	tol := 10 * math.Max(float64(m), float64(n)) * mat.Norm(a, 1) * eps

	x := make([]float64, n)
	passive := make([]bool, n)
	w := make([]float64, n)
	gradient(a, bv, x, w)

	maxIter := 3 * n
	var iter, outer int
	for {
		outer++
		if outer > maxIter {
			return nil, 0, errors.Wrapf(ErrNotConverged, "nnls: %d iteration(s)", maxIter)
		}
		// Most positive gradient among the active (zero) variables
		jmax := -1
		for j := 0; j < n; j++ {
			if !passive[j] && w[j] > tol && (jmax < 0 || w[j] > w[jmax]) {
				jmax = j
			}
		}
		if jmax < 0 {
			break
		}
		passive[jmax] = true
		for {
			s, err := lstsq(a, bv, passive)
			if err != nil {
				return nil, 0, err
			}
			feasible := true
			for j := 0; j < n; j++ {
				if passive[j] && s[j] <= 0 {
					feasible = false
					break
				}
			}
			if feasible {
				copy(x, s)
				break
			}
			iter++
			if iter > maxIter {
				return nil, 0, errors.Wrapf(ErrNotConverged, "nnls: %d iteration(s)", maxIter)
			}
			alpha := math.Inf(1)
			for j := 0; j < n; j++ {
				if passive[j] && s[j] <= 0 {
					if r := x[j] / (x[j] - s[j]); r < alpha {
						alpha = r
					}
				}
			}
			for j := 0; j < n; j++ {
				x[j] += alpha * (s[j] - x[j])
				if passive[j] && x[j] <= tol {
					passive[j] = false
					x[j] = 0
				}
			}
		}
		gradient(a, bv, x, w)
	}

	var r mat.VecDense
	r.MulVec(a, mat.NewVecDense(n, x))
	r.SubVec(bv, &r)
	return x, mat.Norm(&r, 2), nil
}

const eps = 2.220446049250313e-16

// gradient sets w to A^T (b - Ax).
func gradient(a mat.Matrix, b *mat.VecDense, x []float64, w []float64) {
	_, n := a.Dims()
	var r mat.VecDense
	r.MulVec(a, mat.NewVecDense(n, x))
	r.SubVec(b, &r)
	wv := mat.NewVecDense(n, w)
	wv.MulVec(a.T(), &r)
}

// lstsq solves the unconstrained least squares problem on the passive columns.
// Other variables are zero.
func lstsq(a mat.Matrix, b *mat.VecDense, passive []bool) ([]float64, error) {
	m, n := a.Dims()
	var cols []int
	for j, p := range passive {
		if p {
			cols = append(cols, j)
		}
	}
	s := make([]float64, n)
	if len(cols) == 0 {
		return s, nil
	}
	ap := mat.NewDense(m, len(cols), nil)
	for k, j := range cols {
		for i := 0; i < m; i++ {
			ap.Set(i, k, a.At(i, j))
		}
	}
	var sp mat.VecDense
	if err := sp.SolveVec(ap, b); err != nil {
		return nil, errors.Wrap(ErrDegenerateBasis, err.Error())
	}
	for k, j := range cols {
		s[j] = sp.AtVec(k)
	}
	if floats.HasNaN(s) {
		return nil, errors.Wrap(ErrDegenerateBasis, "nnls: undefined solution")
	}
	return s, nil
}
