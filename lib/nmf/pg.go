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
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Sparseness settings of ProjectedGradient.
const (
	SparseNone       = ""
	SparseData       = "data"
	SparseComponents = "components"
)

// ParseSparseness validates a sparseness name; "none" is accepted for SparseNone.
func ParseSparseness(name string) (string, error) {
	switch name {
	case SparseNone, "none":
		return SparseNone, nil
	case SparseData, SparseComponents:
		return name, nil
	}
	return "", errors.Wrapf(ErrParam, "unknown sparseness %q", name)
}

// ProjectedGradient is the alternating non-negative least squares algorithm of
// Lin (2007), each subproblem solved by projected gradient with an Armijo search.
// With Sparseness set, the subproblems carry the penalties of Hoyer (2004) as in
// scikit-learn's ProjectedGradientNMF.
type ProjectedGradient struct {
	// Init is one of nndsvd, nndsvda, nndsvdar or random.
	Init string
	// MaxIter bounds the number of outer iterations.
	MaxIter int
	// Tol is the stopping tolerance relative to the initial projected gradient norm.
	Tol float64
	// Limit bounds the iterations of each subproblem.
	Limit int
	// Seed of random initializations.
	Seed uint64
	// Sparseness enforces sparse codes (components), sparse weights (data) or nothing.
	Sparseness string
	// Beta weighs the sparsity of the penalized factor.
	Beta float64
	// Eta weighs the norm of the other factor.
	Eta float64
}

// NewProjectedGradient returns a factorizer with default settings.
func NewProjectedGradient() *ProjectedGradient {
	return &ProjectedGradient{Init: InitNNDSVD, MaxIter: 200, Tol: 1e-4, Limit: 2000, Beta: 1, Eta: 0.1}
}

// penalties returns the matrices added to w^T w in the w and h subproblems (nil for none).
func (pg *ProjectedGradient) penalties(rank int) (penW, penH *mat.Dense, err error) {
	if pg.Beta < 0 || pg.Eta < 0 {
		return nil, nil, errors.Wrapf(ErrParam, "negative beta %g or eta %g", pg.Beta, pg.Eta)
	}
	// Rows sqrt(beta)*1 give beta*11^T, rows sqrt(eta)*I give eta*I.
	ones := mat.NewDense(rank, rank, nil)
	ones.Apply(func(i, j int, v float64) float64 { return pg.Beta }, ones)
	eye := mat.NewDense(rank, rank, nil)
	for i := 0; i < rank; i++ {
		eye.Set(i, i, pg.Eta)
	}
	switch pg.Sparseness {
	case SparseNone:
		return nil, nil, nil
	case SparseComponents:
		return eye, ones, nil
	case SparseData:
		return ones, eye, nil
	}
	return nil, nil, errors.Wrapf(ErrParam, "unknown sparseness %q", pg.Sparseness)
}

// Factorize returns w (samples x rank) and h (rank x features) with x ≈ wh.
func (pg *ProjectedGradient) Factorize(x *mat.Dense, rank int) (w, h *mat.Dense, err error) {
	if rank < 1 {
		return nil, nil, errors.Errorf("invalid rank %d", rank)
	}
	if _, err = ParseInit(pg.Init); err != nil {
		return nil, nil, err
	}
	penW, penH, err := pg.penalties(rank)
	if err != nil {
		return nil, nil, err
	}
	if err = checkInput(x); err != nil {
		return nil, nil, err
	}
	rnd := rand.New(rand.NewSource(pg.Seed))
	w, h, err = initialize(x, rank, pg.Init, rnd)
	if err != nil {
		return nil, nil, err
	}

	// Gradients of 0.5*||x - wh||^2
	gradW, gradH := gradients(x, w, h)
	initGrad := math.Sqrt(sumSq(gradW) + sumSq(gradH))
	// Gradients below the rounding error of x - wh are zero.
	r, c := x.Dims()
	noise := float64(r+c) * eps * mat.Norm(x, 2) * (mat.Norm(w, 2) + mat.Norm(h, 2))
	if initGrad <= noise {
		return w, h, nil
	}
	stop := math.Max(pg.Tol*initGrad, noise)
	tolW := math.Max(0.001, pg.Tol) * initGrad
	tolH := tolW

	var xt mat.Dense
	xt.CloneFrom(x.T())
	for i := 0; i < pg.MaxIter; i++ {
		if math.Sqrt(projNorm(gradW, w)+projNorm(gradH, h)) < stop {
			return w, h, nil
		}
		// Subproblem on w: x^T ≈ h^T w^T
		var wt, ht mat.Dense
		wt.CloneFrom(w.T())
		ht.CloneFrom(h.T())
		wtNew, gradWt, iterW := subproblem(&xt, &ht, &wt, penW, tolW, pg.Limit)
		w.CloneFrom(wtNew.T())
		gradW.CloneFrom(gradWt.T())
		if iterW == 0 {
			tolW = math.Max(0.1*tolW, noise)
		}

		var iterH int
		h, gradH, iterH = subproblem(x, w, h, penH, tolH, pg.Limit)
		if iterH == 0 {
			tolH = math.Max(0.1*tolH, noise)
		}
	}
	if math.Sqrt(projNorm(gradW, w)+projNorm(gradH, h)) < stop {
		return w, h, nil
	}
	return w, h, errors.Wrapf(ErrNotConverged, "projected gradient: %d iteration(s)", pg.MaxIter)
}

func gradients(x, w, h *mat.Dense) (gradW, gradH *mat.Dense) {
	var hht, xht, wtw, wtx mat.Dense
	hht.Mul(h, h.T())
	xht.Mul(x, h.T())
	gradW = &mat.Dense{}
	gradW.Mul(w, &hht)
	gradW.Sub(gradW, &xht)

	wtw.Mul(w.T(), w)
	wtx.Mul(w.T(), x)
	gradH = &mat.Dense{}
	gradH.Mul(&wtw, h)
	gradH.Sub(gradH, &wtx)
	return
}

func sumSq(d *mat.Dense) float64 {
	n := mat.Norm(d, 2)
	return n * n
}

// projNorm is the squared norm of the projected gradient: entries where the
// gradient is negative or the variable is positive.
func projNorm(grad, v *mat.Dense) float64 {
	var s float64
	r, c := grad.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if g := grad.At(i, j); g < 0 || v.At(i, j) > 0 {
				s += g * g
			}
		}
	}
	return s
}

// subproblem solves min_h>=0 0.5*||x - wh||^2 + 0.5*tr(h^T pen h) from h0, pen being
// nil or the Gram matrix of the penalty rows stacked under w. It returns the solution,
// its gradient and the number of iterations done before reaching tol.
func subproblem(x, w, h0, pen *mat.Dense, tol float64, limit int) (*mat.Dense, *mat.Dense, int) {
	const beta = 0.1
	var wtx, wtw mat.Dense
	wtx.Mul(w.T(), x)
	wtw.Mul(w.T(), w)
	if pen != nil {
		wtw.Add(&wtw, pen)
	}

	r, c := h0.Dims()
	h := mat.DenseCopyOf(h0)
	grad := mat.NewDense(r, c, nil)
	hn := mat.NewDense(r, c, nil)
	hp := mat.NewDense(r, c, nil)
	d := mat.NewDense(r, c, nil)
	qd := mat.NewDense(r, c, nil)
	alpha := 1.0
	var iter int
	for iter = 0; iter < limit; iter++ {
		grad.Mul(&wtw, h)
		grad.Sub(grad, &wtx)
		if math.Sqrt(projNorm(grad, h)) < tol {
			break
		}
		hp.Copy(h)
		var decrease bool
		for inner := 0; inner < 19; inner++ {
			hn.Apply(func(i, j int, v float64) float64 {
				return math.Max(v-alpha*grad.At(i, j), 0)
			}, h)
			d.Sub(hn, h)
			gradd := dot(grad, d)
			qd.Mul(&wtw, d)
			dQd := dot(qd, d)
			suff := 0.99*gradd+0.5*dQd < 0
			if inner == 0 {
				decrease = !suff
			}
			if decrease {
				if suff {
					h.Copy(hn)
					break
				}
				alpha *= beta
			} else {
				if !suff || mat.Equal(hp, hn) {
					h.Copy(hp)
					break
				}
				alpha /= beta
				hp.Copy(hn)
			}
		}
	}
	return h, grad, iter
}

// dot is the sum of the element-wise product of a and b.
func dot(a, b *mat.Dense) float64 {
	var s float64
	r, _ := a.Dims()
	for i := 0; i < r; i++ {
		s += floats.Dot(a.RawRowView(i), b.RawRowView(i))
	}
	return s
}
