//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

// Package nmf factorizes non-negative matrices into codes and weights, and combines
// codes learned on several conditions.
package nmf

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotConverged is returned when a solver reaches its iteration limit.
	ErrNotConverged = errors.New("solver did not converge")
	// ErrDegenerateBasis is returned when a basis cannot support a least squares solution.
	ErrDegenerateBasis = errors.New("degenerate basis")
	// ErrUnknownInit is returned for unsupported initialization names.
	ErrUnknownInit = errors.New("unknown initialization")
	// ErrInvalidInput is returned for matrices with negative, NaN or infinite values.
	ErrInvalidInput = errors.New("invalid factorization input")
)

// Factorizer approximates x (samples x features) by w (samples x rank) times h (rank x features).
type Factorizer interface {
	Factorize(x *mat.Dense, rank int) (w, h *mat.Dense, err error)
}

// checkInput verifies that x can be factorized.
func checkInput(x mat.Matrix) error {
	r, c := x.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := x.At(i, j); v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.Wrapf(ErrInvalidInput, "value %v at row %d column %d", v, i+1, j+1)
			}
		}
	}
	return nil
}

// SolveRows solves one NNLS problem per row of x against the columns of a:
// row i of the result is argmin_w ||a w - x_i||, w >= 0. Rows are solved
// concurrently by nWorker goroutines; the first failure cancels the others.
func SolveRows(ctx context.Context, a mat.Matrix, x mat.Matrix, nWorker int) (*mat.Dense, error) {
	nrow, _ := x.Dims()
	_, ncol := a.Dims()
	if nWorker < 1 {
		nWorker = 1
	}
	w := mat.NewDense(nrow, ncol, nil)
	g, gctx := errgroup.WithContext(ctx)
	rows := make(chan int)
	g.Go(func() error {
		defer close(rows)
		for i := 0; i < nrow; i++ {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case rows <- i:
			}
		}
		return nil
	})
	for k := 0; k < nWorker; k++ {
		g.Go(func() error {
			for i := range rows {
				sol, _, err := NNLS(a, mat.Row(nil, i, x))
				if err != nil {
					return errors.Wrapf(err, "row %d", i+1)
				}
				// Each worker writes distinct rows
				w.SetRow(i, sol)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return w, nil
}

// Transform computes the weights of the samples x on fixed codes h. Codes that are
// entirely zero get zero weights.
func Transform(ctx context.Context, x, h *mat.Dense, nWorker int) (*mat.Dense, error) {
	xr, xc := x.Dims()
	hr, hc := h.Dims()
	if hc != xc {
		return nil, errors.Errorf("%d feature(s) in data, %d in codes", xc, hc)
	}
	if err := checkInput(x); err != nil {
		return nil, err
	}
	var keep []int
	for i := 0; i < hr; i++ {
		if floats.Norm(h.RawRowView(i), 1) > 0 {
			keep = append(keep, i)
		}
	}
	w := mat.NewDense(xr, hr, nil)
	if len(keep) == 0 {
		return w, nil
	}
	sub := mat.NewDense(len(keep), hc, nil)
	for k, i := range keep {
		sub.SetRow(k, h.RawRowView(i))
	}
	ws, err := SolveRows(ctx, sub.T(), x, nWorker)
	if err != nil {
		return nil, err
	}
	for k, i := range keep {
		w.SetCol(i, mat.Col(nil, k, ws))
	}
	return w, nil
}
