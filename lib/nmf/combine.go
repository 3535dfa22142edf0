//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package nmf

import (
	"context"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// stack appends the rows of ds, which must have ncol columns.
func stack(ds []*mat.Dense, ncol int, what string) (*mat.Dense, error) {
	nrow := 0
	for i, d := range ds {
		r, c := d.Dims()
		if c != ncol {
			return nil, errors.Errorf("%s %d has %d column(s), expected %d", what, i+1, c, ncol)
		}
		nrow += r
	}
	out := mat.NewDense(nrow, ncol, nil)
	i := 0
	for _, d := range ds {
		r, _ := d.Dims()
		out.Slice(i, i+r, 0, ncol).(*mat.Dense).Copy(d)
		i += r
	}
	return out, nil
}

// Combine stacks the codes hs (rank_i x marks) of several conditions into one basis h
// and solves the weights of every sample of xs (samples_i x marks) against it.
// Rows of w follow the order of xs; columns follow the order of hs.
func Combine(ctx context.Context, hs, xs []*mat.Dense, nWorker int) (h, w *mat.Dense, err error) {
	if len(hs) == 0 || len(xs) == 0 {
		return nil, nil, errors.New("nothing to combine")
	}
	_, nmark := hs[0].Dims()
	if h, err = stack(hs, nmark, "codes"); err != nil {
		return nil, nil, err
	}
	x, err := stack(xs, nmark, "data")
	if err != nil {
		return nil, nil, err
	}
	if err = checkInput(x); err != nil {
		return nil, nil, err
	}
	if w, err = SolveRows(ctx, h.T(), x, nWorker); err != nil {
		return nil, nil, err
	}
	return h, w, nil
}
