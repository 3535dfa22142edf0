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

// Initialization names.
const (
	InitNNDSVD   = "nndsvd"
	InitNNDSVDA  = "nndsvda"
	InitNNDSVDAR = "nndsvdar"
	InitRandom   = "random"
)

// ParseInit validates an initialization name.
func ParseInit(name string) (string, error) {
	switch name {
	case InitNNDSVD, InitNNDSVDA, InitNNDSVDAR, InitRandom:
		return name, nil
	}
	return "", errors.Wrap(ErrUnknownInit, name)
}

func mean(x mat.Matrix) float64 {
	return mat.Sum(x) / float64(size(x))
}

func size(x mat.Matrix) int {
	r, c := x.Dims()
	return r * c
}

// initialize returns the starting w and h.
func initialize(x *mat.Dense, rank int, name string, rnd *rand.Rand) (w, h *mat.Dense, err error) {
	nrow, ncol := x.Dims()
	if name == InitRandom {
		avg := math.Sqrt(mean(x) / float64(rank))
		w = mat.NewDense(nrow, rank, nil)
		h = mat.NewDense(rank, ncol, nil)
		for _, d := range []*mat.Dense{w, h} {
			r, c := d.Dims()
			for i := 0; i < r; i++ {
				for j := 0; j < c; j++ {
					d.Set(i, j, avg*math.Abs(rnd.NormFloat64()))
				}
			}
		}
		return w, h, nil
	}

	w, h, err = nndsvd(x, rank)
	if err != nil {
		return nil, nil, err
	}
	switch name {
	case InitNNDSVDA:
		avg := mean(x)
		fillZeros(w, func() float64 { return avg })
		fillZeros(h, func() float64 { return avg })
	case InitNNDSVDAR:
		avg := mean(x)
		fill := func() float64 { return math.Abs(avg * rnd.NormFloat64() / 100) }
		fillZeros(w, fill)
		fillZeros(h, fill)
	}
	return w, h, nil
}

func fillZeros(d *mat.Dense, fill func() float64) {
	r, c := d.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if d.At(i, j) == 0 {
				d.Set(i, j, fill())
			}
		}
	}
}

// nndsvd is the non-negative double singular value decomposition of Boutsidis and Gallopoulos (2008).
// Components beyond the rank of x are left at zero.
func nndsvd(x *mat.Dense, rank int) (w, h *mat.Dense, err error) {
	nrow, ncol := x.Dims()
	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, nil, errors.Wrap(ErrNotConverged, "SVD")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)

	w = mat.NewDense(nrow, rank, nil)
	h = mat.NewDense(rank, ncol, nil)
	for j := 0; j < rank && j < len(s); j++ {
		uj := mat.Col(nil, j, &u)
		vj := mat.Col(nil, j, &v)
		if j == 0 {
			// Leading singular vectors can be chosen non-negative
			for i := range uj {
				uj[i] = math.Sqrt(s[0]) * math.Abs(uj[i])
			}
			for i := range vj {
				vj[i] = math.Sqrt(s[0]) * math.Abs(vj[i])
			}
			w.SetCol(0, uj)
			h.SetRow(0, vj)
			continue
		}
		xp, xn := split(uj)
		yp, yn := split(vj)
		xpn, ypn := floats.Norm(xp, 2), floats.Norm(yp, 2)
		xnn, ynn := floats.Norm(xn, 2), floats.Norm(yn, 2)
		mp, mn := xpn*ypn, xnn*ynn
		var uu, vv []float64
		var sigma float64
		if mp > mn {
			uu, vv, sigma = xp, yp, mp
			scale(uu, xpn)
			scale(vv, ypn)
		} else {
			uu, vv, sigma = xn, yn, mn
			scale(uu, xnn)
			scale(vv, ynn)
		}
		lbd := math.Sqrt(s[j] * sigma)
		floats.Scale(lbd, uu)
		floats.Scale(lbd, vv)
		w.SetCol(j, uu)
		h.SetRow(j, vv)
	}
	clampTiny(w)
	clampTiny(h)
	return w, h, nil
}

// split returns the positive part and the absolute negative part of x.
func split(x []float64) (p, n []float64) {
	p = make([]float64, len(x))
	n = make([]float64, len(x))
	for i, v := range x {
		if v > 0 {
			p[i] = v
		} else {
			n[i] = -v
		}
	}
	return
}

func scale(x []float64, norm float64) {
	if norm == 0 {
		return
	}
	floats.Scale(1/norm, x)
}

func clampTiny(d *mat.Dense) {
	r, c := d.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if d.At(i, j) < 1e-6 {
				d.Set(i, j, 0)
			}
		}
	}
}

