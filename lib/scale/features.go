//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package scale

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"git.sr.ht/~vejnar/EpiCode/lib/arr"
)

// MQuantiles computes sample quantiles with plotting positions alphap and betap
// (Hyndman and Fan). NaN values are ignored.
func MQuantiles(x []float64, probs []float64, alphap, betap float64) []float64 {
	var sorted []float64
	for _, v := range x {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	sort.Float64s(sorted)
	q := make([]float64, len(probs))
	n := len(sorted)
	for i, p := range probs {
		switch n {
		case 0:
			q[i] = math.NaN()
			continue
		case 1:
			q[i] = sorted[0]
			continue
		}
		m := alphap + p*(1-alphap-betap)
		aleph := float64(n)*p + m
		k := math.Floor(math.Max(1, math.Min(aleph, float64(n-1))))
		gamma := math.Max(0, math.Min(aleph-k, 1))
		ik := int(k)
		q[i] = (1-gamma)*sorted[ik-1] + gamma*sorted[ik]
	}
	return q
}

// Dsig is a double sigmoid centered on loc. Values below loc are scaled by the left
// half-width loc-lq, values above by the right half-width uq-loc. A zero half-width
// leaves the distance to loc unscaled. The result is mapped from [0,1] to [-1,1].
func Dsig(x, lq, loc, uq float64) float64 {
	a := x - loc
	if x < loc {
		if w := loc - lq; w != 0 {
			a /= -0.5 * w
		}
	} else {
		if w := uq - loc; w != 0 {
			a /= -0.5 * w
		}
	}
	f := 1 / (1 + math.Exp(a))
	return (f - 0.5) * 2
}

// Features rescales every column independently with Sigmoid or Whiten.
func Features(m *arr.Matrix, method Method) (*arr.Matrix, error) {
	out := m.Clone()
	_, ncol := out.Dims()
	for j := 0; j < ncol; j++ {
		col := out.Col(j)
		switch method.Kind {
		case Sigmoid:
			sigmoid(col, method.Percentile)
		case Whiten:
			whiten(col)
		default:
			return nil, errors.Wrapf(ErrUnknownMethod, "%s is not a feature scaling method", method.Name)
		}
		out.Data.SetCol(j, col)
	}
	return out, nil
}

func sigmoid(col []float64, p float64) {
	// Lower inflection and location are both the minimum
	q := MQuantiles(col, []float64{0, 0, p}, 0.4, 0.4)
	for i, v := range col {
		col[i] = Dsig(v, q[0], q[1], q[2])
	}
}

func whiten(col []float64) {
	var values []float64
	for _, v := range col {
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	sd := math.NaN()
	if len(values) > 1 {
		sd = stat.StdDev(values, nil)
	}
	if sd == 0 || math.IsNaN(sd) {
		for i := range col {
			col[i] = math.NaN()
		}
		return
	}
	floats.Scale(1/sd, col)
}
