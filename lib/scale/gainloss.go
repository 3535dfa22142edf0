//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package scale

import (
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"git.sr.ht/~vejnar/EpiCode/lib/arr"
)

// Column suffixes of paired and gain/loss matrices.
const (
	SuffixA    = ":a"
	SuffixB    = ":b"
	SuffixGain = ":g"
	SuffixLoss = ":l"
)

// ReplaceLast replaces the rightmost occurrence of old in s.
func ReplaceLast(s, old, new string) string {
	i := strings.LastIndex(s, old)
	if i < 0 {
		return s
	}
	return s[:i] + new + s[i+len(old):]
}

// GainLossNames renames paired columns: the A column of each pair becomes the gain column,
// the B column the loss column.
func GainLossNames(names []string) []string {
	out := make([]string, len(names))
	for j, name := range names {
		if j%2 == 0 {
			out[j] = ReplaceLast(name, SuffixA, SuffixGain)
		} else {
			out[j] = ReplaceLast(name, SuffixB, SuffixLoss)
		}
	}
	return out
}

// GainLoss aggregates depth-corrected window rows into one row per region. Regions
// are delimited by sentinel rows (negative or NaN values). For each pair, positive B-A deltas are summed into gain
// and negative ones into loss (as absolute values); both sums are divided by the
// number of windows summed, at least 1. An empty block gives a zero row.
func GainLoss(m *arr.Matrix) (*arr.Matrix, error) {
	nrow, ncol := m.Dims()
	if ncol == 0 || ncol%2 != 0 {
		return nil, errors.Wrapf(ErrUnpaired, "%d column(s)", ncol)
	}
	var data []float64
	acc := make([]float64, ncol)
	var nwin int
	flush := func() {
		den := float64(nwin)
		if den < 1 {
			den = 1
		}
		for j := range acc {
			data = append(data, acc[j]/den)
			acc[j] = 0
		}
		nwin = 0
	}
	for i := 0; i < nrow; i++ {
		row := m.Data.RawRowView(i)
		end := false
		for _, v := range row {
			if missing(v) {
				end = true
				break
			}
		}
		if end {
			flush()
			continue
		}
		for j := 0; j < ncol; j += 2 {
			if delta := row[j+1] - row[j]; delta > 0 {
				acc[j] += delta
			} else {
				acc[j+1] -= delta
			}
		}
		nwin++
	}
	// Last region without closing sentinel
	if nwin > 0 {
		flush()
	}
	if len(data) == 0 {
		return nil, errors.Wrap(arr.ErrFormat, "no region")
	}
	return arr.New(GainLossNames(m.Names), mat.NewDense(len(data)/ncol, ncol, data))
}
