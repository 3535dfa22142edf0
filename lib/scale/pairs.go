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

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"git.sr.ht/~vejnar/EpiCode/lib/arr"
)

// validRows returns the rows without any sentinel in any column.
func validRows(d *mat.Dense) []int {
	nrow, ncol := d.Dims()
	var rows []int
	for i := 0; i < nrow; i++ {
		ok := true
		for j := 0; j < ncol; j++ {
			if missing(d.At(i, j)) {
				ok = false
				break
			}
		}
		if ok {
			rows = append(rows, i)
		}
	}
	return rows
}

// SizeFactors estimates one median-of-ratios size factor per column. Columns are
// grouped by consecutive pairs (A1,B1,A2,B2,...); the reference of each row is the
// geometric mean of its pair. Only rows free of sentinels in all columns, and with
// positive counts in the pair, are used.
func SizeFactors(m *arr.Matrix) ([]float64, error) {
	_, ncol := m.Dims()
	if ncol == 0 || ncol%2 != 0 {
		return nil, errors.Wrapf(ErrUnpaired, "%d column(s)", ncol)
	}
	rows := validRows(m.Data)
	sf := make([]float64, ncol)
	logs := make([]float64, 2)
	for j := 0; j < ncol; j += 2 {
		var ratios [2][]float64
		for _, i := range rows {
			a, b := m.Data.At(i, j), m.Data.At(i, j+1)
			if a <= 0 || b <= 0 {
				continue
			}
			logs[0], logs[1] = math.Log(a), math.Log(b)
			ref := stat.Mean(logs, nil)
			ratios[0] = append(ratios[0], logs[0]-ref)
			ratios[1] = append(ratios[1], logs[1]-ref)
		}
		if len(ratios[0]) == 0 {
			return nil, errors.Wrapf(ErrNoUsableRows, "pair %s/%s", m.Names[j], m.Names[j+1])
		}
		sf[j] = math.Exp(median(ratios[0]))
		sf[j+1] = math.Exp(median(ratios[1]))
	}
	return sf, nil
}

// Pairs corrects paired columns for sequencing depth. Rows holding a sentinel
// become NaN in every column.
func Pairs(m *arr.Matrix, method Method) (*arr.Matrix, []float64, error) {
	if method.Kind != DESeq {
		return nil, nil, errors.Wrapf(ErrUnknownMethod, "%s is not a pair scaling method", method.Name)
	}
	sf, err := SizeFactors(m)
	if err != nil {
		return nil, nil, err
	}
	out := m.Clone()
	nrow, ncol := out.Dims()
	for i := 0; i < nrow; i++ {
		row := out.Data.RawRowView(i)
		sentinel := false
		for _, v := range row {
			if missing(v) {
				sentinel = true
				break
			}
		}
		for j := 0; j < ncol; j++ {
			if sentinel {
				row[j] = math.NaN()
			} else {
				row[j] /= sf[j]
			}
		}
	}
	return out, sf, nil
}
