//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package arr

import (
	"io"

	"github.com/kshedden/gonpy"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// nopCloser leaves closing to the caller of WriteNpy.
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// WriteNpy writes the values of m as a 2-D float64 NumPy array (row-major).
// Column names are not part of the NumPy format.
func WriteNpy(w io.Writer, m *Matrix) error {
	nw, err := gonpy.NewWriter(nopCloser{w})
	if err != nil {
		return err
	}
	nrow, ncol := m.Dims()
	nw.Shape = []int{nrow, ncol}
	data := make([]float64, 0, nrow*ncol)
	for i := 0; i < nrow; i++ {
		data = append(data, m.Data.RawRowView(i)...)
	}
	return nw.WriteFloat64(data)
}

// ReadNpy reads a 2-D float64 NumPy array and names its columns.
func ReadNpy(r io.Reader, names []string) (*Matrix, error) {
	nr, err := gonpy.NewReader(r)
	if err != nil {
		return nil, err
	}
	if len(nr.Shape) != 2 {
		return nil, errors.Wrapf(ErrFormat, "%d-D array", len(nr.Shape))
	}
	data, err := nr.GetFloat64()
	if err != nil {
		return nil, err
	}
	nrow, ncol := nr.Shape[0], nr.Shape[1]
	if nrow == 0 || ncol == 0 {
		return nil, errors.Wrap(ErrFormat, "empty array")
	}
	var d *mat.Dense
	if nr.ColumnMajor {
		d = mat.DenseCopyOf(mat.NewDense(ncol, nrow, data).T())
	} else {
		d = mat.NewDense(nrow, ncol, data)
	}
	return New(names, d)
}
