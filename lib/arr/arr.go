//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

// Package arr reads and writes named matrices as tab-separated tables.
//
// The first line holds the tab-joined column names; each following line is one
// row of tab-joined values. Missing values are written "nan".
package arr

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"git.sr.ht/~vejnar/EpiCode/lib/xio"
)

var (
	// ErrFormat is returned for malformed tables.
	ErrFormat = errors.New("malformed matrix")
	// ErrNames is returned when column names do not match the data.
	ErrNames = errors.New("column names mismatch")
)

// Format selects how values are written.
type Format int

const (
	// FormatFloat writes the shortest representation that parses back to the same value.
	FormatFloat Format = iota
	// FormatInt writes values truncated to integers (raw counts).
	FormatInt
)

// Matrix is a dense matrix with named columns.
type Matrix struct {
	Names []string
	Data  *mat.Dense
}

// New checks that names match the columns of data.
func New(names []string, data *mat.Dense) (*Matrix, error) {
	if data == nil {
		return nil, errors.Wrap(ErrFormat, "no data")
	}
	if _, c := data.Dims(); c != len(names) {
		return nil, errors.Wrapf(ErrNames, "%d name(s) for %d column(s)", len(names), c)
	}
	return &Matrix{Names: names, Data: data}, nil
}

// FromColumns builds a matrix from equal-length columns.
func FromColumns(names []string, cols [][]float64) (*Matrix, error) {
	if len(cols) == 0 || len(cols[0]) == 0 {
		return nil, errors.Wrap(ErrFormat, "empty matrix")
	}
	if len(names) != len(cols) {
		return nil, errors.Wrapf(ErrNames, "%d name(s) for %d column(s)", len(names), len(cols))
	}
	nrow := len(cols[0])
	d := mat.NewDense(nrow, len(cols), nil)
	for j, col := range cols {
		if len(col) != nrow {
			return nil, errors.Wrapf(ErrFormat, "column %s has %d row(s), expected %d", names[j], len(col), nrow)
		}
		d.SetCol(j, col)
	}
	return &Matrix{Names: names, Data: d}, nil
}

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (int, int) {
	return m.Data.Dims()
}

// Col returns a copy of column j.
func (m *Matrix) Col(j int) []float64 {
	return mat.Col(nil, j, m.Data)
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	names := make([]string, len(m.Names))
	copy(names, m.Names)
	return &Matrix{Names: names, Data: mat.DenseCopyOf(m.Data)}
}

// FormatValue formats one value.
func FormatValue(v float64, f Format) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case f == FormatInt:
		return strconv.FormatInt(int64(v), 10)
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}

// Write writes m to w.
func Write(w io.Writer, m *Matrix, f Format) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(m.Names, "\t") + "\n"); err != nil {
		return err
	}
	nrow, ncol := m.Dims()
	fields := make([]string, ncol)
	for i := 0; i < nrow; i++ {
		for j := range fields {
			fields[j] = FormatValue(m.Data.At(i, j), f)
		}
		if _, err := bw.WriteString(strings.Join(fields, "\t") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Read parses a matrix written by Write.
func Read(r io.Reader) (*Matrix, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, errors.Wrap(ErrFormat, "missing header")
	}
	names := strings.Split(strings.TrimRight(scanner.Text(), "\r"), "\t")
	var data []float64
	nrow := 0
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if len(line) == 0 {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != len(names) {
			return nil, errors.Wrapf(ErrFormat, "row %d has %d value(s), header has %d", nrow+1, len(fields), len(names))
		}
		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Wrapf(ErrFormat, "row %d: value %q", nrow+1, field)
			}
			data = append(data, v)
		}
		nrow++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if nrow == 0 {
		return nil, errors.Wrap(ErrFormat, "no row")
	}
	return &Matrix{Names: names, Data: mat.NewDense(nrow, len(names), data)}, nil
}

// WriteFile writes m to path, compressed according to its extension.
func WriteFile(path string, m *Matrix, f Format) error {
	w, err := xio.Create(path)
	if err != nil {
		return err
	}
	if err = Write(w, m, f); err != nil {
		w.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return w.Close()
}

// ReadFile reads a matrix from path.
func ReadFile(path string) (*Matrix, error) {
	r, err := xio.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	m, err := Read(r)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return m, nil
}

// Stack appends the rows of ms. All matrices must share the same column names.
func Stack(ms ...*Matrix) (*Matrix, error) {
	if len(ms) == 0 {
		return nil, errors.Wrap(ErrFormat, "nothing to stack")
	}
	names := ms[0].Names
	nrow := 0
	for _, m := range ms {
		if len(m.Names) != len(names) {
			return nil, errors.Wrapf(ErrNames, "%d column(s), expected %d", len(m.Names), len(names))
		}
		for j := range names {
			if m.Names[j] != names[j] {
				return nil, errors.Wrapf(ErrNames, "column %d is %s, expected %s", j+1, m.Names[j], names[j])
			}
		}
		r, _ := m.Dims()
		nrow += r
	}
	d := mat.NewDense(nrow, len(names), nil)
	i := 0
	for _, m := range ms {
		r, c := m.Dims()
		d.Slice(i, i+r, 0, c).(*mat.Dense).Copy(m.Data)
		i += r
	}
	return &Matrix{Names: append([]string(nil), names...), Data: d}, nil
}
