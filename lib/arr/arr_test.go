//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package arr

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testMatrix(t *testing.T) *Matrix {
	m, err := FromColumns([]string{"H3K4me3", "H3K27ac", "input"}, [][]float64{
		{0.1, 1.0 / 30},
		{0.2, 0},
		{math.NaN(), -1.5e-7},
	})
	require.NoError(t, err)
	return m
}

func assertSame(t *testing.T, want, got *Matrix) {
	t.Helper()
	require.Equal(t, want.Names, got.Names)
	wr, wc := want.Dims()
	gr, gc := got.Dims()
	require.Equal(t, wr, gr)
	require.Equal(t, wc, gc)
	for i := 0; i < wr; i++ {
		for j := 0; j < wc; j++ {
			w, g := want.Data.At(i, j), got.Data.At(i, j)
			if math.IsNaN(w) {
				assert.True(t, math.IsNaN(g), "(%d,%d)", i, j)
			} else {
				assert.Equal(t, w, g, "(%d,%d)", i, j)
			}
		}
	}
}

func TestRoundTrip(t *testing.T) {
	m := testMatrix(t)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, m, FormatFloat))
	assert.True(t, strings.HasPrefix(buf.String(), "H3K4me3\tH3K27ac\tinput\n0.1\t0.2\tnan\n"))
	got, err := Read(&buf)
	require.NoError(t, err)
	assertSame(t, m, got)
}

func TestRoundTripFile(t *testing.T) {
	m := testMatrix(t)
	for _, name := range []string{"run_lvl.arr", "run_lvl.arr.gz", "run_lvl.arr.zst"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, WriteFile(path, m, FormatFloat))
		got, err := ReadFile(path)
		require.NoError(t, err)
		assertSame(t, m, got)
	}
}

func TestFormatInt(t *testing.T) {
	m, err := FromColumns([]string{"H3K4me3:a", "H3K4me3:b"}, [][]float64{{3, -1}, {0, -1}})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, m, FormatInt))
	assert.Equal(t, "H3K4me3:a\tH3K4me3:b\n3\t0\n-1\t-1\n", buf.String())
}

func TestReadErrors(t *testing.T) {
	for _, in := range []string{
		"",
		"a\tb\n",
		"a\tb\n1\t2\n3\n",
		"a\tb\n1\tx\n",
	} {
		_, err := Read(strings.NewReader(in))
		assert.True(t, errors.Is(err, ErrFormat), "%q: %v", in, err)
	}
}

func TestNew(t *testing.T) {
	_, err := New([]string{"a"}, mat.NewDense(1, 2, nil))
	assert.True(t, errors.Is(err, ErrNames))
	_, err = FromColumns([]string{"a", "b"}, [][]float64{{1, 2}, {3}})
	assert.True(t, errors.Is(err, ErrFormat))
}

func TestStack(t *testing.T) {
	a := testMatrix(t)
	b := a.Clone()
	b.Data.Set(0, 0, 7)
	s, err := Stack(a, b)
	require.NoError(t, err)
	r, c := s.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 0.1, s.Data.At(0, 0))
	assert.Equal(t, 7.0, s.Data.At(2, 0))
	assert.Equal(t, 0.1, a.Data.At(0, 0))

	b.Names = []string{"H3K4me3", "H3K27me3", "input"}
	_, err = Stack(a, b)
	assert.True(t, errors.Is(err, ErrNames))
}

func TestNpy(t *testing.T) {
	m := testMatrix(t)
	var buf bytes.Buffer
	require.NoError(t, WriteNpy(&buf, m))
	got, err := ReadNpy(&buf, m.Names)
	require.NoError(t, err)
	assertSame(t, m, got)
}
