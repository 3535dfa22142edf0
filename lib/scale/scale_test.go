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
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~vejnar/EpiCode/lib/arr"
)

func matrix(t *testing.T, names []string, cols ...[]float64) *arr.Matrix {
	m, err := arr.FromColumns(names, cols)
	require.NoError(t, err)
	return m
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("sig95")
	require.NoError(t, err)
	assert.Equal(t, Sigmoid, m.Kind)
	assert.InDelta(t, 0.95, m.Percentile, 1e-12)

	m, err = ParseMethod("whiten")
	require.NoError(t, err)
	assert.Equal(t, Whiten, m.Kind)

	for _, name := range []string{"sig", "sigx", "sig0", "sig101", "zscore", ""} {
		_, err = ParseMethod(name)
		assert.True(t, errors.Is(err, ErrUnknownMethod), name)
	}
	_, err = ParsePairMethod("whiten")
	assert.True(t, errors.Is(err, ErrUnknownMethod))
	_, err = ParseFeatureMethod("deseq")
	assert.True(t, errors.Is(err, ErrUnknownMethod))
}

func TestSizeFactors(t *testing.T) {
	names := []string{"H3K4me3:a", "H3K4me3:b"}
	// B is twice A everywhere
	m := matrix(t, names, []float64{10, 20, -1, 5, 0}, []float64{20, 40, -1, 10, 8})
	sf, err := SizeFactors(m)
	require.NoError(t, err)
	assert.InDelta(t, 1/math.Sqrt2, sf[0], 1e-12)
	assert.InDelta(t, math.Sqrt2, sf[1], 1e-12)

	scaled, _, err := Pairs(m, Method{Kind: DESeq, Name: "deseq"})
	require.NoError(t, err)
	assert.InDelta(t, 10*math.Sqrt2, scaled.Data.At(0, 0), 1e-9)
	assert.InDelta(t, 10*math.Sqrt2, scaled.Data.At(0, 1), 1e-9)
	assert.True(t, math.IsNaN(scaled.Data.At(2, 0)))
	assert.True(t, math.IsNaN(scaled.Data.At(2, 1)))
	// Input untouched
	assert.Equal(t, 10.0, m.Data.At(0, 0))
}

func TestPairsIdempotent(t *testing.T) {
	m := matrix(t, []string{"x:a", "x:b", "y:a", "y:b"},
		[]float64{3, 7, 12, 1, 9},
		[]float64{5, 2, 30, 4, 11},
		[]float64{100, 90, 120, 80, 70},
		[]float64{10, 12, 8, 30, 9},
	)
	scaled, _, err := Pairs(m, Method{Kind: DESeq})
	require.NoError(t, err)
	sf, err := SizeFactors(scaled)
	require.NoError(t, err)
	for _, f := range sf {
		assert.InDelta(t, 1, f, 1e-9)
	}
}

func TestSizeFactorsNoUsableRows(t *testing.T) {
	m := matrix(t, []string{"x:a", "x:b", "y:a", "y:b"},
		[]float64{0, 4, -1},
		[]float64{3, 0, -1},
		[]float64{1, 1, -1},
		[]float64{1, 1, -1},
	)
	_, err := SizeFactors(m)
	assert.True(t, errors.Is(err, ErrNoUsableRows))

	_, err = SizeFactors(matrix(t, []string{"x:a"}, []float64{1}))
	assert.True(t, errors.Is(err, ErrUnpaired))
}

func TestGainLoss(t *testing.T) {
	nan := math.NaN()
	m := matrix(t, []string{"H3K4me3:a", "H3K4me3:b", "H3K27ac:a", "H3K27ac:b"},
		// Region 1: single window +5 / -2; region 2: all zero deltas; region 3: empty;
		// region 4: two windows
		[]float64{1, nan, 4, 4, nan, nan, 0, 10, nan},
		[]float64{6, nan, 4, 4, nan, nan, 6, 4, nan},
		[]float64{3, nan, 2, 2, nan, nan, 1, 1, nan},
		[]float64{1, nan, 2, 2, nan, nan, 1, 1, nan},
	)
	gl, err := GainLoss(m)
	require.NoError(t, err)
	assert.Equal(t, []string{"H3K4me3:g", "H3K4me3:l", "H3K27ac:g", "H3K27ac:l"}, gl.Names)
	r, c := gl.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 4, c)
	assert.Equal(t, []float64{5, 0, 0, 2}, gl.Data.RawRowView(0))
	assert.Equal(t, []float64{0, 0, 0, 0}, gl.Data.RawRowView(1))
	assert.Equal(t, []float64{0, 0, 0, 0}, gl.Data.RawRowView(2))
	assert.Equal(t, []float64{3, 3, 0, 0}, gl.Data.RawRowView(3))

	// Raw count sentinels end regions too
	m = matrix(t, []string{"x:a", "x:b"},
		[]float64{1, -1, 2, -1},
		[]float64{6, -1, 2, -1},
	)
	gl, err = GainLoss(m)
	require.NoError(t, err)
	r, _ = gl.Dims()
	require.Equal(t, 2, r)
	assert.Equal(t, []float64{5, 0}, gl.Data.RawRowView(0))
	assert.Equal(t, []float64{0, 0}, gl.Data.RawRowView(1))
}

func TestGainLossNames(t *testing.T) {
	assert.Equal(t, []string{"m:a:g", "m:b:l"}, GainLossNames([]string{"m:a:a", "m:b:b"}))
	assert.Equal(t, "x", ReplaceLast("x", ":a", ":g"))
}

func TestMQuantiles(t *testing.T) {
	x := []float64{5, 1, 4, 2, 3, math.NaN()}
	q := MQuantiles(x, []float64{0, 0.5, 1}, 0.4, 0.4)
	assert.Equal(t, 1.0, q[0])
	assert.InDelta(t, 3, q[1], 1e-12)
	assert.Equal(t, 5.0, q[2])
	// scipy.stats.mstats.mquantiles(range(1, 11), [0.95]) == 10.0 and [0.25] == 2.95
	ten := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	q = MQuantiles(ten, []float64{0.25, 0.95}, 0.4, 0.4)
	assert.InDelta(t, 2.95, q[0], 1e-12)
	assert.InDelta(t, 10, q[1], 1e-12)
}

func TestSigmoid(t *testing.T) {
	m := matrix(t, []string{"a", "const"},
		[]float64{0, 1, 2, 3, 50, 1e6},
		[]float64{4, 4, 4, 4, 4, 4},
	)
	out, err := Features(m, Method{Kind: Sigmoid, Percentile: 0.95})
	require.NoError(t, err)
	for i, v := range out.Col(0) {
		assert.True(t, v >= -1 && v <= 1, "row %d: %v", i, v)
	}
	assert.Equal(t, 0.0, out.Data.At(0, 0))
	for _, v := range out.Col(1) {
		assert.Equal(t, 0.0, v)
	}
	// Monotonic
	col := out.Col(0)
	for i := 1; i < len(col); i++ {
		assert.True(t, col[i] >= col[i-1])
	}
}

func TestDsig(t *testing.T) {
	assert.Equal(t, 0.0, Dsig(2, 2, 2, 10))
	assert.InDelta(t, 2/(1+math.Exp(-2))-1, Dsig(10, 2, 2, 10), 1e-12)
	assert.InDelta(t, 2/(1+math.Exp(2.0/3))-1, Dsig(0, -4, 2, 10), 1e-12)
}

func TestWhiten(t *testing.T) {
	m := matrix(t, []string{"unit", "const", "double"},
		[]float64{1, 2, 3},
		[]float64{7, 7, 7},
		[]float64{2, 4, 6},
	)
	out, err := Features(m, Method{Kind: Whiten})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, out.Col(0))
	for _, v := range out.Col(1) {
		assert.True(t, math.IsNaN(v))
	}
	assert.InDeltaSlice(t, []float64{1, 2, 3}, out.Col(2), 1e-12)
}
