//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package track

import (
	"bytes"
	"io"
	"math"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~vejnar/EpiCode/lib/region"
	"git.sr.ht/~vejnar/EpiCode/lib/xio"
)

var regions = region.Set{{Chrom: "chr2", Start: 0, End: 250}, {Chrom: "chr1", Start: 100, End: 150}}

func TestLayout(t *testing.T) {
	rows := Layout(regions, 0)
	assert.Equal(t, []Interval{{Chrom: "chr2", Start: 0, End: 250}, {Chrom: "chr1", Start: 100, End: 150}}, rows)

	rows = Layout(regions, 100)
	require.Len(t, rows, regions.Windows(100)+len(regions))
	assert.Equal(t, Interval{Chrom: "chr2", Start: 200, End: 250}, rows[2])
	assert.True(t, rows[3].Sentinel)
	assert.Equal(t, Interval{Chrom: "chr1", Start: 100, End: 150}, rows[4])
	assert.True(t, rows[5].Sentinel)
}

func TestWriteBedGraph(t *testing.T) {
	rows := Layout(regions, 100)
	require.NoError(t, Fill(rows, []float64{2, 2, 0.5, -1, 3, -1}))
	var buf bytes.Buffer
	require.NoError(t, WriteBedGraph(&buf, rows))
	assert.Equal(t, "chr1\t100\t150\t3.000000\n"+
		"chr2\t0\t200\t2.000000\n"+
		"chr2\t200\t250\t0.500000\n", buf.String())

	rows = Layout(regions, 0)
	require.NoError(t, Fill(rows, []float64{0, math.NaN()}))
	buf.Reset()
	require.NoError(t, WriteBedGraph(&buf, rows))
	assert.Empty(t, buf.String())

	assert.True(t, errors.Is(Fill(rows, []float64{1}), ErrLayout))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.bedgraph.gz")
	rows := Layout(regions, 0)
	require.NoError(t, Fill(rows, []float64{1, 1}))
	require.NoError(t, WriteFile(path, rows))
	f, err := xio.Open(path)
	require.NoError(t, err)
	defer f.Close()
	raw, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "chr1\t100\t150\t1.000000\nchr2\t0\t250\t1.000000\n", string(raw))
}
