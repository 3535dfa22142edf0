//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package esam

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~vejnar/EpiCode/lib/xio"
)

const samText = "@HD\tVN:1.6\tSO:coordinate\n" +
	"@SQ\tSN:chr1\tLN:1000\n" +
	"@SQ\tSN:chr2\tLN:1000\n" +
	"@SQ\tSN:chrM\tLN:100\n" +
	"r1\t0\tchr1\t11\t60\t20M\t*\t0\t0\t*\t*\n" +
	"r1\t0\tchr1\t21\t60\t20M\t*\t0\t0\t*\t*\n" +
	"r3\t4\tchr1\t21\t0\t*\t*\t0\t0\t*\t*\n" +
	"r2\t0\tchr1\t51\t5\t10M\t*\t0\t0\t*\t*\n" +
	"r4\t0\tchr1\t91\t60\t5M100N5M\t*\t0\t0\t*\t*\n" +
	"r5\t0\tchr2\t1\t60\t10M\t*\t0\t0\t*\t*\n"

func openTestSAM(t *testing.T, name string, opts Options) Counter {
	path := filepath.Join(t.TempDir(), name)
	w, err := xio.Create(path)
	require.NoError(t, err)
	_, err = io.WriteString(w, samText)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	c, err := Open(NewPathSAM(path), opts)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCount(t *testing.T) {
	for _, name := range []string{"marks.sam", "marks.sam.gz"} {
		c := openTestSAM(t, name, Options{})
		for _, tc := range []struct {
			chrom      string
			start, end int
			want       int
		}{
			{"chr1", 0, 100, 4},
			{"chr1", 30, 50, 1},
			{"chr1", 100, 190, 1},
			{"chr1", 300, 400, 0},
			{"chr2", 0, 5, 1},
			{"chrM", 0, 100, 0},
		} {
			n, err := c.Count(tc.chrom, tc.start, tc.end)
			require.NoError(t, err)
			assert.Equal(t, tc.want, n, "%s %s:%d-%d", name, tc.chrom, tc.start, tc.end)
		}
	}
}

func TestCountOptions(t *testing.T) {
	n, err := openTestSAM(t, "a.sam", Options{CountNames: true}).Count("chr1", 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = openTestSAM(t, "a.sam", Options{MinMapQ: 10}).Count("chr1", 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Only the skipped part of r4 is inside the interval
	n, err = openTestSAM(t, "a.sam", Options{MinOverlap: 1}).Count("chr1", 100, 190)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestUnknownReference(t *testing.T) {
	_, err := openTestSAM(t, "a.sam", Options{}).Count("chr3", 0, 10)
	assert.True(t, errors.Is(err, ErrUnknownReference))
}

func TestOverlap(t *testing.T) {
	refs, records, err := ReadSAM(strings.NewReader(samText))
	require.NoError(t, err)
	require.Len(t, refs, 3)
	require.Len(t, records, 6)
	r4 := records[4]
	assert.Equal(t, 10, Overlap(r4, 0, 1000))
	assert.Equal(t, 5, Overlap(r4, 92, 197))
	assert.Equal(t, 0, Overlap(r4, 100, 190))
}

func TestNewTreeCounter(t *testing.T) {
	refs, records, err := ReadSAM(strings.NewReader(samText))
	require.NoError(t, err)
	c, err := NewTreeCounter(refs[:1], records[:2], Options{})
	require.NoError(t, err)
	n, err := c.Count("chr1", 25, 26)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = c.Count("chr2", 0, 10)
	assert.True(t, errors.Is(err, ErrUnknownReference))
}

func TestPathSAM(t *testing.T) {
	p := NewPathSAM("/data/H3K4me3_wt.bam")
	assert.True(t, p.Binary)
	assert.Equal(t, "H3K4me3_wt", p.Name())
	p = NewPathSAM("/data/H3K27ac_wt.sam.gz")
	assert.False(t, p.Binary)
	assert.Equal(t, "H3K27ac_wt", p.Name())
}

func TestMissingIndex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.bam")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	_, err := OpenBAM(path, Options{})
	assert.True(t, errors.Is(err, ErrNoIndex))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.bai"), nil, 0o644))
	idx, err := IndexPath(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "x.bai"), idx)
}
