//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~vejnar/EpiCode/lib/arr"
	"git.sr.ht/~vejnar/EpiCode/lib/esam"
	"git.sr.ht/~vejnar/EpiCode/lib/region"
	"git.sr.ht/~vejnar/EpiCode/lib/run"
)

type fakeCounter struct {
	count func(chrom string, start, end int) int
	delay time.Duration
}

func (c fakeCounter) Count(chrom string, start, end int) (int, error) {
	time.Sleep(c.delay)
	return c.count(chrom, start, end), nil
}

func (c fakeCounter) Close() error { return nil }

// perRegion answers fixed counts keyed by region start.
func perRegion(counts map[int]int, delay time.Duration) fakeCounter {
	return fakeCounter{count: func(_ string, start, _ int) int { return counts[start] }, delay: delay}
}

func opener(counters map[string]esam.Counter) OpenFunc {
	return func(path string) (esam.Counter, error) {
		c, ok := counters[path]
		if !ok {
			return nil, errors.Wrap(esam.ErrNoIndex, path)
		}
		return c, nil
	}
}

var twoRegions = region.Set{{Chrom: "chr1", Start: 0, End: 100}, {Chrom: "chr1", Start: 100, End: 250}}

func TestAbsolute(t *testing.T) {
	paths := []string{"/data/f1.bam", "/data/f2.bam", "/data/f3.bam"}
	counters := map[string]esam.Counter{
		// The first file finishes last
		paths[0]: perRegion(map[int]int{0: 10, 100: 5}, 20*time.Millisecond),
		paths[1]: perRegion(map[int]int{0: 20, 100: 0}, 0),
		paths[2]: perRegion(map[int]int{}, 0),
	}
	m, err := Absolute(context.Background(), twoRegions, paths, Options{Workers: 3, Open: opener(counters)})
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2", "f3"}, m.Names)
	assert.InDeltaSlice(t, []float64{0.1, 0.2, 0}, m.Data.RawRowView(0), 1e-12)
	assert.InDeltaSlice(t, []float64{0.0333, 0, 0}, m.Data.RawRowView(1), 1e-4)
}

func TestAbsoluteRunExists(t *testing.T) {
	dir := t.TempDir()
	paths := []string{"f1.bam", "f2.bam", "f3.bam"}
	counters := map[string]esam.Counter{
		paths[0]: perRegion(map[int]int{0: 10, 100: 5}, 0),
		paths[1]: perRegion(map[int]int{0: 20}, 0),
		paths[2]: perRegion(nil, 0),
	}
	extractOnce := func() error {
		if err := run.CheckFree(dir, "run1", run.KindLevel); err != nil {
			return err
		}
		m, err := Absolute(context.Background(), twoRegions, paths, Options{Workers: 2, Open: opener(counters)})
		if err != nil {
			return err
		}
		return arr.WriteFile(run.Path(dir, "run1", run.KindLevel, ""), m, arr.FormatFloat)
	}
	require.NoError(t, extractOnce())
	assert.True(t, errors.Is(extractOnce(), run.ErrExists))

	m, err := arr.ReadFile(run.Path(dir, "run1", run.KindLevel, ""))
	require.NoError(t, err)
	r, c := m.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
}

func TestAbsoluteError(t *testing.T) {
	counters := map[string]esam.Counter{"f1.bam": perRegion(nil, 0)}
	_, err := Absolute(context.Background(), twoRegions, []string{"f1.bam", "missing.bam"}, Options{Workers: 2, Open: opener(counters)})
	assert.True(t, errors.Is(err, esam.ErrNoIndex))
}

func TestAbsoluteCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	counters := map[string]esam.Counter{"f1.bam": perRegion(nil, 0)}
	_, err := Absolute(ctx, twoRegions, []string{"f1.bam"}, Options{Open: opener(counters)})
	assert.Error(t, err)
}

const samText = "@HD\tVN:1.6\tSO:coordinate\n" +
	"@SQ\tSN:chr1\tLN:1000\n" +
	"r1\t0\tchr1\t11\t60\t20M\t*\t0\t0\t*\t*\n" +
	"r2\t0\tchr1\t91\t60\t20M\t*\t0\t0\t*\t*\n" +
	"r3\t0\tchr1\t201\t60\t20M\t*\t0\t0\t*\t*\n"

func TestAbsoluteSAM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "H3K4me3_wt.sam")
	require.NoError(t, os.WriteFile(path, []byte(samText), 0o644))
	m, err := Absolute(context.Background(), twoRegions, []string{path}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"H3K4me3_wt"}, m.Names)
	// r1 and r2 overlap the first region, r2 and r3 the second
	assert.InDelta(t, 0.02, m.Data.At(0, 0), 1e-12)
	assert.InDelta(t, 2.0/150, m.Data.At(1, 0), 1e-12)
}

func TestDifferential(t *testing.T) {
	regions := region.Set{{Chrom: "chr1", Start: 0, End: 250}, {Chrom: "chr2", Start: 10, End: 20}}
	byWindow := func(offset int) fakeCounter {
		return fakeCounter{count: func(_ string, start, end int) int {
			if end-start != 100 {
				panic("window width")
			}
			return start/100 + offset
		}}
	}
	counters := map[string]esam.Counter{
		"/d/H3K4me3_wt.bam": byWindow(0),
		"/d/H3K4me3_ko.bam": byWindow(10),
		"/d/H3K27ac_wt.bam": byWindow(20),
		"/d/H3K27ac_ko.bam": byWindow(30),
	}
	m, err := Differential(context.Background(), regions,
		[]string{"/d/H3K4me3_wt.bam", "/d/H3K27ac_wt.bam"},
		[]string{"/d/H3K4me3_ko.bam", "/d/H3K27ac_ko.bam"},
		Options{Workers: 2, Step: 100, Open: opener(counters)})
	require.NoError(t, err)
	assert.Equal(t, []string{"H3K27ac:a", "H3K27ac:b", "H3K4me3:a", "H3K4me3:b"}, m.Names)
	r, c := m.Dims()
	assert.Equal(t, 6, r)
	assert.Equal(t, 4, c)
	assert.Equal(t, Windows(regions, 100), r)
	assert.Equal(t, []float64{20, 30, 0, 10}, m.Data.RawRowView(0))
	assert.Equal(t, []float64{22, 32, 2, 12}, m.Data.RawRowView(2))
	assert.Equal(t, []float64{-1, -1, -1, -1}, m.Data.RawRowView(3))
	assert.Equal(t, []float64{20, 30, 0, 10}, m.Data.RawRowView(4))
	assert.Equal(t, []float64{-1, -1, -1, -1}, m.Data.RawRowView(5))
}

func TestDifferentialErrors(t *testing.T) {
	opts := Options{Step: 100, Open: opener(nil)}
	_, err := Differential(context.Background(), twoRegions, []string{"H3K4me3_wt.bam"}, []string{"H3K27ac_ko.bam"}, opts)
	assert.True(t, errors.Is(err, ErrPairMismatch))
	_, err = Differential(context.Background(), twoRegions, []string{"a_wt.bam", "b_wt.bam"}, []string{"a_ko.bam"}, opts)
	assert.True(t, errors.Is(err, ErrPairMismatch))
	opts.Step = 0
	_, err = Differential(context.Background(), twoRegions, []string{"a_wt.bam"}, []string{"a_ko.bam"}, opts)
	assert.True(t, errors.Is(err, ErrStep))
}

func TestCommonSubstring(t *testing.T) {
	assert.Equal(t, "", CommonSubstring([]string{"abc"}))
	assert.Equal(t, "_rep1_sorted", CommonSubstring([]string{"H3K4me3_rep1_sorted", "H3K27ac_rep1_sorted"}))
	// Leftmost wins ties
	assert.Equal(t, "ab", CommonSubstring([]string{"abxcd", "cdyab"}))
	assert.Equal(t, "", CommonSubstring([]string{"abc", "xyz"}))
}

func TestShorten(t *testing.T) {
	assert.Equal(t, []string{"H3K4me3", "H3K27ac"}, Shorten([]string{"H3K4me3_rep1_sorted", "H3K27ac_rep1_sorted"}))
	// Six characters are kept
	assert.Equal(t, []string{"a_rep1", "b_rep1"}, Shorten([]string{"a_rep1", "b_rep1"}))
}

func TestNames(t *testing.T) {
	assert.Equal(t, "H3K4me3_wt", BaseName("/data/H3K4me3_wt.bam"))
	assert.Equal(t, "H3K4me3", PairPrefix("/data/H3K4me3_wt_rep1.bam"))
	assert.Equal(t, "input", PairPrefix("input.sam.gz"))
	assert.Equal(t, []string{"f1", "f2"}, AbsoluteNames([]string{"/x/f1.bam", "/x/f2.bam"}, true))
	assert.Equal(t,
		[]string{"H3K4me3:a", "H3K4me3:b", "H3K27ac:a", "H3K27ac:b"},
		DifferentialNames([]string{"H3K4me3_x_long_suffix.bam", "H3K27ac_y.bam"}, []string{"H3K4me3_z.bam", "H3K27ac_w.bam"}, true))
}
