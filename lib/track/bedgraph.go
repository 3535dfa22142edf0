//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

// Package track lays matrix rows out on the genome and writes them as bedGraph.
package track

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/pkg/errors"

	"git.sr.ht/~vejnar/EpiCode/lib/region"
	"git.sr.ht/~vejnar/EpiCode/lib/xio"
)

// Precision is the largest difference between values merged into one bedGraph line.
const Precision = 0.000001

// ErrLayout is returned when a matrix does not match the layout of its regions.
var ErrLayout = errors.New("rows do not match regions")

// Interval is a value over [Start,End) of Chrom.
type Interval struct {
	Chrom      string
	Start, End int
	Value      float64
	// Sentinel rows separate the windows of two regions.
	Sentinel bool
}

// Layout returns the interval of every matrix row. With step 0, there is one row
// per region. Otherwise each region is cut into windows of step, clipped to the
// region end, and followed by a sentinel row.
func Layout(regions region.Set, step int) []Interval {
	var out []Interval
	for _, reg := range regions {
		if step < 1 {
			out = append(out, Interval{Chrom: reg.Chrom, Start: reg.Start, End: reg.End})
			continue
		}
		for s := reg.Start; s < reg.End; s += step {
			e := s + step
			if e > reg.End {
				e = reg.End
			}
			out = append(out, Interval{Chrom: reg.Chrom, Start: s, End: e})
		}
		out = append(out, Interval{Chrom: reg.Chrom, Start: reg.End, End: reg.End, Sentinel: true})
	}
	return out
}

// Fill sets the values of intervals.
func Fill(intervals []Interval, values []float64) error {
	if len(intervals) != len(values) {
		return errors.Wrapf(ErrLayout, "%d row(s) for %d interval(s)", len(values), len(intervals))
	}
	for i := range intervals {
		intervals[i].Value = values[i]
	}
	return nil
}

// WriteBedGraph writes intervals sorted by position. Contiguous intervals with
// the same value are merged; zero, missing and sentinel values are skipped.
func WriteBedGraph(w io.Writer, intervals []Interval) error {
	sorted := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.Sentinel || iv.Value == 0 || math.IsNaN(iv.Value) || iv.End <= iv.Start {
			continue
		}
		sorted = append(sorted, iv)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Chrom != sorted[j].Chrom {
			return sorted[i].Chrom < sorted[j].Chrom
		}
		return sorted[i].Start < sorted[j].Start
	})

	bw := bufio.NewWriter(w)
	var step *Interval
	for i := range sorted {
		iv := sorted[i]
		if step != nil && step.Chrom == iv.Chrom && step.End == iv.Start && math.Abs(step.Value-iv.Value) <= Precision {
			step.End = iv.End
			continue
		}
		if step != nil {
			fmt.Fprintf(bw, "%s\t%d\t%d\t%f\n", step.Chrom, step.Start, step.End, step.Value)
		}
		step = &sorted[i]
	}
	if step != nil {
		fmt.Fprintf(bw, "%s\t%d\t%d\t%f\n", step.Chrom, step.Start, step.End, step.Value)
	}
	return bw.Flush()
}

// WriteFile writes a (possibly compressed) bedGraph file.
func WriteFile(path string, intervals []Interval) error {
	f, err := xio.Create(path)
	if err != nil {
		return err
	}
	if err = WriteBedGraph(f, intervals); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
