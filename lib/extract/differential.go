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
	"sort"

	"github.com/pkg/errors"

	"git.sr.ht/~vejnar/EpiCode/lib/arr"
	"git.sr.ht/~vejnar/EpiCode/lib/region"
	"git.sr.ht/~vejnar/EpiCode/lib/scale"
)

// Sentinel ends the windows of each region in differential counts.
const Sentinel = -1

// Pair sorts both lists and checks that the files of each pair share their name prefix.
func Pair(aPaths, bPaths []string) (a, b []string, err error) {
	if len(aPaths) == 0 || len(aPaths) != len(bPaths) {
		return nil, nil, errors.Wrapf(ErrPairMismatch, "%d A file(s), %d B file(s)", len(aPaths), len(bPaths))
	}
	a = append([]string(nil), aPaths...)
	b = append([]string(nil), bPaths...)
	sort.Strings(a)
	sort.Strings(b)
	for i := range a {
		if pa, pb := PairPrefix(a[i]), PairPrefix(b[i]); pa != pb {
			return nil, nil, errors.Wrapf(ErrPairMismatch, "%s (%s) and %s (%s)", a[i], pa, b[i], pb)
		}
	}
	return a, b, nil
}

// DifferentialNames returns the column names of Differential for paired lists.
func DifferentialNames(a, b []string, shorten bool) []string {
	names := make([]string, 0, len(a)+len(b))
	for _, p := range a {
		names = append(names, PairPrefix(p))
	}
	for _, p := range b {
		names = append(names, PairPrefix(p))
	}
	if shorten {
		names = Shorten(names)
	}
	out := make([]string, 0, len(names))
	for i := range a {
		out = append(out, names[i]+scale.SuffixA, names[len(a)+i]+scale.SuffixB)
	}
	return out
}

// Windows returns the number of rows of Differential: one per window plus one sentinel per region.
func Windows(regions region.Set, step int) int {
	return regions.Windows(step) + len(regions)
}

// Differential counts reads of paired files over windows of width step, from each
// region start while below its end; the last window may extend beyond the end.
// Each region is followed by a Sentinel row. Columns are A1, B1, A2, B2...
func Differential(ctx context.Context, regions region.Set, aPaths, bPaths []string, opts Options) (*arr.Matrix, error) {
	opts.defaults()
	if opts.Step < 1 {
		return nil, errors.Wrapf(ErrStep, "%d", opts.Step)
	}
	if len(regions) == 0 {
		return nil, errors.New("no region")
	}
	a, b, err := Pair(aPaths, bPaths)
	if err != nil {
		return nil, err
	}
	nrow := Windows(regions, opts.Step)
	tasks := make([]task, len(a))
	for i := range a {
		pa, pb := a[i], b[i]
		tasks[i] = func(ctx context.Context) ([][]float64, error) {
			ca, err := opts.Open(pa)
			if err != nil {
				return nil, errors.Wrap(err, pa)
			}
			defer ca.Close()
			cb, err := opts.Open(pb)
			if err != nil {
				return nil, errors.Wrap(err, pb)
			}
			defer cb.Close()
			acount := make([]float64, 0, nrow)
			bcount := make([]float64, 0, nrow)
			chrom := regions[0].Chrom
			for _, reg := range regions {
				if reg.Chrom != chrom {
					opts.progress("files: %s - %s : %s counted", pa, pb, chrom)
					chrom = reg.Chrom
				}
				for s := reg.Start; s < reg.End; s += opts.Step {
					e := s + opts.Step
					an, err := count(ctx, ca, reg.Chrom, s, e)
					if err != nil {
						return nil, errors.Wrapf(err, "%s %s:%d-%d", pa, reg.Chrom, s, e)
					}
					bn, err := count(ctx, cb, reg.Chrom, s, e)
					if err != nil {
						return nil, errors.Wrapf(err, "%s %s:%d-%d", pb, reg.Chrom, s, e)
					}
					acount = append(acount, float64(an))
					bcount = append(bcount, float64(bn))
				}
				acount = append(acount, Sentinel)
				bcount = append(bcount, Sentinel)
			}
			opts.progress("files: %s - %s : %s counted (finished)", pa, pb, chrom)
			return [][]float64{acount, bcount}, nil
		}
	}
	cols, err := runPool(ctx, tasks, opts.Workers)
	if err != nil {
		return nil, err
	}
	return arr.FromColumns(DifferentialNames(a, b, opts.Shorten), cols)
}
