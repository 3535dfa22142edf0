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

	"github.com/pkg/errors"

	"git.sr.ht/~vejnar/EpiCode/lib/arr"
	"git.sr.ht/~vejnar/EpiCode/lib/region"
)

// AbsoluteNames returns the column names of Absolute.
func AbsoluteNames(paths []string, shorten bool) []string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = BaseName(p)
	}
	if shorten {
		names = Shorten(names)
	}
	return names
}

// Absolute counts the reads of every file over every region, divided by the region length.
// Rows follow regions; columns follow paths.
func Absolute(ctx context.Context, regions region.Set, paths []string, opts Options) (*arr.Matrix, error) {
	opts.defaults()
	if len(regions) == 0 {
		return nil, errors.New("no region")
	}
	tasks := make([]task, len(paths))
	for i, path := range paths {
		path := path
		tasks[i] = func(ctx context.Context) ([][]float64, error) {
			opts.progress("Opening %s", path)
			c, err := opts.Open(path)
			if err != nil {
				return nil, errors.Wrap(err, path)
			}
			defer c.Close()
			levels := make([]float64, len(regions))
			for j, reg := range regions {
				n, err := count(ctx, c, reg.Chrom, reg.Start, reg.End)
				if err != nil {
					return nil, errors.Wrapf(err, "%s %s:%d-%d", path, reg.Chrom, reg.Start, reg.End)
				}
				levels[j] = float64(n) / float64(reg.Length())
			}
			opts.progress("%s counted", path)
			return [][]float64{levels}, nil
		}
	}
	cols, err := runPool(ctx, tasks, opts.Workers)
	if err != nil {
		return nil, err
	}
	return arr.FromColumns(AbsoluteNames(paths, opts.Shorten), cols)
}
