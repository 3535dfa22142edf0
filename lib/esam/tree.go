//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package esam

import (
	"fmt"

	"github.com/biogo/hts/sam"
	"github.com/biogo/store/interval"
	"github.com/pkg/errors"
)

// readInterval is the aligned span of one read.
type readInterval struct {
	Start, End int
	UID        uintptr
	Record     *sam.Record
}

func (i readInterval) Overlap(b interval.IntRange) bool {
	// Half-open interval indexing.
	return i.End > b.Start && i.Start < b.End
}

func (i readInterval) ID() uintptr {
	return i.UID
}

func (i readInterval) Range() interval.IntRange {
	return interval.IntRange{Start: i.Start, End: i.End}
}

func (i readInterval) String() string {
	return fmt.Sprintf("[%d,%d)#%d-%s", i.Start, i.End, i.UID, i.Record.Name)
}

// TreeCounter answers interval queries from reads held in memory, one interval tree per reference.
type TreeCounter struct {
	trees map[string]*interval.IntTree
	opts  Options
}

// NewTreeCounter indexes records. Every reference in refs can be queried, even without any read.
func NewTreeCounter(refs []*sam.Reference, records []*sam.Record, opts Options) (*TreeCounter, error) {
	c := &TreeCounter{trees: make(map[string]*interval.IntTree), opts: opts}
	for _, ref := range refs {
		c.trees[ref.Name()] = &interval.IntTree{}
	}
	for i, r := range records {
		if r.Ref == nil || !opts.keep(r) {
			continue
		}
		start, end := r.Pos, r.End()
		if end <= start {
			continue
		}
		tree, ok := c.trees[r.Ref.Name()]
		if !ok {
			tree = &interval.IntTree{}
			c.trees[r.Ref.Name()] = tree
		}
		if err := tree.Insert(readInterval{Start: start, End: end, UID: uintptr(i), Record: r}, true); err != nil {
			return nil, errors.Wrapf(err, "indexing %s", r.Name)
		}
	}
	for _, tree := range c.trees {
		tree.AdjustRanges()
	}
	return c, nil
}

// Count returns the number of reads overlapping [start,end) on chrom.
func (c *TreeCounter) Count(chrom string, start, end int) (int, error) {
	tree, ok := c.trees[chrom]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownReference, "%s", chrom)
	}
	t := newTally(c.opts)
	for _, iv := range tree.Get(readInterval{Start: start, End: end}) {
		r := iv.(readInterval).Record
		if c.opts.overlaps(r, start, end) {
			t.add(r)
		}
	}
	return t.total(), nil
}

func (c *TreeCounter) Close() error {
	return nil
}
