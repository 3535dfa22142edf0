//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package esam

import (
	"os"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/bgzf/index"
	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"
)

// BAMCounter answers interval queries on a coordinate sorted and indexed BAM file.
type BAMCounter struct {
	f    *os.File
	br   *bam.Reader
	idx  *bam.Index
	refs map[string]*sam.Reference
	opts Options
}

// IndexPath returns the path of the BAI index of a BAM file (file.bam.bai or file.bai).
func IndexPath(path string) (string, error) {
	candidates := []string{path + ".bai"}
	if strings.HasSuffix(path, ".bam") {
		candidates = append(candidates, strings.TrimSuffix(path, ".bam")+".bai")
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", errors.Wrap(ErrNoIndex, path)
}

// OpenBAM opens a BAM file and its index.
func OpenBAM(path string, opts Options) (*BAMCounter, error) {
	idxPath, err := IndexPath(path)
	if err != nil {
		return nil, err
	}
	fi, err := os.Open(idxPath)
	if err != nil {
		return nil, err
	}
	idx, err := bam.ReadIndex(fi)
	fi.Close()
	if err != nil {
		return nil, errors.Wrapf(err, "reading index %s", idxPath)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	br, err := bam.NewReader(f, 1)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	c := &BAMCounter{f: f, br: br, idx: idx, refs: make(map[string]*sam.Reference), opts: opts}
	for _, ref := range br.Header().Refs() {
		c.refs[ref.Name()] = ref
	}
	return c, nil
}

// Count returns the number of reads overlapping [start,end) on chrom.
func (c *BAMCounter) Count(chrom string, start, end int) (int, error) {
	ref, ok := c.refs[chrom]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownReference, "%s", chrom)
	}
	chunks, err := c.idx.Chunks(ref, start, end)
	if err == index.ErrNoReference {
		// Reference without any alignment
		return 0, nil
	} else if err != nil {
		return 0, errors.Wrapf(err, "%s:%d-%d", chrom, start, end)
	}
	if len(chunks) == 0 {
		return 0, nil
	}
	it, err := bam.NewIterator(c.br, chunks)
	if err != nil {
		return 0, errors.Wrapf(err, "%s:%d-%d", chrom, start, end)
	}
	t := newTally(c.opts)
	for it.Next() {
		r := it.Record()
		if r.Ref == nil || r.Ref.ID() != ref.ID() || !c.opts.keep(r) {
			continue
		}
		if c.opts.overlaps(r, start, end) {
			t.add(r)
		}
	}
	if err = it.Error(); err != nil {
		it.Close()
		return 0, errors.Wrapf(err, "%s:%d-%d", chrom, start, end)
	}
	if err = it.Close(); err != nil {
		return 0, err
	}
	return t.total(), nil
}

// Close closes the BAM reader and file.
func (c *BAMCounter) Close() error {
	err := c.br.Close()
	if ferr := c.f.Close(); err == nil {
		err = ferr
	}
	return err
}
