//
// Copyright © 2015 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

// Package esam counts aligned reads overlapping genomic intervals in SAM and BAM files.
package esam

import (
	"path/filepath"
	"strings"

	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"
	"gopkg.in/fatih/set.v0"

	"git.sr.ht/~vejnar/EpiCode/lib/xio"
)

var (
	// ErrNoIndex is returned when a BAM file has no BAI index.
	ErrNoIndex = errors.New("missing BAM index")
	// ErrUnknownReference is returned when a chromosome is absent from the alignment header.
	ErrUnknownReference = errors.New("unknown reference")
)

// Counter counts reads overlapping the half-open interval [start,end) of chrom.
type Counter interface {
	Count(chrom string, start, end int) (int, error)
	Close() error
}

// PathSAM stores Path to SAM (Binary=false) or BAM (Binary=true) file.
type PathSAM struct {
	Path   string
	Binary bool
}

// NewPathSAM guesses the file type from its extension.
func NewPathSAM(path string) PathSAM {
	return PathSAM{Path: path, Binary: strings.EqualFold(filepath.Ext(xio.TrimCompressionExt(path)), ".bam")}
}

// Name returns the file name without directory and without its last extension.
func (p PathSAM) Name() string {
	base := filepath.Base(xio.TrimCompressionExt(p.Path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Options selects the alignments that are counted.
type Options struct {
	// MinMapQ is the minimum mapping quality.
	MinMapQ byte
	// MinOverlap is the minimum number of aligned bases inside the interval.
	MinOverlap int
	// CountNames counts distinct read names instead of alignments (mates count once).
	CountNames bool
}

func (o Options) keep(r *sam.Record) bool {
	return r.Flags&sam.Unmapped == 0 && r.MapQ >= o.MinMapQ
}

func (o Options) overlaps(r *sam.Record, start, end int) bool {
	if r.Pos >= end || r.End() <= start {
		return false
	}
	if o.MinOverlap > 0 {
		return Overlap(r, start, end) >= o.MinOverlap
	}
	return true
}

// tally counts alignments or distinct names.
type tally struct {
	n     int
	names set.Interface
}

func newTally(opts Options) *tally {
	t := &tally{}
	if opts.CountNames {
		t.names = set.New(set.NonThreadSafe)
	}
	return t
}

func (t *tally) add(r *sam.Record) {
	if t.names != nil {
		t.names.Add(r.Name)
	} else {
		t.n++
	}
}

func (t *tally) total() int {
	if t.names != nil {
		return t.names.Size()
	}
	return t.n
}

// Open opens a SAM or BAM file for counting.
func Open(p PathSAM, opts Options) (Counter, error) {
	if p.Binary {
		return OpenBAM(p.Path, opts)
	}
	return OpenSAM(p.Path, opts)
}

// Overlap returns the length of the overlap between the alignment of the SAM record and the interval specified with start and end.
func Overlap(r *sam.Record, start, end int) int {
	var overlap int
	pos := r.Pos
	for _, co := range r.Cigar {
		t := co.Type()
		con := t.Consumes()
		lr := co.Len() * con.Reference
		if con.Query == con.Reference {
			o := min(pos+lr, end) - max(pos, start)
			if o > 0 {
				overlap += o
			}
		}
		pos += lr
	}
	return overlap
}

func min(a, b int) int {
	if a > b {
		return b
	}
	return a
}

func max(a, b int) int {
	if a < b {
		return b
	}
	return a
}
