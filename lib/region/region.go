//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package region

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/fatih/set.v0"

	"git.sr.ht/~vejnar/EpiCode/lib/xio"
)

// ErrInvalidRecord is returned for BED lines that cannot be parsed.
var ErrInvalidRecord = errors.New("invalid BED record")

// Region is a genomic interval, 0-based and half-open [Start,End).
type Region struct {
	Chrom  string
	Start  int
	End    int
	Name   string
	Score  string
	Strand string
}

// Length returns the length of region
func (r Region) Length() int {
	return r.End - r.Start
}

// Windows returns the number of step-wide windows starting at Start, Start+step, ... before End.
func (r Region) Windows(step int) int {
	return (r.Length() + step - 1) / step
}

// Set is an ordered collection of regions, in input order.
type Set []Region

// Chroms returns the distinct chromosomes in order of first appearance.
func (s Set) Chroms() []string {
	seen := set.New(set.NonThreadSafe)
	var chroms []string
	for _, r := range s {
		if !seen.Has(r.Chrom) {
			seen.Add(r.Chrom)
			chroms = append(chroms, r.Chrom)
		}
	}
	return chroms
}

// Windows returns the total number of windows of width step over all regions.
func (s Set) Windows(step int) (n int) {
	for _, r := range s {
		n += r.Windows(step)
	}
	return
}

// ParseBED parses BED3 to BED6+ records. Columns beyond the sixth are ignored.
// Regions with a negative start are dropped.
func ParseBED(r io.Reader) (regions Set, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var nline int
	for scanner.Scan() {
		nline++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if len(strings.TrimSpace(line)) == 0 || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			return nil, errors.Wrapf(ErrInvalidRecord, "line %d: %d field(s)", nline, len(fields))
		}
		var reg Region
		reg.Chrom = fields[0]
		if reg.Start, err = strconv.Atoi(strings.TrimSpace(fields[1])); err != nil {
			return nil, errors.Wrapf(ErrInvalidRecord, "line %d: start %q", nline, fields[1])
		}
		if reg.End, err = strconv.Atoi(strings.TrimSpace(fields[2])); err != nil {
			return nil, errors.Wrapf(ErrInvalidRecord, "line %d: end %q", nline, fields[2])
		}
		// Alignment indexes cannot be queried at negative coordinates
		if reg.Start < 0 {
			continue
		}
		if reg.End <= reg.Start {
			return nil, errors.Wrapf(ErrInvalidRecord, "line %d: end %d not after start %d", nline, reg.End, reg.Start)
		}
		if len(fields) > 3 {
			reg.Name = fields[3]
		}
		if len(fields) > 4 {
			reg.Score = fields[4]
		}
		if len(fields) > 5 {
			reg.Strand = fields[5]
		}
		regions = append(regions, reg)
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}
	return regions, nil
}

// OpenBED reads a (possibly compressed) BED file.
func OpenBED(path string) (Set, error) {
	f, err := xio.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	regions, err := ParseBED(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return regions, nil
}
