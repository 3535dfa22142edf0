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

	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"

	"git.sr.ht/~vejnar/EpiCode/lib/xio"
)

// ReadSAM reads all records of a SAM stream.
func ReadSAM(r io.Reader) (refs []*sam.Reference, records []*sam.Record, err error) {
	sr, err := sam.NewReader(r)
	if err != nil {
		return nil, nil, err
	}
	for {
		rec, err := sr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, nil, err
		}
		records = append(records, rec)
	}
	return sr.Header().Refs(), records, nil
}

// OpenSAM loads a (possibly compressed) SAM file in memory. SAM files have no index.
func OpenSAM(path string, opts Options) (*TreeCounter, error) {
	f, err := xio.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	refs, records, err := ReadSAM(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return NewTreeCounter(refs, records, opts)
}
