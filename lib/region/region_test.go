//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package region

import (
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~vejnar/EpiCode/lib/xio"
)

const bed = `track name=promoters
chr1	0	100	p1	0	+
chr1	100	250	p2	0	-
# comment
chr2	-50	10	neg	0	+

chr2	300	410
`

func TestParseBED(t *testing.T) {
	regions, err := ParseBED(strings.NewReader(bed))
	require.NoError(t, err)
	require.Len(t, regions, 3)
	assert.Equal(t, Region{Chrom: "chr1", Start: 0, End: 100, Name: "p1", Score: "0", Strand: "+"}, regions[0])
	assert.Equal(t, Region{Chrom: "chr2", Start: 300, End: 410}, regions[2])
	assert.Equal(t, []string{"chr1", "chr2"}, regions.Chroms())
}

func TestParseBEDInvalid(t *testing.T) {
	for _, in := range []string{
		"chr1\t10\n",
		"chr1\tx\t20\n",
		"chr1\t10\ty\n",
		"chr1\t20\t20\n",
		"chr1\t30\t20\n",
	} {
		_, err := ParseBED(strings.NewReader(in))
		assert.True(t, errors.Is(err, ErrInvalidRecord), "%q: %v", in, err)
	}
}

func TestWindows(t *testing.T) {
	regions := Set{{Chrom: "chr1", Start: 0, End: 100}, {Chrom: "chr1", Start: 100, End: 250}, {Chrom: "chr1", Start: 7, End: 8}}
	assert.Equal(t, 1, regions[0].Windows(100))
	assert.Equal(t, 2, regions[1].Windows(100))
	assert.Equal(t, 1, regions[2].Windows(100))
	assert.Equal(t, 4, regions.Windows(100))
	assert.Equal(t, 150, regions[1].Length())
}

func TestOpenBEDCompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.bed.gz")
	w, err := xio.Create(path)
	require.NoError(t, err)
	_, err = io.WriteString(w, bed)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	regions, err := OpenBED(path)
	require.NoError(t, err)
	assert.Len(t, regions, 3)
}
