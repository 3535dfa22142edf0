//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package xio

import (
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	content := strings.Repeat("chr1\t0\t100\tpromoter\n", 500)
	for _, name := range []string{"plain.bed", "a.bed.gz", "a.bed.lz4", "a.bed.zst", "a.bed.bz2"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			w, err := Create(path)
			require.NoError(t, err)
			_, err = io.WriteString(w, content)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			r, err := Open(path)
			require.NoError(t, err)
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			require.NoError(t, r.Close())
			assert.Equal(t, content, string(got))
		})
	}
}

func TestCompressionExt(t *testing.T) {
	assert.Equal(t, ".gz", CompressionExt("x_lvl.arr.GZ"))
	assert.Equal(t, "", CompressionExt("x_lvl.arr"))
	assert.Equal(t, "x_lvl.arr", TrimCompressionExt("x_lvl.arr.zst"))
	assert.Equal(t, "x_lvl.arr", TrimCompressionExt("x_lvl.arr"))
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.bed"))
	assert.Error(t, err)
}

func TestWriteCloserCloseAll(t *testing.T) {
	errFlush := errors.New("flush failed")
	var closed []string
	wc := &writeCloser{closers: []func() error{
		func() error { closed = append(closed, "compressor"); return errFlush },
		func() error { closed = append(closed, "buffer"); return errors.New("second") },
		func() error { closed = append(closed, "file"); return nil },
	}}
	assert.Equal(t, errFlush, wc.Close())
	assert.Equal(t, []string{"compressor", "buffer", "file"}, closed)
}
