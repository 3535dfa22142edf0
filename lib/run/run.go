//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

// Package run names the files of a pipeline run and refuses to overwrite them.
package run

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"

	"git.sr.ht/~vejnar/EpiCode/lib/xio"
)

// Output kinds.
const (
	KindLevel = "lvl"
	KindCount = "cnt"
)

// Extensions of persisted matrices.
const (
	ExtArray = ".arr"
	ExtCodes = ".epi"
)

var (
	// ErrExists is returned when an output of the run is already present.
	ErrExists = errors.New("output already exists")
	// ErrMissingInput is returned when a required input is absent.
	ErrMissingInput = errors.New("missing input")
)

// ID returns a 16 hexadecimal character identifier of the inputs.
func ID(parts ...string) string {
	sum := blake2b.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:8])
}

// Path returns dir/<runID>_<kind>.arr with an optional compression extension.
func Path(dir, runID, kind, compression string) string {
	return filepath.Join(dir, runID+"_"+kind+ExtArray+compression)
}

// CheckFree fails with ErrExists if an output of kind for runID is found in dir,
// whatever its compression.
func CheckFree(dir, runID, kind string) error {
	pattern := filepath.Join(dir, runID+"_"+kind+ExtArray+"*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	if len(matches) > 0 {
		return errors.Wrap(ErrExists, matches[0])
	}
	return nil
}

// CheckAbsent fails with ErrExists if path is present.
func CheckAbsent(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Wrap(ErrExists, path)
	} else if !os.IsNotExist(err) {
		return err
	}
	return nil
}

// CheckInputs fails with ErrMissingInput when paths is empty or one path is absent.
func CheckInputs(what string, paths ...string) error {
	if len(paths) == 0 {
		return errors.Wrapf(ErrMissingInput, "no %s", what)
	}
	for _, p := range paths {
		if matches, _ := filepath.Glob(p); len(matches) == 0 {
			return errors.Wrapf(ErrMissingInput, "%s %s", what, p)
		}
	}
	return nil
}

// Derive inserts _suffix before the .arr extension of path, keeping the compression extension.
// x_cnt.arr.gz becomes x_cnt_deseq.arr.gz.
func Derive(path, suffix string) string {
	comp := xio.CompressionExt(path)
	base := xio.TrimCompressionExt(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "_" + suffix + ext + comp
}

// Stem removes the compression and matrix extensions of path.
func Stem(path string) string {
	base := xio.TrimCompressionExt(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// CodeName returns <base>_pgnmf-c#<rank>-i#<init>-p#<params><ext>.
func CodeName(base string, rank int, init, params, ext string) string {
	return base + "_pgnmf-c#" + strconv.Itoa(rank) + "-i#" + init + "-p#" + params + ext
}
