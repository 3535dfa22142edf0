//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package extract

import (
	"path/filepath"
	"strings"

	"git.sr.ht/~vejnar/EpiCode/lib/xio"
)

// MinShorten is the shortest common substring removed by Shorten.
const MinShorten = 7

// CommonSubstring returns the longest substring of the first name found in all names.
// The leftmost one wins ties. Fewer than two names give an empty string.
func CommonSubstring(names []string) string {
	var sub string
	if len(names) < 2 || len(names[0]) == 0 {
		return sub
	}
	first := names[0]
	for i := 0; i < len(first); i++ {
		for j := len(sub) + 1; i+j <= len(first); j++ {
			candidate := first[i : i+j]
			found := true
			for _, name := range names[1:] {
				if !strings.Contains(name, candidate) {
					found = false
					break
				}
			}
			if !found {
				// Longer candidates from i contain this one
				break
			}
			sub = candidate
		}
	}
	return sub
}

// Shorten removes every occurrence of the longest common substring of names when
// it is at least MinShorten long.
func Shorten(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	if sub := CommonSubstring(names); len(sub) >= MinShorten {
		for i, name := range out {
			out[i] = strings.ReplaceAll(name, sub, "")
		}
	}
	return out
}

// BaseName returns the file name without directory, compression and last extension.
func BaseName(path string) string {
	base := filepath.Base(xio.TrimCompressionExt(path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// PairPrefix returns the base name up to its first underscore.
func PairPrefix(path string) string {
	name := BaseName(path)
	if i := strings.Index(name, "_"); i >= 0 {
		return name[:i]
	}
	return name
}
