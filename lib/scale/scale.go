//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

// Package scale normalizes coverage matrices: sequencing-depth correction of
// paired columns, gain/loss aggregation over windows and per-feature rescaling.
package scale

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrUnknownMethod is returned for unsupported scaling method names.
	ErrUnknownMethod = errors.New("unknown scaling method")
	// ErrNoUsableRows is returned when a size factor cannot be estimated.
	ErrNoUsableRows = errors.New("no usable row to estimate size factor")
	// ErrUnpaired is returned when columns cannot be grouped by pairs.
	ErrUnpaired = errors.New("odd number of paired columns")
)

// Kind of scaling.
type Kind int

const (
	DESeq Kind = iota
	Sigmoid
	Whiten
)

// Method is a parsed scaling method name.
type Method struct {
	Kind Kind
	// Percentile of the upper inflection point of Sigmoid, in (0,1].
	Percentile float64
	Name       string
}

// ParseMethod parses "deseq", "whiten" or "sigNN" with NN a percentile (e.g. sig95).
func ParseMethod(name string) (Method, error) {
	switch {
	case name == "deseq":
		return Method{Kind: DESeq, Name: name}, nil
	case name == "whiten":
		return Method{Kind: Whiten, Name: name}, nil
	case strings.HasPrefix(name, "sig"):
		p, err := strconv.ParseFloat(name[3:], 64)
		if err != nil || p <= 0 || p > 100 {
			return Method{}, errors.Wrapf(ErrUnknownMethod, "%s (percentile)", name)
		}
		return Method{Kind: Sigmoid, Percentile: p / 100, Name: name}, nil
	}
	return Method{}, errors.Wrap(ErrUnknownMethod, name)
}

// ParsePairMethod accepts only methods scaling paired columns.
func ParsePairMethod(name string) (Method, error) {
	m, err := ParseMethod(name)
	if err == nil && m.Kind != DESeq {
		err = errors.Wrapf(ErrUnknownMethod, "%s is not a pair scaling method", name)
	}
	return m, err
}

// ParseFeatureMethod accepts only methods scaling feature columns.
func ParseFeatureMethod(name string) (Method, error) {
	m, err := ParseMethod(name)
	if err == nil && m.Kind == DESeq {
		err = errors.Wrapf(ErrUnknownMethod, "%s is not a feature scaling method", name)
	}
	return m, err
}

// missing reports sentinel (negative) and NaN values.
func missing(v float64) bool {
	return math.IsNaN(v) || v < 0
}

// median returns the median of x, averaging the two central values when len(x) is even.
// x is sorted in place.
func median(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return math.NaN()
	}
	sort.Float64s(x)
	if n%2 == 1 {
		return x[n/2]
	}
	return (x[n/2-1] + x[n/2]) / 2
}
