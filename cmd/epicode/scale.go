//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package main

import (
	"flag"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"git.sr.ht/~vejnar/EpiCode/lib/arr"
	"git.sr.ht/~vejnar/EpiCode/lib/run"
	"git.sr.ht/~vejnar/EpiCode/lib/scale"
)

// transformArray reads in, applies fn and writes the result next to in with suffix.
func transformArray(g *general, step, in, suffix string, fn func(*arr.Matrix) (*arr.Matrix, error)) (string, run.Report, error) {
	report := run.Report{Step: step}
	if err := run.CheckInputs("array", in); err != nil {
		return "", report, err
	}
	out := run.Derive(in, suffix)
	if err := run.CheckAbsent(out); err != nil {
		return "", report, err
	}
	m, err := arr.ReadFile(in)
	if err != nil {
		return "", report, err
	}
	res, err := fn(m)
	if err != nil {
		return "", report, err
	}
	if err := arr.WriteFile(out, res, arr.FormatFloat); err != nil {
		return "", report, err
	}
	g.progress("Saved: %s", out)
	report.Columns = res.Names
	report.Rows, _ = res.Dims()
	report.Outputs = map[string]string{suffix: out}
	return out, report, nil
}

// scalePairs writes <arr>_<method>.arr.
func scalePairs(g *general, in string, method scale.Method) (string, run.Report, error) {
	var factors []float64
	out, report, err := transformArray(g, "scale_pairs", in, method.Name, func(m *arr.Matrix) (*arr.Matrix, error) {
		res, sf, err := scale.Pairs(m, method)
		factors = sf
		return res, err
	})
	if err != nil {
		return "", report, err
	}
	g.progress("Size factors: %v", factors)
	report.Factors = factors
	return out, report, nil
}

// scaleDifferential writes <arr>_lvl.arr.
func scaleDifferential(g *general, in string) (string, run.Report, error) {
	return transformArray(g, "scale_differential", in, run.KindLevel, scale.GainLoss)
}

// scaleFeatures writes <arr>_<method>.arr.
func scaleFeatures(g *general, in string, method scale.Method) (string, run.Report, error) {
	return transformArray(g, "scale_features", in, method.Name, func(m *arr.Matrix) (*arr.Matrix, error) {
		return scale.Features(m, method)
	})
}

type scalePairsCmd struct{}

func (cmd *scalePairsCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			log.Error(err)
		}
	}()
	var g general
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	g.register(flags, 1)
	in := flags.String("arr", "", "Path to differential counts (_cnt.arr)")
	pairsca := flags.String("pairsca", "deseq", "Pair scaling method")
	if code, done := parseFlags(flags, args); done {
		return code
	}
	g.setup()
	var method scale.Method
	if method, err = scale.ParsePairMethod(*pairsca); err != nil {
		return 2
	}

	var out string
	var report run.Report
	if out, report, err = scalePairs(&g, *in, method); err != nil {
		return 1
	}
	fmt.Fprintln(stdout, out)
	if err = g.report(report, stdout); err != nil {
		return 1
	}
	return 0
}

type scaleDifferentialCmd struct{}

func (cmd *scaleDifferentialCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			log.Error(err)
		}
	}()
	var g general
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	g.register(flags, 1)
	in := flags.String("arr", "", "Path to depth corrected differential counts")
	if code, done := parseFlags(flags, args); done {
		return code
	}
	g.setup()

	var out string
	var report run.Report
	if out, report, err = scaleDifferential(&g, *in); err != nil {
		return 1
	}
	fmt.Fprintln(stdout, out)
	if err = g.report(report, stdout); err != nil {
		return 1
	}
	return 0
}

type scaleFeaturesCmd struct{}

func (cmd *scaleFeaturesCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			log.Error(err)
		}
	}()
	var g general
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	g.register(flags, 1)
	in := flags.String("arr", "", "Path to levels (_lvl.arr)")
	colsca := flags.String("colsca", "sig95", "Feature scaling method: 'sigNN' or 'whiten'")
	if code, done := parseFlags(flags, args); done {
		return code
	}
	g.setup()
	var method scale.Method
	if method, err = scale.ParseFeatureMethod(*colsca); err != nil {
		return 2
	}

	var out string
	var report run.Report
	if out, report, err = scaleFeatures(&g, *in, method); err != nil {
		return 1
	}
	fmt.Fprintln(stdout, out)
	if err = g.report(report, stdout); err != nil {
		return 1
	}
	return 0
}
