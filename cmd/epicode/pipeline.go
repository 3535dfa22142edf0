//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"git.sr.ht/~vejnar/EpiCode/lib/run"
	"git.sr.ht/~vejnar/EpiCode/lib/scale"
)

// merge adds the outputs of a step to the pipeline report.
func merge(report *run.Report, step run.Report) {
	if report.Outputs == nil {
		report.Outputs = make(map[string]string)
	}
	for k, v := range step.Outputs {
		report.Outputs[k] = v
	}
	if len(step.RunID) > 0 && len(report.RunID) == 0 {
		report.RunID = step.RunID
	}
	if step.Regions > 0 {
		report.Regions = step.Regions
		report.Chroms = step.Chroms
	}
	if step.Factors != nil {
		report.Factors = step.Factors
	}
	report.Columns = step.Columns
	report.Rows = step.Rows
}

// absolute: extract_absolute, scale_features and code.
func absolute(ctx context.Context, g *general, e extraction, c coding, colsca scale.Method, bed string, bams []string) (run.Report, error) {
	report := run.Report{Step: "absolute"}
	lvl, step, err := extractAbsolute(ctx, g, e, bed, bams)
	if err != nil {
		return report, err
	}
	merge(&report, step)
	scaled, step, err := scaleFeatures(g, lvl, colsca)
	if err != nil {
		return report, err
	}
	merge(&report, step)
	_, _, step, err = codeArray(ctx, g, c, scaled, true)
	if err != nil {
		return report, err
	}
	merge(&report, step)
	return report, nil
}

// differential: extract_differential, scale_pairs, scale_differential, scale_features and code.
func differential(ctx context.Context, g *general, e extraction, c coding, pairsca, colsca scale.Method, bed string, abams, bbams []string) (run.Report, error) {
	report := run.Report{Step: "differential"}
	cnt, step, err := extractDifferential(ctx, g, e, bed, abams, bbams)
	if err != nil {
		return report, err
	}
	merge(&report, step)
	depth, step, err := scalePairs(g, cnt, pairsca)
	if err != nil {
		return report, err
	}
	merge(&report, step)
	lvl, step, err := scaleDifferential(g, depth)
	if err != nil {
		return report, err
	}
	merge(&report, step)
	scaled, step, err := scaleFeatures(g, lvl, colsca)
	if err != nil {
		return report, err
	}
	merge(&report, step)
	_, _, step, err = codeArray(ctx, g, c, scaled, true)
	if err != nil {
		return report, err
	}
	merge(&report, step)
	return report, nil
}

// discriminatory: extract_absolute and scale_features for each BED, then multi_code.
func discriminatory(ctx context.Context, g *general, e extraction, c coding, colsca scale.Method, beds, bams []string) (run.Report, error) {
	report := run.Report{Step: "discriminatory", RunID: e.runID}
	if err := run.CheckInputs("BED", beds...); err != nil {
		return report, err
	}
	scaled := make([]string, len(beds))
	for i, bed := range beds {
		ei := e
		if len(e.runID) > 0 {
			ei.runID = strconv.Itoa(i) + "_" + e.runID
		} else {
			ei.runID = strconv.Itoa(i) + "_" + run.ID(append([]string{bed}, bams...)...)
		}
		lvl, step, err := extractAbsolute(ctx, g, ei, bed, bams)
		if err != nil {
			return report, errors.Wrapf(err, "BED %d", i)
		}
		report.Outputs = mergeOutputs(report.Outputs, step.Outputs, ei.runID)
		if scaled[i], step, err = scaleFeatures(g, lvl, colsca); err != nil {
			return report, err
		}
		report.Outputs = mergeOutputs(report.Outputs, step.Outputs, ei.runID)
	}
	base := e.runID
	if len(base) == 0 {
		base = "discriminatory"
	}
	_, _, step, err := multiCode(ctx, g, c, scaled, filepath.Join(e.odn, base))
	if err != nil {
		return report, err
	}
	report.Outputs = mergeOutputs(report.Outputs, step.Outputs, "")
	report.Columns = step.Columns
	report.Rows = step.Rows
	return report, nil
}

// mergeOutputs adds outputs under keys prefixed by prefix.
func mergeOutputs(dst, src map[string]string, prefix string) map[string]string {
	if dst == nil {
		dst = make(map[string]string)
	}
	for k, v := range src {
		if len(prefix) > 0 {
			k = prefix + "_" + k
		}
		dst[k] = v
	}
	return dst
}

// pipeline holds the options shared by the pipeline commands.
type pipeline struct {
	g      general
	e      extraction
	c      coding
	colsca string
	method scale.Method
}

func (p *pipeline) register(flags *flag.FlagSet, odn string, differential bool) {
	p.g.register(flags, 4)
	p.e.register(flags, odn, differential)
	p.c.register(flags)
	flags.StringVar(&p.colsca, "colsca", "sig95", "Feature scaling method: 'sigNN' or 'whiten'")
}

// check validates every option before any extraction.
func (p *pipeline) check() (err error) {
	if err = p.e.check(); err != nil {
		return err
	}
	if p.method, err = scale.ParseFeatureMethod(p.colsca); err != nil {
		return err
	}
	return p.c.check()
}

func (p *pipeline) finish(report run.Report, stdout io.Writer) error {
	keys := []string{"codes", "weights"}
	for _, k := range keys {
		if v, ok := report.Outputs[k]; ok {
			fmt.Fprintln(stdout, v)
		}
	}
	return p.g.report(report, stdout)
}

type absoluteCmd struct{}

func (cmd *absoluteCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			log.Error(err)
		}
	}()
	var p pipeline
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	p.register(flags, "absolute_out", false)
	bed := flags.String("bed", "", "Path to BED6+ regions")
	bams := flags.String("bams", "", "Path to BAM file(s) (comma separated)")
	if code, done := parseFlags(flags, args); done {
		return code
	}
	p.g.setup()
	if err = p.check(); err != nil {
		return 2
	}

	var report run.Report
	if report, err = absolute(context.Background(), &p.g, p.e, p.c, p.method, *bed, splitList(*bams)); err != nil {
		return 1
	}
	if err = p.finish(report, stdout); err != nil {
		return 1
	}
	return 0
}

type differentialCmd struct{}

func (cmd *differentialCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			log.Error(err)
		}
	}()
	var p pipeline
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	p.register(flags, "differential_out", true)
	bed := flags.String("bed", "", "Path to BED6+ regions")
	abams := flags.String("abams", "", "Path to BAM file(s) of condition A (comma separated)")
	bbams := flags.String("bbams", "", "Path to BAM file(s) of condition B (comma separated)")
	pairsca := flags.String("pairsca", "deseq", "Pair scaling method")
	if code, done := parseFlags(flags, args); done {
		return code
	}
	p.g.setup()
	if err = p.check(); err != nil {
		return 2
	}
	var pairMethod scale.Method
	if pairMethod, err = scale.ParsePairMethod(*pairsca); err != nil {
		return 2
	}

	var report run.Report
	if report, err = differential(context.Background(), &p.g, p.e, p.c, pairMethod, p.method, *bed, splitList(*abams), splitList(*bbams)); err != nil {
		return 1
	}
	if err = p.finish(report, stdout); err != nil {
		return 1
	}
	return 0
}

type discriminatoryCmd struct{}

func (cmd *discriminatoryCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			log.Error(err)
		}
	}()
	var p pipeline
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	p.register(flags, "discriminatory_out", false)
	beds := flags.String("beds", "", "Path to BED6+ regions, one file per class (comma separated)")
	bams := flags.String("bams", "", "Path to BAM file(s) (comma separated)")
	if code, done := parseFlags(flags, args); done {
		return code
	}
	p.g.setup()
	if err = p.check(); err != nil {
		return 2
	}

	var report run.Report
	if report, err = discriminatory(context.Background(), &p.g, p.e, p.c, p.method, splitList(*beds), splitList(*bams)); err != nil {
		return 1
	}
	if err = p.finish(report, stdout); err != nil {
		return 1
	}
	return 0
}
