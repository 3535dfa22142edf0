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
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"git.sr.ht/~vejnar/EpiCode/lib/arr"
	"git.sr.ht/~vejnar/EpiCode/lib/esam"
	"git.sr.ht/~vejnar/EpiCode/lib/extract"
	"git.sr.ht/~vejnar/EpiCode/lib/region"
	"git.sr.ht/~vejnar/EpiCode/lib/run"
	"git.sr.ht/~vejnar/EpiCode/lib/xio"
)

// extraction holds the options of read counting.
type extraction struct {
	odn         string
	runID       string
	compression string
	shorten     bool
	step        int
	minMapQ     int
	minOverlap  int
	countNames  bool
}

func (e *extraction) register(flags *flag.FlagSet, odn string, differential bool) {
	flags.StringVar(&e.odn, "odn", odn, "Output directory")
	flags.StringVar(&e.runID, "runid", "", "Run ID prefixing output files (default derived from inputs)")
	flags.StringVar(&e.compression, "compression", "", "Compression extension of extracted arrays: '.gz', '.lz4', '.zst' or '.bz2'")
	flags.BoolVar(&e.shorten, "shorten", false, "Shorten column names by removing the longest common substring")
	flags.IntVar(&e.minMapQ, "read_min_mapping_quality", 0, "Minimum read mapping quality")
	flags.IntVar(&e.minOverlap, "read_min_overlap", 0, "Minimum overlap of the aligned read with the region")
	flags.BoolVar(&e.countNames, "count_names", false, "Count distinct read names instead of alignments")
	if differential {
		flags.IntVar(&e.step, "step", 100, "Window width")
	}
}

func (e *extraction) check() error {
	switch e.compression {
	case "", xio.ExtGzip, xio.ExtLZ4, xio.ExtZstd, xio.ExtBzip2:
	default:
		return errors.Errorf("unknown compression %q", e.compression)
	}
	if e.minMapQ < 0 || e.minMapQ > 255 {
		return errors.Errorf("invalid mapping quality %d", e.minMapQ)
	}
	return nil
}

func (e *extraction) options(g *general) extract.Options {
	return extract.Options{
		Workers: g.nWorker,
		Step:    e.step,
		Shorten: e.shorten,
		Count: esam.Options{
			MinMapQ:    byte(e.minMapQ),
			MinOverlap: e.minOverlap,
			CountNames: e.countNames,
		},
		Start: g.timeStart,
	}
}

func readRegions(g *general, bed string) (region.Set, error) {
	regions, err := region.OpenBED(bed)
	if err != nil {
		return nil, err
	}
	if len(regions) == 0 {
		return nil, errors.Errorf("no region in %s", bed)
	}
	g.progress("Number of query regions: %d", len(regions))
	return regions, nil
}

// extractAbsolute writes <odn>/<runid>_lvl.arr.
func extractAbsolute(ctx context.Context, g *general, e extraction, bed string, bams []string) (string, run.Report, error) {
	report := run.Report{Step: "extract_absolute"}
	if err := run.CheckInputs("BED", bed); err != nil {
		return "", report, err
	}
	if err := run.CheckInputs("BAM", bams...); err != nil {
		return "", report, err
	}
	if err := os.MkdirAll(e.odn, 0o755); err != nil {
		return "", report, err
	}
	if len(e.runID) == 0 {
		e.runID = run.ID(append([]string{bed}, bams...)...)
	}
	g.progress("Run ID: %s", e.runID)
	if err := run.CheckFree(e.odn, e.runID, run.KindLevel); err != nil {
		return "", report, err
	}
	regions, err := readRegions(g, bed)
	if err != nil {
		return "", report, err
	}
	m, err := extract.Absolute(ctx, regions, bams, e.options(g))
	if err != nil {
		return "", report, err
	}
	g.progress("BAM names: %s", strings.Join(m.Names, ", "))
	out := run.Path(e.odn, e.runID, run.KindLevel, e.compression)
	if err := arr.WriteFile(out, m, arr.FormatFloat); err != nil {
		return "", report, err
	}
	g.progress("Saved: %s", out)
	report.RunID = e.runID
	report.Regions = len(regions)
	report.Chroms = regions.Chroms()
	report.Columns = m.Names
	report.Rows, _ = m.Dims()
	report.Outputs = map[string]string{run.KindLevel: out}
	return out, report, nil
}

// extractDifferential writes <odn>/<runid>_cnt.arr.
func extractDifferential(ctx context.Context, g *general, e extraction, bed string, abams, bbams []string) (string, run.Report, error) {
	report := run.Report{Step: "extract_differential"}
	if err := run.CheckInputs("BED", bed); err != nil {
		return "", report, err
	}
	if err := run.CheckInputs("A BAM", abams...); err != nil {
		return "", report, err
	}
	if err := run.CheckInputs("B BAM", bbams...); err != nil {
		return "", report, err
	}
	if _, _, err := extract.Pair(abams, bbams); err != nil {
		return "", report, err
	}
	if e.step < 1 {
		return "", report, errors.Wrapf(extract.ErrStep, "%d", e.step)
	}
	if err := os.MkdirAll(e.odn, 0o755); err != nil {
		return "", report, err
	}
	if len(e.runID) == 0 {
		parts := append([]string{bed}, abams...)
		e.runID = run.ID(append(parts, bbams...)...)
	}
	g.progress("Run ID: %s", e.runID)
	if err := run.CheckFree(e.odn, e.runID, run.KindCount); err != nil {
		return "", report, err
	}
	regions, err := readRegions(g, bed)
	if err != nil {
		return "", report, err
	}
	m, err := extract.Differential(ctx, regions, abams, bbams, e.options(g))
	if err != nil {
		return "", report, err
	}
	g.progress("BAM names: %s", strings.Join(m.Names, ", "))
	out := run.Path(e.odn, e.runID, run.KindCount, e.compression)
	if err := arr.WriteFile(out, m, arr.FormatInt); err != nil {
		return "", report, err
	}
	g.progress("Saved: %s", out)
	report.RunID = e.runID
	report.Regions = len(regions)
	report.Chroms = regions.Chroms()
	report.Columns = m.Names
	report.Rows, _ = m.Dims()
	report.Outputs = map[string]string{run.KindCount: out}
	return out, report, nil
}

type extractAbsoluteCmd struct{}

func (cmd *extractAbsoluteCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			log.Error(err)
		}
	}()
	var g general
	var e extraction
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	g.register(flags, 1)
	e.register(flags, ".", false)
	bed := flags.String("bed", "", "Path to BED6+ regions")
	bams := flags.String("bams", "", "Path to BAM file(s) (comma separated)")
	if code, done := parseFlags(flags, args); done {
		return code
	}
	g.setup()
	if err = e.check(); err != nil {
		return 2
	}

	var out string
	var report run.Report
	out, report, err = extractAbsolute(context.Background(), &g, e, *bed, splitList(*bams))
	if err != nil {
		return 1
	}
	fmt.Fprintln(stdout, out)
	if err = g.report(report, stdout); err != nil {
		return 1
	}
	return 0
}

type extractDifferentialCmd struct{}

func (cmd *extractDifferentialCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			log.Error(err)
		}
	}()
	var g general
	var e extraction
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	g.register(flags, 1)
	e.register(flags, ".", true)
	bed := flags.String("bed", "", "Path to BED6+ regions")
	abams := flags.String("abams", "", "Path to BAM file(s) of condition A (comma separated)")
	bbams := flags.String("bbams", "", "Path to BAM file(s) of condition B (comma separated)")
	if code, done := parseFlags(flags, args); done {
		return code
	}
	g.setup()
	if err = e.check(); err != nil {
		return 2
	}

	var out string
	var report run.Report
	out, report, err = extractDifferential(context.Background(), &g, e, *bed, splitList(*abams), splitList(*bbams))
	if err != nil {
		return 1
	}
	fmt.Fprintln(stdout, out)
	if err = g.report(report, stdout); err != nil {
		return 1
	}
	return 0
}
