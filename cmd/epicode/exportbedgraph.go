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
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"git.sr.ht/~vejnar/EpiCode/lib/arr"
	"git.sr.ht/~vejnar/EpiCode/lib/region"
	"git.sr.ht/~vejnar/EpiCode/lib/run"
	"git.sr.ht/~vejnar/EpiCode/lib/track"
)

// exportBedGraph writes one column of an array over its regions.
func exportBedGraph(g *general, in, bed, col string, step int, out string) (string, run.Report, error) {
	report := run.Report{Step: "export_bedgraph"}
	if err := run.CheckInputs("array", in); err != nil {
		return "", report, err
	}
	if err := run.CheckInputs("BED", bed); err != nil {
		return "", report, err
	}
	m, err := arr.ReadFile(in)
	if err != nil {
		return "", report, err
	}
	j := 0
	if len(col) > 0 {
		j = -1
		for k, name := range m.Names {
			if name == col {
				j = k
				break
			}
		}
		if j < 0 {
			return "", report, errors.Wrapf(arr.ErrNames, "no column %s in %s", col, in)
		}
	}
	if len(out) == 0 {
		name := strings.NewReplacer(":", "_", "/", "_").Replace(m.Names[j])
		out = run.Stem(in) + "_" + name + ".bedgraph"
	}
	if err = run.CheckAbsent(out); err != nil {
		return "", report, err
	}
	regions, err := region.OpenBED(bed)
	if err != nil {
		return "", report, err
	}
	rows := track.Layout(regions, step)
	if err = track.Fill(rows, m.Col(j)); err != nil {
		return "", report, errors.Wrap(err, in)
	}
	if err = track.WriteFile(out, rows); err != nil {
		return "", report, err
	}
	g.progress("Saved: %s", out)
	report.Regions = len(regions)
	report.Chroms = regions.Chroms()
	report.Columns = []string{m.Names[j]}
	report.Rows = len(rows)
	report.Outputs = map[string]string{"bedgraph": out}
	return out, report, nil
}

type exportBedGraphCmd struct{}

func (cmd *exportBedGraphCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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
	in := flags.String("arr", "", "Path to array with one row per region (or per window with -step)")
	bed := flags.String("bed", "", "Path to BED6+ regions of the array")
	col := flags.String("col", "", "Column to export (default first)")
	step := flags.Int("step", 0, "Window width of differential counts (0 for one row per region)")
	out := flags.String("o", "", "Output bedGraph `file` (default from input and column)")
	if code, done := parseFlags(flags, args); done {
		return code
	}
	g.setup()

	var path string
	var report run.Report
	if path, report, err = exportBedGraph(&g, *in, *bed, *col, *step, *out); err != nil {
		return 1
	}
	fmt.Fprintln(stdout, path)
	if err = g.report(report, stdout); err != nil {
		return 1
	}
	return 0
}
