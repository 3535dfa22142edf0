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
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"git.sr.ht/~vejnar/EpiCode/lib/arr"
	"git.sr.ht/~vejnar/EpiCode/lib/nmf"
	"git.sr.ht/~vejnar/EpiCode/lib/run"
	"git.sr.ht/~vejnar/EpiCode/lib/xio"
)

// coding holds the factorization options.
type coding struct {
	rank       int
	init       string
	sparseness string
	params     string
	pg         *nmf.ProjectedGradient
}

func (c *coding) register(flags *flag.FlagSet) {
	flags.IntVar(&c.rank, "c", 0, "Number of codes (factorization rank)")
	flags.StringVar(&c.init, "init", nmf.InitNNDSVD, "Initialization: 'nndsvd', 'nndsvda', 'nndsvdar' or 'random'")
	flags.StringVar(&c.sparseness, "sparseness", nmf.SparseComponents, "Sparseness: 'components', 'data' or 'none'")
	flags.StringVar(&c.params, "params", nmf.DefaultParams, "Factorization parameters (key:value, comma separated)")
}

// check validates the options and prepares the factorizer.
func (c *coding) check() error {
	if c.rank < 1 {
		return errors.New("c (number of codes) not specified")
	}
	pg := nmf.NewProjectedGradient()
	var err error
	if pg.Init, err = nmf.ParseInit(c.init); err != nil {
		return err
	}
	if pg.Sparseness, err = nmf.ParseSparseness(c.sparseness); err != nil {
		return err
	}
	params, err := nmf.ParseParams(c.params)
	if err != nil {
		return err
	}
	if err = pg.Apply(params); err != nil {
		return err
	}
	c.pg = pg
	return nil
}

// name returns the path of codes (.epi) or weights (.arr) derived from base.
func (c *coding) name(base, ext, compression string) string {
	return run.CodeName(base, c.rank, c.init, c.params, ext+compression)
}

// factorize runs the factorizer; reaching the iteration limit is only reported.
func (c *coding) factorize(g *general, m *arr.Matrix) (w, h *mat.Dense, err error) {
	w, h, err = c.pg.Factorize(m.Data, c.rank)
	if errors.Is(err, nmf.ErrNotConverged) {
		log.Warn(err)
		err = nil
	}
	if err != nil {
		return nil, nil, err
	}
	g.progress("Factorized with %d code(s)", c.rank)
	return w, h, nil
}

// codeNames returns c1...cn.
func codeNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = "c" + strconv.Itoa(i+1)
	}
	return names
}

func checkNames(want, got []string, path string) error {
	if len(want) != len(got) {
		return errors.Wrapf(arr.ErrNames, "%s: %d column(s), expected %d", path, len(got), len(want))
	}
	for i := range want {
		if want[i] != got[i] {
			return errors.Wrapf(arr.ErrNames, "%s: column %s, expected %s", path, got[i], want[i])
		}
	}
	return nil
}

func writeCodes(g *general, epi, out string, marks []string, h, w *mat.Dense) error {
	codes, err := arr.New(marks, h)
	if err != nil {
		return err
	}
	if err = arr.WriteFile(epi, codes, arr.FormatFloat); err != nil {
		return err
	}
	g.progress("Saved: %s", epi)
	if w == nil {
		return nil
	}
	_, ncode := w.Dims()
	weights, err := arr.New(codeNames(ncode), w)
	if err != nil {
		return err
	}
	if err = arr.WriteFile(out, weights, arr.FormatFloat); err != nil {
		return err
	}
	g.progress("Saved: %s", out)
	return nil
}

// codeArray factorizes one array into codes (.epi) and, with transform, weights (.arr).
func codeArray(ctx context.Context, g *general, c coding, in string, transform bool) (string, string, run.Report, error) {
	report := run.Report{Step: "code"}
	if err := run.CheckInputs("array", in); err != nil {
		return "", "", report, err
	}
	comp := xio.CompressionExt(in)
	epi := c.name(run.Stem(in), run.ExtCodes, comp)
	out := c.name(run.Stem(in), run.ExtArray, comp)
	for _, p := range []string{epi, out} {
		if err := run.CheckAbsent(p); err != nil {
			return "", "", report, err
		}
	}
	m, err := arr.ReadFile(in)
	if err != nil {
		return "", "", report, err
	}
	_, h, err := c.factorize(g, m)
	if err != nil {
		return "", "", report, errors.Wrap(err, in)
	}
	var w *mat.Dense
	if transform {
		if w, err = nmf.Transform(ctx, m.Data, h, g.nWorker); err != nil {
			return "", "", report, err
		}
	} else {
		out = ""
	}
	if err = writeCodes(g, epi, out, m.Names, h, w); err != nil {
		return "", "", report, err
	}
	report.Columns = m.Names
	report.Rows, _ = m.Dims()
	report.Outputs = map[string]string{"codes": epi}
	if transform {
		report.Outputs["weights"] = out
	}
	return epi, out, report, nil
}

// multiCode factorizes each array separately, then solves the weights of all rows
// against the stacked codes.
func multiCode(ctx context.Context, g *general, c coding, ins []string, base string) (string, string, run.Report, error) {
	report := run.Report{Step: "multi_code"}
	if err := run.CheckInputs("array", ins...); err != nil {
		return "", "", report, err
	}
	if len(base) == 0 {
		return "", "", report, errors.New("no output base name")
	}
	epi := c.name(base, run.ExtCodes, "")
	out := c.name(base, run.ExtArray, "")
	for _, p := range []string{epi, out} {
		if err := run.CheckAbsent(p); err != nil {
			return "", "", report, err
		}
	}
	var marks []string
	hs := make([]*mat.Dense, len(ins))
	xs := make([]*mat.Dense, len(ins))
	for i, in := range ins {
		m, err := arr.ReadFile(in)
		if err != nil {
			return "", "", report, err
		}
		if i == 0 {
			marks = m.Names
		} else if err = checkNames(marks, m.Names, in); err != nil {
			return "", "", report, err
		}
		if _, hs[i], err = c.factorize(g, m); err != nil {
			return "", "", report, errors.Wrap(err, in)
		}
		xs[i] = m.Data
		r, _ := m.Dims()
		report.Rows += r
	}
	h, w, err := nmf.Combine(ctx, hs, xs, g.nWorker)
	if err != nil {
		return "", "", report, err
	}
	if err = os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		return "", "", report, err
	}
	if err = writeCodes(g, epi, out, marks, h, w); err != nil {
		return "", "", report, err
	}
	report.Columns = marks
	report.Outputs = map[string]string{"codes": epi, "weights": out}
	return epi, out, report, nil
}

// recode solves the weights of an array against existing codes.
func recode(ctx context.Context, g *general, in, epi, odn, base string) (string, run.Report, error) {
	report := run.Report{Step: "recode"}
	if err := run.CheckInputs("array", in); err != nil {
		return "", report, err
	}
	if err := run.CheckInputs("codes", epi); err != nil {
		return "", report, err
	}
	if len(base) == 0 {
		base = filepath.Base(run.Stem(in)) + "_" + filepath.Base(run.Stem(epi))
	}
	out := filepath.Join(odn, base+run.ExtArray)
	if err := run.CheckAbsent(out); err != nil {
		return "", report, err
	}
	m, err := arr.ReadFile(in)
	if err != nil {
		return "", report, err
	}
	codes, err := arr.ReadFile(epi)
	if err != nil {
		return "", report, err
	}
	if err = checkNames(codes.Names, m.Names, in); err != nil {
		return "", report, err
	}
	w, err := nmf.Transform(ctx, m.Data, codes.Data, g.nWorker)
	if err != nil {
		return "", report, err
	}
	_, ncode := w.Dims()
	weights, err := arr.New(codeNames(ncode), w)
	if err != nil {
		return "", report, err
	}
	if err = os.MkdirAll(odn, 0o755); err != nil {
		return "", report, err
	}
	if err = arr.WriteFile(out, weights, arr.FormatFloat); err != nil {
		return "", report, err
	}
	g.progress("Saved: %s", out)
	report.Columns = weights.Names
	report.Rows, _ = weights.Dims()
	report.Outputs = map[string]string{"weights": out}
	return out, report, nil
}

type codeCmd struct{}

func (cmd *codeCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			log.Error(err)
		}
	}()
	var g general
	var c coding
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	g.register(flags, 1)
	c.register(flags)
	in := flags.String("arr", "", "Path to scaled features")
	transform := flags.Bool("transform", true, "Write the weights of every row")
	if code, done := parseFlags(flags, args); done {
		return code
	}
	g.setup()
	if err = c.check(); err != nil {
		return 2
	}

	var epi, out string
	var report run.Report
	if epi, out, report, err = codeArray(context.Background(), &g, c, *in, *transform); err != nil {
		return 1
	}
	fmt.Fprintln(stdout, epi)
	if len(out) > 0 {
		fmt.Fprintln(stdout, out)
	}
	if err = g.report(report, stdout); err != nil {
		return 1
	}
	return 0
}

type multiCodeCmd struct{}

func (cmd *multiCodeCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			log.Error(err)
		}
	}()
	var g general
	var c coding
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	g.register(flags, 1)
	c.register(flags)
	ins := flags.String("arrs", "", "Path to scaled features (comma separated)")
	base := flags.String("base", "", "Output path prefix")
	if code, done := parseFlags(flags, args); done {
		return code
	}
	g.setup()
	if err = c.check(); err != nil {
		return 2
	}

	var epi, out string
	var report run.Report
	if epi, out, report, err = multiCode(context.Background(), &g, c, splitList(*ins), *base); err != nil {
		return 1
	}
	fmt.Fprintln(stdout, epi)
	fmt.Fprintln(stdout, out)
	if err = g.report(report, stdout); err != nil {
		return 1
	}
	return 0
}

type recodeCmd struct{}

func (cmd *recodeCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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
	in := flags.String("arr", "", "Path to scaled features")
	epi := flags.String("epi", "", "Path to codes (.epi)")
	odn := flags.String("odn", ".", "Output directory")
	base := flags.String("base", "", "Output name (default from array and codes names)")
	if code, done := parseFlags(flags, args); done {
		return code
	}
	g.setup()

	var out string
	var report run.Report
	if out, report, err = recode(context.Background(), &g, *in, *epi, *odn, *base); err != nil {
		return 1
	}
	fmt.Fprintln(stdout, out)
	if err = g.report(report, stdout); err != nil {
		return 1
	}
	return 0
}
