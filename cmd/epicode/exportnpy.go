//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"git.sr.ht/~vejnar/EpiCode/lib/arr"
	"git.sr.ht/~vejnar/EpiCode/lib/run"
)

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

type exportNpyCmd struct{}

func (cmd *exportNpyCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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
	in := flags.String("arr", "", "Path to array (.arr or .epi)")
	outputFilename := flags.String("o", "", "Output npy `file` (default from input, stdout with -)")
	namesFilename := flags.String("o_names", "", "Output `file` of column names, one per line")
	if code, done := parseFlags(flags, args); done {
		return code
	}
	g.setup()

	if err = run.CheckInputs("array", *in); err != nil {
		return 1
	}
	if len(*outputFilename) == 0 {
		*outputFilename = run.Stem(*in) + ".npy"
	}
	var m *arr.Matrix
	if m, err = arr.ReadFile(*in); err != nil {
		return 1
	}

	var output io.WriteCloser
	if *outputFilename == "-" {
		output = nopCloser{stdout}
	} else {
		if err = run.CheckAbsent(*outputFilename); err != nil {
			return 1
		}
		if output, err = os.Create(*outputFilename); err != nil {
			return 1
		}
		defer output.Close()
	}
	bufw := bufio.NewWriter(output)
	if err = arr.WriteNpy(bufw, m); err != nil {
		return 1
	}
	if err = bufw.Flush(); err != nil {
		return 1
	}
	if err = output.Close(); err != nil {
		return 1
	}
	rows, cols := m.Dims()
	g.progress("Saved: %s (%d x %d)", *outputFilename, rows, cols)

	if len(*namesFilename) > 0 {
		if err = os.WriteFile(*namesFilename, []byte(strings.Join(m.Names, "\n")+"\n"), 0o644); err != nil {
			return 1
		}
	}
	if *outputFilename != "-" {
		fmt.Fprintln(stdout, *outputFilename)
	}
	err = g.report(run.Report{
		Step:    "export_npy",
		Columns: m.Names,
		Rows:    rows,
		Outputs: map[string]string{"npy": *outputFilename},
	}, stdout)
	if err != nil {
		return 1
	}
	return 0
}
