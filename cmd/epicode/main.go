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
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"

	"git.sr.ht/~vejnar/EpiCode/lib/run"
)

var version = "DEV"

type handler interface {
	RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int
}

type versionCmd struct{}

func (versionCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fmt.Fprintln(stdout, version)
	return 0
}

var handlers = map[string]handler{
	"version":   versionCmd{},
	"-version":  versionCmd{},
	"--version": versionCmd{},

	"extract_absolute":     &extractAbsoluteCmd{},
	"extract_differential": &extractDifferentialCmd{},
	"scale_pairs":          &scalePairsCmd{},
	"scale_differential":   &scaleDifferentialCmd{},
	"scale_features":       &scaleFeaturesCmd{},
	"code":                 &codeCmd{},
	"multi_code":           &multiCodeCmd{},
	"recode":               &recodeCmd{},
	"export_npy":           &exportNpyCmd{},
	"export_bedgraph":      &exportBedGraphCmd{},
	"absolute":             &absoluteCmd{},
	"differential":         &differentialCmd{},
	"discriminatory":       &discriminatoryCmd{},
}

func main() {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		log.StandardLogger().Formatter = &log.TextFormatter{DisableTimestamp: true}
	}
	os.Exit(runCommand(os.Args[0], os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func runCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(prog, stderr)
		return 2
	}
	h, ok := handlers[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "%s: unknown command %q\n", prog, args[0])
		usage(prog, stderr)
		return 2
	}
	return h.RunCommand(prog+" "+args[0], args[1:], stdin, stdout, stderr)
}

func usage(prog string, stderr io.Writer) {
	var names []string
	for name := range handlers {
		if !strings.HasPrefix(name, "-") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	fmt.Fprintf(stderr, "usage: %s <command> [options]\n\ncommands:\n", prog)
	for _, name := range names {
		fmt.Fprintf(stderr, "  %s\n", name)
	}
}

// general holds the options shared by all commands.
type general struct {
	nWorker      int
	pathReport   string
	verbose      bool
	verboseLevel int
	timeStart    time.Time
}

func (g *general) register(flags *flag.FlagSet, nWorker int) {
	flags.IntVar(&g.nWorker, "num_worker", nWorker, "Number of worker(s)")
	flags.StringVar(&g.pathReport, "path_report", "", "Write report to path (stdout with -)")
	flags.BoolVar(&g.verbose, "verbose", false, "Verbose")
	flags.IntVar(&g.verboseLevel, "verbose_level", 0, "Verbose level (2 includes per file progress)")
}

// setup applies verbosity and starts the clock.
func (g *general) setup() {
	if g.verbose && g.verboseLevel == 0 {
		g.verboseLevel = 1
	}
	switch {
	case g.verboseLevel > 1:
		log.SetLevel(log.DebugLevel)
	case g.verboseLevel == 1:
		log.SetLevel(log.InfoLevel)
	default:
		log.SetLevel(log.WarnLevel)
	}
	if g.nWorker < 1 {
		g.nWorker = 1
	}
	g.timeStart = time.Now()
}

func (g *general) elapsed() float64 {
	return time.Since(g.timeStart).Minutes()
}

func (g *general) progress(format string, args ...interface{}) {
	log.Infof("%.1fmin - "+format, append([]interface{}{g.elapsed()}, args...)...)
}

// report writes the report of a finished step when -path_report is set.
func (g *general) report(r run.Report, stdout io.Writer) error {
	if len(g.pathReport) == 0 {
		return nil
	}
	r.Elapsed = g.elapsed()
	if g.pathReport == "-" {
		return run.WriteReportTo(stdout, r)
	}
	return run.WriteReport(g.pathReport, r)
}

// parseFlags parses args, returning the exit code to use when done is true.
func parseFlags(flags *flag.FlagSet, args []string) (code int, done bool) {
	err := flags.Parse(args)
	if err == flag.ErrHelp {
		return 0, true
	} else if err != nil {
		return 2, true
	}
	if flags.NArg() > 0 {
		fmt.Fprintf(flags.Output(), "unexpected argument(s): %v\n", flags.Args())
		return 2, true
	}
	return 0, false
}

// splitList splits a comma separated list, dropping empty items.
func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); len(s) > 0 {
			out = append(out, s)
		}
	}
	return out
}
