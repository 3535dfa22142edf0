//
// Copyright (C) 2015-2021 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package run

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Report summarizes one pipeline step.
type Report struct {
	Step    string            `json:"step"`
	RunID   string            `json:"run_id,omitempty"`
	Regions int               `json:"regions,omitempty"`
	Chroms  []string          `json:"chroms,omitempty"`
	Columns []string          `json:"columns,omitempty"`
	Rows    int               `json:"rows"`
	Outputs map[string]string `json:"outputs"`
	Factors []float64         `json:"size_factors,omitempty"`
	Elapsed float64           `json:"elapsed_min"`
}

// WriteReport writes the report as JSON to pathReport (stdout with -).
func WriteReport(pathReport string, report Report) error {
	return writeReport(pathReport, report, os.Stdout)
}

// WriteReportTo writes the report as indented JSON to w.
func WriteReportTo(w io.Writer, report Report) error {
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func writeReport(pathReport string, report Report, stdout io.Writer) error {
	if len(pathReport) == 0 {
		return nil
	}
	if pathReport == "-" {
		return WriteReportTo(stdout, report)
	}
	f, err := os.Create(pathReport)
	if err != nil {
		return err
	}
	if err = WriteReportTo(f, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
