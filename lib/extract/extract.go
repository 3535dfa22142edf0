//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

// Package extract counts reads of alignment files over regions, one task per file
// (absolute mode) or per pair of files (differential mode) run by a pool of workers.
package extract

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"git.sr.ht/~vejnar/EpiCode/lib/esam"
)

var (
	// ErrPairMismatch is returned when A and B files cannot be paired by name.
	ErrPairMismatch = errors.New("paired files mismatch")
	// ErrStep is returned for a non-positive window width.
	ErrStep = errors.New("invalid window step")
)

// OpenFunc opens an alignment file for counting.
type OpenFunc func(path string) (esam.Counter, error)

// Options of extraction.
type Options struct {
	// Workers is the number of files (or pairs) processed concurrently.
	Workers int
	// Step is the window width of differential mode.
	Step int
	// Shorten removes the longest common substring from column names.
	Shorten bool
	// Count selects the counted alignments.
	Count esam.Options
	// Open defaults to esam.Open with Count.
	Open OpenFunc
	// Log receives progress messages. Defaults to the standard logger.
	Log *log.Entry
	// Start is the reference time of progress messages.
	Start time.Time
}

func (o *Options) defaults() {
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.Open == nil {
		count := o.Count
		o.Open = func(path string) (esam.Counter, error) {
			return esam.Open(esam.NewPathSAM(path), count)
		}
	}
	if o.Log == nil {
		o.Log = log.NewEntry(log.StandardLogger())
	}
	if o.Start.IsZero() {
		o.Start = time.Now()
	}
}

func (o *Options) progress(format string, args ...interface{}) {
	o.Log.Debugf("%.1fmin - "+format, append([]interface{}{time.Since(o.Start).Minutes()}, args...)...)
}

// task counts one file or one pair of files and returns its columns.
type task func(ctx context.Context) ([][]float64, error)

type result struct {
	index int
	cols  [][]float64
}

// runPool executes tasks with nWorker goroutines. Columns are returned in task order,
// whatever the completion order. The first error cancels the remaining tasks.
func runPool(ctx context.Context, tasks []task, nWorker int) ([][]float64, error) {
	g, gctx := errgroup.WithContext(ctx)

	chTask := make(chan int, len(tasks))
	chResult := make(chan result, nWorker)

	// Producer
	g.Go(func() error {
		defer close(chTask)
		for i := range tasks {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case chTask <- i:
			}
		}
		return nil
	})

	// Workers
	workers, wctx := errgroup.WithContext(gctx)
	for w := 0; w < nWorker; w++ {
		workers.Go(func() error {
			for i := range chTask {
				cols, err := tasks[i](wctx)
				if err != nil {
					return err
				}
				select {
				case <-wctx.Done():
					return wctx.Err()
				case chResult <- result{index: i, cols: cols}:
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		defer close(chResult)
		return workers.Wait()
	})

	// Collector
	byTask := make([][][]float64, len(tasks))
	g.Go(func() error {
		for r := range chResult {
			byTask[r.index] = r.cols
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	var cols [][]float64
	for _, c := range byTask {
		cols = append(cols, c...)
	}
	return cols, nil
}

// count queries c, failing early when ctx is done.
func count(ctx context.Context, c esam.Counter, chrom string, start, end int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.Count(chrom, start, end)
}

