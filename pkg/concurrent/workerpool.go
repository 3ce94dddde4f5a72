// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package concurrent runs batches of independent jobs with bounded parallelism.
package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// WorkerPool bounds how many jobs of a batch run at the same time.
type WorkerPool struct {
	workers int
}

// NewWorkerPool creates a pool running at most workers jobs at once. A
// non-positive count runs jobs one at a time.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	return &WorkerPool{workers: workers}
}

// Workers returns the parallelism limit.
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// Run executes every job and returns the first error. Jobs that have not
// started when an error occurs are skipped.
func (wp *WorkerPool) Run(ctx context.Context, jobs ...func() error) error {
	if len(jobs) == 0 {
		return nil
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(wp.workers)

	for _, job := range jobs {
		if groupCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			return job()
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// RunAll executes every job regardless of failures and returns the non-nil
// errors in submission order. Jobs not started before ctx is done report
// ctx.Err().
func (wp *WorkerPool) RunAll(ctx context.Context, jobs ...func() error) []error {
	if len(jobs) == 0 {
		return nil
	}

	results := make([]error, len(jobs))

	var g errgroup.Group
	g.SetLimit(wp.workers)

	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = err
				return nil
			}
			results[i] = job()
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, err := range results {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
