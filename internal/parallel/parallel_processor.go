// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"archivist/internal/observability"
)

// MaxDefaultWorkers caps the worker count picked by DefaultWorkers.
const MaxDefaultWorkers = 8

// ProcessingStats tracks parallel processing statistics
type ProcessingStats struct {
	TotalJobs     int           `json:"total_jobs"`
	Succeeded     int           `json:"succeeded"`
	Failed        int           `json:"failed"`
	TotalDuration time.Duration `json:"total_duration_ms"`
	WorkerCount   int           `json:"worker_count"`
	AvgJobTime    time.Duration `json:"avg_job_time_ms"`
}

// ProgressCallback is called when a job is completed
type ProgressCallback func(completed, total int, current string)

// ParallelProcessor fans jobs out to a worker pool.
type ParallelProcessor[T any] struct {
	workers  int
	timeout  time.Duration
	observer *observability.StandardObserver
}

// DefaultWorkers returns the CPU count, capped at MaxDefaultWorkers.
func DefaultWorkers() int {
	return min(runtime.NumCPU(), MaxDefaultWorkers)
}

// NewParallelProcessor creates a processor with the given worker count;
// zero or less selects DefaultWorkers.
func NewParallelProcessor[T any](workers int, timeout time.Duration, observer *observability.StandardObserver) *ParallelProcessor[T] {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	return &ParallelProcessor[T]{workers: workers, timeout: timeout, observer: observer}
}

// Process runs process for every path and returns the results indexed like
// paths. Cancelling ctx stops new jobs from starting; jobs that never ran
// carry ctx's error.
func (pp *ParallelProcessor[T]) Process(ctx context.Context, paths []string, process ProcessFunc[T], progress ProgressCallback) ([]*Result[T], *ProcessingStats) {
	start := time.Now()

	var finishTiming func(bool, map[string]interface{})
	if pp.observer != nil {
		finishTiming = pp.observer.StartTiming("parallel_processor", "process", "batch")
	}

	pool := NewWorkerPool(ctx, min(pp.workers, max(len(paths), 1)), pp.timeout, process, pp.observer)
	pool.Start()

	results := make([]*Result[T], len(paths))
	submitted := make(chan int, 1)
	go func() {
		defer pool.Close()
		n := 0
		for i, path := range paths {
			if !pool.Submit(Job{ID: fmt.Sprintf("job_%d", i), Index: i, Path: path}) {
				break
			}
			n++
		}
		submitted <- n
	}()

	go pool.Stop()

	stats := &ProcessingStats{TotalJobs: len(paths), WorkerCount: pool.Workers()}
	var busy time.Duration
	completed := 0
	for result := range pool.Results() {
		results[result.Index] = result
		if result.Error != nil {
			stats.Failed++
		} else {
			stats.Succeeded++
		}
		busy += result.Duration
		completed++
		if progress != nil {
			progress(completed, len(paths), result.Path)
		}
	}

	if n := <-submitted; n < len(paths) {
		err := context.Cause(ctx)
		if err == nil {
			err = context.Canceled
		}
		for i := n; i < len(paths); i++ {
			if results[i] == nil {
				results[i] = &Result[T]{JobID: fmt.Sprintf("job_%d", i), Index: i, Path: paths[i], Error: err}
				stats.Failed++
			}
		}
	}

	stats.TotalDuration = time.Since(start)
	stats.AvgJobTime = busy / time.Duration(max(completed, 1))

	if finishTiming != nil {
		finishTiming(stats.Failed == 0, map[string]interface{}{
			"total_jobs":   stats.TotalJobs,
			"succeeded":    stats.Succeeded,
			"failed":       stats.Failed,
			"worker_count": stats.WorkerCount,
			"duration_ms":  stats.TotalDuration.Milliseconds(),
		})
	}

	return results, stats
}
