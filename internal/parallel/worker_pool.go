// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package parallel runs independent jobs on a fixed pool of workers and
// hands the results back in submission order.
package parallel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"archivist/internal/observability"
)

// ProcessFunc does the work of one job.
type ProcessFunc[T any] func(ctx context.Context, job Job) (T, error)

// Job is one unit of work.
type Job struct {
	ID    string
	Index int
	Path  string
}

// Result is the outcome of one job.
type Result[T any] struct {
	JobID    string
	Index    int
	Path     string
	Value    T
	Error    error
	Duration time.Duration
}

// WorkerPool manages parallel job processing.
type WorkerPool[T any] struct {
	workers  int
	process  ProcessFunc[T]
	jobs     chan Job
	results  chan *Result[T]
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	observer *observability.StandardObserver
	timeout  time.Duration
}

// NewWorkerPool creates a pool of workers bound to ctx. A job running
// longer than timeout has its context cancelled; zero means no limit.
func NewWorkerPool[T any](ctx context.Context, workers int, timeout time.Duration, process ProcessFunc[T], observer *observability.StandardObserver) *WorkerPool[T] {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &WorkerPool[T]{
		workers:  workers,
		process:  process,
		jobs:     make(chan Job, workers*2),
		results:  make(chan *Result[T], workers*2),
		ctx:      ctx,
		cancel:   cancel,
		observer: observer,
		timeout:  timeout,
	}
}

// Workers returns the pool size.
func (wp *WorkerPool[T]) Workers() int {
	return wp.workers
}

// Start initializes worker goroutines
func (wp *WorkerPool[T]) Start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Close signals that no more jobs will be submitted.
func (wp *WorkerPool[T]) Close() {
	close(wp.jobs)
}

// Stop waits for the workers to drain and releases the pool.
func (wp *WorkerPool[T]) Stop() {
	wp.wg.Wait()
	close(wp.results)
	wp.cancel()
}

// Submit adds a job to the queue. It returns false when the pool's context
// is done and the job was dropped.
func (wp *WorkerPool[T]) Submit(job Job) bool {
	select {
	case wp.jobs <- job:
		return true
	case <-wp.ctx.Done():
		return false
	}
}

// Results returns the results channel
func (wp *WorkerPool[T]) Results() <-chan *Result[T] {
	return wp.results
}

func (wp *WorkerPool[T]) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobs {
		result := wp.processJob(job, id)
		// the collector drains results until Stop closes the channel
		wp.results <- result
	}
}

func (wp *WorkerPool[T]) processJob(job Job, workerID int) (result *Result[T]) {
	start := time.Now()

	var finishTiming func(bool, map[string]interface{})
	if wp.observer != nil {
		finishTiming = wp.observer.StartTiming("worker_pool", "process_job", job.Path)
	}

	result = &Result[T]{JobID: job.ID, Index: job.Index, Path: job.Path}
	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Errorf("job %s panicked: %v", job.ID, r)
		}
		result.Duration = time.Since(start)
		if finishTiming != nil {
			finishTiming(result.Error == nil, map[string]interface{}{
				"worker_id":   workerID,
				"duration_ms": result.Duration.Milliseconds(),
				"had_error":   result.Error != nil,
			})
		}
	}()

	if err := wp.ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	jobCtx := wp.ctx
	if wp.timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(wp.ctx, wp.timeout)
		defer cancel()
	}

	result.Value, result.Error = wp.process(jobCtx, job)
	return result
}
