// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"archivist/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcess_ResultsInInputOrder(t *testing.T) {
	paths := []string{"c", "a", "b", "d", "e"}
	pp := NewParallelProcessor[string](3, 0, nil)

	results, stats := pp.Process(context.Background(), paths, func(_ context.Context, job Job) (string, error) {
		// later jobs finish first
		time.Sleep(time.Duration(len(paths)-job.Index) * time.Millisecond)
		return strings.ToUpper(job.Path), nil
	}, nil)

	require.Len(t, results, len(paths))
	for i, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, i, r.Index)
		assert.Equal(t, strings.ToUpper(paths[i]), r.Value)
		assert.NoError(t, r.Error)
	}
	assert.Equal(t, 5, stats.Succeeded)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 3, stats.WorkerCount)
}

func TestProcess_ErrorsAndPanicsAreIsolated(t *testing.T) {
	boom := errors.New("boom")
	pp := NewParallelProcessor[int](2, 0, nil)

	results, stats := pp.Process(context.Background(), []string{"ok", "fail", "panic"}, func(_ context.Context, job Job) (int, error) {
		switch job.Path {
		case "fail":
			return 0, boom
		case "panic":
			panic("unexpected")
		}
		return 1, nil
	}, nil)

	assert.NoError(t, results[0].Error)
	assert.ErrorIs(t, results[1].Error, boom)
	assert.ErrorContains(t, results[2].Error, "panicked")
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 2, stats.Failed)
}

func TestProcess_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	paths := make([]string, 50)
	for i := range paths {
		paths[i] = "p"
	}

	var ran atomic.Int32
	pp := NewParallelProcessor[struct{}](1, 0, nil)
	results, stats := pp.Process(ctx, paths, func(ctx context.Context, job Job) (struct{}, error) {
		if ran.Add(1) == 3 {
			cancel()
		}
		return struct{}{}, ctx.Err()
	}, nil)

	require.Len(t, results, len(paths))
	for _, r := range results {
		require.NotNil(t, r)
	}
	assert.Less(t, int(ran.Load()), len(paths))
	assert.ErrorIs(t, results[len(paths)-1].Error, context.Canceled)
	assert.Equal(t, len(paths), stats.Succeeded+stats.Failed)
}

func TestProcess_Timeout(t *testing.T) {
	pp := NewParallelProcessor[int](1, 10*time.Millisecond, nil)
	results, _ := pp.Process(context.Background(), []string{"slow"}, func(ctx context.Context, _ Job) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}, nil)
	assert.ErrorIs(t, results[0].Error, context.DeadlineExceeded)
}

func TestProcess_ProgressAndObserver(t *testing.T) {
	var buf bytes.Buffer
	observer := observability.New(true, &buf)
	pp := NewParallelProcessor[int](2, 0, observer)

	var calls []int
	_, _ = pp.Process(context.Background(), []string{"a", "b", "c"}, func(_ context.Context, _ Job) (int, error) {
		return 0, nil
	}, func(completed, total int, _ string) {
		calls = append(calls, completed)
		assert.Equal(t, 3, total)
	})

	assert.Equal(t, []int{1, 2, 3}, calls)
	assert.Contains(t, buf.String(), `"component":"parallel_processor"`)
	assert.Contains(t, buf.String(), `"component":"worker_pool"`)
}

func TestProcess_Empty(t *testing.T) {
	pp := NewParallelProcessor[int](0, 0, nil)
	results, stats := pp.Process(context.Background(), nil, func(context.Context, Job) (int, error) { return 0, nil }, nil)
	assert.Empty(t, results)
	assert.Equal(t, 0, stats.TotalJobs)
}
