// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package concurrent

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trackedJobs returns n jobs that record the peak number running at once.
func trackedJobs(n int, fail map[int]error) ([]func() error, *int32, *int32) {
	var running, peak, done int32
	jobs := make([]func() error, n)
	for i := range jobs {
		jobs[i] = func() error {
			now := atomic.AddInt32(&running, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if now <= old || atomic.CompareAndSwapInt32(&peak, old, now) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			atomic.AddInt32(&done, 1)
			return fail[i]
		}
	}
	return jobs, &peak, &done
}

func TestNewWorkerPool(t *testing.T) {
	tests := []struct {
		workers  int
		expected int
	}{
		{workers: 4, expected: 4},
		{workers: 0, expected: 1},
		{workers: -3, expected: 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("workers %d", tt.workers), func(t *testing.T) {
			assert.Equal(t, tt.expected, NewWorkerPool(tt.workers).Workers())
		})
	}
}

func TestWorkerPool_Run(t *testing.T) {
	jobs, peak, done := trackedJobs(8, nil)

	err := NewWorkerPool(3).Run(context.Background(), jobs...)

	require.NoError(t, err)
	assert.Equal(t, int32(8), atomic.LoadInt32(done))
	assert.LessOrEqual(t, atomic.LoadInt32(peak), int32(3))
}

func TestWorkerPool_Run_ReturnsFirstError(t *testing.T) {
	boom := errors.New("occurrence write failed")
	jobs, _, _ := trackedJobs(6, map[int]error{0: boom})

	err := NewWorkerPool(1).Run(context.Background(), jobs...)

	assert.ErrorIs(t, err, boom)
}

func TestWorkerPool_Run_Empty(t *testing.T) {
	assert.NoError(t, NewWorkerPool(2).Run(context.Background()))
}

func TestWorkerPool_Run_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	jobs, _, done := trackedJobs(4, nil)

	err := NewWorkerPool(2).Run(ctx, jobs...)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), atomic.LoadInt32(done))
}

func TestWorkerPool_RunAll_KeepsSubmissionOrder(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")
	jobs, _, done := trackedJobs(5, map[int]error{1: first, 4: second})

	errs := NewWorkerPool(5).RunAll(context.Background(), jobs...)

	assert.Equal(t, int32(5), atomic.LoadInt32(done), "a failure must not stop the batch")
	assert.Equal(t, []error{first, second}, errs)
}

func TestWorkerPool_RunAll_AllSucceed(t *testing.T) {
	jobs, peak, _ := trackedJobs(6, nil)

	errs := NewWorkerPool(2).RunAll(context.Background(), jobs...)

	assert.Empty(t, errs)
	assert.LessOrEqual(t, atomic.LoadInt32(peak), int32(2))
}

func TestWorkerPool_RunAll_Empty(t *testing.T) {
	assert.Nil(t, NewWorkerPool(2).RunAll(context.Background()))
}

func TestWorkerPool_RunAll_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	jobs, _, done := trackedJobs(3, nil)

	errs := NewWorkerPool(2).RunAll(ctx, jobs...)

	require.Len(t, errs, 3)
	for _, err := range errs {
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(done))
}
