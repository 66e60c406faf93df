package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturard/internal/core/id"
	"facturard/internal/core/numerator"
	"facturard/internal/domain/batches"
	"facturard/pkg/logger"
)

func TestRunner_RunsJobsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var ticks atomic.Int32
	job := Job{
		Name:       "tick",
		Interval:   5 * time.Millisecond,
		RunAtStart: true,
		Run: func(context.Context) error {
			if ticks.Add(1) >= 3 {
				cancel()
			}
			return nil
		},
	}

	done := make(chan struct{})
	go func() {
		NewRunner(logger.Nop(), job).Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
	assert.GreaterOrEqual(t, ticks.Load(), int32(3))
}

func TestRunner_SurvivesFailureAndPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	job := Job{
		Name:       "flaky",
		Interval:   time.Millisecond,
		RunAtStart: true,
		Run: func(context.Context) error {
			switch calls.Add(1) {
			case 1:
				return errors.New("boom")
			case 2:
				panic("kaboom")
			default:
				cancel()
				return nil
			}
		},
	}

	NewRunner(logger.Nop(), job).Run(ctx)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestRunner_SkipsDisabledJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	NewRunner(nil,
		Job{Name: "no-interval", Run: func(context.Context) error { called = true; return nil }},
		Job{Name: "no-func", Interval: time.Second},
	).Run(ctx)
	assert.False(t, called)
}

func TestCleanupJob_PropagatesError(t *testing.T) {
	want := errors.New("db down")
	job := CleanupJob("tokens", time.Minute, func(context.Context) (int, error) { return 0, want }, logger.Nop())

	assert.True(t, job.RunAtStart)
	assert.ErrorIs(t, job.Run(context.Background()), want)
}

type stubLowStock struct {
	threshold int64
	batches   []*batches.Batch
}

func (s *stubLowStock) LowStock(_ context.Context, threshold int64) ([]*batches.Batch, error) {
	s.threshold = threshold
	return s.batches, nil
}

func TestLowStockJob_PassesThreshold(t *testing.T) {
	src := &stubLowStock{batches: []*batches.Batch{{
		ID:           id.New(),
		OwnerID:      id.New(),
		DocumentType: numerator.TypeEConsumo,
		Series:       numerator.SeriesElectronic,
		RangeStart:   1,
		RangeEnd:     100,
		Cursor:       95,
		IsActive:     true,
	}}}

	job := LowStockJob(src, 10, time.Minute, logger.Nop())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, int64(10), src.threshold)
	assert.Equal(t, int64(5), src.batches[0].Remaining())
}
