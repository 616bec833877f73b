package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coursegrade/backend/grader"
	"github.com/coursegrade/backend/queue"
	"github.com/coursegrade/backend/srvcerror"
	"github.com/coursegrade/backend/store"
)

func TestEnqueueRejectsSecondLiveEntry(t *testing.T) {
	s := queue.NewService(store.NewInMem())
	ctx := context.Background()

	require.NoError(t, s.Enqueue(ctx, "cosmo", grader.Phase3))

	err := s.Enqueue(ctx, "cosmo", grader.Phase4)
	require.Error(t, err)
	var srvcErr *srvcerror.Error
	require.True(t, errors.As(err, &srvcErr))
	require.Equal(t, queue.ErrCodeAlreadyQueued, srvcErr.ErrorCode())

	// after the first completes, a second enqueue succeeds
	require.NoError(t, s.Remove(ctx, "cosmo"))
	require.NoError(t, s.Enqueue(ctx, "cosmo", grader.Phase4))
}

func TestEnqueueConcurrentAttemptsAdmitExactlyOne(t *testing.T) {
	s := queue.NewService(store.NewInMem())
	ctx := context.Background()

	const attempts = 32
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Enqueue(ctx, "cosmo", grader.Phase3)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	require.Equal(t, 1, succeeded)

	items, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestActiveSplitsByStarted(t *testing.T) {
	s := queue.NewService(store.NewInMem())
	ctx := context.Background()

	require.NoError(t, s.Enqueue(ctx, "waiting1", grader.Phase3))
	require.NoError(t, s.Enqueue(ctx, "running1", grader.Phase3))
	require.NoError(t, s.MarkStarted(ctx, "running1"))

	inQueue, grading, err := s.Active(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"waiting1"}, inQueue)
	require.Equal(t, []string{"running1"}, grading)
}

func TestMarkAllNotStartedReArmsEverything(t *testing.T) {
	s := queue.NewService(store.NewInMem())
	ctx := context.Background()

	require.NoError(t, s.Enqueue(ctx, "a", grader.Phase3))
	require.NoError(t, s.Enqueue(ctx, "b", grader.Phase3))
	require.NoError(t, s.MarkStarted(ctx, "a"))
	require.NoError(t, s.MarkStarted(ctx, "b"))

	require.NoError(t, s.MarkAllNotStarted(ctx))

	items, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		require.False(t, item.Started)
	}
}
