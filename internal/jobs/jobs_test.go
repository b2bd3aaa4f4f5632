package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker_EnqueueAsyncTracksStats(t *testing.T) {
	w := NewWorker(2)

	var ran int32
	done := make(chan struct{}, 2)
	w.EnqueueAsync(func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		done <- struct{}{}
		return nil
	})
	w.EnqueueAsync(func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		done <- struct{}{}
		return errors.New("boom")
	})
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("job did not run")
		}
	}
	w.Shutdown()

	stats := w.GetStats()
	assert.Equal(t, int32(2), atomic.LoadInt32(&ran))
	assert.Equal(t, int64(2), stats.CompletedJobs)
	assert.Equal(t, int64(1), stats.FailedJobs)
	assert.Equal(t, 0, stats.ActiveJobs)
}

func TestWorker_RecoversFromPanic(t *testing.T) {
	w := NewWorker(1)
	w.EnqueueAsync(func(ctx context.Context) error { panic("bad job") })
	w.Shutdown()

	assert.Equal(t, int64(1), w.GetStats().FailedJobs)
}

func TestRedisLocker_ExclusiveUntilReleased(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	locker := NewRedisLocker(client)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "apply_late_fees", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("jobs:lock:apply_late_fees"))

	_, err = locker.Acquire(ctx, "apply_late_fees", time.Minute)
	assert.ErrorIs(t, err, ErrLocked)

	release()
	assert.False(t, mr.Exists("jobs:lock:apply_late_fees"))

	release, err = locker.Acquire(ctx, "apply_late_fees", time.Minute)
	require.NoError(t, err)
	release()
}

func TestRedisLocker_ExpiresAfterTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	locker := NewRedisLocker(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	_, err := locker.Acquire(ctx, "sync_room_status", time.Minute)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	release, err := locker.Acquire(ctx, "sync_room_status", time.Minute)
	require.NoError(t, err)
	release()
}

func TestRunner_RecordsOutcome(t *testing.T) {
	r := NewRunner(NewLocalLocker())

	result, err := r.Run(context.Background(), "cancel_expired_bookings", func(ctx context.Context) (any, error) {
		return map[string]int{"expired": 2}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"expired": 2}, result)

	_, err = r.Run(context.Background(), "apply_late_fees", func(ctx context.Context) (any, error) {
		return nil, errors.New("db down")
	})
	assert.EqualError(t, err, "db down")

	history := r.History()
	require.Len(t, history, 2)
	assert.Equal(t, "apply_late_fees", history[0].Name)
	assert.Equal(t, RunStatusFailed, history[0].Status)
	assert.Equal(t, "db down", history[0].Error)
	assert.Equal(t, RunStatusSucceeded, history[1].Status)
	assert.NotNil(t, history[1].FinishedAt)
}

func TestRunner_SkipsWhenLocked(t *testing.T) {
	locker := NewLocalLocker()
	release, err := locker.Acquire(context.Background(), "send_rent_reminders", time.Minute)
	require.NoError(t, err)
	defer release()

	r := NewRunner(locker)
	called := false
	_, err = r.Run(context.Background(), "send_rent_reminders", func(ctx context.Context) (any, error) {
		called = true
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrLocked)
	assert.False(t, called)
	assert.Equal(t, RunStatusSkipped, r.History()[0].Status)
}
