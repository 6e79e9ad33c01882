package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsJobs(t *testing.T) {
	done := make(chan Job, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		done <- job
		return nil
	}, QueueConfig{})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Submit(Job{Type: "webhook", Payload: 1}))

	select {
	case job := <-done:
		assert.Equal(t, "webhook", job.Type)
		assert.NotEmpty(t, job.ID)
		assert.False(t, job.Enqueued.IsZero())
	case <-time.After(time.Second):
		t.Fatal("job not processed")
	}
	require.Eventually(t, func() bool { return q.Stats().Done == 1 }, time.Second, 5*time.Millisecond)
}

func TestQueueNeverRetries(t *testing.T) {
	calls := make(chan struct{}, 4)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		calls <- struct{}{}
		return errors.New("down")
	}, QueueConfig{})
	q.Start(context.Background())

	require.NoError(t, q.Submit(Job{Type: "webhook"}))
	require.Eventually(t, func() bool { return q.Stats().Failed == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	q.Stop()
	assert.Len(t, calls, 1)
}

func TestQueueRecoversPanics(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if job.Type == "boom" {
			panic("nil map")
		}
		return nil
	}, QueueConfig{})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Submit(Job{Type: "boom"}))
	require.NoError(t, q.Submit(Job{Type: "ok"}))
	require.Eventually(t, func() bool {
		s := q.Stats()
		return s.Failed == 1 && s.Done == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSubmitRequiresStart(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.ErrorIs(t, q.Submit(Job{}), ErrQueueStopped)
	assert.Equal(t, uint64(1), q.Stats().Dropped)
}

func TestSubmitReportsFullBuffer(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("full", func(ctx context.Context, job Job) error {
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer func() {
		close(block)
		q.Stop()
	}()

	require.NoError(t, q.Submit(Job{}))
	require.Eventually(t, func() bool { return q.Stats().Pending == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.Submit(Job{}))
	assert.ErrorIs(t, q.Submit(Job{}), ErrQueueFull)
}

func TestStopCancelsInFlightJobs(t *testing.T) {
	started := make(chan struct{})
	q := NewQueue("slow", func(ctx context.Context, job Job) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}, QueueConfig{})
	q.Start(context.Background())

	require.NoError(t, q.Submit(Job{}))
	<-started
	q.Stop()
	assert.Equal(t, uint64(1), q.Stats().Failed)
}
