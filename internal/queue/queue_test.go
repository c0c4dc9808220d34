package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRoundTrip(t *testing.T) {
	q := NewInMemory(4)
	ctx := context.Background()

	job := Job{Kind: "approved", To: "a@x.com", Subject: "Your EHSAS membership is approved", Body: "EH150001"}
	require.NoError(t, q.Publish(ctx, job))

	jobs, err := q.Consume(ctx)
	require.NoError(t, err)

	select {
	case got := <-jobs:
		assert.Equal(t, job, got)
	case <-time.After(time.Second):
		t.Fatal("no job received")
	}
}

func TestInMemoryPublishHonorsCancellation(t *testing.T) {
	q := NewInMemory(1)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, q.Publish(ctx, Job{Kind: "registration"}))

	// Queue is full and nobody is consuming; a cancelled publish must not block.
	cancel()
	err := q.Publish(ctx, Job{Kind: "registration"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInMemoryConsumeReleasesBlockedDelivery(t *testing.T) {
	q := NewInMemory(1)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, q.Publish(ctx, Job{Kind: "approved"}))

	// Nobody reads from the returned channel, so the forwarding goroutine
	// ends up blocked mid-delivery; cancellation must still release it.
	jobs, err := q.Consume(ctx)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, open := <-jobs:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("consume channel did not close after cancellation")
		}
	}
}

func TestInMemoryConsumeStopsOnCancellation(t *testing.T) {
	q := NewInMemory(1)
	ctx, cancel := context.WithCancel(context.Background())

	jobs, err := q.Consume(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, open := <-jobs:
		assert.False(t, open, "channel closes after cancellation")
	case <-time.After(time.Second):
		t.Fatal("consume channel did not close")
	}
}
