package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestInMemoryQueueDelivers(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := NewInMemoryQueue(nil)
	got := make(chan map[string]string, 1)
	require.NoError(t, q.Subscribe("greetings", func(_ context.Context, body []byte) error {
		var m map[string]string
		if err := json.Unmarshal(body, &m); err != nil {
			return err
		}
		got <- m
		return nil
	}))

	require.NoError(t, q.Publish(context.Background(), "greetings", map[string]string{"hello": "world"}))
	require.NoError(t, q.Close())
	assert.Equal(t, map[string]string{"hello": "world"}, <-got)
}

func TestInMemoryQueueRetries(t *testing.T) {
	q := NewInMemoryQueue(nil)
	q.Backoff = time.Millisecond

	var calls atomic.Int32
	require.NoError(t, q.Subscribe("flaky", func(context.Context, []byte) error {
		if calls.Add(1) < 3 {
			return errors.New("try again")
		}
		return nil
	}))
	require.NoError(t, q.Publish(context.Background(), "flaky", "x"))
	require.NoError(t, q.Close())
	assert.Equal(t, int32(3), calls.Load())
}

func TestInMemoryQueueGivesUp(t *testing.T) {
	q := NewInMemoryQueue(nil)
	q.Backoff = time.Millisecond
	q.MaxRetries = 2

	var calls atomic.Int32
	require.NoError(t, q.Subscribe("broken", func(context.Context, []byte) error {
		calls.Add(1)
		return errors.New("always")
	}))
	require.NoError(t, q.Publish(context.Background(), "broken", "x"))
	require.NoError(t, q.Close())
	assert.Equal(t, int32(3), calls.Load())
}

func TestInMemoryQueuePublishErrors(t *testing.T) {
	q := NewInMemoryQueue(nil)
	assert.Error(t, q.Publish(context.Background(), "nobody", "x"))

	require.NoError(t, q.Subscribe("t", func(context.Context, []byte) error { return nil }))
	require.NoError(t, q.Close())
	assert.Error(t, q.Publish(context.Background(), "t", "x"))
}

func TestRetryCount(t *testing.T) {
	assert.Equal(t, int32(0), retryCount(nil))
	assert.Equal(t, int32(2), retryCount(map[string]interface{}{retryHeader: int32(2)}))
	assert.Equal(t, int32(5), retryCount(map[string]interface{}{retryHeader: int64(5)}))
}
