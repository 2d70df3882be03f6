package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/unclebandit/emailace-backend/internal/logger"
)

// CampaignSendTopic carries queued campaign sends.
const CampaignSendTopic = "campaign_sends"

// Handler processes one message body. A non-nil error asks for a retry.
type Handler func(ctx context.Context, body []byte) error

// Queue interface
type Queue interface {
	Publish(ctx context.Context, topic string, payload any) error
	Subscribe(topic string, handler Handler) error
	Close() error
}

// InMemoryQueue delivers to in-process subscribers with retry and linear backoff.
type InMemoryQueue struct {
	mu         sync.Mutex
	handlers   map[string][]Handler
	wg         sync.WaitGroup
	closed     bool
	MaxRetries int
	Backoff    time.Duration
	log        *logger.Logger
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue(log *logger.Logger) *InMemoryQueue {
	if log == nil {
		log = logger.Nop()
	}
	return &InMemoryQueue{
		handlers:   make(map[string][]Handler),
		MaxRetries: 3,
		Backoff:    500 * time.Millisecond,
		log:        log.WithComponent("queue"),
	}
}

// job wraps a message payload with retry info
type job struct {
	Topic      string
	Body       []byte
	RetryCount int
}

// Publish encodes payload as JSON and hands it to every subscriber of topic.
func (q *InMemoryQueue) Publish(ctx context.Context, topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("queue closed")
	}
	handlers := q.handlers[topic]
	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		q.wg.Add(1)
		go q.processJob(handler, job{Topic: topic, Body: body})
	}
	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler Handler, j job) {
	defer q.wg.Done()
	for {
		// jobs outlive the publishing request
		err := handler(context.Background(), j.Body)
		if err == nil {
			q.log.Debug().Str("topic", j.Topic).Msg("job processed")
			return
		}

		j.RetryCount++
		if j.RetryCount > q.MaxRetries {
			q.log.Error().Err(err).Str("topic", j.Topic).Int("attempts", j.RetryCount).Msg("job permanently failed")
			return
		}
		q.log.Warn().Err(err).Str("topic", j.Topic).Int("attempt", j.RetryCount).Int("max_retries", q.MaxRetries).Msg("job failed, retrying")

		time.Sleep(time.Duration(j.RetryCount) * q.Backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Close rejects new publishes and waits for in-flight jobs.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wg.Wait()
	return nil
}

var _ Queue = (*InMemoryQueue)(nil)
