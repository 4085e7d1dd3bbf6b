package queue

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultAssignmentTopic carries the ids of newly created message assignments.
const DefaultAssignmentTopic = "assignment_personalize"

const defaultMaxRetries = 3

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue delivers to in-process subscribers with retry.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
	wg       sync.WaitGroup

	Logger     *zap.Logger
	MaxRetries int
	Backoff    time.Duration
}

func NewInMemoryQueue(logger *zap.Logger) *InMemoryQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryQueue{
		handlers:   make(map[string][]func(payload any) error),
		Logger:     logger,
		MaxRetries: defaultMaxRetries,
		Backoff:    500 * time.Millisecond,
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		job := JobPayload{Payload: payload, MaxRetries: q.MaxRetries}
		q.wg.Add(1)
		go q.processJob(topic, handler, job)
	}
	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(topic string, handler func(payload any) error, job JobPayload) {
	defer q.wg.Done()

	for {
		err := handler(job.Payload)
		if err == nil {
			q.Logger.Debug("job processed", zap.String("topic", topic), zap.Any("payload", job.Payload))
			return
		}

		job.RetryCount++
		if job.RetryCount > job.MaxRetries {
			q.Logger.Error("job permanently failed",
				zap.String("topic", topic),
				zap.Any("payload", job.Payload),
				zap.Int("attempts", job.RetryCount),
				zap.Error(err),
			)
			return
		}

		q.Logger.Warn("job failed, retrying",
			zap.String("topic", topic),
			zap.Any("payload", job.Payload),
			zap.Int("attempt", job.RetryCount),
			zap.Error(err),
		)
		time.Sleep(time.Duration(job.RetryCount) * q.Backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Wait blocks until every published job has finished or given up.
func (q *InMemoryQueue) Wait() {
	q.wg.Wait()
}
