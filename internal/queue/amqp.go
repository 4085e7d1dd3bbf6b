package queue

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const retryHeader = "x-retry-count"

// AssignmentJob is the wire format of an assignment event.
type AssignmentJob struct {
	AssignmentID int `json:"assignment_id"`
}

// AMQPQueue publishes and consumes assignment jobs over RabbitMQ. Every topic
// maps to a durable queue of the same name on the default exchange.
// channel is the subset of *amqp.Channel the queue uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

type AMQPQueue struct {
	conn *amqp.Connection
	ch   channel

	mu       sync.Mutex
	declared map[string]bool

	// requeued counts deliveries nacked back to the broker because the
	// retry republish failed; the retry header could not be bumped for them.
	failMu   sync.Mutex
	requeued map[string]int

	Logger     *zap.Logger
	MaxRetries int
}

func DialAMQP(url string, logger *zap.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return &AMQPQueue{
		conn:       conn,
		ch:         ch,
		declared:   map[string]bool{},
		requeued:   map[string]int{},
		Logger:     logger,
		MaxRetries: defaultMaxRetries,
	}, nil
}

// declare must be called with q.mu held.
func (q *AMQPQueue) declare(topic string) error {
	if q.declared[topic] {
		return nil
	}
	_, err := q.ch.QueueDeclare(
		topic,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", topic, err)
	}
	q.declared[topic] = true
	return nil
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	body, err := EncodeJob(payload)
	if err != nil {
		return err
	}
	return q.publish(topic, body, 0)
}

func (q *AMQPQueue) publish(topic string, body []byte, retries int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.declare(topic); err != nil {
		return err
	}
	return q.ch.Publish(
		"",
		topic,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Headers:      amqp.Table{retryHeader: int32(retries)},
			Body:         body,
		},
	)
}

// Subscribe starts consuming topic in the background. The handler receives
// the assignment id as an int. Failed deliveries are republished with an
// incremented retry header until MaxRetries is reached.
func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	if err := q.declare(topic); err != nil {
		q.mu.Unlock()
		return err
	}
	deliveries, err := q.ch.Consume(
		topic,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	q.mu.Unlock()
	if err != nil {
		return fmt.Errorf("register consumer on %s: %w", topic, err)
	}

	go func() {
		for d := range deliveries {
			q.handleDelivery(topic, d, handler)
		}
		q.Logger.Info("consumer stopped", zap.String("topic", topic))
	}()
	return nil
}

func (q *AMQPQueue) handleDelivery(topic string, d amqp.Delivery, handler func(payload any) error) {
	id, err := DecodeJob(d.Body)
	if err != nil {
		q.Logger.Warn("dropping invalid job", zap.String("topic", topic), zap.Error(err))
		d.Ack(false)
		return
	}

	key := topic + ":" + string(d.Body)
	if err := handler(id); err != nil {
		retries := RetryCount(d.Headers) + q.requeueCount(key) + 1
		if retries > q.MaxRetries {
			q.Logger.Error("job permanently failed",
				zap.String("topic", topic), zap.Int("assignment_id", id), zap.Int("attempts", retries), zap.Error(err))
		} else if pubErr := q.publish(topic, d.Body, retries); pubErr != nil {
			q.Logger.Error("requeue failed", zap.Int("assignment_id", id), zap.Int("attempt", retries), zap.Error(pubErr))
			q.markRequeued(key)
			d.Nack(false, true)
			return
		} else {
			q.Logger.Warn("job failed, requeued",
				zap.Int("assignment_id", id), zap.Int("attempt", retries), zap.Error(err))
		}
	}
	q.forget(key)
	d.Ack(false)
}

func (q *AMQPQueue) requeueCount(key string) int {
	q.failMu.Lock()
	defer q.failMu.Unlock()
	return q.requeued[key]
}

func (q *AMQPQueue) markRequeued(key string) {
	q.failMu.Lock()
	defer q.failMu.Unlock()
	q.requeued[key]++
}

func (q *AMQPQueue) forget(key string) {
	q.failMu.Lock()
	defer q.failMu.Unlock()
	delete(q.requeued, key)
}

func (q *AMQPQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}

// EncodeJob accepts an assignment id or an AssignmentJob.
func EncodeJob(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case int:
		return json.Marshal(AssignmentJob{AssignmentID: v})
	case AssignmentJob:
		return json.Marshal(v)
	default:
		return nil, fmt.Errorf("unsupported payload type %T", payload)
	}
}

func DecodeJob(body []byte) (int, error) {
	var job AssignmentJob
	if err := json.Unmarshal(body, &job); err != nil {
		return 0, err
	}
	if job.AssignmentID <= 0 {
		return 0, fmt.Errorf("missing assignment_id")
	}
	return job.AssignmentID, nil
}

// RetryCount reads the retry header; RabbitMQ may hand integers back in any width.
func RetryCount(h amqp.Table) int {
	switch v := h[retryHeader].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	default:
		return 0
	}
}

var (
	_ Queue = (*InMemoryQueue)(nil)
	_ Queue = (*AMQPQueue)(nil)
)
