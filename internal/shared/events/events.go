package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"portfolio-backend/internal/shared/telemetry"
)

// JobEvent is the wire payload published whenever an analysis job changes state.
type JobEvent struct {
	JobID             string    `json:"jobId"`
	CompanyID         string    `json:"companyId"`
	Status            string    `json:"status"`
	Progress          int       `json:"progress"`
	TotalSoftware     int       `json:"totalSoftware"`
	ProcessedSoftware int       `json:"processedSoftware"`
	OverlapsFound     int       `json:"overlapsFound"`
	Message           string    `json:"message"`
	OccurredAt        time.Time `json:"occurredAt"`
	Version           int       `json:"version"`
}

// Publisher delivers job events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt JobEvent) error
	Close() error
}

// Writer abstracts kafka.Writer for testing.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	publishBuffer  = 256
	maxBatch       = 64
	publishTimeout = 5 * time.Second
)

// ErrBufferFull is returned by Publish when the send buffer has no room; the event is dropped.
var ErrBufferFull = errors.New("job event buffer full")

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("job event publisher closed")

// KafkaPublisher writes job events to a Kafka topic keyed by company. Publish only queues;
// a background goroutine owns the writer, so callers never wait on the broker.
type KafkaPublisher struct {
	writer Writer

	mu     sync.RWMutex
	closed bool
	queue  chan kafka.Message
	done   chan struct{}
}

// NewKafkaPublisher constructs a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		WriteTimeout:           publishTimeout,
		AllowAutoTopicCreation: true,
	}
	return NewPublisherWithWriter(w), nil
}

// NewPublisherWithWriter wraps an existing writer and starts the send loop.
func NewPublisherWithWriter(w Writer) *KafkaPublisher {
	p := &KafkaPublisher{
		writer: w,
		queue:  make(chan kafka.Message, publishBuffer),
		done:   make(chan struct{}),
	}
	go p.loop()
	return p
}

// Publish encodes evt and queues it keyed by company so a company's events stay ordered.
// It never blocks.
func (p *KafkaPublisher) Publish(ctx context.Context, evt JobEvent) error {
	if evt.Version == 0 {
		evt.Version = 1
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode job event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(evt.CompanyID),
		Value: payload,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte("analysis.job." + evt.Status)},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- msg:
		return nil
	default:
		return fmt.Errorf("job event %s: %w", evt.JobID, ErrBufferFull)
	}
}

func (p *KafkaPublisher) loop() {
	defer close(p.done)
	batch := make([]kafka.Message, 0, maxBatch)
	for msg := range p.queue {
		batch = append(batch[:0], msg)
	drain:
		for len(batch) < maxBatch {
			select {
			case next, ok := <-p.queue:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}
		p.write(batch)
	}
}

func (p *KafkaPublisher) write(batch []kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, batch...); err != nil {
		telemetry.Warn("events.kafka_write_failed", map[string]any{
			"messages": len(batch),
			"error":    err,
		})
	}
}

// Close stops accepting events, flushes the queue and closes the writer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	<-p.done
	return p.writer.Close()
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, JobEvent) error { return nil }
func (Nop) Close() error                            { return nil }

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = Nop{}
)
