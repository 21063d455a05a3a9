// Package events announces approved schedules on a Kafka topic.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"WorkshopScheduler/internal/domain"
	"WorkshopScheduler/internal/ports"
)

// EventApproved is the type field of approval events.
const EventApproved = "schedule.approved"

// Config contains configurable parameters for the Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string
	// MaxAttempts defaults to 3 when <= 0.
	MaxAttempts int
	// WriteTimeout defaults to 10s when zero.
	WriteTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes one message per approved proposal, keyed by target date.
type Publisher struct {
	writer      messageWriter
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
}

var _ ports.EventPublisher = (*Publisher)(nil)

// ApprovedEvent is the JSON value of an approval message.
type ApprovedEvent struct {
	Type       string                  `json:"type"`
	Date       string                  `json:"date"`
	ProposalID string                  `json:"proposalId"`
	ApprovedAt *time.Time              `json:"approvedAt,omitempty"`
	Count      int                     `json:"count"`
	Records    []domain.ScheduleRecord `json:"records"`
	ProducedAt time.Time               `json:"producedAt"`
}

// NewPublisher builds a synchronous kafka-go writer with a key-hash balancer.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic required")
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: cfg.WriteTimeout,
		Async:        false,
	})

	return newPublisher(w, cfg.MaxAttempts), nil
}

func newPublisher(w messageWriter, maxAttempts int) *Publisher {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Publisher{
		writer:      w,
		maxAttempts: maxAttempts,
		backoff:     100 * time.Millisecond,
		now:         time.Now,
	}
}

// PublishApproved produces the approval event, retrying transient failures.
func (p *Publisher) PublishApproved(ctx context.Context, proposal domain.ScheduleProposal) error {
	records := proposal.Records()
	value, err := json.Marshal(ApprovedEvent{
		Type:       EventApproved,
		Date:       proposal.DateKey(),
		ProposalID: proposal.ID,
		ApprovedAt: proposal.ApprovedAt,
		Count:      len(records),
		Records:    records,
		ProducedAt: p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{Key: []byte(proposal.DateKey()), Value: value}

	var lastErr error
	backoff := p.backoff
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		msg.Time = p.now().UTC()

		attemptCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := p.writer.WriteMessages(attemptCtx, msg)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == p.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return domain.Upstream("kafka", ctx.Err())
		case <-time.After(backoff):
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}

	return domain.Upstream("kafka", fmt.Errorf("produce failed after %d attempts: %w", p.maxAttempts, lastErr))
}

// Close shuts down the underlying writer.
func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
