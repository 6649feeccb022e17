package publisher

import (
	"context"
	"log/slog"
	"time"

	r "github.com/fjod/go_shop/internal/repository"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the slice of kafka.Writer the poller uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

const defaultBatchSize = 100

// OutboxPoller drains checkout events written by the settlement
// transaction and publishes them to Kafka. Delivery is at-least-once:
// a publish that succeeds but fails to be marked will be sent again.
type OutboxPoller struct {
	tick      time.Duration
	batchSize int64
	repo      r.OutboxRepository
	writer    MessageWriter
	logger    *slog.Logger
}

func NewOutboxPoller(repo r.OutboxRepository, logger *slog.Logger, topic string, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{time.Second, defaultBatchSize, repo, w, logger}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() {
	if closer, ok := p.writer.(*kafka.Writer); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error("failed to close kafka writer", "error", err)
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnpublishedEvents(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("failed to fetch outbox events", "error", err)
		return
	}

	for _, event := range events {
		if errPublish := p.publish(ctx, event); errPublish != nil {
			p.logger.Error("failed to publish event", "event_id", event.ID, "error", errPublish)
			continue
		}

		if errMark := p.repo.MarkEventAsPublished(ctx, event.ID); errMark != nil {
			p.logger.Error("failed to mark event as published", "event_id", event.ID, "error", errMark)
			continue
		}
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *r.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // user id, keeps per-user ordering
		Value: event.Payload,             // Already JSON from the outbox
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	return p.writer.WriteMessages(ctx, msg)
}
