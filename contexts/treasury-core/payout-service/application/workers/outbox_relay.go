package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "tidepool/contexts/treasury-core/payout-service/application"
	"tidepool/contexts/treasury-core/payout-service/ports"
)

// OutboxRelay drains the treasury outbox into the event bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	Topic     string
	BatchSize int
	Logger    *slog.Logger
}

func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}
	topic := r.Topic
	if topic == "" {
		topic = "treasury.events"
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("treasury outbox list pending failed",
			"event", "treasury_outbox_list_failed",
			"module", "treasury-core/payout-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	for _, message := range pending {
		var envelope ports.EventEnvelope
		if err := json.Unmarshal(message.Payload, &envelope); err != nil {
			logger.Error("treasury outbox payload decode failed",
				"event", "treasury_outbox_decode_failed",
				"module", "treasury-core/payout-service",
				"layer", "worker",
				"outbox_id", message.OutboxID,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Publisher.Publish(ctx, topic, envelope); err != nil {
			logger.Error("treasury outbox publish failed",
				"event", "treasury_outbox_publish_failed",
				"module", "treasury-core/payout-service",
				"layer", "worker",
				"outbox_id", message.OutboxID,
				"event_type", envelope.EventType,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, message.OutboxID, now); err != nil {
			logger.Error("treasury outbox mark published failed",
				"event", "treasury_outbox_mark_published_failed",
				"module", "treasury-core/payout-service",
				"layer", "worker",
				"outbox_id", message.OutboxID,
				"error", err.Error(),
			)
			return err
		}
	}
	return nil
}
