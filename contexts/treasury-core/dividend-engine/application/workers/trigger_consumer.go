package workers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	application "tidepool/contexts/treasury-core/dividend-engine/application"
	"tidepool/contexts/treasury-core/dividend-engine/application/commands"
	domainerrors "tidepool/contexts/treasury-core/dividend-engine/domain/errors"
	"tidepool/contexts/treasury-core/dividend-engine/ports"
)

// TriggerTopic carries administrative distribution requests.
const TriggerTopic = "treasury.dividend.triggers"

type triggerPayload struct {
	TotalPot    float64 `json:"total_pot"`
	TriggeredBy string  `json:"triggered_by"`
}

// TriggerConsumer turns distribution request events into engine runs.
type TriggerConsumer struct {
	UseCase commands.UseCase
	Logger  *slog.Logger
}

func (c TriggerConsumer) HandleTrigger(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	if event.EventType != "dividend.distribution.requested" {
		return nil
	}

	var payload triggerPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("dividend trigger payload malformed",
			"event", "dividend_trigger_malformed",
			"module", "treasury-core/dividend-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}

	result, err := c.UseCase.Distribute(ctx, commands.DistributeCommand{
		TotalPot:    payload.TotalPot,
		TriggeredBy: payload.TriggeredBy,
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrRunInProgress) {
			logger.Info("dividend already running elsewhere",
				"event", "dividend_trigger_skipped",
				"module", "treasury-core/dividend-engine",
				"layer", "worker",
				"event_id", event.EventID,
			)
			return nil
		}
		return err
	}

	logger.Info("dividend trigger handled",
		"event", "dividend_trigger_handled",
		"module", "treasury-core/dividend-engine",
		"layer", "worker",
		"event_id", event.EventID,
		"run_id", result.RunID,
		"total_distributed", result.TotalDistributed,
		"recipients", result.Recipients,
		"failed", result.Failed,
	)
	return nil
}
