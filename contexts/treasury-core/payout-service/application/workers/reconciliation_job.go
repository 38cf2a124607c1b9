package workers

import (
	"context"
	"encoding/json"
	"log/slog"

	application "tidepool/contexts/treasury-core/payout-service/application"
	"tidepool/contexts/treasury-core/payout-service/ports"
)

// ReconciliationJob sweeps FAILED ledger entries and surfaces them for
// operator follow-up. It never re-attempts the external transfer itself.
type ReconciliationJob struct {
	Ledger    ports.LedgerRepository
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	BatchSize int
	Logger    *slog.Logger
}

func (j ReconciliationJob) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(j.Logger)
	limit := j.BatchSize
	if limit <= 0 {
		limit = 100
	}

	entries, err := j.Ledger.ListUnreconciledFailed(ctx, limit)
	if err != nil {
		logger.Error("reconciliation failed-entry scan failed",
			"event", "payout_reconciliation_scan_failed",
			"module", "treasury-core/payout-service",
			"layer", "worker",
			"limit", limit,
			"error", err.Error(),
		)
		return err
	}

	for _, entry := range entries {
		logger.Warn("failed payout flagged for operator review",
			"event", "payout_reconciliation_flagged",
			"module", "treasury-core/payout-service",
			"layer", "worker",
			"entry_id", entry.EntryID,
			"address", entry.Address,
			"kind", string(entry.Kind),
			"amount", entry.Amount,
			"memo", entry.Memo,
		)
		if j.Outbox != nil {
			eventID, err := j.IDGen.NewID(ctx)
			if err != nil {
				return err
			}
			data, err := json.Marshal(map[string]any{
				"entry_id": entry.EntryID,
				"address":  entry.Address,
				"kind":     string(entry.Kind),
				"amount":   entry.Amount,
				"memo":     entry.Memo,
			})
			if err != nil {
				return err
			}
			if err := j.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
				EventID:          eventID,
				EventType:        "payout.reconciliation.flagged",
				OccurredAt:       j.Clock.Now().UTC(),
				SourceService:    "payout-service",
				TraceID:          eventID,
				SchemaVersion:    1,
				PartitionKeyPath: "entry_id",
				PartitionKey:     entry.EntryID,
				Data:             data,
			}); err != nil {
				logger.Error("reconciliation outbox append failed",
					"event", "payout_reconciliation_outbox_append_failed",
					"module", "treasury-core/payout-service",
					"layer", "worker",
					"entry_id", entry.EntryID,
					"error", err.Error(),
				)
				return err
			}
		}
		if err := j.Ledger.MarkReconciled(ctx, entry.EntryID, j.Clock.Now().UTC()); err != nil {
			logger.Error("reconciliation mark failed",
				"event", "payout_reconciliation_mark_failed",
				"module", "treasury-core/payout-service",
				"layer", "worker",
				"entry_id", entry.EntryID,
				"error", err.Error(),
			)
			return err
		}
	}

	if len(entries) > 0 {
		logger.Info("reconciliation sweep completed",
			"event", "payout_reconciliation_sweep_completed",
			"module", "treasury-core/payout-service",
			"layer", "worker",
			"flagged", len(entries),
		)
	}
	return nil
}
