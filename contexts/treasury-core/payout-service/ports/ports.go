package ports

import (
	"context"
	"time"

	"tidepool/contexts/treasury-core/payout-service/domain/entities"
	contractsv1 "tidepool/contracts/gen/events/v1"
)

type LedgerRepository interface {
	CreateEntry(ctx context.Context, entry entities.LedgerEntry) error
	// MarkCompleted and MarkFailed move a PENDING entry to its terminal
	// status; a terminal entry yields the terminal-entry error.
	MarkCompleted(ctx context.Context, entryID string, externalReference string, completedAt time.Time) error
	MarkFailed(ctx context.Context, entryID string, reason string, failedAt time.Time) error
	GetEntry(ctx context.Context, entryID string) (entities.LedgerEntry, error)
	ListEntriesByAddress(ctx context.Context, address string, limit int, offset int) ([]entities.LedgerEntry, error)
	ListEntriesByStatus(ctx context.Context, status entities.LedgerStatus, limit int) ([]entities.LedgerEntry, error)
	ListUnreconciledFailed(ctx context.Context, limit int) ([]entities.LedgerEntry, error)
	MarkReconciled(ctx context.Context, entryID string, reconciledAt time.Time) error
}

// PaymentRequest is the single typed shape the engine sends to the external
// network. Legacy field-spelling mapping lives in the gateway adapter only.
type PaymentRequest struct {
	DestinationAddress string
	Amount             float64
	Memo               string
}

type PaymentResult struct {
	Reference string
}

// PaymentGateway is the opaque external payment interface. The collaborator
// enforces its own bounded timeout; the call blocks until then.
type PaymentGateway interface {
	SubmitPayment(ctx context.Context, request PaymentRequest) (PaymentResult, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = contractsv1.Envelope

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
