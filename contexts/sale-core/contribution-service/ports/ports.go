package ports

import (
	"context"
	"time"

	"tidepool/contexts/sale-core/contribution-service/domain/entities"
	contractsv1 "tidepool/contracts/gen/events/v1"
)

type AccountRepository interface {
	GetAccount(ctx context.Context, address string) (entities.Account, error)
	UpsertAccount(ctx context.Context, account entities.Account) error
	ListAccounts(ctx context.Context, limit int, offset int) ([]entities.Account, error)
	// SumContributed is the water-level aggregation over all accounts.
	SumContributed(ctx context.Context) (float64, error)
	SumAllocated(ctx context.Context) (float64, error)
}

// ContributionRecord is the completed inbound ledger row for one received
// payment. ExternalReference is the idempotency key.
type ContributionRecord struct {
	EntryID           string
	Address           string
	Amount            float64
	ExternalReference string
	Memo              string
	ReceivedAt        time.Time
}

type ContributionLedger interface {
	// RecordContribution fails with the duplicate-contribution conflict when
	// the external reference was already recorded.
	RecordContribution(ctx context.Context, record ContributionRecord) error
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
	OutboxWriter
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, envelope EventEnvelope) error
}
