package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"tidepool/contexts/sale-core/contribution-service/domain/entities"
	domainerrors "tidepool/contexts/sale-core/contribution-service/domain/errors"
	"tidepool/contexts/sale-core/contribution-service/ports"

	"github.com/google/uuid"
)

type Store struct {
	mu sync.RWMutex

	accounts      map[string]entities.Account
	contributions map[string]ports.ContributionRecord // keyed by external reference
	outbox        []outboxRecord
}

type outboxRecord struct {
	EventID      string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
	Published    bool
}

func NewStore(seed []entities.Account) *Store {
	store := &Store{
		accounts:      make(map[string]entities.Account),
		contributions: make(map[string]ports.ContributionRecord),
	}
	for _, account := range seed {
		store.accounts[account.Address] = account
	}
	return store
}

func (s *Store) GetAccount(_ context.Context, address string) (entities.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[strings.TrimSpace(address)]
	if !ok {
		return entities.Account{}, domainerrors.ErrAccountNotFound
	}
	return account, nil
}

func (s *Store) UpsertAccount(_ context.Context, account entities.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	address := strings.TrimSpace(account.Address)
	if address == "" {
		return domainerrors.ErrInvalidContributionInput
	}
	account.ClampReleased()
	s.accounts[address] = account
	return nil
}

func (s *Store) ListAccounts(_ context.Context, limit int, offset int) ([]entities.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	items := make([]entities.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		items = append(items, account)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Address < items[j].Address
	})
	if offset >= len(items) {
		return []entities.Account{}, nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return append([]entities.Account(nil), items[offset:end]...), nil
}

func (s *Store) SumContributed(_ context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0.0
	for _, account := range s.accounts {
		total += account.Contributed
	}
	return total, nil
}

func (s *Store) SumAllocated(_ context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0.0
	for _, account := range s.accounts {
		total += account.Allocated
	}
	return total, nil
}

func (s *Store) RecordContribution(_ context.Context, record ports.ContributionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reference := strings.TrimSpace(record.ExternalReference)
	if reference == "" || strings.TrimSpace(record.Address) == "" {
		return domainerrors.ErrInvalidContributionInput
	}
	if _, exists := s.contributions[reference]; exists {
		return domainerrors.ErrDuplicateContribution
	}
	s.contributions[reference] = record
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	s.outbox = append(s.outbox, outboxRecord{
		EventID:      envelope.EventID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		CreatedAt:    envelope.OccurredAt.UTC(),
	})
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, limit)
	for _, record := range s.outbox {
		if record.Published {
			continue
		}
		items = append(items, ports.OutboxMessage{
			OutboxID:     record.EventID,
			EventType:    record.EventType,
			PartitionKey: record.PartitionKey,
			Payload:      append([]byte(nil), record.Payload...),
			CreatedAt:    record.CreatedAt,
		})
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.outbox {
		if s.outbox[i].EventID == outboxID {
			s.outbox[i].Published = true
			return nil
		}
	}
	return nil
}

func (s *Store) OutboxSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.outbox)
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.AccountRepository = (*Store)(nil)
var _ ports.ContributionLedger = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
