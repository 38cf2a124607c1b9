package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"tidepool/contexts/treasury-core/payout-service/domain/entities"
	domainerrors "tidepool/contexts/treasury-core/payout-service/domain/errors"
	"tidepool/contexts/treasury-core/payout-service/ports"

	"github.com/google/uuid"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Store struct {
	mu sync.RWMutex

	entries map[string]entities.LedgerEntry
	outbox  map[string]outboxRecord
}

type outboxRecord struct {
	Message     ports.OutboxMessage
	Status      string
	PublishedAt *time.Time
}

func NewStore() *Store {
	return &Store{
		entries: make(map[string]entities.LedgerEntry),
		outbox:  make(map[string]outboxRecord),
	}
}

func (s *Store) CreateEntry(_ context.Context, entry entities.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := strings.TrimSpace(entry.EntryID)
	if id == "" || strings.TrimSpace(entry.Address) == "" {
		return domainerrors.ErrInvalidPayoutInput
	}
	if _, exists := s.entries[id]; exists {
		return domainerrors.ErrInvalidPayoutInput
	}
	s.entries[id] = entry
	return nil
}

func (s *Store) MarkCompleted(_ context.Context, entryID string, externalReference string, completedAt time.Time) error {
	return s.transition(entryID, func(entry *entities.LedgerEntry) {
		entry.Status = entities.LedgerStatusCompleted
		entry.ExternalReference = strings.TrimSpace(externalReference)
		entry.UpdatedAt = completedAt.UTC()
	})
}

func (s *Store) MarkFailed(_ context.Context, entryID string, reason string, failedAt time.Time) error {
	return s.transition(entryID, func(entry *entities.LedgerEntry) {
		entry.Status = entities.LedgerStatusFailed
		if reason = strings.TrimSpace(reason); reason != "" {
			entry.Memo = entry.Memo + " | failure: " + reason
		}
		entry.UpdatedAt = failedAt.UTC()
	})
}

func (s *Store) transition(entryID string, apply func(*entities.LedgerEntry)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[strings.TrimSpace(entryID)]
	if !ok {
		return domainerrors.ErrLedgerEntryNotFound
	}
	if entry.IsTerminal() {
		return domainerrors.ErrLedgerEntryTerminal
	}
	apply(&entry)
	s.entries[entry.EntryID] = entry
	return nil
}

func (s *Store) GetEntry(_ context.Context, entryID string) (entities.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[strings.TrimSpace(entryID)]
	if !ok {
		return entities.LedgerEntry{}, domainerrors.ErrLedgerEntryNotFound
	}
	return entry, nil
}

func (s *Store) ListEntriesByAddress(_ context.Context, address string, limit int, offset int) ([]entities.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	items := make([]entities.LedgerEntry, 0)
	for _, entry := range s.entries {
		if entry.Address == strings.TrimSpace(address) {
			items = append(items, entry)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if offset >= len(items) {
		return []entities.LedgerEntry{}, nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return append([]entities.LedgerEntry(nil), items[offset:end]...), nil
}

func (s *Store) ListEntriesByStatus(_ context.Context, status entities.LedgerStatus, limit int) ([]entities.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	items := make([]entities.LedgerEntry, 0)
	for _, entry := range s.entries {
		if entry.Status == status {
			items = append(items, entry)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) ListUnreconciledFailed(ctx context.Context, limit int) ([]entities.LedgerEntry, error) {
	failed, err := s.ListEntriesByStatus(ctx, entities.LedgerStatusFailed, limit)
	if err != nil {
		return nil, err
	}
	items := make([]entities.LedgerEntry, 0, len(failed))
	for _, entry := range failed {
		if !entry.Reconciled {
			items = append(items, entry)
		}
	}
	return items, nil
}

func (s *Store) MarkReconciled(_ context.Context, entryID string, reconciledAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[strings.TrimSpace(entryID)]
	if !ok {
		return domainerrors.ErrLedgerEntryNotFound
	}
	entry.Reconciled = true
	entry.UpdatedAt = reconciledAt.UTC()
	s.entries[entry.EntryID] = entry
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		return domainerrors.ErrInvalidPayoutInput
	}
	if _, exists := s.outbox[outboxID]; exists {
		return nil
	}
	s.outbox[outboxID] = outboxRecord{
		Message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    envelope.EventType,
			PartitionKey: envelope.PartitionKey,
			Payload:      payload,
			CreatedAt:    envelope.OccurredAt.UTC(),
		},
		Status: outboxStatusPending,
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0)
	for _, row := range s.outbox {
		if row.Status == outboxStatusPending {
			items = append(items, row.Message)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrLedgerEntryNotFound
	}
	ts := publishedAt.UTC()
	row.Status = outboxStatusPublished
	row.PublishedAt = &ts
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.LedgerRepository = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
