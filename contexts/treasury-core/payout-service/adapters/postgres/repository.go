package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"tidepool/contexts/treasury-core/payout-service/domain/entities"
	domainerrors "tidepool/contexts/treasury-core/payout-service/domain/errors"
	"tidepool/contexts/treasury-core/payout-service/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateEntry(ctx context.Context, entry entities.LedgerEntry) error {
	if strings.TrimSpace(entry.EntryID) == "" || strings.TrimSpace(entry.Address) == "" {
		r.logWarn("payout_repo_create_entry_invalid_input",
			"entry_id", strings.TrimSpace(entry.EntryID),
		)
		return domainerrors.ErrInvalidPayoutInput
	}
	row := ledgerEntryModelFromEntity(entry)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			r.logWarn("payout_repo_create_entry_conflict",
				"entry_id", row.EntryID,
			)
			return domainerrors.ErrInvalidPayoutInput
		}
		return r.logError("payout_repo_create_entry_failed", err,
			"entry_id", row.EntryID,
			"address", row.Address,
		)
	}
	return nil
}

func (r *Repository) MarkCompleted(ctx context.Context, entryID string, externalReference string, completedAt time.Time) error {
	return r.transition(ctx, entryID, map[string]any{
		"status":             string(entities.LedgerStatusCompleted),
		"external_reference": strings.TrimSpace(externalReference),
		"updated_at":         completedAt.UTC(),
	})
}

func (r *Repository) MarkFailed(ctx context.Context, entryID string, reason string, failedAt time.Time) error {
	updates := map[string]any{
		"status":     string(entities.LedgerStatusFailed),
		"updated_at": failedAt.UTC(),
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		updates["memo"] = gorm.Expr("memo || ?", " | failure: "+reason)
	}
	return r.transition(ctx, entryID, updates)
}

// transition only touches PENDING rows; terminal entries stay frozen.
func (r *Repository) transition(ctx context.Context, entryID string, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&ledgerEntryModel{}).
		Where("entry_id = ?", strings.TrimSpace(entryID)).
		Where("status = ?", string(entities.LedgerStatusPending)).
		Updates(updates)
	if result.Error != nil {
		return r.logError("payout_repo_transition_failed", result.Error,
			"entry_id", strings.TrimSpace(entryID),
		)
	}
	if result.RowsAffected == 0 {
		var exists int64
		if err := r.db.WithContext(ctx).
			Model(&ledgerEntryModel{}).
			Where("entry_id = ?", strings.TrimSpace(entryID)).
			Count(&exists).Error; err != nil {
			return r.logError("payout_repo_transition_lookup_failed", err,
				"entry_id", strings.TrimSpace(entryID),
			)
		}
		if exists == 0 {
			return domainerrors.ErrLedgerEntryNotFound
		}
		r.logWarn("payout_repo_transition_terminal_entry",
			"entry_id", strings.TrimSpace(entryID),
		)
		return domainerrors.ErrLedgerEntryTerminal
	}
	return nil
}

func (r *Repository) GetEntry(ctx context.Context, entryID string) (entities.LedgerEntry, error) {
	var row ledgerEntryModel
	err := r.db.WithContext(ctx).
		Where("entry_id = ?", strings.TrimSpace(entryID)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.LedgerEntry{}, domainerrors.ErrLedgerEntryNotFound
	}
	if err != nil {
		return entities.LedgerEntry{}, r.logError("payout_repo_get_entry_failed", err,
			"entry_id", strings.TrimSpace(entryID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListEntriesByAddress(ctx context.Context, address string, limit int, offset int) ([]entities.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var rows []ledgerEntryModel
	if err := r.db.WithContext(ctx).
		Where("address = ?", strings.TrimSpace(address)).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, r.logError("payout_repo_list_by_address_failed", err,
			"address", strings.TrimSpace(address),
		)
	}
	return toEntities(rows), nil
}

func (r *Repository) ListEntriesByStatus(ctx context.Context, status entities.LedgerStatus, limit int) ([]entities.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []ledgerEntryModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("payout_repo_list_by_status_failed", err,
			"status", string(status),
		)
	}
	return toEntities(rows), nil
}

func (r *Repository) ListUnreconciledFailed(ctx context.Context, limit int) ([]entities.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []ledgerEntryModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(entities.LedgerStatusFailed)).
		Where("reconciled = ?", false).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("payout_repo_list_unreconciled_failed", err)
	}
	return toEntities(rows), nil
}

func (r *Repository) MarkReconciled(ctx context.Context, entryID string, reconciledAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&ledgerEntryModel{}).
		Where("entry_id = ?", strings.TrimSpace(entryID)).
		Updates(map[string]any{
			"reconciled": true,
			"updated_at": reconciledAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("payout_repo_mark_reconciled_failed", result.Error,
			"entry_id", strings.TrimSpace(entryID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrLedgerEntryNotFound
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("payout_repo_outbox_marshal_failed", err,
			"event_id", envelope.EventID,
		)
	}
	row := treasuryOutboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		return domainerrors.ErrInvalidPayoutInput
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return r.logError("payout_repo_outbox_append_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []treasuryOutboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("payout_repo_list_pending_outbox_failed", err,
			"limit", limit,
		)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&treasuryOutboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("payout_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrLedgerEntryNotFound
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+7)
	fields = append(fields,
		"event", event,
		"module", "treasury-core/payout-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("payout repository operation failed", fields...)
	return err
}

func (r *Repository) logWarn(event string, attrs ...any) {
	fields := make([]any, 0, len(attrs)+5)
	fields = append(fields,
		"event", event,
		"module", "treasury-core/payout-service",
		"layer", "adapter",
	)
	fields = append(fields, attrs...)
	r.logger.Warn("payout repository warning", fields...)
}

type ledgerEntryModel struct {
	EntryID           string    `gorm:"column:entry_id;primaryKey"`
	Address           string    `gorm:"column:address"`
	Amount            float64   `gorm:"column:amount"`
	Kind              string    `gorm:"column:kind"`
	Status            string    `gorm:"column:status"`
	ExternalReference string    `gorm:"column:external_reference"`
	Memo              string    `gorm:"column:memo"`
	Reconciled        bool      `gorm:"column:reconciled"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (ledgerEntryModel) TableName() string {
	return "ledger_entries"
}

func ledgerEntryModelFromEntity(entry entities.LedgerEntry) ledgerEntryModel {
	return ledgerEntryModel{
		EntryID:           strings.TrimSpace(entry.EntryID),
		Address:           strings.TrimSpace(entry.Address),
		Amount:            entry.Amount,
		Kind:              string(entry.Kind),
		Status:            string(entry.Status),
		ExternalReference: strings.TrimSpace(entry.ExternalReference),
		Memo:              strings.TrimSpace(entry.Memo),
		Reconciled:        entry.Reconciled,
		CreatedAt:         entry.CreatedAt.UTC(),
		UpdatedAt:         entry.UpdatedAt.UTC(),
	}
}

func (m ledgerEntryModel) toEntity() entities.LedgerEntry {
	return entities.LedgerEntry{
		EntryID:           m.EntryID,
		Address:           m.Address,
		Amount:            m.Amount,
		Kind:              entities.LedgerKind(m.Kind),
		Status:            entities.LedgerStatus(m.Status),
		ExternalReference: m.ExternalReference,
		Memo:              m.Memo,
		Reconciled:        m.Reconciled,
		CreatedAt:         m.CreatedAt.UTC(),
		UpdatedAt:         m.UpdatedAt.UTC(),
	}
}

func toEntities(rows []ledgerEntryModel) []entities.LedgerEntry {
	items := make([]entities.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

type treasuryOutboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (treasuryOutboxModel) TableName() string {
	return "treasury_outbox"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.LedgerRepository = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
