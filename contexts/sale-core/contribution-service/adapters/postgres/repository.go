package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"tidepool/contexts/sale-core/contribution-service/domain/entities"
	domainerrors "tidepool/contexts/sale-core/contribution-service/domain/errors"
	"tidepool/contexts/sale-core/contribution-service/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	ledgerKindContribution = "CONTRIBUTION"
	ledgerStatusCompleted  = "COMPLETED"
	outboxStatusPending    = "pending"
	outboxStatusPublished  = "published"
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

func (r *Repository) GetAccount(ctx context.Context, address string) (entities.Account, error) {
	var row accountModel
	err := r.db.WithContext(ctx).
		Where("address = ?", strings.TrimSpace(address)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.Account{}, domainerrors.ErrAccountNotFound
	}
	if err != nil {
		return entities.Account{}, r.logError("contribution_repo_get_account_failed", err,
			"address", strings.TrimSpace(address),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) UpsertAccount(ctx context.Context, account entities.Account) error {
	if strings.TrimSpace(account.Address) == "" {
		r.logWarn("contribution_repo_upsert_account_invalid_input")
		return domainerrors.ErrInvalidContributionInput
	}
	account.ClampReleased()
	row := accountModelFromEntity(account)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			UpdateAll: true,
		}).
		Create(&row).Error; err != nil {
		return r.logError("contribution_repo_upsert_account_failed", err,
			"address", row.Address,
		)
	}
	return nil
}

func (r *Repository) ListAccounts(ctx context.Context, limit int, offset int) ([]entities.Account, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var rows []accountModel
	if err := r.db.WithContext(ctx).
		Order("address ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, r.logError("contribution_repo_list_accounts_failed", err,
			"limit", limit,
			"offset", offset,
		)
	}
	items := make([]entities.Account, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) SumContributed(ctx context.Context) (float64, error) {
	var total float64
	if err := r.db.WithContext(ctx).
		Model(&accountModel{}).
		Select("COALESCE(SUM(contributed), 0)").
		Scan(&total).Error; err != nil {
		return 0, r.logError("contribution_repo_sum_contributed_failed", err)
	}
	return total, nil
}

func (r *Repository) SumAllocated(ctx context.Context) (float64, error) {
	var total float64
	if err := r.db.WithContext(ctx).
		Model(&accountModel{}).
		Select("COALESCE(SUM(allocated), 0)").
		Scan(&total).Error; err != nil {
		return 0, r.logError("contribution_repo_sum_allocated_failed", err)
	}
	return total, nil
}

func (r *Repository) RecordContribution(ctx context.Context, record ports.ContributionRecord) error {
	if strings.TrimSpace(record.ExternalReference) == "" || strings.TrimSpace(record.Address) == "" {
		r.logWarn("contribution_repo_record_invalid_input",
			"address", strings.TrimSpace(record.Address),
		)
		return domainerrors.ErrInvalidContributionInput
	}
	row := ledgerEntryModel{
		EntryID:           strings.TrimSpace(record.EntryID),
		Address:           strings.TrimSpace(record.Address),
		Amount:            record.Amount,
		Kind:              ledgerKindContribution,
		Status:            ledgerStatusCompleted,
		ExternalReference: strings.TrimSpace(record.ExternalReference),
		Memo:              strings.TrimSpace(record.Memo),
		CreatedAt:         record.ReceivedAt.UTC(),
		UpdatedAt:         record.ReceivedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			r.logWarn("contribution_repo_record_duplicate_reference",
				"address", row.Address,
				"external_reference", row.ExternalReference,
			)
			return domainerrors.ErrDuplicateContribution
		}
		return r.logError("contribution_repo_record_failed", err,
			"address", row.Address,
			"external_reference", row.ExternalReference,
		)
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := envelopePayload(envelope)
	if err != nil {
		return r.logError("contribution_repo_outbox_marshal_failed", err,
			"event_id", envelope.EventID,
		)
	}
	row := saleOutboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		return domainerrors.ErrInvalidContributionInput
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return r.logError("contribution_repo_outbox_append_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []saleOutboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("contribution_repo_list_pending_outbox_failed", err,
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
		Model(&saleOutboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("contribution_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+7)
	fields = append(fields,
		"event", event,
		"module", "sale-core/contribution-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("contribution repository operation failed", fields...)
	return err
}

func (r *Repository) logWarn(event string, attrs ...any) {
	fields := make([]any, 0, len(attrs)+5)
	fields = append(fields,
		"event", event,
		"module", "sale-core/contribution-service",
		"layer", "adapter",
	)
	fields = append(fields, attrs...)
	r.logger.Warn("contribution repository warning", fields...)
}

type accountModel struct {
	Address            string     `gorm:"column:address;primaryKey"`
	Contributed        float64    `gorm:"column:contributed"`
	Allocated          float64    `gorm:"column:allocated"`
	Released           float64    `gorm:"column:released"`
	TranchesCompleted  int        `gorm:"column:tranches_completed"`
	IsWhale            bool       `gorm:"column:is_whale"`
	LastContributionAt time.Time  `gorm:"column:last_contribution_at"`
	LastSettlementAt   *time.Time `gorm:"column:last_settlement_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at"`
}

func (accountModel) TableName() string {
	return "accounts"
}

func accountModelFromEntity(account entities.Account) accountModel {
	return accountModel{
		Address:            strings.TrimSpace(account.Address),
		Contributed:        account.Contributed,
		Allocated:          account.Allocated,
		Released:           account.Released,
		TranchesCompleted:  account.TranchesCompleted,
		IsWhale:            account.IsWhale,
		LastContributionAt: account.LastContributionAt.UTC(),
		LastSettlementAt:   normalizeOptionalTime(account.LastSettlementAt),
		UpdatedAt:          account.UpdatedAt.UTC(),
	}
}

func (m accountModel) toEntity() entities.Account {
	return entities.Account{
		Address:            m.Address,
		Contributed:        m.Contributed,
		Allocated:          m.Allocated,
		Released:           m.Released,
		TranchesCompleted:  m.TranchesCompleted,
		IsWhale:            m.IsWhale,
		LastContributionAt: m.LastContributionAt.UTC(),
		LastSettlementAt:   normalizeOptionalTime(m.LastSettlementAt),
		UpdatedAt:          m.UpdatedAt.UTC(),
	}
}

// ledgerEntryModel maps the shared ledger_entries table owned by the
// treasury payout service. Contribution rows are created COMPLETED.
type ledgerEntryModel struct {
	EntryID           string    `gorm:"column:entry_id;primaryKey"`
	Address           string    `gorm:"column:address"`
	Amount            float64   `gorm:"column:amount"`
	Kind              string    `gorm:"column:kind"`
	Status            string    `gorm:"column:status"`
	ExternalReference string    `gorm:"column:external_reference"`
	Memo              string    `gorm:"column:memo"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (ledgerEntryModel) TableName() string {
	return "ledger_entries"
}

type saleOutboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (saleOutboxModel) TableName() string {
	return "sale_outbox"
}

func envelopePayload(envelope ports.EventEnvelope) ([]byte, error) {
	return json.Marshal(envelope)
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	t := value.UTC()
	return &t
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.AccountRepository = (*Repository)(nil)
var _ ports.ContributionLedger = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
