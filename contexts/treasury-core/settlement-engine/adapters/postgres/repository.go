package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainerrors "tidepool/contexts/treasury-core/settlement-engine/domain/errors"
	"tidepool/contexts/treasury-core/settlement-engine/ports"
)

const outboxStatusPending = "pending"

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

func (r *Repository) SumContributed(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&accountProjectionModel{}).
		Select("COALESCE(SUM(contributed), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, r.logError("settlement_repo_sum_contributed_failed", err)
	}
	return total, nil
}

func (r *Repository) ListContributedAbove(ctx context.Context, threshold float64) ([]ports.Account, error) {
	var rows []accountProjectionModel
	err := r.db.WithContext(ctx).
		Where("contributed > ?", threshold).
		Order("address ASC").
		Find(&rows).Error
	if err != nil {
		return nil, r.logError("settlement_repo_list_above_failed", err,
			"threshold", threshold,
		)
	}
	accounts := make([]ports.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, ports.Account{
			Address:     row.Address,
			Contributed: row.Contributed,
		})
	}
	return accounts, nil
}

func (r *Repository) ApplyTrimBack(ctx context.Context, address string, newContributed float64, settledAt time.Time) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return domainerrors.ErrInvalidSettlementInput
	}
	result := r.db.WithContext(ctx).
		Model(&accountProjectionModel{}).
		Where("address = ?", address).
		Updates(map[string]any{
			"contributed":        newContributed,
			"is_whale":           true,
			"last_settlement_at": settledAt.UTC(),
			"updated_at":         settledAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("settlement_repo_trimback_failed", result.Error,
			"address", address,
		)
	}
	if result.RowsAffected == 0 {
		r.logWarn("settlement_repo_trimback_missing_account",
			"address", address,
		)
	}
	return nil
}

func (r *Repository) ClearWhaleFlagsAtOrBelow(ctx context.Context, threshold float64, clearedAt time.Time) (int, error) {
	result := r.db.WithContext(ctx).
		Model(&accountProjectionModel{}).
		Where("is_whale = ?", true).
		Where("contributed <= ?", threshold).
		Updates(map[string]any{
			"is_whale":   false,
			"updated_at": clearedAt.UTC(),
		})
	if result.Error != nil {
		return 0, r.logError("settlement_repo_whale_flag_clear_failed", result.Error,
			"threshold", threshold,
		)
	}
	return int(result.RowsAffected), nil
}

// AcquireRunLock takes the named lock unless another owner holds an
// unexpired lease. Expired leases are stolen in the same statement so a
// crashed run cannot wedge the engine.
func (r *Repository) AcquireRunLock(ctx context.Context, name string, owner string, lease time.Duration) (bool, error) {
	now := time.Now().UTC()
	row := runLockModel{
		Name:      strings.TrimSpace(name),
		Owner:     strings.TrimSpace(owner),
		ExpiresAt: now.Add(lease),
		UpdatedAt: now,
	}
	if row.Name == "" || row.Owner == "" {
		return false, domainerrors.ErrInvalidSettlementInput
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.Assignments(map[string]any{
				"owner":      row.Owner,
				"expires_at": row.ExpiresAt,
				"updated_at": row.UpdatedAt,
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				gorm.Expr("engine_run_locks.expires_at <= ?", now),
			}},
		}).
		Create(&row)
	if result.Error != nil {
		return false, r.logError("settlement_repo_lock_acquire_failed", result.Error,
			"lock", row.Name,
		)
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) ReleaseRunLock(ctx context.Context, name string, owner string) error {
	result := r.db.WithContext(ctx).
		Where("name = ?", strings.TrimSpace(name)).
		Where("owner = ?", strings.TrimSpace(owner)).
		Delete(&runLockModel{})
	if result.Error != nil {
		return r.logError("settlement_repo_lock_release_failed", result.Error,
			"lock", strings.TrimSpace(name),
		)
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("settlement_repo_outbox_marshal_failed", err,
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
		return domainerrors.ErrInvalidSettlementInput
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return r.logError("settlement_repo_outbox_append_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+7)
	fields = append(fields,
		"event", event,
		"module", "treasury-core/settlement-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("settlement repository operation failed", fields...)
	return err
}

func (r *Repository) logWarn(event string, attrs ...any) {
	fields := make([]any, 0, len(attrs)+5)
	fields = append(fields,
		"event", event,
		"module", "treasury-core/settlement-engine",
		"layer", "adapter",
	)
	fields = append(fields, attrs...)
	r.logger.Warn("settlement repository warning", fields...)
}

// accountProjectionModel reads the accounts table owned by the
// contribution service; this engine only touches the settlement columns.
type accountProjectionModel struct {
	Address          string     `gorm:"column:address;primaryKey"`
	Contributed      float64    `gorm:"column:contributed"`
	IsWhale          bool       `gorm:"column:is_whale"`
	LastSettlementAt *time.Time `gorm:"column:last_settlement_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

func (accountProjectionModel) TableName() string {
	return "accounts"
}

type runLockModel struct {
	Name      string    `gorm:"column:name;primaryKey"`
	Owner     string    `gorm:"column:owner"`
	ExpiresAt time.Time `gorm:"column:expires_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (runLockModel) TableName() string {
	return "engine_run_locks"
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

var _ ports.AccountStore = (*Repository)(nil)
var _ ports.RunLockStore = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
