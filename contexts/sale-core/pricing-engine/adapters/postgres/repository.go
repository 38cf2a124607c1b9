package postgresadapter

import (
	"context"
	"log/slog"

	"tidepool/contexts/sale-core/pricing-engine/ports"

	"gorm.io/gorm"
)

// Repository reads the water-level aggregation off the accounts table owned
// by the contribution service.
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

func (r *Repository) PoolSnapshot(ctx context.Context) (ports.PoolSnapshot, error) {
	var row struct {
		Total        float64
		Participants int
	}
	if err := r.db.WithContext(ctx).
		Model(&accountProjectionModel{}).
		Select("COALESCE(SUM(contributed), 0) AS total, COUNT(*) FILTER (WHERE contributed > 0) AS participants").
		Scan(&row).Error; err != nil {
		r.logger.Error("pricing pool aggregation failed",
			"event", "pricing_repo_pool_aggregation_failed",
			"module", "sale-core/pricing-engine",
			"layer", "adapter",
			"error", err.Error(),
		)
		return ports.PoolSnapshot{}, err
	}
	return ports.PoolSnapshot{
		TotalContributed: row.Total,
		Participants:     row.Participants,
	}, nil
}

type accountProjectionModel struct {
	Address     string  `gorm:"column:address;primaryKey"`
	Contributed float64 `gorm:"column:contributed"`
}

func (accountProjectionModel) TableName() string {
	return "accounts"
}

var _ ports.PoolReader = (*Repository)(nil)
