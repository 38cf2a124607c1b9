package application

import (
	"context"
	"log/slog"
	"strconv"

	domainerrors "tidepool/contexts/sale-core/pricing-engine/domain/errors"
	"tidepool/contexts/sale-core/pricing-engine/ports"
	"tidepool/internal/shared/money"
)

// alphaGainRatio is the early-participant uplift shown on contribution
// previews. Display-only; settlement math never reads it.
const alphaGainRatio = 1.20

type SpotQuote struct {
	Raw          float64
	Audit        string
	Display      string
	WaterLevel   float64
	Participants int
}

type Service struct {
	Pool        ports.PoolReader
	FixedSupply float64
	Logger      *slog.Logger
}

// SpotPrice computes fixedSupply / waterLevel. A drained or empty pool
// quotes 0 rather than an error so read surfaces stay total.
func (s Service) SpotPrice(ctx context.Context) (SpotQuote, error) {
	logger := ResolveLogger(s.Logger)
	snapshot, err := s.Pool.PoolSnapshot(ctx)
	if err != nil {
		logger.Error("pricing pool snapshot failed",
			"event", "pricing_pool_snapshot_failed",
			"module", "sale-core/pricing-engine",
			"layer", "application",
			"error", err.Error(),
		)
		return SpotQuote{}, domainerrors.ErrPoolUnreadable
	}

	raw := 0.0
	if snapshot.TotalContributed > 0 {
		raw = s.FixedSupply / snapshot.TotalContributed
	}
	quote := SpotQuote{
		Raw:          raw,
		Audit:        strconv.FormatFloat(money.Normalize(raw), 'f', money.Scale, 64),
		Display:      strconv.FormatFloat(money.Round4(raw), 'f', 4, 64),
		WaterLevel:   money.Normalize(snapshot.TotalContributed),
		Participants: snapshot.Participants,
	}
	logger.Debug("spot price quoted",
		"event", "pricing_spot_price_quoted",
		"module", "sale-core/pricing-engine",
		"layer", "application",
		"water_level", quote.WaterLevel,
		"spot_price", quote.Audit,
	)
	return quote, nil
}

// AlphaGain quotes the uplifted allocation preview for a contribution.
// Non-positive input quotes 0.
func (s Service) AlphaGain(contribution float64) float64 {
	if contribution <= 0 {
		return 0
	}
	return money.Normalize(contribution * alphaGainRatio)
}

func (s Service) WaterLevel(ctx context.Context) (ports.PoolSnapshot, error) {
	snapshot, err := s.Pool.PoolSnapshot(ctx)
	if err != nil {
		ResolveLogger(s.Logger).Error("pricing water level read failed",
			"event", "pricing_water_level_read_failed",
			"module", "sale-core/pricing-engine",
			"layer", "application",
			"error", err.Error(),
		)
		return ports.PoolSnapshot{}, domainerrors.ErrPoolUnreadable
	}
	snapshot.TotalContributed = money.Normalize(snapshot.TotalContributed)
	return snapshot, nil
}
