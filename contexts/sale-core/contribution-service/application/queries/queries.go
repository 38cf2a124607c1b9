package queries

import (
	"context"
	"strings"

	"tidepool/contexts/sale-core/contribution-service/domain/entities"
	domainerrors "tidepool/contexts/sale-core/contribution-service/domain/errors"
	"tidepool/contexts/sale-core/contribution-service/ports"
	"tidepool/internal/shared/money"
)

type UseCase struct {
	Accounts ports.AccountRepository
}

type AccountView struct {
	Account    entities.Account
	PoolShare  float64
	WaterLevel float64
}

func (uc UseCase) GetAccount(ctx context.Context, address string) (AccountView, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return AccountView{}, domainerrors.ErrInvalidContributionInput
	}
	account, err := uc.Accounts.GetAccount(ctx, address)
	if err != nil {
		return AccountView{}, err
	}
	waterLevel, err := uc.Accounts.SumContributed(ctx)
	if err != nil {
		return AccountView{}, err
	}
	return AccountView{
		Account:    account,
		PoolShare:  money.PercentOf(account.Contributed, waterLevel),
		WaterLevel: money.Normalize(waterLevel),
	}, nil
}

func (uc UseCase) ListAccounts(ctx context.Context, limit int, offset int) ([]entities.Account, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return uc.Accounts.ListAccounts(ctx, limit, offset)
}
