package payoutadapter

import (
	"context"

	"tidepool/contexts/treasury-core/dividend-engine/ports"
	payoutapp "tidepool/contexts/treasury-core/payout-service/application"
	"tidepool/contexts/treasury-core/payout-service/domain/entities"
)

// Payer routes dividend shares through the payout subsystem so every
// distribution lands in the shared ledger with the usual fee handling.
type Payer struct {
	Service payoutapp.Service
}

func (p Payer) PayDividend(ctx context.Context, address string, gross float64, memo string) (string, error) {
	result, err := p.Service.Pay(ctx, payoutapp.PayCommand{
		Address:     address,
		GrossAmount: gross,
		Kind:        entities.LedgerKindDividend,
		Memo:        memo,
	})
	if err != nil {
		return "", err
	}
	return result.Reference, nil
}

var _ ports.DividendPayer = (Payer{})
