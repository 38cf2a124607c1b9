package payoutadapter

import (
	"context"

	payoutapp "tidepool/contexts/treasury-core/payout-service/application"
	"tidepool/contexts/treasury-core/payout-service/domain/entities"
	"tidepool/contexts/treasury-core/settlement-engine/ports"
)

// Payer routes trim-back refunds through the payout subsystem so every
// refund lands in the shared ledger with the usual fee handling.
type Payer struct {
	Service payoutapp.Service
}

func (p Payer) PayRefund(ctx context.Context, address string, gross float64, memo string) (string, error) {
	result, err := p.Service.Pay(ctx, payoutapp.PayCommand{
		Address:     address,
		GrossAmount: gross,
		Kind:        entities.LedgerKindRefund,
		Memo:        memo,
	})
	if err != nil {
		return "", err
	}
	return result.Reference, nil
}

var _ ports.RefundPayer = (Payer{})
