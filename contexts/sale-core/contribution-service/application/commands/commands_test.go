package commands_test

import (
	"context"
	"errors"
	"testing"

	contributionservice "tidepool/contexts/sale-core/contribution-service"
	"tidepool/contexts/sale-core/contribution-service/application/commands"
	domainerrors "tidepool/contexts/sale-core/contribution-service/domain/errors"
)

const fixedSupply = 2181818.0

func TestRecordContributionCreatesAccount(t *testing.T) {
	module := contributionservice.NewInMemoryModule(nil, fixedSupply, 0.10, nil)

	result, err := module.Handler.Commands.RecordContribution(context.Background(), commands.RecordContributionCommand{
		Address:           "wallet-1",
		Amount:            100,
		ExternalReference: "txn-1",
	})
	if err != nil {
		t.Fatalf("record contribution failed: %v", err)
	}
	if result.Account.Contributed != 100 {
		t.Fatalf("expected contributed 100, got %v", result.Account.Contributed)
	}
	if result.Allocated <= 0 {
		t.Fatalf("expected positive allocation, got %v", result.Allocated)
	}
	if result.WaterLevel != 100 {
		t.Fatalf("expected water level 100, got %v", result.WaterLevel)
	}
}

func TestRecordContributionDuplicateReferenceRejected(t *testing.T) {
	module := contributionservice.NewInMemoryModule(nil, fixedSupply, 0.10, nil)

	_, err := module.Handler.Commands.RecordContribution(context.Background(), commands.RecordContributionCommand{
		Address:           "wallet-1",
		Amount:            100,
		ExternalReference: "txn-dup",
	})
	if err != nil {
		t.Fatalf("first contribution failed: %v", err)
	}

	_, err = module.Handler.Commands.RecordContribution(context.Background(), commands.RecordContributionCommand{
		Address:           "wallet-1",
		Amount:            100,
		ExternalReference: "txn-dup",
	})
	if !errors.Is(err, domainerrors.ErrDuplicateContribution) {
		t.Fatalf("expected duplicate contribution conflict, got %v", err)
	}

	view, err := module.Handler.Queries.GetAccount(context.Background(), "wallet-1")
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if view.Account.Contributed != 100 {
		t.Fatalf("duplicate must not change state: contributed %v", view.Account.Contributed)
	}
}

func TestRecordContributionRejectsInvalidInput(t *testing.T) {
	module := contributionservice.NewInMemoryModule(nil, fixedSupply, 0.10, nil)

	cases := []commands.RecordContributionCommand{
		{Address: "", Amount: 10, ExternalReference: "r1"},
		{Address: "wallet-1", Amount: 0, ExternalReference: "r2"},
		{Address: "wallet-1", Amount: -5, ExternalReference: "r3"},
		{Address: "wallet-1", Amount: 10, ExternalReference: ""},
	}
	for _, cmd := range cases {
		if _, err := module.Handler.Commands.RecordContribution(context.Background(), cmd); !errors.Is(err, domainerrors.ErrInvalidContributionInput) {
			t.Fatalf("expected invalid input for %+v, got %v", cmd, err)
		}
	}
}

func TestWhaleBoundaryIsStrict(t *testing.T) {
	module := contributionservice.NewInMemoryModule(nil, fixedSupply, 0.10, nil)

	// Exactly 10% of the pool after both contributions: 1000 of 10000.
	if _, err := module.Handler.Commands.RecordContribution(context.Background(), commands.RecordContributionCommand{
		Address:           "wallet-rest",
		Amount:            9000,
		ExternalReference: "txn-rest",
	}); err != nil {
		t.Fatalf("seed contribution failed: %v", err)
	}
	result, err := module.Handler.Commands.RecordContribution(context.Background(), commands.RecordContributionCommand{
		Address:           "wallet-edge",
		Amount:            1000,
		ExternalReference: "txn-edge",
	})
	if err != nil {
		t.Fatalf("edge contribution failed: %v", err)
	}
	if result.Account.IsWhale {
		t.Fatalf("account at exactly 10%% share must not be flagged")
	}
	if result.WhaleShare != 10 {
		t.Fatalf("expected 10%% share, got %v", result.WhaleShare)
	}
}
