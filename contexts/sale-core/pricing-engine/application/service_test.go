package application

import (
	"context"
	"errors"
	"testing"

	domainerrors "tidepool/contexts/sale-core/pricing-engine/domain/errors"
	"tidepool/contexts/sale-core/pricing-engine/ports"
)

type stubPool struct {
	snapshot ports.PoolSnapshot
	err      error
}

func (p stubPool) PoolSnapshot(_ context.Context) (ports.PoolSnapshot, error) {
	return p.snapshot, p.err
}

func TestSpotPriceDecreasesWithPoolSize(t *testing.T) {
	service := Service{FixedSupply: 2181818}

	service.Pool = stubPool{snapshot: ports.PoolSnapshot{TotalContributed: 100000, Participants: 10}}
	small, err := service.SpotPrice(context.Background())
	if err != nil {
		t.Fatalf("spot price failed: %v", err)
	}

	service.Pool = stubPool{snapshot: ports.PoolSnapshot{TotalContributed: 200000, Participants: 20}}
	large, err := service.SpotPrice(context.Background())
	if err != nil {
		t.Fatalf("spot price failed: %v", err)
	}

	if large.Raw >= small.Raw {
		t.Fatalf("expected spot price to decrease with pool size: %v >= %v", large.Raw, small.Raw)
	}
}

func TestSpotPriceZeroPool(t *testing.T) {
	service := Service{
		FixedSupply: 2181818,
		Pool:        stubPool{snapshot: ports.PoolSnapshot{}},
	}
	quote, err := service.SpotPrice(context.Background())
	if err != nil {
		t.Fatalf("spot price failed: %v", err)
	}
	if quote.Raw != 0 {
		t.Fatalf("expected 0 spot price for empty pool, got %v", quote.Raw)
	}
	if quote.Audit != "0.000000" {
		t.Fatalf("expected audit format 0.000000, got %q", quote.Audit)
	}
	if quote.Display != "0.0000" {
		t.Fatalf("expected display format 0.0000, got %q", quote.Display)
	}
}

func TestSpotPriceFormatsDeriveFromSameValue(t *testing.T) {
	service := Service{
		FixedSupply: 2181818,
		Pool:        stubPool{snapshot: ports.PoolSnapshot{TotalContributed: 300000, Participants: 3}},
	}
	quote, err := service.SpotPrice(context.Background())
	if err != nil {
		t.Fatalf("spot price failed: %v", err)
	}
	if quote.Audit != "7.272727" {
		t.Fatalf("expected audit 7.272727, got %q", quote.Audit)
	}
	if quote.Display != "7.2727" {
		t.Fatalf("expected display 7.2727, got %q", quote.Display)
	}
}

func TestSpotPricePoolFailureSurfaced(t *testing.T) {
	service := Service{
		FixedSupply: 2181818,
		Pool:        stubPool{err: errors.New("store unreachable")},
	}
	if _, err := service.SpotPrice(context.Background()); !errors.Is(err, domainerrors.ErrPoolUnreadable) {
		t.Fatalf("expected pool unreadable error, got %v", err)
	}
}

func TestAlphaGain(t *testing.T) {
	service := Service{FixedSupply: 2181818}
	if got := service.AlphaGain(100); got != 120 {
		t.Fatalf("expected 120, got %v", got)
	}
	if got := service.AlphaGain(0); got != 0 {
		t.Fatalf("expected 0 for zero contribution, got %v", got)
	}
	if got := service.AlphaGain(-5); got != 0 {
		t.Fatalf("expected 0 for negative contribution, got %v", got)
	}
}
