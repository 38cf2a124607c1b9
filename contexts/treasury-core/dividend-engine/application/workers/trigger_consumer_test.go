package workers_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"tidepool/contexts/treasury-core/dividend-engine/adapters/memory"
	"tidepool/contexts/treasury-core/dividend-engine/application/commands"
	"tidepool/contexts/treasury-core/dividend-engine/application/workers"
	"tidepool/contexts/treasury-core/dividend-engine/ports"
)

type recordingPayer struct {
	dividends map[string]float64
}

func (p *recordingPayer) PayDividend(_ context.Context, address string, gross float64, _ string) (string, error) {
	p.dividends[address] = gross
	return "ref-" + address, nil
}

func newConsumer(store *memory.Store, payer *recordingPayer) workers.TriggerConsumer {
	return workers.TriggerConsumer{
		UseCase: commands.UseCase{
			Accounts:    store,
			Payer:       payer,
			RunLock:     store,
			Outbox:      store,
			Clock:       store,
			IDGen:       store,
			FixedSupply: 1000000,
		},
	}
}

func triggerEvent(t *testing.T, eventType string, totalPot float64) ports.EventEnvelope {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"total_pot":    totalPot,
		"triggered_by": "treasury-ops",
	})
	if err != nil {
		t.Fatalf("marshal trigger payload: %v", err)
	}
	return ports.EventEnvelope{
		EventID:    "evt-1",
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

func TestHandleTriggerRunsDistribution(t *testing.T) {
	store := memory.NewStore()
	payer := &recordingPayer{dividends: make(map[string]float64)}
	store.Seed("pioneer-1", 500, 10000)

	event := triggerEvent(t, "dividend.distribution.requested", 10000)
	if err := newConsumer(store, payer).HandleTrigger(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := payer.dividends["pioneer-1"]; got != 100 {
		t.Fatalf("expected share 100, got %v", got)
	}
}

func TestHandleTriggerIgnoresOtherEventTypes(t *testing.T) {
	store := memory.NewStore()
	payer := &recordingPayer{dividends: make(map[string]float64)}
	store.Seed("pioneer-1", 500, 10000)

	event := triggerEvent(t, "dividend.distribution.completed", 10000)
	if err := newConsumer(store, payer).HandleTrigger(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payer.dividends) != 0 {
		t.Fatalf("unrelated event types must not trigger a distribution")
	}
}

func TestHandleTriggerToleratesConcurrentRun(t *testing.T) {
	store := memory.NewStore()
	payer := &recordingPayer{dividends: make(map[string]float64)}
	store.Seed("pioneer-1", 500, 10000)

	held, err := store.AcquireRunLock(context.Background(), "dividend", "other-run", time.Minute)
	if err != nil || !held {
		t.Fatalf("failed to pre-hold run lock: held=%v err=%v", held, err)
	}

	event := triggerEvent(t, "dividend.distribution.requested", 10000)
	if err := newConsumer(store, payer).HandleTrigger(context.Background(), event); err != nil {
		t.Fatalf("a run already in progress must not surface as a consumer error: %v", err)
	}
	if len(payer.dividends) != 0 {
		t.Fatalf("no dividend may be paid while another run holds the lock")
	}
}
