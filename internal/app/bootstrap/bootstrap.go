package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	contributionservice "tidepool/contexts/sale-core/contribution-service"
	contributionpostgres "tidepool/contexts/sale-core/contribution-service/adapters/postgres"
	contributionworkers "tidepool/contexts/sale-core/contribution-service/application/workers"
	pricingengine "tidepool/contexts/sale-core/pricing-engine"
	pricingpostgres "tidepool/contexts/sale-core/pricing-engine/adapters/postgres"
	dividendengine "tidepool/contexts/treasury-core/dividend-engine"
	dividendpayout "tidepool/contexts/treasury-core/dividend-engine/adapters/payout"
	dividendpostgres "tidepool/contexts/treasury-core/dividend-engine/adapters/postgres"
	dividendworkers "tidepool/contexts/treasury-core/dividend-engine/application/workers"
	payoutservice "tidepool/contexts/treasury-core/payout-service"
	a2uadapter "tidepool/contexts/treasury-core/payout-service/adapters/a2u"
	payoutpostgres "tidepool/contexts/treasury-core/payout-service/adapters/postgres"
	payoutworkers "tidepool/contexts/treasury-core/payout-service/application/workers"
	settlementengine "tidepool/contexts/treasury-core/settlement-engine"
	settlementpayout "tidepool/contexts/treasury-core/settlement-engine/adapters/payout"
	settlementpostgres "tidepool/contexts/treasury-core/settlement-engine/adapters/postgres"
	settlementworkers "tidepool/contexts/treasury-core/settlement-engine/application/workers"
	vestingengine "tidepool/contexts/treasury-core/vesting-engine"
	vestingpayout "tidepool/contexts/treasury-core/vesting-engine/adapters/payout"
	vestingpostgres "tidepool/contexts/treasury-core/vesting-engine/adapters/postgres"
	vestingworkers "tidepool/contexts/treasury-core/vesting-engine/application/workers"
	"tidepool/internal/platform/config"
	"tidepool/internal/platform/db"
	"tidepool/internal/platform/httpserver"
	"tidepool/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	cfg            config.Config
	postgres       *db.Postgres
	kafka          *messaging.Kafka
	saleRelay      contributionworkers.OutboxRelay
	treasuryRelay  payoutworkers.OutboxRelay
	reconciliation payoutworkers.ReconciliationJob
	settlementJob  *settlementworkers.SettlementJob
	vestingJob     *vestingworkers.VestingJob
	dividends      dividendworkers.TriggerConsumer
	pollInterval   time.Duration
	logger         *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	modules := buildModules(cfg, pg, logger)
	server := httpserver.New(
		modules.pricing,
		modules.contributions,
		modules.payouts,
		modules.settlement,
		modules.vesting,
		modules.dividends,
		logger,
		normalizeAddr(cfg.HTTPPort),
	)
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	modules := buildModules(cfg, pg, logger)
	contributionRepo := contributionpostgres.NewRepository(pg.DB, logger)
	payoutRepo := payoutpostgres.NewRepository(pg.DB, logger)

	return &WorkerApp{
		cfg:      cfg,
		postgres: pg,
		kafka:    kafka,
		saleRelay: contributionworkers.OutboxRelay{
			Outbox:    contributionRepo,
			Publisher: kafka,
			Clock:     contributionpostgres.SystemClock{},
			Topic:     "sale.events",
			BatchSize: 100,
			Logger:    logger,
		},
		treasuryRelay: payoutworkers.OutboxRelay{
			Outbox:    payoutRepo,
			Publisher: kafka,
			Clock:     payoutpostgres.SystemClock{},
			Topic:     "treasury.events",
			BatchSize: 100,
			Logger:    logger,
		},
		reconciliation: payoutworkers.ReconciliationJob{
			Ledger:    payoutRepo,
			Outbox:    payoutRepo,
			Clock:     payoutpostgres.SystemClock{},
			IDGen:     payoutpostgres.UUIDGenerator{},
			BatchSize: 100,
			Logger:    logger,
		},
		settlementJob: &settlementworkers.SettlementJob{
			UseCase:     modules.settlement.UseCase,
			SaleCloseAt: cfg.SaleCloseAt,
			Logger:      logger,
		},
		vestingJob: &vestingworkers.VestingJob{
			UseCase:  modules.vesting.UseCase,
			Interval: cfg.VestingInterval,
			Logger:   logger,
		},
		dividends:    modules.dividends.Consumer,
		pollInterval: 2 * time.Second,
		logger:       logger,
	}, nil
}

type moduleSet struct {
	pricing       pricingengine.Module
	contributions contributionservice.Module
	payouts       payoutservice.Module
	settlement    settlementengine.Module
	vesting       vestingengine.Module
	dividends     dividendengine.Module
}

func buildModules(cfg config.Config, pg *db.Postgres, logger *slog.Logger) moduleSet {
	pricingRepo := pricingpostgres.NewRepository(pg.DB, logger)
	pricing := pricingengine.NewModule(pricingengine.Dependencies{
		Pool:        pricingRepo,
		FixedSupply: cfg.FixedSupply,
		Logger:      logger,
	})

	contributionRepo := contributionpostgres.NewRepository(pg.DB, logger)
	contributions := contributionservice.NewModule(contributionservice.Dependencies{
		Accounts:    contributionRepo,
		Ledger:      contributionRepo,
		Outbox:      contributionRepo,
		Clock:       contributionpostgres.SystemClock{},
		IDGen:       contributionpostgres.UUIDGenerator{},
		FixedSupply: cfg.FixedSupply,
		WhaleRatio:  cfg.WhaleRatio,
		Logger:      logger,
	})

	payoutRepo := payoutpostgres.NewRepository(pg.DB, logger)
	gateway := a2uadapter.NewGateway(
		cfg.PaymentAPIBaseURL,
		cfg.PaymentAPIKey,
		cfg.PaymentAPITimeout,
		logger,
	)
	payouts := payoutservice.NewModule(payoutservice.Dependencies{
		Ledger:     payoutRepo,
		Gateway:    gateway,
		Clock:      payoutpostgres.SystemClock{},
		IDGen:      payoutpostgres.UUIDGenerator{},
		NetworkFee: cfg.NetworkFee,
		Logger:     logger,
	})

	settlementRepo := settlementpostgres.NewRepository(pg.DB, logger)
	settlement := settlementengine.NewModule(settlementengine.Dependencies{
		Accounts:   settlementRepo,
		Payer:      settlementpayout.Payer{Service: payouts.Service},
		RunLock:    settlementRepo,
		Outbox:     settlementRepo,
		Clock:      settlementpostgres.SystemClock{},
		IDGen:      settlementpostgres.UUIDGenerator{},
		WhaleRatio: cfg.WhaleRatio,
		RunLease:   cfg.RunLockLease,
		Logger:     logger,
	})

	vestingRepo := vestingpostgres.NewRepository(pg.DB, logger)
	vesting := vestingengine.NewModule(vestingengine.Dependencies{
		Accounts:     vestingRepo,
		Payer:        vestingpayout.Payer{Service: payouts.Service},
		RunLock:      vestingRepo,
		Outbox:       vestingRepo,
		Clock:        vestingpostgres.SystemClock{},
		IDGen:        vestingpostgres.UUIDGenerator{},
		TrancheRatio: cfg.TrancheRatio,
		RunLease:     cfg.RunLockLease,
		Logger:       logger,
	})

	dividendRepo := dividendpostgres.NewRepository(pg.DB, logger)
	dividends := dividendengine.NewModule(dividendengine.Dependencies{
		Accounts:     dividendRepo,
		Payer:        dividendpayout.Payer{Service: payouts.Service},
		RunLock:      dividendRepo,
		Outbox:       dividendRepo,
		Clock:        dividendpostgres.SystemClock{},
		IDGen:        dividendpostgres.UUIDGenerator{},
		FixedSupply:  cfg.FixedSupply,
		CeilingRatio: cfg.CeilingRatio,
		RunLease:     cfg.RunLockLease,
		Logger:       logger,
	})

	return moduleSet{
		pricing:       pricing,
		contributions: contributions,
		payouts:       payouts,
		settlement:    settlement,
		vesting:       vesting,
		dividends:     dividends,
	}
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if w.cfg.EnableDividendConsumer {
		err := w.kafka.Subscribe(
			ctx,
			dividendworkers.TriggerTopic,
			"dividend-engine-cg",
			w.dividends.HandleTrigger,
		)
		if err != nil {
			return err
		}
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if w.cfg.EnableSettlementJob {
			w.runStep(ctx, "settlement_job", w.settlementJob.Tick)
		}
		if w.cfg.EnableVestingJob {
			w.runStep(ctx, "vesting_job", w.vestingJob.Tick)
		}
		if w.cfg.EnableReconciliationJob {
			w.runStep(ctx, "reconciliation_job", w.reconciliation.RunOnce)
		}
		if w.cfg.EnableSaleOutboxRelay {
			w.runStep(ctx, "sale_outbox_relay", w.saleRelay.RunOnce)
		}
		if w.cfg.EnableTreasuryOutboxRelay {
			w.runStep(ctx, "treasury_outbox_relay", w.treasuryRelay.RunOnce)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// runStep isolates one scheduled step per tick. A transient failure in one
// job must not take down the relays and engines sharing the process; the
// step gets retried on the next tick.
func (w *WorkerApp) runStep(ctx context.Context, name string, step func(context.Context) error) {
	if err := step(ctx); err != nil {
		w.logger.Error("worker step failed",
			"event", "bootstrap_worker_step_failed",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"step", name,
			"error", err.Error(),
		)
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
