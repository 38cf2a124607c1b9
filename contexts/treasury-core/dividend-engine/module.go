package dividendengine

import (
	"log/slog"
	"time"

	httpadapter "tidepool/contexts/treasury-core/dividend-engine/adapters/http"
	"tidepool/contexts/treasury-core/dividend-engine/adapters/memory"
	"tidepool/contexts/treasury-core/dividend-engine/application/commands"
	"tidepool/contexts/treasury-core/dividend-engine/application/workers"
	"tidepool/contexts/treasury-core/dividend-engine/ports"
)

type Module struct {
	UseCase  commands.UseCase
	Handler  httpadapter.Handler
	Consumer workers.TriggerConsumer
	Store    *memory.Store
}

type Dependencies struct {
	Accounts     ports.AccountStore
	Payer        ports.DividendPayer
	RunLock      ports.RunLockStore
	Outbox       ports.OutboxWriter
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	FixedSupply  float64
	CeilingRatio float64
	RunLease     time.Duration
	Logger       *slog.Logger
}

func NewModule(deps Dependencies) Module {
	useCase := commands.UseCase{
		Accounts:     deps.Accounts,
		Payer:        deps.Payer,
		RunLock:      deps.RunLock,
		Outbox:       deps.Outbox,
		Clock:        deps.Clock,
		IDGen:        deps.IDGen,
		FixedSupply:  deps.FixedSupply,
		CeilingRatio: deps.CeilingRatio,
		RunLease:     deps.RunLease,
		Logger:       deps.Logger,
	}
	return Module{
		UseCase: useCase,
		Handler: httpadapter.Handler{
			UseCase: useCase,
			Logger:  deps.Logger,
		},
		Consumer: workers.TriggerConsumer{
			UseCase: useCase,
			Logger:  deps.Logger,
		},
	}
}

func NewInMemoryModule(payer ports.DividendPayer, fixedSupply float64, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Accounts:    store,
		Payer:       payer,
		RunLock:     store,
		Outbox:      store,
		Clock:       store,
		IDGen:       store,
		FixedSupply: fixedSupply,
		Logger:      logger,
	})
	module.Store = store
	return module
}
