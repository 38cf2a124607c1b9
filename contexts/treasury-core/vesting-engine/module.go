package vestingengine

import (
	"log/slog"
	"time"

	httpadapter "tidepool/contexts/treasury-core/vesting-engine/adapters/http"
	"tidepool/contexts/treasury-core/vesting-engine/adapters/memory"
	"tidepool/contexts/treasury-core/vesting-engine/application/commands"
	"tidepool/contexts/treasury-core/vesting-engine/ports"
)

type Module struct {
	UseCase commands.UseCase
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Accounts     ports.AccountStore
	Payer        ports.ReleasePayer
	RunLock      ports.RunLockStore
	Outbox       ports.OutboxWriter
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	TrancheRatio float64
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
		TrancheRatio: deps.TrancheRatio,
		RunLease:     deps.RunLease,
		Logger:       deps.Logger,
	}
	return Module{
		UseCase: useCase,
		Handler: httpadapter.Handler{
			UseCase: useCase,
			Logger:  deps.Logger,
		},
	}
}

func NewInMemoryModule(payer ports.ReleasePayer, trancheRatio float64, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Accounts:     store,
		Payer:        payer,
		RunLock:      store,
		Outbox:       store,
		Clock:        store,
		IDGen:        store,
		TrancheRatio: trancheRatio,
		Logger:       logger,
	})
	module.Store = store
	return module
}
