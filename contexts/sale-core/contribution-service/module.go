package contributionservice

import (
	"log/slog"

	httpadapter "tidepool/contexts/sale-core/contribution-service/adapters/http"
	"tidepool/contexts/sale-core/contribution-service/adapters/memory"
	"tidepool/contexts/sale-core/contribution-service/application/commands"
	"tidepool/contexts/sale-core/contribution-service/application/queries"
	"tidepool/contexts/sale-core/contribution-service/domain/entities"
	"tidepool/contexts/sale-core/contribution-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Accounts    ports.AccountRepository
	Ledger      ports.ContributionLedger
	Outbox      ports.OutboxWriter
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	FixedSupply float64
	WhaleRatio  float64
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	commandUseCase := commands.UseCase{
		Accounts:    deps.Accounts,
		Ledger:      deps.Ledger,
		Outbox:      deps.Outbox,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		FixedSupply: deps.FixedSupply,
		WhaleRatio:  deps.WhaleRatio,
		Logger:      deps.Logger,
	}
	queryUseCase := queries.UseCase{
		Accounts: deps.Accounts,
	}
	return Module{
		Handler: httpadapter.Handler{
			Commands: commandUseCase,
			Queries:  queryUseCase,
			Logger:   deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []entities.Account, fixedSupply float64, whaleRatio float64, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Accounts:    store,
		Ledger:      store,
		Outbox:      store,
		Clock:       store,
		IDGen:       store,
		FixedSupply: fixedSupply,
		WhaleRatio:  whaleRatio,
		Logger:      logger,
	})
	module.Store = store
	return module
}
