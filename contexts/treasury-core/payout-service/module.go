package payoutservice

import (
	"log/slog"

	httpadapter "tidepool/contexts/treasury-core/payout-service/adapters/http"
	"tidepool/contexts/treasury-core/payout-service/adapters/memory"
	"tidepool/contexts/treasury-core/payout-service/application"
	"tidepool/contexts/treasury-core/payout-service/ports"
)

type Module struct {
	Service application.Service
	Handler httpadapter.Handler
	Store   *memory.Store
	Gateway *memory.Gateway
}

type Dependencies struct {
	Ledger     ports.LedgerRepository
	Gateway    ports.PaymentGateway
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	NetworkFee float64
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Ledger:     deps.Ledger,
		Gateway:    deps.Gateway,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		NetworkFee: deps.NetworkFee,
		Logger:     deps.Logger,
	}
	return Module{
		Service: service,
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
	}
}

func NewInMemoryModule(networkFee float64, logger *slog.Logger) Module {
	store := memory.NewStore()
	gateway := memory.NewGateway()
	module := NewModule(Dependencies{
		Ledger:     store,
		Gateway:    gateway,
		Clock:      store,
		IDGen:      store,
		NetworkFee: networkFee,
		Logger:     logger,
	})
	module.Store = store
	module.Gateway = gateway
	return module
}
