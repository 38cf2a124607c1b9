package pricingengine

import (
	"log/slog"

	httpadapter "tidepool/contexts/sale-core/pricing-engine/adapters/http"
	"tidepool/contexts/sale-core/pricing-engine/adapters/memory"
	"tidepool/contexts/sale-core/pricing-engine/application"
	"tidepool/contexts/sale-core/pricing-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Pool        ports.PoolReader
	FixedSupply float64
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Pool:        deps.Pool,
		FixedSupply: deps.FixedSupply,
		Logger:      deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
	}
}

func NewInMemoryModule(seed map[string]float64, fixedSupply float64, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Pool:        store,
		FixedSupply: fixedSupply,
		Logger:      logger,
	})
	module.Store = store
	return module
}
