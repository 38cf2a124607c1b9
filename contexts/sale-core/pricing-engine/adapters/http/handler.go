package httpadapter

import (
	"context"
	"log/slog"

	"tidepool/contexts/sale-core/pricing-engine/application"
	domainerrors "tidepool/contexts/sale-core/pricing-engine/domain/errors"
	httptransport "tidepool/contexts/sale-core/pricing-engine/transport/http"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) SpotPriceHandler(ctx context.Context) (httptransport.SpotPriceResponse, error) {
	quote, err := h.Service.SpotPrice(ctx)
	if err != nil {
		return httptransport.SpotPriceResponse{}, err
	}
	resp := httptransport.SpotPriceResponse{Status: "success"}
	resp.Data.SpotPrice = quote.Audit
	resp.Data.SpotPriceDisplay = quote.Display
	resp.Data.WaterLevel = quote.WaterLevel
	resp.Data.Participants = quote.Participants
	return resp, nil
}

func (h Handler) WaterLevelHandler(ctx context.Context) (httptransport.WaterLevelResponse, error) {
	snapshot, err := h.Service.WaterLevel(ctx)
	if err != nil {
		return httptransport.WaterLevelResponse{}, err
	}
	resp := httptransport.WaterLevelResponse{Status: "success"}
	resp.Data.WaterLevel = snapshot.TotalContributed
	resp.Data.Participants = snapshot.Participants
	return resp, nil
}

func (h Handler) AlphaGainHandler(_ context.Context, contribution float64) (httptransport.AlphaGainResponse, error) {
	if contribution <= 0 {
		return httptransport.AlphaGainResponse{}, domainerrors.ErrInvalidAmount
	}
	resp := httptransport.AlphaGainResponse{Status: "success"}
	resp.Data.Contribution = contribution
	resp.Data.AlphaGain = h.Service.AlphaGain(contribution)
	return resp, nil
}
