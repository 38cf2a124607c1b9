package httpadapter

import (
	"context"
	"log/slog"

	"tidepool/contexts/treasury-core/settlement-engine/application/commands"
	httptransport "tidepool/contexts/treasury-core/settlement-engine/transport/http"
)

type Handler struct {
	UseCase commands.UseCase
	Logger  *slog.Logger
}

func (h Handler) RunSettlementHandler(ctx context.Context, req httptransport.RunSettlementRequest) (httptransport.SettlementRunResponse, error) {
	result, err := h.UseCase.RunSettlement(ctx, commands.RunSettlementCommand{
		FinalPool:   req.FinalPool,
		TriggeredBy: req.TriggeredBy,
	})
	if err != nil {
		return httptransport.SettlementRunResponse{}, err
	}
	return httptransport.SettlementRunResponse{
		Status: "success",
		Data: httptransport.SettlementRunDTO{
			RunID:          result.RunID,
			FinalPool:      result.FinalPool,
			Threshold:      result.Threshold,
			TotalRefunded:  result.TotalRefunded,
			WhalesImpacted: result.WhalesImpacted,
			Attempted:      result.Attempted,
			Failed:         result.Failed,
		},
	}, nil
}
