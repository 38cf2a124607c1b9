package httpadapter

import (
	"context"
	"log/slog"

	"tidepool/contexts/treasury-core/dividend-engine/application/commands"
	httptransport "tidepool/contexts/treasury-core/dividend-engine/transport/http"
)

type Handler struct {
	UseCase commands.UseCase
	Logger  *slog.Logger
}

func (h Handler) DistributeHandler(ctx context.Context, req httptransport.DistributeRequest) (httptransport.DistributionResponse, error) {
	result, err := h.UseCase.Distribute(ctx, commands.DistributeCommand{
		TotalPot:    req.TotalPot,
		TriggeredBy: req.TriggeredBy,
	})
	if err != nil {
		return httptransport.DistributionResponse{}, err
	}
	return httptransport.DistributionResponse{
		Status: "success",
		Data: httptransport.DistributionDTO{
			RunID:            result.RunID,
			TotalPot:         result.TotalPot,
			Ceiling:          result.Ceiling,
			TotalDistributed: result.TotalDistributed,
			Recipients:       result.Recipients,
			Attempted:        result.Attempted,
			Failed:           result.Failed,
		},
	}, nil
}
