package httpadapter

import (
	"context"
	"log/slog"

	"tidepool/contexts/treasury-core/vesting-engine/application/commands"
	httptransport "tidepool/contexts/treasury-core/vesting-engine/transport/http"
)

type Handler struct {
	UseCase commands.UseCase
	Logger  *slog.Logger
}

func (h Handler) RunVestingHandler(ctx context.Context, req httptransport.RunVestingRequest) (httptransport.VestingRunResponse, error) {
	result, err := h.UseCase.RunVesting(ctx, commands.RunVestingCommand{
		TriggeredBy: req.TriggeredBy,
	})
	if err != nil {
		return httptransport.VestingRunResponse{}, err
	}
	return httptransport.VestingRunResponse{
		Status: "success",
		Data: httptransport.VestingRunDTO{
			RunID:         result.RunID,
			TotalReleased: result.TotalReleased,
			Released:      result.Released,
			Attempted:     result.Attempted,
			Failed:        result.Failed,
		},
	}, nil
}
