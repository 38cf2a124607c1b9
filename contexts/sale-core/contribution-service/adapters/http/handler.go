package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"tidepool/contexts/sale-core/contribution-service/application/commands"
	"tidepool/contexts/sale-core/contribution-service/application/queries"
	"tidepool/contexts/sale-core/contribution-service/domain/entities"
	httptransport "tidepool/contexts/sale-core/contribution-service/transport/http"
)

type Handler struct {
	Commands commands.UseCase
	Queries  queries.UseCase
	Logger   *slog.Logger
}

func (h Handler) RecordContributionHandler(
	ctx context.Context,
	req httptransport.RecordContributionRequest,
) (httptransport.RecordContributionResponse, error) {
	result, err := h.Commands.RecordContribution(ctx, commands.RecordContributionCommand{
		Address:           req.Address,
		Amount:            req.Amount,
		ExternalReference: req.ExternalReference,
		Memo:              req.Memo,
	})
	if err != nil {
		return httptransport.RecordContributionResponse{}, err
	}
	resp := httptransport.RecordContributionResponse{Status: "success"}
	resp.Data.Account = toDTO(result.Account)
	resp.Data.Allocated = result.Allocated
	resp.Data.SpotPrice = result.SpotPrice
	resp.Data.WaterLevel = result.WaterLevel
	resp.Data.EntryID = result.EntryID
	return resp, nil
}

func (h Handler) GetAccountHandler(
	ctx context.Context,
	address string,
) (httptransport.AccountResponse, error) {
	view, err := h.Queries.GetAccount(ctx, address)
	if err != nil {
		return httptransport.AccountResponse{}, err
	}
	resp := httptransport.AccountResponse{Status: "success"}
	resp.Data.Account = toDTO(view.Account)
	resp.Data.PoolShare = view.PoolShare
	resp.Data.WaterLevel = view.WaterLevel
	return resp, nil
}

func (h Handler) ListAccountsHandler(
	ctx context.Context,
	limit int,
	offset int,
) (httptransport.AccountListResponse, error) {
	items, err := h.Queries.ListAccounts(ctx, limit, offset)
	if err != nil {
		return httptransport.AccountListResponse{}, err
	}
	resp := httptransport.AccountListResponse{
		Status: "success",
		Data:   make([]httptransport.AccountDTO, 0, len(items)),
	}
	for _, item := range items {
		resp.Data = append(resp.Data, toDTO(item))
	}
	return resp, nil
}

func toDTO(account entities.Account) httptransport.AccountDTO {
	dto := httptransport.AccountDTO{
		Address:            account.Address,
		Contributed:        account.Contributed,
		Allocated:          account.Allocated,
		Released:           account.Released,
		TranchesCompleted:  account.TranchesCompleted,
		IsWhale:            account.IsWhale,
		LastContributionAt: account.LastContributionAt.UTC().Format(time.RFC3339),
	}
	if account.LastSettlementAt != nil {
		dto.LastSettlementAt = account.LastSettlementAt.UTC().Format(time.RFC3339)
	}
	return dto
}
