package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"tidepool/contexts/treasury-core/payout-service/application"
	"tidepool/contexts/treasury-core/payout-service/domain/entities"
	httptransport "tidepool/contexts/treasury-core/payout-service/transport/http"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) GetEntryHandler(ctx context.Context, entryID string) (httptransport.LedgerEntryResponse, error) {
	entry, err := h.Service.GetEntry(ctx, entryID)
	if err != nil {
		return httptransport.LedgerEntryResponse{}, err
	}
	return httptransport.LedgerEntryResponse{
		Status: "success",
		Data:   toDTO(entry),
	}, nil
}

func (h Handler) ListEntriesHandler(
	ctx context.Context,
	address string,
	status string,
	limit int,
	offset int,
) (httptransport.LedgerListResponse, error) {
	items, err := h.Service.ListEntries(ctx, address, status, limit, offset)
	if err != nil {
		return httptransport.LedgerListResponse{}, err
	}
	resp := httptransport.LedgerListResponse{
		Status: "success",
		Data:   make([]httptransport.LedgerEntryDTO, 0, len(items)),
	}
	for _, item := range items {
		resp.Data = append(resp.Data, toDTO(item))
	}
	return resp, nil
}

func toDTO(entry entities.LedgerEntry) httptransport.LedgerEntryDTO {
	return httptransport.LedgerEntryDTO{
		EntryID:           entry.EntryID,
		Address:           entry.Address,
		Amount:            entry.Amount,
		Kind:              string(entry.Kind),
		Status:            string(entry.Status),
		ExternalReference: entry.ExternalReference,
		Memo:              entry.Memo,
		CreatedAt:         entry.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         entry.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
