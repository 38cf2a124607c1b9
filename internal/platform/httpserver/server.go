package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	contributionservice "tidepool/contexts/sale-core/contribution-service"
	contributionerrors "tidepool/contexts/sale-core/contribution-service/domain/errors"
	contributionhttp "tidepool/contexts/sale-core/contribution-service/transport/http"
	pricingengine "tidepool/contexts/sale-core/pricing-engine"
	pricingerrors "tidepool/contexts/sale-core/pricing-engine/domain/errors"
	pricinghttp "tidepool/contexts/sale-core/pricing-engine/transport/http"
	dividendengine "tidepool/contexts/treasury-core/dividend-engine"
	dividenderrors "tidepool/contexts/treasury-core/dividend-engine/domain/errors"
	dividendhttp "tidepool/contexts/treasury-core/dividend-engine/transport/http"
	payoutservice "tidepool/contexts/treasury-core/payout-service"
	payouterrors "tidepool/contexts/treasury-core/payout-service/domain/errors"
	payouthttp "tidepool/contexts/treasury-core/payout-service/transport/http"
	settlementengine "tidepool/contexts/treasury-core/settlement-engine"
	settlementerrors "tidepool/contexts/treasury-core/settlement-engine/domain/errors"
	settlementhttp "tidepool/contexts/treasury-core/settlement-engine/transport/http"
	vestingengine "tidepool/contexts/treasury-core/vesting-engine"
	vestingerrors "tidepool/contexts/treasury-core/vesting-engine/domain/errors"
	vestinghttp "tidepool/contexts/treasury-core/vesting-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

type Server struct {
	mux           *http.ServeMux
	logger        *slog.Logger
	addr          string
	pricing       pricingengine.Module
	contributions contributionservice.Module
	payouts       payoutservice.Module
	settlement    settlementengine.Module
	vesting       vestingengine.Module
	dividends     dividendengine.Module
}

func New(
	pricing pricingengine.Module,
	contributions contributionservice.Module,
	payouts payoutservice.Module,
	settlement settlementengine.Module,
	vesting vestingengine.Module,
	dividends dividendengine.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:           http.NewServeMux(),
		logger:        logger,
		addr:          addr,
		pricing:       pricing,
		contributions: contributions,
		payouts:       payouts,
		settlement:    settlement,
		vesting:       vesting,
		dividends:     dividends,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("GET /v1/sale/price", s.handleSpotPrice)
	s.mux.HandleFunc("GET /v1/sale/pool", s.handleWaterLevel)
	s.mux.HandleFunc("GET /v1/sale/alpha-gain", s.handleAlphaGain)

	s.mux.HandleFunc("POST /v1/sale/contributions", s.handleRecordContribution)
	s.mux.HandleFunc("GET /v1/sale/accounts", s.handleListAccounts)
	s.mux.HandleFunc("GET /v1/sale/accounts/{address}", s.handleGetAccount)

	s.mux.HandleFunc("GET /v1/treasury/ledger", s.handleListLedgerEntries)
	s.mux.HandleFunc("GET /v1/treasury/ledger/{entry_id}", s.handleGetLedgerEntry)

	s.mux.HandleFunc("POST /v1/treasury/settlement/run", s.handleRunSettlement)
	s.mux.HandleFunc("POST /v1/treasury/vesting/run", s.handleRunVesting)
	s.mux.HandleFunc("POST /v1/treasury/dividends/distribute", s.handleDistributeDividends)
}

func (s *Server) handleSpotPrice(w http.ResponseWriter, r *http.Request) {
	resp, err := s.pricing.Handler.SpotPriceHandler(r.Context())
	if err != nil {
		writePricingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWaterLevel(w http.ResponseWriter, r *http.Request) {
	resp, err := s.pricing.Handler.WaterLevelHandler(r.Context())
	if err != nil {
		writePricingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAlphaGain(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("contribution")
	contribution, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		writePricingError(w, http.StatusBadRequest, "invalid_contribution", "contribution must be a number")
		return
	}
	resp, err := s.pricing.Handler.AlphaGainHandler(r.Context(), contribution)
	if err != nil {
		writePricingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecordContribution(w http.ResponseWriter, r *http.Request) {
	var req contributionhttp.RecordContributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeContributionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.contributions.Handler.RecordContributionHandler(r.Context(), req)
	if err != nil {
		writeContributionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	resp, err := s.contributions.Handler.GetAccountHandler(r.Context(), address)
	if err != nil {
		writeContributionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := parsePage(w, r)
	if !ok {
		return
	}
	resp, err := s.contributions.Handler.ListAccountsHandler(r.Context(), limit, offset)
	if err != nil {
		writeContributionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetLedgerEntry(w http.ResponseWriter, r *http.Request) {
	entryID := r.PathValue("entry_id")
	resp, err := s.payouts.Handler.GetEntryHandler(r.Context(), entryID)
	if err != nil {
		writePayoutDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListLedgerEntries(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := parsePage(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	resp, err := s.payouts.Handler.ListEntriesHandler(
		r.Context(),
		query.Get("address"),
		query.Get("status"),
		limit,
		offset,
	)
	if err != nil {
		writePayoutDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRunSettlement(w http.ResponseWriter, r *http.Request) {
	var req settlementhttp.RunSettlementRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeSettlementError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
			return
		}
	}
	if req.TriggeredBy == "" {
		req.TriggeredBy = "admin"
	}
	resp, err := s.settlement.Handler.RunSettlementHandler(r.Context(), req)
	if err != nil {
		writeSettlementDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRunVesting(w http.ResponseWriter, r *http.Request) {
	var req vestinghttp.RunVestingRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeVestingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
			return
		}
	}
	if req.TriggeredBy == "" {
		req.TriggeredBy = "admin"
	}
	resp, err := s.vesting.Handler.RunVestingHandler(r.Context(), req)
	if err != nil {
		writeVestingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDistributeDividends(w http.ResponseWriter, r *http.Request) {
	var req dividendhttp.DistributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDividendError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if req.TriggeredBy == "" {
		req.TriggeredBy = "admin"
	}
	resp, err := s.dividends.Handler.DistributeHandler(r.Context(), req)
	if err != nil {
		writeDividendDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func parsePage(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	query := r.URL.Query()
	limit := 0
	offset := 0
	if raw := query.Get("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, contributionhttp.ErrorResponse{
				Code:    "invalid_limit",
				Message: "limit must be an integer",
			})
			return 0, 0, false
		}
		limit = value
	}
	if raw := query.Get("offset"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, contributionhttp.ErrorResponse{
				Code:    "invalid_offset",
				Message: "offset must be an integer",
			})
			return 0, 0, false
		}
		offset = value
	}
	return limit, offset, true
}

func writePricingDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pricingerrors.ErrInvalidAmount):
		writePricingError(w, http.StatusBadRequest, "invalid_amount", err.Error())
	case errors.Is(err, pricingerrors.ErrPoolUnreadable):
		writePricingError(w, http.StatusServiceUnavailable, "pool_unreadable", err.Error())
	default:
		writePricingError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeContributionDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, contributionerrors.ErrInvalidContributionInput):
		writeContributionError(w, http.StatusBadRequest, "invalid_contribution", err.Error())
	case errors.Is(err, contributionerrors.ErrDuplicateContribution):
		writeContributionError(w, http.StatusConflict, "duplicate_contribution", err.Error())
	case errors.Is(err, contributionerrors.ErrAccountNotFound):
		writeContributionError(w, http.StatusNotFound, "account_not_found", err.Error())
	default:
		writeContributionError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writePayoutDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payouterrors.ErrInvalidPayoutInput):
		writePayoutError(w, http.StatusBadRequest, "invalid_payout", err.Error())
	case errors.Is(err, payouterrors.ErrAmountBelowFee):
		writePayoutError(w, http.StatusUnprocessableEntity, "amount_below_fee", err.Error())
	case errors.Is(err, payouterrors.ErrLedgerEntryNotFound):
		writePayoutError(w, http.StatusNotFound, "ledger_entry_not_found", err.Error())
	case errors.Is(err, payouterrors.ErrLedgerEntryTerminal):
		writePayoutError(w, http.StatusConflict, "ledger_entry_terminal", err.Error())
	case errors.Is(err, payouterrors.ErrPaymentRejected):
		writePayoutError(w, http.StatusBadGateway, "payment_rejected", err.Error())
	default:
		writePayoutError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeSettlementDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, settlementerrors.ErrInvalidSettlementInput):
		writeSettlementError(w, http.StatusBadRequest, "invalid_settlement", err.Error())
	case errors.Is(err, settlementerrors.ErrRunInProgress):
		writeSettlementError(w, http.StatusConflict, "run_in_progress", err.Error())
	case errors.Is(err, settlementerrors.ErrEnumerationFailed):
		writeSettlementError(w, http.StatusServiceUnavailable, "enumeration_failed", err.Error())
	default:
		writeSettlementError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeVestingDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, vestingerrors.ErrInvalidVestingInput):
		writeVestingError(w, http.StatusBadRequest, "invalid_vesting", err.Error())
	case errors.Is(err, vestingerrors.ErrRunInProgress):
		writeVestingError(w, http.StatusConflict, "run_in_progress", err.Error())
	case errors.Is(err, vestingerrors.ErrEnumerationFailed):
		writeVestingError(w, http.StatusServiceUnavailable, "enumeration_failed", err.Error())
	default:
		writeVestingError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeDividendDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dividenderrors.ErrInvalidDividendInput):
		writeDividendError(w, http.StatusBadRequest, "invalid_dividend", err.Error())
	case errors.Is(err, dividenderrors.ErrRunInProgress):
		writeDividendError(w, http.StatusConflict, "run_in_progress", err.Error())
	case errors.Is(err, dividenderrors.ErrEnumerationFailed):
		writeDividendError(w, http.StatusServiceUnavailable, "enumeration_failed", err.Error())
	default:
		writeDividendError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writePricingError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, pricinghttp.ErrorResponse{Code: code, Message: message})
}

func writeContributionError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, contributionhttp.ErrorResponse{Code: code, Message: message})
}

func writePayoutError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, payouthttp.ErrorResponse{Code: code, Message: message})
}

func writeSettlementError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, settlementhttp.ErrorResponse{Code: code, Message: message})
}

func writeVestingError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, vestinghttp.ErrorResponse{Code: code, Message: message})
}

func writeDividendError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, dividendhttp.ErrorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
