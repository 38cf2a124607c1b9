package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	contributionservice "tidepool/contexts/sale-core/contribution-service"
	pricingengine "tidepool/contexts/sale-core/pricing-engine"
	dividendengine "tidepool/contexts/treasury-core/dividend-engine"
	dividendpayout "tidepool/contexts/treasury-core/dividend-engine/adapters/payout"
	payoutservice "tidepool/contexts/treasury-core/payout-service"
	settlementengine "tidepool/contexts/treasury-core/settlement-engine"
	settlementpayout "tidepool/contexts/treasury-core/settlement-engine/adapters/payout"
	vestingengine "tidepool/contexts/treasury-core/vesting-engine"
	vestingpayout "tidepool/contexts/treasury-core/vesting-engine/adapters/payout"
)

const testFixedSupply = 2181818.0

func newTestServer() *Server {
	pricing := pricingengine.NewInMemoryModule(map[string]float64{
		"wallet-1": 200000,
		"wallet-2": 100000,
	}, testFixedSupply, nil)
	contributions := contributionservice.NewInMemoryModule(nil, testFixedSupply, 0.10, nil)
	payouts := payoutservice.NewInMemoryModule(0.01, nil)
	settlement := settlementengine.NewInMemoryModule(
		settlementpayout.Payer{Service: payouts.Service}, 0.10, nil)
	vesting := vestingengine.NewInMemoryModule(
		vestingpayout.Payer{Service: payouts.Service}, 0.10, nil)
	dividends := dividendengine.NewInMemoryModule(
		dividendpayout.Payer{Service: payouts.Service}, testFixedSupply, nil)
	return New(pricing, contributions, payouts, settlement, vesting, dividends, nil, ":0")
}

func TestSpotPriceRoute(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/v1/sale/price", nil)
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Status string `json:"status"`
		Data   struct {
			SpotPrice    string `json:"spot_price"`
			Participants int    `json:"participants"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "success" || resp.Data.Participants != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestRecordContributionRoute(t *testing.T) {
	server := newTestServer()
	body := `{"address":"wallet-9","amount":250,"external_reference":"txn-0001"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/sale/contributions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	dup := httptest.NewRequest(http.MethodPost, "/v1/sale/contributions", strings.NewReader(body))
	dupRec := httptest.NewRecorder()
	server.mux.ServeHTTP(dupRec, dup)
	if dupRec.Code != http.StatusConflict {
		t.Fatalf("duplicate reference must be a conflict, got %d", dupRec.Code)
	}
}

func TestGetAccountRouteNotFound(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/v1/sale/accounts/nobody", nil)
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRunSettlementRoute(t *testing.T) {
	server := newTestServer()
	server.settlement.Store.Seed("whale-1", 20000)

	req := httptest.NewRequest(
		http.MethodPost,
		"/v1/treasury/settlement/run",
		strings.NewReader(`{"final_pool":100000}`),
	)
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data struct {
			Threshold      float64 `json:"threshold"`
			TotalRefunded  float64 `json:"total_refunded"`
			WhalesImpacted int     `json:"whales_impacted"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Threshold != 10000 || resp.Data.WhalesImpacted != 1 {
		t.Fatalf("unexpected settlement summary %+v", resp.Data)
	}
}

func TestDistributeDividendsRouteRejectsEmptyPot(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(
		http.MethodPost,
		"/v1/treasury/dividends/distribute",
		strings.NewReader(`{"total_pot":0}`),
	)
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRunVestingRouteEmptySet(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/v1/treasury/vesting/run", nil)
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
