package a2u

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainerrors "tidepool/contexts/treasury-core/payout-service/domain/errors"
	"tidepool/contexts/treasury-core/payout-service/ports"
)

// Gateway submits application-to-user transfers to the external payment
// network over HTTP. The network is opaque to the engines; this adapter is
// the only place that knows its payload spelling.
type Gateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

func NewGateway(baseURL string, apiKey string, timeout time.Duration, logger *slog.Logger) *Gateway {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type transferResponse struct {
	Identifier string `json:"identifier"`
	TxID       string `json:"txid"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

func (g *Gateway) SubmitPayment(ctx context.Context, request ports.PaymentRequest) (ports.PaymentResult, error) {
	body, err := json.Marshal(legacyPaymentFields(request))
	if err != nil {
		return ports.PaymentResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v2/payments", bytes.NewReader(body))
	if err != nil {
		return ports.PaymentResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Key "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return ports.PaymentResult{}, fmt.Errorf("submit a2u payment: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ports.PaymentResult{}, fmt.Errorf("read a2u payment response: %w", err)
	}

	var decoded transferResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return ports.PaymentResult{}, fmt.Errorf("decode a2u payment response: %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := strings.TrimSpace(decoded.Error)
		if reason == "" {
			reason = strings.TrimSpace(decoded.Message)
		}
		if reason == "" {
			reason = resp.Status
		}
		g.logger.Error("a2u payment rejected",
			"event", "a2u_payment_rejected",
			"module", "treasury-core/payout-service",
			"layer", "adapter",
			"destination", request.DestinationAddress,
			"status_code", resp.StatusCode,
			"reason", reason,
		)
		return ports.PaymentResult{}, fmt.Errorf("%w: %s", domainerrors.ErrPaymentRejected, reason)
	}

	reference := strings.TrimSpace(decoded.Identifier)
	if reference == "" {
		reference = strings.TrimSpace(decoded.TxID)
	}
	return ports.PaymentResult{Reference: reference}, nil
}

// legacyPaymentFields maps the typed request onto the network's accepted
// field spellings. The historical API read several aliases for address and
// amount; every alias is populated here so the engine never carries them.
func legacyPaymentFields(request ports.PaymentRequest) map[string]any {
	return map[string]any{
		"recipient":       request.DestinationAddress,
		"wallet_address":  request.DestinationAddress,
		"uid":             request.DestinationAddress,
		"amount":          request.Amount,
		"payment_amount":  request.Amount,
		"memo":            request.Memo,
		"metadata":        map[string]any{"memo": request.Memo},
		"uncompleted_ok":  false,
		"idempotent_hint": request.Memo,
	}
}

var _ ports.PaymentGateway = (*Gateway)(nil)
