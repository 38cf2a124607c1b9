package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"tidepool/contexts/treasury-core/payout-service/ports"

	"github.com/google/uuid"
)

// Gateway is the in-memory payment network used by tests and local wiring.
// Destinations listed in failures reject with the given reason.
type Gateway struct {
	mu        sync.Mutex
	failures  map[string]string
	submitted []ports.PaymentRequest
}

func NewGateway() *Gateway {
	return &Gateway{failures: make(map[string]string)}
}

func (g *Gateway) FailFor(address string, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[strings.TrimSpace(address)] = reason
}

func (g *Gateway) SubmitPayment(_ context.Context, request ports.PaymentRequest) (ports.PaymentResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if reason, ok := g.failures[request.DestinationAddress]; ok {
		return ports.PaymentResult{}, errors.New(reason)
	}
	g.submitted = append(g.submitted, request)
	return ports.PaymentResult{Reference: "a2u-" + uuid.NewString()}, nil
}

func (g *Gateway) Submitted() []ports.PaymentRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]ports.PaymentRequest(nil), g.submitted...)
}

var _ ports.PaymentGateway = (*Gateway)(nil)
