package memory

import (
	"context"
	"sync"

	"tidepool/contexts/sale-core/pricing-engine/ports"
)

// Store is an in-memory pool reader seeded with per-address contributions.
type Store struct {
	mu            sync.RWMutex
	contributions map[string]float64
}

func NewStore(seed map[string]float64) *Store {
	contributions := make(map[string]float64, len(seed))
	for address, amount := range seed {
		contributions[address] = amount
	}
	return &Store{contributions: contributions}
}

func (s *Store) SetContribution(address string, amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contributions[address] = amount
}

func (s *Store) PoolSnapshot(_ context.Context) (ports.PoolSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := ports.PoolSnapshot{}
	for _, amount := range s.contributions {
		if amount <= 0 {
			continue
		}
		snapshot.TotalContributed += amount
		snapshot.Participants++
	}
	return snapshot, nil
}

var _ ports.PoolReader = (*Store)(nil)
