package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tidepool/contexts/treasury-core/settlement-engine/ports"
)

type lockState struct {
	owner     string
	expiresAt time.Time
}

type accountState struct {
	address     string
	contributed float64
	isWhale     bool
	settledAt   *time.Time
}

// Store is an in-memory settlement backend for local runs and tests.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*accountState
	locks    map[string]lockState
	outbox   []ports.EventEnvelope

	// ListErr forces enumeration failures in tests.
	ListErr error
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*accountState),
		locks:    make(map[string]lockState),
	}
}

func (s *Store) Seed(address string, contributed float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[address] = &accountState{address: address, contributed: contributed}
}

// SeedFlagged seeds an account already carrying the advisory whale flag,
// as the contribution flow leaves it when a wallet peaks mid-sale.
func (s *Store) SeedFlagged(address string, contributed float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[address] = &accountState{address: address, contributed: contributed, isWhale: true}
}

func (s *Store) Contributed(address string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if state, ok := s.accounts[address]; ok {
		return state.contributed
	}
	return 0
}

func (s *Store) IsWhale(address string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if state, ok := s.accounts[address]; ok {
		return state.isWhale
	}
	return false
}

func (s *Store) SumContributed(_ context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0.0
	for _, state := range s.accounts {
		total += state.contributed
	}
	return total, nil
}

func (s *Store) ListContributedAbove(_ context.Context, threshold float64) ([]ports.Account, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matches []ports.Account
	for _, state := range s.accounts {
		if state.contributed > threshold {
			matches = append(matches, ports.Account{Address: state.address, Contributed: state.contributed})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Address < matches[j].Address })
	return matches, nil
}

func (s *Store) ApplyTrimBack(_ context.Context, address string, newContributed float64, settledAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.accounts[address]
	if !ok {
		state = &accountState{address: address}
		s.accounts[address] = state
	}
	state.contributed = newContributed
	state.isWhale = true
	state.settledAt = &settledAt
	return nil
}

func (s *Store) ClearWhaleFlagsAtOrBelow(_ context.Context, threshold float64, _ time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cleared := 0
	for _, state := range s.accounts {
		if state.isWhale && state.contributed <= threshold {
			state.isWhale = false
			cleared++
		}
	}
	return cleared, nil
}

func (s *Store) AcquireRunLock(_ context.Context, name string, owner string, lease time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if held, ok := s.locks[name]; ok && held.expiresAt.After(now) && held.owner != owner {
		return false, nil
	}
	s.locks[name] = lockState{owner: owner, expiresAt: now.Add(lease)}
	return true, nil
}

func (s *Store) ReleaseRunLock(_ context.Context, name string, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if held, ok := s.locks[name]; ok && held.owner == owner {
		delete(s.locks, name)
	}
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = append(s.outbox, envelope)
	return nil
}

func (s *Store) Outbox() []ports.EventEnvelope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ports.EventEnvelope, len(s.outbox))
	copy(out, s.outbox)
	return out
}

func (s *Store) Now() time.Time { return time.Now().UTC() }

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.AccountStore = (*Store)(nil)
var _ ports.RunLockStore = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
