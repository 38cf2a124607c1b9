package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tidepool/contexts/treasury-core/vesting-engine/ports"
)

const maxTranches = 10

type lockState struct {
	owner     string
	expiresAt time.Time
}

type accountState struct {
	address           string
	contributed       float64
	allocated         float64
	released          float64
	tranchesCompleted int
	isWhale           bool
	releasedAt        *time.Time
}

// Store is an in-memory vesting backend for local runs and tests.
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

func (s *Store) Seed(address string, contributed float64, allocated float64, isWhale bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[address] = &accountState{
		address:     address,
		contributed: contributed,
		allocated:   allocated,
		isWhale:     isWhale,
	}
}

func (s *Store) Released(address string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if state, ok := s.accounts[address]; ok {
		return state.released
	}
	return 0
}

func (s *Store) TranchesCompleted(address string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if state, ok := s.accounts[address]; ok {
		return state.tranchesCompleted
	}
	return 0
}

func (s *Store) ListVestable(_ context.Context) ([]ports.Account, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matches []ports.Account
	for _, state := range s.accounts {
		if state.contributed <= 0 || state.tranchesCompleted >= maxTranches || state.isWhale {
			continue
		}
		matches = append(matches, ports.Account{
			Address:           state.address,
			Allocated:         state.allocated,
			Released:          state.released,
			TranchesCompleted: state.tranchesCompleted,
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Address < matches[j].Address })
	return matches, nil
}

func (s *Store) ApplyRelease(_ context.Context, address string, newReleased float64, tranchesCompleted int, releasedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.accounts[address]
	if !ok {
		return nil
	}
	state.released = newReleased
	state.tranchesCompleted = tranchesCompleted
	state.releasedAt = &releasedAt
	return nil
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
