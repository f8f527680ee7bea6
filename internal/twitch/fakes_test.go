package twitch

import (
	"context"
	"sync"
	"time"

	"github.com/EribyteVT/eribot/internal/domain"
)

type pairKey struct {
	guildID string
	service domain.Service
}

// fakeCredentialRepo is an in-memory domain.CredentialRepository.
type fakeCredentialRepo struct {
	mu    sync.Mutex
	pairs map[pairKey]domain.CredentialPair
	err   error
}

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{pairs: make(map[pairKey]domain.CredentialPair)}
}

func (f *fakeCredentialRepo) ReplacePair(_ context.Context, pair domain.CredentialPair) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pairs[pairKey{pair.GuildID, pair.Service}] = pair
	return nil
}

func (f *fakeCredentialRepo) GetPair(_ context.Context, guildID string, service domain.Service) (*domain.CredentialPair, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	pair, ok := f.pairs[pairKey{guildID, service}]
	if !ok {
		return nil, domain.ErrCredentialNotFound
	}
	return &pair, nil
}

func (f *fakeCredentialRepo) CountByGuildService(_ context.Context, guildID string, service domain.Service) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pairs[pairKey{guildID, service}]; ok {
		return 2, nil
	}
	return 0, nil
}

func (f *fakeCredentialRepo) DeleteByGuildService(_ context.Context, guildID string, service domain.Service) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pairs, pairKey{guildID, service})
	return nil
}

// fakeStateRepo is an in-memory domain.AuthStateRepository with single-use
// consume semantics.
type fakeStateRepo struct {
	mu     sync.Mutex
	states map[string]domain.AuthState
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{states: make(map[string]domain.AuthState)}
}

func (f *fakeStateRepo) Create(_ context.Context, state domain.AuthState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[state.State] = state
	return nil
}

func (f *fakeStateRepo) Consume(_ context.Context, state string) (*domain.AuthState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.states[state]
	if !ok {
		return nil, domain.ErrInvalidState
	}
	delete(f.states, state)
	return &row, nil
}

func (f *fakeStateRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, v := range f.states {
		if now.After(v.ExpiresAt) {
			delete(f.states, k)
			n++
		}
	}
	return n, nil
}

// fakeExchanger scripts the provider's responses.
type fakeExchanger struct {
	exchangePair *tokenPair
	exchangeErr  error
	refreshPair  *tokenPair
	refreshErr   error
	valid        bool
	validateErr  error

	exchangeCalls int
	refreshCalls  int
}

func (f *fakeExchanger) ExchangeCode(_ context.Context, _ string) (*tokenPair, error) {
	f.exchangeCalls++
	return f.exchangePair, f.exchangeErr
}

func (f *fakeExchanger) RefreshToken(_ context.Context, _ string) (*tokenPair, error) {
	f.refreshCalls++
	return f.refreshPair, f.refreshErr
}

func (f *fakeExchanger) ValidateToken(_ context.Context, _ string) (bool, error) {
	return f.valid, f.validateErr
}
