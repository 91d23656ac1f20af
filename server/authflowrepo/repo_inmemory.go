package authflowrepo

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-idp-login/internal/errors"
	"github.com/jrsteele09/go-idp-login/pkce"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface.
// It suits single-instance deployments; attempts are lost on restart.
type InMemoryRepo struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      Clock
	attempts map[string]*AuthAttempt
}

var _ Repo = (*InMemoryRepo)(nil)

// Option configures a repo.
type Option func(*options)

type options struct {
	clock Clock
}

// WithClock overrides time.Now.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

func applyOptions(opts []Option) options {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewInMemoryRepo creates a new in-memory auth flow state repository
func NewInMemoryRepo(ttl time.Duration, opts ...Option) *InMemoryRepo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	o := applyOptions(opts)
	return &InMemoryRepo{
		ttl:      ttl,
		now:      o.clock,
		attempts: make(map[string]*AuthAttempt),
	}
}

// Create stores a new unused attempt
func (r *InMemoryRepo) Create(_ context.Context, state string, attempt AuthAttempt) error {
	if state == "" {
		return apperrors.Wrapf(ErrInvalidArgument, "[authflowrepo Create] empty state")
	}

	if attempt.CodeVerifier != "" && !pkce.ValidVerifier(attempt.CodeVerifier) {
		return apperrors.Wrapf(ErrInvalidArgument, "[authflowrepo Create] malformed code verifier")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if existing, ok := r.attempts[state]; ok && now.Before(existing.ExpiresAt) {
		return ErrConflict
	}

	// Store a copy so callers cannot flip Used behind the lock
	r.attempts[state] = &AuthAttempt{
		State:        state,
		CodeVerifier: attempt.CodeVerifier,
		Nonce:        attempt.Nonce,
		CreatedAt:    now,
		ExpiresAt:    now.Add(r.ttl),
	}
	return nil
}

// Consume marks the attempt used and returns a copy of it
func (r *InMemoryRepo) Consume(_ context.Context, state string) (AuthAttempt, error) {
	if state == "" {
		return AuthAttempt{}, ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	attempt, exists := r.attempts[state]
	if !exists {
		return AuthAttempt{}, ErrNotFound
	}
	if !r.now().Before(attempt.ExpiresAt) {
		delete(r.attempts, state)
		return AuthAttempt{}, ErrNotFound
	}
	if attempt.Used {
		return AuthAttempt{}, ErrAlreadyUsed
	}

	attempt.Used = true
	return *attempt, nil
}

// PurgeExpired drops every attempt whose TTL has passed, used or not
func (r *InMemoryRepo) PurgeExpired(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	purged := 0
	for state, attempt := range r.attempts {
		if !now.Before(attempt.ExpiresAt) {
			delete(r.attempts, state)
			purged++
		}
	}
	return purged, nil
}

// Len returns the number of stored attempts, including used ones not yet purged
func (r *InMemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}
