// Package authflowrepo stores in-flight authorization attempts keyed by their state token.
//
// A Repo must make Consume atomic: for any state, exactly one caller observes success and
// every other caller gets ErrAlreadyUsed until the attempt expires. Expired attempts are
// reported as ErrNotFound.
package authflowrepo

import (
	"context"
	"time"

	apperrors "github.com/jrsteele09/go-idp-login/internal/errors"
)

// DefaultTTL is how long an unconsumed attempt stays valid.
const DefaultTTL = 10 * time.Minute

var (
	ErrNotFound        = apperrors.ErrNotFound
	ErrAlreadyUsed     = apperrors.ErrAlreadyUsed
	ErrConflict        = apperrors.ErrConflict
	ErrInvalidArgument = apperrors.ErrInvalidArgument
)

// AuthAttempt is one authorization flow between StartLogin and its callback.
type AuthAttempt struct {
	State        string
	CodeVerifier string // empty when the provider does not use PKCE
	Nonce        string // empty unless the provider is OpenID Connect
	Used         bool
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

type Repo interface {
	// Create registers a new unused attempt. It fails with ErrConflict if a live attempt
	// already exists for state.
	Create(ctx context.Context, state string, attempt AuthAttempt) error
	// Consume marks the attempt used and returns it.
	Consume(ctx context.Context, state string) (AuthAttempt, error)
	// PurgeExpired removes attempts past their expiry and returns how many went.
	PurgeExpired(ctx context.Context) (int, error)
}

// Clock returns the current time. Tests swap it to move attempts past their TTL.
type Clock func() time.Time
