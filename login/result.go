package login

import (
	"context"
	"time"
)

// TokenResult is what the token endpoint returned for one completed attempt.
type TokenResult struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresIn    int64     `json:"expires_in,omitempty"`
	Expiry       time.Time `json:"expiry,omitzero"`
	Scope        string    `json:"scope,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
	// UserID is the provider-assigned user identifier, when the provider reveals one.
	UserID string `json:"user_id,omitempty"`
}

// Profile holds the provider's user attributes as returned by its user-info endpoint.
type Profile map[string]any

// Result is the outcome of a successful callback.
type Result struct {
	Tokens  TokenResult `json:"oauth_tokens"`
	Profile Profile     `json:"profile_data"`
}

// ResultHandler receives completed results, e.g. to provision a local account.
type ResultHandler interface {
	HandleResult(ctx context.Context, result *Result) error
}

// ResultHandlerFunc adapts a function to ResultHandler.
type ResultHandlerFunc func(ctx context.Context, result *Result) error

func (f ResultHandlerFunc) HandleResult(ctx context.Context, result *Result) error {
	return f(ctx, result)
}
