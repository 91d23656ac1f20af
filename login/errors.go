package login

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the login flow. Match them with errors.Is.
var (
	ErrConfiguration     = errors.New("login is not configured")
	ErrMalformedCallback = errors.New("missing code or state parameter")
	ErrInvalidState      = errors.New("invalid or expired state")
	ErrProviderDenied    = errors.New("authorization denied by provider")
	ErrTokenExchange     = errors.New("token exchange failed")
	ErrProfileFetch      = errors.New("profile fetch failed")
)

// Error carries one of the kinds above together with what may be shown to the user
// (Message) and what may only be logged (Detail).
type Error struct {
	Kind    error
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// PublicMessage returns the text that is safe to put in a response body.
func (e *Error) PublicMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func newError(kind error, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

func providerDenied(code, description string) *Error {
	msg := fmt.Sprintf("authorization failed: %s", code)
	if description != "" {
		msg += " - " + description
	}
	return &Error{Kind: ErrProviderDenied, Message: msg, Detail: msg}
}
