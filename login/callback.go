package login

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jrsteele09/go-idp-login/server/authflowrepo"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// CallbackParams are the query (or form_post) values the provider sent back.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
	// Extra holds every received value, for provider-specific passthrough parameters.
	Extra url.Values
}

// CallbackParamsFromValues reads the standard callback parameters from v.
func CallbackParamsFromValues(v url.Values) CallbackParams {
	return CallbackParams{
		Code:             v.Get("code"),
		State:            v.Get("state"),
		Error:            v.Get("error"),
		ErrorDescription: v.Get("error_description"),
		Extra:            v,
	}
}

// HandleCallback validates the callback, consumes its state and exchanges the code.
// The steps run in order and the first failure ends the attempt; a new one needs
// StartLogin. A profile failure still returns the result holding the tokens, together
// with an ErrProfileFetch error.
func (s *Service) HandleCallback(ctx context.Context, params CallbackParams) (*Result, error) {
	if params.Error != "" {
		return nil, providerDenied(params.Error, params.ErrorDescription)
	}
	if params.Code == "" || params.State == "" {
		return nil, newError(ErrMalformedCallback, "", nil)
	}

	// Unknown, expired and replayed states look the same from outside.
	attempt, err := s.store.Consume(ctx, params.State)
	if err != nil {
		if errors.Is(err, authflowrepo.ErrNotFound) || errors.Is(err, authflowrepo.ErrAlreadyUsed) {
			log.Debug().Err(err).Msg("Rejected callback state")
			return nil, newError(ErrInvalidState, "", err)
		}
		return nil, fmt.Errorf("[login HandleCallback] consume state: %w", err)
	}

	tokens, err := s.exchange(ctx, params, attempt)
	if err != nil {
		return nil, err
	}
	result := &Result{Tokens: tokens}

	if s.provider.UserInfoURL == "" {
		return result, nil
	}
	profile, err := s.fetchProfile(ctx, tokens)
	if err != nil {
		return result, err
	}
	result.Profile = profile
	return result, nil
}

// exchange swaps the authorization code for tokens. It is never retried: codes are
// single use.
func (s *Service) exchange(ctx context.Context, params CallbackParams, attempt authflowrepo.AuthAttempt) (TokenResult, error) {
	if err := s.provider.Validate(); err != nil {
		return TokenResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	var opts []oauth2.AuthCodeOption
	if attempt.CodeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(attempt.CodeVerifier))
	}
	for _, name := range s.provider.CallbackParams {
		if v := params.Extra.Get(name); v != "" {
			opts = append(opts, oauth2.SetAuthURLParam(name, v))
		}
	}

	token, err := s.oauth2Config.Exchange(ctx, params.Code, opts...)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			detail := string(retrieveErr.Body)
			if retrieveErr.Response != nil {
				detail = fmt.Sprintf("status %d: %s", retrieveErr.Response.StatusCode, detail)
			}
			return TokenResult{}, newError(ErrTokenExchange, detail, nil)
		}
		return TokenResult{}, newError(ErrTokenExchange, "", err)
	}

	result := TokenResult{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    expiresIn(token),
		Expiry:       token.Expiry,
		UserID:       extraString(token, "user_id"),
	}
	result.Scope = extraString(token, "scope")
	result.IDToken = extraString(token, "id_token")

	if s.oidcEnabled() && result.IDToken != "" {
		idToken, err := s.idTokenVerifier.Verify(ctx, result.IDToken)
		if err != nil {
			return TokenResult{}, newError(ErrTokenExchange, "id token verification", err)
		}
		if idToken.Nonce != attempt.Nonce {
			return TokenResult{}, newError(ErrTokenExchange, "id token nonce mismatch", nil)
		}
		if result.UserID == "" {
			result.UserID = idToken.Subject
		}
	}
	return result, nil
}

// expiresIn returns the token lifetime in seconds. x/oauth2 only turns expires_in into
// Expiry, so the raw response value is read first.
func expiresIn(token *oauth2.Token) int64 {
	if token.ExpiresIn > 0 {
		return token.ExpiresIn
	}
	if v, err := strconv.ParseInt(extraString(token, "expires_in"), 10, 64); err == nil && v > 0 {
		return v
	}
	if !token.Expiry.IsZero() {
		return int64(time.Until(token.Expiry).Seconds())
	}
	return 0
}

// extraString reads a string or numeric field of the raw token response.
func extraString(token *oauth2.Token, key string) string {
	switch v := token.Extra(key).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}
