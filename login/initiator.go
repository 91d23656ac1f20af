package login

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-idp-login/pkce"
	"github.com/jrsteele09/go-idp-login/server/authflowrepo"
	"golang.org/x/oauth2"
)

// RedirectTarget is where the browser is sent to authenticate.
type RedirectTarget struct {
	URL   string
	State string
}

// StartLogin registers a new attempt and returns the provider authorization URL.
// Configuration is checked first so a misconfigured service never allocates state.
func (s *Service) StartLogin(ctx context.Context) (RedirectTarget, error) {
	if err := s.provider.Validate(); err != nil {
		return RedirectTarget{}, err
	}

	state := pkce.NewState()
	attempt := authflowrepo.AuthAttempt{State: state}
	opts := make([]oauth2.AuthCodeOption, 0, 3+len(s.provider.AuthParams))

	if s.provider.UsePKCE {
		attempt.CodeVerifier = pkce.GenerateVerifier()
		opts = append(opts,
			oauth2.SetAuthURLParam("code_challenge", pkce.DeriveChallenge(attempt.CodeVerifier)),
			oauth2.SetAuthURLParam("code_challenge_method", pkce.MethodS256),
		)
	}
	if s.oidcEnabled() {
		attempt.Nonce = pkce.NewNonce()
		opts = append(opts, oidc.Nonce(attempt.Nonce))
	}
	for k, v := range s.provider.AuthParams {
		if v != "" {
			opts = append(opts, oauth2.SetAuthURLParam(k, v))
		}
	}

	if err := s.store.Create(ctx, state, attempt); err != nil {
		return RedirectTarget{}, fmt.Errorf("[login StartLogin] register attempt: %w", err)
	}

	return RedirectTarget{
		URL:   s.oauth2Config.AuthCodeURL(state, opts...),
		State: state,
	}, nil
}
