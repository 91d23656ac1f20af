// Package login runs the OAuth2 authorization code flow with PKCE against one external
// identity provider: StartLogin builds the provider redirect and HandleCallback turns
// the provider's callback into tokens and a user profile.
package login

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-idp-login/server/authflowrepo"
	"golang.org/x/oauth2"
)

// DefaultProviderTimeout bounds each call to the provider's token and user-info endpoints.
const DefaultProviderTimeout = 10 * time.Second

type Service struct {
	provider        ProviderConfig
	store           authflowrepo.Repo
	oauth2Config    *oauth2.Config
	httpClient      *http.Client
	idTokenVerifier *oidc.IDTokenVerifier
	timeout         time.Duration
}

type Option func(*Service)

// WithHTTPClient sets the client used for every provider call.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithProviderTimeout overrides DefaultProviderTimeout.
func WithProviderTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithIDTokenVerifier turns on OpenID Connect handling without discovery.
func WithIDTokenVerifier(v *oidc.IDTokenVerifier) Option {
	return func(s *Service) {
		s.idTokenVerifier = v
	}
}

// New creates the login service. When the provider has an Issuer and no verifier was
// supplied, the issuer's discovery document is fetched and its endpoints fill any
// authorization or token URL left empty.
func New(ctx context.Context, provider ProviderConfig, store authflowrepo.Repo, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("[login New] state store is required")
	}

	s := &Service{
		provider:   provider,
		store:      store,
		httpClient: http.DefaultClient,
		timeout:    DefaultProviderTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	if provider.Issuer != "" && s.idTokenVerifier == nil {
		if err := s.discover(ctx); err != nil {
			return nil, err
		}
	}

	s.oauth2Config = &oauth2.Config{
		ClientID:     s.provider.ClientID,
		ClientSecret: s.provider.ClientSecret,
		RedirectURL:  s.provider.RedirectURI,
		Scopes:       s.provider.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   s.provider.AuthURL,
			TokenURL:  s.provider.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	return s, nil
}

func (s *Service) discover(ctx context.Context) error {
	// The provider keeps ctx for later JWKS refreshes, so bound calls with a client
	// timeout instead of a context deadline.
	client := &http.Client{Transport: s.httpClient.Transport, Timeout: s.timeout}
	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, client), s.provider.Issuer)
	if err != nil {
		return newError(ErrConfiguration, "oidc discovery for "+s.provider.Issuer, err)
	}

	endpoint := provider.Endpoint()
	if s.provider.AuthURL == "" {
		s.provider.AuthURL = endpoint.AuthURL
	}
	if s.provider.TokenURL == "" {
		s.provider.TokenURL = endpoint.TokenURL
	}
	if s.provider.UserInfoURL == "" {
		s.provider.UserInfoURL = provider.UserInfoEndpoint()
	}
	s.idTokenVerifier = provider.Verifier(&oidc.Config{ClientID: s.provider.ClientID})
	return nil
}

// Provider returns the effective provider configuration, after discovery.
func (s *Service) Provider() ProviderConfig {
	return s.provider
}

func (s *Service) oidcEnabled() bool {
	return s.idTokenVerifier != nil
}
