package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/go-idp-login/login"
)

type OAuth struct {
	Provider        string        `env:"OAUTH_PROVIDER"         envDefault:"yandex"`
	ClientID        string        `env:"OAUTH_CLIENT_ID"`
	ClientSecret    string        `env:"OAUTH_CLIENT_SECRET"`
	RedirectURI     string        `env:"OAUTH_REDIRECT_URI"`
	AuthURL         string        `env:"OAUTH_AUTH_URL"`
	TokenURL        string        `env:"OAUTH_TOKEN_URL"`
	UserInfoURL     string        `env:"OAUTH_USERINFO_URL"`
	Scopes          string        `env:"OAUTH_SCOPES"`
	Issuer          string        `env:"OAUTH_ISSUER"`
	UsePKCE         bool          `env:"OAUTH_USE_PKCE"         envDefault:"true"`
	ProfileRequired bool          `env:"OAUTH_PROFILE_REQUIRED" envDefault:"false"`
	ProviderTimeout time.Duration `env:"OAUTH_PROVIDER_TIMEOUT" envDefault:"10s"`
}

var _ OAuthConfig = OAuth{}

// GetProvider returns the preset named by OAUTH_PROVIDER with any explicitly set
// endpoint, scope or issuer values applied over it. The result is not validated: a
// missing client id is reported by the login flow itself.
func (o OAuth) GetProvider() (login.ProviderConfig, error) {
	p, ok := login.ProviderByName(o.Provider, o.ClientID, o.ClientSecret, o.RedirectURI)
	if !ok {
		return login.ProviderConfig{}, fmt.Errorf("[config GetProvider] unknown provider %q", o.Provider)
	}

	if o.AuthURL != "" {
		p.AuthURL = o.AuthURL
	}
	if o.TokenURL != "" {
		p.TokenURL = o.TokenURL
	}
	if o.UserInfoURL != "" {
		p.UserInfoURL = o.UserInfoURL
	}
	if scopes := splitScopes(o.Scopes); len(scopes) > 0 {
		p.Scopes = scopes
	}
	if o.Issuer != "" {
		p.Issuer = o.Issuer
	}
	p.UsePKCE = o.UsePKCE
	return p, nil
}

func (o OAuth) GetProviderTimeout() time.Duration {
	return o.ProviderTimeout
}

// GetProfileRequired reports whether a failed profile fetch fails the whole callback.
func (o OAuth) GetProfileRequired() bool {
	return o.ProfileRequired
}

// splitScopes accepts space or comma separated scope lists.
func splitScopes(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ','
	})
}
