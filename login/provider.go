package login

import (
	"net/http"
	"strings"
)

// TokenPlacement says how the access token is presented to the user-info endpoint.
type TokenPlacement string

const (
	TokenInBearerHeader TokenPlacement = "bearer" // Authorization: Bearer <token>
	TokenInOAuthHeader  TokenPlacement = "oauth"  // Authorization: OAuth <token> (Yandex)
	TokenInQuery        TokenPlacement = "query"  // ?access_token=<token> (VK API)
)

// Provider preset names accepted by ProviderByName.
const (
	ProviderYandex  = "yandex"
	ProviderVKID    = "vkid"
	ProviderGeneric = "generic"
)

// ProviderConfig describes the single identity provider this service logs users in with.
type ProviderConfig struct {
	Name         string
	ClientID     string
	ClientSecret string // empty for public clients; then never sent
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	Scopes       []string

	// AuthParams are static extra query parameters for the authorization URL.
	AuthParams map[string]string
	// CallbackParams names callback query parameters forwarded to the token request
	// when present, e.g. VK ID's device_id.
	CallbackParams []string

	UsePKCE bool
	// Issuer turns on OpenID Connect: discovery, nonce and id_token verification.
	Issuer string

	UserInfoURL    string
	UserInfoMethod string // GET when empty
	UserInfoToken  TokenPlacement
	UserInfoParams map[string]string
	// UserIDParam receives the provider user id taken from the token response.
	UserIDParam string
}

// Validate reports a configuration error for settings the flow cannot run without.
func (p ProviderConfig) Validate() error {
	var missing []string
	if p.ClientID == "" {
		missing = append(missing, "client id")
	}
	if p.RedirectURI == "" {
		missing = append(missing, "redirect uri")
	}
	if p.AuthURL == "" {
		missing = append(missing, "authorization url")
	}
	if p.TokenURL == "" {
		missing = append(missing, "token url")
	}
	if len(p.Scopes) == 0 {
		missing = append(missing, "scopes")
	}
	if len(missing) > 0 {
		return &Error{
			Kind:   ErrConfiguration,
			Detail: "missing " + strings.Join(missing, ", "),
		}
	}

	switch p.UserInfoToken {
	case "", TokenInBearerHeader, TokenInOAuthHeader, TokenInQuery:
	default:
		return &Error{Kind: ErrConfiguration, Detail: "unknown user info token placement " + string(p.UserInfoToken)}
	}
	switch strings.ToUpper(p.UserInfoMethod) {
	case "", http.MethodGet, http.MethodPost:
	default:
		return &Error{Kind: ErrConfiguration, Detail: "unsupported user info method " + p.UserInfoMethod}
	}
	return nil
}

func (p ProviderConfig) userInfoMethod() string {
	if p.UserInfoMethod == "" {
		return http.MethodGet
	}
	return strings.ToUpper(p.UserInfoMethod)
}

func (p ProviderConfig) userInfoToken() TokenPlacement {
	if p.UserInfoToken == "" {
		return TokenInBearerHeader
	}
	return p.UserInfoToken
}

// Yandex returns the Yandex ID preset.
func Yandex(clientID, clientSecret, redirectURI string) ProviderConfig {
	return ProviderConfig{
		Name:           ProviderYandex,
		ClientID:       clientID,
		ClientSecret:   clientSecret,
		RedirectURI:    redirectURI,
		AuthURL:        "https://oauth.yandex.ru/authorize",
		TokenURL:       "https://oauth.yandex.ru/token",
		Scopes:         []string{"login:email", "login:info"},
		UsePKCE:        true,
		UserInfoURL:    "https://login.yandex.ru/info",
		UserInfoToken:  TokenInOAuthHeader,
		UserInfoParams: map[string]string{"format": "json"},
	}
}

// VKID returns the VK ID preset. The profile comes from the VK API users.get method.
func VKID(clientID, clientSecret, redirectURI string) ProviderConfig {
	return ProviderConfig{
		Name:           ProviderVKID,
		ClientID:       clientID,
		ClientSecret:   clientSecret,
		RedirectURI:    redirectURI,
		AuthURL:        "https://id.vk.com/authorize",
		TokenURL:       "https://id.vk.com/oauth2/auth",
		Scopes:         []string{"openid", "profile", "email"},
		CallbackParams: []string{"device_id"},
		UsePKCE:        true,
		UserInfoURL:    "https://api.vk.com/method/users.get",
		UserInfoToken:  TokenInQuery,
		UserInfoParams: map[string]string{
			"fields": "first_name,last_name,photo_200,email",
			"v":      "5.131",
		},
		UserIDParam: "user_ids",
	}
}

// ProviderByName returns the named preset, or a bare generic config whose URLs the
// caller fills in.
func ProviderByName(name, clientID, clientSecret, redirectURI string) (ProviderConfig, bool) {
	switch strings.ToLower(name) {
	case ProviderYandex:
		return Yandex(clientID, clientSecret, redirectURI), true
	case ProviderVKID:
		return VKID(clientID, clientSecret, redirectURI), true
	case ProviderGeneric, "":
		return ProviderConfig{
			Name:         ProviderGeneric,
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURI:  redirectURI,
			UsePKCE:      true,
		}, true
	}
	return ProviderConfig{}, false
}
