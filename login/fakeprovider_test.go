package login_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// fakeProvider is an httptest identity provider with scriptable token and user-info endpoints.
type fakeProvider struct {
	t      *testing.T
	server *httptest.Server

	mu            sync.Mutex
	tokenForms    []url.Values
	profileReqs   []*http.Request
	tokenHandler  http.HandlerFunc
	profileStatus []int // consumed one per call; 200 once exhausted
	profileBody   map[string]any

	tokenCalls   atomic.Int32
	profileCalls atomic.Int32

	signingKey *rsa.PrivateKey
	idTokenSub string
	nonce      string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	p := &fakeProvider{
		t:           t,
		signingKey:  key,
		profileBody: map[string]any{"id": "u-42", "login": "jdoe", "default_email": "jdoe@example.com"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", p.handleToken)
	mux.HandleFunc("/userinfo", p.handleProfile)
	mux.HandleFunc("GET /.well-known/openid-configuration", p.handleDiscovery)
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakeProvider) URL() string {
	return p.server.URL
}

func (p *fakeProvider) handleToken(w http.ResponseWriter, r *http.Request) {
	p.tokenCalls.Add(1)
	_ = r.ParseForm()

	p.mu.Lock()
	p.tokenForms = append(p.tokenForms, r.PostForm)
	handler := p.tokenHandler
	p.mu.Unlock()

	if handler != nil {
		handler(w, r)
		return
	}

	resp := map[string]any{
		"access_token":  "at-1",
		"token_type":    "bearer",
		"expires_in":    3600,
		"refresh_token": "rt-1",
		"user_id":       12345,
	}
	p.mu.Lock()
	sub, nonce := p.idTokenSub, p.nonce
	p.mu.Unlock()
	if sub != "" {
		idToken, err := p.mintIDToken(sub, nonce)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp["id_token"] = idToken
	}
	writeTestJSON(w, http.StatusOK, resp)
}

func (p *fakeProvider) handleProfile(w http.ResponseWriter, r *http.Request) {
	p.profileCalls.Add(1)
	_ = r.ParseForm()

	p.mu.Lock()
	p.profileReqs = append(p.profileReqs, r)
	status := http.StatusOK
	if len(p.profileStatus) > 0 {
		status = p.profileStatus[0]
		p.profileStatus = p.profileStatus[1:]
	}
	body := p.profileBody
	p.mu.Unlock()

	if status != http.StatusOK {
		writeTestJSON(w, status, map[string]any{"message": "upstream unhappy"})
		return
	}
	writeTestJSON(w, http.StatusOK, body)
}

func (p *fakeProvider) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	writeTestJSON(w, http.StatusOK, map[string]any{
		"issuer":                                p.URL(),
		"authorization_endpoint":                p.URL() + "/authorize",
		"token_endpoint":                        p.URL() + "/token",
		"userinfo_endpoint":                     p.URL() + "/userinfo",
		"jwks_uri":                              p.URL() + "/jwks",
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func (p *fakeProvider) mintIDToken(sub, nonce string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   p.URL(),
		"aud":   testClientID,
		"sub":   sub,
		"nonce": nonce,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	})
	return token.SignedString(p.signingKey)
}

func (p *fakeProvider) setIDToken(sub, nonce string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idTokenSub = sub
	p.nonce = nonce
}

func (p *fakeProvider) setTokenHandler(h http.HandlerFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenHandler = h
}

func (p *fakeProvider) setProfileStatus(codes ...int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profileStatus = codes
}

func (p *fakeProvider) lastTokenForm() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(p.t, p.tokenForms)
	return p.tokenForms[len(p.tokenForms)-1]
}

func (p *fakeProvider) lastProfileRequest() *http.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(p.t, p.profileReqs)
	return p.profileReqs[len(p.profileReqs)-1]
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
