package login

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	maxProfileBody  = 1 << 20
	maxProfileTries = 2
)

// fetchProfile calls the user-info endpoint, retrying once after a network error or
// a 5xx response.
func (s *Service) fetchProfile(ctx context.Context, tokens TokenResult) (Profile, error) {
	var lastErr error
	for try := 1; try <= maxProfileTries; try++ {
		profile, retryable, err := s.fetchProfileOnce(ctx, tokens)
		if err == nil {
			return profile, nil
		}
		lastErr = err
		if !retryable || try == maxProfileTries || ctx.Err() != nil {
			break
		}
		log.Debug().Int("try", try).Err(err).Msg("Retrying profile fetch")
	}
	return nil, lastErr
}

func (s *Service) fetchProfileOnce(ctx context.Context, tokens TokenResult) (Profile, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := s.newProfileRequest(ctx, tokens)
	if err != nil {
		return nil, false, newError(ErrProfileFetch, "build request", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		// url.Error repeats the request URL, which may carry the access token.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, true, newError(ErrProfileFetch, "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBody))
	if err != nil {
		return nil, true, newError(ErrProfileFetch, "read body", err)
	}
	if resp.StatusCode >= 500 {
		return nil, true, newError(ErrProfileFetch, fmt.Sprintf("status %d: %s", resp.StatusCode, body), nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, false, newError(ErrProfileFetch, fmt.Sprintf("status %d: %s", resp.StatusCode, body), nil)
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, false, newError(ErrProfileFetch, "decode body", err)
	}
	if profile == nil {
		return nil, false, newError(ErrProfileFetch, "empty profile body", nil)
	}
	// Some APIs (VK) answer 200 with an error object.
	if e, ok := profile["error"]; ok && e != nil {
		return nil, false, newError(ErrProfileFetch, string(body), nil)
	}
	return profile, false, nil
}

func (s *Service) newProfileRequest(ctx context.Context, tokens TokenResult) (*http.Request, error) {
	u, err := url.Parse(s.provider.UserInfoURL)
	if err != nil {
		return nil, err
	}

	params := u.Query()
	for k, v := range s.provider.UserInfoParams {
		params.Set(k, v)
	}
	if s.provider.UserIDParam != "" && tokens.UserID != "" {
		params.Set(s.provider.UserIDParam, tokens.UserID)
	}
	placement := s.provider.userInfoToken()
	if placement == TokenInQuery {
		params.Set("access_token", tokens.AccessToken)
	}

	var req *http.Request
	if method := s.provider.userInfoMethod(); method == http.MethodPost {
		u.RawQuery = ""
		req, err = http.NewRequestWithContext(ctx, method, u.String(), strings.NewReader(params.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		u.RawQuery = params.Encode()
		req, err = http.NewRequestWithContext(ctx, method, u.String(), nil)
		if err != nil {
			return nil, err
		}
	}

	switch placement {
	case TokenInBearerHeader:
		req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	case TokenInOAuthHeader:
		req.Header.Set("Authorization", "OAuth "+tokens.AccessToken)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}
