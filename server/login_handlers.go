package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jrsteele09/go-idp-login/login"
)

// LoginHandler starts a login attempt and redirects the browser to the provider (GET /login)
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target, err := s.login.StartLogin(r.Context())
		if err != nil {
			s.writeLoginError(w, r, err)
			return
		}
		http.Redirect(w, r, target.URL, http.StatusFound)
	}
}

// CallbackHandler completes the attempt named by the state parameter (GET and POST /callback)
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// r.Form holds both query params and form_post values
		if err := r.ParseForm(); err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid callback parameters")
			return
		}

		result, err := s.login.HandleCallback(r.Context(), login.CallbackParamsFromValues(r.Form))
		if err != nil {
			if s.profileRequired || result == nil || !errors.Is(err, login.ErrProfileFetch) {
				s.writeLoginError(w, r, err)
				return
			}
			requestLogger(r).Warn().Err(err).Msg("Profile fetch failed, returning tokens only")
		}

		if s.resultHandler != nil {
			if err := s.resultHandler.HandleResult(r.Context(), result); err != nil {
				requestLogger(r).Error().Err(err).Msg("Result handler failed")
				writeDetail(w, http.StatusBadGateway, "failed to process login result")
				return
			}
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// writeLoginError maps a login flow error to its status and public message. The full
// error, including any provider payload, only goes to the log.
func (s *Server) writeLoginError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForLoginError(err)
	message := "internal server error"
	var loginErr *login.Error
	if errors.As(err, &loginErr) {
		message = loginErr.PublicMessage()
	}

	logger := requestLogger(r)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("Login flow failed")
	} else {
		logger.Warn().Err(err).Int("status", status).Msg("Login attempt rejected")
	}
	writeDetail(w, status, message)
}

func statusForLoginError(err error) int {
	switch {
	case errors.Is(err, login.ErrMalformedCallback),
		errors.Is(err, login.ErrInvalidState),
		errors.Is(err, login.ErrProviderDenied),
		errors.Is(err, login.ErrTokenExchange),
		errors.Is(err, login.ErrProfileFetch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
