package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-idp-login/internal/config"
	"github.com/jrsteele09/go-idp-login/login"
	"github.com/rs/zerolog/log"
)

// LoginService runs the two halves of the authorization code flow.
type LoginService interface {
	StartLogin(ctx context.Context) (login.RedirectTarget, error)
	HandleCallback(ctx context.Context, params login.CallbackParams) (*login.Result, error)
}

var _ LoginService = (*login.Service)(nil)

type Server struct {
	env             string // Environment (e.g., "DEV", "PROD")
	mux             *http.ServeMux
	routes          []string
	config          config.Config
	login           LoginService
	resultHandler   login.ResultHandler
	profileRequired bool
}

type Option func(*Server)

// WithResultHandler passes every successful callback result to h before it is returned.
func WithResultHandler(h login.ResultHandler) Option {
	return func(s *Server) {
		s.resultHandler = h
	}
}

func New(config config.Config, loginService LoginService, opts ...Option) (*Server, error) {
	if loginService == nil {
		return nil, fmt.Errorf("[Server New] login service is required")
	}

	s := &Server{
		mux:             http.NewServeMux(),
		config:          config,
		login:           loginService,
		env:             config.GetEnv(),
		profileRequired: config.GetProfileRequired(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colorMethod(method), path)
}

func colorMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}
