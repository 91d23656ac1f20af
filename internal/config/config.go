package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jrsteele09/go-idp-login/login"
)

type Config interface {
	EnvConfig
	OAuthConfig
	StoreConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
	GetLogLevel() string
}

type OAuthConfig interface {
	GetProvider() (login.ProviderConfig, error)
	GetProviderTimeout() time.Duration
	GetProfileRequired() bool
}

type StoreConfig interface {
	GetStateStore() string
	GetStateStoreDSN() string
	GetStateTTL() time.Duration
	GetPurgeInterval() time.Duration
}

type mainConfig struct {
	EnvVars
	OAuth
	Store
}

var _ Config = mainConfig{}

// New reads the configuration from the process environment.
func New() (Config, error) {
	var c mainConfig
	for _, target := range []any{&c.EnvVars, &c.OAuth, &c.Store} {
		if err := env.Parse(target); err != nil {
			return nil, fmt.Errorf("[config New] parse env: %w", err)
		}
	}

	if c.OAuth.RedirectURI == "" {
		c.OAuth.RedirectURI = strings.TrimRight(c.EnvVars.BaseURL, "/") + "/callback"
	}
	if err := c.Store.validate(); err != nil {
		return nil, fmt.Errorf("[config New] %w", err)
	}
	return c, nil
}
