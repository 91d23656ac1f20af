package config

import (
	"fmt"
	"time"
)

// State store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreMySQL  = "mysql"
)

type Store struct {
	Backend       string        `env:"STATE_STORE"          envDefault:"memory"`
	DSN           string        `env:"STATE_STORE_DSN"      envDefault:"./data/auth_attempts.db"`
	TTL           time.Duration `env:"STATE_TTL"            envDefault:"10m"`
	PurgeInterval time.Duration `env:"STATE_PURGE_INTERVAL" envDefault:"1m"`
}

var _ StoreConfig = Store{}

func (s Store) GetStateStore() string {
	return s.Backend
}

// GetStateStoreDSN is a file path for sqlite and a go-sql-driver DSN for mysql.
func (s Store) GetStateStoreDSN() string {
	return s.DSN
}

func (s Store) GetStateTTL() time.Duration {
	return s.TTL
}

func (s Store) GetPurgeInterval() time.Duration {
	return s.PurgeInterval
}

func (s Store) validate() error {
	switch s.Backend {
	case StoreMemory, StoreSQLite, StoreMySQL:
	default:
		return fmt.Errorf("unknown state store %q", s.Backend)
	}
	if s.TTL <= 0 {
		return fmt.Errorf("state ttl must be positive, got %s", s.TTL)
	}
	if s.PurgeInterval <= 0 {
		return fmt.Errorf("state purge interval must be positive, got %s", s.PurgeInterval)
	}
	return nil
}
