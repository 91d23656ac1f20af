package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-idp-login/internal/config"
	"github.com/jrsteele09/go-idp-login/internal/database"
	"github.com/jrsteele09/go-idp-login/login"
	"github.com/jrsteele09/go-idp-login/server"
	"github.com/jrsteele09/go-idp-login/server/authflowrepo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// A missing .env is fine; the real environment wins either way.
	_ = godotenv.Load()

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := newStateStore(c)
	if err != nil {
		return err
	}
	go authflowrepo.RunJanitor(ctx, store, c.GetPurgeInterval())

	provider, err := c.GetProvider()
	if err != nil {
		return err
	}
	if err := provider.Validate(); err != nil {
		// Kept running so /login reports the problem instead of the process crash looping.
		log.Warn().Err(err).Str("provider", provider.Name).Msg("Login provider is not fully configured")
	}

	loginService, err := login.New(ctx, provider, store, login.WithProviderTimeout(c.GetProviderTimeout()))
	if err != nil {
		return fmt.Errorf("[main run] login service: %w", err)
	}

	handler, err := server.New(c, loginService)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(srv)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

func setupLogging(c config.EnvConfig) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func newStateStore(c config.StoreConfig) (authflowrepo.Repo, error) {
	if c.GetStateStore() == config.StoreMemory {
		log.Info().Dur("ttl", c.GetStateTTL()).Msg("Using in-memory state store")
		return authflowrepo.NewInMemoryRepo(c.GetStateTTL()), nil
	}

	db, err := database.Open(c.GetStateStore(), c.GetStateStoreDSN())
	if err != nil {
		return nil, err
	}
	log.Info().Str("driver", c.GetStateStore()).Dur("ttl", c.GetStateTTL()).Msg("Using SQL state store")
	return authflowrepo.NewGormRepo(db, c.GetStateTTL())
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
