package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/josh-kwaku/estate-checkout/internal/apiclient"
	"github.com/josh-kwaku/estate-checkout/internal/auth"
	"github.com/josh-kwaku/estate-checkout/internal/config"
	"github.com/josh-kwaku/estate-checkout/internal/domain"
	"github.com/josh-kwaku/estate-checkout/internal/logging"
	"github.com/josh-kwaku/estate-checkout/internal/payment"
	"github.com/josh-kwaku/estate-checkout/internal/property"
	"github.com/josh-kwaku/estate-checkout/internal/repository"
	"github.com/josh-kwaku/estate-checkout/internal/tokens"
)

// app holds everything a command needs, built once per invocation.
type app struct {
	cfg      *config.Config
	api      *apiclient.Client
	session  *auth.Manager
	payments *payment.Client
	listings *property.Client

	// destination is the site page matching the running command.
	destination string

	db *sql.DB
}

func (a *app) open(ctx context.Context, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init("estate-cli", cfg.LogLevel, cfg.AppEnv, stderr)

	store, err := a.tokenStore(ctx, cfg)
	if err != nil {
		return err
	}

	api, err := apiclient.New(cfg.APIBaseURL, store, apiclient.WithTimeout(cfg.HTTPTimeout))
	if err != nil {
		return err
	}
	api.OnSessionExpired(func(context.Context) {
		fmt.Fprintf(stderr, "Your session has expired. Sign in again: %s\n", a.signInURL())
	})

	a.cfg = cfg
	a.api = api
	a.session = auth.NewManager(api, store)
	a.payments = payment.NewClient(api, payment.WithIntegrationsTTL(cfg.IntegrationsCacheTTL))
	a.listings = property.NewClient(api)

	a.session.Subscribe(a.sessionChanged)
	if a.destination != "" {
		a.session.RememberDestination(a.destination)
	}
	return nil
}

// sessionChanged drops session-scoped caches once nobody is signed in.
func (a *app) sessionChanged(s domain.Session) {
	if !s.Authenticated() && !s.IsLoading {
		a.payments.InvalidateIntegrations()
	}
}

// signInURL links to the sign-in page, carrying the page the running
// command stands for so the site can return there afterwards.
func (a *app) signInURL() string {
	if a.destination == "" {
		return a.cfg.SignInURL()
	}
	return a.cfg.SignInURL() + "?next=" + url.QueryEscape(a.destination)
}

func (a *app) tokenStore(ctx context.Context, cfg *config.Config) (tokens.Store, error) {
	switch cfg.TokenStore {
	case config.TokenStoreMemory:
		return tokens.NewMemoryStore(), nil
	case config.TokenStorePostgres:
		db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
			MaxOpenConns:     cfg.DBMaxOpenConns,
			MaxIdleConns:     cfg.DBMaxIdleConns,
			ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
			ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
		})
		if err != nil {
			return nil, err
		}
		a.db = db
		return repository.NewCredentialsRepository(db, repository.DefaultProfile), nil
	default:
		return tokens.NewFileStore(cfg.TokenFile), nil
	}
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// requireSession restores the stored session and fails when nobody is
// signed in.
func (a *app) requireSession(ctx context.Context) error {
	s, err := a.session.Restore(ctx)
	if err != nil {
		return err
	}
	if !s.Authenticated() {
		return fmt.Errorf("not signed in: run `estate login` or visit %s", a.signInURL())
	}
	return nil
}

// destinationFor maps a command to the site page showing the same thing.
func destinationFor(cmd *cobra.Command, args []string) string {
	switch cmd.Name() {
	case "properties":
		return "/properties"
	case "property", "interest":
		if len(args) > 0 {
			return "/properties/" + url.PathEscape(args[0])
		}
	case "pay":
		if id, _ := cmd.Flags().GetString("property"); id != "" {
			return "/properties/" + url.PathEscape(id) + "/checkout"
		}
		return "/checkout"
	case "status":
		if len(args) > 0 {
			return "/payments/" + url.PathEscape(args[0])
		}
	}
	return ""
}
