// Package server assembles the sandbox API: routes, middleware and the
// embedded OpenAPI document.
package server

import (
	_ "embed"
	"log/slog"
	"net/http"

	"github.com/josh-kwaku/estate-checkout/internal/handler"
	"github.com/josh-kwaku/estate-checkout/internal/middleware"
	"github.com/josh-kwaku/estate-checkout/internal/sandbox"
)

const APIPrefix = "/api/v1"

//go:embed openapi.yaml
var openapiSpec []byte

type Options struct {
	Store   *sandbox.Store
	Limiter sandbox.Limiter
	Tokens  handler.TokenConfig
	Logger  *slog.Logger
	Version string
}

func New(opts Options) http.Handler {
	if opts.Limiter == nil {
		opts.Limiter = sandbox.NoLimiter{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	authH := handler.NewAuthHandler(opts.Store, opts.Tokens)
	paymentH := handler.NewPaymentHandler(opts.Store, opts.Limiter)
	propertyH := handler.NewPropertyHandler(opts.Store)
	healthH := handler.NewHealthHandler(opts.Version)

	protected := func(fn http.HandlerFunc) http.Handler {
		return middleware.Auth(opts.Tokens.Secret)(fn)
	}

	api := http.NewServeMux()
	api.HandleFunc("POST /core/auth/token/{$}", authH.Login)
	api.HandleFunc("POST /core/auth/token/refresh/{$}", authH.Refresh)
	api.HandleFunc("POST /core/auth/token/verify/{$}", authH.Verify)
	api.HandleFunc("POST /core/auth/register/{$}", authH.Register)
	api.Handle("GET /core/users/me/{$}", protected(authH.Me))

	api.HandleFunc("GET /properties/properties/{$}", propertyH.List)
	api.HandleFunc("GET /properties/properties/{id}/{$}", propertyH.Get)
	api.Handle("POST /properties/interests/{$}", protected(propertyH.CreateInterest))

	api.HandleFunc("GET /payments/paynow-integrations/{$}", paymentH.Integrations)
	api.Handle("POST /payments/payments/{$}", protected(paymentH.Create))
	api.Handle("GET /payments/payments/{reference}/{$}", protected(paymentH.Get))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthH.Liveness)
	mux.HandleFunc("GET /docs", handler.ServeDocs("/docs/openapi.yaml"))
	mux.HandleFunc("GET /docs/openapi.yaml", handler.ServeSpec(openapiSpec))
	mux.Handle(APIPrefix+"/", http.StripPrefix(APIPrefix, api))

	return middleware.Chain(mux,
		middleware.Tracing,
		middleware.Logging(opts.Logger),
		middleware.Recovery,
	)
}
