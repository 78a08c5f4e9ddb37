package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/estate-checkout/internal/apiclient"
	"github.com/josh-kwaku/estate-checkout/internal/auth"
	"github.com/josh-kwaku/estate-checkout/internal/checkout"
	"github.com/josh-kwaku/estate-checkout/internal/domain"
	"github.com/josh-kwaku/estate-checkout/internal/handler"
	"github.com/josh-kwaku/estate-checkout/internal/logging"
	"github.com/josh-kwaku/estate-checkout/internal/payment"
	"github.com/josh-kwaku/estate-checkout/internal/property"
	"github.com/josh-kwaku/estate-checkout/internal/sandbox"
	"github.com/josh-kwaku/estate-checkout/internal/server"
	"github.com/josh-kwaku/estate-checkout/internal/testutil"
	"github.com/josh-kwaku/estate-checkout/internal/tokens"
)

const (
	testEmail    = "buyer@test.com"
	testPassword = "correct-horse"
)

type harness struct {
	store    *sandbox.Store
	tokens   *tokens.MemoryStore
	api      *apiclient.Client
	session  *auth.Manager
	payments *payment.Client
	listings *property.Client
	sleeper  *testutil.RecordingSleeper
	baseURL  string
}

func newHarness(t *testing.T, limiter sandbox.Limiter) *harness {
	t.Helper()

	store := sandbox.New(sandbox.Options{
		PendingPolls:   3,
		PaymentBaseURL: "http://pay.local",
		PollBaseURL:    "http://api.local/api/v1",
		BcryptCost:     bcrypt.MinCost,
	})
	_, err := store.Register(context.Background(), testEmail, testPassword, "Tendai", "Moyo")
	require.NoError(t, err)

	srv := httptest.NewServer(server.New(server.Options{
		Store:   store,
		Limiter: limiter,
		Tokens:  handler.TokenConfig{Secret: "e2e-secret", AccessTTL: time.Minute, RefreshTTL: time.Hour},
		Logger:  logging.Discard(),
		Version: "test",
	}))
	t.Cleanup(srv.Close)

	creds := tokens.NewMemoryStore()
	api, err := apiclient.New(srv.URL+server.APIPrefix+"/", creds)
	require.NoError(t, err)

	sleeper := &testutil.RecordingSleeper{}
	return &harness{
		store:    store,
		tokens:   creds,
		api:      api,
		session:  auth.NewManager(api, creds),
		payments: payment.NewClient(api, payment.WithSleeper(sleeper)),
		listings: property.NewClient(api),
		sleeper:  sleeper,
		baseURL:  srv.URL,
	}
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	user, err := h.session.Login(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	require.Equal(t, testEmail, user.Email)
}

func TestHealthAndDocs(t *testing.T) {
	h := newHarness(t, nil)

	resp, err := http.Get(h.baseURL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(h.baseURL + "/docs/openapi.yaml")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "openapi:")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newHarness(t, nil)

	for _, path := range []string{"/core/users/me/", "/payments/payments/abc/"} {
		resp, err := http.Get(h.baseURL + server.APIPrefix + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}

	resp, err := http.Post(h.baseURL+server.APIPrefix+"/payments/payments/", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body handler.ErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "not_authenticated", body.Code)
}

func TestCheckout_SettlesAfterPendingPolls(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)
	ctx := context.Background()

	integrations := h.payments.GetActiveIntegrations(ctx)
	require.True(t, integrations.Success, integrations.Message)
	require.Len(t, integrations.Data, 2)

	listing, err := h.listings.Get(ctx, "1")
	require.NoError(t, err)
	req, err := checkout.ViewingFeeRequest(*listing, domain.CurrencyUSD, integrations.Data[0].ID.String())
	require.NoError(t, err)
	assert.True(t, req.Amount.Equal(decimal.NewFromInt(20)))

	ctrl := checkout.NewController(h.payments, checkout.WithSleeper(h.sleeper))
	var outcomes []checkout.Outcome
	ctrl.OnOutcome(func(o checkout.Outcome) { outcomes = append(outcomes, o) })

	created, err := ctrl.Submit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, checkout.StateAwaitingRedirect, ctrl.State())
	assert.True(t, strings.HasPrefix(created.RedirectURL, "http://pay.local/pay/"))

	poll, err := ctrl.StartPolling(ctx)
	require.NoError(t, err)
	out, ok, err := poll.Wait(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, checkout.StateSettled, out.State)
	assert.Equal(t, domain.PaymentStatusPaid, out.Status)
	assert.Equal(t, uint(4), out.Attempts)
	assert.Len(t, outcomes, 1)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second, 5 * time.Second}, h.sleeper.Sleeps())
}

func TestCheckout_ProviderCancellation(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)
	ctx := context.Background()

	ctrl := checkout.NewController(h.payments, checkout.WithSleeper(h.sleeper))
	created, err := ctrl.Submit(ctx, domain.PaymentRequest{
		Amount: decimal.NewFromInt(5), Currency: domain.CurrencyZWD, IntegrationID: "paynow-2",
	})
	require.NoError(t, err)
	require.NoError(t, h.store.Settle(ctx, created.Reference, domain.PaymentStatusCancelled))

	poll, err := ctrl.StartPolling(ctx)
	require.NoError(t, err)
	out, ok, err := poll.Wait(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, checkout.StateSettled, out.State)
	assert.Equal(t, domain.PaymentStatusCancelled, out.Status)
	assert.Equal(t, uint(1), out.Attempts)
}

func TestCreatePayment_ValidationErrorMessage(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)

	res := h.payments.CreatePayment(context.Background(), domain.PaymentRequest{
		Amount: decimal.NewFromInt(5), Currency: domain.CurrencyZWD, IntegrationID: "paynow-1",
	})
	require.False(t, res.Success)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, res.Message, "does not accept ZWD")
}

func TestCreatePayment_ThrottledRetriesThenFails(t *testing.T) {
	h := newHarness(t, sandbox.NewLimiter(0.2))
	h.login(t)
	ctx := context.Background()
	req := domain.PaymentRequest{Amount: decimal.NewFromInt(10), Currency: domain.CurrencyUSD, IntegrationID: "paynow-1"}

	first := h.payments.CreatePayment(ctx, req)
	require.True(t, first.Success, first.Message)

	second := h.payments.CreatePayment(ctx, req)
	require.False(t, second.Success)
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
	assert.Equal(t, "Request was throttled.", second.Message)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, h.sleeper.Sleeps())
}

func TestStaleAccessTokenIsRefreshed(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)
	ctx := context.Background()

	creds, err := h.tokens.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, h.tokens.Save(ctx, domain.Credentials{AccessToken: "stale", RefreshToken: creds.RefreshToken}))

	interest, err := h.listings.ExpressInterest(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, domain.ID("3"), interest.Property)

	after, err := h.tokens.Load(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "stale", after.AccessToken)
	assert.Equal(t, creds.RefreshToken, after.RefreshToken, "refresh token kept when the server does not rotate it")

	valid, err := h.session.Verify(ctx)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestRestoreAndLogout(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)
	ctx := context.Background()

	restored := auth.NewManager(h.api, h.tokens)
	session, err := restored.Restore(ctx)
	require.NoError(t, err)
	require.True(t, session.Authenticated())
	assert.Equal(t, "Tendai Moyo", session.User.FullName())

	require.NoError(t, h.session.Logout(ctx))
	creds, err := h.tokens.Load(ctx)
	require.NoError(t, err)
	assert.True(t, creds.IsZero())

	_, err = h.api.Get(ctx, auth.PathCurrentUser, nil)
	require.ErrorIs(t, err, domain.ErrSessionExpired)
	assert.Equal(t, http.StatusUnauthorized, apiclient.StatusCode(err))
}

func TestPropertiesFilter(t *testing.T) {
	h := newHarness(t, nil)

	items, err := h.listings.List(context.Background(), property.Filter{Featured: true})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.ID("1"), items[0].ID)
	assert.Equal(t, domain.ID("3"), items[1].ID)

	_, err = h.listings.Get(context.Background(), "99")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
