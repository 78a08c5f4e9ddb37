package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/josh-kwaku/estate-checkout/internal/apiclient"
	"github.com/josh-kwaku/estate-checkout/internal/domain"
	"github.com/josh-kwaku/estate-checkout/internal/logging"
	"github.com/josh-kwaku/estate-checkout/internal/retry"
	"github.com/josh-kwaku/estate-checkout/internal/retry/backoff"
)

const (
	PathPayments     = "payments/payments/"
	PathIntegrations = "payments/paynow-integrations/"

	DefaultIntegrationsTTL = 5 * time.Minute

	createMaxAttempts  = 3
	defaultRetryAfter  = 5 * time.Second
	maxRetryAfter      = time.Minute
	detailsMaxAttempts = 4
	detailsBaseDelay   = time.Second
	detailsMaxDelay    = 30 * time.Second
)

type api interface {
	Get(ctx context.Context, path string, query url.Values) (*apiclient.Response, error)
	Post(ctx context.Context, path string, body any) (*apiclient.Response, error)
}

type CreatedPayment struct {
	Payment     domain.Payment
	Reference   string
	RedirectURL string
	PollURL     string
	Message     string
}

type createResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Payment *domain.Payment `json:"payment"`
}

type Option func(*Client)

func WithSleeper(s retry.Sleeper) Option {
	return func(c *Client) { c.sleeper = s }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithIntegrationsTTL(ttl time.Duration) Option {
	return func(c *Client) { c.integrationsTTL = ttl }
}

type Client struct {
	api             api
	sleeper         retry.Sleeper
	now             func() time.Time
	integrationsTTL time.Duration

	mu           sync.Mutex
	integrations *integrationsCache
}

type integrationsCache struct {
	items     []domain.Integration
	expiresAt time.Time
}

func NewClient(client api, opts ...Option) *Client {
	c := &Client{
		api:             client,
		sleeper:         retry.DefaultSleeper,
		now:             time.Now,
		integrationsTTL: DefaultIntegrationsTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreatePayment submits req once, retrying only when the server rate limits
// the call. The request is expected to be validated already.
func (c *Client) CreatePayment(ctx context.Context, req domain.PaymentRequest) Result[CreatedPayment] {
	log := logging.FromContext(ctx)

	var resp *apiclient.Response
	attempts, err := retry.Retry(ctx,
		func(ctx context.Context) error {
			r, err := c.api.Post(ctx, PathPayments, req)
			resp = r
			return err
		},
		retry.Limit(createMaxAttempts),
		retry.RetryIf(isRateLimited),
		retry.Delay(c.sleeper, func(attempt uint, err error) time.Duration {
			d := retryAfter(err)
			log.Warn("payment creation rate limited, retrying", "attempt", attempt, "retry_after", d)
			return d
		}),
	)
	if err != nil {
		res := failed[CreatedPayment](ctx, err, "Payment creation failed")
		if !res.Cancelled {
			log.Error("payment creation failed", "attempts", attempts, "status", res.StatusCode, "error", err)
		}
		return res
	}

	var out createResponse
	if err := resp.Decode(&out); err != nil {
		log.Error("payment creation failed", "error", err)
		return Result[CreatedPayment]{Message: "Payment creation failed", StatusCode: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusCreated || !out.Success || out.Payment == nil {
		msg := out.Message
		if msg == "" {
			msg = "Payment creation failed"
		}
		return Result[CreatedPayment]{Message: msg, StatusCode: resp.StatusCode}
	}

	p := *out.Payment
	log.Info("payment created", "reference", p.Reference, "attempts", attempts)
	return ok(CreatedPayment{
		Payment:     p,
		Reference:   p.Reference,
		RedirectURL: p.RedirectURL,
		PollURL:     p.PollURL,
		Message:     out.Message,
	})
}

// GetPaymentDetails fetches the current state of a payment, retrying
// transient failures after 1s, 2s and 4s.
func (c *Client) GetPaymentDetails(ctx context.Context, reference string) Result[domain.Payment] {
	log := logging.FromContext(ctx)

	reference = strings.TrimSpace(reference)
	if reference == "" {
		return Result[domain.Payment]{Message: "Payment reference is required"}
	}
	path := PathPayments + url.PathEscape(reference) + "/"

	var resp *apiclient.Response
	attempts, err := retry.Retry(ctx,
		func(ctx context.Context) error {
			r, err := c.api.Get(ctx, path, nil)
			resp = r
			return err
		},
		retry.Limit(detailsMaxAttempts),
		retry.NonRetriableErrors(context.Canceled),
		retry.RetryIf(isTransient),
		retry.Backoff(c.sleeper, backoff.BinaryExponential(detailsBaseDelay), detailsMaxDelay),
	)
	if err != nil {
		res := failed[domain.Payment](ctx, err, "Failed to fetch payment details")
		if !res.Cancelled {
			log.Error("fetch payment details failed", "reference", reference, "attempts", attempts, "error", err)
		}
		return res
	}

	p, err := decodePayment(resp)
	if err != nil {
		log.Error("fetch payment details failed", "reference", reference, "error", err)
		return Result[domain.Payment]{Message: "Failed to fetch payment details", StatusCode: resp.StatusCode}
	}
	return ok(p)
}

// GetActiveIntegrations serves from cache for the TTL after a successful
// fetch. When a fetch fails, any cached list is returned regardless of age.
func (c *Client) GetActiveIntegrations(ctx context.Context) Result[[]domain.Integration] {
	log := logging.FromContext(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.integrations != nil && c.now().Before(c.integrations.expiresAt) {
		return ok(cloneIntegrations(c.integrations.items))
	}

	items, err := c.fetchIntegrations(ctx)
	if err != nil {
		if apiclient.IsCancelled(err) {
			return failed[[]domain.Integration](ctx, err, "")
		}
		if c.integrations != nil {
			log.Warn("integrations fetch failed, serving stale cache", "error", err)
			return ok(cloneIntegrations(c.integrations.items))
		}
		log.Error("integrations fetch failed", "error", err)
		return failed[[]domain.Integration](ctx, err, "Error fetching integrations")
	}

	c.integrations = &integrationsCache{items: items, expiresAt: c.now().Add(c.integrationsTTL)}
	return ok(cloneIntegrations(items))
}

// InvalidateIntegrations drops the cached list, e.g. when the session ends.
func (c *Client) InvalidateIntegrations() {
	c.mu.Lock()
	c.integrations = nil
	c.mu.Unlock()
}

func (c *Client) fetchIntegrations(ctx context.Context) ([]domain.Integration, error) {
	resp, err := c.api.Get(ctx, PathIntegrations, nil)
	if err != nil {
		return nil, fmt.Errorf("fetchIntegrations: %w", err)
	}

	var items []domain.Integration
	if err := resp.Decode(&items); err == nil {
		return items, nil
	}

	var page struct {
		Results []domain.Integration `json:"results"`
	}
	if err := resp.Decode(&page); err != nil {
		return nil, fmt.Errorf("fetchIntegrations: %w", err)
	}
	return page.Results, nil
}

func decodePayment(resp *apiclient.Response) (domain.Payment, error) {
	var wrapped struct {
		Payment *domain.Payment `json:"payment"`
	}
	if err := resp.Decode(&wrapped); err == nil && wrapped.Payment != nil {
		return *wrapped.Payment, nil
	}

	var p domain.Payment
	if err := resp.Decode(&p); err != nil {
		return domain.Payment{}, fmt.Errorf("decodePayment: %w", err)
	}
	if p.Reference == "" {
		return domain.Payment{}, fmt.Errorf("decodePayment: response has no reference")
	}
	return p, nil
}

func cloneIntegrations(items []domain.Integration) []domain.Integration {
	out := make([]domain.Integration, len(items))
	copy(out, items)
	return out
}

func isRateLimited(err error) bool {
	return apiclient.StatusCode(err) == http.StatusTooManyRequests
}

// isTransient accepts transport failures and server-side statuses; other
// client errors will not change on retry.
func isTransient(err error) bool {
	switch code := apiclient.StatusCode(err); {
	case code == 0:
		return true
	case code >= http.StatusInternalServerError:
		return true
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// retryAfter reads Retry-After as whole seconds. Missing, zero or invalid
// values mean 5s; anything above a minute is capped.
func retryAfter(err error) time.Duration {
	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) || apiErr.Header == nil {
		return defaultRetryAfter
	}
	secs, convErr := strconv.Atoi(strings.TrimSpace(apiErr.Header.Get("Retry-After")))
	if convErr != nil || secs <= 0 {
		return defaultRetryAfter
	}
	if secs > int(maxRetryAfter/time.Second) {
		return maxRetryAfter
	}
	return time.Duration(secs) * time.Second
}
