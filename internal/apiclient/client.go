package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/josh-kwaku/estate-checkout/internal/domain"
	"github.com/josh-kwaku/estate-checkout/internal/logging"
	"github.com/josh-kwaku/estate-checkout/internal/tokens"
)

const (
	PathTokenObtain  = "core/auth/token/"
	PathTokenRefresh = "core/auth/token/refresh/"
	PathTokenVerify  = "core/auth/token/verify/"
	PathRegister     = "core/auth/register/"

	authPathPrefix  = "core/auth/"
	requestIDHeader = "X-Request-ID"
)

type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient = &http.Client{Timeout: d} }
}

// Client sends every API request. It attaches the current bearer token and
// on a 401 outside the auth endpoints refreshes once and replays the
// request once. Concurrent refreshes are coalesced into one call.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     tokens.Store

	refreshGroup singleflight.Group

	mu        sync.Mutex
	onExpired []func(ctx context.Context)
}

func New(baseURL string, store tokens.Store, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("apiclient.New: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("apiclient.New: base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		tokens:     store,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// OnSessionExpired registers fn to run after an unrecoverable refresh
// failure has cleared the stored credentials.
func (c *Client) OnSessionExpired(fn func(ctx context.Context)) {
	c.mu.Lock()
	c.onExpired = append(c.onExpired, fn)
	c.mu.Unlock()
}

func (c *Client) Tokens() tokens.Store {
	return c.tokens
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	creds, err := c.tokens.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("Do: load credentials: %w", err)
	}

	resp, err := c.send(ctx, req, creds.AccessToken)
	if !isUnauthorized(err) || isAuthPath(req.Path) {
		return resp, err
	}

	// The replay below is the only one this request gets.
	token, refreshErr := c.refreshAfter(ctx, creds.AccessToken)
	if refreshErr != nil {
		if IsCancelled(refreshErr) {
			return resp, refreshErr
		}
		return resp, fmt.Errorf("%w: %w", domain.ErrSessionExpired, err)
	}

	return c.send(ctx, req, token)
}

// Refresh exchanges the stored refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	creds, err := c.tokens.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("Refresh: load credentials: %w", err)
	}
	return c.refreshAfter(ctx, creds.AccessToken)
}

// refreshAfter returns an access token newer than stale. When another caller
// already replaced stale, the stored token is reused without a network call.
func (c *Client) refreshAfter(ctx context.Context, stale string) (string, error) {
	if token, ok := c.newerToken(ctx, stale); ok {
		return token, nil
	}

	ch := c.refreshGroup.DoChan("refresh", func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx), stale)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) newerToken(ctx context.Context, stale string) (string, bool) {
	creds, err := c.tokens.Load(ctx)
	if err != nil || creds.AccessToken == "" || creds.AccessToken == stale {
		return "", false
	}
	return creds.AccessToken, true
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	log := logging.FromContext(ctx)

	creds, err := c.tokens.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("refresh: load credentials: %w", err)
	}
	if creds.AccessToken != "" && creds.AccessToken != stale {
		return creds.AccessToken, nil
	}
	if creds.RefreshToken == "" {
		c.expire(ctx, domain.ErrNoRefreshToken)
		return "", fmt.Errorf("refresh: %w", domain.ErrNoRefreshToken)
	}

	resp, err := c.send(ctx, Request{
		Method: http.MethodPost,
		Path:   PathTokenRefresh,
		Body:   map[string]string{"refresh": creds.RefreshToken},
	}, "")
	if err != nil {
		c.expire(ctx, err)
		return "", fmt.Errorf("refresh: %w", err)
	}

	var out refreshResponse
	if err := resp.Decode(&out); err != nil {
		c.expire(ctx, err)
		return "", fmt.Errorf("refresh: %w", err)
	}
	if out.Access == "" {
		err := errors.New("response missing access token")
		c.expire(ctx, err)
		return "", fmt.Errorf("refresh: %w", err)
	}

	next := domain.Credentials{AccessToken: out.Access, RefreshToken: creds.RefreshToken}
	if out.Refresh != "" {
		next.RefreshToken = out.Refresh
	}
	if err := c.tokens.Save(ctx, next); err != nil {
		return "", fmt.Errorf("refresh: save credentials: %w", err)
	}

	log.Info("access token refreshed", "rotated_refresh", out.Refresh != "")
	return out.Access, nil
}

func (c *Client) expire(ctx context.Context, cause error) {
	log := logging.FromContext(ctx)
	log.Warn("session expired, clearing credentials", "cause", cause)

	if err := c.tokens.Clear(ctx); err != nil {
		log.Error("failed to clear credentials", "error", err)
	}

	c.mu.Lock()
	handlers := append([]func(context.Context){}, c.onExpired...)
	c.mu.Unlock()

	for _, fn := range handlers {
		fn(ctx)
	}
}

func (c *Client) send(ctx context.Context, req Request, token string) (*Response, error) {
	log := logging.FromContext(ctx)

	target := c.baseURL.JoinPath(req.Path)
	if len(req.Query) > 0 {
		target.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(req.Body); err != nil {
			return nil, fmt.Errorf("%s %s: encode body: %w", req.Method, req.Path, err)
		}
		body = buf
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: build request: %w", req.Method, req.Path, err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(requestIDHeader, requestID)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", req.Method, req.Path, err)
	}

	log.Info("api request completed",
		"method", req.Method,
		"path", req.Path,
		"status", httpResp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", requestID,
	)

	resp := &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: data}
	if httpResp.StatusCode >= 400 {
		return resp, &APIError{
			StatusCode: httpResp.StatusCode,
			Header:     httpResp.Header,
			Body:       data,
			Message:    messageFrom(data),
		}
	}
	return resp, nil
}

func isAuthPath(path string) bool {
	return strings.HasPrefix(strings.TrimPrefix(path, "/"), authPathPrefix)
}
