package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/josh-kwaku/estate-checkout/internal/apiclient"
	"github.com/josh-kwaku/estate-checkout/internal/domain"
	"github.com/josh-kwaku/estate-checkout/internal/logging"
	"github.com/josh-kwaku/estate-checkout/internal/tokens"
)

const (
	PathCurrentUser = "core/users/me/"

	DefaultDestination = "/dashboard"
)

type api interface {
	Get(ctx context.Context, path string, query url.Values) (*apiclient.Response, error)
	Post(ctx context.Context, path string, body any) (*apiclient.Response, error)
	Refresh(ctx context.Context) (string, error)
	OnSessionExpired(fn func(ctx context.Context))
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
}

type loginResponse struct {
	Access  string              `json:"access"`
	Refresh string              `json:"refresh"`
	User    *domain.UserSummary `json:"user"`
}

// Manager owns the signed-in session. Credentials live in the token store;
// the manager keeps the derived user and tells subscribers when it changes.
type Manager struct {
	api    api
	tokens tokens.Store
	now    func() time.Time

	mu          sync.Mutex
	session     domain.Session
	destination string
	subscribers []func(domain.Session)
}

func NewManager(client api, store tokens.Store) *Manager {
	m := &Manager{
		api:    client,
		tokens: store,
		now:    time.Now,
	}
	client.OnSessionExpired(m.expired)
	return m
}

func (m *Manager) Session() domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Subscribe registers fn to receive every session change.
func (m *Manager) Subscribe(fn func(domain.Session)) {
	m.mu.Lock()
	m.subscribers = append(m.subscribers, fn)
	m.mu.Unlock()
}

func (m *Manager) Login(ctx context.Context, email, password string) (*domain.UserSummary, error) {
	log := logging.FromContext(ctx)

	resp, err := m.api.Post(ctx, apiclient.PathTokenObtain, map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		m.clear(ctx)
		return nil, fmt.Errorf("Login: %w", mapError(err, "Login failed"))
	}

	var out loginResponse
	if err := resp.Decode(&out); err != nil || out.Access == "" {
		m.clear(ctx)
		return nil, fmt.Errorf("Login: %w", &RequestError{Message: "Login failed", StatusCode: resp.StatusCode, Err: err})
	}

	creds := domain.Credentials{AccessToken: out.Access, RefreshToken: out.Refresh}
	if err := m.tokens.Save(ctx, creds); err != nil {
		return nil, fmt.Errorf("Login: save credentials: %w", err)
	}

	user := out.User
	if user == nil {
		user, err = m.profile(ctx)
		if err != nil {
			m.clear(ctx)
			return nil, fmt.Errorf("Login: %w", err)
		}
	}

	m.set(domain.Session{User: user})
	log.Info("signed in", "user_id", user.ID)
	return user, nil
}

func (m *Manager) Register(ctx context.Context, req RegisterRequest) (*domain.UserSummary, error) {
	resp, err := m.api.Post(ctx, apiclient.PathRegister, req)
	if err != nil {
		return nil, fmt.Errorf("Register: %w", mapError(err, "Registration failed"))
	}

	var user domain.UserSummary
	if err := resp.Decode(&user); err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}
	return &user, nil
}

func (m *Manager) Logout(ctx context.Context) error {
	if err := m.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("Logout: %w", err)
	}
	m.set(domain.Session{})
	logging.FromContext(ctx).Info("signed out")
	return nil
}

// Restore rebuilds the session from stored credentials: verify the access
// token, refresh it if invalid, then load the profile. Any failure along the
// way signs the user out.
func (m *Manager) Restore(ctx context.Context) (domain.Session, error) {
	log := logging.FromContext(ctx)
	m.set(domain.Session{IsLoading: true})

	creds, err := m.tokens.Load(ctx)
	if err != nil {
		m.set(domain.Session{})
		return domain.Session{}, fmt.Errorf("Restore: load credentials: %w", err)
	}
	if creds.AccessToken == "" {
		m.set(domain.Session{})
		return m.Session(), nil
	}

	valid := false
	if !m.locallyExpired(creds.AccessToken) {
		valid, err = m.Verify(ctx)
		if apiclient.IsCancelled(err) {
			m.set(domain.Session{})
			return domain.Session{}, fmt.Errorf("Restore: %w", err)
		}
	}

	if !valid {
		if _, err := m.api.Refresh(ctx); err != nil {
			log.Warn("session restore failed", "stage", "refresh", "error", err)
			return m.signedOut(ctx, err)
		}
	}

	user, err := m.profile(ctx)
	if err != nil {
		log.Warn("session restore failed", "stage", "profile", "error", err)
		return m.signedOut(ctx, err)
	}

	m.set(domain.Session{User: user})
	return m.Session(), nil
}

// Verify reports whether the stored access token is still accepted.
func (m *Manager) Verify(ctx context.Context) (bool, error) {
	creds, err := m.tokens.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("Verify: %w", err)
	}
	if creds.AccessToken == "" {
		return false, nil
	}

	_, err = m.api.Post(ctx, apiclient.PathTokenVerify, map[string]string{"token": creds.AccessToken})
	switch code := apiclient.StatusCode(err); {
	case err == nil:
		return true, nil
	case code == http.StatusUnauthorized || code == http.StatusBadRequest:
		return false, nil
	default:
		return false, fmt.Errorf("Verify: %w", err)
	}
}

// KeepAlive verifies the session every interval and refreshes the access
// token once it stops verifying. It returns when ctx is done.
func (m *Manager) KeepAlive(ctx context.Context, interval time.Duration) {
	log := logging.FromContext(ctx)
	log.Info("session keepalive started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("session keepalive stopped")
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *Manager) check(ctx context.Context) {
	log := logging.FromContext(ctx)
	if !m.Session().Authenticated() {
		return
	}

	valid, err := m.Verify(ctx)
	if err != nil {
		log.Warn("session verify failed", "error", err)
		return
	}
	if valid {
		return
	}
	if _, err := m.api.Refresh(ctx); err != nil {
		log.Warn("session refresh failed", "error", err)
	}
}

// RememberDestination records where to send the user after they sign in.
func (m *Manager) RememberDestination(path string) {
	m.mu.Lock()
	m.destination = path
	m.mu.Unlock()
}

// TakeDestination returns the remembered destination once, then falls back
// to the dashboard.
func (m *Manager) TakeDestination() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	dest := m.destination
	m.destination = ""
	if dest == "" {
		return DefaultDestination
	}
	return dest
}

func (m *Manager) profile(ctx context.Context) (*domain.UserSummary, error) {
	resp, err := m.api.Get(ctx, PathCurrentUser, nil)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	var user domain.UserSummary
	if err := resp.Decode(&user); err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	return &user, nil
}

func (m *Manager) locallyExpired(token string) bool {
	exp, err := ExpiresAt(token)
	if err != nil {
		return false
	}
	return !m.now().Before(exp)
}

func (m *Manager) signedOut(ctx context.Context, cause error) (domain.Session, error) {
	if err := m.Logout(ctx); err != nil {
		return domain.Session{}, fmt.Errorf("Restore: %w", errors.Join(cause, err))
	}
	return domain.Session{}, nil
}

func (m *Manager) clear(ctx context.Context) {
	if err := m.tokens.Clear(ctx); err != nil {
		logging.FromContext(ctx).Error("failed to clear credentials", "error", err)
	}
	m.set(domain.Session{})
}

// expired runs after the HTTP client gave up on refreshing. The credentials
// are already gone; only the derived session needs resetting.
func (m *Manager) expired(_ context.Context) {
	m.set(domain.Session{})
}

func (m *Manager) set(s domain.Session) {
	m.mu.Lock()
	m.session = s
	subs := append([]func(domain.Session){}, m.subscribers...)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}
