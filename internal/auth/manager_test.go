package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/estate-checkout/internal/apiclient"
	"github.com/josh-kwaku/estate-checkout/internal/domain"
	"github.com/josh-kwaku/estate-checkout/internal/tokens"
)

type stubBackend struct {
	loginStatus  int
	loginBody    string
	verifyOK     bool
	refreshOK    bool
	profileCalls atomic.Int32
	verifyCalls  atomic.Int32
	refreshCalls atomic.Int32
}

func (b *stubBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /core/auth/token/", func(w http.ResponseWriter, r *http.Request) {
		if b.loginStatus != 0 {
			w.WriteHeader(b.loginStatus)
			_, _ = w.Write([]byte(b.loginBody))
			return
		}
		_, _ = w.Write([]byte(`{"access":"access-1","refresh":"refresh-1","user":{"id":7,"email":"buyer@test.com","first_name":"Tendai","last_name":"Moyo"}}`))
	})
	mux.HandleFunc("POST /core/auth/token/verify/", func(w http.ResponseWriter, r *http.Request) {
		b.verifyCalls.Add(1)
		if !b.verifyOK {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Token is invalid or expired"}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("POST /core/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		b.refreshCalls.Add(1)
		if !b.refreshOK {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Token is invalid or expired"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access":"access-2"}`))
	})
	mux.HandleFunc("POST /core/auth/register/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"email":["user with this email already exists."],"password":["This password is too short."]}`))
	})
	mux.HandleFunc("GET /core/users/me/", func(w http.ResponseWriter, r *http.Request) {
		b.profileCalls.Add(1)
		_ = json.NewEncoder(w).Encode(domain.UserSummary{ID: "7", Email: "buyer@test.com", FirstName: "Tendai"})
	})
	return mux
}

func newTestManager(t *testing.T, b *stubBackend, creds domain.Credentials) (*Manager, tokens.Store) {
	t.Helper()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	store := tokens.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), creds))

	client, err := apiclient.New(srv.URL+"/", store)
	require.NoError(t, err)
	return NewManager(client, store), store
}

func TestLogin_Success(t *testing.T) {
	m, store := newTestManager(t, &stubBackend{}, domain.Credentials{})

	var seen []domain.Session
	m.Subscribe(func(s domain.Session) { seen = append(seen, s) })

	user, err := m.Login(context.Background(), "buyer@test.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, domain.ID("7"), user.ID)
	assert.Equal(t, "Tendai Moyo", user.FullName())

	creds, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"}, creds)

	assert.True(t, m.Session().Authenticated())
	require.Len(t, seen, 1)
	assert.Equal(t, "buyer@test.com", seen[0].User.Email)
}

func TestLogin_ErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "bad credentials",
			status:  http.StatusUnauthorized,
			body:    `{"detail":"No active account found with the given credentials"}`,
			wantMsg: "No active account found with the given credentials",
		},
		{
			name:    "field errors",
			status:  http.StatusBadRequest,
			body:    `{"email":["This field is required."],"password":["This field may not be blank."]}`,
			wantMsg: "email: This field is required.\npassword: This field may not be blank.",
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `<html>oops</html>`,
			wantMsg: msgServer,
		},
		{
			name:    "no message",
			status:  http.StatusForbidden,
			body:    ``,
			wantMsg: "Login failed",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, store := newTestManager(t, &stubBackend{loginStatus: tc.status, loginBody: tc.body},
				domain.Credentials{AccessToken: "old", RefreshToken: "old"})

			_, err := m.Login(context.Background(), "buyer@test.com", "x")
			require.Error(t, err)

			var reqErr *RequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Equal(t, tc.wantMsg, reqErr.Message)
			assert.Equal(t, tc.status, reqErr.StatusCode)

			creds, err := store.Load(context.Background())
			require.NoError(t, err)
			assert.True(t, creds.IsZero(), "failed login clears stored tokens")
			assert.False(t, m.Session().Authenticated())
		})
	}
}

func TestLogin_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	store := tokens.NewMemoryStore()
	client, err := apiclient.New(srv.URL+"/", store)
	require.NoError(t, err)
	m := NewManager(client, store)

	_, err = m.Login(context.Background(), "buyer@test.com", "x")
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, msgNetwork, reqErr.Message)
}

func TestRegister_FieldErrors(t *testing.T) {
	m, _ := newTestManager(t, &stubBackend{}, domain.Credentials{})

	_, err := m.Register(context.Background(), RegisterRequest{Email: "buyer@test.com", Password: "x"})
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "email: user with this email already exists.\npassword: This password is too short.", reqErr.Message)
	assert.False(t, m.Session().Authenticated(), "registration does not sign in")
}

func TestLogout(t *testing.T) {
	m, store := newTestManager(t, &stubBackend{}, domain.Credentials{})
	_, err := m.Login(context.Background(), "buyer@test.com", "secret123")
	require.NoError(t, err)

	require.NoError(t, m.Logout(context.Background()))

	creds, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, creds.IsZero())
	assert.False(t, m.Session().Authenticated())
}

func TestRestore(t *testing.T) {
	expired, err := GenerateToken(uuid.New(), "buyer@test.com", TokenAccess, testSecret, -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name        string
		backend     *stubBackend
		creds       domain.Credentials
		wantUser    bool
		wantVerify  int32
		wantRefresh int32
		wantProfile int32
	}{
		{
			name:    "no stored token",
			backend: &stubBackend{},
		},
		{
			name:        "valid token",
			backend:     &stubBackend{verifyOK: true},
			creds:       domain.Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"},
			wantUser:    true,
			wantVerify:  1,
			wantProfile: 1,
		},
		{
			name:        "invalid token refreshed",
			backend:     &stubBackend{refreshOK: true},
			creds:       domain.Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"},
			wantUser:    true,
			wantVerify:  1,
			wantRefresh: 1,
			wantProfile: 1,
		},
		{
			name:        "locally expired token skips verify",
			backend:     &stubBackend{verifyOK: true, refreshOK: true},
			creds:       domain.Credentials{AccessToken: expired, RefreshToken: "refresh-1"},
			wantUser:    true,
			wantRefresh: 1,
			wantProfile: 1,
		},
		{
			name:        "refresh rejected signs out",
			backend:     &stubBackend{},
			creds:       domain.Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"},
			wantVerify:  1,
			wantRefresh: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, store := newTestManager(t, tc.backend, tc.creds)

			session, err := m.Restore(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.wantUser, session.Authenticated())
			assert.False(t, session.IsLoading)

			assert.Equal(t, tc.wantVerify, tc.backend.verifyCalls.Load(), "verify calls")
			assert.Equal(t, tc.wantRefresh, tc.backend.refreshCalls.Load(), "refresh calls")
			assert.Equal(t, tc.wantProfile, tc.backend.profileCalls.Load(), "profile calls")

			if !tc.wantUser {
				creds, err := store.Load(context.Background())
				require.NoError(t, err)
				assert.True(t, creds.IsZero())
			}
		})
	}
}

func TestRestore_ReportsLoading(t *testing.T) {
	m, _ := newTestManager(t, &stubBackend{verifyOK: true}, domain.Credentials{AccessToken: "a", RefreshToken: "r"})

	var loading []bool
	m.Subscribe(func(s domain.Session) { loading = append(loading, s.IsLoading) })

	_, err := m.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, loading)
}

func TestCheck_RefreshesWhenVerifyFails(t *testing.T) {
	b := &stubBackend{refreshOK: true}
	m, store := newTestManager(t, b, domain.Credentials{})
	_, err := m.Login(context.Background(), "buyer@test.com", "secret123")
	require.NoError(t, err)

	m.check(context.Background())

	assert.Equal(t, int32(1), b.verifyCalls.Load())
	assert.Equal(t, int32(1), b.refreshCalls.Load())
	creds, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-2", creds.AccessToken)
}

func TestKeepAlive_StopsOnCancel(t *testing.T) {
	m, _ := newTestManager(t, &stubBackend{verifyOK: true}, domain.Credentials{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.KeepAlive(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keepalive did not stop")
	}
}

func TestSessionExpiry_ResetsSession(t *testing.T) {
	b := &stubBackend{}
	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	store := tokens.NewMemoryStore()
	client, err := apiclient.New(srv.URL+"/", store)
	require.NoError(t, err)
	m := NewManager(client, store)

	_, err = m.Login(context.Background(), "buyer@test.com", "secret123")
	require.NoError(t, err)
	require.True(t, m.Session().Authenticated())

	_, err = client.Refresh(context.Background())
	require.Error(t, err)
	assert.False(t, m.Session().Authenticated())
}

func TestTakeDestination(t *testing.T) {
	m, _ := newTestManager(t, &stubBackend{}, domain.Credentials{})

	assert.Equal(t, DefaultDestination, m.TakeDestination())

	m.RememberDestination("/checkout/42")
	assert.Equal(t, "/checkout/42", m.TakeDestination())
	assert.Equal(t, DefaultDestination, m.TakeDestination())
}
