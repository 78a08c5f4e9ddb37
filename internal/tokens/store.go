// Package tokens persists the access/refresh token pair. Readers always see
// the latest saved pair; the refresh flow is the only writer besides
// login and logout.
package tokens

import (
	"context"
	"sync"

	"github.com/josh-kwaku/estate-checkout/internal/domain"
)

type Store interface {
	Load(ctx context.Context) (domain.Credentials, error)
	Save(ctx context.Context, creds domain.Credentials) error
	Clear(ctx context.Context) error
}

type MemoryStore struct {
	mu    sync.RWMutex
	creds domain.Credentials
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (domain.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds, nil
}

func (s *MemoryStore) Save(_ context.Context, creds domain.Credentials) error {
	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.creds = domain.Credentials{}
	s.mu.Unlock()
	return nil
}
