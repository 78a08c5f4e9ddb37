// Package sandbox holds the in-memory state behind the mock API: users,
// payment integrations, properties, interests and payments.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/estate-checkout/internal/domain"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownIntegration = errors.New("unknown integration")
)

type User struct {
	ID           uuid.UUID
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	CreatedAt    time.Time
}

func (u *User) Summary() domain.UserSummary {
	return domain.UserSummary{
		ID:        domain.ID(u.ID.String()),
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      "customer",
	}
}

type Options struct {
	// PendingPolls is how many status reads report Pending before a payment
	// settles as Paid.
	PendingPolls int
	// PaymentBaseURL prefixes the hosted payment page link.
	PaymentBaseURL string
	// PollBaseURL prefixes poll_url; normally the API base URL.
	PollBaseURL string
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

type Store struct {
	opts Options
	now  func() time.Time

	mu           sync.RWMutex
	users        map[uuid.UUID]*User
	usersByEmail map[string]*User
	integrations []domain.Integration
	properties   []domain.Property
	interests    []interestRecord
	payments     map[string]*paymentRecord
}

func New(opts Options) *Store {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	s := &Store{
		opts:         opts,
		now:          time.Now,
		users:        make(map[uuid.UUID]*User),
		usersByEmail: make(map[string]*User),
		payments:     make(map[string]*paymentRecord),
	}
	s.seed()
	return s
}

func (s *Store) Register(_ context.Context, email, password, firstName, lastName string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var fields []domain.FieldError
	if email == "" || !strings.Contains(email, "@") {
		fields = append(fields, domain.FieldError{Field: "email", Message: "Enter a valid email address."})
	}
	if len(password) < 8 {
		fields = append(fields, domain.FieldError{Field: "password", Message: "This password is too short. It must contain at least 8 characters."})
	}
	if len(fields) > 0 {
		return nil, &domain.ValidationError{Fields: fields}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("Register: hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usersByEmail[email]; ok {
		return nil, fmt.Errorf("Register: %w", ErrEmailTaken)
	}

	u := &User{
		ID:           uuid.New(),
		Email:        email,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	s.users[u.ID] = u
	s.usersByEmail[email] = u
	return u, nil
}

func (s *Store) Authenticate(_ context.Context, email, password string) (*User, error) {
	s.mu.RLock()
	u, ok := s.usersByEmail[strings.ToLower(strings.TrimSpace(email))]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("Authenticate: %w", ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("Authenticate: %w", ErrInvalidCredentials)
	}
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("GetUser: %w", domain.ErrNotFound)
	}
	return u, nil
}
