package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/josh-kwaku/estate-checkout/internal/domain"
)

const DefaultProfile = "default"

// CredentialsRepository stores one token pair per profile.
type CredentialsRepository struct {
	db      *sql.DB
	profile string
}

func NewCredentialsRepository(db *sql.DB, profile string) *CredentialsRepository {
	if profile == "" {
		profile = DefaultProfile
	}
	return &CredentialsRepository{db: db, profile: profile}
}

func (r *CredentialsRepository) Load(ctx context.Context) (domain.Credentials, error) {
	var c domain.Credentials
	err := r.db.QueryRowContext(ctx,
		`SELECT access_token, refresh_token FROM client_credentials WHERE profile = $1`,
		r.profile,
	).Scan(&c.AccessToken, &c.RefreshToken)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Credentials{}, nil
	}
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("Load: %w", err)
	}
	return c, nil
}

func (r *CredentialsRepository) Save(ctx context.Context, c domain.Credentials) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO client_credentials (profile, access_token, refresh_token, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (profile) DO UPDATE
		SET access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			updated_at = now()`,
		r.profile, c.AccessToken, c.RefreshToken,
	)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}

func (r *CredentialsRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM client_credentials WHERE profile = $1`,
		r.profile,
	)
	if err != nil {
		return fmt.Errorf("Clear: %w", err)
	}
	return nil
}
