package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/foopay/storefront-adapter/internal/domain"
	"github.com/foopay/storefront-adapter/internal/infrastructure/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrCredentialsNotFound = errors.New("provider credentials not found")

// CredentialRepository stores one credential record per environment.
// Its statements are single upserts and lookups, so it only needs the
// Executor surface.
type CredentialRepository struct {
	db persistence.Executor
}

func NewCredentialRepository(db *pgxpool.Pool) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) Get(ctx context.Context, env domain.Environment) (domain.Credentials, error) {
	query := `
		SELECT environment, app_id, bearer_token, webhook_token
		FROM provider_credentials WHERE environment = $1
	`

	var creds domain.Credentials
	err := r.db.QueryRow(ctx, query, string(env)).Scan(
		&creds.Environment,
		&creds.AppID,
		&creds.BearerToken,
		&creds.WebhookToken,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Credentials{}, ErrCredentialsNotFound
		}
		return domain.Credentials{}, fmt.Errorf("failed to load credentials: %w", err)
	}

	return creds, nil
}

func (r *CredentialRepository) Save(ctx context.Context, creds domain.Credentials) error {
	query := `
		INSERT INTO provider_credentials (environment, app_id, bearer_token, webhook_token, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (environment) DO UPDATE SET
			app_id = EXCLUDED.app_id,
			bearer_token = EXCLUDED.bearer_token,
			webhook_token = EXCLUDED.webhook_token,
			updated_at = now()
	`

	_, err := r.db.Exec(ctx, query,
		string(creds.Environment),
		creds.AppID,
		creds.BearerToken,
		creds.WebhookToken,
	)
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	return nil
}
