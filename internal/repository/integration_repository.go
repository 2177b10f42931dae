package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ovela/onboard-service/internal/domain"
	"github.com/ovela/onboard-service/pkg/database"
)

// integrationRepository implements IntegrationRepository interface
type integrationRepository struct {
	db *database.Postgres
}

// NewIntegrationRepository creates a new integration repository
func NewIntegrationRepository(db *database.Postgres) IntegrationRepository {
	return &integrationRepository{db: db}
}

// GetByID retrieves an integration by ID
func (r *integrationRepository) GetByID(ctx context.Context, id string) (*domain.Integration, error) {
	query := `
		SELECT id, provider_key, display_name, enabled, created_at
		FROM integrations
		WHERE id = $1
	`
	return r.scanOne(r.db.DB.QueryRowContext(ctx, query, id), fmt.Sprintf("integration with id %s", id))
}

// GetByProviderKey retrieves an integration by its provider config key
func (r *integrationRepository) GetByProviderKey(ctx context.Context, providerKey string) (*domain.Integration, error) {
	query := `
		SELECT id, provider_key, display_name, enabled, created_at
		FROM integrations
		WHERE provider_key = $1
	`
	return r.scanOne(r.db.DB.QueryRowContext(ctx, query, providerKey), fmt.Sprintf("integration with provider key %s", providerKey))
}

// List retrieves all integrations
func (r *integrationRepository) List(ctx context.Context) ([]*domain.Integration, error) {
	query := `
		SELECT id, provider_key, display_name, enabled, created_at
		FROM integrations
		ORDER BY provider_key
	`

	rows, err := r.db.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}
	defer rows.Close()

	var integrations []*domain.Integration
	for rows.Next() {
		integration := &domain.Integration{}
		if err := rows.Scan(
			&integration.ID,
			&integration.ProviderKey,
			&integration.DisplayName,
			&integration.Enabled,
			&integration.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan integration: %w", err)
		}
		integrations = append(integrations, integration)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate integrations: %w", err)
	}

	return integrations, nil
}

func (r *integrationRepository) scanOne(row *sql.Row, what string) (*domain.Integration, error) {
	integration := &domain.Integration{}

	err := row.Scan(
		&integration.ID,
		&integration.ProviderKey,
		&integration.DisplayName,
		&integration.Enabled,
		&integration.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s not found: %w", what, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get integration: %w", err)
	}

	return integration, nil
}
