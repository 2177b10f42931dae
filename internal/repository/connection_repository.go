package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ovela/onboard-service/internal/domain"
	"github.com/ovela/onboard-service/pkg/database"
)

// connectionRepository implements ConnectionRepository interface
type connectionRepository struct {
	db *database.Postgres
}

// NewConnectionRepository creates a new connection repository
func NewConnectionRepository(db *database.Postgres) ConnectionRepository {
	return &connectionRepository{db: db}
}

// Upsert inserts or updates the connection row for (user, integration).
// The unique constraint on (user_id, integration_id) makes repeated webhook
// deliveries converge on a single row.
func (r *connectionRepository) Upsert(ctx context.Context, conn *domain.Connection) error {
	query := `
		INSERT INTO connections (id, user_id, integration_id, external_connection_id, status, metadata, last_sync_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, integration_id) DO UPDATE
		SET external_connection_id = EXCLUDED.external_connection_id,
		    status = EXCLUDED.status,
		    metadata = EXCLUDED.metadata,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	if conn.ID == "" {
		conn.ID = uuid.New().String()
	}

	now := time.Now()
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now

	metadata, err := marshalMetadata(conn.Metadata)
	if err != nil {
		return err
	}

	err = r.db.DB.QueryRowContext(ctx, query,
		conn.ID,
		conn.UserID,
		conn.IntegrationID,
		conn.ExternalConnectionID,
		conn.Status,
		metadata,
		conn.LastSyncAt,
		conn.CreatedAt,
		conn.UpdatedAt,
	).Scan(&conn.ID, &conn.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert connection: %w", err)
	}

	return nil
}

// GetByID retrieves a connection by ID
func (r *connectionRepository) GetByID(ctx context.Context, id string) (*domain.Connection, error) {
	query := selectConnection + ` WHERE id = $1`
	return r.scanOne(r.db.DB.QueryRowContext(ctx, query, id), fmt.Sprintf("connection with id %s", id))
}

// GetActiveByUser retrieves the user's active connection for an integration
func (r *connectionRepository) GetActiveByUser(ctx context.Context, userID, integrationID string) (*domain.Connection, error) {
	query := selectConnection + ` WHERE user_id = $1 AND integration_id = $2 AND status = $3`
	row := r.db.DB.QueryRowContext(ctx, query, userID, integrationID, domain.ConnectionStatusActive)
	return r.scanOne(row, fmt.Sprintf("active connection for user %s", userID))
}

// ListByUser retrieves all connections for a user
func (r *connectionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Connection, error) {
	query := selectConnection + ` WHERE user_id = $1 ORDER BY created_at`

	rows, err := r.db.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()

	var conns []*domain.Connection
	for rows.Next() {
		conn, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate connections: %w", err)
	}

	return conns, nil
}

// UpdateLastSync stamps the connection's last successful data sync
func (r *connectionRepository) UpdateLastSync(ctx context.Context, id string) error {
	query := `
		UPDATE connections
		SET last_sync_at = $2, updated_at = $2
		WHERE id = $1
	`
	return r.exec(ctx, query, id, time.Now())
}

// UpdateStatus updates the connection status
func (r *connectionRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `
		UPDATE connections
		SET status = $2, updated_at = $3
		WHERE id = $1
	`
	return r.exec(ctx, query, id, status, time.Now())
}

const selectConnection = `
	SELECT id, user_id, integration_id, external_connection_id, status, metadata, last_sync_at, created_at, updated_at
	FROM connections`

func (r *connectionRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update connection: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("connection not found: %w", ErrNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *connectionRepository) scanOne(row *sql.Row, what string) (*domain.Connection, error) {
	conn, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s not found: %w", what, ErrNotFound)
		}
		return nil, err
	}
	return conn, nil
}

func (r *connectionRepository) scanRow(row rowScanner) (*domain.Connection, error) {
	conn := &domain.Connection{}
	var metadata []byte
	var lastSyncAt sql.NullTime

	err := row.Scan(
		&conn.ID,
		&conn.UserID,
		&conn.IntegrationID,
		&conn.ExternalConnectionID,
		&conn.Status,
		&metadata,
		&lastSyncAt,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan connection: %w", err)
	}

	if lastSyncAt.Valid {
		conn.LastSyncAt = &lastSyncAt.Time
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &conn.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode connection metadata: %w", err)
		}
	}

	return conn, nil
}

func marshalMetadata(metadata map[string]string) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode connection metadata: %w", err)
	}
	return b, nil
}
