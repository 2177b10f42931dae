package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/ovela/onboard-service/internal/domain"
	"github.com/ovela/onboard-service/pkg/database"
)

// userRepository implements UserRepository interface
type userRepository struct {
	db *database.Postgres
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Postgres) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user profile in the database
func (r *userRepository) Create(ctx context.Context, user *domain.UserProfile) error {
	query := `
		INSERT INTO user_profiles (id, email, business_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	businessData, err := marshalBusinessData(user.BusinessData)
	if err != nil {
		return err
	}

	_, err = r.db.DB.ExecContext(ctx, query,
		user.ID,
		user.Email,
		businessData,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("profile with email %s already exists: %w", user.Email, ErrDuplicateEmail)
			}
		}
		return fmt.Errorf("failed to create user profile: %w", err)
	}

	return nil
}

// GetByID retrieves a user profile by ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.UserProfile, error) {
	query := `
		SELECT id, email, business_data, created_at, updated_at
		FROM user_profiles
		WHERE id = $1
	`
	return r.scanOne(r.db.DB.QueryRowContext(ctx, query, id), fmt.Sprintf("profile with id %s", id))
}

// GetByEmail retrieves a user profile by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	query := `
		SELECT id, email, business_data, created_at, updated_at
		FROM user_profiles
		WHERE email = $1
	`
	return r.scanOne(r.db.DB.QueryRowContext(ctx, query, email), fmt.Sprintf("profile with email %s", email))
}

// UpsertByEmail returns the existing profile for the email or creates one
func (r *userRepository) UpsertByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	user, err := r.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	user = &domain.UserProfile{Email: email}
	if err := r.Create(ctx, user); err != nil {
		// Lost a race with a concurrent verify; read the winner.
		if errors.Is(err, ErrDuplicateEmail) {
			return r.GetByEmail(ctx, email)
		}
		return nil, err
	}

	return user, nil
}

// UpdateBusinessData overwrites the business_data snapshot for a user
func (r *userRepository) UpdateBusinessData(ctx context.Context, userID string, data *domain.BusinessData) error {
	query := `
		UPDATE user_profiles
		SET business_data = $2, updated_at = $3
		WHERE id = $1
	`

	businessData, err := marshalBusinessData(data)
	if err != nil {
		return err
	}

	result, err := r.db.DB.ExecContext(ctx, query, userID, businessData, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update business data: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("profile with id %s not found: %w", userID, ErrNotFound)
	}

	return nil
}

func (r *userRepository) scanOne(row *sql.Row, what string) (*domain.UserProfile, error) {
	user := &domain.UserProfile{}
	var businessData []byte

	err := row.Scan(
		&user.ID,
		&user.Email,
		&businessData,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s not found: %w", what, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	if len(businessData) > 0 {
		user.BusinessData = &domain.BusinessData{}
		if err := json.Unmarshal(businessData, user.BusinessData); err != nil {
			return nil, fmt.Errorf("failed to decode business data: %w", err)
		}
	}

	return user, nil
}

func marshalBusinessData(data *domain.BusinessData) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode business data: %w", err)
	}
	return b, nil
}
