package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/davidleathers/transaction-shield-backend/internal/domain/profile"
)

// profileRepository implements profile.Repository using PostgreSQL.
type profileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a Postgres-backed profile repository.
func NewProfileRepository(db *sql.DB) profile.Repository {
	return &profileRepository{db: db}
}

// Get retrieves a profile by user ID. Absent profiles return (nil, nil).
func (r *profileRepository) Get(ctx context.Context, userID string) (*profile.UserProfile, error) {
	query := `
		SELECT
			user_id, learning_enabled,
			amount_mean, amount_std, amount_count,
			hour_histogram, transaction_count, trusted_locations,
			created_at, updated_at
		FROM user_profiles
		WHERE user_id = $1
	`

	var p profile.UserProfile
	var histogramJSON, locationsJSON []byte

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.LearningEnabled,
		&p.AmountMean, &p.AmountStd, &p.AmountCount,
		&histogramJSON, &p.TransactionCount, &locationsJSON,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if err := json.Unmarshal(histogramJSON, &p.HourHistogram); err != nil {
		return nil, fmt.Errorf("failed to unmarshal hour histogram: %w", err)
	}
	if err := json.Unmarshal(locationsJSON, &p.TrustedLocations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trusted locations: %w", err)
	}

	return &p, nil
}

// Save upserts the full profile row.
func (r *profileRepository) Save(ctx context.Context, p *profile.UserProfile) error {
	histogramJSON, err := json.Marshal(p.HourHistogram)
	if err != nil {
		return fmt.Errorf("failed to marshal hour histogram: %w", err)
	}
	locations := p.TrustedLocations
	if locations == nil {
		locations = []profile.TrustedLocation{}
	}
	locationsJSON, err := json.Marshal(locations)
	if err != nil {
		return fmt.Errorf("failed to marshal trusted locations: %w", err)
	}

	query := `
		INSERT INTO user_profiles (
			user_id, learning_enabled,
			amount_mean, amount_std, amount_count,
			hour_histogram, transaction_count, trusted_locations,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			learning_enabled = EXCLUDED.learning_enabled,
			amount_mean = EXCLUDED.amount_mean,
			amount_std = EXCLUDED.amount_std,
			amount_count = EXCLUDED.amount_count,
			hour_histogram = EXCLUDED.hour_histogram,
			transaction_count = EXCLUDED.transaction_count,
			trusted_locations = EXCLUDED.trusted_locations,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		p.UserID, p.LearningEnabled,
		p.AmountMean, p.AmountStd, p.AmountCount,
		histogramJSON, p.TransactionCount, locationsJSON,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	return nil
}

// Delete removes the profile row, reporting whether one existed.
func (r *profileRepository) Delete(ctx context.Context, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM user_profiles WHERE user_id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}
