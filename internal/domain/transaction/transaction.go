package transaction

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/transaction-shield-backend/internal/domain/errors"
)

// Transaction is the ephemeral description of a payment attempt under
// assessment. The core never persists it; only aggregated statistics
// survive in the user profile.
type Transaction struct {
	ID        uuid.UUID
	UserID    string
	Amount    float64
	HourOfDay int
	// Location is the caller-supplied location identifier, empty when
	// unknown.
	Location string
	// LocationChanged indicates the caller observed a change from the
	// user's usual location.
	LocationChanged bool
	RetryCount      int
	OccurredAt      time.Time
}

// New validates and builds a transaction.
func New(userID string, amount float64, hourOfDay int, location string) (*Transaction, error) {
	if amount <= 0 {
		return nil, errors.NewValidationError("INVALID_AMOUNT", "amount must be positive")
	}
	if hourOfDay < 0 || hourOfDay > 23 {
		return nil, errors.NewValidationError("INVALID_HOUR", "hour_of_day must be in [0, 23]")
	}
	return &Transaction{
		ID:         uuid.New(),
		UserID:     userID,
		Amount:     amount,
		HourOfDay:  hourOfDay,
		Location:   location,
		OccurredAt: time.Now(),
	}, nil
}
