package rest

import (
	"time"

	"github.com/davidleathers/transaction-shield-backend/internal/service/assessment"
)

// Defaults applied to omitted optional assessment fields. Liveness is an
// optional external signal; an absent one must read as a confident pass,
// not a failed check.
const (
	defaultHourOfDay          = 12
	defaultLivenessConfidence = 0.9
)

// AssessTransactionRequest is the scoring request body. Optional fields
// are pointers so an omitted field is distinguishable from its zero
// value and takes the documented default instead.
type AssessTransactionRequest struct {
	TransactionID string   `json:"transaction_id,omitempty"`
	UserID        string   `json:"user_id,omitempty"`
	Amount        float64  `json:"amount" validate:"required,gt=0"`
	HourOfDay     *int     `json:"hour_of_day,omitempty" validate:"omitempty,min=0,max=23"`
	Location      string   `json:"location,omitempty"`

	LocationChanged bool `json:"location_changed,omitempty"`
	RetryCount      int  `json:"retry_count,omitempty" validate:"min=0"`

	UserAvgAmount float64 `json:"user_avg_amount,omitempty" validate:"min=0"`

	LivenessPassed     *bool    `json:"liveness_passed,omitempty"`
	LivenessConfidence *float64 `json:"liveness_confidence,omitempty" validate:"omitempty,min=0,max=1"`
}

// HourOfDayOrDefault resolves the transaction hour.
func (r *AssessTransactionRequest) HourOfDayOrDefault() int {
	if r.HourOfDay != nil {
		return *r.HourOfDay
	}
	return defaultHourOfDay
}

// LivenessOrDefault resolves the liveness observation.
func (r *AssessTransactionRequest) LivenessOrDefault() (passed bool, confidence float64) {
	passed, confidence = true, defaultLivenessConfidence
	if r.LivenessPassed != nil {
		passed = *r.LivenessPassed
	}
	if r.LivenessConfidence != nil {
		confidence = *r.LivenessConfidence
	}
	return passed, confidence
}

// CreateProfileRequest creates a profile with an explicit consent flag.
type CreateProfileRequest struct {
	UserID          string `json:"user_id" validate:"required"`
	LearningEnabled bool   `json:"learning_enabled"`
}

// ConsentRequest toggles behavioral learning for a user.
type ConsentRequest struct {
	LearningEnabled bool `json:"learning_enabled"`
}

// TrustedLocationRequest names a location to trust.
type TrustedLocationRequest struct {
	Location string `json:"location" validate:"required"`
}

// ThresholdsRequest updates the global decision thresholds. Omitted
// fields keep their current value; supplied fields are validated
// together before any change applies.
type ThresholdsRequest struct {
	AllowThreshold *float64 `json:"allow_threshold,omitempty" validate:"omitempty,min=0,max=1"`
	BlockThreshold *float64 `json:"block_threshold,omitempty" validate:"omitempty,min=0,max=1"`
}

// ConstraintsRequest replaces a user's hard policy constraints.
type ConstraintsRequest struct {
	MaxAmount             *float64              `json:"max_amount,omitempty" validate:"omitempty,gt=0"`
	AllowedLocations      []string              `json:"allowed_locations,omitempty"`
	AllowedHours          *assessment.HourRange `json:"allowed_hours,omitempty"`
	BlockUnknownLocations bool                  `json:"block_unknown_locations,omitempty"`
}

// TrainRequest uploads a batch of labeled-normal transactions.
type TrainRequest struct {
	Transactions     []assessment.TrainingTransaction `json:"transactions" validate:"required,min=3,dive"`
	TrustedLocations []string                         `json:"trusted_locations,omitempty"`
}

// TestRequest scores one transaction against the trained session.
type TestRequest struct {
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Hour     int     `json:"hour" validate:"min=0,max=23"`
	Location string  `json:"location,omitempty"`
}

// HistoryRequest bootstraps a profile from past transactions.
type HistoryRequest struct {
	Transactions []assessment.TrainingTransaction `json:"transactions" validate:"required,min=1,dive"`
}

// TokenRequest exchanges a user id and the API secret for a JWT.
type TokenRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// TokenResponse carries the issued bearer token.
type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse is the generic mutation acknowledgment.
type StatusResponse struct {
	Status string `json:"status"`
}

// TrainingStatusResponse reports the demo training session state.
type TrainingStatusResponse struct {
	Trained bool        `json:"trained"`
	Learned interface{} `json:"learned_patterns,omitempty"`
}
