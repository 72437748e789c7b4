package assessment

import (
	"time"

	"github.com/davidleathers/transaction-shield-backend/internal/service/behavior"
	"github.com/davidleathers/transaction-shield-backend/internal/service/policy"
)

// Request describes one transaction to assess. UserID may be empty for
// anonymous assessments; the learned-behavior signal is then unavailable
// and UserAvgAmount serves as the baseline.
type Request struct {
	TransactionID string
	UserID        string
	Amount        float64
	HourOfDay     int
	Location      string

	LocationChanged bool
	RetryCount      int

	// Caller-supplied baseline fallback, used only when the user has no
	// stored profile.
	UserAvgAmount float64

	// Liveness observation from the capture layer. The raw observation
	// is converted by the configured signal provider; only
	// {passed, confidence} ever enters this service.
	LivenessPassed     bool
	LivenessConfidence float64
}

// Result is the full assessment outcome: the decision plus everything a
// caller needs to explain it.
type Result struct {
	TransactionID string               `json:"transaction_id,omitempty"`
	Decision      policy.Decision      `json:"decision"`
	RiskScore     float64              `json:"risk_score"`
	Reasons       []string             `json:"reasons"`
	Action        string               `json:"action"`
	ThresholdInfo policy.ThresholdInfo `json:"threshold_info"`

	Features      map[string]float64 `json:"features,omitempty"`
	Contributions map[string]float64 `json:"contributions,omitempty"`

	// Behavior carries the learned-pattern analysis details, including
	// the status a caller needs to tell "no signal" apart from
	// "confirmed normal" when the score is exactly zero. Nil for
	// anonymous assessments.
	Behavior *behavior.Analysis `json:"behavior,omitempty"`

	// PolicyViolation names the hard constraint that short-circuited
	// the assessment, empty otherwise.
	PolicyViolation string `json:"policy_violation,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}
