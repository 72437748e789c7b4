package signal

import (
	"context"
	"fmt"
	"math"

	"github.com/davidleathers/transaction-shield-backend/internal/domain/errors"
)

// Result is the uniform shape every signal provider produces. Signals
// inform the risk engine; they never decide an outcome on their own.
type Result struct {
	Name       string                 `json:"name"`
	Passed     bool                   `json:"passed"`
	Confidence float64                `json:"confidence"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// NewResult validates and builds a signal result. Confidence outside
// [0, 1] fails fast; it indicates a broken provider, not bad user input.
func NewResult(name string, passed bool, confidence float64) (Result, error) {
	if confidence < 0 || confidence > 1 {
		return Result{}, errors.NewValidationError("INVALID_CONFIDENCE",
			fmt.Sprintf("confidence must be between 0 and 1, got %v", confidence))
	}
	return Result{
		Name:       name,
		Passed:     passed,
		Confidence: math.Round(confidence*1000) / 1000,
		Metadata:   make(map[string]interface{}),
	}, nil
}

// Observation is the raw input handed to a signal provider.
type Observation struct {
	Passed     bool
	Confidence float64
}

// Provider is the capability interface implemented by concrete signal
// sources (simulated, sensor-backed). The core depends only on this.
type Provider interface {
	SignalName() string
	Assess(ctx context.Context, obs Observation) (Result, error)
}
