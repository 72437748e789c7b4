package signals

import (
	"context"
	"math"

	"github.com/davidleathers/transaction-shield-backend/internal/domain/signal"
)

// LivenessName identifies the liveness signal.
const LivenessName = "liveness"

// SimulatedLiveness is a signal provider that echoes a caller-supplied
// liveness observation, clamping confidence into range. It stands in for
// a sensor-backed detector; no biometric data ever reaches this service
// either way - only {passed, confidence}.
type SimulatedLiveness struct{}

// NewSimulatedLiveness creates the simulated provider.
func NewSimulatedLiveness() *SimulatedLiveness {
	return &SimulatedLiveness{}
}

// SignalName implements signal.Provider.
func (d *SimulatedLiveness) SignalName() string {
	return LivenessName
}

// Assess implements signal.Provider.
func (d *SimulatedLiveness) Assess(_ context.Context, obs signal.Observation) (signal.Result, error) {
	confidence := math.Max(0, math.Min(1, obs.Confidence))

	result, err := signal.NewResult(LivenessName, obs.Passed, confidence)
	if err != nil {
		return signal.Result{}, err
	}
	result.Metadata["mode"] = "simulation"
	return result, nil
}

var _ signal.Provider = (*SimulatedLiveness)(nil)
