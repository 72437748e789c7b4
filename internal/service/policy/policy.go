package policy

import (
	"fmt"
	"sync"

	"github.com/davidleathers/transaction-shield-backend/internal/domain/errors"
)

// Decision is a terminal label for one transaction. There are no
// transitions; the policy is re-evaluated per transaction.
type Decision string

const (
	DecisionAllow Decision = "ALLOW"
	DecisionDelay Decision = "DELAY"
	DecisionBlock Decision = "BLOCK"
)

// Default decision boundaries.
const (
	DefaultAllowThreshold = 0.3
	DefaultBlockThreshold = 0.6
)

// ThresholdInfo reports the configured boundaries and how far the score
// sits from the nearest one(s), for transparency.
type ThresholdInfo struct {
	CurrentRisk         float64 `json:"current_risk"`
	AllowThreshold      float64 `json:"allow_threshold"`
	BlockThreshold      float64 `json:"block_threshold"`
	DistanceToNextLevel string  `json:"distance_to_next_level"`
}

// Result is the outcome of applying the policy to one risk score.
type Result struct {
	Decision      Decision      `json:"decision"`
	RiskScore     float64       `json:"risk_score"`
	Reasons       []string      `json:"reasons"`
	Action        string        `json:"action"`
	ThresholdInfo ThresholdInfo `json:"threshold_info"`
}

// Policy maps a risk score to a decision using ordered thresholds:
// risk < allow → ALLOW, allow <= risk < block → DELAY, risk >= block →
// BLOCK. Thresholds are updatable at runtime; updates are validated and
// rejected wholesale on failure.
type Policy struct {
	mu             sync.RWMutex
	allowThreshold float64
	blockThreshold float64
}

// New creates a policy with the default thresholds.
func New() *Policy {
	return &Policy{
		allowThreshold: DefaultAllowThreshold,
		blockThreshold: DefaultBlockThreshold,
	}
}

// Decide applies the thresholds to a risk score. Pure with respect to
// its inputs; reasons are echoed through untouched.
func (p *Policy) Decide(riskScore float64, reasons []string) Result {
	p.mu.RLock()
	allow, block := p.allowThreshold, p.blockThreshold
	p.mu.RUnlock()

	if reasons == nil {
		reasons = []string{}
	}

	var decision Decision
	var action string
	switch {
	case riskScore < allow:
		decision = DecisionAllow
		action = "Transaction approved - proceed normally"
	case riskScore < block:
		decision = DecisionDelay
		action = "Transaction flagged for manual review - temporary hold"
	default:
		decision = DecisionBlock
		action = "Transaction blocked - high fraud risk detected"
	}

	return Result{
		Decision:  decision,
		RiskScore: riskScore,
		Reasons:   reasons,
		Action:    action,
		ThresholdInfo: ThresholdInfo{
			CurrentRisk:         riskScore,
			AllowThreshold:      allow,
			BlockThreshold:      block,
			DistanceToNextLevel: boundaryDistance(riskScore, allow, block),
		},
	}
}

// Thresholds returns the current (allow, block) pair.
func (p *Policy) Thresholds() (float64, float64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.allowThreshold, p.blockThreshold
}

// UpdateThresholds replaces one or both thresholds. Nil leaves a
// threshold unchanged. The update is rejected, state untouched, if a
// value falls outside [0, 1] or the result would not satisfy
// allow < block.
func (p *Policy) UpdateThresholds(allow, block *float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	newAllow, newBlock := p.allowThreshold, p.blockThreshold
	if allow != nil {
		if *allow < 0 || *allow > 1 {
			return errors.NewValidationError("INVALID_THRESHOLD", "allow_threshold must be between 0 and 1")
		}
		newAllow = *allow
	}
	if block != nil {
		if *block < 0 || *block > 1 {
			return errors.NewValidationError("INVALID_THRESHOLD", "block_threshold must be between 0 and 1")
		}
		newBlock = *block
	}
	if newAllow >= newBlock {
		return errors.NewValidationError("INVALID_THRESHOLD", "allow_threshold must be less than block_threshold")
	}

	p.allowThreshold = newAllow
	p.blockThreshold = newBlock
	return nil
}

func boundaryDistance(risk, allow, block float64) string {
	switch {
	case risk < allow:
		return fmt.Sprintf("%.3f below DELAY threshold", allow-risk)
	case risk < block:
		return fmt.Sprintf("%.3f above ALLOW, %.3f below BLOCK", risk-allow, block-risk)
	default:
		return fmt.Sprintf("%.3f above BLOCK threshold", risk-block)
	}
}
