package assessment

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/davidleathers/transaction-shield-backend/internal/domain/profile"
	"github.com/davidleathers/transaction-shield-backend/internal/domain/signal"
	"github.com/davidleathers/transaction-shield-backend/internal/domain/transaction"
	"github.com/davidleathers/transaction-shield-backend/internal/service/behavior"
	"github.com/davidleathers/transaction-shield-backend/internal/service/policy"
	"github.com/davidleathers/transaction-shield-backend/internal/service/profilestore"
	"github.com/davidleathers/transaction-shield-backend/internal/service/risk"
)

// Service orchestrates the assessment pipeline: hard policy constraints,
// feature extraction, learned-behavior analysis, weighted risk scoring,
// threshold decisioning, and finally consent-gated learning. Everything
// up to learning is read-only, so concurrent assessments are safe.
type Service struct {
	store       *profilestore.Store
	behavior    *behavior.Model
	extractor   *risk.Extractor
	engine      *risk.Engine
	policy      *policy.Policy
	liveness    signal.Provider
	constraints ConstraintStore
	logger      *zap.Logger
	tracer      trace.Tracer
}

// NewService wires the assessment pipeline.
func NewService(
	store *profilestore.Store,
	behaviorModel *behavior.Model,
	decisionPolicy *policy.Policy,
	liveness signal.Provider,
	constraints ConstraintStore,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if constraints == nil {
		constraints = NewMemoryConstraintStore()
	}
	return &Service{
		store:       store,
		behavior:    behaviorModel,
		extractor:   risk.NewExtractor(),
		engine:      risk.NewEngine(),
		policy:      decisionPolicy,
		liveness:    liveness,
		constraints: constraints,
		logger:      logger,
		tracer:      otel.Tracer("service.assessment"),
	}
}

// Policy exposes the decision policy for threshold administration.
func (s *Service) Policy() *policy.Policy {
	return s.policy
}

// Constraints exposes the per-user hard-limit store.
func (s *Service) Constraints() ConstraintStore {
	return s.constraints
}

// Store exposes the profile store for profile administration endpoints.
func (s *Service) Store() *profilestore.Store {
	return s.store
}

// Behavior exposes the behavior model for history bootstrapping.
func (s *Service) Behavior() *behavior.Model {
	return s.behavior
}

// Assess runs the full pipeline for one transaction.
func (s *Service) Assess(ctx context.Context, req Request) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "assessment.Assess",
		trace.WithAttributes(attribute.String("user_id", req.UserID)))
	defer span.End()

	txn, err := transaction.New(req.UserID, req.Amount, req.HourOfDay, req.Location)
	if err != nil {
		return nil, err
	}
	txn.LocationChanged = req.LocationChanged
	txn.RetryCount = req.RetryCount

	// Hard constraints run before any scoring. A violation never
	// reaches the risk core and never feeds learning.
	if req.UserID != "" {
		constraints, err := s.constraints.Get(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		if violation := constraints.Violation(req); violation != "" {
			span.SetAttributes(attribute.String("policy_violation", violation))
			s.logger.Info("transaction blocked by policy constraint",
				zap.String("user_id", req.UserID),
				zap.String("violation", violation))
			return &Result{
				TransactionID:   req.TransactionID,
				Decision:        policy.DecisionBlock,
				RiskScore:       1.0,
				Reasons:         []string{"Policy constraint violated: " + violation},
				Action:          "Transaction blocked - user policy constraint violated",
				ThresholdInfo:   s.policy.Decide(1.0, nil).ThresholdInfo,
				PolicyViolation: violation,
				Timestamp:       time.Now(),
			}, nil
		}
	}

	// Baseline: learned profile when available, caller fallback otherwise.
	userAvg := req.UserAvgAmount
	if userAvg == 0 {
		userAvg = profile.DefaultAmountMean
	}
	userStd := 0.0
	if req.UserID != "" {
		p, err := s.store.Get(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		if p != nil {
			userAvg = p.AmountMean
			userStd = p.AmountStd
		}
	}

	livenessResult, err := s.liveness.Assess(ctx, signal.Observation{
		Passed:     req.LivenessPassed,
		Confidence: req.LivenessConfidence,
	})
	if err != nil {
		return nil, err
	}

	features := s.extractor.Extract(risk.ExtractorInput{
		Amount:          req.Amount,
		UserAvgAmount:   userAvg,
		UserStdAmount:   userStd,
		RetryCount:      req.RetryCount,
		LocationChanged: req.LocationChanged,
		HourOfDay:       req.HourOfDay,
		Liveness:        livenessResult,
	})

	var analysis *behavior.Analysis
	if req.UserID != "" {
		analysis, err = s.behavior.Analyze(ctx, req.UserID, txn)
		if err != nil {
			return nil, err
		}
		features.MLBehaviorAnomaly = analysis.Score
	}

	featureMap := features.Map()
	score, reasons := s.engine.ComputeRisk(featureMap)
	decision := s.policy.Decide(score, reasons)

	span.SetAttributes(
		attribute.Float64("risk_score", score),
		attribute.String("decision", string(decision.Decision)),
	)

	// Learning happens last, under consent and baseline-eligibility
	// gating inside the behavior model. Storage failures surface to the
	// caller rather than being swallowed.
	if req.UserID != "" {
		if err := s.behavior.RecordTransaction(ctx, req.UserID, req.Amount, req.HourOfDay); err != nil {
			return nil, err
		}
	}

	s.logger.Info("transaction assessed",
		zap.String("user_id", req.UserID),
		zap.Float64("risk_score", score),
		zap.String("decision", string(decision.Decision)))

	return &Result{
		TransactionID: req.TransactionID,
		Decision:      decision.Decision,
		RiskScore:     decision.RiskScore,
		Reasons:       decision.Reasons,
		Action:        decision.Action,
		ThresholdInfo: decision.ThresholdInfo,
		Features:      featureMap,
		Contributions: s.engine.FeatureContributions(featureMap),
		Behavior:      analysis,
		Timestamp:     time.Now(),
	}, nil
}
