package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/davidleathers/transaction-shield-backend/internal/domain/errors"
	"github.com/davidleathers/transaction-shield-backend/internal/infrastructure/cache"
	"github.com/davidleathers/transaction-shield-backend/internal/service/assessment"
)

// Handler holds the REST handlers and their dependencies.
type Handler struct {
	svc      *assessment.Service
	auth     *Authenticator
	validate *validator.Validate
	logger   *slog.Logger
	version  string

	// summaryCache is optional; nil means summaries are always computed.
	summaryCache *cache.SummaryCache

	// One demo training session per server, created on first /train.
	sessionMu sync.Mutex
	session   *assessment.TrainingSession
}

// NewHandler creates the REST handler set.
func NewHandler(svc *assessment.Service, auth *Authenticator, summaryCache *cache.SummaryCache, logger *slog.Logger, version string) *Handler {
	return &Handler{
		svc:          svc,
		auth:         auth,
		validate:     validator.New(),
		logger:       logger,
		version:      version,
		summaryCache: summaryCache,
	}
}

// RegisterRoutes wires every endpoint onto mux. Health and token issue
// are public; everything else sits behind the auth middleware.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	public := Chain(
		RequestIDMiddleware(),
		LoggingMiddleware(h.logger),
		MetricsMiddleware(),
		RecoveryMiddleware(h.logger),
	)
	protected := Chain(
		RequestIDMiddleware(),
		LoggingMiddleware(h.logger),
		MetricsMiddleware(),
		RecoveryMiddleware(h.logger),
		h.auth.Middleware(),
	)

	mux.Handle("GET /health", public(http.HandlerFunc(h.handleHealth)))
	mux.Handle("POST /api/v1/auth/token", public(http.HandlerFunc(h.handleIssueToken)))

	mux.Handle("POST /api/v1/assess-transaction", protected(http.HandlerFunc(h.handleAssessTransaction)))

	mux.Handle("POST /api/v1/profiles", protected(http.HandlerFunc(h.handleCreateProfile)))
	mux.Handle("GET /api/v1/profiles/{userID}/summary", protected(http.HandlerFunc(h.handleProfileSummary)))
	mux.Handle("DELETE /api/v1/profiles/{userID}", protected(http.HandlerFunc(h.handleDeleteProfile)))
	mux.Handle("POST /api/v1/profiles/{userID}/reset", protected(http.HandlerFunc(h.handleResetProfile)))
	mux.Handle("PUT /api/v1/profiles/{userID}/consent", protected(http.HandlerFunc(h.handleConsent)))
	mux.Handle("POST /api/v1/profiles/{userID}/trusted-locations", protected(http.HandlerFunc(h.handleAddTrustedLocation)))
	mux.Handle("DELETE /api/v1/profiles/{userID}/trusted-locations/{location}", protected(http.HandlerFunc(h.handleRemoveTrustedLocation)))
	mux.Handle("POST /api/v1/profiles/{userID}/history", protected(http.HandlerFunc(h.handleBootstrapHistory)))

	mux.Handle("GET /api/v1/policies/thresholds", protected(http.HandlerFunc(h.handleGetThresholds)))
	mux.Handle("PUT /api/v1/policies/thresholds", protected(http.HandlerFunc(h.handleUpdateThresholds)))
	mux.Handle("GET /api/v1/policies/{userID}", protected(http.HandlerFunc(h.handleGetConstraints)))
	mux.Handle("PUT /api/v1/policies/{userID}", protected(http.HandlerFunc(h.handleSetConstraints)))

	mux.Handle("POST /api/v1/train", protected(http.HandlerFunc(h.handleTrain)))
	mux.Handle("POST /api/v1/test", protected(http.HandlerFunc(h.handleTest)))
	mux.Handle("GET /api/v1/training-status", protected(http.HandlerFunc(h.handleTrainingStatus)))
}

// decode parses and validates a JSON request body into v.
func (h *Handler) decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errInvalidBody
	}
	return h.validate.Struct(v)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Timestamp: time.Now(),
	})
}

func (h *Handler) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if !h.auth.Enabled() {
		writeError(w, errors.NewBusinessError("AUTH_DISABLED", "Authentication is not configured"))
		return
	}

	var req TokenRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, expiresAt, err := h.auth.IssueToken(req.UserID)
	if err != nil {
		writeError(w, errors.NewInternalError("Failed to issue token").WithCause(err))
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
	})
}

func (h *Handler) handleAssessTransaction(w http.ResponseWriter, r *http.Request) {
	var req AssessTransactionRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	livenessPassed, livenessConfidence := req.LivenessOrDefault()
	result, err := h.svc.Assess(r.Context(), assessment.Request{
		TransactionID:      req.TransactionID,
		UserID:             req.UserID,
		Amount:             req.Amount,
		HourOfDay:          req.HourOfDayOrDefault(),
		Location:           req.Location,
		LocationChanged:    req.LocationChanged,
		RetryCount:         req.RetryCount,
		UserAvgAmount:      req.UserAvgAmount,
		LivenessPassed:     livenessPassed,
		LivenessConfidence: livenessConfidence,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	observeAssessment(string(result.Decision), result.RiskScore)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req CreateProfileRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.svc.Store().Create(r.Context(), req.UserID, req.LearningEnabled)
	if err != nil {
		writeError(w, err)
		return
	}
	observeProfileUpdate("create")
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleProfileSummary(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	if h.summaryCache != nil {
		if cached := h.summaryCache.Get(r.Context(), userID); cached != nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	summary, err := h.svc.Store().Summarize(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if summary == nil {
		writeError(w, errors.NewNotFoundError("profile"))
		return
	}

	if h.summaryCache != nil {
		h.summaryCache.Set(r.Context(), userID, summary)
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	existed, err := h.svc.Store().Delete(r.Context(), r.PathValue("userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !existed {
		writeError(w, errors.NewNotFoundError("profile"))
		return
	}
	observeProfileUpdate("delete")
	writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

func (h *Handler) handleResetProfile(w http.ResponseWriter, r *http.Request) {
	existed, err := h.svc.Store().Reset(r.Context(), r.PathValue("userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !existed {
		writeError(w, errors.NewNotFoundError("profile"))
		return
	}
	observeProfileUpdate("reset")
	writeJSON(w, http.StatusOK, StatusResponse{Status: "reset"})
}

func (h *Handler) handleConsent(w http.ResponseWriter, r *http.Request) {
	var req ConsentRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.Store().SetLearningEnabled(r.Context(), r.PathValue("userID"), req.LearningEnabled); err != nil {
		writeError(w, err)
		return
	}
	observeProfileUpdate("consent")
	writeJSON(w, http.StatusOK, StatusResponse{Status: "updated"})
}

func (h *Handler) handleAddTrustedLocation(w http.ResponseWriter, r *http.Request) {
	var req TrustedLocationRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	existed, err := h.svc.Store().AddTrustedLocation(r.Context(), r.PathValue("userID"), req.Location)
	if err != nil {
		writeError(w, err)
		return
	}
	if !existed {
		writeError(w, errors.NewNotFoundError("profile"))
		return
	}
	observeProfileUpdate("trust_location")
	writeJSON(w, http.StatusOK, StatusResponse{Status: "added"})
}

func (h *Handler) handleRemoveTrustedLocation(w http.ResponseWriter, r *http.Request) {
	existed, err := h.svc.Store().RemoveTrustedLocation(r.Context(), r.PathValue("userID"), r.PathValue("location"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !existed {
		writeError(w, errors.NewNotFoundError("profile"))
		return
	}
	observeProfileUpdate("untrust_location")
	writeJSON(w, http.StatusOK, StatusResponse{Status: "removed"})
}

// handleBootstrapHistory seeds a profile from past transactions so a
// user starts with a learned baseline instead of a cold one.
func (h *Handler) handleBootstrapHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	var req HistoryRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	for _, txn := range req.Transactions {
		if err := h.svc.Behavior().RecordTransaction(r.Context(), userID, txn.Amount, txn.Hour); err != nil {
			writeError(w, err)
			return
		}
	}

	summary, err := h.svc.Store().Summarize(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if summary == nil {
		writeError(w, errors.NewNotFoundError("profile"))
		return
	}
	observeProfileUpdate("history")
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleGetThresholds(w http.ResponseWriter, _ *http.Request) {
	allow, block := h.svc.Policy().Thresholds()
	writeJSON(w, http.StatusOK, map[string]float64{
		"allow_threshold": allow,
		"block_threshold": block,
	})
}

func (h *Handler) handleUpdateThresholds(w http.ResponseWriter, r *http.Request) {
	var req ThresholdsRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.Policy().UpdateThresholds(req.AllowThreshold, req.BlockThreshold); err != nil {
		writeError(w, err)
		return
	}

	allow, block := h.svc.Policy().Thresholds()
	writeJSON(w, http.StatusOK, map[string]float64{
		"allow_threshold": allow,
		"block_threshold": block,
	})
}

func (h *Handler) handleGetConstraints(w http.ResponseWriter, r *http.Request) {
	constraints, err := h.svc.Constraints().Get(r.Context(), r.PathValue("userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if constraints == nil {
		constraints = &assessment.Constraints{}
	}
	writeJSON(w, http.StatusOK, constraints)
}

func (h *Handler) handleSetConstraints(w http.ResponseWriter, r *http.Request) {
	var req ConstraintsRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if req.AllowedHours != nil {
		if req.AllowedHours.Start < 0 || req.AllowedHours.Start > 23 ||
			req.AllowedHours.End < 0 || req.AllowedHours.End > 23 {
			writeError(w, errors.NewValidationError("INVALID_HOUR_RANGE", "allowed_hours must use hours 0-23"))
			return
		}
	}

	err := h.svc.Constraints().Set(r.Context(), r.PathValue("userID"), &assessment.Constraints{
		MaxAmount:             req.MaxAmount,
		AllowedLocations:      req.AllowedLocations,
		AllowedHours:          req.AllowedHours,
		BlockUnknownLocations: req.BlockUnknownLocations,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "updated"})
}

func (h *Handler) handleTrain(w http.ResponseWriter, r *http.Request) {
	var req TrainRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	h.sessionMu.Lock()
	if h.session == nil {
		h.session = h.svc.NewTrainingSession()
	}
	session := h.session
	h.sessionMu.Unlock()

	summary, err := session.Train(r.Context(), req.Transactions, req.TrustedLocations)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleTest(w http.ResponseWriter, r *http.Request) {
	var req TestRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	h.sessionMu.Lock()
	session := h.session
	h.sessionMu.Unlock()
	if session == nil {
		writeError(w, errors.NewBusinessError("NOT_TRAINED", "no model trained yet; upload training data first"))
		return
	}

	result, err := session.Test(r.Context(), req.Amount, req.Hour, req.Location)
	if err != nil {
		writeError(w, err)
		return
	}

	observeAssessment(result.Decision, result.RiskScore)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleTrainingStatus(w http.ResponseWriter, r *http.Request) {
	h.sessionMu.Lock()
	session := h.session
	h.sessionMu.Unlock()
	if session == nil {
		writeJSON(w, http.StatusOK, TrainingStatusResponse{Trained: false})
		return
	}

	trained, summary, err := session.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TrainingStatusResponse{Trained: trained, Learned: summary})
}
