package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/opensource-gov/banyan/internal/domain"
	"github.com/opensource-gov/banyan/internal/dss"
	"github.com/opensource-gov/banyan/internal/engine"
	"github.com/opensource-gov/banyan/internal/repository"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo        domain.Repository
	cache       domain.Cache
	bus         domain.EventBus
	engine      *engine.Engine
	synthesizer *dss.Synthesizer
	version     string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, eng *engine.Engine, synth *dss.Synthesizer, version string) *Handler {
	return &Handler{
		repo:        repo,
		cache:       cache,
		bus:         bus,
		engine:      eng,
		synthesizer: synth,
		version:     version,
	}
}

// EvaluateRequest is the request body for POST /evaluate.
type EvaluateRequest struct {
	ClaimID string        `json:"claimId,omitempty"`
	Record  domain.Record `json:"record"`
}

// EvaluateResponse is the response for POST /evaluate.
type EvaluateResponse struct {
	EvaluationID    string                    `json:"evaluationId"`
	ClaimID         string                    `json:"claimId,omitempty"`
	Results         []domain.EvaluationResult `json:"results"`
	Recommendations domain.Recommendations    `json:"recommendations"`
	Metadata        domain.EvaluationMetadata `json:"metadata"`
}

// Evaluate handles POST /evaluate: synchronous claim evaluation.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	traceID := GetTraceID(ctx)

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if len(req.Record) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "record is required",
		})
		return
	}

	// 1. Evaluate rules
	results, err := h.engine.EvaluateAll(ctx, req.Record)
	if err != nil {
		slog.Error("rule evaluation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "rule evaluation failed",
		})
		return
	}

	// 2. Synthesize recommendations
	evaluation := h.synthesizer.Run(ctx, &dss.RunInput{
		ClaimID:   req.ClaimID,
		TraceID:   traceID,
		Record:    req.Record,
		Results:   results,
		StartTime: start,
	})

	// 3. Save evaluation for audit
	if h.repo != nil {
		if err := h.repo.SaveEvaluation(ctx, evaluation); err != nil {
			slog.Error("failed to save evaluation", "error", err)
		}
	}

	// 4. Publish downstream events
	if h.bus != nil {
		payload, _ := json.Marshal(evaluation)
		if err := h.bus.Publish(ctx, domain.TopicClaimEvaluated, payload); err != nil {
			slog.Error("failed to publish evaluation", "error", err)
		}
		if len(evaluation.Recommendations.HighPriorityActions) > 0 {
			if err := h.bus.Publish(ctx, domain.TopicPriorityAlert, payload); err != nil {
				slog.Error("failed to publish priority alert", "error", err)
			}
		}
	}

	writeJSON(w, http.StatusOK, EvaluateResponse{
		EvaluationID:    evaluation.ID,
		ClaimID:         evaluation.ClaimID,
		Results:         evaluation.Results,
		Recommendations: evaluation.Recommendations,
		Metadata:        evaluation.Metadata,
	})
}

// GetEvaluation retrieves a stored evaluation by ID.
func (h *Handler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	evalID := chi.URLParam(r, "id")

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	eval, err := h.repo.GetEvaluation(ctx, evalID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Error("failed to get evaluation", "id", evalID, "error", err)
		}
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "evaluation not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, eval)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// ListRules returns all stored rules, active and inactive.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.repo.ListRules(r.Context())
	if err != nil {
		slog.Error("failed to list rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list rules",
		})
		return
	}

	if rules == nil {
		rules = []*domain.Rule{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rules": rules,
		"count": len(rules),
	})
}

// GetRule retrieves a rule by ID.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	id, ok := ruleID(w, r)
	if !ok {
		return
	}

	rule, err := h.repo.GetRule(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "rule not found",
			})
			return
		}
		slog.Error("failed to get rule", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get rule",
		})
		return
	}

	writeJSON(w, http.StatusOK, rule)
}

// CreateRuleRequest is the request body for creating a rule.
type CreateRuleRequest struct {
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Conditions  domain.ConditionTree `json:"conditions"`
	Action      string               `json:"action"`
	Active      *bool                `json:"active,omitempty"`
	Priority    int                  `json:"priority,omitempty"`
}

// CreateRule validates and persists a new rule.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	// New rules default to active unless the client says otherwise.
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	rule := &domain.Rule{
		Name:        req.Name,
		Description: req.Description,
		Conditions:  req.Conditions,
		Action:      req.Action,
		Active:      active,
		Priority:    req.Priority,
	}

	created, err := h.repo.CreateRule(ctx, rule)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
			return
		}
		slog.Error("failed to create rule", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to create rule",
		})
		return
	}

	h.publishRulesChanged(ctx, "created", created.ID)

	slog.Info("rule created", "id", created.ID, "name", created.Name)
	writeJSON(w, http.StatusCreated, created)
}

// UpdateRule applies a partial update to a stored rule.
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := ruleID(w, r)
	if !ok {
		return
	}

	var patch domain.RuleUpdate
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	updated, err := h.repo.UpdateRule(ctx, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "rule not found",
			})
		case errors.Is(err, repository.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
		default:
			slog.Error("failed to update rule", "id", id, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to update rule",
			})
		}
		return
	}

	h.publishRulesChanged(ctx, "updated", id)

	writeJSON(w, http.StatusOK, updated)
}

// DeleteRule removes a rule.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := ruleID(w, r)
	if !ok {
		return
	}

	if err := h.repo.DeleteRule(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "rule not found",
			})
			return
		}
		slog.Error("failed to delete rule", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to delete rule",
		})
		return
	}

	h.publishRulesChanged(ctx, "deleted", id)

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "rule deleted",
	})
}

func (h *Handler) publishRulesChanged(ctx context.Context, op string, id int64) {
	if h.bus == nil {
		return
	}
	payload, _ := json.Marshal(map[string]any{"op": op, "ruleId": id})
	if err := h.bus.Publish(ctx, domain.TopicRulesChanged, payload); err != nil {
		slog.Error("failed to publish rules changed", "error", err)
	}
}

func ruleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id must be an integer",
		})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
