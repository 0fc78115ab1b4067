// Package dss implements the decision-support synthesizer. It folds a batch
// of rule evaluation results into actionable recommendations for claim
// processing staff.
package dss

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-gov/banyan/internal/domain"
)

// EngineVersion is stamped into evaluation metadata.
const EngineVersion = "banyan-1.0"

// Synthesizer turns evaluation results into recommendations.
type Synthesizer struct {
	// UrgencyKeywords mark an action as high priority when any of them
	// appears in the action text, case-insensitively.
	UrgencyKeywords []string
}

// NewSynthesizer creates a synthesizer with the default urgency vocabulary.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{
		UrgencyKeywords: []string{"urgent", "critical"},
	}
}

// Synthesize folds results into recommendations, preserving input order.
//
// Each matched rule's action lands in exactly one bucket: HighPriorityActions
// when the action text carries an urgency keyword, Actions otherwise.
// Unmatched rules with at least one failed condition contribute a warning;
// unmatched rules with an empty trace (vacuous non-matches) are skipped.
func (s *Synthesizer) Synthesize(results []domain.EvaluationResult) *domain.Recommendations {
	rec := &domain.Recommendations{
		Actions:             []string{},
		HighPriorityActions: []string{},
		Warnings:            []string{},
	}

	for _, r := range results {
		if r.Matched {
			if s.isHighPriority(r.Action) {
				rec.HighPriorityActions = append(rec.HighPriorityActions, r.Action)
			} else {
				rec.Actions = append(rec.Actions, r.Action)
			}
			continue
		}

		if len(r.ConditionsFailed) > 0 {
			rec.Warnings = append(rec.Warnings, fmt.Sprintf(
				"Rule %q conditions not met: %s",
				r.RuleName, strings.Join(r.ConditionsFailed, ", ")))
		}
	}

	return rec
}

func (s *Synthesizer) isHighPriority(action string) bool {
	lower := strings.ToLower(action)
	for _, kw := range s.UrgencyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// RunInput contains everything needed to build a full evaluation record.
type RunInput struct {
	ClaimID   string
	TraceID   string
	Record    domain.Record
	Results   []domain.EvaluationResult
	StartTime time.Time
}

// Run synthesizes recommendations and wraps them in a persisted-ready
// evaluation with identity and metadata.
func (s *Synthesizer) Run(ctx context.Context, input *RunInput) *domain.Evaluation {
	eval := &domain.Evaluation{
		ID:              uuid.New().String(),
		ClaimID:         input.ClaimID,
		Record:          input.Record,
		Timestamp:       time.Now().UTC(),
		Results:         input.Results,
		Recommendations: *s.Synthesize(input.Results),
	}

	eval.Metadata = domain.EvaluationMetadata{
		TraceID:        input.TraceID,
		RulesEvaluated: len(input.Results),
		TotalMs:        time.Since(input.StartTime).Milliseconds(),
		EngineVersion:  EngineVersion,
	}

	return eval
}
