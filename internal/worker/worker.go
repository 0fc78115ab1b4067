// Package worker provides async claim processing from the EventBus.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-gov/banyan/internal/domain"
	"github.com/opensource-gov/banyan/internal/dss"
	"github.com/opensource-gov/banyan/internal/engine"
)

// Worker evaluates submitted claims asynchronously from the EventBus.
type Worker struct {
	bus         domain.EventBus
	repo        domain.Repository
	engine      *engine.Engine
	synthesizer *dss.Synthesizer

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, eng *engine.Engine, synth *dss.Synthesizer) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:         bus,
		repo:        repo,
		engine:      eng,
		synthesizer: synth,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start subscribes to the claim submission topic.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicClaimSubmitted, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("worker started",
		"topic", domain.TopicClaimSubmitted,
	)
	return nil
}

// ClaimMessage is the payload for claim submission events.
type ClaimMessage struct {
	ClaimID string        `json:"claimId"`
	TraceID string        `json:"traceId,omitempty"`
	Record  domain.Record `json:"record"`
}

func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processClaim(ctx, msg)
}

// processClaim runs a submitted claim through the evaluation pipeline.
func (w *Worker) processClaim(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var claim ClaimMessage
	if err := json.Unmarshal(msg.Payload, &claim); err != nil {
		slog.Error("failed to parse claim message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	traceID := claim.TraceID
	if traceID == "" {
		traceID = msg.ID
	}

	slog.Debug("processing claim",
		"claim_id", claim.ClaimID,
		"trace_id", traceID,
	)

	// 1. Evaluate rules
	results, err := w.engine.EvaluateAll(ctx, claim.Record)
	if err != nil {
		slog.Error("rule evaluation failed",
			"claim_id", claim.ClaimID,
			"error", err,
		)
		return err
	}

	// 2. Synthesize recommendations
	evaluation := w.synthesizer.Run(ctx, &dss.RunInput{
		ClaimID:   claim.ClaimID,
		TraceID:   traceID,
		Record:    claim.Record,
		Results:   results,
		StartTime: start,
	})

	// 3. Save evaluation
	if w.repo != nil {
		if err := w.repo.SaveEvaluation(ctx, evaluation); err != nil {
			slog.Error("failed to save evaluation",
				"claim_id", claim.ClaimID,
				"error", err,
			)
		}
	}

	// 4. Publish result
	resultPayload, _ := json.Marshal(evaluation)
	if err := w.bus.Publish(ctx, domain.TopicClaimEvaluated, resultPayload); err != nil {
		slog.Error("failed to publish evaluation",
			"claim_id", claim.ClaimID,
			"error", err,
		)
	}

	// 5. High-priority actions get their own topic for alerting
	if len(evaluation.Recommendations.HighPriorityActions) > 0 {
		if err := w.bus.Publish(ctx, domain.TopicPriorityAlert, resultPayload); err != nil {
			slog.Error("failed to publish priority alert",
				"claim_id", claim.ClaimID,
				"error", err,
			)
		}
	}

	slog.Info("claim processed",
		"claim_id", claim.ClaimID,
		"rules_evaluated", len(results),
		"actions", len(evaluation.Recommendations.Actions),
		"high_priority", len(evaluation.Recommendations.HighPriorityActions),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
