package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/opensource-gov/banyan/internal/domain"
)

// Engine orchestrates rule evaluation: it fetches the active rules from the
// store, evaluates each against the record, and returns results ordered by
// rule ID. The store is an injected dependency; the engine holds no state of
// its own between calls.
type Engine struct {
	store      domain.RuleStore
	maxWorkers int
}

// NewEngine creates a new rule evaluation engine.
func NewEngine(store domain.RuleStore, maxWorkers int) *Engine {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}
	return &Engine{
		store:      store,
		maxWorkers: maxWorkers,
	}
}

// EvaluateAll evaluates all active rules against a record.
//
// A store fetch failure is the only hard error; anything that goes wrong
// inside a single rule's evaluation is absorbed into that rule's result so
// one corrupt rule cannot abort the batch. Results are sorted ascending by
// rule ID regardless of store ordering.
func (e *Engine) EvaluateAll(ctx context.Context, record domain.Record) ([]domain.EvaluationResult, error) {
	rules, err := e.store.GetActiveRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active rules: %w", err)
	}

	if len(rules) == 0 {
		return []domain.EvaluationResult{}, nil
	}

	// Parallel evaluation using worker pool pattern; rules are independent.
	results := make([]domain.EvaluationResult, len(rules))
	var wg sync.WaitGroup

	// Limit concurrency with semaphore
	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r *domain.Rule) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			results[idx] = e.evaluateRule(r, record)
		}(i, rule)
	}

	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		return results[i].RuleID < results[j].RuleID
	})

	return results, nil
}

// evaluateRule evaluates a single rule and returns the result. Panics are
// converted into a non-match with a synthetic failure trace.
func (e *Engine) evaluateRule(rule *domain.Rule, record domain.Record) (result domain.EvaluationResult) {
	start := time.Now()

	result = domain.EvaluationResult{
		RuleID:   rule.ID,
		RuleName: rule.Name,
		Action:   rule.Action,
	}

	defer func() {
		if r := recover(); r != nil {
			result.Matched = false
			result.ConditionsMet = []string{}
			result.ConditionsFailed = []string{fmt.Sprintf("evaluation error: %v", r)}
		}
		result.ProcessMs = time.Since(start).Milliseconds()
	}()

	tree := EvaluateTree(rule.Conditions, record)
	result.Matched = tree.Matched
	result.ConditionsMet = tree.Met
	result.ConditionsFailed = tree.Failed

	return result
}
