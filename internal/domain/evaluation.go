package domain

import (
	"time"
)

// EvaluationResult is the outcome of evaluating one rule against a record.
type EvaluationResult struct {
	RuleID   int64  `json:"ruleId"`
	RuleName string `json:"ruleName"`
	Matched  bool   `json:"matched"`
	Action   string `json:"action"`

	// Human-readable descriptions of which conditions passed and failed,
	// in declaration order. Every atomic condition appears in exactly one
	// of the two lists.
	ConditionsMet    []string `json:"conditionsMet"`
	ConditionsFailed []string `json:"conditionsFailed"`

	ProcessMs int64 `json:"processMs"`
}

// Recommendations is the decision-support payload synthesized from a batch
// of evaluation results.
type Recommendations struct {
	Actions             []string `json:"actions"`
	HighPriorityActions []string `json:"highPriorityActions"`
	Warnings            []string `json:"warnings"`
}

// Evaluation is the persisted audit record of one decision-support run.
type Evaluation struct {
	ID        string    `json:"id"`
	ClaimID   string    `json:"claimId,omitempty"`
	Record    Record    `json:"record"`
	Timestamp time.Time `json:"timestamp"`

	Results         []EvaluationResult `json:"results"`
	Recommendations Recommendations    `json:"recommendations"`

	Metadata EvaluationMetadata `json:"metadata"`
}

// EvaluationMetadata carries processing information for one run.
type EvaluationMetadata struct {
	TraceID        string `json:"traceId"`
	RulesEvaluated int    `json:"rulesEvaluated"`
	TotalMs        int64  `json:"totalMs"`
	EngineVersion  string `json:"engineVersion"`
}
