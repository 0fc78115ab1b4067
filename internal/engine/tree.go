package engine

import (
	"github.com/opensource-gov/banyan/internal/domain"
)

// InvalidConditionTrace is recorded in the failed list when a stored tree
// has none of the recognized shapes (or an ambiguous mix of them).
const InvalidConditionTrace = "Invalid condition format"

// TreeResult is the outcome of evaluating one condition tree.
type TreeResult struct {
	Matched bool
	Met     []string
	Failed  []string
}

// EvaluateTree evaluates a full condition tree against a record.
//
// Every atomic condition contributes exactly one trace entry, in declaration
// order, regardless of the overall outcome: group evaluation never
// short-circuits trace collection, since callers need full diagnostics.
func EvaluateTree(tree domain.ConditionTree, record domain.Record) TreeResult {
	res := TreeResult{Met: []string{}, Failed: []string{}}

	switch tree.Kind() {
	case domain.TreeAtomic:
		res.Matched = evalChild(tree.Atomic(), record, &res)

	case domain.TreeAllOf:
		// Vacuously true on an empty group; store validation rejects
		// empty groups before they are persisted.
		res.Matched = true
		for _, c := range tree.All {
			if !evalChild(c, record, &res) {
				res.Matched = false
			}
		}

	case domain.TreeAnyOf:
		res.Matched = false
		for _, c := range tree.Any {
			if evalChild(c, record, &res) {
				res.Matched = true
			}
		}

	default:
		// Malformed trees only reach evaluation when rules bypass the
		// write boundary (direct data edits). Fail closed with a trace.
		res.Matched = false
		res.Failed = append(res.Failed, InvalidConditionTrace)
	}

	return res
}

func evalChild(c domain.Condition, record domain.Record, res *TreeResult) bool {
	if Evaluate(c, record) {
		res.Met = append(res.Met, Describe(c))
		return true
	}
	res.Failed = append(res.Failed, Describe(c))
	return false
}

// CountConditions returns the number of atomic conditions in a tree.
func CountConditions(tree domain.ConditionTree) int {
	switch tree.Kind() {
	case domain.TreeAtomic:
		return 1
	case domain.TreeAllOf:
		return len(tree.All)
	case domain.TreeAnyOf:
		return len(tree.Any)
	default:
		return 0
	}
}
