package engine

import (
	"errors"
	"fmt"

	"github.com/opensource-gov/banyan/internal/domain"
)

// ErrInvalidRule marks validation failures at the write boundary. Callers
// translate it to a 400 response.
var ErrInvalidRule = errors.New("invalid rule")

// aliasHints maps common operator misspellings to the canonical name used in
// the rejection message. Aliases are rejected, not accepted: a rule that
// stores "eq" would silently never match once persisted.
var aliasHints = map[string]string{
	"eq":  domain.OpEquals,
	"ne":  domain.OpNotEquals,
	"neq": domain.OpNotEquals,
	"gt":  domain.OpGreaterThan,
	"lt":  domain.OpLessThan,
}

// ValidateRule checks a rule before it is persisted. The evaluator is
// deliberately lenient (fail-closed); the write boundary is strict so bad
// rules never reach it.
func ValidateRule(rule *domain.Rule) error {
	if rule.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRule)
	}
	if rule.Action == "" {
		return fmt.Errorf("%w: action is required", ErrInvalidRule)
	}
	return ValidateConditions(rule.Conditions)
}

// ValidateConditions checks a condition tree for persistence.
func ValidateConditions(tree domain.ConditionTree) error {
	switch tree.Kind() {
	case domain.TreeAtomic:
		return validateCondition(tree.Atomic())

	case domain.TreeAllOf:
		if len(tree.All) == 0 {
			return fmt.Errorf("%w: \"all\" group must contain at least one condition", ErrInvalidRule)
		}
		for i, c := range tree.All {
			if err := validateCondition(c); err != nil {
				return fmt.Errorf("all[%d]: %w", i, err)
			}
		}
		return nil

	case domain.TreeAnyOf:
		if len(tree.Any) == 0 {
			return fmt.Errorf("%w: \"any\" group must contain at least one condition", ErrInvalidRule)
		}
		for i, c := range tree.Any {
			if err := validateCondition(c); err != nil {
				return fmt.Errorf("any[%d]: %w", i, err)
			}
		}
		return nil

	default:
		return fmt.Errorf("%w: conditions must be a single condition, an \"all\" group, or an \"any\" group", ErrInvalidRule)
	}
}

func validateCondition(c domain.Condition) error {
	if c.Field == "" {
		return fmt.Errorf("%w: condition field is required", ErrInvalidRule)
	}
	if !domain.Operators[c.Operator] {
		if canonical, ok := aliasHints[c.Operator]; ok {
			return fmt.Errorf("%w: operator %q is not supported, use %q", ErrInvalidRule, c.Operator, canonical)
		}
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidRule, c.Operator)
	}
	if c.Operator == domain.OpIn || c.Operator == domain.OpNotIn {
		if _, ok := asList(c.Value); !ok {
			return fmt.Errorf("%w: operator %q requires a list value", ErrInvalidRule, c.Operator)
		}
	}
	return nil
}
