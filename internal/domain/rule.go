package domain

import (
	"encoding/json"
	"time"
)

// Rule pairs a condition tree with a recommended action. Rules are stored,
// prioritized, and evaluated against claim records by the engine.
type Rule struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Conditions is the boolean structure deciding whether the rule matches.
	Conditions ConditionTree `json:"conditions"`

	// Action is free text describing what to do when the rule matches.
	// Urgency is inferred downstream by keyword matching.
	Action string `json:"action"`

	// Whether rule participates in evaluation runs
	Active bool `json:"active"`

	// Priority orders rules in store listings; lower value = higher precedence.
	// Ties break by ID ascending.
	Priority int `json:"priority"`

	// Audit timestamps maintained by the store
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Condition is a single field/operator/value comparison.
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// ConditionTree is one of three shapes: a single condition, an "all" group
// (conjunction), or an "any" group (disjunction). Group children are single
// conditions; deeper nesting is not supported.
type ConditionTree struct {
	Field    string `json:"field,omitempty"`
	Operator string `json:"operator,omitempty"`
	Value    any    `json:"value,omitempty"`

	All []Condition `json:"all,omitempty"`
	Any []Condition `json:"any,omitempty"`
}

// TreeKind identifies the shape of a condition tree.
type TreeKind int

const (
	TreeInvalid TreeKind = iota
	TreeAtomic
	TreeAllOf
	TreeAnyOf
)

// Kind classifies the tree shape. A tree carrying both group keys, or mixing
// a bare condition with a group, is invalid.
func (t ConditionTree) Kind() TreeKind {
	atomic := t.Field != "" && t.Operator != ""

	switch {
	case t.All != nil && t.Any != nil:
		return TreeInvalid
	case atomic && (t.All != nil || t.Any != nil):
		return TreeInvalid
	case t.All != nil:
		return TreeAllOf
	case t.Any != nil:
		return TreeAnyOf
	case atomic:
		return TreeAtomic
	default:
		return TreeInvalid
	}
}

// Atomic returns the tree's bare condition. Only meaningful for TreeAtomic.
func (t ConditionTree) Atomic() Condition {
	return Condition{Field: t.Field, Operator: t.Operator, Value: t.Value}
}

// MarshalJSON emits only the keys belonging to the tree's shape, so a group
// tree never serializes stray "field"/"operator" keys and an atomic tree
// keeps its "value" key even when the value is zero.
func (t ConditionTree) MarshalJSON() ([]byte, error) {
	switch t.Kind() {
	case TreeAllOf:
		return json.Marshal(struct {
			All []Condition `json:"all"`
		}{t.All})
	case TreeAnyOf:
		return json.Marshal(struct {
			Any []Condition `json:"any"`
		}{t.Any})
	default:
		return json.Marshal(Condition{Field: t.Field, Operator: t.Operator, Value: t.Value})
	}
}

// Record is the claim data being tested against rules: a flat mapping from
// field name to scalar value. Records are call-scoped and never persisted by
// the engine.
type Record map[string]any

// RuleUpdate is a partial update; nil fields are left unchanged.
type RuleUpdate struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Conditions  *ConditionTree `json:"conditions,omitempty"`
	Action      *string        `json:"action,omitempty"`
	Active      *bool          `json:"active,omitempty"`
	Priority    *int           `json:"priority,omitempty"`
}

// Canonical condition operators
const (
	OpEquals      = "equals"
	OpNotEquals   = "not_equals"
	OpGreaterThan = "greater_than"
	OpLessThan    = "less_than"
	OpContains    = "contains"
	OpNotContains = "not_contains"
	OpIn          = "in"
	OpNotIn       = "not_in"
)

// Operators is the canonical operator vocabulary accepted at the write
// boundary. The evaluator treats anything else as a non-match.
var Operators = map[string]bool{
	OpEquals:      true,
	OpNotEquals:   true,
	OpGreaterThan: true,
	OpLessThan:    true,
	OpContains:    true,
	OpNotContains: true,
	OpIn:          true,
	OpNotIn:       true,
}
