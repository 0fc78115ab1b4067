package engine

import (
	"testing"

	"github.com/opensource-gov/banyan/internal/domain"
)

func TestEvaluateCondition(t *testing.T) {
	record := domain.Record{
		"forest_type":    "protected",
		"area_hectares":  7.5,
		"family_count":   4,
		"district":       "Kalahandi",
		"has_documents":  true,
		"claim_type":     "IFR",
		"notes":          "Urgent site VERIFICATION pending",
		"area_as_string": "12.5",
	}

	tests := []struct {
		name string
		cond domain.Condition
		want bool
	}{
		// equals
		{"equals string match", domain.Condition{Field: "forest_type", Operator: "equals", Value: "protected"}, true},
		{"equals string mismatch", domain.Condition{Field: "forest_type", Operator: "equals", Value: "revenue"}, false},
		{"equals int vs float", domain.Condition{Field: "family_count", Operator: "equals", Value: 4.0}, true},
		{"equals number vs numeric string", domain.Condition{Field: "family_count", Operator: "equals", Value: "4"}, false},
		{"equals bool", domain.Condition{Field: "has_documents", Operator: "equals", Value: true}, true},
		{"equals bool vs number", domain.Condition{Field: "has_documents", Operator: "equals", Value: 1}, false},

		// not_equals
		{"not_equals mismatch", domain.Condition{Field: "forest_type", Operator: "not_equals", Value: "revenue"}, true},
		{"not_equals match", domain.Condition{Field: "forest_type", Operator: "not_equals", Value: "protected"}, false},

		// greater_than / less_than
		{"greater_than true", domain.Condition{Field: "area_hectares", Operator: "greater_than", Value: 5}, true},
		{"greater_than equal is false", domain.Condition{Field: "area_hectares", Operator: "greater_than", Value: 7.5}, false},
		{"less_than true", domain.Condition{Field: "family_count", Operator: "less_than", Value: 10}, true},
		{"less_than false", domain.Condition{Field: "family_count", Operator: "less_than", Value: 4}, false},
		{"greater_than numeric string field", domain.Condition{Field: "area_as_string", Operator: "greater_than", Value: 10}, true},
		{"greater_than non-numeric field", domain.Condition{Field: "district", Operator: "greater_than", Value: 5}, false},
		{"less_than non-numeric value", domain.Condition{Field: "family_count", Operator: "less_than", Value: "many"}, false},

		// contains / not_contains, case-insensitive both sides
		{"contains case-insensitive", domain.Condition{Field: "notes", Operator: "contains", Value: "urgent"}, true},
		{"contains mixed-case value", domain.Condition{Field: "notes", Operator: "contains", Value: "Verification"}, true},
		{"contains absent", domain.Condition{Field: "notes", Operator: "contains", Value: "approved"}, false},
		{"not_contains absent", domain.Condition{Field: "notes", Operator: "not_contains", Value: "approved"}, true},
		{"not_contains present", domain.Condition{Field: "notes", Operator: "not_contains", Value: "URGENT"}, false},
		{"contains on non-string field", domain.Condition{Field: "area_hectares", Operator: "contains", Value: "7.5"}, true},

		// in / not_in
		{"in match", domain.Condition{Field: "claim_type", Operator: "in", Value: []any{"IFR", "CFR"}}, true},
		{"in miss", domain.Condition{Field: "claim_type", Operator: "in", Value: []any{"CR", "CFR"}}, false},
		{"in numeric cross-type", domain.Condition{Field: "family_count", Operator: "in", Value: []any{2.0, 4.0}}, true},
		{"in non-list value", domain.Condition{Field: "claim_type", Operator: "in", Value: "IFR"}, false},
		{"not_in miss", domain.Condition{Field: "claim_type", Operator: "not_in", Value: []any{"CR", "CFR"}}, true},
		{"not_in match", domain.Condition{Field: "claim_type", Operator: "not_in", Value: []any{"IFR"}}, false},
		{"not_in non-list value", domain.Condition{Field: "claim_type", Operator: "not_in", Value: "IFR"}, false},

		// fail-closed cases
		{"missing field", domain.Condition{Field: "survey_number", Operator: "equals", Value: "12"}, false},
		{"missing field not_equals", domain.Condition{Field: "survey_number", Operator: "not_equals", Value: "12"}, false},
		{"unknown operator", domain.Condition{Field: "forest_type", Operator: "matches", Value: "protected"}, false},
		{"alias operator not evaluated", domain.Condition{Field: "forest_type", Operator: "eq", Value: "protected"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.cond, record)
			if got != tt.want {
				t.Errorf("Evaluate(%+v) = %v, want %v", tt.cond, got, tt.want)
			}
		})
	}
}

func TestEvaluateNilFieldValue(t *testing.T) {
	record := domain.Record{"forest_type": nil}
	cond := domain.Condition{Field: "forest_type", Operator: "not_equals", Value: "revenue"}
	if Evaluate(cond, record) {
		t.Error("nil field value should fail every condition")
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		cond domain.Condition
		want string
	}{
		{"string value", domain.Condition{Field: "forest_type", Operator: "equals", Value: "protected"}, "forest_type equals protected"},
		{"whole number", domain.Condition{Field: "area_hectares", Operator: "greater_than", Value: 5.0}, "area_hectares greater_than 5"},
		{"fractional number", domain.Condition{Field: "area_hectares", Operator: "less_than", Value: 2.5}, "area_hectares less_than 2.5"},
		{"list value", domain.Condition{Field: "claim_type", Operator: "in", Value: []any{"IFR", "CFR"}}, "claim_type in [IFR, CFR]"},
		{"bool value", domain.Condition{Field: "has_documents", Operator: "equals", Value: true}, "has_documents equals true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Describe(tt.cond); got != tt.want {
				t.Errorf("Describe() = %q, want %q", got, tt.want)
			}
		})
	}
}
