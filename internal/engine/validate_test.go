package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/opensource-gov/banyan/internal/domain"
)

func TestValidateRule(t *testing.T) {
	valid := domain.ConditionTree{Field: "forest_type", Operator: "equals", Value: "protected"}

	tests := []struct {
		name    string
		rule    domain.Rule
		wantErr string
	}{
		{"valid", domain.Rule{Name: "r", Action: "review", Conditions: valid}, ""},
		{"missing name", domain.Rule{Action: "review", Conditions: valid}, "name is required"},
		{"missing action", domain.Rule{Name: "r", Conditions: valid}, "action is required"},
		{"empty conditions", domain.Rule{Name: "r", Action: "review"}, "single condition"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRule(&tt.rule)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrInvalidRule) {
				t.Errorf("error not wrapped as ErrInvalidRule: %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateConditions(t *testing.T) {
	tests := []struct {
		name    string
		tree    domain.ConditionTree
		wantErr string
	}{
		{"atomic valid", domain.ConditionTree{Field: "a", Operator: "equals", Value: 1}, ""},
		{"all valid", domain.ConditionTree{All: []domain.Condition{
			{Field: "a", Operator: "equals", Value: 1},
			{Field: "b", Operator: "in", Value: []any{"x"}},
		}}, ""},
		{"any valid", domain.ConditionTree{Any: []domain.Condition{
			{Field: "a", Operator: "contains", Value: "x"},
		}}, ""},

		{"empty all group", domain.ConditionTree{All: []domain.Condition{}}, `"all" group must contain at least one condition`},
		{"empty any group", domain.ConditionTree{Any: []domain.Condition{}}, `"any" group must contain at least one condition`},
		{"both groups", domain.ConditionTree{
			All: []domain.Condition{{Field: "a", Operator: "equals", Value: 1}},
			Any: []domain.Condition{{Field: "b", Operator: "equals", Value: 2}},
		}, "single condition"},

		{"missing field", domain.ConditionTree{All: []domain.Condition{
			{Operator: "equals", Value: 1},
		}}, "field is required"},
		{"in without list", domain.ConditionTree{Field: "a", Operator: "in", Value: "x"}, `operator "in" requires a list value`},
		{"not_in without list", domain.ConditionTree{Field: "a", Operator: "not_in", Value: 3}, `operator "not_in" requires a list value`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConditions(tt.tree)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateOperatorVocabulary(t *testing.T) {
	t.Run("alias rejected with hint", func(t *testing.T) {
		tests := []struct{ alias, canonical string }{
			{"eq", "equals"},
			{"ne", "not_equals"},
			{"neq", "not_equals"},
			{"gt", "greater_than"},
			{"lt", "less_than"},
		}
		for _, tt := range tests {
			tree := domain.ConditionTree{Field: "a", Operator: tt.alias, Value: 1}
			err := ValidateConditions(tree)
			if err == nil {
				t.Fatalf("alias %q accepted", tt.alias)
			}
			want := `operator "` + tt.alias + `" is not supported, use "` + tt.canonical + `"`
			if !strings.Contains(err.Error(), want) {
				t.Errorf("error = %q, want substring %q", err, want)
			}
		}
	})

	t.Run("unknown operator rejected", func(t *testing.T) {
		for _, op := range []string{"gte", "lte", "matches", "regex", ""} {
			tree := domain.ConditionTree{Field: "a", Operator: op, Value: 1}
			err := ValidateConditions(tree)
			if err == nil {
				t.Fatalf("operator %q accepted", op)
			}
		}
	})

	t.Run("group member position reported", func(t *testing.T) {
		tree := domain.ConditionTree{All: []domain.Condition{
			{Field: "a", Operator: "equals", Value: 1},
			{Field: "b", Operator: "gt", Value: 2},
		}}
		err := ValidateConditions(tree)
		if err == nil || !strings.Contains(err.Error(), "all[1]:") {
			t.Errorf("error = %v, want position prefix all[1]:", err)
		}
	})
}
