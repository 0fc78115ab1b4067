package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/opensource-gov/banyan/internal/domain"
)

// stubStore is an in-memory RuleStore for engine tests.
type stubStore struct {
	rules []*domain.Rule
	err   error
}

func (s *stubStore) GetActiveRules(ctx context.Context) ([]*domain.Rule, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rules, nil
}

func (s *stubStore) GetRule(ctx context.Context, id int64) (*domain.Rule, error) {
	return nil, errors.New("not implemented")
}

func (s *stubStore) CreateRule(ctx context.Context, rule *domain.Rule) (*domain.Rule, error) {
	return nil, errors.New("not implemented")
}

func (s *stubStore) UpdateRule(ctx context.Context, id int64, patch domain.RuleUpdate) (*domain.Rule, error) {
	return nil, errors.New("not implemented")
}

func (s *stubStore) DeleteRule(ctx context.Context, id int64) error {
	return errors.New("not implemented")
}

func TestEvaluateAll(t *testing.T) {
	ctx := context.Background()
	record := domain.Record{"forest_type": "protected", "area_hectares": 7.5}

	t.Run("empty store returns empty slice", func(t *testing.T) {
		e := NewEngine(&stubStore{}, 0)
		results, err := e.EvaluateAll(ctx, record)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if results == nil || len(results) != 0 {
			t.Errorf("expected empty non-nil slice, got %v", results)
		}
	})

	t.Run("store error is the only hard failure", func(t *testing.T) {
		e := NewEngine(&stubStore{err: errors.New("db gone")}, 4)
		_, err := e.EvaluateAll(ctx, record)
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "failed to fetch active rules") {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("results sorted ascending by rule ID", func(t *testing.T) {
		store := &stubStore{rules: []*domain.Rule{
			{ID: 30, Name: "c", Action: "x", Conditions: domain.ConditionTree{Field: "forest_type", Operator: "equals", Value: "protected"}},
			{ID: 10, Name: "a", Action: "y", Conditions: domain.ConditionTree{Field: "area_hectares", Operator: "greater_than", Value: 5.0}},
			{ID: 20, Name: "b", Action: "z", Conditions: domain.ConditionTree{Field: "area_hectares", Operator: "less_than", Value: 5.0}},
		}}
		e := NewEngine(store, 2)
		results, err := e.EvaluateAll(ctx, record)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("got %d results, want 3", len(results))
		}
		for i, wantID := range []int64{10, 20, 30} {
			if results[i].RuleID != wantID {
				t.Errorf("results[%d].RuleID = %d, want %d", i, results[i].RuleID, wantID)
			}
		}
	})

	t.Run("matched and unmatched coexist", func(t *testing.T) {
		store := &stubStore{rules: []*domain.Rule{
			{ID: 1, Name: "protected forest", Action: "escalate", Conditions: domain.ConditionTree{Field: "forest_type", Operator: "equals", Value: "protected"}},
			{ID: 2, Name: "small claim", Action: "fast track", Conditions: domain.ConditionTree{Field: "area_hectares", Operator: "less_than", Value: 2.0}},
		}}
		e := NewEngine(store, 2)
		results, err := e.EvaluateAll(ctx, record)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !results[0].Matched {
			t.Error("rule 1 should match")
		}
		if results[1].Matched {
			t.Error("rule 2 should not match")
		}
		if results[1].ConditionsFailed[0] != "area_hectares less_than 2" {
			t.Errorf("failed trace = %v", results[1].ConditionsFailed)
		}
	})

	t.Run("malformed rule absorbed, batch survives", func(t *testing.T) {
		store := &stubStore{rules: []*domain.Rule{
			{ID: 1, Name: "broken", Action: "noop", Conditions: domain.ConditionTree{}},
			{ID: 2, Name: "fine", Action: "review", Conditions: domain.ConditionTree{Field: "forest_type", Operator: "equals", Value: "protected"}},
		}}
		e := NewEngine(store, 2)
		results, err := e.EvaluateAll(ctx, record)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("got %d results, want 2", len(results))
		}
		if results[0].Matched {
			t.Error("malformed rule must not match")
		}
		if results[0].ConditionsFailed[0] != InvalidConditionTrace {
			t.Errorf("failed trace = %v", results[0].ConditionsFailed)
		}
		if !results[1].Matched {
			t.Error("healthy rule should still match")
		}
	})

	t.Run("result carries rule metadata and timing", func(t *testing.T) {
		store := &stubStore{rules: []*domain.Rule{
			{ID: 7, Name: "named", Action: "do things", Conditions: domain.ConditionTree{Field: "forest_type", Operator: "equals", Value: "protected"}},
		}}
		e := NewEngine(store, 1)
		results, _ := e.EvaluateAll(ctx, record)
		r := results[0]
		if r.RuleName != "named" || r.Action != "do things" {
			t.Errorf("metadata not carried: %+v", r)
		}
		if r.ProcessMs < 0 {
			t.Errorf("ProcessMs = %d", r.ProcessMs)
		}
	})
}

func TestEvaluateAllDeterministic(t *testing.T) {
	rules := make([]*domain.Rule, 50)
	for i := range rules {
		rules[i] = &domain.Rule{
			ID:         int64(50 - i),
			Name:       "r",
			Action:     "a",
			Conditions: domain.ConditionTree{Field: "x", Operator: "equals", Value: 1},
		}
	}
	e := NewEngine(&stubStore{rules: rules}, 8)

	for run := 0; run < 5; run++ {
		results, err := e.EvaluateAll(context.Background(), domain.Record{"x": 1})
		if err != nil {
			t.Fatal(err)
		}
		for i := range results {
			if results[i].RuleID != int64(i+1) {
				t.Fatalf("run %d: results[%d].RuleID = %d", run, i, results[i].RuleID)
			}
		}
	}
}
