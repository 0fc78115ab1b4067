//go:build integration
// +build integration

// Package integration provides end-to-end tests for the Banyan decision
// support engine.
//
// These tests exercise the COMPLETE evaluation pipeline over HTTP:
//
//	Rule CRUD → Claim record → Rule evaluation → Recommendations → Audit trail
//
// Run with: go test -tags=integration -v ./tests/integration/...
package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-gov/banyan/internal/api"
	"github.com/opensource-gov/banyan/internal/bus"
	"github.com/opensource-gov/banyan/internal/cache"
	"github.com/opensource-gov/banyan/internal/domain"
	"github.com/opensource-gov/banyan/internal/dss"
	"github.com/opensource-gov/banyan/internal/engine"
	"github.com/opensource-gov/banyan/internal/repository"
)

// newStack wires a full Community-tier stack on a temp SQLite database and
// exposes it through an httptest server.
func newStack(t *testing.T) *httptest.Server {
	t.Helper()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "integration.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	cached := cache.NewCachedRepository(repo, cache.NewLRUCache(100), time.Minute)

	b := bus.NewChannelBus(100)
	t.Cleanup(func() { b.Close() })

	srv := api.NewServer(domain.ServerConfig{Host: "127.0.0.1", Port: 0},
		cached, nil, b, engine.NewEngine(cached, 4), dss.NewSynthesizer(), "integration")

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestEvaluationPipeline(t *testing.T) {
	ts := newStack(t)

	// Seed the rule set a district FRA cell would start with.
	seeds := []map[string]any{
		{
			"name":   "Protected forest escalation",
			"action": "URGENT: escalate to district level committee",
			"conditions": map[string]any{
				"field": "forest_type", "operator": "equals", "value": "protected",
			},
		},
		{
			"name":   "Large community claim",
			"action": "Schedule gram sabha verification",
			"conditions": map[string]any{
				"all": []map[string]any{
					{"field": "area_hectares", "operator": "greater_than", "value": 5},
					{"field": "claim_type", "operator": "equals", "value": "CFR"},
				},
			},
			"priority": 1,
		},
		{
			"name":   "Documented individual claim",
			"action": "Fast-track document review",
			"conditions": map[string]any{
				"any": []map[string]any{
					{"field": "has_patta", "operator": "equals", "value": true},
					{"field": "claim_type", "operator": "in", "value": []string{"IFR"}},
				},
			},
		},
	}

	for _, seed := range seeds {
		resp := post(t, ts.URL+"/rules", seed)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("seed rule returned %d", resp.StatusCode)
		}
		resp.Body.Close()
	}

	t.Run("protected CFR claim matches all three rules", func(t *testing.T) {
		resp := post(t, ts.URL+"/evaluate", map[string]any{
			"claimId": "CLM-2024-001",
			"record": map[string]any{
				"forest_type":   "protected",
				"area_hectares": 12.0,
				"claim_type":    "CFR",
				"has_patta":     true,
			},
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("evaluate returned %d", resp.StatusCode)
		}

		var out api.EvaluateResponse
		decode(t, resp, &out)

		if len(out.Results) != 3 {
			t.Fatalf("got %d results, want 3", len(out.Results))
		}
		for i, r := range out.Results {
			if !r.Matched {
				t.Errorf("result %d (%s) not matched", i, r.RuleName)
			}
		}
		if len(out.Recommendations.Actions) != 2 {
			t.Errorf("actions = %v", out.Recommendations.Actions)
		}
		if len(out.Recommendations.HighPriorityActions) != 1 {
			t.Errorf("high priority = %v", out.Recommendations.HighPriorityActions)
		}
		if len(out.Recommendations.Warnings) != 0 {
			t.Errorf("warnings = %v", out.Recommendations.Warnings)
		}

		// Audit record survives the round trip.
		getResp, err := http.Get(ts.URL + "/evaluations/" + out.EvaluationID)
		if err != nil {
			t.Fatal(err)
		}
		var stored domain.Evaluation
		decode(t, getResp, &stored)
		if stored.ClaimID != "CLM-2024-001" || len(stored.Results) != 3 {
			t.Errorf("stored = %+v", stored)
		}
	})

	t.Run("small revenue-forest claim matches nothing", func(t *testing.T) {
		resp := post(t, ts.URL+"/evaluate", map[string]any{
			"record": map[string]any{
				"forest_type":   "revenue",
				"area_hectares": 1.5,
				"claim_type":    "CR",
			},
		})
		var out api.EvaluateResponse
		decode(t, resp, &out)

		if len(out.Recommendations.Actions) != 0 {
			t.Errorf("actions = %v", out.Recommendations.Actions)
		}
		// Every unmatched rule with failed conditions warns.
		if len(out.Recommendations.Warnings) != 3 {
			t.Errorf("warnings = %v", out.Recommendations.Warnings)
		}
	})

	t.Run("rule deactivation takes effect through the cache", func(t *testing.T) {
		// Deactivate the protected-forest rule.
		req, _ := http.NewRequest(http.MethodPut, ts.URL+"/rules/1",
			bytes.NewReader([]byte(`{"active": false}`)))
		req.Header.Set("Content-Type", "application/json")
		putResp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		if putResp.StatusCode != http.StatusOK {
			t.Fatalf("update returned %d", putResp.StatusCode)
		}
		putResp.Body.Close()

		resp := post(t, ts.URL+"/evaluate", map[string]any{
			"record": map[string]any{"forest_type": "protected"},
		})
		var out api.EvaluateResponse
		decode(t, resp, &out)

		for _, r := range out.Results {
			if r.RuleName == "Protected forest escalation" {
				t.Error("deactivated rule still evaluated")
			}
		}
		if len(out.Results) != 2 {
			t.Errorf("got %d results, want 2", len(out.Results))
		}
	})
}
