// Load-test tool that replays claim records against a running Banyan server.
//
// Usage:
//
//	go run cmd/benchmark/main.go -csv /path/to/claims.csv -url http://localhost:8080
//
// The CSV's first row is a header naming the record fields; every later row
// becomes one claim record. Values that parse as numbers or booleans are sent
// typed; everything else is sent as a string.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// EvaluateRequest mirrors the Banyan API request format.
type EvaluateRequest struct {
	ClaimID string         `json:"claimId,omitempty"`
	Record  map[string]any `json:"record"`
}

// EvaluateResponse mirrors the Banyan API response format.
type EvaluateResponse struct {
	EvaluationID    string `json:"evaluationId"`
	Results         []struct {
		RuleID  int64 `json:"ruleId"`
		Matched bool  `json:"matched"`
	} `json:"results"`
	Recommendations struct {
		Actions             []string `json:"actions"`
		HighPriorityActions []string `json:"highPriorityActions"`
		Warnings            []string `json:"warnings"`
	} `json:"recommendations"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	TotalProcessed int64
	TotalMatched   int64
	TotalPriority  int64
	TotalErrors    int64
}

func main() {
	csvPath := flag.String("csv", "", "Path to claim records CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "Banyan base URL")
	limit := flag.Int("limit", 10000, "Maximum records to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	verbose := flag.Bool("verbose", false, "Print each record result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/claims.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Banyan not reachable at %s: %v\n", *baseURL, err)
		os.Exit(1)
	}

	records, err := loadRecords(*csvPath, *limit)
	if err != nil {
		fmt.Printf("ERROR: failed to load CSV: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded %d claim records from %s\n", len(records), *csvPath)
	fmt.Printf("Workers: %d, Target: %s\n\n", *workers, *baseURL)

	var metrics Metrics
	start := time.Now()

	jobs := make(chan map[string]any)
	var wg sync.WaitGroup

	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 30 * time.Second}
			for record := range jobs {
				resp, err := evaluate(client, *baseURL, record)
				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if *verbose {
						fmt.Printf("  ERROR: %v\n", err)
					}
					continue
				}

				atomic.AddInt64(&metrics.TotalProcessed, 1)
				if len(resp.Recommendations.Actions)+len(resp.Recommendations.HighPriorityActions) > 0 {
					atomic.AddInt64(&metrics.TotalMatched, 1)
				}
				if len(resp.Recommendations.HighPriorityActions) > 0 {
					atomic.AddInt64(&metrics.TotalPriority, 1)
				}

				if *verbose {
					fmt.Printf("  %s actions=%d priority=%d warnings=%d\n",
						resp.EvaluationID,
						len(resp.Recommendations.Actions),
						len(resp.Recommendations.HighPriorityActions),
						len(resp.Recommendations.Warnings))
				}
			}
		}()
	}

	for _, record := range records {
		jobs <- record
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(start)

	fmt.Println("\nResults:")
	fmt.Printf("  Processed:       %d\n", metrics.TotalProcessed)
	fmt.Printf("  With actions:    %d\n", metrics.TotalMatched)
	fmt.Printf("  High priority:   %d\n", metrics.TotalPriority)
	fmt.Printf("  Errors:          %d\n", metrics.TotalErrors)
	fmt.Printf("  Elapsed:         %s\n", elapsed.Round(time.Millisecond))
	if metrics.TotalProcessed > 0 {
		fmt.Printf("  Throughput:      %.1f req/s\n",
			float64(metrics.TotalProcessed)/elapsed.Seconds())
	}
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health returned %d", resp.StatusCode)
	}
	return nil
}

// loadRecords reads the CSV into claim records, coercing cell values.
func loadRecords(path string, limit int) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var records []map[string]any
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		record := make(map[string]any, len(header))
		for i, field := range header {
			if i >= len(row) {
				break
			}
			record[field] = coerce(row[i])
		}
		records = append(records, record)

		if limit > 0 && len(records) >= limit {
			break
		}
	}

	return records, nil
}

func coerce(s string) any {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func evaluate(client *http.Client, baseURL string, record map[string]any) (*EvaluateResponse, error) {
	body, err := json.Marshal(EvaluateRequest{Record: record})
	if err != nil {
		return nil, err
	}

	resp, err := client.Post(baseURL+"/evaluate", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("evaluate returned %d: %s", resp.StatusCode, data)
	}

	var out EvaluateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
