// Package main provides a performance benchmarking tool for the SCA listings.
// It seeds a number of SQLite agent databases, then measures the time of each
// listing across all agents, treating the first run as cold and averaging the rest
// as warm, and writes CSV output for performance analysis and documentation.
//
// Usage: go run benchmark/main.go [agent-count]
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/huangsam/sca/core"
	"github.com/huangsam/sca/internal/agentdb"
	"github.com/huangsam/sca/schema"
)

// BenchmarkResult holds the result of a benchmark case (cold run and average of warm runs).
type BenchmarkResult struct {
	Case     string
	Agents   int
	Items    int
	ColdTime string
	WarmTime string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	AgentCount int
	Runs       int
	Timeout    time.Duration
}

// benchmarkCase is one listing request run against every agent.
type benchmarkCase struct {
	name string
	run  func(ctx context.Context, svc *core.Service, agents []string) (*schema.AffectedItemsResult, error)
}

var cases = []benchmarkCase{
	{"policies", func(ctx context.Context, svc *core.Service, agents []string) (*schema.AffectedItemsResult, error) {
		return svc.GetPolicies(ctx, agents, core.NewQuery())
	}},
	{"policies q+sort", func(ctx context.Context, svc *core.Service, agents []string) (*schema.AffectedItemsResult, error) {
		q := core.NewQuery()
		q.Q = "score<60,name~debian"
		q.Sort = []schema.SortField{{Field: "score", Desc: true}}
		return svc.GetPolicies(ctx, agents, q)
	}},
	{"checks", func(ctx context.Context, svc *core.Service, agents []string) (*schema.AffectedItemsResult, error) {
		return svc.GetChecks(ctx, agents, agentdb.SampleDebianPolicy, core.NewQuery())
	}},
	{"checks search+sort", func(ctx context.Context, svc *core.Service, agents []string) (*schema.AffectedItemsResult, error) {
		q := core.NewQuery()
		q.Search = &schema.Search{Value: "tmp"}
		q.Sort = []schema.SortField{{Field: "title"}}
		return svc.GetChecks(ctx, agents, agentdb.SampleDebianPolicy, q)
	}},
	{"checks nested q", func(ctx context.Context, svc *core.Service, agents []string) (*schema.AffectedItemsResult, error) {
		q := core.NewQuery()
		q.Q = "compliance.key=pci_dss;rules.type!=file"
		return svc.GetChecks(ctx, agents, agentdb.SampleDebianPolicy, q)
	}},
}

func main() {
	config := BenchmarkConfig{AgentCount: 50, Runs: 5, Timeout: 5 * time.Minute}
	if len(os.Args) == 2 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil || n <= 0 {
			fmt.Printf("Usage: %s [agent-count]\n", os.Args[0])
			os.Exit(1)
		}
		config.AgentCount = n
	}

	dir, err := os.MkdirTemp("", "sca-benchmark-*")
	if err != nil {
		fmt.Printf("Failed to create agent directory: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	store, agents, err := seedAgents(ctx, dir, config.AgentCount)
	if err != nil {
		fmt.Printf("Failed to seed agents: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(ctx, config, core.NewService(store), agents)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// seedAgents creates count SQLite agent databases holding the sample reports.
func seedAgents(ctx context.Context, dir string, count int) (*agentdb.Store, []string, error) {
	store, err := agentdb.Open(schema.SQLiteBackend, dir)
	if err != nil {
		return nil, nil, err
	}
	fmt.Printf("Seeding %d agents in %s\n", count, filepath.Clean(dir))
	agents := make([]string, count)
	for i := range agents {
		agents[i] = fmt.Sprintf("%03d", i+1)
		if err := agentdb.Seed(ctx, store, agents[i], agentdb.SampleReports()...); err != nil {
			return nil, nil, err
		}
	}
	return store, agents, nil
}

// runBenchmarks executes every case against all agents
func runBenchmarks(ctx context.Context, config BenchmarkConfig, svc *core.Service, agents []string) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d agents, %d runs per case\n", len(agents), config.Runs)

	for _, c := range cases {
		fmt.Printf("Running %s\n", c.name)

		var times []float64
		items := 0
		for run := 1; run <= config.Runs; run++ {
			start := time.Now()
			result, err := c.run(ctx, svc, agents)
			if err != nil {
				fmt.Printf("  run %d failed: %v\n", run, err)
				continue
			}
			times = append(times, time.Since(start).Seconds())
			items = result.TotalAffectedItems
		}

		result := BenchmarkResult{Case: c.name, Agents: len(agents), Items: items, ColdTime: "FAILED", WarmTime: "FAILED"}
		if len(times) > 0 {
			result.ColdTime = fmt.Sprintf("%.4fs", times[0])
		}
		if len(times) > 1 {
			var sum float64
			for _, t := range times[1:] {
				sum += t
			}
			result.WarmTime = fmt.Sprintf("%.4fs", sum/float64(len(times)-1))
		}
		fmt.Printf("  Cold time: %s, Warm average: %s\n", result.ColdTime, result.WarmTime)
		results = append(results, result)
	}

	return results
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("sca_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	if err := writer.Write([]string{"case", "agents", "items", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write results
	for _, result := range results {
		record := []string{result.Case, strconv.Itoa(result.Agents), strconv.Itoa(result.Items), result.ColdTime, result.WarmTime}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %-20s: items: %d, Cold: %s, Warm: %s\n", result.Case, result.Items, result.ColdTime, result.WarmTime)
	}
}
