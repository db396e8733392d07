// Package main provides a performance benchmarking tool for the prstats CLI.
// It measures how long check and report take per config file, once without the
// response cache and then with a fresh SQLite cache, treating the first cached run
// as cold and averaging the rest as warm. Results are written to CSV.
//
// Prerequisites:
// - prstats binary installed and available in PATH
// - A directory of prstats config files (*.yaml) whose token variables are exported
//
// Usage: go run benchmark/main.go [config-dir] [--since value]
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Config      string
	Command     string
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	ConfigDir   string
	Since       string
	Timeout     time.Duration
	Workers     int
	NoCacheRuns int
	CacheRuns   int
	Configs     []string
	CacheFile   string
}

func main() {
	// Parse command line arguments
	if len(os.Args) != 2 && len(os.Args) != 4 {
		fmt.Printf("Usage: %s [config-dir] [--since value]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		ConfigDir:   os.Args[1],
		Since:       "3 months ago",
		Timeout:     10 * time.Minute,
		Workers:     8,
		NoCacheRuns: 2,
		CacheRuns:   4,
		CacheFile:   filepath.Join(os.TempDir(), "prstats_benchmark_cache.db"),
	}
	if len(os.Args) == 4 && os.Args[2] == "--since" {
		config.Since = os.Args[3]
	}

	configs, err := checkPrerequisites(config)
	if err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}
	config.Configs = configs

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the prstats binary and at least one config file exist.
func checkPrerequisites(config BenchmarkConfig) ([]string, error) {
	if _, err := exec.LookPath("prstats"); err != nil {
		return nil, fmt.Errorf("prstats binary not found in PATH")
	}

	configs, err := filepath.Glob(filepath.Join(config.ConfigDir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("no *.yaml config files found in %s", config.ConfigDir)
	}
	return configs, nil
}

// runBenchmarks executes check and report for every config file.
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d configs, %v timeout, %d workers, no-cache: %d runs, cache: %d runs\n",
		len(config.Configs), config.Timeout, config.Workers, config.NoCacheRuns, config.CacheRuns)

	for _, path := range config.Configs {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		fmt.Printf("Benchmarking %s\n", name)

		results = append(results, runBenchmarkSuite(config, name, path, "check"))
		results = append(results, runBenchmarkSuite(config, name, path, "report"))
	}

	return results
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for a command.
func runBenchmarkSuite(config BenchmarkConfig, name, path, command string) BenchmarkResult {
	fmt.Printf("Running %s on %s\n", command, name)

	// Helper to run a benchmark phase
	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, path, command, cacheBackend, numRuns)
		if len(times) == 0 {
			return cold, "FAILED"
		}
		var sum float64
		for _, t := range times {
			sum += t
		}
		return cold, fmt.Sprintf("%.3fs", sum/float64(len(times)))
	}

	// Phase 1: No-cache runs
	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")

	// Phase 2: Cache runs against a fresh cache file
	_ = os.Remove(config.CacheFile)
	coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")

	coldTimeStr := "FAILED"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Config:      name,
		Command:     command,
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes a prstats command multiple times with the given cache backend and
// returns the cold time and warm times. The no-cache phase reports every run as warm.
func runBenchmark(config BenchmarkConfig, path, command, cacheBackend string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := []string{
		command, path,
		"--since", config.Since,
		"--max-workers", fmt.Sprint(config.Workers),
		"--cache-backend", cacheBackend,
		"--output", "json",
		"--output-file", "-",
	}
	if cacheBackend == "sqlite" {
		args = append(args, "--cache-db-connect", config.CacheFile)
	}

	var times []float64
	for range numRuns {
		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		start := time.Now()
		err := exec.CommandContext(ctx, "prstats", args...).Run()
		elapsed := time.Since(start).Seconds()
		cancel()

		if isSuccess(err) {
			times = append(times, elapsed)
		}
	}

	if cacheBackend == "none" {
		return 0, times
	}
	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess accepts a clean exit and the blocked exit code, which still did all the fetching.
func isSuccess(err error) bool {
	if err == nil {
		return true
	}
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == 3
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("prstats_benchmark_%s.csv", timestamp))

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
	if err := writer.Write([]string{"config", "cmd", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write results
	for _, result := range results {
		if err := writer.Write([]string{result.Config, result.Command, result.NoCacheTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")

	printCommandSummary(results, "check", "Threshold Check:")
	printCommandSummary(results, "report", "Report:")
}

// printCommandSummary displays results for a specific command type
func printCommandSummary(results []BenchmarkResult, command, title string) {
	fmt.Printf("%s\n", title)
	for _, result := range results {
		if result.Command == command {
			fmt.Printf("  %-16s: No-cache: %s, Cold: %s, Warm: %s\n", result.Config, result.NoCacheTime, result.ColdTime, result.WarmTime)
		}
	}
}
