package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abhinav-TB/Build-Trace/internal/anomaly"
	"github.com/abhinav-TB/Build-Trace/internal/metrics"
	"github.com/abhinav-TB/Build-Trace/internal/worker"
)

func newProcessCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <manifest>",
		Short: "Run a batch of drawing comparisons",
		Long: `Process every pair listed in a manifest through the detection worker
pool, then print the run's metrics and any anomaly warnings.

Manifest format:
  {"pairs": [{"id": "HPI-L3-0001", "a": "inputs/A.json", "b": "inputs/B.json"}]}

Pairs without an id get a generated one.`,
		Args: cobra.ExactArgs(1),
		RunE: runProcess,
	}

	cmd.Flags().Int("workers", 0, "worker goroutines (default: number of CPUs)")
	cmd.Flags().String("results", "", "prefix (directory or gs:// path) for per-job result files")
	cmd.Flags().String("metrics-out", "", "write the final metrics snapshot to this file")

	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}
	var manifest worker.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("failed to parse manifest: %w", err)
	}
	if len(manifest.Pairs) == 0 {
		return fmt.Errorf("manifest contains no pairs")
	}

	ctx := context.Background()
	store := newStore()
	defer store.Close()

	agg := metrics.New(metrics.WithAggregatorLogger(log))

	workers, _ := cmd.Flags().GetInt("workers")
	if workers == 0 {
		workers = cfg.Workers.Count
	}
	resultsPrefix, _ := cmd.Flags().GetString("results")
	if resultsPrefix == "" {
		resultsPrefix = cfg.Storage.ResultsPrefix
	}

	pool := worker.NewPool(newEngine(), store, agg,
		worker.WithWorkerCount(workers),
		worker.WithResultsPrefix(resultsPrefix),
		worker.WithPoolLogger(log),
	)
	pool.Run(ctx, manifest.Pairs)

	snap := agg.Snapshot()
	detector := anomaly.NewDetector()
	warnings := detector.Evaluate(snap)
	printRunReport(snap, warnings, detector.Health(snap, warnings))

	if out, _ := cmd.Flags().GetString("metrics-out"); out != "" {
		encoded, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode metrics snapshot: %w", err)
		}
		if err := os.WriteFile(out, encoded, 0o644); err != nil {
			return fmt.Errorf("failed to write metrics snapshot: %w", err)
		}
	}
	return nil
}

func printRunReport(snap metrics.Snapshot, warnings []string, health anomaly.Status) {
	bold := color.New(color.Bold)

	bold.Println("Run Metrics")
	fmt.Printf("  Jobs:         %d (%d succeeded, %d failed)\n", snap.TotalJobs, snap.Succeeded, snap.Failed)
	fmt.Printf("  Success rate: %.1f%%\n", snap.SuccessRate*100)
	fmt.Printf("  Latency:      p50=%.3fs p95=%.3fs p99=%.3fs\n", snap.Latency.P50, snap.Latency.P95, snap.Latency.P99)
	fmt.Printf("  Changes:      %d added, %d removed, %d moved\n",
		snap.Changes.Added, snap.Changes.Removed, snap.Changes.Moved)
	fmt.Println()

	printHealth(health, warnings)
}

func printHealth(health anomaly.Status, warnings []string) {
	switch health {
	case anomaly.StatusHealthy:
		color.Green("Status: healthy")
	case anomaly.StatusWarning:
		color.Yellow("Status: warning")
	case anomaly.StatusDegraded:
		color.Red("Status: degraded")
	}
	for _, w := range warnings {
		color.Yellow("  ! %s", w)
	}
}
