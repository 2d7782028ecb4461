package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhinav-TB/Build-Trace/internal/anomaly"
	"github.com/abhinav-TB/Build-Trace/internal/metrics"
)

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <metrics-snapshot>",
		Short: "Evaluate pipeline health from a saved metrics snapshot",
		Long: `Run the anomaly heuristics over a metrics snapshot produced by
'buildtrace process --metrics-out' and report the derived health.

Exit codes: 0 = healthy, 1 = warning, 2 = degraded.`,
		Args: cobra.ExactArgs(1),
		RunE: runStatus,
	}
	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read metrics snapshot: %w", err)
	}
	var snap metrics.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to parse metrics snapshot: %w", err)
	}

	detector := anomaly.NewDetector()
	warnings := detector.Evaluate(snap)
	health := detector.Health(snap, warnings)
	printHealth(health, warnings)

	switch health {
	case anomaly.StatusWarning:
		os.Exit(1)
	case anomaly.StatusDegraded:
		os.Exit(2)
	}
	return nil
}
