package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abhinav-TB/Build-Trace/pkg/types"
)

func newDiffCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <version-a> <version-b>",
		Short: "Compare two drawing versions",
		Long: `Compare two drawing snapshots and report added, removed, and moved
objects. Inputs are JSON files, either local paths or gs:// URIs.

Exit codes: 0 = no changes, 1 = changes detected.`,
		Example: `  # Compare two local drawing files
  buildtrace diff floor3_A.json floor3_B.json

  # Machine-readable output
  buildtrace diff floor3_A.json floor3_B.json --format json

  # Compare snapshots stored in GCS
  buildtrace diff gs://drawings/A.json gs://drawings/B.json`,
		Args: cobra.ExactArgs(2),
		RunE: runDiff,
	}

	cmd.Flags().String("format", "text", "output format (text, json)")
	cmd.Flags().StringP("output", "o", "", "write the change set to a file instead of stdout")

	return cmd
}

func runDiff(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store := newStore()
	defer store.Close()

	a, err := store.LoadObjects(ctx, args[0])
	if err != nil {
		return err
	}
	b, err := store.LoadObjects(ctx, args[1])
	if err != nil {
		return err
	}

	cs := newEngine().Compute(ctx, a, b)

	if out, _ := cmd.Flags().GetString("output"); out != "" {
		if err := store.WriteResult(ctx, out, cs); err != nil {
			return err
		}
	} else if format, _ := cmd.Flags().GetString("format"); format == "json" {
		data, err := json.MarshalIndent(cs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		printChangeSet(cs)
	}

	if !cs.Empty() {
		// Mirror git diff: changes flip the exit code for scripts.
		os.Exit(1)
	}
	return nil
}

func printChangeSet(cs *types.ChangeSet) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	bold.Println("Drawing Changes")
	fmt.Printf("  Added:   %d\n", cs.Stats.AddedCount)
	fmt.Printf("  Removed: %d\n", cs.Stats.RemovedCount)
	fmt.Printf("  Moved:   %d\n", cs.Stats.MovedCount)
	fmt.Println()

	for i := range cs.Added {
		obj := &cs.Added[i]
		green.Printf("  + %s %s\n", obj.TypeOrDefault(), obj.ID)
	}
	for i := range cs.Removed {
		obj := &cs.Removed[i]
		red.Printf("  - %s %s\n", obj.TypeOrDefault(), obj.ID)
	}
	for _, m := range cs.Moved {
		yellow.Printf("  ~ %s %s (%+g,%+g)\n", m.Type, m.ID, m.Delta.X, m.Delta.Y)
	}
	if cs.Stats.TotalChanges > 0 {
		fmt.Println()
	}

	fmt.Println(cs.Summary)
}
