package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show storage usage",
	RunE:  runStats,
}

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all stored accounts and datasets",
	Long: `Reset wipes both storage tiers. The durable tier deletion is given a
bounded time to complete; if it does not acknowledge in time the reset
is reported as possibly incomplete.`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "confirm deletion of all data")
}

func runStats(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	stats := e.manager.Stats(context.Background())

	fmt.Printf("Accounts:          %d\n", stats.AccountCount)
	for category, count := range stats.DatasetCounts {
		fmt.Printf("Datasets (%s): %d\n", category, count)
	}
	fmt.Printf("Fast tier usage:    %s\n", formatBytes(stats.FastTierBytes))
	fmt.Printf("Durable tier usage: %s\n", formatBytes(stats.DurableTierBytes))
	if stats.Degraded {
		fmt.Println("Note: some storage probes failed; numbers may be incomplete")
	}
	return nil
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetYes {
		return fmt.Errorf("refusing to delete all data without --yes")
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	result, err := e.manager.Wipe(context.Background())
	if err != nil {
		return err
	}

	if result.Complete {
		fmt.Println("All stored data deleted")
	} else {
		fmt.Printf("Reset may be incomplete: %s\n", result.Detail)
	}
	return nil
}
