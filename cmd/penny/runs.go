package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/penny/internal/config"
	"github.com/ShayCichocki/penny/internal/state"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage stored runs",
	Long: `List and clean up checkpointed runs.

Active runs can be continued with 'penny run --resume <run-id>'.`,
	RunE: listRuns,
}

var runsRmCmd = &cobra.Command{
	Use:   "rm <run-id>",
	Short: "Delete a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, db, err := openRunStore()
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.DeleteRun(args[0]); err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var runsPurgeOlderThan time.Duration

var runsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete runs not updated recently",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, db, err := openRunStore()
		if err != nil {
			return err
		}
		defer db.Close()
		n, err := store.PurgeOldRuns(runsPurgeOlderThan)
		if err != nil {
			return fmt.Errorf("purge runs: %w", err)
		}
		fmt.Printf("Purged %d run(s)\n", n)
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to list")
	runsPurgeCmd.Flags().DurationVar(&runsPurgeOlderThan, "older-than", 7*24*time.Hour, "Purge runs not updated within this duration")
	runsCmd.AddCommand(runsRmCmd)
	runsCmd.AddCommand(runsPurgeCmd)
}

func listRuns(cmd *cobra.Command, args []string) error {
	store, db, err := openRunStore()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := store.ListRuns(runsLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No stored runs.")
		return nil
	}

	active := color.New(color.FgYellow)
	finished := color.New(color.FgGreen)
	dim := color.New(color.Faint)
	for _, r := range runs {
		status := finished
		if r.Status == state.RunStatusActive {
			status = active
		}
		status.Printf("%-10s", r.Status)
		fmt.Printf(" %s", r.Key)
		dim.Printf("  %s  %s\n", r.UpdatedAt.Format("2006-01-02 15:04"), truncateRequest(r.Request))
	}
	return nil
}

func openRunStore() (*state.RunStore, *state.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return openStore(cfg)
}

func truncateRequest(s string) string {
	const limit = 60
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
