package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent tagging runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(ctx, runsLimit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("no runs recorded")
			return nil
		}
		for _, r := range runs {
			status := "running"
			if r.CompletedAt != nil {
				status = "completed " + r.CompletedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%s  started %s  %s\n",
				r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), status)
		}
		return nil
	},
}

var accuracyCmd = &cobra.Command{
	Use:   "accuracy <run-id>",
	Short: "Show latest-pass accuracy for a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		acc, err := store.LatestAccuracy(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("overall: %.2f%% (%d products: clean %d, review %d, untagged %d)\n",
			acc.Overall*100, acc.Total, acc.Clean, acc.Review, acc.Untagged)
		for cat, v := range acc.PerCategory {
			fmt.Printf("  %-20s %.2f%%\n", cat, v*100)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "max runs to list")
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(accuracyCmd)
}
