package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/greenlane/catalog-tagger/internal/config"
)

var cfg *config.Config

// errTargetMissed signals a completed run that fell short of the accuracy
// target. Distinct exit code so callers can tell it apart from a crash.
var errTargetMissed = errors.New("accuracy target missed")

var rootCmd = &cobra.Command{
	Use:   "tagger",
	Short: "Catalog tagging pipeline",
	Long:  "Assigns controlled-vocabulary tags to vaping/CBD product catalogs via deterministic rules and a multi-model AI cascade, iterating until an accuracy target is met.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errTargetMissed) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
