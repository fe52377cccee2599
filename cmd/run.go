package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/greenlane/catalog-tagger/internal/catalog"
	"github.com/greenlane/catalog-tagger/internal/config"
	"github.com/greenlane/catalog-tagger/internal/export"
	"github.com/greenlane/catalog-tagger/internal/orchestrator"
)

var (
	runInput      string
	runOutputDir  string
	runTarget     float64
	runMaxIters   int
	runLimit      int
	runWorkers    int
	runBudgetSecs int
	runNoAI       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Tag a product catalog export",
	Long:  "Loads a product export, runs tagging passes until the accuracy target is met or the iteration bound is hit, and writes clean/review/untagged output files. Exits 2 when the run completes below target.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx, !runNoAI)
		if err != nil {
			return err
		}
		defer e.Close()

		products, err := catalog.ReadFile(runInput)
		if err != nil {
			return err
		}
		if runLimit > 0 && len(products) > runLimit {
			products = products[:runLimit]
		}
		if len(products) == 0 {
			return eris.New("no products in input")
		}

		ocfg := resolveOrchestratorConfig(cfg, runTarget, runMaxIters, runWorkers, runBudgetSecs)

		snapshot, err := yaml.Marshal(map[string]any{
			"input":           runInput,
			"target_accuracy": ocfg.TargetAccuracy,
			"max_iterations":  ocfg.MaxIterations,
			"workers":         ocfg.Workers,
			"no_ai":           runNoAI,
			"threshold":       cfg.Cascade.ConfidenceThreshold,
		})
		if err != nil {
			return eris.Wrap(err, "marshal config snapshot")
		}

		outDir := runOutputDir
		if outDir == "" {
			outDir = cfg.Export.Dir
		}

		orch := orchestrator.New(e.Schema, e.Cascade, e.Advisor, e.Store, export.New(outDir), ocfg)
		summary, err := orch.Run(ctx, products, string(snapshot))
		if err != nil {
			return err
		}

		zap.L().Info("run complete",
			zap.String("run_id", summary.RunID),
			zap.Int("passes", summary.Passes),
			zap.Float64("accuracy", summary.Accuracy.Overall),
			zap.Bool("target_met", summary.TargetMet),
		)
		fmt.Printf("run %s: %d passes, accuracy %.2f%% (clean %d, review %d, untagged %d)\n",
			summary.RunID, summary.Passes, summary.Accuracy.Overall*100,
			summary.Accuracy.Clean, summary.Accuracy.Review, summary.Accuracy.Untagged)
		fmt.Printf("output: %s | %s | %s\n", summary.Paths.Clean, summary.Paths.Review, summary.Paths.Untagged)

		if !summary.TargetMet {
			return errTargetMissed
		}
		return nil
	},
}

// resolveOrchestratorConfig layers flag overrides over the config file: an
// unset flag (zero) falls back to the configured value.
func resolveOrchestratorConfig(c *config.Config, target float64, maxIters, workers, budgetSecs int) orchestrator.Config {
	ocfg := orchestrator.Config{
		TargetAccuracy: target,
		MaxIterations:  maxIters,
		Workers:        workers,
		Budget:         time.Duration(budgetSecs) * time.Second,
	}
	if ocfg.TargetAccuracy <= 0 {
		ocfg.TargetAccuracy = c.Orchestrator.TargetAccuracy
	}
	if ocfg.MaxIterations <= 0 {
		ocfg.MaxIterations = c.Orchestrator.MaxIterations
	}
	if ocfg.Workers <= 0 {
		ocfg.Workers = c.Orchestrator.Workers
	}
	if budgetSecs == 0 && c.Orchestrator.BudgetSecs > 0 {
		ocfg.Budget = time.Duration(c.Orchestrator.BudgetSecs) * time.Second
	}
	return ocfg
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "product export CSV (required)")
	runCmd.Flags().StringVar(&runOutputDir, "output", "", "output directory (default from config)")
	runCmd.Flags().Float64Var(&runTarget, "target", 0, "accuracy target (default from config)")
	runCmd.Flags().IntVar(&runMaxIters, "max-iterations", 0, "maximum improvement passes (default from config)")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "max products to process (0 = all)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "worker pool size (default from config)")
	runCmd.Flags().IntVar(&runBudgetSecs, "budget-secs", 0, "wall-clock budget in seconds (0 = unbounded)")
	runCmd.Flags().BoolVar(&runNoAI, "no-ai", false, "rule-only tagging, no model calls")
	_ = runCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(runCmd)
}
