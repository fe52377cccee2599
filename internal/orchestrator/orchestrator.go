// Package orchestrator drives batches of products through the tagging
// pipeline and loops improvement passes until the accuracy target is met,
// the iteration bound is hit, or the time budget runs out.
package orchestrator

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/greenlane/catalog-tagger/internal/audit"
	"github.com/greenlane/catalog-tagger/internal/cascade"
	"github.com/greenlane/catalog-tagger/internal/detect"
	"github.com/greenlane/catalog-tagger/internal/export"
	"github.com/greenlane/catalog-tagger/internal/model"
	"github.com/greenlane/catalog-tagger/internal/recovery"
	"github.com/greenlane/catalog-tagger/internal/resilience"
	"github.com/greenlane/catalog-tagger/internal/ruletag"
	"github.com/greenlane/catalog-tagger/internal/schema"
	"github.com/greenlane/catalog-tagger/internal/validate"
)

// State is the orchestrator's position in the run lifecycle.
type State string

const (
	StateInit       State = "INIT"
	StateTagging    State = "TAGGING"
	StateEvaluating State = "EVALUATING"
	StateDone       State = "DONE"
)

// Config controls one run.
type Config struct {
	TargetAccuracy float64
	MaxIterations  int
	Workers        int
	Budget         time.Duration // 0 = unbounded
}

// Summary is the final report of a run.
type Summary struct {
	RunID     string
	Passes    int
	Accuracy  model.Accuracy
	Paths     export.Paths
	TargetMet bool
}

// Orchestrator composes the pipeline stages. Cascade and advisor may be nil
// for rule-only runs.
type Orchestrator struct {
	schema    *schema.Schema
	detector  *detect.Detector
	tagger    *ruletag.Tagger
	cascade   *cascade.Cascade
	advisor   *recovery.Advisor
	validator *validate.Validator
	store     audit.Store
	exporter  *export.Exporter
	cfg       Config

	state State
}

// New wires the pipeline together.
func New(s *schema.Schema, casc *cascade.Cascade, adv *recovery.Advisor, store audit.Store, exp *export.Exporter, cfg Config) *Orchestrator {
	if cfg.TargetAccuracy <= 0 {
		cfg.TargetAccuracy = 0.90
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 3
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Orchestrator{
		schema:    s,
		detector:  detect.New(s),
		tagger:    ruletag.New(s),
		cascade:   casc,
		advisor:   adv,
		validator: validate.New(s),
		store:     store,
		exporter:  exp,
		cfg:       cfg,
		state:     StateInit,
	}
}

// State returns the orchestrator's current lifecycle state.
func (o *Orchestrator) State() State {
	return o.state
}

// Run processes products to completion and exports the three output sets.
// Passes are strictly sequential: accuracy for pass n is computed from a
// fully flushed audit trail before pass n+1 starts. On budget or context
// exhaustion it exports best-effort partial results instead of failing.
func (o *Orchestrator) Run(ctx context.Context, products []model.Product, configSnapshot string) (*Summary, error) {
	run, err := o.store.CreateRun(ctx, configSnapshot)
	if err != nil {
		return nil, eris.Wrap(err, "orchestrator: create run")
	}

	// The exporter needs the original product columns per handle.
	index := make(map[string]model.Product, len(products))
	for _, p := range products {
		index[p.Handle] = p
	}

	start := time.Now()
	var deadline time.Time
	if o.cfg.Budget > 0 {
		deadline = start.Add(o.cfg.Budget)
	}

	subset := products
	pass := 0
	var acc *model.Accuracy

	for {
		o.state = StateTagging
		zap.L().Info("starting tagging pass",
			zap.String("run_id", run.ID),
			zap.Int("pass", pass),
			zap.Int("products", len(subset)),
		)

		if err := o.runPass(ctx, run.ID, pass, subset); err != nil {
			// The output contract promises all three files even for an
			// aborted run, so flush whatever the store already holds.
			o.exportBestEffort(run.ID, index)
			return nil, err
		}

		o.state = StateEvaluating
		acc, err = o.store.LatestAccuracy(ctx, run.ID)
		if err != nil {
			return nil, eris.Wrap(err, "orchestrator: latest accuracy")
		}
		zap.L().Info("pass complete",
			zap.String("run_id", run.ID),
			zap.Int("pass", pass),
			zap.Float64("accuracy", acc.Overall),
			zap.Float64("target", o.cfg.TargetAccuracy),
			zap.Int("clean", acc.Clean),
			zap.Int("review", acc.Review),
			zap.Int("untagged", acc.Untagged),
		)

		if acc.Overall >= o.cfg.TargetAccuracy {
			break
		}
		if pass+1 >= o.cfg.MaxIterations {
			zap.L().Warn("iteration bound reached below target",
				zap.Float64("accuracy", acc.Overall))
			break
		}
		if ctx.Err() != nil {
			zap.L().Warn("run cancelled, exporting partial results")
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			zap.L().Warn("time budget exhausted, exporting partial results",
				zap.Duration("budget", o.cfg.Budget))
			break
		}

		subset, err = o.unresolvedSubset(ctx, run.ID, products)
		if err != nil {
			return nil, err
		}
		if len(subset) == 0 {
			break
		}
		pass++
	}

	o.state = StateDone
	records, err := o.store.LatestAttempts(ctx, run.ID)
	if err != nil {
		return nil, eris.Wrap(err, "orchestrator: latest attempts")
	}
	paths, err := o.exporter.Write(records, index)
	if err != nil {
		return nil, err
	}
	if err := o.store.CompleteRun(ctx, run.ID); err != nil {
		return nil, err
	}

	return &Summary{
		RunID:     run.ID,
		Passes:    pass + 1,
		Accuracy:  *acc,
		Paths:     *paths,
		TargetMet: acc.Overall >= o.cfg.TargetAccuracy,
	}, nil
}

// exportBestEffort writes the output files from whatever audit rows a
// failed or cancelled run managed to persist. The caller's context may
// already be dead, so the store reads get a fresh short-lived one.
func (o *Orchestrator) exportBestEffort(runID string, index map[string]model.Product) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	records, err := o.store.LatestAttempts(ctx, runID)
	if err != nil {
		zap.L().Error("partial export: latest attempts", zap.Error(err))
		records = nil
	}
	if _, err := o.exporter.Write(records, index); err != nil {
		zap.L().Error("partial export failed", zap.Error(err))
		return
	}
	zap.L().Warn("exported partial results after aborted pass",
		zap.String("run_id", runID),
		zap.Int("records", len(records)),
	)
}

// runPass tags the subset with a bounded worker pool. Products share no
// mutable state, so workers only contend on the audit store, whose writes
// are append-only under distinct keys. An audit write failure is fatal to
// the pass: accuracy accounting would be silently wrong otherwise.
func (o *Orchestrator) runPass(ctx context.Context, runID string, pass int, products []model.Product) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)

	for _, p := range products {
		g.Go(func() error {
			attempt := o.processProduct(gctx, p)
			rec := model.AuditRecord{
				RunID:       runID,
				Handle:      p.Handle,
				PassNumber:  pass,
				Attempt:     attempt,
				ProcessedAt: time.Now().UTC(),
			}

			err := resilience.Do(gctx, resilience.RetryConfig{
				MaxAttempts:    3,
				InitialBackoff: 200 * time.Millisecond,
				ShouldRetry:    func(error) bool { return true },
				OnRetry:        resilience.RetryLogger("audit", "append"),
			}, func(ctx context.Context) error {
				return o.store.Append(ctx, rec)
			})
			if err != nil {
				return eris.Wrapf(err, "orchestrator: audit write for %s", p.Handle)
			}
			return nil
		})
	}

	return g.Wait()
}

// processProduct runs one product through detect, rule-tag, cascade,
// validate, and recovery. It never returns an error: every per-product
// problem lands in the attempt's validation failures.
func (o *Orchestrator) processProduct(ctx context.Context, p model.Product) model.TaggingAttempt {
	attempt := model.TaggingAttempt{Handle: p.Handle}

	category := o.detector.Detect(p)
	attempt.Category = category
	if category == model.CategoryUnknown {
		// No schema dimensions apply, so no rule or model pass could
		// produce a valid tag. Routed straight to untagged.
		attempt.ModelUsed = model.TierNone
		attempt.ValidationFailures = []string{validate.FailureCategoryNotDetected}
		return attempt
	}

	ruleRes := o.tagger.Tag(p, category)
	attempt.RuleTags = ruleRes.Tags
	attempt.SecondaryFlavors = ruleRes.SecondaryFlavors

	var aiTags []string
	if o.cascade != nil {
		res := o.cascade.Generate(ctx, p, category, ruleRes.Tags)
		aiTags = res.Tags
		attempt.AITags = res.Tags
		attempt.Confidence = res.Confidence
		attempt.ModelUsed = res.ModelUsed
		if res.Confidence < o.cascade.Threshold() {
			attempt.NeedsManualReview = true
		}
	} else {
		attempt.ModelUsed = model.TierNone
	}

	candidate := mergeTags(category, ruleRes.Tags, aiTags)
	ok, failures := o.validator.Validate(candidate, category)

	// Rule extraction failures (like an illegal nicotine strength) are kept
	// alongside validation failures so the audit row names every problem.
	allFailures := append(append([]string{}, ruleRes.Failures...), failures...)

	if ok && len(ruleRes.Failures) == 0 {
		attempt.FinalTags = candidate
		return attempt
	}

	attempt.NeedsManualReview = true
	if o.advisor != nil && !ok {
		recovered, succeeded := o.advisor.Recover(ctx, p, category, candidate, allFailures)
		if succeeded {
			attempt.FinalTags = mergeTags(category, recovered, nil)
			attempt.ModelUsed = model.TierRecovery
			return attempt
		}
		// Recovery failed: route to untagged, keeping the original reasons.
		attempt.ValidationFailures = allFailures
		return attempt
	}

	attempt.ValidationFailures = allFailures
	if ok {
		// Only rule failures remain; the candidate tags themselves are valid.
		attempt.FinalTags = candidate
	}
	return attempt
}

// unresolvedSubset selects the products whose latest attempt needs another
// pass. The full batch is never re-processed.
func (o *Orchestrator) unresolvedSubset(ctx context.Context, runID string, products []model.Product) ([]model.Product, error) {
	records, err := o.store.LatestAttempts(ctx, runID)
	if err != nil {
		return nil, eris.Wrap(err, "orchestrator: latest attempts")
	}

	unresolved := make(map[string]bool, len(records))
	for _, rec := range records {
		if rec.Attempt.Unresolved() {
			unresolved[rec.Handle] = true
		}
	}

	var subset []model.Product
	for _, p := range products {
		if unresolved[p.Handle] {
			subset = append(subset, p)
		}
	}
	return subset, nil
}

// mergeTags builds the final tag set: category first, then rule and AI tags
// deduplicated in first-seen order.
func mergeTags(category string, ruleTags, aiTags []string) []string {
	out := []string{category}
	seen := map[string]bool{category: true}
	for _, group := range [][]string{ruleTags, aiTags} {
		for _, t := range group {
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
