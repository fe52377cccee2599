// Package audit persists the append-only tagging decision trail. Rows are
// keyed by (run_id, handle, pass_number); a new pass appends a new row and
// existing rows are never updated, so accuracy can always be recomputed from
// the latest pass per product.
package audit

import (
	"context"

	"github.com/greenlane/catalog-tagger/internal/model"
)

// Store is the persistence interface for runs and tagging attempts.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, configSnapshot string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Attempts
	Append(ctx context.Context, rec model.AuditRecord) error
	LatestAttempts(ctx context.Context, runID string) ([]model.AuditRecord, error)
	LatestAccuracy(ctx context.Context, runID string) (*model.Accuracy, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// computeAccuracy folds latest-pass records into the aggregate measure.
// Accurate means tagged, trusted, and free of validation failures.
func computeAccuracy(records []model.AuditRecord) *model.Accuracy {
	acc := &model.Accuracy{
		PerCategory: make(map[string]float64),
	}
	catTotal := make(map[string]int)
	catAccurate := make(map[string]int)

	for _, rec := range records {
		acc.Total++
		switch rec.Attempt.Bucket() {
		case model.BucketClean:
			acc.Clean++
		case model.BucketReview:
			acc.Review++
		case model.BucketUntagged:
			acc.Untagged++
		}
		cat := rec.Attempt.Category
		catTotal[cat]++
		if rec.Attempt.Accurate() {
			catAccurate[cat]++
		}
	}

	if acc.Total > 0 {
		accurate := 0
		for _, n := range catAccurate {
			accurate += n
		}
		acc.Overall = float64(accurate) / float64(acc.Total)
	}
	for cat, total := range catTotal {
		acc.PerCategory[cat] = float64(catAccurate[cat]) / float64(total)
	}
	return acc
}
