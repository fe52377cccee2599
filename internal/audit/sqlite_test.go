package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenlane/catalog-tagger/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func cleanAttempt(handle, category string) model.TaggingAttempt {
	return model.TaggingAttempt{
		Handle:     handle,
		Category:   category,
		RuleTags:   []string{"fruity"},
		AITags:     []string{"fruity", "10mg"},
		Confidence: 0.9,
		ModelUsed:  model.TierPrimary,
		FinalTags:  []string{category, "fruity", "10mg"},
	}
}

func record(runID, handle string, pass int, a model.TaggingAttempt) model.AuditRecord {
	return model.AuditRecord{
		RunID:       runID,
		Handle:      handle,
		PassNumber:  pass,
		Attempt:     a,
		ProcessedAt: time.Now().UTC(),
	}
}

func TestSQLite_CreateAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, `target_accuracy: 0.9`)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Nil(t, run.CompletedAt)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, `target_accuracy: 0.9`, got.ConfigSnapshot)
	assert.Nil(t, got.CompletedAt)

	_, err = st.GetRun(ctx, "no-such-run")
	assert.Error(t, err)
}

func TestSQLite_CompleteRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "{}")
	require.NoError(t, err)

	require.NoError(t, st.CompleteRun(ctx, run.ID))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
}

func TestSQLite_CompleteRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.CompleteRun(context.Background(), "no-such-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := st.CreateRun(ctx, "{}")
		require.NoError(t, err)
	}

	runs, err := st.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = st.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestSQLite_Append_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "{}")
	require.NoError(t, err)

	a := cleanAttempt("mango-10ml", "e-liquid")
	a.SecondaryFlavors = []string{"mango"}
	a.ValidationFailures = []string{"tag 'x' does not apply to category 'e-liquid'"}
	a.NeedsManualReview = true
	require.NoError(t, st.Append(ctx, record(run.ID, "mango-10ml", 0, a)))

	records, err := st.LatestAttempts(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0].Attempt
	assert.Equal(t, "mango-10ml", got.Handle)
	assert.Equal(t, "e-liquid", got.Category)
	assert.Equal(t, a.RuleTags, got.RuleTags)
	assert.Equal(t, []string{"mango"}, got.SecondaryFlavors)
	assert.Equal(t, a.AITags, got.AITags)
	assert.Equal(t, a.FinalTags, got.FinalTags)
	assert.Equal(t, a.ValidationFailures, got.ValidationFailures)
	assert.Equal(t, 0.9, got.Confidence)
	assert.Equal(t, model.TierPrimary, got.ModelUsed)
	assert.True(t, got.NeedsManualReview)
}

func TestSQLite_Append_DuplicatePassRejected(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "{}")
	require.NoError(t, err)

	rec := record(run.ID, "mango", 0, cleanAttempt("mango", "e-liquid"))
	require.NoError(t, st.Append(ctx, rec))

	// Same (run_id, handle, pass_number) must not insert twice.
	assert.Error(t, st.Append(ctx, rec))
}

func TestSQLite_LatestAttempts_LatestPassOnly(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "{}")
	require.NoError(t, err)

	// mango fails pass 0 and is fixed on pass 1; berry only has pass 0.
	failed := cleanAttempt("mango", "e-liquid")
	failed.FinalTags = nil
	failed.ValidationFailures = []string{"nicotine_strength value out of range"}
	require.NoError(t, st.Append(ctx, record(run.ID, "mango", 0, failed)))
	require.NoError(t, st.Append(ctx, record(run.ID, "berry", 0, cleanAttempt("berry", "e-liquid"))))
	require.NoError(t, st.Append(ctx, record(run.ID, "mango", 1, cleanAttempt("mango", "e-liquid"))))

	records, err := st.LatestAttempts(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Ordered by handle.
	assert.Equal(t, "berry", records[0].Handle)
	assert.Equal(t, 0, records[0].PassNumber)
	assert.Equal(t, "mango", records[1].Handle)
	assert.Equal(t, 1, records[1].PassNumber)
	assert.Empty(t, records[1].Attempt.ValidationFailures)
}

func TestSQLite_LatestAttempts_ScopedToRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run1, err := st.CreateRun(ctx, "{}")
	require.NoError(t, err)
	run2, err := st.CreateRun(ctx, "{}")
	require.NoError(t, err)

	require.NoError(t, st.Append(ctx, record(run1.ID, "mango", 0, cleanAttempt("mango", "e-liquid"))))
	require.NoError(t, st.Append(ctx, record(run2.ID, "berry", 0, cleanAttempt("berry", "e-liquid"))))

	records, err := st.LatestAttempts(ctx, run1.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "mango", records[0].Handle)
}

func TestSQLite_LatestAccuracy(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "{}")
	require.NoError(t, err)

	// clean e-liquid
	require.NoError(t, st.Append(ctx, record(run.ID, "clean-1", 0, cleanAttempt("clean-1", "e-liquid"))))

	// review-flagged pod
	review := cleanAttempt("review-1", "pod")
	review.NeedsManualReview = true
	require.NoError(t, st.Append(ctx, record(run.ID, "review-1", 0, review)))

	// untagged unknown
	untagged := model.TaggingAttempt{Handle: "untagged-1", Category: model.CategoryUnknown}
	require.NoError(t, st.Append(ctx, record(run.ID, "untagged-1", 0, untagged)))

	// an early failure superseded by a clean later pass must count as clean
	failed := cleanAttempt("retry-1", "e-liquid")
	failed.FinalTags = nil
	require.NoError(t, st.Append(ctx, record(run.ID, "retry-1", 0, failed)))
	require.NoError(t, st.Append(ctx, record(run.ID, "retry-1", 1, cleanAttempt("retry-1", "e-liquid"))))

	acc, err := st.LatestAccuracy(ctx, run.ID)
	require.NoError(t, err)

	assert.Equal(t, 4, acc.Total)
	assert.Equal(t, 2, acc.Clean)
	assert.Equal(t, 1, acc.Review)
	assert.Equal(t, 1, acc.Untagged)
	assert.Equal(t, 0.5, acc.Overall)
	assert.Equal(t, 1.0, acc.PerCategory["e-liquid"])
	assert.Equal(t, 0.0, acc.PerCategory["pod"])
	assert.Equal(t, 0.0, acc.PerCategory[model.CategoryUnknown])
}

func TestSQLite_LatestAccuracy_EmptyRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "{}")
	require.NoError(t, err)

	acc, err := st.LatestAccuracy(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, acc.Total)
	assert.Equal(t, 0.0, acc.Overall)
	assert.Empty(t, acc.PerCategory)
}
