package export

import (
	"encoding/csv"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenlane/catalog-tagger/internal/model"
)

func fixedExporter(t *testing.T) (*Exporter, string) {
	t.Helper()
	dir := t.TempDir()
	e := New(dir).WithNow(func() time.Time {
		return time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC)
	})
	return e, dir
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func attemptRecord(handle string, a model.TaggingAttempt) model.AuditRecord {
	a.Handle = handle
	return model.AuditRecord{RunID: "run-1", Handle: handle, Attempt: a}
}

func testProducts() map[string]model.Product {
	return map[string]model.Product{
		"clean-1": {
			Handle:       "clean-1",
			Title:        "Mango Nic Salt 10ml",
			BodyHTML:     "<p>A tropical nic salt.</p>",
			Vendor:       "CloudCo",
			ExistingType: "E-Liquid",
		},
		"review-1": {
			Handle:   "review-1",
			Title:    "Replacement Pod 2ml",
			BodyHTML: "<p>Refillable pod.</p>",
			Vendor:   "PodWorks",
		},
		"untagged-1": {
			Handle:       "untagged-1",
			Title:        "Mystery Accessory",
			Vendor:       "CloudCo",
			ExistingTags: []string{"clearance", "accessory"},
		},
	}
}

func TestWrite_BucketRouting(t *testing.T) {
	e, _ := fixedExporter(t)

	records := []model.AuditRecord{
		attemptRecord("clean-1", model.TaggingAttempt{
			Category:   "e-liquid",
			FinalTags:  []string{"e-liquid", "fruity", "10mg"},
			Confidence: 0.92,
			ModelUsed:  model.TierPrimary,
		}),
		attemptRecord("review-1", model.TaggingAttempt{
			Category:           "pod",
			FinalTags:          []string{"pod", "2ml"},
			Confidence:         0.55,
			ModelUsed:          model.TierTertiary,
			NeedsManualReview:  true,
			ValidationFailures: []string{"tag 'fruity' does not apply to category 'pod'"},
		}),
		attemptRecord("untagged-1", model.TaggingAttempt{
			Category:           model.CategoryUnknown,
			ModelUsed:          model.TierNone,
			ValidationFailures: []string{"category not detected"},
		}),
	}

	paths, err := e.Write(records, testProducts())
	require.NoError(t, err)

	clean := readCSV(t, paths.Clean)
	require.Len(t, clean, 2)
	assert.Equal(t, []string{"Handle", "Title", "Body (HTML)", "Vendor", "Type",
		"Tags", "Category"}, clean[0])
	assert.Equal(t, []string{"clean-1", "Mango Nic Salt 10ml", "<p>A tropical nic salt.</p>",
		"CloudCo", "E-Liquid", "e-liquid, fruity, 10mg", "e-liquid"}, clean[1])

	review := readCSV(t, paths.Review)
	require.Len(t, review, 2)
	assert.Equal(t, []string{"Handle", "Title", "Body (HTML)", "Vendor", "Type",
		"Tags", "Category", "Needs Manual Review", "AI Confidence", "Model Used", "Failure Reasons"}, review[0])
	assert.Equal(t, []string{"review-1", "Replacement Pod 2ml", "<p>Refillable pod.</p>",
		"PodWorks", "", "pod, 2ml", "pod", "YES", "0.55", "tertiary",
		"tag 'fruity' does not apply to category 'pod'"}, review[1])

	untagged := readCSV(t, paths.Untagged)
	require.Len(t, untagged, 2)
	assert.Equal(t, []string{"Handle", "Title", "Body (HTML)", "Vendor", "Type",
		"Tags", "Failure Reasons"}, untagged[0])
	assert.Equal(t, []string{"untagged-1", "Mystery Accessory", "", "CloudCo", "",
		"clearance, accessory", "category not detected"}, untagged[1])
}

func TestWrite_EveryReviewRowFlaggedYes(t *testing.T) {
	e, _ := fixedExporter(t)

	paths, err := e.Write([]model.AuditRecord{
		attemptRecord("review-1", model.TaggingAttempt{
			Category:          "pod",
			FinalTags:         []string{"pod"},
			Confidence:        0.4,
			ModelUsed:         model.TierSecondary,
			NeedsManualReview: true,
		}),
	}, testProducts())
	require.NoError(t, err)

	review := readCSV(t, paths.Review)
	require.Len(t, review, 2)
	assert.Equal(t, "YES", review[1][7])
}

func TestWrite_UnknownHandleGetsBlankProductFields(t *testing.T) {
	e, _ := fixedExporter(t)

	paths, err := e.Write([]model.AuditRecord{
		attemptRecord("ghost", model.TaggingAttempt{
			Category:   "e-liquid",
			FinalTags:  []string{"e-liquid"},
			Confidence: 0.9,
			ModelUsed:  model.TierPrimary,
		}),
	}, nil)
	require.NoError(t, err)

	clean := readCSV(t, paths.Clean)
	require.Len(t, clean, 2)
	assert.Equal(t, []string{"ghost", "", "", "", "", "e-liquid", "e-liquid"}, clean[1])
}

func TestWrite_EmptyRunStillWritesAllFiles(t *testing.T) {
	e, _ := fixedExporter(t)

	paths, err := e.Write(nil, nil)
	require.NoError(t, err)

	for _, p := range []string{paths.Clean, paths.Review, paths.Untagged, paths.Workbook} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}

	// Header only.
	assert.Len(t, readCSV(t, paths.Clean), 1)
	assert.Len(t, readCSV(t, paths.Review), 1)
	assert.Len(t, readCSV(t, paths.Untagged), 1)
}

func TestWrite_TimestampPrefixedNames(t *testing.T) {
	e, _ := fixedExporter(t)

	paths, err := e.Write(nil, nil)
	require.NoError(t, err)

	assert.Contains(t, paths.Clean, "20260301_123045_tagged_clean.csv")
	assert.Contains(t, paths.Review, "20260301_123045_tagged_review.csv")
	assert.Contains(t, paths.Untagged, "20260301_123045_untagged.csv")
	assert.Contains(t, paths.Workbook, "20260301_123045_tagged_review.xlsx")
}

func TestWrite_ReviewWorkbook(t *testing.T) {
	e, _ := fixedExporter(t)

	paths, err := e.Write([]model.AuditRecord{
		attemptRecord("review-1", model.TaggingAttempt{
			Category:          "pod",
			FinalTags:         []string{"pod"},
			Confidence:        0.4,
			ModelUsed:         model.TierSecondary,
			NeedsManualReview: true,
		}),
	}, testProducts())
	require.NoError(t, err)

	info, err := os.Stat(paths.Workbook)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
