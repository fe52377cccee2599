// Package export writes the three disjoint output sets of a finished run:
// clean, review, and untagged. All three files are always produced, even
// when empty, so downstream imports never have to probe for existence.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/greenlane/catalog-tagger/internal/model"
)

// Paths lists the files written for one run.
type Paths struct {
	Clean    string
	Review   string
	Untagged string
	Workbook string
}

// Every output file repeats the product's original columns so the files
// can be fed straight back into a catalog import. The tagged files carry
// the final tags in the Tags column, which is what the import reads.
var (
	cleanColumns = []string{"Handle", "Title", "Body (HTML)", "Vendor", "Type",
		"Tags", "Category"}
	reviewColumns = []string{"Handle", "Title", "Body (HTML)", "Vendor", "Type",
		"Tags", "Category", "Needs Manual Review", "AI Confidence", "Model Used", "Failure Reasons"}
	untaggedColumns = []string{"Handle", "Title", "Body (HTML)", "Vendor", "Type",
		"Tags", "Failure Reasons"}
)

// Exporter writes run output under a fixed directory.
type Exporter struct {
	dir string
	now func() time.Time
}

// New creates an exporter writing into dir, creating it if needed.
func New(dir string) *Exporter {
	return &Exporter{dir: dir, now: time.Now}
}

// WithNow sets a fixed clock for testing.
func (e *Exporter) WithNow(fn func() time.Time) *Exporter {
	e.now = fn
	return e
}

// Write partitions the latest-pass records into the three buckets and writes
// one CSV per bucket plus an XLSX workbook of the review set for the manual
// triage team. products supplies the original columns per handle; a record
// with no matching product gets blank product fields.
func (e *Exporter) Write(records []model.AuditRecord, products map[string]model.Product) (*Paths, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "export: create output dir")
	}

	stamp := e.now().UTC().Format("20060102_150405")
	paths := &Paths{
		Clean:    filepath.Join(e.dir, stamp+"_tagged_clean.csv"),
		Review:   filepath.Join(e.dir, stamp+"_tagged_review.csv"),
		Untagged: filepath.Join(e.dir, stamp+"_untagged.csv"),
		Workbook: filepath.Join(e.dir, stamp+"_tagged_review.xlsx"),
	}

	var clean, review, untagged []model.AuditRecord
	for _, rec := range records {
		switch rec.Attempt.Bucket() {
		case model.BucketClean:
			clean = append(clean, rec)
		case model.BucketReview:
			review = append(review, rec)
		case model.BucketUntagged:
			untagged = append(untagged, rec)
		}
	}

	if err := e.writeCSV(paths.Clean, cleanColumns, clean, products, cleanRow); err != nil {
		return nil, err
	}
	if err := e.writeCSV(paths.Review, reviewColumns, review, products, reviewRow); err != nil {
		return nil, err
	}
	if err := e.writeCSV(paths.Untagged, untaggedColumns, untagged, products, untaggedRow); err != nil {
		return nil, err
	}
	if err := writeReviewWorkbook(paths.Workbook, review, products); err != nil {
		return nil, err
	}

	zap.L().Info("exported run output",
		zap.String("dir", e.dir),
		zap.Int("clean", len(clean)),
		zap.Int("review", len(review)),
		zap.Int("untagged", len(untagged)),
	)
	return paths, nil
}

func (e *Exporter) writeCSV(path string, columns []string, records []model.AuditRecord,
	products map[string]model.Product, row func(model.AuditRecord, model.Product) []string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(columns); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, rec := range records {
		if err := w.Write(row(rec, products[rec.Handle])); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}
	return nil
}

func productRow(rec model.AuditRecord, p model.Product) []string {
	return []string{
		rec.Handle,
		p.Title,
		p.BodyHTML,
		p.Vendor,
		p.ExistingType,
	}
}

func cleanRow(rec model.AuditRecord, p model.Product) []string {
	return append(productRow(rec, p),
		strings.Join(rec.Attempt.FinalTags, ", "),
		rec.Attempt.Category,
	)
}

func reviewRow(rec model.AuditRecord, p model.Product) []string {
	return append(cleanRow(rec, p),
		"YES",
		fmt.Sprintf("%.2f", rec.Attempt.Confidence),
		string(rec.Attempt.ModelUsed),
		strings.Join(rec.Attempt.ValidationFailures, "; "),
	)
}

func untaggedRow(rec model.AuditRecord, p model.Product) []string {
	// Untagged products keep their pre-existing tags untouched.
	return append(productRow(rec, p),
		strings.Join(p.ExistingTags, ", "),
		strings.Join(rec.Attempt.ValidationFailures, "; "),
	)
}

// writeReviewWorkbook renders the review set as a spreadsheet so the triage
// team can annotate it directly.
func writeReviewWorkbook(path string, records []model.AuditRecord, products map[string]model.Product) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Review")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range reviewColumns {
		header.AddCell().SetString(col)
	}

	for _, rec := range records {
		row := sheet.AddRow()
		for _, cell := range reviewRow(rec, products[rec.Handle]) {
			row.AddCell().SetString(cell)
		}
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}
