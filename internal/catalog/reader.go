// Package catalog loads product records from Shopify-style export files,
// locally or from a supplier FTP drop.
package catalog

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/greenlane/catalog-tagger/internal/model"
)

// column names as they appear in a Shopify product export header
const (
	colHandle = "handle"
	colTitle  = "title"
	colBody   = "body (html)"
	colVendor = "vendor"
	colType   = "type"
	colTags   = "tags"
)

// ReadFile loads products from a CSV export on disk.
func ReadFile(path string) ([]model.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: open %s", path)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a product export. Variant rows repeat the handle with empty
// title and body; rows are grouped by handle and folded into one Product,
// first row wins for the descriptive fields. Input order of first
// appearance is preserved.
func Read(r io.Reader) ([]model.Product, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("catalog: empty export")
	}
	if err != nil {
		return nil, eris.Wrap(err, "catalog: read header")
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := idx[colHandle]; !ok {
		return nil, eris.New("catalog: export missing Handle column")
	}

	byHandle := make(map[string]*model.Product)
	var order []string

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "catalog: read row")
		}

		handle := field(record, idx, colHandle)
		if handle == "" {
			continue
		}

		p, seen := byHandle[handle]
		if !seen {
			p = &model.Product{Handle: handle}
			byHandle[handle] = p
			order = append(order, handle)
		}

		// First non-empty value wins; later variant rows only fill gaps.
		if p.Title == "" {
			p.Title = field(record, idx, colTitle)
		}
		if p.Body == "" {
			p.BodyHTML = field(record, idx, colBody)
			p.Body = stripHTML(p.BodyHTML)
		}
		if p.Vendor == "" {
			p.Vendor = field(record, idx, colVendor)
		}
		if p.ExistingType == "" {
			p.ExistingType = field(record, idx, colType)
		}
		if len(p.ExistingTags) == 0 {
			p.ExistingTags = splitTags(field(record, idx, colTags))
		}
	}

	products := make([]model.Product, 0, len(order))
	for _, handle := range order {
		products = append(products, *byHandle[handle])
	}

	zap.L().Info("loaded catalog export",
		zap.Int("products", len(products)),
	)
	return products, nil
}

func field(record []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// stripHTML removes tags from Shopify body HTML, keeping the text. Good
// enough for keyword matching; not a general-purpose sanitizer.
func stripHTML(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteByte(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
