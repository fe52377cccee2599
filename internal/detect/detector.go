// Package detect infers the primary product category from product text.
package detect

import (
	"go.uber.org/zap"

	"github.com/greenlane/catalog-tagger/internal/model"
	"github.com/greenlane/catalog-tagger/internal/schema"
	"github.com/greenlane/catalog-tagger/internal/textutil"
)

// Detector matches product text against the schema's category keywords.
// Detection is pure and deterministic: categories are tried in schema
// declaration order and the first match wins, so a product matching both
// "disposable" and "pod" resolves to whichever is declared earlier.
type Detector struct {
	categories []string
	matchers   []*textutil.Matcher
}

// New builds a detector from the schema's ordered category list.
func New(s *schema.Schema) *Detector {
	d := &Detector{
		categories: make([]string, len(s.Categories)),
		matchers:   make([]*textutil.Matcher, len(s.Categories)),
	}
	for i, c := range s.Categories {
		d.categories[i] = c.Name
		d.matchers[i] = textutil.NewMatcher(c.Keywords)
	}
	return d
}

// Detect returns the first category whose keywords match the product's
// title or body, or model.CategoryUnknown when nothing matches. Empty
// title and body are valid input and simply yield CategoryUnknown.
func (d *Detector) Detect(p model.Product) string {
	text := textutil.Normalize(p.Text())
	if text == "" {
		return model.CategoryUnknown
	}
	for i, m := range d.matchers {
		if m.Match(text) {
			zap.L().Debug("detect: category matched",
				zap.String("handle", p.Handle),
				zap.String("category", d.categories[i]),
			)
			return d.categories[i]
		}
	}
	return model.CategoryUnknown
}
