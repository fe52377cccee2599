// Package ruletag performs deterministic keyword and pattern tag extraction
// per product category. It is pure: no network calls, no shared mutable
// state, safe to run unboundedly in parallel.
package ruletag

import (
	"strings"

	"go.uber.org/zap"

	"github.com/greenlane/catalog-tagger/internal/model"
	"github.com/greenlane/catalog-tagger/internal/schema"
	"github.com/greenlane/catalog-tagger/internal/textutil"
)

// FailureNicotineExceedsMax is recorded when product text advertises a
// nicotine strength above the schema ceiling. The value is never emitted
// as a tag.
const FailureNicotineExceedsMax = "nicotine exceeds legal maximum"

// Result is the outcome of rule-based extraction for one product.
type Result struct {
	Tags             []string
	SecondaryFlavors []string
	Failures         []string
}

// Tagger extracts tags for every schema dimension applicable to a category.
type Tagger struct {
	schema *schema.Schema

	// dimension → tag → matcher, built once from schema + taxonomy
	enum map[string]map[string]*textutil.Matcher

	secondary map[string]*textutil.Matcher
	zeroNic   *textutil.Matcher
}

// New builds a tagger from the approved schema. Enumerated tags without a
// taxonomy keyword list match their own name with separators relaxed.
func New(s *schema.Schema) *Tagger {
	t := &Tagger{
		schema:    s,
		enum:      make(map[string]map[string]*textutil.Matcher),
		secondary: make(map[string]*textutil.Matcher, len(secondaryFlavorWords)),
		zeroNic:   textutil.NewMatcher(zeroNicotineKeywords),
	}
	for _, dim := range s.DimensionNames() {
		d, _ := s.Dimension(dim)
		if len(d.Tags) == 0 {
			continue
		}
		matchers := make(map[string]*textutil.Matcher, len(d.Tags))
		for _, tag := range d.Tags {
			matchers[tag] = textutil.NewMatcher(tagKeywords(dim, tag))
		}
		t.enum[dim] = matchers
	}
	for _, w := range secondaryFlavorWords {
		t.secondary[w] = textutil.NewMatcher([]string{w})
	}
	return t
}

// tagKeywords resolves the keyword list for a schema tag, falling back to
// the tag name itself with underscores and hyphens treated as spaces.
func tagKeywords(dim, tag string) []string {
	if kws, ok := keywordsByDimension[dim][tag]; ok {
		return kws
	}
	relaxed := strings.NewReplacer("_", " ", "-", " ").Replace(tag)
	if relaxed != tag {
		return []string{tag, relaxed}
	}
	return []string{tag}
}

// Tag extracts tags for the product within the given category. Dimensions
// whose applies_to excludes the category are never consulted, so a tag can
// not leak across categories. Numeric dimensions reject out-of-range values
// and record a failure instead of emitting a tag.
func (t *Tagger) Tag(p model.Product, category string) Result {
	var res Result
	if category == model.CategoryUnknown {
		return res
	}

	text := textutil.Normalize(p.Text())
	seen := make(map[string]bool)
	add := func(tag string) {
		if !seen[tag] {
			seen[tag] = true
			res.Tags = append(res.Tags, tag)
		}
	}

	for _, dim := range t.schema.DimensionsFor(category) {
		d, _ := t.schema.Dimension(dim)

		switch {
		case d.Range != nil:
			tag, failure := t.extractStrength(dim, d, text)
			if failure != "" {
				res.Failures = append(res.Failures, failure)
			}
			if tag != "" {
				add(tag)
			}

		case dim == schema.DimVGRatio:
			if ratio, ok := extractRatio(text); ok {
				add(ratio)
			}

		case dim == schema.DimBottleSize, dim == "capacity":
			for _, tag := range extractVolumes(text, d.Tags) {
				add(tag)
			}
			t.matchEnum(dim, d, text, add)

		default:
			t.matchEnum(dim, d, text, add)
		}
	}

	// Secondary flavour sweep, only where flavour tagging is meaningful.
	if d, ok := t.schema.Dimension(schema.DimFlavourType); ok && d.Applies(category) {
		for _, w := range secondaryFlavorWords {
			if t.secondary[w].Match(text) {
				res.SecondaryFlavors = append(res.SecondaryFlavors, w)
			}
		}
	}

	zap.L().Debug("ruletag: extracted",
		zap.String("handle", p.Handle),
		zap.String("category", category),
		zap.Int("tags", len(res.Tags)),
		zap.Int("secondary", len(res.SecondaryFlavors)),
		zap.Strings("failures", res.Failures),
	)
	return res
}

// matchEnum emits enumerated tags in schema declaration order so output is
// deterministic regardless of matcher map iteration.
func (t *Tagger) matchEnum(dim string, d schema.Dimension, text string, add func(string)) {
	for _, tag := range d.Tags {
		if m := t.enum[dim][tag]; m != nil && m.Match(text) {
			add(tag)
		}
	}
}

// extractStrength handles the mg-range dimensions. It returns the strength
// tag to emit (possibly ""), and a failure reason when the advertised value
// falls outside the schema range.
func (t *Tagger) extractStrength(dim string, d schema.Dimension, text string) (tag, failure string) {
	if dim == schema.DimNicotineStrength && t.zeroNic.Match(text) {
		return "0mg", ""
	}

	v, ok := extractMilligrams(text)
	if !ok {
		return "", ""
	}
	if !d.Range.Contains(v) {
		if dim == schema.DimNicotineStrength {
			return "", FailureNicotineExceedsMax
		}
		return "", dim + " value out of range"
	}
	return schema.FormatMG(v), ""
}
