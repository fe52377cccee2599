package cascade

import (
	"fmt"
	"strings"

	"github.com/greenlane/catalog-tagger/internal/model"
	"github.com/greenlane/catalog-tagger/internal/schema"
	"github.com/greenlane/catalog-tagger/internal/textutil"
)

const baseSystemPrompt = `You tag vaping and CBD e-commerce products with a controlled vocabulary. Only ever use tag values from the approved schema provided in the user message. Respond with a valid JSON object: {"tags": ["<tag>", ...], "confidence": <0.0-1.0>} and nothing else.`

const cbdSystemAddendum = ` This is a CBD product: you MUST include one tag for each of cbd_strength (a milligram value like "1000mg"), cbd_form, and cbd_type. A CBD result missing any of the three is invalid.`

const nicotineSystemAddendum = ` Nicotine strength above 20mg is illegal and must never be tagged; if the product text states more than 20mg, omit the strength tag entirely.`

const taggingUserPrompt = `Product handle: %s
Title: %s
Vendor: %s
Category: %s

Description:
%s

Tags already extracted by deterministic rules (keep the ones that are correct, add what is missing):
%s

Approved schema for this category:
%s`

// systemPrompt builds the category-aware system prompt. CBD gets the
// composite-dimension requirement; nicotine-bearing categories get the legal
// ceiling warning.
func systemPrompt(category string, s *schema.Schema) string {
	var b strings.Builder
	b.WriteString(baseSystemPrompt)
	if category == schema.CategoryCBD {
		b.WriteString(cbdSystemAddendum)
	}
	if d, ok := s.Dimension(schema.DimNicotineStrength); ok && d.Applies(category) {
		b.WriteString(nicotineSystemAddendum)
	}
	return b.String()
}

// userPrompt renders the product, rule hints, and schema excerpt.
func userPrompt(p model.Product, category string, ruleTags []string, s *schema.Schema) string {
	hints := "(none)"
	if len(ruleTags) > 0 {
		hints = strings.Join(ruleTags, ", ")
	}
	body := textutil.Truncate(p.Body, 2000)
	return fmt.Sprintf(taggingUserPrompt,
		p.Handle, p.Title, p.Vendor, category, body, hints, s.Excerpt(category))
}
