// Package validate checks candidate tags against the approved schema.
// Validation is pure and side-effect-free: it never mutates its input,
// only reports. Rules run in a fixed order so failure messages are
// deterministic and testable.
package validate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/greenlane/catalog-tagger/internal/schema"
)

// FailureCategoryNotDetected is recorded when the detector returns UNKNOWN
// and no category-scoped validation can run.
const FailureCategoryNotDetected = "category not detected"

// FailureVGRatioSum is recorded when a vg_ratio tag's components do not
// sum to 100.
const FailureVGRatioSum = "vg_ratio components must sum to 100"

// Validator applies the schema's membership, range, and composite rules.
type Validator struct {
	schema *schema.Schema
}

// New creates a validator over the approved schema.
func New(s *schema.Schema) *Validator {
	return &Validator{schema: s}
}

// Validate checks tags for a category. Rules apply in order:
//
//  1. every tag must belong to a dimension whose applies_to includes the
//     category;
//  2. numeric-range dimension values must parse and fall within [min,max];
//  3. CBD products must carry at least one tag from each of cbd_strength,
//     cbd_form, and cbd_type;
//  4. vg_ratio tags must be two non-negative integers summing to 100.
//
// It returns ok=true with no failures when every rule passes.
func (v *Validator) Validate(tags []string, category string) (bool, []string) {
	var failures []string

	// Rule 1: membership + applies_to.
	for _, tag := range tags {
		if !v.tagApplies(tag, category) {
			failures = append(failures,
				fmt.Sprintf("tag '%s' does not apply to category '%s'", tag, category))
		}
	}

	// Rule 2: numeric ranges.
	for _, tag := range tags {
		val, ok := schema.MGValue(tag)
		if !ok {
			continue
		}
		if dim, name := v.rangeDimensionFor(category); dim != nil && !dim.Range.Contains(val) {
			failures = append(failures, name+" value out of range")
		}
	}

	// Rule 3: CBD composite. Enforced even when every tag individually
	// passed rules 1-2.
	if category == schema.CategoryCBD {
		if missing := v.missingCBDDimensions(tags); len(missing) > 0 {
			failures = append(failures,
				"CBD product missing required dimension(s): "+strings.Join(missing, ", "))
		}
	}

	// Rule 4: vg_ratio arithmetic.
	for _, tag := range tags {
		if vg, pg, ok := splitRatio(tag); ok && vg+pg != 100 {
			failures = append(failures, FailureVGRatioSum)
		}
	}

	return len(failures) == 0, failures
}

// tagApplies reports whether the tag belongs to any dimension applicable to
// the category. Milligram tags belong to a range dimension when one applies.
func (v *Validator) tagApplies(tag, category string) bool {
	if _, ok := schema.MGValue(tag); ok {
		dim, _ := v.rangeDimensionFor(category)
		return dim != nil
	}
	if tag == category && v.schema.HasCategory(category) {
		// The category itself is always a legal tag (final tags are
		// category-prefixed).
		return true
	}
	for _, name := range v.schema.DimensionNames() {
		d, _ := v.schema.Dimension(name)
		if d.HasTag(tag) && d.Applies(category) {
			return true
		}
	}
	return false
}

// rangeDimensionFor returns the numeric-range dimension applicable to the
// category, if any. The schema keeps range dimensions category-disjoint
// (nicotine_strength vs cbd_strength), so the first applicable one wins
// deterministically by sorted name.
func (v *Validator) rangeDimensionFor(category string) (*schema.Dimension, string) {
	for _, name := range v.schema.DimensionNames() {
		d, _ := v.schema.Dimension(name)
		if d.Range != nil && d.Applies(category) {
			return &d, name
		}
	}
	return nil, ""
}

// missingCBDDimensions returns the CBD dimensions (sorted) that no tag
// satisfies.
func (v *Validator) missingCBDDimensions(tags []string) []string {
	hasStrength := false
	strengthDim, _ := v.schema.Dimension(schema.DimCBDStrength)
	for _, tag := range tags {
		if val, ok := schema.MGValue(tag); ok {
			if strengthDim.Range == nil || strengthDim.Range.Contains(val) {
				hasStrength = true
				break
			}
		}
	}

	hasForm := v.anyTagIn(tags, schema.DimCBDForm)
	hasType := v.anyTagIn(tags, schema.DimCBDType)

	var missing []string
	if !hasForm {
		missing = append(missing, schema.DimCBDForm)
	}
	if !hasStrength {
		missing = append(missing, schema.DimCBDStrength)
	}
	if !hasType {
		missing = append(missing, schema.DimCBDType)
	}
	return missing
}

func (v *Validator) anyTagIn(tags []string, dim string) bool {
	d, ok := v.schema.Dimension(dim)
	if !ok {
		return false
	}
	for _, tag := range tags {
		if d.HasTag(tag) {
			return true
		}
	}
	return false
}

// splitRatio parses a "VG/PG" tag into its integer components.
func splitRatio(tag string) (vg, pg int, ok bool) {
	parts := strings.SplitN(tag, "/", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	vg, err1 := strconv.Atoi(parts[0])
	pg, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || vg < 0 || pg < 0 {
		return 0, 0, false
	}
	return vg, pg, true
}
