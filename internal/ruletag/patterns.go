package ruletag

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	mgPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*mg\b`)
	mlPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*ml\b`)

	// "70VG/30PG", "70vg 30pg"
	ratioVGPattern = regexp.MustCompile(`(\d{1,3})\s*vg\s*[/\s]\s*(\d{1,3})\s*pg`)
	// plain "70/30"
	ratioPlainPattern = regexp.MustCompile(`\b(\d{1,3})\s*/\s*(\d{1,3})\b`)
)

// extractMilligrams returns the first milligram strength mentioned in the
// (normalized) text.
func extractMilligrams(text string) (float64, bool) {
	m := mgPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// extractRatio finds a VG/PG ratio and normalizes it to "VG/PG" form.
// Only ratios whose components sum to 100 are emitted; anything else is
// noise (dates, model numbers) and is skipped.
func extractRatio(text string) (string, bool) {
	for _, re := range []*regexp.Regexp{ratioVGPattern, ratioPlainPattern} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		vg, err1 := strconv.Atoi(m[1])
		pg, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil || vg+pg != 100 {
			continue
		}
		return fmt.Sprintf("%d/%d", vg, pg), true
	}
	return "", false
}

// extractVolumes returns every allowed volume tag ("50ml", "2ml") whose
// value appears in the text. allowed is the dimension's enumerated tag set,
// so only schema-approved sizes are emitted.
func extractVolumes(text string, allowed []string) []string {
	allowedSet := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		allowedSet[a] = true
	}
	var out []string
	seen := make(map[string]bool)
	for _, m := range mlPattern.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		tag := strconv.FormatFloat(v, 'f', -1, 64) + "ml"
		if allowedSet[tag] && !seen[tag] {
			seen[tag] = true
			out = append(out, tag)
		}
	}
	return out
}
