// Package textutil provides the text normalization and keyword matching
// primitives shared by the category detector and the rule tagger.
package textutil

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases text and strips diacritics, so "Crème Brûlée"
// matches the keyword "creme brulee".
func Normalize(text string) string {
	folded, _, err := transform.String(foldTransformer, text)
	if err != nil {
		folded = text
	}
	return strings.ToLower(folded)
}

// Truncate caps s at max bytes without splitting a multi-byte rune, so
// the result is always valid UTF-8 when the input is.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// Matcher matches any of a set of keywords on word boundaries. Single-word
// keywords also match their simple plural ("gummy" does not, "pod" matches
// "pods"). Matching expects Normalize()d input.
type Matcher struct {
	re *regexp.Regexp
}

// NewMatcher compiles a matcher for the given keywords. Keywords are
// normalized before compilation; empty keywords are skipped.
func NewMatcher(keywords []string) *Matcher {
	var alts []string
	for _, kw := range keywords {
		kw = strings.TrimSpace(Normalize(kw))
		if kw == "" {
			continue
		}
		quoted := regexp.QuoteMeta(kw)
		if !strings.Contains(kw, " ") && !strings.HasSuffix(kw, "s") {
			quoted += "s?"
		}
		alts = append(alts, quoted)
	}
	if len(alts) == 0 {
		return &Matcher{}
	}
	// \b anchors are safe here: every keyword starts and ends with a word
	// character after normalization.
	re := regexp.MustCompile(`\b(?:` + strings.Join(alts, "|") + `)\b`)
	return &Matcher{re: re}
}

// Match reports whether any keyword occurs in the normalized text.
func (m *Matcher) Match(text string) bool {
	if m.re == nil {
		return false
	}
	return m.re.MatchString(text)
}
