package schema

import (
	"encoding/json"
	"os"
	"regexp"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Well-known dimension names referenced by extractors and validation rules.
const (
	DimNicotineStrength = "nicotine_strength"
	DimNicotineType     = "nicotine_type"
	DimCBDStrength      = "cbd_strength"
	DimCBDForm          = "cbd_form"
	DimCBDType          = "cbd_type"
	DimVGRatio          = "vg_ratio"
	DimBottleSize       = "bottle_size"
	DimFlavourType      = "flavour_type"
	DimDeviceStyle      = "device_style"
	DimPowerSupply      = "power_supply"
)

// CategoryCBD is the category carrying the three-dimension composite rule.
const CategoryCBD = "CBD"

// Category is one entry of the ordered category enumeration. Order matters:
// the detector resolves keyword ties by declaration order (earlier wins).
type Category struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

// Range bounds a numeric dimension.
type Range struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Unit string  `json:"unit"`
}

// Contains reports whether v lies within the range (inclusive).
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Dimension is one tag dimension: either an enumerated tag set or a numeric
// range, restricted to the categories in AppliesTo.
type Dimension struct {
	Tags      []string `json:"tags,omitempty"`
	Range     *Range   `json:"range,omitempty"`
	AppliesTo []string `json:"applies_to"`
}

// Applies reports whether the dimension is meaningful for category.
// An empty AppliesTo list means the dimension applies everywhere.
func (d Dimension) Applies(category string) bool {
	if len(d.AppliesTo) == 0 {
		return true
	}
	for _, c := range d.AppliesTo {
		if c == category {
			return true
		}
	}
	return false
}

// HasTag reports whether tag is one of the dimension's enumerated values.
func (d Dimension) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Schema is the approved tag vocabulary, loaded once per run and immutable
// afterwards. It is passed explicitly to every component constructor.
type Schema struct {
	Categories []Category           `json:"categories"`
	Dimensions map[string]Dimension `json:"dimensions"`

	// sorted dimension names, for deterministic iteration
	names []string
}

// Load reads and validates an approved-tags schema file. Unknown applies_to
// categories and malformed dimensions are rejected here, not at use time.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "schema: read file")
	}
	s, err := Parse(data)
	if err != nil {
		return nil, err
	}
	zap.L().Info("loaded approved tag schema",
		zap.String("path", path),
		zap.Int("categories", len(s.Categories)),
		zap.Int("dimensions", len(s.Dimensions)),
	)
	return s, nil
}

// Parse unmarshals and validates schema JSON.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrap(err, "schema: unmarshal")
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	s.names = make([]string, 0, len(s.Dimensions))
	for name := range s.Dimensions {
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)
	return &s, nil
}

func (s *Schema) validate() error {
	if len(s.Categories) == 0 {
		return eris.New("schema: no categories declared")
	}
	known := make(map[string]bool, len(s.Categories))
	for _, c := range s.Categories {
		if c.Name == "" {
			return eris.New("schema: category with empty name")
		}
		if known[c.Name] {
			return eris.Errorf("schema: duplicate category %q", c.Name)
		}
		known[c.Name] = true
	}
	for name, d := range s.Dimensions {
		if name == "" {
			return eris.New("schema: dimension with empty name")
		}
		hasTags := len(d.Tags) > 0
		hasRange := d.Range != nil
		if hasTags == hasRange {
			return eris.Errorf("schema: dimension %q must declare exactly one of tags or range", name)
		}
		if hasRange && d.Range.Min > d.Range.Max {
			return eris.Errorf("schema: dimension %q has inverted range [%v, %v]", name, d.Range.Min, d.Range.Max)
		}
		for _, c := range d.AppliesTo {
			if !known[c] {
				return eris.Errorf("schema: dimension %q applies_to unknown category %q", name, c)
			}
		}
	}
	return nil
}

// HasCategory reports whether name is a declared category.
func (s *Schema) HasCategory(name string) bool {
	for _, c := range s.Categories {
		if c.Name == name {
			return true
		}
	}
	return false
}

// CategoryNames returns category names in declaration order.
func (s *Schema) CategoryNames() []string {
	out := make([]string, len(s.Categories))
	for i, c := range s.Categories {
		out[i] = c.Name
	}
	return out
}

// DimensionNames returns all dimension names in sorted order.
func (s *Schema) DimensionNames() []string {
	return s.names
}

// Dimension returns the named dimension, if declared.
func (s *Schema) Dimension(name string) (Dimension, bool) {
	d, ok := s.Dimensions[name]
	return d, ok
}

// DimensionsFor returns the names of dimensions applicable to category,
// in sorted order.
func (s *Schema) DimensionsFor(category string) []string {
	var out []string
	for _, name := range s.names {
		if s.Dimensions[name].Applies(category) {
			out = append(out, name)
		}
	}
	return out
}

// Excerpt renders the schema subset applicable to category as indented JSON,
// for inclusion in AI prompts.
func (s *Schema) Excerpt(category string) string {
	sub := make(map[string]Dimension)
	for _, name := range s.DimensionsFor(category) {
		sub[name] = s.Dimensions[name]
	}
	data, err := json.MarshalIndent(sub, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

var mgPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)mg$`)

// MGValue parses a milligram strength tag like "20mg" or "3.5mg".
func MGValue(tag string) (float64, bool) {
	m := mgPattern.FindStringSubmatch(tag)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FormatMG renders a milligram value as a strength tag, trimming a trailing
// ".0" so whole numbers read as "20mg" rather than "20.0mg".
func FormatMG(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "mg"
}
