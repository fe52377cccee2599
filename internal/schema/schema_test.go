package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchemaJSON = `{
  "categories": [
    {"name": "CBD", "keywords": ["cbd"]},
    {"name": "e-liquid", "keywords": ["e-liquid", "vape juice"]},
    {"name": "device", "keywords": ["mod", "vape kit"]}
  ],
  "dimensions": {
    "nicotine_strength": {
      "range": {"min": 0, "max": 20, "unit": "mg"},
      "applies_to": ["e-liquid"]
    },
    "cbd_strength": {
      "range": {"min": 0, "max": 50000, "unit": "mg"},
      "applies_to": ["CBD"]
    },
    "flavour_type": {
      "tags": ["fruity", "ice"],
      "applies_to": ["e-liquid"]
    },
    "power_supply": {
      "tags": ["rechargeable"],
      "applies_to": ["device"]
    }
  }
}`

func testSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := Parse([]byte(testSchemaJSON))
	require.NoError(t, err)
	return s
}

func TestParse_Valid(t *testing.T) {
	s := testSchema(t)
	assert.Equal(t, []string{"CBD", "e-liquid", "device"}, s.CategoryNames())
	assert.Equal(t, []string{"cbd_strength", "flavour_type", "nicotine_strength", "power_supply"}, s.DimensionNames())
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"no categories", `{"categories": [], "dimensions": {}}`},
		{"duplicate category", `{"categories": [{"name":"pod"},{"name":"pod"}], "dimensions": {}}`},
		{"unknown applies_to", `{"categories": [{"name":"pod"}], "dimensions": {"x": {"tags":["a"], "applies_to":["tank"]}}}`},
		{"tags and range", `{"categories": [{"name":"pod"}], "dimensions": {"x": {"tags":["a"], "range":{"min":0,"max":1}, "applies_to":["pod"]}}}`},
		{"neither tags nor range", `{"categories": [{"name":"pod"}], "dimensions": {"x": {"applies_to":["pod"]}}}`},
		{"inverted range", `{"categories": [{"name":"pod"}], "dimensions": {"x": {"range":{"min":20,"max":0}, "applies_to":["pod"]}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.json))
			assert.Error(t, err)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(testSchemaJSON), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.True(t, s.HasCategory("CBD"))

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestDimensionsFor(t *testing.T) {
	s := testSchema(t)

	assert.Equal(t, []string{"flavour_type", "nicotine_strength"}, s.DimensionsFor("e-liquid"))
	assert.Equal(t, []string{"cbd_strength"}, s.DimensionsFor("CBD"))
	assert.Empty(t, s.DimensionsFor("coil"))
}

func TestDimension_Applies(t *testing.T) {
	s := testSchema(t)

	d, ok := s.Dimension("flavour_type")
	require.True(t, ok)
	assert.True(t, d.Applies("e-liquid"))
	assert.False(t, d.Applies("CBD"))

	// Empty applies_to means the dimension is universal.
	universal := Dimension{Tags: []string{"a"}}
	assert.True(t, universal.Applies("anything"))
}

func TestRange_Contains(t *testing.T) {
	r := Range{Min: 0, Max: 20}
	assert.True(t, r.Contains(0))
	assert.True(t, r.Contains(20))
	assert.False(t, r.Contains(20.1))
	assert.False(t, r.Contains(-1))
}

func TestMGValue(t *testing.T) {
	tests := []struct {
		tag  string
		want float64
		ok   bool
	}{
		{"20mg", 20, true},
		{"3.5mg", 3.5, true},
		{"0mg", 0, true},
		{"1000mg", 1000, true},
		{"20 mg", 0, false},
		{"mg", 0, false},
		{"50ml", 0, false},
		{"fruity", 0, false},
	}
	for _, tt := range tests {
		v, ok := MGValue(tt.tag)
		assert.Equal(t, tt.ok, ok, tt.tag)
		assert.Equal(t, tt.want, v, tt.tag)
	}
}

func TestFormatMG(t *testing.T) {
	assert.Equal(t, "20mg", FormatMG(20))
	assert.Equal(t, "3.5mg", FormatMG(3.5))
	assert.Equal(t, "0mg", FormatMG(0))
}

func TestExcerpt(t *testing.T) {
	s := testSchema(t)

	excerpt := s.Excerpt("e-liquid")
	assert.Contains(t, excerpt, "flavour_type")
	assert.Contains(t, excerpt, "nicotine_strength")
	assert.NotContains(t, excerpt, "cbd_strength")
}
