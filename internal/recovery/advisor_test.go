package recovery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenlane/catalog-tagger/internal/model"
	"github.com/greenlane/catalog-tagger/internal/schema"
	"github.com/greenlane/catalog-tagger/internal/validate"
)

type fakeClient struct {
	response   string
	err        error
	calls      int
	lastPrompt string
}

func (f *fakeClient) Complete(_ context.Context, _, prompt string) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testAdvisor(t *testing.T, client *fakeClient) *Advisor {
	t.Helper()
	s, err := schema.Parse([]byte(`{
		"categories": [
			{"name": "CBD", "keywords": ["cbd"]},
			{"name": "e-liquid", "keywords": ["e-liquid"]}
		],
		"dimensions": {
			"nicotine_strength": {"range": {"min": 0, "max": 20, "unit": "mg"}, "applies_to": ["e-liquid"]},
			"cbd_strength": {"range": {"min": 0, "max": 50000, "unit": "mg"}, "applies_to": ["CBD"]},
			"cbd_form": {"tags": ["oil", "gummy"], "applies_to": ["CBD"]},
			"cbd_type": {"tags": ["full_spectrum", "isolate"], "applies_to": ["CBD"]},
			"flavour_type": {"tags": ["fruity", "ice"], "applies_to": ["e-liquid"]}
		}
	}`))
	require.NoError(t, err)
	return New(s, client, validate.New(s), time.Second)
}

func TestRecover_ValidCorrection(t *testing.T) {
	client := &fakeClient{response: `{"tags": ["fruity", "10mg"], "confidence": 0.8}`}
	a := testAdvisor(t, client)

	p := model.Product{Handle: "mango-salt", Title: "Mango Salt 10mg"}
	tags, ok := a.Recover(context.Background(), p, "e-liquid",
		[]string{"fruity", "25mg"}, []string{"nicotine_strength value out of range"})

	require.True(t, ok)
	assert.Equal(t, []string{"fruity", "10mg"}, tags)
	assert.Equal(t, 1, client.calls)
}

func TestRecover_PromptCarriesFailures(t *testing.T) {
	client := &fakeClient{response: `{"tags": ["fruity"], "confidence": 0.8}`}
	a := testAdvisor(t, client)

	a.Recover(context.Background(), model.Product{Handle: "x"}, "e-liquid",
		[]string{"fruity", "25mg"}, []string{"nicotine_strength value out of range"})

	assert.Contains(t, client.lastPrompt, "fruity, 25mg")
	assert.Contains(t, client.lastPrompt, "- nicotine_strength value out of range")
	assert.Contains(t, client.lastPrompt, "flavour_type")
}

func TestRecover_LongBodyPromptStaysValidUTF8(t *testing.T) {
	client := &fakeClient{response: `{"tags": ["fruity"], "confidence": 0.8}`}
	a := testAdvisor(t, client)

	// A 3-byte repeat unit lands the body cap inside the "è".
	p := model.Product{Handle: "creme", Body: strings.Repeat("aè", 1000)}
	a.Recover(context.Background(), p, "e-liquid",
		[]string{"bogus"}, []string{"tag 'bogus' does not apply to category 'e-liquid'"})

	assert.True(t, utf8.ValidString(client.lastPrompt))
}

func TestRecover_StillInvalid(t *testing.T) {
	// The corrected set still violates the CBD composite rule.
	client := &fakeClient{response: `{"tags": ["oil", "500mg"], "confidence": 0.9}`}
	a := testAdvisor(t, client)

	tags, ok := a.Recover(context.Background(), model.Product{Handle: "cbd-oil"}, "CBD",
		[]string{"oil"}, []string{"CBD product missing required dimension(s): cbd_strength, cbd_type"})

	assert.False(t, ok)
	assert.Nil(t, tags)
}

func TestRecover_ModelError(t *testing.T) {
	client := &fakeClient{err: errors.New("rate limited")}
	a := testAdvisor(t, client)

	tags, ok := a.Recover(context.Background(), model.Product{}, "e-liquid",
		[]string{"25mg"}, []string{"nicotine_strength value out of range"})

	assert.False(t, ok)
	assert.Nil(t, tags)
	assert.Equal(t, 1, client.calls)
}

func TestRecover_UnparseableResponse(t *testing.T) {
	client := &fakeClient{response: "Sorry, I can't help with that."}
	a := testAdvisor(t, client)

	_, ok := a.Recover(context.Background(), model.Product{}, "e-liquid",
		[]string{"25mg"}, []string{"nicotine_strength value out of range"})

	assert.False(t, ok)
}

func TestRecover_NilClient(t *testing.T) {
	s, err := schema.Parse([]byte(`{
		"categories": [{"name": "e-liquid", "keywords": ["e-liquid"]}],
		"dimensions": {"flavour_type": {"tags": ["fruity"], "applies_to": ["e-liquid"]}}
	}`))
	require.NoError(t, err)
	a := New(s, nil, validate.New(s), 0)

	_, ok := a.Recover(context.Background(), model.Product{}, "e-liquid", nil, nil)
	assert.False(t, ok)
}
