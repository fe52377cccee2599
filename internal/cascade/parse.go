package cascade

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// fallbackConfidence is assigned when a model returns a bare tag array with
// no confidence field.
const fallbackConfidence = 0.5

type tierResponse struct {
	Tags       []string `json:"tags"`
	Confidence float64  `json:"confidence"`
}

// ParseResponse extracts tags and confidence from model output. Models do not
// always honor the JSON instruction, so this tolerates markdown fences, prose
// around the object, and a bare JSON array of tags.
func ParseResponse(text string) ([]string, float64, error) {
	cleaned := cleanJSON(text)

	var resp tierResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err == nil && resp.Tags != nil {
		conf := resp.Confidence
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		return dedupe(resp.Tags), conf, nil
	}

	// Bare array fallback: ["tag", "tag"].
	if start, end := strings.Index(text, "["), strings.LastIndex(text, "]"); start >= 0 && end > start {
		var tags []string
		if err := json.Unmarshal([]byte(text[start:end+1]), &tags); err == nil {
			return dedupe(tags), fallbackConfidence, nil
		}
	}

	return nil, 0, eris.Errorf("cascade: unparseable model response: %.120s", text)
}

// cleanJSON strips markdown code fences and surrounding prose from a model
// response, keeping the outermost JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// dedupe removes duplicates and empty strings, preserving first-seen order.
func dedupe(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
