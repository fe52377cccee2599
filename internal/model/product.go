package model

// CategoryUnknown is returned by the detector when no category keyword matches.
// It short-circuits category-scoped tagging downstream.
const CategoryUnknown = "unknown"

// Product is a single catalog record as read from the input CSV.
// It is immutable once read; the pipeline never mutates it.
type Product struct {
	Handle       string   `json:"handle"`
	Title        string   `json:"title"`
	Body         string   `json:"body"` // BodyHTML with markup stripped, for matching
	BodyHTML     string   `json:"body_html,omitempty"`
	Vendor       string   `json:"vendor"`
	ExistingType string   `json:"existing_type,omitempty"`
	ExistingTags []string `json:"existing_tags,omitempty"` // advisory context only
}

// Text returns the searchable text of the product (title + body).
func (p Product) Text() string {
	if p.Body == "" {
		return p.Title
	}
	return p.Title + " " + p.Body
}
