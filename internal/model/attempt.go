package model

import "time"

// ModelTier identifies which cascade tier produced the accepted tags.
type ModelTier string

const (
	TierNone      ModelTier = "none"
	TierPrimary   ModelTier = "primary"
	TierSecondary ModelTier = "secondary"
	TierTertiary  ModelTier = "tertiary"
	TierRecovery  ModelTier = "recovery"
)

// Bucket is the output partition a product lands in after a run completes.
type Bucket string

const (
	BucketClean    Bucket = "clean"
	BucketReview   Bucket = "review"
	BucketUntagged Bucket = "untagged"
)

// TaggingAttempt is the working record for one product within one pipeline
// pass. It is created fresh per product per pass, folded into an AuditRecord,
// and never shared across products.
type TaggingAttempt struct {
	Handle             string    `json:"handle"`
	Category           string    `json:"category"`
	RuleTags           []string  `json:"rule_tags"`
	SecondaryFlavors   []string  `json:"secondary_flavors,omitempty"` // informational, never final
	AITags             []string  `json:"ai_tags"`
	Confidence         float64   `json:"confidence"`
	ModelUsed          ModelTier `json:"model_used"`
	ValidationFailures []string  `json:"validation_failures"`
	FinalTags          []string  `json:"final_tags"`
	NeedsManualReview  bool      `json:"needs_manual_review"`
}

// Bucket classifies the attempt into one of the three disjoint output sets.
func (a TaggingAttempt) Bucket() Bucket {
	if len(a.FinalTags) == 0 {
		return BucketUntagged
	}
	if a.NeedsManualReview {
		return BucketReview
	}
	return BucketClean
}

// Accurate reports whether the attempt counts toward the accuracy target:
// tagged, trusted, and free of validation failures.
func (a TaggingAttempt) Accurate() bool {
	return len(a.FinalTags) > 0 && !a.NeedsManualReview && len(a.ValidationFailures) == 0
}

// Unresolved reports whether the orchestrator should re-attempt the product
// on the next improvement pass.
func (a TaggingAttempt) Unresolved() bool {
	return a.NeedsManualReview || len(a.ValidationFailures) > 0 || len(a.FinalTags) == 0
}

// AuditRecord is the persisted, append-only snapshot of one attempt, keyed by
// (run_id, handle, pass_number). A new pass appends a new row; rows are never
// updated in place.
type AuditRecord struct {
	RunID       string         `json:"run_id"`
	Handle      string         `json:"handle"`
	PassNumber  int            `json:"pass_number"`
	Attempt     TaggingAttempt `json:"attempt"`
	ProcessedAt time.Time      `json:"processed_at"`
}
