package model

import "time"

// Run groups a batch execution. ConfigSnapshot holds the serialized
// thresholds and targets the run was started with, for reproducibility.
type Run struct {
	ID             string     `json:"id"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ConfigSnapshot string     `json:"config_snapshot"`
}

// Accuracy is the aggregate quality measure for a run, computed from the
// latest pass per (run_id, handle) only.
type Accuracy struct {
	Overall     float64            `json:"overall"`
	PerCategory map[string]float64 `json:"per_category"`
	Total       int                `json:"total"`
	Clean       int                `json:"clean"`
	Review      int                `json:"review"`
	Untagged    int                `json:"untagged"`
}
