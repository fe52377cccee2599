package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaggingAttempt_Bucket(t *testing.T) {
	tests := []struct {
		name    string
		attempt TaggingAttempt
		want    Bucket
	}{
		{"tagged and trusted", TaggingAttempt{FinalTags: []string{"e-liquid"}}, BucketClean},
		{"tagged but flagged", TaggingAttempt{FinalTags: []string{"e-liquid"}, NeedsManualReview: true}, BucketReview},
		{"no final tags", TaggingAttempt{ValidationFailures: []string{"x"}}, BucketUntagged},
		{"empty attempt", TaggingAttempt{}, BucketUntagged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.attempt.Bucket())
		})
	}
}

func TestTaggingAttempt_Accurate(t *testing.T) {
	assert.True(t, TaggingAttempt{FinalTags: []string{"pod"}}.Accurate())
	assert.False(t, TaggingAttempt{FinalTags: []string{"pod"}, NeedsManualReview: true}.Accurate())
	assert.False(t, TaggingAttempt{FinalTags: []string{"pod"}, ValidationFailures: []string{"x"}}.Accurate())
	assert.False(t, TaggingAttempt{}.Accurate())
}

func TestTaggingAttempt_Unresolved(t *testing.T) {
	assert.False(t, TaggingAttempt{FinalTags: []string{"pod"}}.Unresolved())
	assert.True(t, TaggingAttempt{FinalTags: []string{"pod"}, NeedsManualReview: true}.Unresolved())
	assert.True(t, TaggingAttempt{FinalTags: []string{"pod"}, ValidationFailures: []string{"x"}}.Unresolved())
	assert.True(t, TaggingAttempt{}.Unresolved())
}
