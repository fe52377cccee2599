// Package recovery makes a single corrective model call when validation
// rejects a tag set. Recovery output is never fully trusted: callers must
// keep the attempt flagged for manual review regardless of outcome.
package recovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/greenlane/catalog-tagger/internal/cascade"
	"github.com/greenlane/catalog-tagger/internal/model"
	"github.com/greenlane/catalog-tagger/internal/schema"
	"github.com/greenlane/catalog-tagger/internal/textutil"
	"github.com/greenlane/catalog-tagger/internal/validate"
)

const recoverySystemPrompt = `You correct invalid e-commerce product tags. A previous attempt produced tags that failed validation. Fix the specific problems listed, using only tag values from the approved schema provided. Respond with a valid JSON object: {"tags": ["<tag>", ...], "confidence": <0.0-1.0>} and nothing else.`

const recoveryUserPrompt = `Product handle: %s
Title: %s
Category: %s

Description:
%s

Rejected tags: %s

Validation failures to fix:
%s

Approved schema for this category:
%s`

// Advisor drives the one-shot recovery call against the tertiary model.
type Advisor struct {
	schema    *schema.Schema
	client    cascade.ModelClient
	validator *validate.Validator
	timeout   time.Duration
}

// New creates an advisor. client is the tertiary tier's adapter; there is no
// further cascading on recovery.
func New(s *schema.Schema, client cascade.ModelClient, v *validate.Validator, timeout time.Duration) *Advisor {
	return &Advisor{
		schema:    s,
		client:    client,
		validator: v,
		timeout:   timeout,
	}
}

// Recover builds a corrective prompt from the rejected tags and the concrete
// failure reasons, calls the model once, and re-validates the result. It
// returns the corrected tags and true only when they pass validation. On any
// model error or a still-failing result it returns (nil, false); the caller
// keeps the original failure reasons.
func (a *Advisor) Recover(ctx context.Context, p model.Product, category string, failedTags, reasons []string) ([]string, bool) {
	if a.client == nil {
		return nil, false
	}

	callCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	prompt := a.buildPrompt(p, category, failedTags, reasons)
	text, err := a.client.Complete(callCtx, recoverySystemPrompt, prompt)
	if err != nil {
		zap.L().Warn("recovery: model call failed",
			zap.String("handle", p.Handle),
			zap.Error(err),
		)
		return nil, false
	}

	tags, _, err := cascade.ParseResponse(text)
	if err != nil {
		zap.L().Warn("recovery: unparseable response",
			zap.String("handle", p.Handle),
			zap.Error(err),
		)
		return nil, false
	}

	ok, failures := a.validator.Validate(tags, category)
	if !ok {
		zap.L().Info("recovery: corrected tags still invalid",
			zap.String("handle", p.Handle),
			zap.Strings("failures", failures),
		)
		return nil, false
	}

	zap.L().Info("recovery: produced valid tags",
		zap.String("handle", p.Handle),
		zap.Int("tags", len(tags)),
	)
	return tags, true
}

func (a *Advisor) buildPrompt(p model.Product, category string, failedTags, reasons []string) string {
	body := textutil.Truncate(p.Body, 2000)
	var reasonList strings.Builder
	for _, r := range reasons {
		reasonList.WriteString("- ")
		reasonList.WriteString(r)
		reasonList.WriteString("\n")
	}
	return fmt.Sprintf(recoveryUserPrompt,
		p.Handle, p.Title, category, body,
		strings.Join(failedTags, ", "),
		reasonList.String(),
		a.schema.Excerpt(category))
}
