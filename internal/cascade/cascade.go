// Package cascade runs the multi-tier AI tagging fallback. Tiers are tried
// in order until one returns a confident result; the last tier's answer is
// accepted regardless of confidence so the cascade always terminates.
package cascade

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/greenlane/catalog-tagger/internal/model"
	"github.com/greenlane/catalog-tagger/internal/resilience"
	"github.com/greenlane/catalog-tagger/internal/schema"
)

// DefaultConfidenceThreshold gates acceptance of non-final tiers.
const DefaultConfidenceThreshold = 0.7

// ModelClient is the adapter each tier exposes. Implementations wrap a local
// inference daemon or a hosted endpoint; the cascade does not care which.
type ModelClient interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Tier is one rung of the fallback ladder.
type Tier struct {
	Label   model.ModelTier
	Client  ModelClient
	Timeout time.Duration
}

// Result is the cascade's answer for one product.
type Result struct {
	Tags       []string
	Confidence float64
	ModelUsed  model.ModelTier
}

// Cascade tries each configured tier in order. Every outbound call goes
// through a shared rate limiter and a per-tier circuit breaker.
type Cascade struct {
	schema    *schema.Schema
	tiers     []Tier
	threshold float64
	limiter   *rate.Limiter
	breakers  *resilience.ServiceBreakers
}

// Option configures the cascade.
type Option func(*Cascade)

// WithThreshold overrides the confidence gate.
func WithThreshold(t float64) Option {
	return func(c *Cascade) {
		c.threshold = t
	}
}

// WithRateLimit caps outbound model calls per second across all workers.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Cascade) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithBreakers installs circuit breakers keyed by tier label.
func WithBreakers(sb *resilience.ServiceBreakers) Option {
	return func(c *Cascade) {
		c.breakers = sb
	}
}

// New creates a cascade over the given tiers, ordered primary first.
func New(s *schema.Schema, tiers []Tier, opts ...Option) *Cascade {
	c := &Cascade{
		schema:    s,
		tiers:     tiers,
		threshold: DefaultConfidenceThreshold,
		breakers:  resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig()),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Threshold returns the configured confidence gate.
func (c *Cascade) Threshold() float64 {
	return c.threshold
}

// Generate asks the tiers for tags, passing the rule-extracted tags as hints.
// A transport error or timeout at a tier counts as confidence 0.0 and the
// cascade moves on; it never fails the product. When every tier fails to
// respond, the result degrades to the rule tags with model "none".
func (c *Cascade) Generate(ctx context.Context, p model.Product, category string, ruleTags []string) Result {
	system := systemPrompt(category, c.schema)
	prompt := userPrompt(p, category, ruleTags, c.schema)

	best := Result{Tags: ruleTags, Confidence: 0, ModelUsed: model.TierNone}
	responded := false

	for i, tier := range c.tiers {
		tags, conf, err := c.callTier(ctx, tier, system, prompt)
		if err != nil {
			zap.L().Warn("cascade: tier failed",
				zap.String("handle", p.Handle),
				zap.String("tier", string(tier.Label)),
				zap.Error(err),
			)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		responded = true

		res := Result{Tags: tags, Confidence: conf, ModelUsed: tier.Label}
		last := i == len(c.tiers)-1
		if conf >= c.threshold || last {
			// Final tier is always accepted so the cascade terminates.
			return res
		}
		if conf > best.Confidence || best.ModelUsed == model.TierNone {
			best = res
		}
	}

	if !responded {
		zap.L().Warn("cascade: all tiers failed, degrading to rule tags",
			zap.String("handle", p.Handle),
			zap.String("category", category),
		)
		return Result{Tags: ruleTags, Confidence: 0, ModelUsed: model.TierNone}
	}
	return best
}

// callTier performs one rate-limited, breaker-guarded, deadline-bounded call.
func (c *Cascade) callTier(ctx context.Context, tier Tier, system, prompt string) ([]string, float64, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, err
		}
	}

	callCtx := ctx
	if tier.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, tier.Timeout)
		defer cancel()
	}

	cb := c.breakers.Get(string(tier.Label))
	text, err := resilience.ExecuteVal(callCtx, cb, func(ctx context.Context) (string, error) {
		return tier.Client.Complete(ctx, system, prompt)
	})
	if err != nil {
		return nil, 0, err
	}

	return ParseResponse(text)
}
