package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/greenlane/catalog-tagger/internal/audit"
	"github.com/greenlane/catalog-tagger/internal/cascade"
	"github.com/greenlane/catalog-tagger/internal/model"
	"github.com/greenlane/catalog-tagger/internal/recovery"
	"github.com/greenlane/catalog-tagger/internal/schema"
	"github.com/greenlane/catalog-tagger/internal/validate"
	"github.com/greenlane/catalog-tagger/pkg/anthropic"
	"github.com/greenlane/catalog-tagger/pkg/ollama"
)

// env bundles the wired pipeline dependencies for a command invocation.
type env struct {
	Schema  *schema.Schema
	Store   audit.Store
	Cascade *cascade.Cascade
	Advisor *recovery.Advisor
}

func (e *env) Close() {
	if e.Store != nil {
		e.Store.Close()
	}
}

// initStore opens the configured audit backend and applies migrations.
func initStore(ctx context.Context) (audit.Store, error) {
	var store audit.Store
	switch cfg.Store.Driver {
	case "postgres":
		s, err := audit.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
		if err != nil {
			return nil, err
		}
		store = s
	case "sqlite", "":
		s, err := audit.NewSQLite(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// initEnv loads the schema, opens the store, and wires the model tiers.
// withAI=false skips tier construction for rule-only runs.
func initEnv(ctx context.Context, withAI bool) (*env, error) {
	s, err := schema.Load(cfg.Schema.Path)
	if err != nil {
		return nil, err
	}

	store, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	e := &env{Schema: s, Store: store}
	if !withAI {
		return e, nil
	}

	tierTimeout := time.Duration(cfg.Cascade.TierTimeoutSecs) * time.Second
	local := ollama.NewClient(ollama.WithBaseURL(cfg.Ollama.BaseURL))
	hosted := anthropic.NewClient(cfg.Anthropic.Key)

	tertiary := &cascade.AnthropicModel{
		Client:    hosted,
		Model:     cfg.Anthropic.Model,
		MaxTokens: cfg.Anthropic.MaxTokens,
		Phase:     "tagging",
	}

	e.Cascade = cascade.New(s, []cascade.Tier{
		{Label: model.TierPrimary, Client: &cascade.OllamaModel{Client: local, Model: cfg.Ollama.PrimaryModel}, Timeout: tierTimeout},
		{Label: model.TierSecondary, Client: &cascade.OllamaModel{Client: local, Model: cfg.Ollama.SecondaryModel}, Timeout: tierTimeout},
		{Label: model.TierTertiary, Client: tertiary, Timeout: tierTimeout},
	},
		cascade.WithThreshold(cfg.Cascade.ConfidenceThreshold),
		cascade.WithRateLimit(cfg.Cascade.RatePerSecond, cfg.Cascade.RateBurst),
	)

	recoveryTier := &cascade.AnthropicModel{
		Client:    hosted,
		Model:     cfg.Anthropic.Model,
		MaxTokens: cfg.Anthropic.MaxTokens,
		Phase:     "recovery",
	}
	e.Advisor = recovery.New(s, recoveryTier, validate.New(s), tierTimeout)

	return e, nil
}
