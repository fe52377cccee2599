package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/greenlane/catalog-tagger/internal/config"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.Orchestrator.TargetAccuracy = 0.85
	c.Orchestrator.MaxIterations = 5
	c.Orchestrator.Workers = 8
	c.Orchestrator.BudgetSecs = 900
	return c
}

func TestResolveOrchestratorConfig_ConfigFallback(t *testing.T) {
	ocfg := resolveOrchestratorConfig(testConfig(), 0, 0, 0, 0)

	assert.Equal(t, 0.85, ocfg.TargetAccuracy)
	assert.Equal(t, 5, ocfg.MaxIterations)
	assert.Equal(t, 8, ocfg.Workers)
	assert.Equal(t, 900*time.Second, ocfg.Budget)
}

func TestResolveOrchestratorConfig_FlagsWin(t *testing.T) {
	ocfg := resolveOrchestratorConfig(testConfig(), 0.95, 2, 4, 60)

	assert.Equal(t, 0.95, ocfg.TargetAccuracy)
	assert.Equal(t, 2, ocfg.MaxIterations)
	assert.Equal(t, 4, ocfg.Workers)
	assert.Equal(t, 60*time.Second, ocfg.Budget)
}

func TestResolveOrchestratorConfig_NoBudgetAnywhere(t *testing.T) {
	c := testConfig()
	c.Orchestrator.BudgetSecs = 0

	ocfg := resolveOrchestratorConfig(c, 0, 0, 0, 0)

	assert.Equal(t, time.Duration(0), ocfg.Budget)
}
