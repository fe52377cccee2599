package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "tagging_audit.db", cfg.Store.Path)
	assert.Equal(t, "approved_tags.json", cfg.Schema.Path)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, "llama3.1:8b", cfg.Ollama.PrimaryModel)
	assert.Equal(t, "qwen2.5:14b", cfg.Ollama.SecondaryModel)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, int64(1024), cfg.Anthropic.MaxTokens)
	assert.InDelta(t, 0.7, cfg.Cascade.ConfidenceThreshold, 0.001)
	assert.Equal(t, 60, cfg.Cascade.TierTimeoutSecs)
	assert.InDelta(t, 5.0, cfg.Cascade.RatePerSecond, 0.001)
	assert.Equal(t, 10, cfg.Cascade.RateBurst)
	assert.InDelta(t, 0.90, cfg.Orchestrator.TargetAccuracy, 0.001)
	assert.Equal(t, 3, cfg.Orchestrator.MaxIterations)
	assert.Equal(t, 4, cfg.Orchestrator.Workers)
	assert.Equal(t, "output", cfg.Export.Dir)
	assert.Equal(t, 30, cfg.FTP.TimeoutSecs)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/tagger
cascade:
  confidence_threshold: 0.8
orchestrator:
  target_accuracy: 0.95
  max_iterations: 5
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/tagger", cfg.Store.DatabaseURL)
	assert.InDelta(t, 0.8, cfg.Cascade.ConfidenceThreshold, 0.001)
	assert.InDelta(t, 0.95, cfg.Orchestrator.TargetAccuracy, 0.001)
	assert.Equal(t, 5, cfg.Orchestrator.MaxIterations)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 4, cfg.Orchestrator.Workers)
	assert.Equal(t, "llama3.1:8b", cfg.Ollama.PrimaryModel)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("TAGGER_STORE_DRIVER", "postgres")
	t.Setenv("TAGGER_ANTHROPIC_KEY", "sk-test")
	t.Setenv("TAGGER_ORCHESTRATOR_WORKERS", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "sk-test", cfg.Anthropic.Key)
	assert.Equal(t, 8, cfg.Orchestrator.Workers)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.NotNil(t, zap.L())

	assert.Error(t, InitLogger(LogConfig{Level: "nonsense", Format: "json"}))
}
