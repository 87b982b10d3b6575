package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_PassesValidate(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestServerConfig_Addr(t *testing.T) {
	cfg := ServerConfig{Host: "0.0.0.0", Port: 8080}
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestLoad_YAMLOverridesDefaultsAndEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := "server:\n  port: 9090\norchestrator:\n  worker_count: 4\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o600))

	t.Setenv("SERVER_PORT", "9191")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Orchestrator.WorkerCount)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Port, cfg.Server.Port)
}

func TestValidate_RejectsOutOfRangePort(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownStoreKind(t *testing.T) {
	cfg := Default()
	cfg.Store.Kind = "mongo"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsNonPositiveWorkerCount(t *testing.T) {
	cfg := Default()
	cfg.Orchestrator.WorkerCount = 0
	assert.Error(t, cfg.Validate())
}
