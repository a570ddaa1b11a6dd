package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkeye/quizhub/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := config.Load("missing")
	require.NoError(t, err)
	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "localhost", cfg.ExternalIP)
	assert.Equal(t, 60*time.Second, cfg.Game.InitialTimeout)
	assert.Equal(t, 30*time.Second, cfg.Game.IdleTimeout)
	assert.Equal(t, 10, cfg.Game.MaxRetries)
	assert.Equal(t, 1, cfg.Game.MinPlayers)
	assert.Equal(t, 32, cfg.Game.MaxPlayers)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 54*time.Second, cfg.WS.PingPeriod)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "config"), 0o755))
	yaml := []byte(`mode: debug
port: 9090
game:
  idle_timeout: 5s
  static_id: QUIZ
store:
  driver: postgres
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), yaml, 0o600))
	chdir(t, dir)
	t.Setenv("QUIZHUB_GAME_MAX_PLAYERS", "4")
	t.Setenv("QUIZHUB_PORT", "7070")

	cfg, err := config.Load("test")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.Game.IdleTimeout)
	assert.Equal(t, "QUIZ", cfg.Game.StaticID)
	assert.Equal(t, 4, cfg.Game.MaxPlayers)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestLoadUsesConfigEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.staging.yaml"), []byte("port: 6060\n"), 0o600))
	chdir(t, dir)
	t.Setenv("CONFIG_ENV", "staging")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Port)
}
