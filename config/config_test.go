package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfile := filepath.Join(dir, "artisanhub.yml")
	content := `
system:
  appid: TestHub
  workdir: ` + dir + `
web:
  port: 8088
  secret: s3cret
database:
  type: sqlite
  name: test.db
llm:
  provider: gemini
  api_key: abc
`
	require.NoError(t, os.WriteFile(cfile, []byte(content), 0o600))

	cfg, err := LoadConfig(cfile)
	require.NoError(t, err)

	assert.Equal(t, "TestHub", cfg.System.Appid)
	assert.Equal(t, 8088, cfg.Web.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	// defaults fill what the file leaves out
	assert.Equal(t, "UTC", cfg.System.Location)
	assert.Equal(t, 24*7, cfg.Web.JwtTTLHours)
	assert.Equal(t, "s3cret", cfg.Web.SessionSecret)
	assert.Equal(t, 30, cfg.LLM.TimeoutSec)
	assert.Equal(t, 4, cfg.Mail.Workers)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Run("string int and bool values", func(t *testing.T) {
		t.Setenv("ARTISANHUB_WEB_PORT", "9090")
		t.Setenv("ARTISANHUB_DB_TYPE", "sqlite")
		t.Setenv("ARTISANHUB_DB_DEBUG", "true")
		t.Setenv("ARTISANHUB_LLM_API_KEY", "env-key")

		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Web.Port)
		assert.Equal(t, "sqlite", cfg.Database.Type)
		assert.True(t, cfg.Database.Debug)
		assert.Equal(t, "env-key", cfg.LLM.ApiKey)
	})

	t.Run("invalid numbers are ignored", func(t *testing.T) {
		t.Setenv("ARTISANHUB_WEB_PORT", "not-a-port")

		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
		require.NoError(t, err)
		assert.Equal(t, 3000, cfg.Web.Port)
	})
}

func TestLoadConfig_BadYaml(t *testing.T) {
	cfile := filepath.Join(t.TempDir(), "broken.yml")
	require.NoError(t, os.WriteFile(cfile, []byte("system: [unclosed"), 0o600))

	_, err := LoadConfig(cfile)
	assert.Error(t, err)
}
