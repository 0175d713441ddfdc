package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "supersetctl/cli/internal/errors"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv(PathEnvVar, "")
	for name := range envKeys {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	os.Unsetenv(PathEnvVar)
	return dir
}

func writeFile(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	isolate(t)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "public", c.Schema)
	assert.Equal(t, 30*time.Second, c.Timeout)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, 1, c.Concurrency)
	assert.Empty(t, c.Path)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := isolate(t)
	p := writeFile(t, dir, `
superset_url: https://bi.example.com/
username: alice
schema: analytics
timeout: 5s
concurrency: 4
`)
	t.Setenv("SUPERSET_USERNAME", "bob")
	t.Setenv("SUPERSETCTL_LOG_LEVEL", "debug")

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "https://bi.example.com", c.SupersetURL)
	assert.Equal(t, "bob", c.Username, "env wins over file")
	assert.Equal(t, "analytics", c.Schema)
	assert.Equal(t, 5*time.Second, c.Timeout)
	assert.Equal(t, 4, c.Concurrency)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, p, c.Path)
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.True(t, apperr.HasKind(err, apperr.Validation))
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := isolate(t)
	p := writeFile(t, dir, "log_level: loud\nconcurrency: 0\n")

	_, err := Load(p)
	require.Error(t, err)
	assert.True(t, apperr.HasKind(err, apperr.Validation))
	assert.Contains(t, err.Error(), "log_level must be one of")
	assert.Contains(t, err.Error(), "concurrency must be at least 1")
}

func TestRequireServer(t *testing.T) {
	err := Defaults().RequireServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "superset_url")
	assert.Contains(t, err.Error(), "username")

	c := Defaults()
	c.SupersetURL = "https://bi.example.com"
	c.Username = "alice"
	assert.NoError(t, c.RequireServer())
}

func TestSave_OmitsSecrets(t *testing.T) {
	dir := isolate(t)
	p := filepath.Join(dir, "out", FileName)

	c := Defaults()
	c.SupersetURL = "https://bi.example.com"
	c.Username = "alice"
	c.Password = "hunter2"
	c.WarehouseDSN = "postgres://u:p@db/warehouse"
	require.NoError(t, Save(c, p))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hunter2")
	assert.NotContains(t, string(b), "warehouse")

	back, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "alice", back.Username)
	assert.Empty(t, back.Password)
}
