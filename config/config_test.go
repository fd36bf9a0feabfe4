package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Server.Port)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Empty(t, cfg.Server.StaticDir, "no static files unless configured")
	assert.False(t, cfg.Auth.ExposeMagicLink)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", `
server:
  port: "8080"
auth:
  token_ttl: 12h
storage:
  backend: s3
  s3:
    bucket: boards
    endpoint: http://localhost:9000
log:
  format: json
`)
	t.Setenv("PORT", "9090")
	t.Setenv("S3_PREFIX", "users/")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port, "environment wins over the file")
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, BackendS3, cfg.Storage.Backend)
	assert.Equal(t, "boards", cfg.Storage.S3.Bucket)
	assert.Equal(t, "users/", cfg.Storage.S3.Prefix)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Storage.S3.UsePathStyle, "defaults survive when not overridden")
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "floppy")

	_, err := Load("")
	assert.ErrorContains(t, err, "unknown storage backend")
}

func TestLoad_S3RequiresBucket(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", BackendS3)

	_, err := Load("")
	assert.ErrorContains(t, err, "bucket")
}

func TestLoadEnv(t *testing.T) {
	path := writeFile(t, t.TempDir(), ".env", `
# comment
KANBAN_TEST_A="quoted value"
export KANBAN_TEST_B=plain
malformed line
KANBAN_TEST_C=from-file
`)
	t.Setenv("KANBAN_TEST_C", "from-env")

	require.NoError(t, LoadEnv(path))
	t.Cleanup(func() {
		os.Unsetenv("KANBAN_TEST_A")
		os.Unsetenv("KANBAN_TEST_B")
	})

	assert.Equal(t, "quoted value", os.Getenv("KANBAN_TEST_A"))
	assert.Equal(t, "plain", os.Getenv("KANBAN_TEST_B"))
	assert.Equal(t, "from-env", os.Getenv("KANBAN_TEST_C"))
}

func TestLoadEnv_MissingFile(t *testing.T) {
	assert.NoError(t, LoadEnv(filepath.Join(t.TempDir(), ".env")))
}
