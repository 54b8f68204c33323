package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
upstream:
  timeout_seconds: 10
ai_clients:
  - kind: openai
    api_url: https://api.openai.com/v1
    api_key: sk-test
    models: [gpt-4o, gpt-4o-mini]
    model: 1
ai_client:
  selected: 0
credentials:
  - school: Test School
    username: stu
    password: pw
credential:
  selected: 3
cache_dir: /tmp/ehh-test
transcription:
  command: whisper-cli
  args: ["-f", "{input}"]
server:
  port: ":9090"
  cors_origins: ["http://localhost:3000"]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(NewViper(writeConfig(t, sampleConfig)))
	require.NoError(t, err)

	assert.Equal(t, "https://gateway.jeedu.net", cfg.Upstream.BaseURL)
	assert.Equal(t, 10, cfg.Upstream.TimeoutSeconds)
	assert.Equal(t, "/tmp/ehh-test", cfg.CacheDir)
	assert.Equal(t, []string{"-f", "{input}"}, cfg.Transcription.Args)
	assert.Equal(t, "en", cfg.Transcription.Language)
	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)

	ai, ok := cfg.SelectedAIClient()
	require.True(t, ok)
	assert.Equal(t, "sk-test", ai.APIKey)
	assert.Equal(t, 1, ai.Model)

	_, ok = cfg.SelectedCredentials()
	assert.False(t, ok, "selected index out of range")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("EHH_UPSTREAM_BASE_URL", "http://localhost:8000")
	t.Setenv("EHH_SERVER_PORT", ":7000")

	cfg, err := Load(NewViper(writeConfig(t, sampleConfig)))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.Upstream.BaseURL)
	assert.Equal(t, ":7000", cfg.Server.Port)
}

func TestLoadWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(NewViper(""))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Upstream.TimeoutSeconds)
	_, ok := cfg.SelectedAIClient()
	assert.False(t, ok)
}

func TestLoadMalformed(t *testing.T) {
	_, err := Load(NewViper(writeConfig(t, "upstream: [unclosed")))
	assert.Error(t, err)
}
