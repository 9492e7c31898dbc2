package configcmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-cli-collective/relink/internal/config"
	"github.com/open-cli-collective/relink/pkg/relink"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range config.EnvVars {
		t.Setenv(v, "")
	}
}

func TestRunShow_ConfluenceConfig(t *testing.T) {
	clearEnv(t)
	configPath := filepath.Join(t.TempDir(), "config.yml")
	cfg := &config.Config{
		Store:    config.StoreConfluence,
		URL:      "https://test.atlassian.net/wiki",
		Email:    "test@example.com",
		APIToken: "test-token-value",
		Space:    "DEV",
		Managed:  &relink.Settings{Fields: map[string]string{"owner": "title"}},
	}
	require.NoError(t, cfg.Save(configPath))
	t.Setenv("RELINK_SPACE", "OPS")

	var buf bytes.Buffer
	require.NoError(t, runShow(&buf, true, configPath))

	output := buf.String()
	assert.Contains(t, output, "Store:      confluence  (source: config)")
	assert.Contains(t, output, "URL:        https://test.atlassian.net/wiki  (source: config)")
	assert.Contains(t, output, "API Token:  test********alue  (source: config)")
	assert.Contains(t, output, "Space:      OPS  (source: RELINK_SPACE)")
	assert.Contains(t, output, "fields:      list, owner, tags")
	assert.NotContains(t, output, "Dir:")
	assert.Contains(t, output, "Config file: "+configPath)
	assert.NotContains(t, output, "(file not found)")
}

func TestRunShow_NoConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("RELINK_DIR", "/srv/wiki")
	configPath := filepath.Join(t.TempDir(), "config.yml")

	var buf bytes.Buffer
	require.NoError(t, runShow(&buf, true, configPath))

	output := buf.String()
	assert.Contains(t, output, "Store:      dir  (source: default)")
	assert.Contains(t, output, "Workers:    4  (source: default)")
	assert.Contains(t, output, "Dir:        /srv/wiki  (source: RELINK_DIR)")
	assert.Contains(t, output, "Include:    -")
	assert.Contains(t, output, "(file not found)")
}

func TestRunShow_MalformedConfig(t *testing.T) {
	clearEnv(t)
	configPath := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, writeFile(configPath, "store: [oops"))

	var buf bytes.Buffer
	err := runShow(&buf, true, configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}
