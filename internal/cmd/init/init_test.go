package init

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-cli-collective/relink/internal/config"
)

func confluenceConfig(url string) *config.Config {
	return &config.Config{
		Store:    config.StoreConfluence,
		URL:      url,
		Email:    "test@example.com",
		APIToken: "test-token",
		Space:    "DOCS",
	}
}

func TestVerifyConnection_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/spaces", r.URL.Path)
		assert.Equal(t, "DOCS", r.URL.Query().Get("keys"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok, "basic auth should be present")
		assert.Equal(t, "test@example.com", user)
		assert.Equal(t, "test-token", pass)

		_, _ = w.Write([]byte(`{"results": [{"id": "1", "key": "DOCS", "name": "Documentation"}]}`))
	}))
	defer server.Close()

	summary, err := verifyConnection(context.Background(), confluenceConfig(server.URL), server.Client())
	require.NoError(t, err)
	assert.Equal(t, "space Documentation", summary)
}

func TestVerifyConnection_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		errContain string
	}{
		{"401 Unauthorized", http.StatusUnauthorized, `{"message": "Unauthorized"}`, "authentication failed - check your email and API token"},
		{"403 Forbidden", http.StatusForbidden, `{"message": "Forbidden"}`, "access denied - check your permissions"},
		{"404 Not Found", http.StatusNotFound, ``, "space DOCS not found"},
		{"502 Bad Gateway", http.StatusBadGateway, ``, "unexpected status code: 502"},
		{"503 Service Unavailable", http.StatusServiceUnavailable, ``, "unexpected status code: 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := verifyConnection(context.Background(), confluenceConfig(server.URL), server.Client())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContain)
		})
	}
}

func TestVerifyConnection_MissingSpace(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer server.Close()

	_, err := verifyConnection(context.Background(), confluenceConfig(server.URL), server.Client())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "space DOCS not found")
}

func TestVerifyConnection_NetworkError(t *testing.T) {
	_, err := verifyConnection(context.Background(), confluenceConfig("http://localhost:99999"), nil)
	require.Error(t, err)
}

func TestFinishInit_Dir(t *testing.T) {
	docs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs, "a.tid"), []byte("title: A\n\ntext"), 0644))
	configPath := filepath.Join(t.TempDir(), "nested", "config.yml")
	var out bytes.Buffer

	cfg := &config.Config{Store: config.StoreDir, Dir: docs}
	require.NoError(t, finishInit(context.Background(), cfg, configPath, false, nil, &out))

	assert.Contains(t, out.String(), "Verifying store... success! (1 documents)")
	assert.Contains(t, out.String(), "Configuration saved to "+configPath)

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "config file should have 0600 permissions")

	loaded, err := config.Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, docs, loaded.Dir)
}

func TestVerifyStore_Confluence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wiki/api/v2/spaces", r.URL.Path)
		_, _ = w.Write([]byte(`{"results": [{"id": "1", "key": "DOCS", "name": "Docs"}]}`))
	}))
	defer server.Close()

	// Validate rejects the plain http test server, so finishInit is not used.
	cfg := confluenceConfig(server.URL)
	cfg.NormalizeURL()
	summary, err := verifyStore(context.Background(), cfg, server.Client())
	require.NoError(t, err)
	assert.Equal(t, "space Docs", summary)
}

func TestFinishInit_Errors(t *testing.T) {
	t.Run("invalid configuration", func(t *testing.T) {
		var out bytes.Buffer
		err := finishInit(context.Background(), &config.Config{Store: config.StoreDir}, filepath.Join(t.TempDir(), "c.yml"), true, nil, &out)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration: dir is required")
	})

	t.Run("missing directory", func(t *testing.T) {
		var out bytes.Buffer
		cfg := &config.Config{Dir: filepath.Join(t.TempDir(), "absent")}
		configPath := filepath.Join(t.TempDir(), "c.yml")
		err := finishInit(context.Background(), cfg, configPath, false, nil, &out)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "store verification failed")
		assert.Contains(t, out.String(), "failed!")
		assert.NoFileExists(t, configPath)
	})

	t.Run("no verify skips the store", func(t *testing.T) {
		var out bytes.Buffer
		cfg := &config.Config{Dir: filepath.Join(t.TempDir(), "absent")}
		configPath := filepath.Join(t.TempDir(), "c.yml")
		require.NoError(t, finishInit(context.Background(), cfg, configPath, true, nil, &out))
		assert.NotContains(t, out.String(), "Verifying")
		assert.FileExists(t, configPath)
	})
}

func TestPrefill(t *testing.T) {
	cfg := &config.Config{Dir: "./old", Email: "keep@example.com"}
	prefill(cfg, &initOptions{dir: "./new", space: "DOCS"})

	assert.Equal(t, config.StoreDir, cfg.Store)
	assert.Equal(t, "./new", cfg.Dir)
	assert.Equal(t, "keep@example.com", cfg.Email)
	assert.Equal(t, "DOCS", cfg.Space)

	prefill(cfg, &initOptions{store: config.StoreConfluence})
	assert.Equal(t, config.StoreConfluence, cfg.Store)
}

func TestNewCmdInit_Flags(t *testing.T) {
	cmd := NewCmdInit()

	assert.Equal(t, "init", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	for _, name := range []string{"store", "dir", "url", "email", "space"} {
		flag := cmd.Flags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, "", flag.DefValue)
	}

	noVerifyFlag := cmd.Flags().Lookup("no-verify")
	require.NotNil(t, noVerifyFlag)
	assert.Equal(t, "false", noVerifyFlag.DefValue)
}
