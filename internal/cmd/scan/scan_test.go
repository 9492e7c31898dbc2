package scan

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-cli-collective/relink/internal/config"
	"github.com/open-cli-collective/relink/pkg/relink"
)

func scanFile(t *testing.T, name, content string, opts scanOptions) (string, string, error) {
	t.Helper()
	if name != "-" {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		name = path
	} else {
		opts.stdin = strings.NewReader(content)
	}
	var stdout, stderr bytes.Buffer
	opts.file = name
	opts.stdout = &stdout
	opts.stderr = &stderr
	err := runScan(context.Background(), &opts, &config.Config{})
	return stdout.String(), stderr.String(), err
}

func TestRunScan(t *testing.T) {
	tests := []struct {
		name       string
		file       string
		content    string
		opts       scanOptions
		wantOut    string
		wantReport string
	}{
		{
			name:       "tid with fields",
			file:       "Home.tid",
			content:    "tags: Start other\ntitle: Home\n\nGo to [[Start]].\n",
			opts:       scanOptions{from: "Start", to: "Getting Started"},
			wantOut:    "tags: [[Getting Started]] other\ntitle: Home\n\nGo to [[Getting Started]].\n",
			wantReport: "Renaming field tags 'Start' to 'Getting Started'",
		},
		{
			name:       "markdown by extension",
			file:       "notes.md",
			content:    "See [the start](#Start).\n",
			opts:       scanOptions{from: "Start", to: "Getting Started"},
			wantOut:    "See [the start](#Getting%20Started).\n",
			wantReport: "Renaming",
		},
		{
			name:       "storage format by extension",
			file:       "page.xhtml",
			content:    `<ri:page ri:content-title="Start"/>`,
			opts:       scanOptions{from: "Start", to: "Home"},
			wantOut:    `<ri:page ri:content-title="Home"/>`,
			wantReport: "Renaming",
		},
		{
			name:    "explicit type from stdin",
			file:    "-",
			content: "[link](#Start)",
			opts:    scanOptions{from: "Start", to: "Home", contentType: "text/markdown"},
			wantOut: "[link](#Home)",
		},
		{
			name:    "untouched file",
			file:    "plain.txt",
			content: "No references here.",
			opts:    scanOptions{from: "Start", to: "Home"},
			wantOut: "No references here.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, report, err := scanFile(t, tt.file, tt.content, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOut, out)
			assert.Contains(t, report, tt.wantReport)
		})
	}
}

func TestRunScan_Impossible(t *testing.T) {
	out, report, err := scanFile(t, "a.tid", "title: A\n\n{{Start}} and [[Start]]\n", scanOptions{from: "Start", to: "x|y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not be relinked")
	assert.Contains(t, out, "{{Start}}")
	assert.Contains(t, report, "Cannot relink transclude from 'Start' to 'x|y'")
}

func TestRunScan_Check(t *testing.T) {
	t.Run("needs changes", func(t *testing.T) {
		out, _, err := scanFile(t, "a.tid", "title: A\n\n[[Start]]\n", scanOptions{from: "Start", to: "Home", check: true})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "refers to 'Start'")
		assert.Empty(t, out)
	})

	t.Run("clean", func(t *testing.T) {
		out, _, err := scanFile(t, "a.tid", "title: A\n\nnothing\n", scanOptions{from: "Start", to: "Home", check: true})
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestRunScan_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		opts := &scanOptions{file: filepath.Join(t.TempDir(), "absent.tid"), from: "a", to: "b"}
		err := runScan(context.Background(), opts, &config.Config{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read file")
	})

	t.Run("malformed tid", func(t *testing.T) {
		_, _, err := scanFile(t, "bad.tid", "no colon here\n\nbody", scanOptions{from: "a", to: "b"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse")
	})

	t.Run("bad managed config", func(t *testing.T) {
		cfg := &config.Config{Managed: &relink.Settings{Fields: map[string]string{"x": "nope"}}}
		err := runScan(context.Background(), &scanOptions{file: "-", from: "a", to: "b"}, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid config")
	})
}
