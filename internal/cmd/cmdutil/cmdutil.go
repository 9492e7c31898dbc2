// Package cmdutil holds helpers shared by relink's commands.
package cmdutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/open-cli-collective/relink/api"
	"github.com/open-cli-collective/relink/internal/config"
	"github.com/open-cli-collective/relink/internal/store"
	"github.com/open-cli-collective/relink/internal/view"
)

// ConfigPath returns the --config flag value, or the default location.
func ConfigPath(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path
	}
	return config.DefaultConfigPath()
}

// LoadConfig loads the configuration with environment overrides. A
// non-empty dir selects a directory store regardless of the file.
func LoadConfig(cmd *cobra.Command, dir string) (*config.Config, error) {
	cfg, err := config.LoadWithEnv(ConfigPath(cmd))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w (run 'relink init' to configure)", err)
	}
	if dir != "" {
		cfg.Store = config.StoreDir
		cfg.Dir = dir
	}
	cfg.NormalizeURL()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w (run 'relink init' to configure)", err)
	}
	return cfg, nil
}

// OpenStore returns the store selected by cfg. message is recorded as
// the version message of pages written to Confluence.
func OpenStore(cfg *config.Config, message string, httpClient *http.Client) (store.Store, error) {
	switch cfg.StoreKind() {
	case config.StoreConfluence:
		if httpClient == nil {
			httpClient = &http.Client{Timeout: 30 * time.Second}
		}
		client := api.NewClient(cfg.URL, cfg.Email, cfg.APIToken, api.WithHTTPClient(httpClient))
		return store.NewConfluenceStore(client, cfg.Space, message), nil
	default:
		st, err := store.NewDirStore(cfg.Dir, cfg.Include, cfg.Exclude)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		return st, nil
	}
}

// Renderer builds a renderer from the --output and --no-color flags.
func Renderer(cmd *cobra.Command, w io.Writer) (*view.Renderer, error) {
	output, _ := cmd.Flags().GetString("output")
	if err := view.ValidateFormat(output); err != nil {
		return nil, err
	}
	noColor, _ := cmd.Flags().GetBool("no-color")
	r := view.NewRenderer(view.Format(output), noColor)
	r.SetWriter(w)
	return r, nil
}

// NewLogger returns the diagnostic logger written to w. Only warnings
// are shown unless verbose is set.
func NewLogger(w io.Writer, verbose, noColor bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: noColor, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()
}

// WithLogger attaches a logger to the command's context.
func WithLogger(cmd *cobra.Command, verbose bool) {
	noColor, _ := cmd.Flags().GetBool("no-color")
	logger := NewLogger(os.Stderr, verbose, noColor)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logger.WithContext(ctx))
}
