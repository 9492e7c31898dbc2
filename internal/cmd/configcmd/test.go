package configcmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/open-cli-collective/relink/api"
	"github.com/open-cli-collective/relink/internal/cmd/cmdutil"
	"github.com/open-cli-collective/relink/internal/config"
)

// NewCmdTest creates the config test command.
func NewCmdTest() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test access to the configured store",
		Long:  `Test that relink can read the configured document directory or Confluence space.`,
		Example: `  # Test the store
  relink config test`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			noColor, _ := cmd.Flags().GetBool("no-color")
			cfg, err := cmdutil.LoadConfig(cmd, "")
			if err != nil {
				return err
			}
			return runTest(cmd.Context(), cmd.OutOrStdout(), noColor, nil, cfg)
		},
	}

	return cmd
}

func runTest(ctx context.Context, w io.Writer, noColor bool, httpClient *http.Client, cfg *config.Config) error {
	if noColor {
		color.NoColor = true
	}
	if ctx == nil {
		ctx = context.Background()
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	if cfg.StoreKind() == config.StoreDir {
		fmt.Fprintf(w, "Reading documents in %s...\n", cfg.Dir)
		st, err := cmdutil.OpenStore(cfg, "", nil)
		if err != nil {
			red.Fprintln(w, "✗ Cannot open directory:", err)
			return err
		}
		titles, err := st.List(ctx)
		if err != nil {
			red.Fprintln(w, "✗ Cannot read documents:", err)
			return fmt.Errorf("failed to list documents: %w", err)
		}
		green.Fprintf(w, "✓ Found %d documents\n", len(titles))
		return nil
	}

	fmt.Fprintf(w, "Testing connection to %s...\n", cfg.URL)

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	client := api.NewClient(cfg.URL, cfg.Email, cfg.APIToken, api.WithHTTPClient(httpClient))

	space, err := client.GetSpaceByKey(ctx, cfg.Space)
	if err != nil {
		var apiErr *api.ErrorResponse
		if !errors.As(err, &apiErr) {
			red.Fprintln(w, "✗ Connection failed:", err)
			fmt.Fprintln(w, "\nCheck your URL with: relink config show")
			fmt.Fprintln(w, "Reconfigure with: relink init")
			return fmt.Errorf("connection failed: %w", err)
		}
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			red.Fprintln(w, "✗ Authentication failed: 401 Unauthorized")
			fmt.Fprintln(w, "\nCheck your credentials with: relink config show")
			fmt.Fprintln(w, "Reconfigure with: relink init")
			return fmt.Errorf("authentication failed")
		case http.StatusForbidden:
			red.Fprintln(w, "✗ Access denied: 403 Forbidden")
			fmt.Fprintln(w, "\nCheck your permissions.")
			return fmt.Errorf("access denied")
		case http.StatusNotFound:
			red.Fprintf(w, "✗ Space %s not found\n", cfg.Space)
			return fmt.Errorf("space %s not found", cfg.Space)
		}
		red.Fprintf(w, "✗ Unexpected response: %d\n", apiErr.StatusCode)
		return fmt.Errorf("unexpected status code: %d", apiErr.StatusCode)
	}

	green.Fprintln(w, "✓ Authentication successful")
	green.Fprintf(w, "✓ Space %s (%s) is readable\n", space.Key, space.Name)
	fmt.Fprintf(w, "\nAuthenticated as: %s\n", cfg.Email)

	return nil
}
