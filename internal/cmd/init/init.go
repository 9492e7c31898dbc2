// Package init provides the init command for relink.
package init

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/open-cli-collective/relink/api"
	"github.com/open-cli-collective/relink/internal/cmd/cmdutil"
	"github.com/open-cli-collective/relink/internal/config"
	"github.com/open-cli-collective/relink/internal/store"
)

type initOptions struct {
	store    string
	dir      string
	url      string
	email    string
	space    string
	noVerify bool
}

// NewCmdInit creates the init command.
func NewCmdInit() *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize relink configuration",
		Long: `Initialize relink with the documents it should keep linked.

Documents live either in a directory of .tid files or in a Confluence
Cloud space. The configuration is saved to ~/.config/relink/config.yml.
Managed fields, macros and attributes already in the file are kept.

To generate a Confluence API token:
  1. Go to https://id.atlassian.com/manage-profile/security/api-tokens
  2. Click "Create API token"
  3. Copy the token (it won't be shown again)`,
		Example: `  # Interactive setup
  relink init

  # Directory store
  relink init --store dir --dir ./tiddlers

  # Pre-populate Confluence settings
  relink init --store confluence --url https://mycompany.atlassian.net --space DOCS`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.Context(), cmdutil.ConfigPath(cmd), opts)
		},
	}

	cmd.Flags().StringVar(&opts.store, "store", "", "Store kind: dir or confluence")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "Directory of .tid documents")
	cmd.Flags().StringVar(&opts.url, "url", "", "Confluence URL (e.g., https://mycompany.atlassian.net)")
	cmd.Flags().StringVar(&opts.email, "email", "", "Your Atlassian account email")
	cmd.Flags().StringVar(&opts.space, "space", "", "Confluence space key")
	cmd.Flags().BoolVar(&opts.noVerify, "no-verify", false, "Skip store verification")

	return cmd
}

func runInit(ctx context.Context, configPath string, opts *initOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := &config.Config{}
	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		err := huh.NewConfirm().
			Title("Configuration already exists").
			Description(fmt.Sprintf("Overwrite %s?", configPath)).
			Value(&overwrite).
			Run()
		if err != nil {
			return err
		}
		if !overwrite {
			fmt.Println("Initialization cancelled.")
			return nil
		}
		if existing, err := config.Load(configPath); err == nil {
			cfg = existing
		}
	}

	prefill(cfg, opts)
	if err := buildForm(cfg).Run(); err != nil {
		return err
	}

	return finishInit(ctx, cfg, configPath, opts.noVerify, nil, os.Stdout)
}

func prefill(cfg *config.Config, opts *initOptions) {
	if opts.store != "" {
		cfg.Store = opts.store
	}
	if cfg.Store == "" {
		cfg.Store = config.StoreDir
	}
	if opts.dir != "" {
		cfg.Dir = opts.dir
	}
	if opts.url != "" {
		cfg.URL = opts.url
	}
	if opts.email != "" {
		cfg.Email = opts.email
	}
	if opts.space != "" {
		cfg.Space = opts.space
	}
}

func required(what string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

func buildForm(cfg *config.Config) *huh.Form {
	isDir := func() bool { return cfg.Store == config.StoreDir }

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where do your documents live?").
				Options(
					huh.NewOption("A directory of .tid files", config.StoreDir),
					huh.NewOption("A Confluence Cloud space", config.StoreConfluence),
				).
				Value(&cfg.Store),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("Directory").
				Description("Folder holding your .tid documents").
				Placeholder("./tiddlers").
				Value(&cfg.Dir).
				Validate(required("directory")),
		).WithHideFunc(func() bool { return !isDir() }),

		huh.NewGroup(
			huh.NewInput().
				Title("Confluence URL").
				Description("Your Confluence Cloud instance URL").
				Placeholder("https://mycompany.atlassian.net").
				Value(&cfg.URL).
				Validate(required("URL")),

			huh.NewInput().
				Title("Email").
				Description("Your Atlassian account email").
				Placeholder("you@example.com").
				Value(&cfg.Email).
				Validate(required("email")),

			huh.NewInput().
				Title("API Token").
				Description("Generate at: id.atlassian.com/manage-profile/security/api-tokens").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.APIToken).
				Validate(required("API token")),

			huh.NewInput().
				Title("Space").
				Description("Key of the space whose pages are relinked").
				Placeholder("DOCS").
				Value(&cfg.Space).
				Validate(required("space")),
		).WithHideFunc(isDir),
	)
}

// finishInit validates, verifies and saves a filled-in configuration.
func finishInit(ctx context.Context, cfg *config.Config, configPath string, noVerify bool, httpClient *http.Client, w io.Writer) error {
	cfg.NormalizeURL()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if !noVerify {
		fmt.Fprint(w, "Verifying store... ")
		summary, err := verifyStore(ctx, cfg, httpClient)
		if err != nil {
			fmt.Fprintln(w, "failed!")
			return fmt.Errorf("store verification failed: %w", err)
		}
		fmt.Fprintf(w, "success! (%s)\n", summary)
	}

	if err := cfg.Save(configPath); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nConfiguration saved to %s\n", configPath)
	fmt.Fprintln(w, "\nYou're all set! Try running:")
	fmt.Fprintln(w, "  relink rename <from> <to> --dry-run")
	return nil
}

func verifyStore(ctx context.Context, cfg *config.Config, httpClient *http.Client) (string, error) {
	if cfg.StoreKind() == config.StoreConfluence {
		return verifyConnection(ctx, cfg, httpClient)
	}
	st, err := store.NewDirStore(cfg.Dir, cfg.Include, cfg.Exclude)
	if err != nil {
		return "", err
	}
	titles, err := st.List(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d documents", len(titles)), nil
}

func verifyConnection(ctx context.Context, cfg *config.Config, httpClient *http.Client) (string, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	client := api.NewClient(cfg.URL, cfg.Email, cfg.APIToken, api.WithHTTPClient(httpClient))

	space, err := client.GetSpaceByKey(ctx, cfg.Space)
	if err != nil {
		var apiErr *api.ErrorResponse
		if !errors.As(err, &apiErr) {
			return "", err
		}
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			return "", fmt.Errorf("authentication failed - check your email and API token")
		case http.StatusForbidden:
			return "", fmt.Errorf("access denied - check your permissions")
		case http.StatusNotFound:
			return "", fmt.Errorf("space %s not found", cfg.Space)
		}
		return "", fmt.Errorf("unexpected status code: %d", apiErr.StatusCode)
	}
	return fmt.Sprintf("space %s", space.Name), nil
}
