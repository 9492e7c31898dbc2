package configcmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/open-cli-collective/relink/internal/cmd/cmdutil"
	"github.com/open-cli-collective/relink/internal/config"
)

// NewCmdShow creates the config show command.
func NewCmdShow() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long:  `Display the current relink configuration with value source indicators.`,
		Example: `  # Show current config
  relink config show`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			noColor, _ := cmd.Flags().GetBool("no-color")
			return runShow(cmd.OutOrStdout(), noColor, cmdutil.ConfigPath(cmd))
		},
	}

	return cmd
}

func runShow(w io.Writer, noColor bool, configPath string) error {
	if noColor {
		color.NoColor = true
	}

	// Load file config (may not exist)
	fileCfg, fileErr := config.Load(configPath)
	if fileErr != nil {
		fileCfg = &config.Config{}
	}

	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	bold := color.New(color.Bold)
	dim := color.New(color.Faint)

	printField := func(label, value, fileValue string, envVars ...string) {
		_, _ = bold.Fprintf(w, "%-12s", label+":")
		if value == "" {
			_, _ = dim.Fprintln(w, "-")
			return
		}

		display := value
		if strings.Contains(strings.ToLower(label), "token") && len(value) > 8 {
			display = value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
		}
		fmt.Fprint(w, display)

		source := "config"
		if fileErr != nil {
			source = "default"
		}
		for _, envVar := range envVars {
			if v := os.Getenv(envVar); v != "" && v == value {
				source = envVar
				break
			}
		}
		if fileValue != value && source == "config" {
			source = "default"
		}

		_, _ = dim.Fprintf(w, "  (source: %s)\n", source)
	}

	printField("Store", cfg.StoreKind(), fileCfg.Store)
	printField("Workers", strconv.Itoa(cfg.WorkerCount()), workersValue(fileCfg))
	if cfg.StoreKind() == config.StoreConfluence {
		printField("URL", cfg.URL, fileCfg.URL, "RELINK_URL", "ATLASSIAN_URL")
		printField("Email", cfg.Email, fileCfg.Email, "RELINK_EMAIL", "ATLASSIAN_EMAIL")
		printField("API Token", cfg.APIToken, fileCfg.APIToken, "RELINK_API_TOKEN", "ATLASSIAN_API_TOKEN")
		printField("Space", cfg.Space, fileCfg.Space, "RELINK_SPACE")
	} else {
		printField("Dir", cfg.Dir, fileCfg.Dir, "RELINK_DIR")
		printField("Include", strings.Join(cfg.Include, ", "), strings.Join(fileCfg.Include, ", "))
		printField("Exclude", strings.Join(cfg.Exclude, ", "), strings.Join(fileCfg.Exclude, ", "))
	}

	s := cfg.Settings()
	fmt.Fprintln(w)
	_, _ = bold.Fprintln(w, "Managed references:")
	fmt.Fprintf(w, "  fields:      %s\n", strings.Join(s.FieldNames(), ", "))
	fmt.Fprintf(w, "  operators:   %s\n", strings.Join(s.Operators, ", "))
	fmt.Fprintf(w, "  macros:      %d\n", len(s.Macros))
	fmt.Fprintf(w, "  attributes:  %d elements\n", len(s.Attributes))
	fmt.Fprintf(w, "  definitions: %d\n", len(cfg.Definitions))

	fmt.Fprintln(w)
	_, _ = dim.Fprintf(w, "Config file: %s\n", configPath)
	if fileErr != nil {
		_, _ = dim.Fprintln(w, "(file not found)")
	}

	return nil
}

func workersValue(cfg *config.Config) string {
	if cfg.Workers <= 0 {
		return ""
	}
	return strconv.Itoa(cfg.Workers)
}
