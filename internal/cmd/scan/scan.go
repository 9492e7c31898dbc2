// Package scan provides the scan command, which relinks one file without a
// configured store.
package scan

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/open-cli-collective/relink/internal/cmd/cmdutil"
	"github.com/open-cli-collective/relink/internal/config"
	"github.com/open-cli-collective/relink/internal/store"
	"github.com/open-cli-collective/relink/pkg/relink"
)

// typesByExt guesses a content type from a file extension.
var typesByExt = map[string]string{
	".md":       "text/x-markdown",
	".markdown": "text/x-markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".xhtml":    store.StorageFormat,
	".xml":      store.StorageFormat,
}

type scanOptions struct {
	file        string
	from        string
	to          string
	contentType string
	check       bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// NewCmdScan creates the scan command.
func NewCmdScan() *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan <file>",
		Short: "Relink a single file and print the result",
		Long: `Relink the references in one file and print the rewritten content to
stdout. A report of every rewritten or unrewritable reference goes to stderr.

.tid files are read with their fields; other files are treated as a body
whose type comes from --type or the file extension. Use - to read stdin.`,
		Example: `  # Preview a rename in one tiddler
  relink scan Home.tid --from Start --to "Getting Started"

  # Markdown from stdin
  cat notes.md | relink scan - --type text/x-markdown --from Start --to Home

  # Fail if the file refers to a title
  relink scan page.html --from Start --to Home --check`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.file = args[0]
			opts.stdin = cmd.InOrStdin()
			opts.stdout = cmd.OutOrStdout()
			opts.stderr = cmd.ErrOrStderr()
			cfg, err := config.LoadWithEnv(cmdutil.ConfigPath(cmd))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return runScan(cmd.Context(), opts, cfg)
		},
	}

	cmd.Flags().StringVarP(&opts.from, "from", "f", "", "Title being renamed (required)")
	cmd.Flags().StringVarP(&opts.to, "to", "t", "", "New title (required)")
	cmd.Flags().StringVar(&opts.contentType, "type", "", "Content type of the body (default: from extension)")
	cmd.Flags().BoolVar(&opts.check, "check", false, "Only report; exit non-zero if the file needs changes")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runScan(ctx context.Context, opts *scanOptions, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Managed != nil {
		if err := cfg.Managed.Validate(); err != nil {
			return fmt.Errorf("invalid config: managed: %w", err)
		}
	}

	data, err := readInput(opts)
	if err != nil {
		return err
	}

	doc := &store.Document{Fields: map[string]string{}, Text: data}
	isTid := strings.EqualFold(filepath.Ext(opts.file), ".tid")
	if isTid {
		doc, err = store.ParseTid(data)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", opts.file, err)
		}
	}
	if opts.contentType != "" {
		doc.Type = opts.contentType
	} else if !isTid {
		doc.Type = typesByExt[strings.ToLower(filepath.Ext(opts.file))]
	}

	logger := zerolog.Ctx(ctx).With().Str("file", opts.file).Logger()
	res, err := relink.RelinkDocument(doc.Relink(), opts.from, opts.to, &relink.Options{
		Settings:    cfg.Settings(),
		Definitions: cfg.DefinitionProvider(),
		Log:         &logger,
	})
	if err != nil {
		return fmt.Errorf("failed to relink %s: %w", opts.file, err)
	}

	if res != nil {
		for _, line := range res.Entry.Report() {
			fmt.Fprintln(opts.stderr, line)
		}
	}
	if opts.check {
		if res != nil && res.Changed() {
			return fmt.Errorf("%s refers to '%s'", opts.file, strings.TrimSpace(opts.from))
		}
		return nil
	}

	out := doc.Clone()
	if res != nil {
		for name, value := range res.Fields {
			out.Fields[name] = value
		}
		if res.TextChanged {
			out.Text = res.Text
		}
	}
	if isTid {
		fmt.Fprint(opts.stdout, store.FormatTid(out))
	} else {
		fmt.Fprint(opts.stdout, out.Text)
	}
	if res != nil && res.Entry.Failed() {
		return fmt.Errorf("some references to '%s' could not be relinked", strings.TrimSpace(opts.from))
	}
	return nil
}

func readInput(opts *scanOptions) (string, error) {
	if opts.file == "-" {
		data, err := io.ReadAll(opts.stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(opts.file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(data), nil
}
