// Package rename provides the rename command.
package rename

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/open-cli-collective/relink/internal/batch"
	"github.com/open-cli-collective/relink/internal/cmd/cmdutil"
	"github.com/open-cli-collective/relink/internal/config"
	"github.com/open-cli-collective/relink/internal/view"
	"github.com/open-cli-collective/relink/pkg/relink"
)

const diffContext = 3

type renameOptions struct {
	from    string
	to      string
	dir     string
	dryRun  bool
	diff    bool
	workers int

	// httpClient overrides the Confluence transport in tests.
	httpClient *http.Client
}

// NewCmdRename creates the rename command.
func NewCmdRename() *cobra.Command {
	opts := &renameOptions{}

	cmd := &cobra.Command{
		Use:   "rename <from> <to>",
		Short: "Rename a document and update every reference to it",
		Long: `Rename a document and rewrite every link, transclusion, filter, macro
parameter and element attribute that refers to it.

References that cannot be rewritten safely are reported and left alone.
Use --dry-run to see what would change without writing anything.`,
		Example: `  # Preview a rename
  relink rename "Getting Started" "Quick Start" --dry-run --diff

  # Rename inside a directory of .tid files
  relink rename Start Home --dir ./tiddlers

  # Machine-readable report
  relink rename Start Home -o json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.from, opts.to = args[0], args[1]
			cfg, err := cmdutil.LoadConfig(cmd, opts.dir)
			if err != nil {
				return err
			}
			r, err := cmdutil.Renderer(cmd, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return runRename(cmd.Context(), opts, cfg, r)
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", "", "Directory of .tid documents (overrides the configured store)")
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "n", false, "Report what would change without writing")
	cmd.Flags().BoolVar(&opts.diff, "diff", false, "Show the rewritten fields and text of each document")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Documents relinked in parallel (default from config)")

	return cmd
}

func runRename(ctx context.Context, opts *renameOptions, cfg *config.Config, r *view.Renderer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	message := fmt.Sprintf("Renamed '%s' to '%s'", opts.from, opts.to)
	st, err := cmdutil.OpenStore(cfg, message, opts.httpClient)
	if err != nil {
		return err
	}

	workers := opts.workers
	if workers <= 0 {
		workers = cfg.WorkerCount()
	}
	batchOpts := &batch.Options{
		Relink: &relink.Options{
			Settings:    cfg.Settings(),
			Definitions: cfg.DefinitionProvider(),
		},
		Workers: workers,
	}

	rep, err := batch.Plan(ctx, st, opts.from, opts.to, batchOpts)
	if err != nil {
		return fmt.Errorf("failed to plan rename: %w", err)
	}

	if opts.diff && r.Format() != view.FormatJSON {
		r.RenderChangeDiffs(rep, diffContext)
	}

	if !opts.dryRun {
		if err := batch.Apply(ctx, st, rep); err != nil {
			return fmt.Errorf("failed to apply rename: %w", err)
		}
	}

	if err := r.RenderReport(rep, !opts.dryRun); err != nil {
		return err
	}
	if n := len(rep.Failures); n > 0 {
		return fmt.Errorf("%d document(s) could not be relinked", n)
	}
	return nil
}
