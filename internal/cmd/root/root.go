// Package root provides the root command for the relink CLI.
package root

import (
	"github.com/spf13/cobra"

	"github.com/open-cli-collective/relink/internal/cmd/cmdutil"
	"github.com/open-cli-collective/relink/internal/cmd/completion"
	"github.com/open-cli-collective/relink/internal/cmd/configcmd"
	initcmd "github.com/open-cli-collective/relink/internal/cmd/init"
	"github.com/open-cli-collective/relink/internal/cmd/rename"
	"github.com/open-cli-collective/relink/internal/cmd/scan"
	"github.com/open-cli-collective/relink/internal/version"
)

// NewCmdRoot creates the root command for relink.
func NewCmdRoot() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "relink",
		Short: "Keep references intact when a document is renamed",
		Long: `relink renames a wiki document and rewrites every reference to it.

Links, transclusions, filters, macro parameters, widget attributes and
list fields are updated across wikitext, markdown and HTML documents.
References that cannot hold the new title are reported, not mangled.

Get started by running: relink init`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Version,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cmdutil.WithLogger(cmd, verbose)
		},
	}

	// Global flags
	cmd.PersistentFlags().StringP("config", "c", "", "config file (default: ~/.config/relink/config.yml)")
	cmd.PersistentFlags().StringP("output", "o", "table", "output format: table, json, plain")
	cmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every document visited")

	cmd.SetVersionTemplate("relink version {{.Version}} (commit: " + version.Commit + ", built: " + version.Date + ")\n")

	cmd.AddCommand(initcmd.NewCmdInit())
	cmd.AddCommand(rename.NewCmdRename())
	cmd.AddCommand(scan.NewCmdScan())
	cmd.AddCommand(configcmd.NewCmdConfig())
	cmd.AddCommand(completion.NewCmdCompletion())

	return cmd
}
