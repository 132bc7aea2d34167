// Package cli is the datablocks command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"datablocks/internal/app"
	"datablocks/internal/config"
	"datablocks/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCommand builds the datablocks command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "datablocks",
		Short:         "Immutable data blocks with lineage, realized across memory, databases and files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ./datablocks.yaml, then the data directory)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level")

	root.AddCommand(
		newServeCommand(opts),
		newImportCommand(opts),
		newBlocksCommand(opts),
		newRealizeCommand(opts),
		newAliasCommand(opts),
		newPathCommand(opts),
		newPersistCommand(opts),
		newSourcesCommand(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// withApp loads configuration, builds the app, runs fn and closes the app.
func (o *rootOptions) withApp(fn func(a *app.App) error) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
