package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"datablocks/internal/app"
	"datablocks/internal/ingest"
	"datablocks/internal/service"
)

// jobFor builds an import job from a file path or URL. An explicit source
// type wins over detection; set entries override the detected config.
func jobFor(target, sourceType string, set map[string]string) (service.ImportJob, error) {
	cfg := ingest.SourceConfig{}
	if target != "" {
		detected, detectedCfg, err := ingest.Detect(target)
		switch {
		case err == nil:
			cfg = detectedCfg
			if sourceType == "" {
				sourceType = detected
			}
		case sourceType == "":
			return service.ImportJob{}, err
		}
	}
	for k, v := range set {
		cfg[k] = v
	}
	if sourceType == "" {
		return service.ImportJob{}, errors.New("a target or --source is required")
	}
	return service.ImportJob{SourceType: sourceType, Config: cfg}, nil
}

const importExample = `  datablocks import orders.csv --alias orders
  datablocks import https://api.example.com/items --set dataPath=data.items
  datablocks import --source database --set url=postgres://u:p@host/db --set table=events`

func newImportCommand(opts *rootOptions) *cobra.Command {
	var (
		sourceType string
		set        map[string]string
		alias      string
		createdBy  string
		watch      bool
		memoryOnly bool
		transforms string
	)
	cmd := &cobra.Command{
		Use:     "import [file|url]",
		Short:   "Load a file, URL or database table into a new block",
		Example: importExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var target string
			if len(args) == 1 {
				target = args[0]
			}
			job, err := jobFor(target, sourceType, set)
			if err != nil {
				return err
			}
			job.Alias = alias
			if transforms != "" {
				if err := json.Unmarshal([]byte(transforms), &job.Transforms); err != nil {
					return fmt.Errorf("parse --transforms: %w", err)
				}
			}
			job.CreatedBy = createdBy
			if job.CreatedBy == "" {
				job.CreatedBy = "cli.import." + job.SourceType
			}

			return opts.withApp(func(a *app.App) error {
				if !memoryOnly {
					// Memory realizations end with this process.
					if target, err := a.Config().PersistStorage(); err == nil {
						job.PersistTo = &target
					}
				}
				block, err := a.Importer.Import(cmd.Context(), job)
				if err != nil {
					return err
				}
				if err := printJSON(cmd, block); err != nil {
					return err
				}
				if !watch {
					return nil
				}

				ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer cancel()
				if err := a.Importer.Watch(ctx, []service.ImportJob{job}); err != nil {
					return fmt.Errorf("watch: %w", err)
				}
				<-ctx.Done()
				a.Importer.Stop()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sourceType, "source", "", "source type (default: detected from the target)")
	cmd.Flags().StringToStringVar(&set, "set", nil, "source config entry key=value (repeatable)")
	cmd.Flags().StringVar(&alias, "alias", "", "alias to point at the new block")
	cmd.Flags().StringVar(&createdBy, "created-by", "", "producer label recorded on the block")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep running and re-import whenever the file changes")
	cmd.Flags().StringVar(&transforms, "transforms", "", `JSON array of {"type","config"} transforms applied before the block is created`)
	cmd.Flags().BoolVar(&memoryOnly, "memory-only", false, "skip writing the block to the persist storage")
	return cmd
}

func newSourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List import source types and their configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd, ingest.ListSources())
		},
	}
}
