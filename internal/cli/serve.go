package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"datablocks/internal/app"
	"datablocks/internal/service"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var (
		watch      []string
		noSchedule bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP tools on stdin/stdout, with scheduled persistence and file watches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs := make([]service.ImportJob, 0, len(watch))
			for _, target := range watch {
				job, err := jobFor(target, "", nil)
				if err != nil {
					return err
				}
				jobs = append(jobs, job)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return opts.withApp(func(a *app.App) error {
				return a.ServeMCP(ctx, app.ServeOptions{Watch: jobs, NoSchedule: noSchedule})
			})
		},
	}
	cmd.Flags().StringSliceVar(&watch, "watch", nil, "file to import whenever it changes (repeatable)")
	cmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "do not run the persist schedule")
	return cmd
}
