package app

import (
	"context"
	"fmt"

	mcpserver "datablocks/internal/mcp"
	"datablocks/internal/service"
)

// ServeOptions controls the long-running server mode.
type ServeOptions struct {
	// Watch lists file imports to re-run when their files change.
	Watch []service.ImportJob
	// NoSchedule skips the persist cron even when persist.schedule is set.
	NoSchedule bool
}

// ServeMCP runs the MCP server on stdin/stdout until ctx ends or stdin
// closes. The persister schedule and file watches run alongside it.
func (a *App) ServeMCP(ctx context.Context, opts ServeOptions) error {
	log := a.logger.WithField("action", "serve")

	if a.Persister != nil && a.cfg.Persist.Schedule != "" && !opts.NoSchedule {
		if err := a.Persister.Start(ctx, a.cfg.Persist.Schedule); err != nil {
			return err
		}
		defer a.Persister.Stop(context.Background())
	}

	if target, err := a.cfg.PersistStorage(); err == nil {
		for i := range opts.Watch {
			if opts.Watch[i].PersistTo == nil {
				opts.Watch[i].PersistTo = &target
			}
		}
	}
	if len(opts.Watch) > 0 {
		if err := a.Importer.Watch(ctx, opts.Watch); err != nil {
			return fmt.Errorf("watch imports: %w", err)
		}
		defer a.Importer.Stop()
	}

	srv := mcpserver.New(mcpserver.Deps{
		Blocks:    a.Blocks,
		Manager:   a.Manager,
		Importer:  a.Importer,
		Persister: a.Persister,
		Lookup:    a.Lookup(),
		Placement: a.Placement,
		Storage:   a.Storage,
		Logger:    a.logger,
	})

	log.Info("starting MCP stdio server")
	return srv.ServeStdio(ctx)
}
