package cli

import (
	"github.com/spf13/cobra"

	"datablocks/internal/app"
	"datablocks/internal/domain"
)

func newAliasCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alias",
		Short: "Manage aliases",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <block-id> <name>",
			Short: "Point an alias at a block",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withApp(func(a *app.App) error {
					block, err := a.Blocks.GetBlock(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					alias, err := a.Manager.CreateAlias(cmd.Context(), block, args[1])
					if err != nil {
						return err
					}
					return printJSON(cmd, alias)
				})
			},
		},
		&cobra.Command{
			Use:   "get <name>",
			Short: "Resolve an alias",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withApp(func(a *app.App) error {
					block, sdb, err := a.Manager.ResolveAlias(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					return printJSON(cmd, map[string]any{"block": block, "stored": sdb})
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List aliases",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withApp(func(a *app.App) error {
					aliases, err := a.Manager.ListAliases(cmd.Context())
					if err != nil {
						return err
					}
					if aliases == nil {
						aliases = []domain.Alias{}
					}
					return printJSON(cmd, aliases)
				})
			},
		},
	)
	return cmd
}
