package cli

import (
	"github.com/spf13/cobra"

	"datablocks/internal/app"
	"datablocks/internal/domain"
	"datablocks/internal/format"
	"datablocks/internal/schema"
)

func newBlocksCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocks",
		Short: "Inspect data blocks",
	}

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List blocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app.App) error {
				blocks, err := a.Blocks.ListBlocks(cmd.Context(), all)
				if err != nil {
					return err
				}
				if blocks == nil {
					blocks = []*domain.DataBlock{}
				}
				return printJSON(cmd, blocks)
			})
		},
	}
	list.Flags().BoolVar(&all, "all", false, "include deleted blocks")

	show := &cobra.Command{
		Use:   "show <block-id>",
		Short: "Show a block with its schemas and realizations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app.App) error {
				ctx := cmd.Context()
				block, err := a.Blocks.GetBlock(ctx, args[0])
				if err != nil {
					return err
				}
				expected, err := a.Manager.ExpectedSchema(ctx, block)
				if err != nil {
					return err
				}
				realized, err := a.Manager.RealizedSchema(ctx, block)
				if err != nil {
					return err
				}
				stored, err := a.Blocks.ListStoredBlocks(ctx, block.ID())
				if err != nil {
					return err
				}
				return printJSON(cmd, struct {
					Block          *domain.DataBlock         `json:"block"`
					ExpectedSchema schema.Schema             `json:"expectedSchema"`
					RealizedSchema schema.Schema             `json:"realizedSchema"`
					Stored         []*domain.StoredDataBlock `json:"stored"`
				}{block, expected, realized, stored})
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <block-id>",
		Short: "Soft-delete a block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app.App) error {
				return a.Manager.DeleteBlock(cmd.Context(), args[0])
			})
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}

func newRealizeCommand(opts *rootOptions) *cobra.Command {
	var (
		f          string
		storageURL string
	)
	cmd := &cobra.Command{
		Use:   "realize <block-id>",
		Short: "Get or create a realization of a block in a format on a storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app.App) error {
				ctx := cmd.Context()
				target, err := a.Storage(storageURL)
				if err != nil {
					return err
				}
				block, err := a.Blocks.GetBlock(ctx, args[0])
				if err != nil {
					return err
				}
				sdb, err := a.Manager.GetOrCreateRealization(ctx, block, format.Format(f), target)
				if err != nil {
					return err
				}
				return printJSON(cmd, sdb)
			})
		},
	}
	cmd.Flags().StringVar(&f, "format", string(format.DatabaseTable), "target format")
	cmd.Flags().StringVar(&storageURL, "storage", "", "target storage URL; memory:// is this process (default: first configured storage)")
	return cmd
}
