package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"datablocks/internal/app"
	"datablocks/internal/domain"
)

func newPathCommand(opts *rootOptions) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:     "path",
		Short:   "Show the cheapest converter chain between two storage formats",
		Example: "  datablocks path --from memory:records_list --to database:database_table",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := domain.ParseStorageFormat(from)
			if err != nil {
				return err
			}
			tgt, err := domain.ParseStorageFormat(to)
			if err != nil {
				return err
			}
			return opts.withApp(func(a *app.App) error {
				path, err := a.Lookup().GetLowestCostPath(src, tgt, a.Placement().AvailableTypes())
				if err != nil {
					return fmt.Errorf("%s → %s: %w", src, tgt, err)
				}
				out := cmd.OutOrStdout()
				if path.Len() == 0 {
					fmt.Fprintln(out, "already in the target format (cost 0)")
					return nil
				}
				for i, e := range path.Edges {
					fmt.Fprintf(out, "%d. %s: %s → %s (%s)\n", i+1, e.Converter.Name(), e.Source, e.Target, e.Cost)
				}
				fmt.Fprintf(out, "total cost %d\n", path.TotalCost())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "source storage format, type:format")
	cmd.Flags().StringVar(&to, "to", "", "target storage format, type:format")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newPersistCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "persist",
		Short: "Realize every block onto the persist database storage once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app.App) error {
				if a.Persister == nil {
					return errors.New("no database storage configured to persist to")
				}
				res, err := a.Persister.RunOnce(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
}
