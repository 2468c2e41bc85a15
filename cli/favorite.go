package cli

import (
	"fmt"

	"github.com/henrlaas/medialib/data"
	"github.com/spf13/cobra"
)

func newFavoriteCommand(app *App) *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   "fav [path]",
		Short: "Mark a file as favorite, or list favorites without a path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, err := app.bucket()
			if err != nil {
				return err
			}
			userID := app.userID()
			if userID == "" {
				return fmt.Errorf("%w: set --user or the configured user", data.ErrInvalidUser)
			}

			if len(args) == 0 {
				paths, err := app.lib.Favorites(cmd.Context(), userID, bucket)
				if err != nil {
					return err
				}
				if app.jsonOut {
					return printJSON(cmd.OutOrStdout(), paths)
				}
				for _, path := range paths {
					fmt.Fprintln(cmd.OutOrStdout(), path)
				}
				return nil
			}

			path, err := data.ParsePath(args[0])
			if err != nil {
				return err
			}
			if err := app.lib.ToggleFavorite(cmd.Context(), userID, bucket, path, !off); err != nil {
				return err
			}

			state := "favorited"
			if off {
				state = "unfavorited"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s '%s'\n", state, path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&off, "off", false, "Remove the favorite mark instead")

	return cmd
}
