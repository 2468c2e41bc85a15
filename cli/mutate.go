package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/henrlaas/medialib"
	"github.com/henrlaas/medialib/data"
	"github.com/spf13/cobra"
)

func newMkdirCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create an empty folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, err := app.bucket()
			if err != nil {
				return err
			}
			path, err := data.ParsePath(args[0])
			if err != nil {
				return err
			}
			if path.IsRoot() {
				return fmt.Errorf("%w: folder name required", data.ErrInvalidPath)
			}

			folder, err := app.lib.CreateFolder(cmd.Context(), bucket, path.Parent(), path.Base())
			if err != nil {
				return err
			}

			if app.jsonOut {
				return printJSON(cmd.OutOrStdout(), folder)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created folder '%s'\n", folder.Path)
			return nil
		},
	}
}

func newUploadCommand(app *App) *cobra.Command {
	var tags []string
	var name string
	var contentType string

	cmd := &cobra.Command{
		Use:   "upload <file> [folder]",
		Short: "Upload a local file into a folder",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, err := app.bucket()
			if err != nil {
				return err
			}
			dir, err := parsePathArg(args, 1)
			if err != nil {
				return err
			}

			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			info, err := file.Stat()
			if err != nil {
				return err
			}
			if name == "" {
				name = filepath.Base(args[0])
			}

			entry, err := app.lib.Upload(cmd.Context(), bucket, dir, &medialib.UploadFile{
				Name:        name,
				Reader:      file,
				Size:        info.Size(),
				ContentType: contentType,
				Tags:        tags,
				UploadedBy:  app.userID(),
			})
			if err != nil && entry == nil {
				return err
			}

			if app.jsonOut {
				if err := printJSON(cmd.OutOrStdout(), entry); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "uploaded '%s' (%d bytes)\n", entry.Path, entry.Size)
			}
			// A degraded upload still reports its metadata failure
			return err
		},
	}

	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag to attach, may be repeated")
	cmd.Flags().StringVar(&name, "name", "", "Name in the library, defaults to the local file name")
	cmd.Flags().StringVar(&contentType, "content-type", "", "Content type, detected from the name when empty")

	return cmd
}

func newMoveCommand(app *App) *cobra.Command {
	var resume bool

	cmd := &cobra.Command{
		Use:   "mv <path> <destination>",
		Short: "Move a file or folder to a new path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, err := app.bucket()
			if err != nil {
				return err
			}
			src, err := data.ParsePath(args[0])
			if err != nil {
				return err
			}
			dst, err := data.ParsePath(args[1])
			if err != nil {
				return err
			}

			move := app.lib.RenameOrMove
			if resume {
				move = app.lib.ResumeMove
			}
			result, err := move(cmd.Context(), bucket, src, dst)
			return printMutation(cmd, app, result, err)
		},
	}

	cmd.Flags().BoolVar(&resume, "resume", false, "Complete a move that stopped part way")

	return cmd
}

func newRenameCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <path> <name>",
		Short: "Rename a file or folder in place",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, err := app.bucket()
			if err != nil {
				return err
			}
			path, err := data.ParsePath(args[0])
			if err != nil {
				return err
			}

			result, err := app.lib.Rename(cmd.Context(), bucket, path, args[1])
			return printMutation(cmd, app, result, err)
		},
	}
}

func newRemoveCommand(app *App) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a file, or a folder with -r",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, err := app.bucket()
			if err != nil {
				return err
			}
			path, err := data.ParsePath(args[0])
			if err != nil {
				return err
			}

			result, err := app.lib.Delete(cmd.Context(), bucket, path, recursive)
			return printMutation(cmd, app, result, err)
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Delete a folder and everything below it")

	return cmd
}

// printMutation reports a mutation result, including partial results next to their error.
func printMutation(cmd *cobra.Command, app *App, result *medialib.MutationResult, err error) error {
	if result == nil {
		return err
	}

	if app.jsonOut {
		if perr := printJSON(cmd.OutOrStdout(), result); perr != nil {
			return perr
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "operation %s: %d succeeded, %d failed, %d skipped\n",
		result.OperationID, len(result.Succeeded), len(result.Failed), len(result.Skipped))
	for _, failure := range result.Failed {
		fmt.Fprintf(out, "  failed  %s\n", failure.Error())
	}
	for _, key := range result.Skipped {
		fmt.Fprintf(out, "  skipped %s\n", key)
	}
	return err
}
