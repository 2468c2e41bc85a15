package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/henrlaas/medialib"
	"github.com/henrlaas/medialib/data"
	"github.com/spf13/cobra"
)

type listFlags struct {
	search    string
	fileTypes []string
	favorites bool
	sortBy    string
	desc      bool
	page      int
	pageSize  int
	from      string
	to        string
}

func newListCommand(app *App) *cobra.Command {
	flags := &listFlags{}

	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List the contents of a folder",
		Long: `List the folders and files directly below path, filtered, sorted and paginated.
Search matches folders and files, all other filters only apply to files.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, app, flags, args)
		},
	}

	cmd.Flags().StringVarP(&flags.search, "search", "s", "", "Case-insensitive name filter")
	cmd.Flags().StringSliceVarP(&flags.fileTypes, "type", "t", nil, "File type filter, a category (image, video, audio, text, document, archive) or MIME pattern")
	cmd.Flags().BoolVarP(&flags.favorites, "favorites", "f", false, "Only show files favorited by the acting user")
	cmd.Flags().StringVar(&flags.sortBy, "sort", "name", "Sort key (name, size, modified, type)")
	cmd.Flags().BoolVar(&flags.desc, "desc", false, "Sort descending")
	cmd.Flags().IntVar(&flags.page, "page", 1, "Page number, starting at 1")
	cmd.Flags().IntVar(&flags.pageSize, "page-size", 0, "Items per page, 0 shows all")
	cmd.Flags().StringVar(&flags.from, "from", "", "Only files created on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.to, "to", "", "Only files created on or before this date (YYYY-MM-DD)")

	return cmd
}

func (lf *listFlags) options() (medialib.QueryOptions, error) {
	opts := medialib.QueryOptions{
		Search:        lf.search,
		FileTypes:     lf.fileTypes,
		FavoritesOnly: lf.favorites,
		Page:          lf.page,
		PageSize:      lf.pageSize,
	}

	sortBy, err := medialib.ParseSortKey(lf.sortBy)
	if err != nil {
		return opts, err
	}
	opts.SortBy = sortBy
	opts.SortDir = medialib.SortAsc
	if lf.desc {
		opts.SortDir = medialib.SortDesc
	}

	if lf.from != "" || lf.to != "" {
		opts.DateRange = &medialib.DateRange{}
		if lf.from != "" {
			if opts.DateRange.From, err = time.Parse(time.DateOnly, lf.from); err != nil {
				return opts, fmt.Errorf("invalid --from date: %w", err)
			}
		}
		if lf.to != "" {
			to, err := time.Parse(time.DateOnly, lf.to)
			if err != nil {
				return opts, fmt.Errorf("invalid --to date: %w", err)
			}
			// Inclusive, covering the whole day
			opts.DateRange.To = to.Add(24*time.Hour - time.Nanosecond)
		}
	}

	return opts, nil
}

func runList(cmd *cobra.Command, app *App, flags *listFlags, args []string) error {
	bucket, err := app.bucket()
	if err != nil {
		return err
	}
	path, err := parsePathArg(args, 0)
	if err != nil {
		return err
	}
	opts, err := flags.options()
	if err != nil {
		return err
	}

	listing, err := app.lib.ListDirectory(cmd.Context(), app.userID(), bucket, path)
	if err != nil {
		return err
	}
	result := medialib.Apply(listing, opts)

	for _, warning := range listing.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s '%s'\n", warning.Kind, warning.Key)
	}

	if app.jsonOut {
		return printJSON(cmd.OutOrStdout(), result)
	}
	return printItems(cmd.OutOrStdout(), result)
}

func printItems(w io.Writer, result *medialib.QueryResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tNAME\tSIZE\tMODIFIED\tFAV")

	for _, item := range result.Items {
		if item.Kind == data.ItemFolder {
			fmt.Fprintf(tw, "%s\t%s/\t-\t-\t\n", item.Kind, item.Name())
			continue
		}

		file := item.File
		fav := ""
		if file.Favorited {
			fav = "*"
		}
		name := file.Name
		if file.Degraded {
			name += " (no metadata)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", file.ContentType, name, file.Size, file.CreatedAt.Format(time.DateTime), fav)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "page %d/%d, %d items\n", result.Page, result.TotalPages, result.TotalCount)
	return err
}
