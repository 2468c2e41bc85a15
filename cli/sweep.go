package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/henrlaas/medialib"
	"github.com/henrlaas/medialib/data"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newSweepCommand(app *App) *cobra.Command {
	var dryRun bool
	var all bool
	var watch bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Reconcile objects with metadata rows",
		Long: `Compare every object of a bucket with its metadata rows. Rows without an object are
removed together with their favorites, objects without a row are reported.
With --watch the sweep repeats at the configured interval and metrics are served over HTTP.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			buckets := data.AllBuckets()
			if !all {
				bucket, err := app.bucket()
				if err != nil {
					return err
				}
				buckets = []data.BucketContext{bucket}
			}

			opts := medialib.SweepOptions{DryRun: dryRun || app.cfg.Sweep.DryRun}
			if watch {
				return runSweepWatch(cmd.Context(), app, opts, buckets)
			}

			reports := make([]*medialib.SweepReport, 0, len(buckets))
			for _, bucket := range buckets {
				report, err := app.lib.Sweep(cmd.Context(), bucket, opts)
				if err != nil {
					return err
				}
				reports = append(reports, report)
			}

			if app.jsonOut {
				return printJSON(cmd.OutOrStdout(), reports)
			}
			for _, report := range reports {
				printSweepReport(cmd, report, opts.DryRun)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only report findings")
	cmd.Flags().BoolVar(&all, "all", false, "Sweep every bucket context")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep sweeping at the configured interval and serve metrics")

	return cmd
}

func printSweepReport(cmd *cobra.Command, report *medialib.SweepReport, dryRun bool) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d objects, %d rows\n", report.Bucket, report.Objects, report.Rows)
	for _, key := range report.MissingMetadata {
		fmt.Fprintf(out, "  missing metadata  %s\n", key)
	}
	for _, key := range report.DanglingMetadata {
		fmt.Fprintf(out, "  dangling metadata %s\n", key)
	}
	if !dryRun {
		fmt.Fprintf(out, "  purged %d, busy %d\n", len(report.Purged), len(report.Busy))
	}
}

func runSweepWatch(parent context.Context, app *App, opts medialib.SweepOptions, buckets []data.BucketContext) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := app.log.Named("sweep")

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              app.cfg.Metrics.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Serving metrics on '%s'", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	cancel := app.lib.StartSweeper(ctx, app.cfg.Sweep.Interval, opts, buckets...)
	defer cancel()

	logger.Info("Sweeping %v every %s", buckets, app.cfg.Sweep.Interval)

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if serr := server.Shutdown(shutdownCtx); serr != nil && err == nil {
		err = serr
	}
	return err
}
