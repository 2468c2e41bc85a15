package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/henrlaas/medialib"
	"github.com/henrlaas/medialib/config"
	"github.com/henrlaas/medialib/data"
	"github.com/henrlaas/medialib/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// App carries the state shared by all commands of one invocation.
type App struct {
	configPath string
	bucketName string
	user       string
	jsonOut    bool

	cfg      *config.Config
	lib      *medialib.Library
	log      *log.Logger
	registry *prometheus.Registry
	owned    bool
}

type Option func(*App)

// WithLibrary runs every command against lib instead of building one from the config.
// The caller keeps ownership and closes it.
func WithLibrary(lib *medialib.Library) Option {
	return func(app *App) {
		app.lib = lib
	}
}

func newApp(opts ...Option) *App {
	app := &App{
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

func NewRootCommand(opts ...Option) *cobra.Command {
	return newApp(opts...).rootCommand()
}

func (app *App) rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "medialib",
		Short: "Media library CLI",
		Long: `medialib manages a virtual folder hierarchy of media files stored in an object store,
with tags, uploader and per-user favorites kept in a separate metadata index.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.teardown(context.Background())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&app.configPath, "config", "c", "", "Path to the config file")
	flags.StringVarP(&app.bucketName, "bucket", "b", data.BucketInternal.String(), "Bucket context (internal, company)")
	flags.StringVarP(&app.user, "user", "u", "", "Acting user id, overrides the configured user")
	flags.BoolVar(&app.jsonOut, "json", false, "Print results as JSON")

	rootCmd.AddCommand(newListCommand(app))
	rootCmd.AddCommand(newMkdirCommand(app))
	rootCmd.AddCommand(newUploadCommand(app))
	rootCmd.AddCommand(newMoveCommand(app))
	rootCmd.AddCommand(newRenameCommand(app))
	rootCmd.AddCommand(newRemoveCommand(app))
	rootCmd.AddCommand(newFavoriteCommand(app))
	rootCmd.AddCommand(newSweepCommand(app))

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := newApp().execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// execute runs the command tree with args and closes an owned library afterwards.
// Cobra skips the post run hooks once a command fails.
func (app *App) execute(ctx context.Context, args []string) error {
	cmd := app.rootCommand()
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if cerr := app.teardown(context.Background()); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (app *App) setup(ctx context.Context) error {
	if app.lib != nil {
		app.cfg = config.Default()
		app.log = log.Discard()
		return nil
	}

	cfg, err := config.Load(app.configPath)
	if err != nil {
		return err
	}
	app.cfg = cfg

	logger, err := cfg.Logger()
	if err != nil {
		return err
	}
	app.log = logger

	lib, err := medialib.NewFromAddresses(ctx, cfg.Storage, cfg.Metadata,
		medialib.WithLogger(logger),
		medialib.WithMetrics(app.registry),
	)
	if err != nil {
		return err
	}
	if err := lib.Open(ctx); err != nil {
		return err
	}

	app.lib = lib
	app.owned = true
	return nil
}

func (app *App) teardown(ctx context.Context) error {
	if !app.owned || app.lib == nil {
		return nil
	}
	app.owned = false
	return app.lib.Close(ctx)
}

func (app *App) bucket() (data.BucketContext, error) {
	return data.ParseBucket(app.bucketName)
}

// userID returns the acting user, the flag taking precedence over the config.
func (app *App) userID() string {
	if app.user != "" {
		return app.user
	}
	if app.cfg != nil {
		return app.cfg.User
	}
	return ""
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func parsePathArg(args []string, index int) (data.VirtualPath, error) {
	if index >= len(args) {
		return data.VirtualPath{}, nil
	}
	return data.ParsePath(args[index])
}
