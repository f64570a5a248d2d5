package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mandelsoft/vfs/pkg/memoryfs"

	"go.hackfix.me/portcullis/app/config"
	actx "go.hackfix.me/portcullis/app/context"
	aerrors "go.hackfix.me/portcullis/app/errors"
	"go.hackfix.me/portcullis/cli"
	"go.hackfix.me/portcullis/db"
	"go.hackfix.me/portcullis/db/queries"
)

// DBFileName is the name of the rule database file within the data directory.
const DBFileName = "portcullis.db"

// App is the application.
type App struct {
	name string
	ctx  *actx.Context
	cli  *cli.CLI
	// the logging level is set via the CLI, if the app was initialized with the
	// WithLogger option.
	logLevel *slog.LevelVar
	logColor bool
}

// New initializes a new application. configFile and dataDir are the default
// paths of the configuration file and the data directory, which can be
// overridden on the command line.
func New(name, configFile, dataDir string, opts ...Option) (*App, error) {
	version, err := actx.GetVersion()
	if err != nil {
		return nil, err
	}

	defaultCtx := &actx.Context{
		Ctx:     context.Background(),
		FS:      memoryfs.New(),
		Logger:  slog.Default(),
		TimeNow: time.Now,
		Stdin:   strings.NewReader(""),
		Stdout:  io.Discard,
		Stderr:  io.Discard,
		Version: version,
	}
	app := &App{name: name, ctx: defaultCtx}

	for _, opt := range opts {
		opt(app)
	}

	if app.logLevel != nil {
		app.logLevel.Set(slog.LevelInfo)
		app.ctx.Logger = newLogger(app.ctx.Stderr, app.logLevel, app.logColor)
		slog.SetDefault(app.ctx.Logger)
	}

	ver := fmt.Sprintf("%s %s", app.name, app.ctx.Version.String())
	app.cli, err = cli.New(configFile, dataDir, ver)
	if err != nil {
		return nil, err
	}

	return app, nil
}

// Run initializes the application environment and starts execution of the
// application.
func (app *App) Run(args []string) error {
	if err := app.cli.Parse(args); err != nil {
		return err
	}

	if app.logLevel != nil {
		app.logLevel.Set(app.cli.Log.Level)
		slog.SetLogLoggerLevel(app.cli.Log.Level)
	}

	app.ctx.Config = config.NewConfig(app.ctx.FS, app.cli.ConfigFile)
	if err := app.ctx.Config.Load(); err != nil {
		return aerrors.NewWithCause("failed loading configuration", err,
			"path", app.cli.ConfigFile)
	}
	app.ctx.Config.SetDefaults()
	app.cli.ApplyConfig(app.ctx.Config)

	if err := app.initDB(); err != nil {
		return err
	}

	app.ctx.Logger.Debug("running command", "command", app.cli.Command(),
		"version_init", app.ctx.VersionInit)

	return app.cli.Execute(app.ctx)
}

func newLogger(w io.Writer, level slog.Leveler, color bool) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		NoColor:    !color,
		TimeFormat: "2006-01-02 15:04:05.000",
	}))
}

// initDB opens the rule database, unless one was provided with WithDB, and
// reads the version it was initialized with.
func (app *App) initDB() error {
	if app.ctx.DB == nil {
		dataDir := app.cli.DataDir
		if err := app.ctx.FS.MkdirAll(dataDir, 0o700); err != nil {
			return aerrors.NewWithCause("failed creating data directory", err, "path", dataDir)
		}

		dbPath := filepath.Join(dataDir, DBFileName)
		d, err := db.Open(app.ctx.Ctx, dbPath, app.ctx.TimeNow)
		if err != nil {
			return aerrors.NewWithCause("failed opening database", err, "path", dbPath)
		}
		app.ctx.DB = d
	}

	version, err := queries.Version(app.ctx.DB.NewContext(), app.ctx.DB)
	if err != nil {
		return aerrors.NewWithCause("failed reading database version", err)
	}
	app.ctx.VersionInit = version.V

	return nil
}
