package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/clubpataamiga/pataamiga-backend/pkg/config"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
	"github.com/clubpataamiga/pataamiga-backend/pkg/migrate"
)

type options struct {
	dir     string
	name    string
	version string
}

// offline commands only touch migration files.
var offline = map[string]func(options) error{
	"create": func(opts options) error {
		if opts.name == "" {
			return fmt.Errorf("missing -name for create")
		}
		dir := opts.dir
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.NewFile(dir, opts.name, time.Now())
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	},
	"validate": func(opts options) error {
		if err := migrate.Validate(migrate.Source(opts.dir)); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	},
}

// online commands run against the configured database.
var online = map[string]func(context.Context, *migrate.Runner, options) error{
	"up":   func(ctx context.Context, r *migrate.Runner, _ options) error { return r.Up(ctx) },
	"down": func(ctx context.Context, r *migrate.Runner, _ options) error { return r.Down(ctx) },
	"redo": func(ctx context.Context, r *migrate.Runner, _ options) error { return r.Redo(ctx) },
	"status": func(ctx context.Context, r *migrate.Runner, _ options) error {
		rows, err := r.Status(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tAPPLIED\tFILE")
		for _, row := range rows {
			fmt.Fprintf(tw, "%d\t%t\t%s\n", row.Version, row.Applied, row.File)
		}
		return tw.Flush()
	},
	"version": func(ctx context.Context, r *migrate.Runner, opts options) error {
		if opts.version == "" {
			return fmt.Errorf("missing -version for version command")
		}
		return r.To(ctx, opts.version)
	},
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: "+commandList())
	var opts options
	flag.StringVar(&opts.dir, "dir", "", "migrations directory (default: migrations embedded in the binary)")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	ctx := logg.WithFields(context.Background(), map[string]any{"cmd": *cmd, "dir": opts.dir})

	if run, ok := offline[*cmd]; ok {
		exitOnError(ctx, logg, *cmd, run(opts))
		return
	}

	run, ok := online[*cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown -cmd value %q (want %s)\n", *cmd, commandList())
		os.Exit(2)
	}

	cfg, err := config.Load()
	exitOnError(ctx, logg, "config", err)

	logg = logger.ForService("migrate", cfg.App)
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exitOnError(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	exitOnError(ctx, logg, "sql database", err)

	runner, err := migrate.NewRunner(sqlDB, migrate.Source(opts.dir), logg)
	exitOnError(ctx, logg, "goose provider", err)

	logg.Info(ctx, "migrate ready")
	if err := run(ctx, runner, opts); err != nil {
		dbClient.Close()
		exitOnError(ctx, logg, "goose "+*cmd, err)
	}
	logg.Info(ctx, "migrate done")
}

func commandList() string {
	names := make([]string, 0, len(offline)+len(online))
	for name := range offline {
		names = append(names, name)
	}
	for name := range online {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

func exitOnError(ctx context.Context, logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("%s failed", step), err)
	os.Exit(1)
}
