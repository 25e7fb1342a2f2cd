package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agrodash/backend/internal/infrastructure/config"
	"github.com/agrodash/backend/internal/infrastructure/logger"
	"github.com/agrodash/backend/internal/infrastructure/migration"
	"github.com/agrodash/backend/migrations"
)

const defaultMigrationsDir = "migrations"

var errDownNotConfirmed = errors.New("down drops every projection input table; rerun with --confirm")

type migrateFlags struct {
	path     string
	logLevel string
	confirm  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &migrateFlags{}
	root := &cobra.Command{
		Use:   "migrate",
		Short: "AgroDash database migrations",
		Long: `Apply and inspect the projection input schema.

Connection settings come from AGRODASH_DATABASE_* environment variables
or config.yaml. Without --path the migrations compiled into the binary are used.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&f.path, "path", "", "migrations directory (default: embedded; create and list use ./migrations)")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(
		schemaCmd(f, "up", "Apply all pending migrations", cobra.NoArgs,
			func(m *migration.Migrator, _ []string, _ *zap.Logger) error { return m.Up() }),
		downCmd(f),
		schemaCmd(f, "step <n>", "Apply n migrations (positive=up, negative=down)", numericArg(parseSteps),
			func(m *migration.Migrator, args []string, _ *zap.Logger) error {
				n, err := parseSteps(args[0])
				if err != nil {
					return err
				}
				return m.Steps(n)
			}),
		schemaCmd(f, "goto <version>", "Migrate to a specific version", numericArg(parseVersion),
			func(m *migration.Migrator, args []string, _ *zap.Logger) error {
				v, err := parseVersion(args[0])
				if err != nil {
					return err
				}
				return m.GoTo(v)
			}),
		schemaCmd(f, "force <version>", "Set the version without running SQL (clears dirty state)", numericArg(parseVersion),
			func(m *migration.Migrator, args []string, _ *zap.Logger) error {
				v, err := parseVersion(args[0])
				if err != nil {
					return err
				}
				return m.Force(int(v))
			}),
		statusCmd(f),
		createCmd(f),
		listCmd(f),
	)
	return root
}

type schemaOp func(m *migration.Migrator, args []string, log *zap.Logger) error

// schemaCmd builds a subcommand that runs op against a connected migrator.
func schemaCmd(f *migrateFlags, use, short string, args cobra.PositionalArgs, op schemaOp) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, a []string) error {
			return withMigrator(cmd.Context(), f, func(m *migration.Migrator, log *zap.Logger) error {
				return op(m, a, log)
			})
		},
	}
}

func downCmd(f *migrateFlags) *cobra.Command {
	cmd := schemaCmd(f, "down", "Roll back all migrations", cobra.NoArgs,
		func(m *migration.Migrator, _ []string, _ *zap.Logger) error { return m.Down() })
	run := cmd.RunE
	cmd.RunE = func(c *cobra.Command, args []string) error {
		if !f.confirm {
			return errDownNotConfirmed
		}
		return run(c, args)
	}
	cmd.Flags().BoolVar(&f.confirm, "confirm", false, "confirm dropping every table")
	return cmd
}

func statusCmd(f *migrateFlags) *cobra.Command {
	cmd := schemaCmd(f, "status", "Show applied version and pending count", cobra.NoArgs,
		func(m *migration.Migrator, _ []string, log *zap.Logger) error {
			s, err := m.Status()
			if err != nil {
				return err
			}
			log.Info("Schema status",
				zap.Uint("version", s.Version),
				zap.Bool("dirty", s.Dirty),
				zap.Int("pending", s.Pending),
			)
			return nil
		})
	cmd.Aliases = []string{"version"}
	return cmd
}

func createCmd(f *migrateFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> [description]",
		Short: "Create the next numbered migration pair",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := ""
			if len(args) > 1 {
				description = args[1]
			}
			mf, err := migration.CreateMigration(f.dir(), args[0], description)
			if err != nil {
				return fmt.Errorf("create migration: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", mf.UpPath, mf.DownPath)
			return nil
		},
	}
}

func listCmd(f *migrateFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				files []migration.MigrationFile
				err   error
			)
			if f.path == "" {
				files, err = migration.ListMigrationsFS(migrations.Files, "")
			} else {
				files, err = migration.ListMigrations(f.path)
			}
			if err != nil {
				return fmt.Errorf("list migrations: %w", err)
			}
			printMigrations(cmd.OutOrStdout(), files)
			return nil
		},
	}
}

func printMigrations(w io.Writer, files []migration.MigrationFile) {
	for _, mf := range files {
		fmt.Fprintf(w, "  - %s\n", mf.BaseName())
	}
	fmt.Fprintf(w, "%d migrations\n", len(files))
}

func (f *migrateFlags) dir() string {
	if f.path == "" {
		return defaultMigrationsDir
	}
	return f.path
}

// withMigrator opens the postgres database from configuration and hands a
// migrator over the selected source to fn.
func withMigrator(ctx context.Context, f *migrateFlags, fn func(*migration.Migrator, *zap.Logger) error) error {
	log, err := logger.New(&logger.Config{
		Level:      f.logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
		Service:    "agrodash-migrate",
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync(log) }()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("SQL migrations target postgres, got driver %q; sqlite databases are created by the server", cfg.Database.Driver)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	var m *migration.Migrator
	if f.path == "" {
		m, err = migration.New(db, migrations.Files, log)
	} else {
		m, err = migration.NewFromDir(db, f.path, log)
	}
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	return fn(m, log)
}

// numericArg rejects malformed arguments before any connection is opened.
func numericArg[T int | uint](parse func(string) (T, error)) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(1)(cmd, args); err != nil {
			return err
		}
		_, err := parse(args[0])
		return err
	}
}

func parseSteps(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid step count %q", arg)
	}
	return n, nil
}

func parseVersion(arg string) (uint, error) {
	v, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q", arg)
	}
	return uint(v), nil
}
