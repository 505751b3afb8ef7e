package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jasmincar/milo-lab/internal/config"
	"github.com/jasmincar/milo-lab/internal/infrastructure/database/postgres"
	"github.com/jasmincar/milo-lab/pkg/errors"
)

// NewMigrateCmd creates the migrate command group.
func NewMigrateCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
		Long: "Applies, rolls back or reports the PostgreSQL schema migrations. Without\n" +
			"--path the migrations compiled into the binary are used.",
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "migrations directory (default: config or embedded)")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConnection(cmd, func(conn *postgres.Connection, dir string) error {
				if err := conn.RunMigrations(dir); err != nil {
					return err
				}
				return printStatus(cmd, conn, dir)
			}, path)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return errors.InvalidParam("--steps must be at least 1")
			}
			return withConnection(cmd, func(conn *postgres.Connection, dir string) error {
				if err := conn.RollbackMigrations(dir, steps); err != nil {
					return err
				}
				return printStatus(cmd, conn, dir)
			}, path)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConnection(cmd, func(conn *postgres.Connection, dir string) error {
				return printStatus(cmd, conn, dir)
			}, path)
		},
	}

	cmd.AddCommand(up, down, status)
	return cmd
}

// withConnection opens the configured PostgreSQL database for fn. The flag
// path wins over database.postgres.migration_path.
func withConnection(cmd *cobra.Command, fn func(conn *postgres.Connection, dir string) error, path string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	db := cliCtx.Config.Database
	if db.Driver != config.DriverPostgres {
		return errors.InvalidState("migrations apply to the postgres driver only").
			WithDetail("driver=" + db.Driver)
	}
	if path == "" {
		path = db.Postgres.MigrationPath
	}

	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	conn, err := postgres.NewConnection(ctx, db.Postgres, cliCtx.Logger.Named("postgres"))
	if err != nil {
		return err
	}
	defer conn.Close()
	return runWithContext(ctx, func() error { return fn(conn, path) })
}

// runWithContext runs fn, which does not take a context, and gives up when
// ctx ends first.
func runWithContext(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func printStatus(cmd *cobra.Command, conn *postgres.Connection, dir string) error {
	st, err := conn.MigrationStatus(dir)
	if err != nil {
		return err
	}
	return PrintResult(cmd, migrationView(st))
}

type migrationView postgres.MigrationStatus

func (v migrationView) String() string {
	if v.Version == 0 {
		return "no migration applied"
	}
	s := fmt.Sprintf("schema version %d", v.Version)
	if v.Dirty {
		s += " (dirty)"
	}
	return s
}

func (v migrationView) TableHeaders() []string { return []string{"version", "dirty"} }

func (v migrationView) TableRows() [][]string {
	return [][]string{{strconv.FormatUint(uint64(v.Version), 10), strconv.FormatBool(v.Dirty)}}
}

//Personal.AI order the ending
