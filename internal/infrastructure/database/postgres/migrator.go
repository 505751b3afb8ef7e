package postgres

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/logging"
	apperrors "github.com/jasmincar/milo-lab/pkg/errors"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// MigrationStatus describes the schema version recorded by golang-migrate.
type MigrationStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

// newMigrate binds golang-migrate to the open pool. An empty path selects the
// migrations compiled into the binary; otherwise path is a directory on disk.
// The returned instance must not be closed: that would close the pool too.
func (c *Connection) newMigrate(path string) (*migrate.Migrate, error) {
	driver, err := pgxmigrate.WithInstance(c.db, &pgxmigrate.Config{})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to create migration driver")
	}

	if path != "" {
		m, err := migrate.NewWithDatabaseInstance("file://"+path, "pgx5", driver)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to create migrate instance")
		}
		return m, nil
	}

	src, err := iofs.New(embeddedMigrations, "migrations")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to open embedded migrations")
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to create migrate instance")
	}
	return m, nil
}

// RunMigrations applies every pending migration. No pending migration is not
// an error.
func (c *Connection) RunMigrations(path string) error {
	m, err := c.newMigrate(path)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		version, _, _ := m.Version()
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError,
			fmt.Sprintf("failed to run migrations (current version: %d)", version))
	}

	status, err := statusOf(m)
	if err != nil {
		c.logger.Warn("Failed to get migration version", logging.Err(err))
	}
	c.logger.Info("Database migrations completed",
		logging.Int64("version", int64(status.Version)),
		logging.Bool("dirty", status.Dirty),
	)
	return nil
}

// RollbackMigrations reverts the given number of steps.
func (c *Connection) RollbackMigrations(path string, steps int) error {
	if steps <= 0 {
		return apperrors.InvalidParam(fmt.Sprintf("steps must be greater than 0, got %d", steps))
	}

	m, err := c.newMigrate(path)
	if err != nil {
		return err
	}
	if err := m.Steps(-steps); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return apperrors.InvalidState("no migrations to roll back")
		}
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError,
			fmt.Sprintf("failed to rollback %d step(s)", steps))
	}
	return nil
}

// MigrationStatus reports the applied version. A fresh database reports zero.
func (c *Connection) MigrationStatus(path string) (MigrationStatus, error) {
	m, err := c.newMigrate(path)
	if err != nil {
		return MigrationStatus{}, err
	}
	return statusOf(m)
}

func statusOf(m *migrate.Migrate) (MigrationStatus, error) {
	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return MigrationStatus{}, nil
		}
		return MigrationStatus{}, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to get migration version")
	}
	return MigrationStatus{Version: version, Dirty: dirty}, nil
}

//Personal.AI order the ending
