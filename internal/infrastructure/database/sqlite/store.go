// Package sqlite provides the embedded single-file row store and compound
// catalog used when no PostgreSQL server is configured.
package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/jasmincar/milo-lab/internal/domain/dissociation"
	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/logging"
	apperrors "github.com/jasmincar/milo-lab/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS compounds (
	cid INTEGER PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	smiles TEXT NOT NULL DEFAULT '',
	nh INTEGER,
	charge INTEGER
);

CREATE TABLE IF NOT EXISTS dissociation_constants (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cid INTEGER NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	nh_below INTEGER,
	nh_above INTEGER,
	nmg_below INTEGER,
	nmg_above INTEGER,
	mol_below TEXT,
	mol_above TEXT,
	ddg REAL,
	ref TEXT
);

CREATE INDEX IF NOT EXISTS idx_dissociation_constants_cid ON dissociation_constants(cid);
`

// Store is a SQLite-backed row store and compound catalog.
type Store struct {
	conn *sqlx.DB
	log  logging.Logger
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(path string, log logging.Logger) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to open sqlite database")
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY under load.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to create sqlite schema").
			WithDetail("path=" + path)
	}

	log.Info("Opened SQLite database", logging.String("path", path))
	return &Store{conn: conn, log: log}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.conn.PingContext(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "database health check failed")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Dissociation rows
// ─────────────────────────────────────────────────────────────────────────────

// SaveRows writes all rows to the database (full replace).
func (s *Store) SaveRows(ctx context.Context, rows []dissociation.Row) error {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM dissociation_constants"); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to clear dissociation constants")
	}

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO dissociation_constants
		(cid, name, nh_below, nh_above, nmg_below, nmg_above, mol_below, mol_above, ddg, ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to prepare insert")
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx, int64(r.CID), r.Name,
			nullInt(r.NHBelow), nullInt(r.NHAbove), nullInt(r.NMgBelow), nullInt(r.NMgAbove),
			nullString(r.SMILESBelow), nullString(r.SMILESAbove), nullFloat(r.DDG0), nullString(r.Ref))
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to insert dissociation constant").
				WithDetail("cid=" + r.CID.String())
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to commit dissociation constants")
	}
	s.log.Info("saved dissociation constants", logging.Int("rows", len(rows)))
	return nil
}

// LoadRows returns every stored row in insertion order.
func (s *Store) LoadRows(ctx context.Context) ([]dissociation.Row, error) {
	var rows []dissociation.Row
	err := s.conn.SelectContext(ctx, &rows, `SELECT cid, name, nh_below, nh_above, nmg_below, nmg_above,
		mol_below, mol_above, ddg, ref FROM dissociation_constants ORDER BY id`)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to load dissociation constants")
	}
	s.log.Debug("loaded dissociation constants", logging.Int("rows", len(rows)))
	return rows, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Compounds
// ─────────────────────────────────────────────────────────────────────────────

// SaveCompounds upserts compounds by id.
func (s *Store) SaveCompounds(ctx context.Context, compounds []dissociation.Compound) error {
	if len(compounds) == 0 {
		return nil
	}
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	defer tx.Rollback()

	for _, c := range compounds {
		_, err := tx.ExecContext(ctx, `INSERT INTO compounds (cid, name, smiles, nh, charge)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(cid) DO UPDATE SET
				name = excluded.name, smiles = excluded.smiles, nh = excluded.nh, charge = excluded.charge`,
			int64(c.CID), c.Name, c.SMILES, nullInt(c.Hydrogens), nullInt(c.Charge))
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to upsert compound").
				WithDetail("cid=" + c.CID.String())
		}
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to commit compounds")
	}
	return nil
}

// LookupCompound implements dissociation.CompoundCatalog.
func (s *Store) LookupCompound(ctx context.Context, cid dissociation.CID) (*dissociation.Compound, error) {
	var c dissociation.Compound
	err := s.conn.GetContext(ctx, &c, `SELECT cid, name, smiles, nh, charge FROM compounds WHERE cid = ?`, int64(cid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.New(apperrors.ErrCodeCompoundNotFound, "compound not found").
			WithDetail("cid=" + cid.String())
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to query compound")
	}
	return &c, nil
}

// ListCompounds returns the catalog ordered by id.
func (s *Store) ListCompounds(ctx context.Context) ([]dissociation.Compound, error) {
	var out []dissociation.Compound
	if err := s.conn.SelectContext(ctx, &out, `SELECT cid, name, smiles, nh, charge FROM compounds ORDER BY cid`); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to query compounds")
	}
	return out, nil
}

// HydrogensAndCharge implements dissociation.ChargeSource.
func (s *Store) HydrogensAndCharge(ctx context.Context, cid dissociation.CID) (int, int, bool, error) {
	return dissociation.CatalogChargeSource{Catalog: s}.HydrogensAndCharge(ctx, cid)
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

//Personal.AI order the ending
