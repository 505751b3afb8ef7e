package repositories

import (
	"context"
	"database/sql"

	"github.com/jasmincar/milo-lab/internal/domain/dissociation"
	"github.com/jasmincar/milo-lab/internal/infrastructure/database/postgres"
	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/logging"
	apperrors "github.com/jasmincar/milo-lab/pkg/errors"
)

const rowColumns = `cid, name, nh_below, nh_above, nmg_below, nmg_above, mol_below, mol_above, ddg, ref`

// DissociationRepository persists registry rows in dissociation_constants.
type DissociationRepository struct {
	conn *postgres.Connection
	log  logging.Logger
}

// NewDissociationRepository binds the repository to an open connection.
func NewDissociationRepository(conn *postgres.Connection, log logging.Logger) *DissociationRepository {
	return &DissociationRepository{conn: conn, log: log}
}

// ─────────────────────────────────────────────────────────────────────────────
// SaveRows — transactional full replace
// ─────────────────────────────────────────────────────────────────────────────

// SaveRows replaces the stored rows with rows inside one transaction. Row
// order is preserved by the serial primary key.
func (r *DissociationRepository) SaveRows(ctx context.Context, rows []dissociation.Row) (err error) {
	tx, err := r.conn.DB().BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM dissociation_constants`); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to clear dissociation constants")
	}
	for _, row := range rows {
		if err = insertRow(ctx, tx, row); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to commit dissociation constants")
	}

	r.log.Info("saved dissociation constants", logging.Int("rows", len(rows)))
	return nil
}

func insertRow(ctx context.Context, q queryExecutor, row dissociation.Row) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO dissociation_constants (`+rowColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		int(row.CID), row.Name,
		row.NHBelow, row.NHAbove, row.NMgBelow, row.NMgAbove,
		row.SMILESBelow, row.SMILESAbove, row.DDG0, row.Ref,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to insert dissociation constant").
			WithDetail("cid=" + row.CID.String())
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// LoadRows
// ─────────────────────────────────────────────────────────────────────────────

// LoadRows returns every stored row in insertion order.
func (r *DissociationRepository) LoadRows(ctx context.Context) ([]dissociation.Row, error) {
	rows, err := r.conn.DB().QueryContext(ctx,
		`SELECT `+rowColumns+` FROM dissociation_constants ORDER BY id`)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to query dissociation constants")
	}
	defer rows.Close()

	var out []dissociation.Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to iterate dissociation constants")
	}

	r.log.Debug("loaded dissociation constants", logging.Int("rows", len(out)))
	return out, nil
}

func scanRow(s scanner) (dissociation.Row, error) {
	var (
		row  dissociation.Row
		cid  int64
		name sql.NullString
	)
	err := s.Scan(&cid, &name,
		&row.NHBelow, &row.NHAbove, &row.NMgBelow, &row.NMgAbove,
		&row.SMILESBelow, &row.SMILESAbove, &row.DDG0, &row.Ref)
	if err != nil {
		return row, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to scan dissociation constant")
	}
	row.CID = dissociation.CID(cid)
	row.Name = name.String
	return row, nil
}

//Personal.AI order the ending
