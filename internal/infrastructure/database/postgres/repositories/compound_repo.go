package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jasmincar/milo-lab/internal/domain/dissociation"
	"github.com/jasmincar/milo-lab/internal/infrastructure/database/postgres"
	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/logging"
	apperrors "github.com/jasmincar/milo-lab/pkg/errors"
)

// CompoundRepository is the PostgreSQL compound catalog. It satisfies
// dissociation.CompoundCatalog and dissociation.ChargeSource.
type CompoundRepository struct {
	conn *postgres.Connection
	log  logging.Logger
}

// NewCompoundRepository binds the repository to an open connection.
func NewCompoundRepository(conn *postgres.Connection, log logging.Logger) *CompoundRepository {
	return &CompoundRepository{conn: conn, log: log}
}

// SaveCompounds upserts compounds by id.
func (r *CompoundRepository) SaveCompounds(ctx context.Context, compounds []dissociation.Compound) (err error) {
	if len(compounds) == 0 {
		return nil
	}
	tx, err := r.conn.DB().BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, c := range compounds {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO compounds (cid, name, smiles, nh, charge, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT (cid) DO UPDATE SET
				name = EXCLUDED.name,
				smiles = EXCLUDED.smiles,
				nh = EXCLUDED.nh,
				charge = EXCLUDED.charge,
				updated_at = NOW()`,
			int(c.CID), c.Name, c.SMILES, c.Hydrogens, c.Charge,
		)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to upsert compound").
				WithDetail("cid=" + c.CID.String())
		}
	}
	if err = tx.Commit(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to commit compounds")
	}
	r.log.Info("saved compounds", logging.Int("compounds", len(compounds)))
	return nil
}

// LookupCompound implements dissociation.CompoundCatalog.
func (r *CompoundRepository) LookupCompound(ctx context.Context, cid dissociation.CID) (*dissociation.Compound, error) {
	row := r.conn.DB().QueryRowContext(ctx,
		`SELECT cid, name, smiles, nh, charge FROM compounds WHERE cid = $1`, int(cid))
	c, err := scanCompound(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.New(apperrors.ErrCodeCompoundNotFound, "compound not found").
				WithDetail("cid=" + cid.String())
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to query compound")
	}
	return c, nil
}

// ListCompounds returns the catalog ordered by id.
func (r *CompoundRepository) ListCompounds(ctx context.Context) ([]dissociation.Compound, error) {
	rows, err := r.conn.DB().QueryContext(ctx,
		`SELECT cid, name, smiles, nh, charge FROM compounds ORDER BY cid`)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to query compounds")
	}
	defer rows.Close()

	var out []dissociation.Compound
	for rows.Next() {
		c, err := scanCompound(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to scan compound")
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to iterate compounds")
	}
	return out, nil
}

// HydrogensAndCharge implements dissociation.ChargeSource.
func (r *CompoundRepository) HydrogensAndCharge(ctx context.Context, cid dissociation.CID) (int, int, bool, error) {
	return dissociation.CatalogChargeSource{Catalog: r}.HydrogensAndCharge(ctx, cid)
}

func scanCompound(s scanner) (*dissociation.Compound, error) {
	var (
		c   dissociation.Compound
		cid int64
	)
	if err := s.Scan(&cid, &c.Name, &c.SMILES, &c.Hydrogens, &c.Charge); err != nil {
		return nil, err
	}
	c.CID = dissociation.CID(cid)
	return &c, nil
}

//Personal.AI order the ending
