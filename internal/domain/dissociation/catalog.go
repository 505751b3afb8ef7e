package dissociation

import (
	"context"

	"github.com/jasmincar/milo-lab/internal/domain/molecule"
	"github.com/jasmincar/milo-lab/pkg/errors"
)

// Compound is a catalog entry: the representative structure of a compound
// and, optionally, its hydrogen count and charge when no structure is known.
type Compound struct {
	CID       CID    `db:"cid" json:"cid"`
	Name      string `db:"name" json:"name"`
	SMILES    string `db:"smiles" json:"smiles,omitempty"`
	Hydrogens *int   `db:"nh" json:"nH,omitempty"`
	Charge    *int   `db:"charge" json:"z,omitempty"`
}

// HydrogensAndCharge prefers the stored counts and falls back to the structure.
func (c *Compound) HydrogensAndCharge() (nH, z int, ok bool, err error) {
	if c.Hydrogens != nil && c.Charge != nil {
		return *c.Hydrogens, *c.Charge, true, nil
	}
	if c.SMILES == "" {
		return 0, 0, false, nil
	}
	mol, err := molecule.FromSMILES(c.SMILES)
	if err != nil {
		return 0, 0, false, err
	}
	nH, z = mol.HydrogensAndCharge()
	return nH, z, true, nil
}

// CompoundCatalog looks compounds up by id. A missing compound is reported
// with an error carrying ErrCodeCompoundNotFound.
type CompoundCatalog interface {
	LookupCompound(ctx context.Context, cid CID) (*Compound, error)
}

// Estimator builds a dissociation table for a compound the registry does not know.
type Estimator interface {
	Estimate(ctx context.Context, cid CID) (*DissociationTable, error)
}

// CatalogChargeSource adapts a CompoundCatalog to ChargeSource.
type CatalogChargeSource struct {
	Catalog CompoundCatalog
}

// HydrogensAndCharge implements ChargeSource. Unknown compounds are not an error.
func (s CatalogChargeSource) HydrogensAndCharge(ctx context.Context, cid CID) (int, int, bool, error) {
	c, err := s.Catalog.LookupCompound(ctx, cid)
	if err != nil {
		if errors.IsNotFound(err) {
			return 0, 0, false, nil
		}
		return 0, 0, false, err
	}
	return c.HydrogensAndCharge()
}

// StructureEstimator builds single-pseudoisomer tables from catalog structures.
// It does not predict pKa values: the resulting table has no equilibria.
type StructureEstimator struct {
	Catalog CompoundCatalog
}

// Estimate implements Estimator.
func (e StructureEstimator) Estimate(ctx context.Context, cid CID) (*DissociationTable, error) {
	c, err := e.Catalog.LookupCompound(ctx, cid)
	if err != nil {
		return nil, err
	}
	if c.SMILES == "" {
		return nil, errors.New(errors.ErrCodeCompoundNotFound, "compound has no structure").
			WithDetail("cid=" + cid.String())
	}
	t := NewDissociationTable(cid)
	t.Name = c.Name
	if err := t.SetOnlyPseudoisomer(c.SMILES, 0); err != nil {
		return nil, err
	}
	return t, nil
}

// StaticCatalog is an in-memory CompoundCatalog.
type StaticCatalog map[CID]*Compound

// LookupCompound implements CompoundCatalog.
func (s StaticCatalog) LookupCompound(_ context.Context, cid CID) (*Compound, error) {
	c, ok := s[cid]
	if !ok {
		return nil, errors.New(errors.ErrCodeCompoundNotFound, "compound not found").WithDetail("cid=" + cid.String())
	}
	return c, nil
}

//Personal.AI order the ending
