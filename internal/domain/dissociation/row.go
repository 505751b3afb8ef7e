package dissociation

import (
	"fmt"

	"github.com/jasmincar/milo-lab/pkg/errors"
)

// Row is the persisted form of one equilibrium. Every field but CID and Name
// is nil for a compound whose lookup failed, so that the failure is cached
// across runs.
type Row struct {
	CID         CID      `db:"cid" json:"cid"`
	Name        string   `db:"name" json:"name"`
	NHBelow     *int     `db:"nh_below" json:"nH_below"`
	NHAbove     *int     `db:"nh_above" json:"nH_above"`
	NMgBelow    *int     `db:"nmg_below" json:"nMg_below"`
	NMgAbove    *int     `db:"nmg_above" json:"nMg_above"`
	SMILESBelow *string  `db:"mol_below" json:"mol_below"`
	SMILESAbove *string  `db:"mol_above" json:"mol_above"`
	DDG0        *float64 `db:"ddg" json:"ddG"`
	Ref         *string  `db:"ref" json:"ref"`
}

// IsMissing reports whether the row marks a compound without a table.
func (r Row) IsMissing() bool { return r.NHBelow == nil }

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func stringPtr(v string) *string  { return &v }

func optString(v string, ok bool) *string {
	if !ok {
		return nil
	}
	return &v
}

// ToRows renders the table in sorted edge order. A table without equilibria
// yields a single row describing the reference microstate with ddG0 = 0.
func (t *DissociationTable) ToRows() []Row {
	if len(t.edges) == 0 {
		s := optString(t.Structure(t.minNH, 0))
		return []Row{{
			CID:         t.CID,
			Name:        t.Name,
			NHBelow:     intPtr(t.minNH),
			NHAbove:     intPtr(t.minNH),
			NMgBelow:    intPtr(0),
			NMgAbove:    intPtr(0),
			SMILESBelow: s,
			SMILESAbove: s,
			DDG0:        floatPtr(0),
			Ref:         stringPtr(""),
		}}
	}

	rows := make([]Row, 0, len(t.edges))
	for _, k := range t.Keys() {
		e := t.edges[k]
		rows = append(rows, Row{
			CID:         t.CID,
			Name:        t.Name,
			NHBelow:     intPtr(k.NHBelow),
			NHAbove:     intPtr(k.NHAbove),
			NMgBelow:    intPtr(k.NMgBelow),
			NMgAbove:    intPtr(k.NMgAbove),
			SMILESBelow: optString(t.Structure(k.NHBelow, k.NMgBelow)),
			SMILESAbove: optString(t.Structure(k.NHAbove, k.NMgAbove)),
			DDG0:        floatPtr(e.DDG0),
			Ref:         stringPtr(e.Ref),
		})
	}
	return rows
}

// UpdateRow applies one persisted row. Both endpoint structures are recorded
// first; a row whose endpoints coincide describes the reference microstate
// only, any other row must be a unit equilibrium and is stored verbatim.
func (t *DissociationTable) UpdateRow(r Row) error {
	if r.IsMissing() || r.NHAbove == nil || r.NMgBelow == nil || r.NMgAbove == nil {
		return errors.InvalidParam("incomplete dissociation row").WithDetail("cid=" + t.CID.String())
	}
	nHBelow, nHAbove, nMgBelow, nMgAbove := *r.NHBelow, *r.NHAbove, *r.NMgBelow, *r.NMgAbove

	if err := t.SetStructure(nHAbove, nMgAbove, deref(r.SMILESAbove)); err != nil {
		return err
	}
	if err := t.SetStructure(nHBelow, nMgBelow, deref(r.SMILESBelow)); err != nil {
		return err
	}
	if nHBelow == nHAbove && nMgBelow == nMgAbove {
		return nil
	}

	key := EdgeKey{NHAbove: nHAbove, NHBelow: nHBelow, NMgAbove: nMgAbove, NMgBelow: nMgBelow}
	if !key.IsProton() && !key.IsMagnesium() {
		return invalidEquilibrium("%s: row (nH %d->%d, nMg %d->%d) is not a unit equilibrium",
			t.CID, nHBelow, nHAbove, nMgBelow, nMgAbove)
	}
	if r.DDG0 == nil {
		return errors.InvalidParam("dissociation row without ddG").
			WithDetail(fmt.Sprintf("cid=%s nH_below=%d nMg_below=%d", t.CID, nHBelow, nMgBelow))
	}
	t.edges[key] = Edge{DDG0: *r.DDG0, Ref: deref(r.Ref)}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

//Personal.AI order the ending
