package dissociation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jasmincar/milo-lab/internal/domain/molecule"
	"github.com/jasmincar/milo-lab/internal/domain/thermo"
)

// ─────────────────────────────────────────────────────────────────────────────
// Edges
// ─────────────────────────────────────────────────────────────────────────────

// EdgeKey identifies one equilibrium between two adjacent microstates. The
// "above" endpoint has fewer bound species than the "below" endpoint.
type EdgeKey struct {
	NHAbove  int
	NHBelow  int
	NMgAbove int
	NMgBelow int
}

// IsProton reports whether the edge is an acid-base equilibrium.
func (k EdgeKey) IsProton() bool {
	return k.NHBelow == k.NHAbove+1 && k.NMgBelow == k.NMgAbove
}

// IsMagnesium reports whether the edge is a Mg²⁺-binding equilibrium.
func (k EdgeKey) IsMagnesium() bool {
	return k.NMgBelow == k.NMgAbove+1 && k.NHBelow == k.NHAbove
}

// Less orders keys lexicographically on (NHAbove, NHBelow, NMgAbove, NMgBelow).
func (k EdgeKey) Less(o EdgeKey) bool {
	if k.NHAbove != o.NHAbove {
		return k.NHAbove < o.NHAbove
	}
	if k.NHBelow != o.NHBelow {
		return k.NHBelow < o.NHBelow
	}
	if k.NMgAbove != o.NMgAbove {
		return k.NMgAbove < o.NMgAbove
	}
	return k.NMgBelow < o.NMgBelow
}

// Edge is the formation-energy difference below − above in kJ/mol.
type Edge struct {
	DDG0 float64
	Ref  string
}

// EdgeOption customises AddpKa and AddpKMg.
type EdgeOption func(*edgeOptions)

type edgeOptions struct {
	ref         string
	temperature float64
	smilesBelow string
	smilesAbove string
}

// WithRef sets the literature reference of the equilibrium.
func WithRef(ref string) EdgeOption {
	return func(o *edgeOptions) { o.ref = ref }
}

// WithTemperature sets the temperature at which the constant was measured.
func WithTemperature(T float64) EdgeOption {
	return func(o *edgeOptions) { o.temperature = T }
}

// WithStructures records the SMILES of both endpoints. Empty strings are ignored.
func WithStructures(below, above string) EdgeOption {
	return func(o *edgeOptions) {
		o.smilesBelow = below
		o.smilesAbove = above
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// DissociationTable
// ─────────────────────────────────────────────────────────────────────────────

// DissociationTable is the dissociation network of one compound.
//
// A table is mutated only while it is built; once loaded, the read operations
// (conversion, generation, transforms) may run concurrently.
type DissociationTable struct {
	CID  CID
	Name string

	edges      map[EdgeKey]Edge
	structures map[Microstate]string

	minNH     int
	hasMinNH  bool
	minCharge int
	hasCharge bool
	minDG0    float64
}

// NewDissociationTable returns an empty table for cid.
func NewDissociationTable(cid CID) *DissociationTable {
	return &DissociationTable{
		CID:        cid,
		edges:      make(map[EdgeKey]Edge),
		structures: make(map[Microstate]string),
	}
}

// Len returns the number of recorded equilibria.
func (t *DissociationTable) Len() int { return len(t.edges) }

// Keys returns the edge keys in sorted order.
func (t *DissociationTable) Keys() []EdgeKey {
	keys := make([]EdgeKey, 0, len(t.edges))
	for k := range t.edges {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// Edge returns the equilibrium stored under key.
func (t *DissociationTable) Edge(key EdgeKey) (Edge, bool) {
	e, ok := t.edges[key]
	return e, ok
}

// MinNH returns the hydrogen count of the reference microstate and whether it is known.
func (t *DissociationTable) MinNH() (int, bool) { return t.minNH, t.hasMinNH }

// MinCharge returns the charge of the reference microstate and whether it is known.
func (t *DissociationTable) MinCharge() (int, bool) { return t.minCharge, t.hasCharge }

// MinDG0 returns the chemical formation energy of the reference microstate.
func (t *DissociationTable) MinDG0() float64 { return t.minDG0 }

// SetMinDG0 replaces the formation energy of the reference microstate.
func (t *DissociationTable) SetMinDG0(dG0 float64) { t.minDG0 = dG0 }

// UpdateMinNumHydrogens lowers minNH to nH, or sets it when still unknown.
func (t *DissociationTable) UpdateMinNumHydrogens(nH int) {
	if !t.hasMinNH || nH < t.minNH {
		t.minNH = nH
		t.hasMinNH = true
	}
}

// SetMinNumHydrogens sets minNH unconditionally.
func (t *DissociationTable) SetMinNumHydrogens(nH int) {
	t.minNH = nH
	t.hasMinNH = true
}

// ─────────────────────────────────────────────────────────────────────────────
// Building
// ─────────────────────────────────────────────────────────────────────────────

func applyEdgeOptions(opts []EdgeOption) edgeOptions {
	o := edgeOptions{temperature: thermo.DefaultT}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// AddpKa records the acid-base equilibrium between nHBelow and nHAbove
// hydrogens at nMg bound magnesium ions.
func (t *DissociationTable) AddpKa(pKa float64, nHBelow, nHAbove, nMg int, opts ...EdgeOption) error {
	if nHBelow != nHAbove+1 {
		return invalidEquilibrium("%s: pKa requires nH_below = nH_above + 1, got %d and %d", t.CID, nHBelow, nHAbove)
	}
	o := applyEdgeOptions(opts)

	key := EdgeKey{NHAbove: nHAbove, NHBelow: nHBelow, NMgAbove: nMg, NMgBelow: nMg}
	t.edges[key] = Edge{DDG0: -thermo.RTLn10(o.temperature) * pKa, Ref: o.ref}
	t.setStructure(nHBelow, nMg, o.smilesBelow)
	t.setStructure(nHAbove, nMg, o.smilesAbove)
	t.UpdateMinNumHydrogens(nHAbove)
	return nil
}

// AddpKMg records the Mg²⁺-binding equilibrium between nMgBelow and nMgAbove
// bound magnesium ions at nH hydrogens.
func (t *DissociationTable) AddpKMg(pKMg float64, nMgBelow, nMgAbove, nH int, opts ...EdgeOption) error {
	if nMgBelow != nMgAbove+1 {
		return invalidEquilibrium("%s: pKMg requires nMg_below = nMg_above + 1, got %d and %d", t.CID, nMgBelow, nMgAbove)
	}
	o := applyEdgeOptions(opts)

	key := EdgeKey{NHAbove: nH, NHBelow: nH, NMgAbove: nMgAbove, NMgBelow: nMgBelow}
	t.edges[key] = Edge{DDG0: -(thermo.RTLn10(o.temperature)*pKMg - thermo.MgFormationEnergy), Ref: o.ref}
	t.setStructure(nH, nMgBelow, o.smilesBelow)
	t.setStructure(nH, nMgAbove, o.smilesAbove)
	t.UpdateMinNumHydrogens(nH)
	return nil
}

func (t *DissociationTable) setStructure(nH, nMg int, smiles string) {
	if smiles == "" {
		return
	}
	t.structures[Microstate{NH: nH, NMg: nMg}] = smiles
}

// SetStructure records the SMILES of a microstate after checking that it
// parses, and lowers minNH to nH. An empty smiles only updates minNH.
func (t *DissociationTable) SetStructure(nH, nMg int, smiles string) error {
	t.UpdateMinNumHydrogens(nH)
	if smiles == "" {
		return nil
	}
	if _, err := molecule.FromSMILES(smiles); err != nil {
		return err
	}
	t.setStructure(nH, nMg, smiles)
	return nil
}

// Structure returns the SMILES of a microstate, if known.
func (t *DissociationTable) Structure(nH, nMg int) (string, bool) {
	s, ok := t.structures[Microstate{NH: nH, NMg: nMg}]
	return s, ok
}

// SetCharge derives the reference charge from a microstate of known charge z.
func (t *DissociationTable) SetCharge(nH, z, nMg int) {
	t.minCharge = z + (t.minNH - nH) - 2*nMg
	t.hasCharge = true
}

// ChargeSource reports the hydrogen count and net charge of a compound's
// representative structure. ok is false when the compound is unknown to the source.
type ChargeSource interface {
	HydrogensAndCharge(ctx context.Context, cid CID) (nH, z int, ok bool, err error)
}

// CalculateCharge sets the reference charge from src. When src is nil or does
// not know the compound, a charge set earlier is kept and an unset one becomes 0.
func (t *DissociationTable) CalculateCharge(ctx context.Context, src ChargeSource) error {
	if src != nil {
		nH, z, ok, err := src.HydrogensAndCharge(ctx, t.CID)
		if err != nil {
			return err
		}
		if ok {
			t.minCharge = z + (t.minNH - nH)
			t.hasCharge = true
			return nil
		}
	}
	if !t.hasCharge {
		t.minCharge, t.hasCharge = 0, true
	}
	return nil
}

// SetOnlyPseudoisomer describes a compound with a single known microstate.
// It fails when the table already records equilibria.
func (t *DissociationTable) SetOnlyPseudoisomer(smiles string, nMg int) error {
	if len(t.edges) > 0 {
		return invalidEquilibrium("%s: cannot set a single pseudoisomer on a table with %d equilibria", t.CID, len(t.edges))
	}
	mol, err := molecule.FromSMILES(smiles)
	if err != nil {
		return err
	}
	nH, z := mol.HydrogensAndCharge()
	t.setStructure(nH, nMg, smiles)
	t.SetMinNumHydrogens(nH)
	t.SetCharge(nH, z, nMg)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Rendering
// ─────────────────────────────────────────────────────────────────────────────

// String renders the reference microstate, each equilibrium as a pKa or
// pKMg at the default temperature, and the known structures.
func (t *DissociationTable) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s", t.CID)
	if t.Name != "" {
		fmt.Fprintf(&sb, " (%s)", t.Name)
	}
	fmt.Fprintf(&sb, ": nH=%d z=%d nMg=0 dG0=%.1f\n", t.minNH, t.minCharge, t.minDG0)

	for _, k := range t.Keys() {
		e := t.edges[k]
		switch {
		case k.IsProton():
			fmt.Fprintf(&sb, "  nH=%d -> nH=%d (nMg=%d): pKa=%.2f", k.NHBelow, k.NHAbove, k.NMgAbove,
				thermo.PKaFromEdge(e.DDG0, thermo.DefaultT))
		default:
			fmt.Fprintf(&sb, "  nMg=%d -> nMg=%d (nH=%d): pKMg=%.2f", k.NMgBelow, k.NMgAbove, k.NHAbove,
				thermo.PKMgFromEdge(e.DDG0, thermo.DefaultT))
		}
		if e.Ref != "" {
			fmt.Fprintf(&sb, " [%s]", e.Ref)
		}
		sb.WriteByte('\n')
	}

	states := make([]Microstate, 0, len(t.structures))
	for m := range t.structures {
		states = append(states, m)
	}
	sort.Slice(states, func(i, j int) bool {
		if states[i].NH != states[j].NH {
			return states[i].NH < states[j].NH
		}
		return states[i].NMg < states[j].NMg
	})
	for _, m := range states {
		fmt.Fprintf(&sb, "  %s: %s\n", m, t.structures[m])
	}
	return sb.String()
}

//Personal.AI order the ending
