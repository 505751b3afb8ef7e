package dissociation

import (
	"sort"

	"github.com/jasmincar/milo-lab/internal/domain/thermo"
)

// TransformedPseudoisomer is one microstate with its transformed energy at a
// given condition, relative to a seed of energy zero.
type TransformedPseudoisomer struct {
	NH       int     `json:"nH"`
	Z        int     `json:"z"`
	NMg      int     `json:"nMg"`
	DG0      float64 `json:"dG0"`
	DG0Prime float64 `json:"dG0_prime"`
	Ref      string  `json:"ref,omitempty"`
}

// GetTransformedDeltaGs returns every generated microstate with its
// transformed energy, seeded with dG0=0 at (nH, nMg). The list is sorted by
// ascending dG0'; ties are broken by nH and then nMg.
func (t *DissociationTable) GetTransformedDeltaGs(c thermo.Conditions, nH, nMg int) ([]TransformedPseudoisomer, error) {
	if !t.hasCharge {
		return nil, chargeUndefined(t.CID, "reference charge is not set")
	}
	if !t.hasMinNH {
		return nil, chargeUndefined(t.CID, "reference hydrogen count is not set")
	}
	seed := &PseudoisomerEntry{
		CID:        t.CID,
		NetCharge:  t.minCharge + nH - t.minNH,
		Hydrogens:  nH,
		Magnesiums: nMg,
	}
	entries, err := t.GenerateAllPseudoisomerEntries(seed)
	if err != nil {
		return nil, err
	}

	out := make([]TransformedPseudoisomer, len(entries))
	for i, e := range entries {
		out[i] = TransformedPseudoisomer{
			NH:       e.Hydrogens,
			Z:        e.NetCharge,
			NMg:      e.Magnesiums,
			DG0:      e.DG0,
			DG0Prime: thermo.LegendreTransform(e.DG0, e.Hydrogens, e.NetCharge, e.Magnesiums, c),
			Ref:      e.Ref,
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DG0Prime != out[j].DG0Prime {
			return out[i].DG0Prime < out[j].DG0Prime
		}
		if out[i].NH != out[j].NH {
			return out[i].NH < out[j].NH
		}
		return out[i].NMg < out[j].NMg
	})
	return out, nil
}

// GetDeltaDeltaG0 returns the transformed energy of the whole ensemble
// relative to the microstate (nH, nMg).
func (t *DissociationTable) GetDeltaDeltaG0(c thermo.Conditions, nH, nMg int) (float64, error) {
	states, err := t.GetTransformedDeltaGs(c, nH, nMg)
	if err != nil {
		return 0, err
	}
	dG0s := make([]float64, len(states))
	for i, s := range states {
		dG0s[i] = s.DG0Prime
	}
	return thermo.EnsembleEnergy(dG0s, c.T), nil
}

// Transform returns the transformed formation energy of the compound.
func (t *DissociationTable) Transform(c thermo.Conditions) (float64, error) {
	ddG0, err := t.GetDeltaDeltaG0(c, t.minNH, 0)
	if err != nil {
		return 0, err
	}
	return t.minDG0 + ddG0, nil
}

// GetMostAbundantPseudoisomer returns the microstate of lowest transformed
// energy at condition c.
func (t *DissociationTable) GetMostAbundantPseudoisomer(c thermo.Conditions) (Microstate, error) {
	states, err := t.GetTransformedDeltaGs(c, t.minNH, 0)
	if err != nil {
		return Microstate{}, err
	}
	return Microstate{NH: states[0].NH, NMg: states[0].NMg}, nil
}

// GetMostAbundantStructure returns the SMILES of the most abundant microstate, if known.
func (t *DissociationTable) GetMostAbundantStructure(c thermo.Conditions) (string, bool, error) {
	m, err := t.GetMostAbundantPseudoisomer(c)
	if err != nil {
		return "", false, err
	}
	s, ok := t.Structure(m.NH, m.NMg)
	return s, ok, nil
}

// SetTransformedFormationEnergy shifts the reference formation energy so that
// Transform(c) equals dG0Prime.
func (t *DissociationTable) SetTransformedFormationEnergy(dG0Prime float64, c thermo.Conditions) error {
	current, err := t.Transform(c)
	if err != nil {
		return err
	}
	t.minDG0 += dG0Prime - current
	return nil
}

// GetPseudoisomerMap returns every generated microstate of the compound with
// its chemical formation energy, keyed by microstate.
func (t *DissociationTable) GetPseudoisomerMap() (map[Microstate]*PseudoisomerEntry, error) {
	entries, err := t.GenerateAll()
	if err != nil {
		return nil, err
	}
	out := make(map[Microstate]*PseudoisomerEntry, len(entries))
	for _, e := range entries {
		out[e.Microstate()] = e
	}
	return out, nil
}

//Personal.AI order the ending
