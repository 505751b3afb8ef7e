package dissociation

import (
	"strings"
)

// GetSingleStep returns the formation-energy change of one unit step between
// adjacent microstates, with the reference of the equilibrium used. Gaining a
// proton or a magnesium ion returns the stored value, losing one its negation.
func (t *DissociationTable) GetSingleStep(nHFrom, nHTo, nMgFrom, nMgTo int) (float64, string, error) {
	if nHFrom == nHTo && nMgFrom == nMgTo {
		return 0, "", nil
	}
	if nHFrom != nHTo && nMgFrom != nMgTo {
		return 0, "", invalidEquilibrium("%s: a single step cannot change both nH (%d->%d) and nMg (%d->%d)",
			t.CID, nHFrom, nHTo, nMgFrom, nMgTo)
	}

	var (
		key  EdgeKey
		sign = 1.0
	)
	switch {
	case nMgTo == nMgFrom+1 || nHTo == nHFrom+1:
		key = EdgeKey{NHAbove: nHFrom, NHBelow: nHTo, NMgAbove: nMgFrom, NMgBelow: nMgTo}
	case nMgFrom == nMgTo+1:
		key = EdgeKey{NHAbove: nHFrom, NHBelow: nHTo, NMgAbove: nMgTo, NMgBelow: nMgFrom}
		sign = -1
	case nHFrom == nHTo+1:
		key = EdgeKey{NHAbove: nHTo, NHBelow: nHFrom, NMgAbove: nMgFrom, NMgBelow: nMgTo}
		sign = -1
	default:
		return 0, "", invalidEquilibrium("%s: (nH=%d,nMg=%d) -> (nH=%d,nMg=%d) is not a unit step",
			t.CID, nHFrom, nMgFrom, nHTo, nMgTo)
	}

	e, ok := t.edges[key]
	if !ok {
		return 0, "", &MissingDissociationConstantError{
			CID: t.CID, NHFrom: nHFrom, NMgFrom: nMgFrom, NHTo: nHTo, NMgTo: nMgTo,
		}
	}
	return sign * e.DDG0, e.Ref, nil
}

// ConvertPseudoisomerEntry returns a clone of entry moved to (nHTo, nMgTo).
//
// The path is fixed: magnesium is stripped at the source hydrogen count, the
// hydrogen count is walked at nMg=0, and magnesium is added back at the target
// hydrogen count. The first missing equilibrium aborts the conversion.
func (t *DissociationTable) ConvertPseudoisomerEntry(entry *PseudoisomerEntry, nHTo, nMgTo int) (*PseudoisomerEntry, error) {
	nHFrom, nMgFrom := entry.Hydrogens, entry.Magnesiums

	var (
		ddG0 float64
		refs []string
	)
	step := func(hFrom, hTo, mFrom, mTo int) error {
		d, ref, err := t.GetSingleStep(hFrom, hTo, mFrom, mTo)
		if err != nil {
			return err
		}
		ddG0 += d
		refs = append(refs, ref)
		return nil
	}

	for nMg := nMgFrom; nMg > 0; nMg-- {
		if err := step(nHFrom, nHFrom, nMg, nMg-1); err != nil {
			return nil, err
		}
	}
	if nHTo > nHFrom {
		for nH := nHFrom; nH < nHTo; nH++ {
			if err := step(nH, nH+1, 0, 0); err != nil {
				return nil, err
			}
		}
	} else {
		for nH := nHFrom; nH > nHTo; nH-- {
			if err := step(nH, nH-1, 0, 0); err != nil {
				return nil, err
			}
		}
	}
	for nMg := 0; nMg < nMgTo; nMg++ {
		if err := step(nHTo, nHTo, nMg, nMg+1); err != nil {
			return nil, err
		}
	}

	out := entry.Clone()
	out.DG0 += ddG0
	out.Ref = entry.Ref + ";" + strings.Join(refs, ";")
	out.SMILES = ""
	out.NetCharge += (nHTo - nHFrom) + 2*(nMgTo-nMgFrom)
	out.Hydrogens = nHTo
	out.Magnesiums = nMgTo
	return out, nil
}

// ConvertPseudoisomer moves a formation energy from one microstate to another.
func (t *DissociationTable) ConvertPseudoisomer(dG0 float64, nHFrom, nHTo, nMgFrom, nMgTo int) (float64, error) {
	entry := &PseudoisomerEntry{CID: t.CID, Hydrogens: nHFrom, Magnesiums: nMgFrom, DG0: dG0}
	out, err := t.ConvertPseudoisomerEntry(entry, nHTo, nMgTo)
	if err != nil {
		return 0, err
	}
	return out.DG0, nil
}

// GenerateAllPseudoisomerEntries derives the microstates reachable from seed
// by one edge each. Proton edges yield the endpoint farther from the seed's
// hydrogen count, magnesium edges their "below" endpoint. The result is not
// the closure of the network: a microstate two edges away is only produced
// when an edge names it directly.
//
// The seed comes first, followed by the generated entries in edge order.
func (t *DissociationTable) GenerateAllPseudoisomerEntries(seed *PseudoisomerEntry) ([]*PseudoisomerEntry, error) {
	if seed.Magnesiums != 0 {
		return nil, invalidEquilibrium("%s: the seed pseudoisomer must not bind Mg, got nMg=%d", t.CID, seed.Magnesiums)
	}

	order := []Microstate{seed.Microstate()}
	byState := map[Microstate]*PseudoisomerEntry{seed.Microstate(): seed.Clone()}

	for _, k := range t.Keys() {
		var target Microstate
		switch {
		case k.IsMagnesium():
			target = Microstate{NH: k.NHBelow, NMg: k.NMgBelow}
		case k.NHBelow > seed.Hydrogens:
			target = Microstate{NH: k.NHBelow, NMg: k.NMgBelow}
		case k.NHAbove < seed.Hydrogens:
			target = Microstate{NH: k.NHAbove, NMg: k.NMgAbove}
		default:
			continue
		}

		entry, err := t.ConvertPseudoisomerEntry(seed, target.NH, target.NMg)
		if err != nil {
			return nil, err
		}
		entry.Ref = t.edges[k].Ref
		if _, seen := byState[target]; !seen {
			order = append(order, target)
		}
		byState[target] = entry
	}

	out := make([]*PseudoisomerEntry, 0, len(order))
	for _, m := range order {
		out = append(out, byState[m])
	}
	return out, nil
}

// GenerateAll seeds generation with the reference microstate.
func (t *DissociationTable) GenerateAll() ([]*PseudoisomerEntry, error) {
	seed, err := t.referenceEntry(t.minDG0)
	if err != nil {
		return nil, err
	}
	return t.GenerateAllPseudoisomerEntries(seed)
}

func (t *DissociationTable) referenceEntry(dG0 float64) (*PseudoisomerEntry, error) {
	if !t.hasMinNH {
		return nil, chargeUndefined(t.CID, "reference hydrogen count is not set")
	}
	if !t.hasCharge {
		return nil, chargeUndefined(t.CID, "reference charge is not set")
	}
	return &PseudoisomerEntry{
		CID:       t.CID,
		Name:      t.Name,
		NetCharge: t.minCharge,
		Hydrogens: t.minNH,
		DG0:       dG0,
	}, nil
}

// SetFormationEnergyByNumHydrogens sets the reference formation energy from
// the formation energy of microstate (nH, nMg).
func (t *DissociationTable) SetFormationEnergyByNumHydrogens(dG0 float64, nH, nMg int) error {
	if !t.hasMinNH {
		return chargeUndefined(t.CID, "reference hydrogen count is not set")
	}
	v, err := t.ConvertPseudoisomer(dG0, nH, t.minNH, nMg, 0)
	if err != nil {
		return err
	}
	t.minDG0 = v
	return nil
}

// SetFormationEnergyByCharge is SetFormationEnergyByNumHydrogens for a
// microstate identified by its net charge.
func (t *DissociationTable) SetFormationEnergyByCharge(dG0 float64, charge, nMg int) error {
	if !t.hasCharge {
		return chargeUndefined(t.CID, "reference charge is not set")
	}
	nH := t.minNH + (charge - t.minCharge)
	return t.SetFormationEnergyByNumHydrogens(dG0, nH, nMg)
}

//Personal.AI order the ending
