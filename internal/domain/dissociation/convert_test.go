package dissociation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasmincar/milo-lab/internal/domain/thermo"
)

func TestConvertPseudoisomer_RoundTrip(t *testing.T) {
	t.Parallel()
	tbl := phosphateTable(t)
	states := []Microstate{{0, 0}, {1, 0}, {2, 0}, {3, 0}, {1, 1}}

	for _, from := range states {
		for _, to := range states {
			from, to := from, to
			t.Run(from.String()+" to "+to.String(), func(t *testing.T) {
				t.Parallel()
				there, err := tbl.ConvertPseudoisomer(-1000, from.NH, to.NH, from.NMg, to.NMg)
				require.NoError(t, err)
				back, err := tbl.ConvertPseudoisomer(there, to.NH, from.NH, to.NMg, from.NMg)
				require.NoError(t, err)
				assert.InDelta(t, -1000, back, 1e-9)
			})
		}
	}
}

func TestConvertPseudoisomer_SumsSteps(t *testing.T) {
	t.Parallel()
	tbl := phosphateTable(t)

	got, err := tbl.ConvertPseudoisomer(0, 0, 2, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, -(12.3+7.2)*rtln10(), got, 1e-9)

	got, err = tbl.ConvertPseudoisomer(0, 0, 1, 0, 1)
	require.NoError(t, err)
	want := -12.3*rtln10() - (1.65*rtln10() - thermo.MgFormationEnergy)
	assert.InDelta(t, want, got, 1e-9)
}

func TestConvertPseudoisomerEntry(t *testing.T) {
	t.Parallel()
	tbl := phosphateTable(t)
	entry := &PseudoisomerEntry{
		CID:       cidPhosphate,
		NetCharge: -3,
		Hydrogens: 0,
		SMILES:    "[O-]P([O-])([O-])=O",
		DG0:       -1018.7,
		Ref:       "Alberty",
	}

	out, err := tbl.ConvertPseudoisomerEntry(entry, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Hydrogens)
	assert.Equal(t, 0, out.Magnesiums)
	assert.Equal(t, -1, out.NetCharge)
	assert.Empty(t, out.SMILES)
	assert.Equal(t, "Alberty;pKa3;pKa2", out.Ref)
	assert.InDelta(t, -1018.7-(12.3+7.2)*rtln10(), out.DG0, 1e-9)

	// the input entry is untouched
	assert.Equal(t, 0, entry.Hydrogens)
	assert.Equal(t, "[O-]P([O-])([O-])=O", entry.SMILES)

	mg, err := tbl.ConvertPseudoisomerEntry(entry, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, mg.NetCharge)
	assert.Equal(t, "Alberty;pKa3;pKMg", mg.Ref)

	same, err := tbl.ConvertPseudoisomerEntry(entry, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, entry.DG0, same.DG0)
	assert.Equal(t, "Alberty;", same.Ref)
}

func TestConvertPseudoisomerEntry_FixedPath(t *testing.T) {
	t.Parallel()
	tbl := phosphateTable(t)

	// Mg is only bound at nH=1, so a Mg-bound state at nH=0 cannot be stripped
	// there even though (1,1) -> (1,0) -> (0,0) would exist.
	_, err := tbl.ConvertPseudoisomer(0, 0, 0, 1, 0)
	var missing *MissingDissociationConstantError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, Microstate{0, 1}, Microstate{missing.NHFrom, missing.NMgFrom})
	assert.Equal(t, Microstate{0, 0}, Microstate{missing.NHTo, missing.NMgTo})

	_, err = tbl.ConvertPseudoisomer(0, 1, 4, 0, 0)
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, 3, missing.NHFrom)
	assert.Equal(t, 4, missing.NHTo)
}

func TestGenerateAllPseudoisomerEntries(t *testing.T) {
	t.Parallel()
	tbl := phosphateTable(t)

	entries, err := tbl.GenerateAll()
	require.NoError(t, err)

	var got []Microstate
	for _, e := range entries {
		got = append(got, e.Microstate())
	}
	// edges in key order: (0,1,0,0) (1,1,0,1) (1,2,0,0) (2,3,0,0)
	assert.Equal(t, []Microstate{{0, 0}, {1, 0}, {1, 1}, {2, 0}, {3, 0}}, got)

	byState := make(map[Microstate]*PseudoisomerEntry)
	for _, e := range entries {
		byState[e.Microstate()] = e
	}
	assert.Equal(t, -3, byState[Microstate{0, 0}].NetCharge)
	assert.Equal(t, -2, byState[Microstate{1, 0}].NetCharge)
	assert.Equal(t, 0, byState[Microstate{1, 1}].NetCharge)
	assert.Equal(t, 0, byState[Microstate{3, 0}].NetCharge)
	assert.Equal(t, "pKa3", byState[Microstate{1, 0}].Ref)
	assert.Equal(t, "pKMg", byState[Microstate{1, 1}].Ref)
	assert.Equal(t, "pKa1", byState[Microstate{3, 0}].Ref)
}

func TestGenerateAllPseudoisomerEntries_SeedAboveEdges(t *testing.T) {
	t.Parallel()
	tbl := phosphateTable(t)
	seed := &PseudoisomerEntry{CID: cidPhosphate, Hydrogens: 2, NetCharge: -1}

	entries, err := tbl.GenerateAllPseudoisomerEntries(seed)
	require.NoError(t, err)

	got := make(map[Microstate]float64)
	for _, e := range entries {
		got[e.Microstate()] = e.DG0
	}
	assert.Len(t, got, 5)
	assert.InDelta(t, (12.3+7.2)*rtln10(), got[Microstate{0, 0}], 1e-9)
	assert.InDelta(t, -2.12*rtln10(), got[Microstate{3, 0}], 1e-9)
}

func TestGenerateAllPseudoisomerEntries_Errors(t *testing.T) {
	t.Parallel()

	_, err := phosphateTable(t).GenerateAllPseudoisomerEntries(&PseudoisomerEntry{Hydrogens: 1, Magnesiums: 1})
	assert.True(t, IsInvalidEquilibrium(err))

	tbl := NewDissociationTable(2)
	require.NoError(t, tbl.AddpKa(4, 1, 0, 0))
	_, err = tbl.GenerateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference charge is not set")
}

func TestSetFormationEnergy(t *testing.T) {
	t.Parallel()

	t.Run("by number of hydrogens", func(t *testing.T) {
		t.Parallel()
		tbl := phosphateTable(t)
		require.NoError(t, tbl.SetFormationEnergyByNumHydrogens(-1096.1, 1, 0))
		assert.InDelta(t, -1096.1+12.3*rtln10(), tbl.MinDG0(), 1e-9)
	})

	t.Run("by charge", func(t *testing.T) {
		t.Parallel()
		tbl := phosphateTable(t)
		require.NoError(t, tbl.SetFormationEnergyByCharge(-1096.1, -2, 0))
		assert.InDelta(t, -1096.1+12.3*rtln10(), tbl.MinDG0(), 1e-9)
	})

	t.Run("missing path", func(t *testing.T) {
		t.Parallel()
		tbl := phosphateTable(t)
		err := tbl.SetFormationEnergyByNumHydrogens(-1000, 5, 0)
		assert.True(t, IsMissingDissociationConstant(err))
		assert.Zero(t, tbl.MinDG0())
	})
}

//Personal.AI order the ending
