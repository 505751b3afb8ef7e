package dissociation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasmincar/milo-lab/internal/domain/thermo"
	"github.com/jasmincar/milo-lab/pkg/errors"
)

const (
	cidWater     CID = 1
	cidPhosphate CID = 9
	cidAcetate   CID = 33
)

// phosphateTable returns orthophosphate with its three pKa values and one
// pKMg at nH=1. The reference microstate is PO4³⁻.
func phosphateTable(t *testing.T) *DissociationTable {
	t.Helper()
	tbl := NewDissociationTable(cidPhosphate)
	require.NoError(t, tbl.AddpKa(2.12, 3, 2, 0, WithRef("pKa1")))
	require.NoError(t, tbl.AddpKa(7.2, 2, 1, 0, WithRef("pKa2")))
	require.NoError(t, tbl.AddpKa(12.3, 1, 0, 0, WithRef("pKa3")))
	require.NoError(t, tbl.AddpKMg(1.65, 1, 0, 1, WithRef("pKMg")))
	tbl.SetCharge(0, -3, 0)
	return tbl
}

func rtln10() float64 { return thermo.RTLn10(thermo.DefaultT) }

func TestParseCID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    CID
		wantErr bool
	}{
		{"C00002", 2, false},
		{"c2", 2, false},
		{"2", 2, false},
		{" C00009 ", 9, false},
		{"", 0, true},
		{"C", 0, true},
		{"CC2", 0, true},
		{"C-2", 0, true},
		{"ATP", 0, true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseCID(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
	assert.Equal(t, "C00002", CID(2).String())
}

func TestAddpKa_RequiresUnitStep(t *testing.T) {
	t.Parallel()
	tbl := NewDissociationTable(cidPhosphate)
	err := tbl.AddpKa(4, 3, 1, 0)
	require.Error(t, err)
	assert.True(t, IsInvalidEquilibrium(err))
	assert.Equal(t, 0, tbl.Len())
	_, ok := tbl.MinNH()
	assert.False(t, ok)
}

func TestAddpKa_StoresProtonBindingEnergy(t *testing.T) {
	t.Parallel()
	tbl := NewDissociationTable(2)
	require.NoError(t, tbl.AddpKa(4, 2, 1, 0, WithRef("t"), WithStructures("OC=O", "[O-]C=O")))

	x := 4 * rtln10()
	assert.InDelta(t, 22.82, x, 0.01)

	e, ok := tbl.Edge(EdgeKey{NHAbove: 1, NHBelow: 2})
	require.True(t, ok)
	assert.InDelta(t, -x, e.DDG0, 1e-12)

	d, ref, err := tbl.GetSingleStep(2, 1, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, x, d, 1e-12)
	assert.Equal(t, "t", ref)

	d, ref, err = tbl.GetSingleStep(1, 2, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, -x, d, 1e-12)
	assert.Equal(t, "t", ref)

	nH, ok := tbl.MinNH()
	assert.True(t, ok)
	assert.Equal(t, 1, nH)

	s, ok := tbl.Structure(2, 0)
	assert.True(t, ok)
	assert.Equal(t, "OC=O", s)
}

func TestAddpKa_Temperature(t *testing.T) {
	t.Parallel()
	tbl := NewDissociationTable(2)
	require.NoError(t, tbl.AddpKa(4, 1, 0, 0, WithTemperature(310.15)))
	e, _ := tbl.Edge(EdgeKey{NHAbove: 0, NHBelow: 1})
	assert.InDelta(t, -4*thermo.RTLn10(310.15), e.DDG0, 1e-12)
}

func TestAddpKMg(t *testing.T) {
	t.Parallel()
	tbl := NewDissociationTable(2)
	require.Error(t, tbl.AddpKMg(2, 2, 0, 5))

	require.NoError(t, tbl.AddpKMg(2, 1, 0, 5, WithRef("mg")))
	want := -(2*rtln10() - thermo.MgFormationEnergy)

	e, ok := tbl.Edge(EdgeKey{NHAbove: 5, NHBelow: 5, NMgAbove: 0, NMgBelow: 1})
	require.True(t, ok)
	assert.InDelta(t, want, e.DDG0, 1e-12)

	d, ref, err := tbl.GetSingleStep(5, 5, 0, 1)
	require.NoError(t, err)
	assert.InDelta(t, want, d, 1e-12)
	assert.Equal(t, "mg", ref)

	d, _, err = tbl.GetSingleStep(5, 5, 1, 0)
	require.NoError(t, err)
	assert.InDelta(t, -want, d, 1e-12)

	nH, _ := tbl.MinNH()
	assert.Equal(t, 5, nH)
}

func TestGetSingleStep(t *testing.T) {
	t.Parallel()
	tbl := phosphateTable(t)

	tests := []struct {
		name        string
		from, to    Microstate
		wantInvalid bool
		wantMissing bool
	}{
		{name: "identity", from: Microstate{1, 0}, to: Microstate{1, 0}},
		{name: "protonate", from: Microstate{0, 0}, to: Microstate{1, 0}},
		{name: "deprotonate", from: Microstate{1, 0}, to: Microstate{0, 0}},
		{name: "bind Mg", from: Microstate{1, 0}, to: Microstate{1, 1}},
		{name: "release Mg", from: Microstate{1, 1}, to: Microstate{1, 0}},
		{name: "both dimensions", from: Microstate{0, 0}, to: Microstate{1, 1}, wantInvalid: true},
		{name: "two protons", from: Microstate{0, 0}, to: Microstate{2, 0}, wantInvalid: true},
		{name: "two Mg", from: Microstate{1, 0}, to: Microstate{1, 2}, wantInvalid: true},
		{name: "missing proton edge", from: Microstate{3, 0}, to: Microstate{4, 0}, wantMissing: true},
		{name: "missing Mg edge", from: Microstate{0, 1}, to: Microstate{0, 0}, wantMissing: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d, ref, err := tbl.GetSingleStep(tc.from.NH, tc.to.NH, tc.from.NMg, tc.to.NMg)
			switch {
			case tc.wantInvalid:
				assert.True(t, IsInvalidEquilibrium(err), "%v", err)
			case tc.wantMissing:
				var missing *MissingDissociationConstantError
				require.ErrorAs(t, err, &missing)
				assert.Equal(t, cidPhosphate, missing.CID)
				assert.Equal(t, tc.from.NH, missing.NHFrom)
				assert.Equal(t, tc.from.NMg, missing.NMgFrom)
				assert.Equal(t, tc.to.NH, missing.NHTo)
				assert.Equal(t, tc.to.NMg, missing.NMgTo)
				assert.Equal(t, errors.ErrCodeMissingDissociationConstant, missing.Code())
			case tc.from == tc.to:
				require.NoError(t, err)
				assert.Zero(t, d)
				assert.Empty(t, ref)
			default:
				require.NoError(t, err)
				back, backRef, err := tbl.GetSingleStep(tc.to.NH, tc.from.NH, tc.to.NMg, tc.from.NMg)
				require.NoError(t, err)
				assert.Equal(t, -d, back)
				assert.Equal(t, ref, backRef)
			}
		})
	}
}

func TestUpdateMinNumHydrogens_ZeroIsAValue(t *testing.T) {
	t.Parallel()
	tbl := NewDissociationTable(2)
	tbl.UpdateMinNumHydrogens(3)
	tbl.UpdateMinNumHydrogens(0)
	tbl.UpdateMinNumHydrogens(2)
	nH, ok := tbl.MinNH()
	assert.True(t, ok)
	assert.Equal(t, 0, nH)

	tbl.SetMinNumHydrogens(4)
	nH, _ = tbl.MinNH()
	assert.Equal(t, 4, nH)
}

func TestSetOnlyPseudoisomer(t *testing.T) {
	t.Parallel()

	t.Run("acetate", func(t *testing.T) {
		t.Parallel()
		tbl := NewDissociationTable(cidAcetate)
		require.NoError(t, tbl.SetOnlyPseudoisomer("CC(=O)[O-]", 0))
		nH, _ := tbl.MinNH()
		z, ok := tbl.MinCharge()
		assert.True(t, ok)
		assert.Equal(t, 3, nH)
		assert.Equal(t, -1, z)
		s, ok := tbl.Structure(3, 0)
		assert.True(t, ok)
		assert.Equal(t, "CC(=O)[O-]", s)
	})

	t.Run("magnesium complex", func(t *testing.T) {
		t.Parallel()
		tbl := NewDissociationTable(2)
		require.NoError(t, tbl.SetOnlyPseudoisomer("[Mg+2].OP(=O)([O-])[O-]", 1))
		z, _ := tbl.MinCharge()
		assert.Equal(t, -2, z)
	})

	t.Run("table with equilibria", func(t *testing.T) {
		t.Parallel()
		err := phosphateTable(t).SetOnlyPseudoisomer("OP(O)(O)=O", 0)
		assert.True(t, IsInvalidEquilibrium(err))
	})

	t.Run("malformed structure", func(t *testing.T) {
		t.Parallel()
		err := NewDissociationTable(2).SetOnlyPseudoisomer("C1CC", 0)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidSMILES, errors.GetCode(err))
	})
}

func TestSetCharge(t *testing.T) {
	t.Parallel()
	tbl := NewDissociationTable(2)
	tbl.SetMinNumHydrogens(2)
	tbl.SetCharge(3, -1, 1)
	z, ok := tbl.MinCharge()
	assert.True(t, ok)
	assert.Equal(t, -4, z)
}

func TestCalculateCharge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	nH, z := 1, -2
	catalog := StaticCatalog{
		cidPhosphate: {CID: cidPhosphate, SMILES: "OP([O-])([O-])=O"},
		cidWater:     {CID: cidWater, Hydrogens: &nH, Charge: &z},
	}
	src := CatalogChargeSource{Catalog: catalog}

	t.Run("from structure", func(t *testing.T) {
		t.Parallel()
		tbl := NewDissociationTable(cidPhosphate)
		tbl.SetMinNumHydrogens(0)
		require.NoError(t, tbl.CalculateCharge(ctx, src))
		got, _ := tbl.MinCharge()
		assert.Equal(t, -3, got)
	})

	t.Run("from stored counts", func(t *testing.T) {
		t.Parallel()
		tbl := NewDissociationTable(cidWater)
		tbl.SetMinNumHydrogens(0)
		require.NoError(t, tbl.CalculateCharge(ctx, src))
		got, _ := tbl.MinCharge()
		assert.Equal(t, -3, got)
	})

	t.Run("unknown compound keeps an explicit charge", func(t *testing.T) {
		t.Parallel()
		tbl := NewDissociationTable(cidAcetate)
		require.NoError(t, tbl.SetOnlyPseudoisomer("CC(=O)[O-]", 0))
		require.NoError(t, tbl.CalculateCharge(ctx, src))
		got, _ := tbl.MinCharge()
		assert.Equal(t, -1, got)
	})

	t.Run("unknown compound defaults to zero", func(t *testing.T) {
		t.Parallel()
		tbl := NewDissociationTable(42)
		tbl.SetMinNumHydrogens(2)
		require.NoError(t, tbl.CalculateCharge(ctx, nil))
		got, ok := tbl.MinCharge()
		assert.True(t, ok)
		assert.Equal(t, 0, got)
	})
}

func TestDissociationTable_String(t *testing.T) {
	t.Parallel()
	tbl := phosphateTable(t)
	tbl.Name = "Orthophosphate"
	s := tbl.String()
	assert.Contains(t, s, "C00009 (Orthophosphate): nH=0 z=-3")
	assert.Contains(t, s, "pKa=7.20 [pKa2]")
	assert.Contains(t, s, "pKMg=1.65 [pKMg]")
}

//Personal.AI order the ending
