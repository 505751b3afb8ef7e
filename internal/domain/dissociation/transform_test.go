package dissociation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasmincar/milo-lab/internal/domain/thermo"
	"github.com/jasmincar/milo-lab/pkg/errors"
)

func TestTransform_SinglePseudoisomer(t *testing.T) {
	t.Parallel()
	tbl := NewDissociationTable(cidAcetate)
	require.NoError(t, tbl.SetOnlyPseudoisomer("CC(=O)[O-]", 0))
	tbl.SetMinDG0(-369.31)

	conditions := []thermo.Conditions{
		thermo.DefaultConditions(),
		{PH: 5, I: 0, PMg: 3, T: 310.15},
		{PH: 9, I: 0.25, PMg: 14, T: 298.15},
	}
	for _, c := range conditions {
		got, err := tbl.Transform(c)
		require.NoError(t, err)
		want := thermo.LegendreTransform(-369.31, 3, -1, 0, c)
		assert.InDelta(t, want, got, 1e-9)
	}
}

func TestTransform_TwoPseudoisomers(t *testing.T) {
	t.Parallel()
	tbl := NewDissociationTable(2)
	require.NoError(t, tbl.AddpKa(4.76, 4, 3, 0))
	tbl.SetCharge(3, -1, 0)
	tbl.SetMinDG0(-369.31)

	c := thermo.Conditions{PH: 7, I: 0.1, PMg: 14, T: 298.15}
	g0 := thermo.LegendreTransform(-369.31, 3, -1, 0, c)
	g1 := thermo.LegendreTransform(-369.31-4.76*rtln10(), 4, 0, 0, c)
	RT := thermo.R * c.T
	want := -RT * math.Log(math.Exp(-g0/RT)+math.Exp(-g1/RT))

	got, err := tbl.Transform(c)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-9)
}

func TestTransform_PHShift(t *testing.T) {
	t.Parallel()
	// One pKa at 4.76 between nH=4 and nH=3. One pH unit raises ΔG'° by
	// RT·ln10 times the mean hydrogen count over that interval.
	tbl := NewDissociationTable(2)
	require.NoError(t, tbl.AddpKa(4.76, 4, 3, 0))
	tbl.SetCharge(3, -1, 0)
	tbl.SetMinDG0(-369.31)

	shift := func(pH float64) float64 {
		lo, err := tbl.Transform(thermo.Conditions{PH: pH, I: 0.1, PMg: 14, T: thermo.DefaultT})
		require.NoError(t, err)
		hi, err := tbl.Transform(thermo.Conditions{PH: pH + 1, I: 0.1, PMg: 14, T: thermo.DefaultT})
		require.NoError(t, err)
		return (hi - lo) / rtln10()
	}

	tests := []struct {
		name   string
		pH     float64
		meanNH float64
		delta  float64
	}{
		{name: "acidic", pH: 0, meanNH: 4, delta: 0.01},
		{name: "basic", pH: 9, meanNH: 3, delta: 0.001},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := shift(tc.pH)
			assert.Greater(t, got, 0.0)
			assert.InDelta(t, tc.meanNH, got, tc.delta)
		})
	}

	across := shift(4.26)
	assert.Greater(t, across, 3.0)
	assert.Less(t, across, 4.0)
}

func TestGetTransformedDeltaGs_Sorted(t *testing.T) {
	t.Parallel()
	tbl := phosphateTable(t)
	states, err := tbl.GetTransformedDeltaGs(thermo.DefaultConditions(), 0, 0)
	require.NoError(t, err)
	require.Len(t, states, 5)
	for i := 1; i < len(states); i++ {
		assert.LessOrEqual(t, states[i-1].DG0Prime, states[i].DG0Prime)
	}
	for _, s := range states {
		assert.Equal(t, -3+s.NH+2*s.NMg, s.Z)
	}
}

func TestGetMostAbundantPseudoisomer(t *testing.T) {
	t.Parallel()
	tbl := phosphateTable(t)
	tests := []struct {
		pH   float64
		want Microstate
	}{
		{1, Microstate{3, 0}},
		{7, Microstate{2, 0}},
		{8, Microstate{1, 0}},
		{13, Microstate{0, 0}},
	}
	for _, tc := range tests {
		got, err := tbl.GetMostAbundantPseudoisomer(thermo.Conditions{PH: tc.pH, I: 0, PMg: 14, T: thermo.DefaultT})
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "pH %g", tc.pH)
	}
}

func TestGetTransformedDeltaGs_TieBreak(t *testing.T) {
	t.Parallel()
	// With pH = pKa and I = 0 both microstates have exactly the same energy.
	tbl := NewDissociationTable(2)
	require.NoError(t, tbl.AddpKa(7, 1, 0, 0))
	tbl.SetCharge(0, -1, 0)
	c := thermo.Conditions{PH: 7, I: 0, PMg: 14, T: thermo.DefaultT}

	states, err := tbl.GetTransformedDeltaGs(c, 1, 0)
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, states[0].DG0Prime, states[1].DG0Prime)
	assert.Equal(t, 0, states[0].NH)
	assert.Equal(t, 1, states[1].NH)

	ddG0, err := tbl.GetDeltaDeltaG0(c, 1, 0)
	require.NoError(t, err)
	assert.InDelta(t, states[0].DG0Prime-thermo.R*c.T*math.Ln2, ddG0, 1e-9)
}

func TestGetDeltaDeltaG0_SeedWithMg(t *testing.T) {
	t.Parallel()
	_, err := phosphateTable(t).GetDeltaDeltaG0(thermo.DefaultConditions(), 1, 1)
	assert.True(t, IsInvalidEquilibrium(err))
}

func TestGetTransformedDeltaGs_NoCharge(t *testing.T) {
	t.Parallel()
	tbl := NewDissociationTable(2)
	tbl.SetMinNumHydrogens(2)
	_, err := tbl.Transform(thermo.DefaultConditions())
	assert.Equal(t, errors.ErrCodeChargeUndefined, errors.GetCode(err))
}

func TestSetTransformedFormationEnergy(t *testing.T) {
	t.Parallel()
	tbl := phosphateTable(t)
	c := thermo.Conditions{PH: 7.5, I: 0.2, PMg: 3, T: 303.15}

	require.NoError(t, tbl.SetTransformedFormationEnergy(-1059.49, c))
	got, err := tbl.Transform(c)
	require.NoError(t, err)
	assert.InDelta(t, -1059.49, got, 1e-9)
}

func TestGetMostAbundantStructure(t *testing.T) {
	t.Parallel()
	tbl := NewDissociationTable(2)
	require.NoError(t, tbl.AddpKa(4.76, 4, 3, 0, WithStructures("CC(=O)O", "CC(=O)[O-]")))
	tbl.SetCharge(3, -1, 0)

	s, ok, err := tbl.GetMostAbundantStructure(thermo.Conditions{PH: 2, T: thermo.DefaultT, PMg: 14})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "CC(=O)O", s)

	s, ok, err = tbl.GetMostAbundantStructure(thermo.DefaultConditions())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "CC(=O)[O-]", s)
}

func TestGetPseudoisomerMap(t *testing.T) {
	t.Parallel()
	tbl := phosphateTable(t)
	tbl.SetMinDG0(-1018.7)

	m, err := tbl.GetPseudoisomerMap()
	require.NoError(t, err)
	require.Len(t, m, 5)
	assert.Equal(t, -1018.7, m[Microstate{0, 0}].DG0)
	assert.InDelta(t, -1018.7-12.3*rtln10(), m[Microstate{1, 0}].DG0, 1e-9)
}

//Personal.AI order the ending
