package dissociation

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasmincar/milo-lab/internal/testutil"
)

func TestToRows_Sentinel(t *testing.T) {
	t.Parallel()
	tbl := NewDissociationTable(cidAcetate)
	require.NoError(t, tbl.SetOnlyPseudoisomer("CC(=O)[O-]", 0))

	rows := tbl.ToRows()
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, 3, *r.NHBelow)
	assert.Equal(t, 3, *r.NHAbove)
	assert.Equal(t, 0, *r.NMgBelow)
	assert.Equal(t, 0, *r.NMgAbove)
	assert.Equal(t, "CC(=O)[O-]", *r.SMILESBelow)
	assert.Equal(t, "CC(=O)[O-]", *r.SMILESAbove)
	assert.Equal(t, 0.0, *r.DDG0)
	assert.Equal(t, "", *r.Ref)
}

func TestToRows_UpdateRow_RoundTrip(t *testing.T) {
	t.Parallel()
	src := phosphateTable(t)
	require.NoError(t, src.AddpKa(7.2, 2, 1, 0, WithRef("pKa2"), WithStructures("OP(O)([O-])=O", "OP([O-])([O-])=O")))

	rows := src.ToRows()
	require.Len(t, rows, 4)
	for i := 1; i < len(rows); i++ {
		prev := EdgeKey{*rows[i-1].NHAbove, *rows[i-1].NHBelow, *rows[i-1].NMgAbove, *rows[i-1].NMgBelow}
		cur := EdgeKey{*rows[i].NHAbove, *rows[i].NHBelow, *rows[i].NMgAbove, *rows[i].NMgBelow}
		assert.True(t, prev.Less(cur))
	}

	dst := NewDissociationTable(cidPhosphate)
	for _, r := range rows {
		require.NoError(t, dst.UpdateRow(r))
	}
	assert.Equal(t, src.Keys(), dst.Keys())
	for _, k := range src.Keys() {
		want, _ := src.Edge(k)
		got, _ := dst.Edge(k)
		assert.Equal(t, want, got, "edge %+v must survive bit for bit", k)
	}
	srcNH, _ := src.MinNH()
	dstNH, _ := dst.MinNH()
	assert.Equal(t, srcNH, dstNH)
	s, ok := dst.Structure(1, 0)
	assert.True(t, ok)
	assert.Equal(t, "OP([O-])([O-])=O", s)
}

func TestUpdateRow_Errors(t *testing.T) {
	t.Parallel()
	two, three, zero := 2, 3, 0
	ddG := -10.0
	bad := "C1CC"

	tests := []struct {
		name string
		row  Row
		code func(error) bool
	}{
		{"non-unit", Row{NHBelow: &three, NHAbove: &zero, NMgBelow: &zero, NMgAbove: &zero, DDG0: &ddG}, IsInvalidEquilibrium},
		{"both dimensions", Row{NHBelow: &three, NHAbove: &two, NMgBelow: &two, NMgAbove: &zero, DDG0: &ddG}, IsInvalidEquilibrium},
		{"incomplete", Row{NHBelow: &three}, func(err error) bool { return err != nil && !IsInvalidEquilibrium(err) }},
		{"no ddG", Row{NHBelow: &three, NHAbove: &two, NMgBelow: &zero, NMgAbove: &zero}, func(err error) bool { return err != nil && !IsInvalidEquilibrium(err) }},
		{"bad structure", Row{NHBelow: &three, NHAbove: &two, NMgBelow: &zero, NMgAbove: &zero, DDG0: &ddG, SMILESBelow: &bad}, func(err error) bool { return err != nil && !IsInvalidEquilibrium(err) }},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := NewDissociationTable(2).UpdateRow(tc.row)
			assert.True(t, tc.code(err), "%v", err)
		})
	}
}

func TestRegistry_RowsRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg := NewRegistry()
	reg.Set(phosphateTable(t))
	require.NoError(t, reg.SetOnlyPseudoisomer(cidAcetate, "CC(=O)[O-]", 0))
	reg.SetMissing(5)

	rows := reg.ToRows()
	require.Len(t, rows, 4+1+1)
	assert.Equal(t, CID(5), rows[0].CID)
	assert.True(t, rows[0].IsMissing())

	logger := testutil.NewMockLogger()
	loaded := NewRegistry(WithLogger(logger))
	skipped, err := loaded.LoadRows(ctx, rows)
	require.NoError(t, err)
	assert.Zero(t, skipped)

	assert.True(t, loaded.IsMissing(5))
	assert.Equal(t, []CID{cidPhosphate, cidAcetate}, loaded.GetAllCIDs())
	acetate, ok := loaded.Table(cidAcetate)
	require.True(t, ok)
	nH, _ := acetate.MinNH()
	assert.Equal(t, 3, nH)
	assert.Equal(t, rows, loaded.ToRows())
}

func TestRegistry_LoadRows_SkipsMalformedStructure(t *testing.T) {
	t.Parallel()
	one, zero := 1, 0
	ddG := 0.0
	bad := "C1CC"
	logger := testutil.NewMockLogger()
	reg := NewRegistry(WithLogger(logger))

	skipped, err := reg.LoadRows(context.Background(), []Row{
		{CID: 7, NHBelow: &one, NHAbove: &one, NMgBelow: &zero, NMgAbove: &zero, SMILESBelow: &bad, DDG0: &ddG},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.True(t, logger.HasMessage("warn", "skipping dissociation row"))
}

func TestWriteRowsCSV(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	require.NoError(t, reg.SetOnlyPseudoisomer(cidAcetate, "CC(=O)[O-]", 0))
	reg.SetMissing(5)

	var buf bytes.Buffer
	require.NoError(t, WriteRowsCSV(&buf, reg.ToRows()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(RowColumns, ","), lines[0])
	assert.Equal(t, "5,,,,,,,,,", lines[1])
	assert.Equal(t, "33,,3,3,0,0,CC(=O)[O-],CC(=O)[O-],0,", lines[2])
}

//Personal.AI order the ending
