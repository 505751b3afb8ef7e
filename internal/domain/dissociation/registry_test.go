package dissociation

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasmincar/milo-lab/internal/domain/thermo"
	"github.com/jasmincar/milo-lab/internal/testutil"
)

type fakeEstimator struct {
	calls atomic.Int32
	fn    func(ctx context.Context, cid CID) (*DissociationTable, error)
}

func (f *fakeEstimator) Estimate(ctx context.Context, cid CID) (*DissociationTable, error) {
	f.calls.Add(1)
	return f.fn(ctx, cid)
}

func TestRegistry_GetDissociationTable_NegativeCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	est := &fakeEstimator{fn: func(context.Context, CID) (*DissociationTable, error) {
		return nil, stderrors.New("no structure")
	}}
	logger := testutil.NewMockLogger()
	reg := NewRegistry(WithEstimator(est), WithLogger(logger))

	for i := 0; i < 3; i++ {
		tbl, err := reg.GetDissociationTable(ctx, 80, true)
		require.NoError(t, err)
		assert.Nil(t, tbl)
	}
	assert.Equal(t, int32(1), est.calls.Load())
	assert.True(t, reg.IsMissing(80))
	assert.Equal(t, 1, logger.CountMessages("debug", "dissociation estimate failed"))

	_, err := reg.Transform(ctx, 80, thermo.DefaultConditions())
	var missing *MissingDissociationConstantError
	require.ErrorAs(t, err, &missing)
	assert.True(t, missing.NoTable)
	assert.Equal(t, "no dissociation table for C00080", missing.Error())
}

func TestRegistry_GetDissociationTable_Estimate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	catalog := StaticCatalog{cidAcetate: {CID: cidAcetate, Name: "Acetate", SMILES: "CC(=O)[O-]"}}
	reg := NewRegistry(
		WithEstimator(StructureEstimator{Catalog: catalog}),
		WithChargeSource(CatalogChargeSource{Catalog: catalog}),
	)

	tbl, err := reg.GetDissociationTable(ctx, cidAcetate, false)
	require.NoError(t, err)
	assert.Nil(t, tbl, "no estimate without createIfMissing")
	assert.Zero(t, reg.Len())

	tbl, err = reg.GetDissociationTable(ctx, cidAcetate, true)
	require.NoError(t, err)
	require.NotNil(t, tbl)
	assert.Equal(t, "Acetate", tbl.Name)
	z, _ := tbl.MinCharge()
	assert.Equal(t, -1, z)

	again, err := reg.GetDissociationTable(ctx, cidAcetate, false)
	require.NoError(t, err)
	assert.Same(t, tbl, again)

	s, ok, err := reg.GetMostAbundantMol(ctx, cidAcetate, thermo.DefaultConditions())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "CC(=O)[O-]", s)

	_, ok, err = reg.GetMostAbundantMol(ctx, 99, thermo.DefaultConditions())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_GetDissociationTable_CancelledIsNotCached(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	est := &fakeEstimator{fn: func(ctx context.Context, _ CID) (*DissociationTable, error) {
		cancel()
		return nil, ctx.Err()
	}}
	reg := NewRegistry(WithEstimator(est))

	_, err := reg.GetDissociationTable(ctx, 2, true)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, reg.IsMissing(2))
	assert.Zero(t, reg.Len())
}

func TestRegistry_GetDissociationTable_Concurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	catalog := StaticCatalog{cidAcetate: {CID: cidAcetate, SMILES: "CC(=O)[O-]"}}
	reg := NewRegistry(WithEstimator(StructureEstimator{Catalog: catalog}))

	var wg sync.WaitGroup
	tables := make([]*DissociationTable, 16)
	for i := range tables {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tables[i], _ = reg.GetDissociationTable(ctx, cidAcetate, true)
		}(i)
	}
	wg.Wait()
	for _, tbl := range tables {
		assert.Same(t, tables[0], tbl)
	}
}

func TestRegistry_GetOrCreate_ReplacesMissing(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	reg.SetMissing(2)
	require.NoError(t, reg.AddpKa(2, 4, 1, 0, 0))
	assert.False(t, reg.IsMissing(2))
	require.NoError(t, reg.AddpKMg(2, 2, 1, 0, 1))

	tbl, ok := reg.Table(2)
	require.True(t, ok)
	assert.Equal(t, 2, tbl.Len())
}

func TestRegistry_Conversions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg := NewRegistry()
	reg.Set(phosphateTable(t))

	got, err := reg.ConvertToReference(ctx, cidPhosphate, -1096.1, Microstate{NH: 1})
	require.NoError(t, err)
	assert.InDelta(t, -1096.1+12.3*rtln10(), got, 1e-9)

	got, err = reg.ConvertPseudoisomer(ctx, cidPhosphate, 0, Microstate{NH: 0}, Microstate{NH: 2})
	require.NoError(t, err)
	assert.InDelta(t, -19.5*rtln10(), got, 1e-9)

	m, err := reg.GetPseudoisomerMap(ctx, cidPhosphate)
	require.NoError(t, err)
	assert.Len(t, m, 5)

	s, ok, err := reg.GetMol(ctx, cidPhosphate, Microstate{NH: 1})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, s)
}

func TestRegistry_CalculateAllCharges(t *testing.T) {
	t.Parallel()
	catalog := StaticCatalog{cidPhosphate: {CID: cidPhosphate, SMILES: "OP([O-])([O-])=O"}}
	reg := NewRegistry(WithChargeSource(CatalogChargeSource{Catalog: catalog}))
	require.NoError(t, reg.AddpKa(cidPhosphate, 12.3, 1, 0, 0))

	require.NoError(t, reg.CalculateAllCharges(context.Background()))
	tbl, _ := reg.Table(cidPhosphate)
	z, ok := tbl.MinCharge()
	assert.True(t, ok)
	assert.Equal(t, -3, z)
}

//Personal.AI order the ending
