package dissociation

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/jasmincar/milo-lab/internal/domain/thermo"
	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/logging"
)

type cacheEntry struct {
	resolved bool
	table    *DissociationTable
}

// Registry owns the dissociation tables of many compounds.
//
// A resolved entry with a nil table records that the compound has no table;
// such entries are never retried. Tables are built while the registry is
// being loaded; afterwards reads may run concurrently.
type Registry struct {
	mu      sync.RWMutex
	entries map[CID]cacheEntry

	estimator Estimator
	charges   ChargeSource
	logger    logging.Logger
	group     singleflight.Group
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithEstimator sets the fallback used by GetDissociationTable for unknown compounds.
func WithEstimator(e Estimator) RegistryOption {
	return func(r *Registry) { r.estimator = e }
}

// WithChargeSource sets the source of reference charges.
func WithChargeSource(s ChargeSource) RegistryOption {
	return func(r *Registry) { r.charges = s }
}

// WithLogger sets the registry logger.
func WithLogger(l logging.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		entries: make(map[CID]cacheEntry),
		logger:  logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ─────────────────────────────────────────────────────────────────────────────
// Lookup
// ─────────────────────────────────────────────────────────────────────────────

// Table returns the table of cid without consulting the estimator. ok is
// false when the compound is unknown or has no table.
func (r *Registry) Table(cid CID) (*DissociationTable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e := r.entries[cid]
	return e.table, e.table != nil
}

// GetDissociationTable returns the table of cid. When the compound is
// unknown and createIfMissing is set, the estimator is asked once; a failed
// estimate is cached as "no table". A nil table with a nil error means the
// compound has no table.
func (r *Registry) GetDissociationTable(ctx context.Context, cid CID, createIfMissing bool) (*DissociationTable, error) {
	r.mu.RLock()
	e, ok := r.entries[cid]
	r.mu.RUnlock()
	if ok && e.resolved {
		return e.table, nil
	}
	if !createIfMissing {
		return nil, nil
	}

	v, err, _ := r.group.Do(strconv.Itoa(int(cid)), func() (interface{}, error) {
		r.mu.RLock()
		e, ok := r.entries[cid]
		r.mu.RUnlock()
		if ok && e.resolved {
			return e.table, nil
		}

		var table *DissociationTable
		if r.estimator != nil {
			t, err := r.estimator.Estimate(ctx, cid)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				r.logger.Debug("dissociation estimate failed",
					logging.Stringer("cid", cid), logging.Err(err))
			} else {
				table = t
			}
		}
		if table != nil && !table.hasCharge {
			if err := table.CalculateCharge(ctx, r.charges); err != nil {
				return nil, err
			}
		}

		r.mu.Lock()
		r.entries[cid] = cacheEntry{resolved: true, table: table}
		r.mu.Unlock()
		return table, nil
	})
	if err != nil {
		return nil, err
	}
	t, _ := v.(*DissociationTable)
	return t, nil
}

// GetOrCreate returns the table of cid, creating an empty one if needed.
// A cached "no table" entry is replaced.
func (r *Registry) GetOrCreate(cid CID) *DissociationTable {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e := r.entries[cid]; e.table != nil {
		return e.table
	}
	t := NewDissociationTable(cid)
	r.entries[cid] = cacheEntry{resolved: true, table: t}
	return t
}

// Set stores t under its CID.
func (r *Registry) Set(t *DissociationTable) {
	r.mu.Lock()
	r.entries[t.CID] = cacheEntry{resolved: true, table: t}
	r.mu.Unlock()
}

// SetMissing records that cid has no table.
func (r *Registry) SetMissing(cid CID) {
	r.mu.Lock()
	r.entries[cid] = cacheEntry{resolved: true}
	r.mu.Unlock()
}

// IsMissing reports whether cid is cached as having no table.
func (r *Registry) IsMissing(cid CID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[cid]
	return ok && e.resolved && e.table == nil
}

// GetAllCIDs returns every compound with a table, in ascending order.
func (r *Registry) GetAllCIDs() []CID {
	r.mu.RLock()
	cids := make([]CID, 0, len(r.entries))
	for cid, e := range r.entries {
		if e.table != nil {
			cids = append(cids, cid)
		}
	}
	r.mu.RUnlock()
	sort.Slice(cids, func(i, j int) bool { return cids[i] < cids[j] })
	return cids
}

func (r *Registry) allCIDs() []CID {
	r.mu.RLock()
	cids := make([]CID, 0, len(r.entries))
	for cid := range r.entries {
		cids = append(cids, cid)
	}
	r.mu.RUnlock()
	sort.Slice(cids, func(i, j int) bool { return cids[i] < cids[j] })
	return cids
}

// Len returns the number of cached compounds, including "no table" entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// ─────────────────────────────────────────────────────────────────────────────
// Building
// ─────────────────────────────────────────────────────────────────────────────

// AddpKa adds an acid-base equilibrium to the table of cid.
func (r *Registry) AddpKa(cid CID, pKa float64, nHBelow, nHAbove, nMg int, opts ...EdgeOption) error {
	return r.GetOrCreate(cid).AddpKa(pKa, nHBelow, nHAbove, nMg, opts...)
}

// AddpKMg adds a magnesium-binding equilibrium to the table of cid.
func (r *Registry) AddpKMg(cid CID, pKMg float64, nMgBelow, nMgAbove, nH int, opts ...EdgeOption) error {
	return r.GetOrCreate(cid).AddpKMg(pKMg, nMgBelow, nMgAbove, nH, opts...)
}

// SetOnlyPseudoisomer describes cid by a single structure.
func (r *Registry) SetOnlyPseudoisomer(cid CID, smiles string, nMg int) error {
	return r.GetOrCreate(cid).SetOnlyPseudoisomer(smiles, nMg)
}

// CalculateAllCharges sets the reference charge of every table from the
// registry's charge source.
func (r *Registry) CalculateAllCharges(ctx context.Context) error {
	for _, cid := range r.GetAllCIDs() {
		t, _ := r.Table(cid)
		if err := t.CalculateCharge(ctx, r.charges); err != nil {
			return err
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

func (r *Registry) requireTable(ctx context.Context, cid CID) (*DissociationTable, error) {
	return r.lookupTable(ctx, cid, true)
}

// lookupTable is requireTable with the estimator fallback under the
// caller's control.
func (r *Registry) lookupTable(ctx context.Context, cid CID, createIfMissing bool) (*DissociationTable, error) {
	t, err := r.GetDissociationTable(ctx, cid, createIfMissing)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, &MissingDissociationConstantError{CID: cid, NoTable: true}
	}
	return t, nil
}

// ConvertPseudoisomer moves a formation energy of cid between microstates.
func (r *Registry) ConvertPseudoisomer(ctx context.Context, cid CID, dG0 float64, from, to Microstate) (float64, error) {
	t, err := r.requireTable(ctx, cid)
	if err != nil {
		return 0, err
	}
	return t.ConvertPseudoisomer(dG0, from.NH, to.NH, from.NMg, to.NMg)
}

// ConvertToReference moves a formation energy of cid to its reference microstate.
func (r *Registry) ConvertToReference(ctx context.Context, cid CID, dG0 float64, from Microstate) (float64, error) {
	t, err := r.requireTable(ctx, cid)
	if err != nil {
		return 0, err
	}
	nH, ok := t.MinNH()
	if !ok {
		return 0, chargeUndefined(cid, "reference hydrogen count is not set")
	}
	return t.ConvertPseudoisomer(dG0, from.NH, nH, from.NMg, 0)
}

// Transform returns the transformed formation energy of cid at c.
func (r *Registry) Transform(ctx context.Context, cid CID, c thermo.Conditions) (float64, error) {
	t, err := r.requireTable(ctx, cid)
	if err != nil {
		return 0, err
	}
	return t.Transform(c)
}

// GetPseudoisomerMap returns the generated microstates of cid.
func (r *Registry) GetPseudoisomerMap(ctx context.Context, cid CID) (map[Microstate]*PseudoisomerEntry, error) {
	t, err := r.requireTable(ctx, cid)
	if err != nil {
		return nil, err
	}
	return t.GetPseudoisomerMap()
}

// GetMol returns the structure of a microstate of cid, if known.
func (r *Registry) GetMol(ctx context.Context, cid CID, m Microstate) (string, bool, error) {
	t, err := r.requireTable(ctx, cid)
	if err != nil {
		return "", false, err
	}
	s, ok := t.Structure(m.NH, m.NMg)
	return s, ok, nil
}

// GetMostAbundantMol returns the structure of the most abundant microstate
// of cid at c. A compound without a table has no structure.
func (r *Registry) GetMostAbundantMol(ctx context.Context, cid CID, c thermo.Conditions) (string, bool, error) {
	t, err := r.GetDissociationTable(ctx, cid, true)
	if err != nil || t == nil {
		return "", false, err
	}
	return t.GetMostAbundantStructure(c)
}

// ─────────────────────────────────────────────────────────────────────────────
// Persistence
// ─────────────────────────────────────────────────────────────────────────────

// ToRows renders every cached compound in ascending CID order. Compounds
// cached as "no table" produce a single row with nil fields.
func (r *Registry) ToRows() []Row {
	var rows []Row
	for _, cid := range r.allCIDs() {
		r.mu.RLock()
		e := r.entries[cid]
		r.mu.RUnlock()
		if e.table == nil {
			rows = append(rows, Row{CID: cid})
			continue
		}
		rows = append(rows, e.table.ToRows()...)
	}
	return rows
}

// LoadRows rebuilds tables from persisted rows and then recomputes charges.
// Rows with malformed structures are skipped with a warning.
func (r *Registry) LoadRows(ctx context.Context, rows []Row) (int, error) {
	skipped := 0
	for _, row := range rows {
		if row.IsMissing() {
			r.SetMissing(row.CID)
			continue
		}
		t := r.GetOrCreate(row.CID)
		if row.Name != "" {
			t.Name = row.Name
		}
		if err := t.UpdateRow(row); err != nil {
			if IsInvalidEquilibrium(err) {
				return skipped, err
			}
			r.logger.Warn("skipping dissociation row",
				logging.Stringer("cid", row.CID), logging.Err(err))
			skipped++
		}
	}
	return skipped, r.CalculateAllCharges(ctx)
}

//Personal.AI order the ending
