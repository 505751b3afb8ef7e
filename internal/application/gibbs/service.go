// Package gibbs provides the application service of the dissociation engine.
// It sits between the transports (HTTP, CLI, the Kafka worker) and the
// dissociation registry, and owns persistence, caching, object storage and
// event publication around it.
package gibbs

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"sort"
	"time"

	"github.com/jasmincar/milo-lab/internal/domain/dissociation"
	"github.com/jasmincar/milo-lab/internal/domain/thermo"
	"github.com/jasmincar/milo-lab/internal/infrastructure/messaging/kafka"
	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/logging"
	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/prometheus"
	"github.com/jasmincar/milo-lab/internal/infrastructure/storage/minio"
	"github.com/jasmincar/milo-lab/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Dependencies
// ─────────────────────────────────────────────────────────────────────────────

// RowStore persists the registry in the row contract. Both the Postgres and
// the SQLite stores satisfy it.
type RowStore interface {
	SaveRows(ctx context.Context, rows []dissociation.Row) error
	LoadRows(ctx context.Context) ([]dissociation.Row, error)
}

// TransformCache memoises transforms across processes.
type TransformCache interface {
	GetOrCompute(ctx context.Context, cid dissociation.CID, c thermo.Conditions,
		compute func(ctx context.Context) (float64, error)) (v float64, cached bool, err error)
	MarkMissing(ctx context.Context, cid dissociation.CID) error
	IsMissing(ctx context.Context, cid dissociation.CID) (bool, error)
	Invalidate(ctx context.Context) (int64, error)
}

// Locker serialises writers of the row store across processes.
type Locker interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
}

// ObjectStore reads CSV inputs and stores exports.
type ObjectStore interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, data []byte, contentType string) (*minio.ObjectInfo, error)
}

// Presigner is implemented by object stores that can hand out temporary
// download links. A zero expiry uses the store default.
type Presigner interface {
	PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// EventPublisher announces finished reverse-transform batches.
type EventPublisher interface {
	PublishReverseTransformCompleted(ctx context.Context, payload kafka.ReverseTransformCompletedPayload) error
}

var (
	ErrNoRowStore    = errors.New(errors.ErrCodeServiceUnavailable, "no row store configured")
	ErrNoObjectStore = errors.New(errors.ErrCodeServiceUnavailable, "no object store configured")
)

// ─────────────────────────────────────────────────────────────────────────────
// DTOs
// ─────────────────────────────────────────────────────────────────────────────

// ImportResult summarises a load into the registry.
type ImportResult struct {
	Source    string `json:"source"`
	Records   int    `json:"records"`
	Skipped   int    `json:"skipped"`
	Compounds int    `json:"compounds"`
}

// CompoundSummary is one entry of the compound listing.
type CompoundSummary struct {
	CID        string `json:"cid"`
	Name       string `json:"name,omitempty"`
	MinNH      *int   `json:"min_nH,omitempty"`
	Equilibria int    `json:"equilibria"`
}

// TransformInput selects a compound and, optionally, a condition. A nil
// condition uses the service default.
type TransformInput struct {
	CID        dissociation.CID
	Conditions *thermo.Conditions
}

// TransformResult is the transformed formation energy of one compound.
type TransformResult struct {
	CID          string                   `json:"cid"`
	Conditions   thermo.Conditions        `json:"conditions"`
	DG0Prime     float64                  `json:"dG0_prime"`
	MostAbundant *dissociation.Microstate `json:"most_abundant,omitempty"`
	SMILES       string                   `json:"smiles,omitempty"`
	Cached       bool                     `json:"cached"`
}

// PseudoisomerResult lists every generated microstate of a compound.
type PseudoisomerResult struct {
	CID           string                            `json:"cid"`
	Name          string                            `json:"name,omitempty"`
	Pseudoisomers []*dissociation.PseudoisomerEntry `json:"pseudoisomers"`
	Table         string                            `json:"table"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Service
// ─────────────────────────────────────────────────────────────────────────────

// Service defines the application operations of the engine.
type Service interface {
	ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error)
	ImportObject(ctx context.Context, key string) (*ImportResult, error)
	LoadFromStore(ctx context.Context) (*ImportResult, error)
	SaveToStore(ctx context.Context) (int, error)
	ListCompounds(ctx context.Context) ([]CompoundSummary, error)
	Transform(ctx context.Context, input *TransformInput) (*TransformResult, error)
	Pseudoisomers(ctx context.Context, cid dissociation.CID) (*PseudoisomerResult, error)
	ReverseTransform(ctx context.Context, input *ReverseTransformInput) (*ReverseTransformResult, error)
	ReverseTransformObject(ctx context.Context, req kafka.ReverseTransformRequestedPayload) (*ReverseTransformResult, error)
	ExportCSV(ctx context.Context, w io.Writer) (int, error)
	ExportObject(ctx context.Context, key string) (*minio.ObjectInfo, error)
	DefaultConditions() thermo.Conditions
}

// Option configures the service.
type Option func(*serviceImpl)

// WithRowStore persists the registry through store; driver labels metrics.
func WithRowStore(store RowStore, driver string) Option {
	return func(s *serviceImpl) {
		s.store = store
		s.driver = driver
	}
}

// WithTransformCache shares transform results through cache.
func WithTransformCache(cache TransformCache) Option {
	return func(s *serviceImpl) { s.cache = cache }
}

// WithLocker guards SaveToStore with a distributed lock.
func WithLocker(l Locker) Option {
	return func(s *serviceImpl) { s.locker = l }
}

// WithObjectStore enables object imports and exports.
func WithObjectStore(o ObjectStore) Option {
	return func(s *serviceImpl) { s.objects = o }
}

// WithEventPublisher announces completed batches.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *serviceImpl) { s.events = p }
}

// WithMetrics records service metrics.
func WithMetrics(m *prometheus.Metrics) Option {
	return func(s *serviceImpl) { s.metrics = m }
}

// WithDefaultConditions sets the condition used when a request gives none.
func WithDefaultConditions(c thermo.Conditions) Option {
	return func(s *serviceImpl) { s.defaults = c }
}

// WithCreateIfMissing lets lookups of unknown compounds consult the estimator.
func WithCreateIfMissing(v bool) Option {
	return func(s *serviceImpl) { s.createIfMissing = v }
}

// WithWorkers bounds the concurrency of batch reverse transforms.
func WithWorkers(n int) Option {
	return func(s *serviceImpl) { s.workers = n }
}

type serviceImpl struct {
	registry        *dissociation.Registry
	store           RowStore
	driver          string
	cache           TransformCache
	locker          Locker
	objects         ObjectStore
	events          EventPublisher
	metrics         *prometheus.Metrics
	defaults        thermo.Conditions
	createIfMissing bool
	workers         int
	logger          logging.Logger
	now             func() time.Time
}

// NewService creates the application service around registry.
func NewService(registry *dissociation.Registry, logger logging.Logger, opts ...Option) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &serviceImpl{
		registry:        registry,
		metrics:         prometheus.NewNopMetrics(),
		defaults:        thermo.DefaultConditions(),
		createIfMissing: true,
		workers:         1,
		logger:          logger,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *serviceImpl) DefaultConditions() thermo.Conditions {
	return s.defaults
}

// ─────────────────────────────────────────────────────────────────────────────
// Loading and persistence
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	records, err := dissociation.ParseEquilibriumCSV(r)
	if err != nil {
		return nil, err
	}
	report, err := s.registry.LoadRecords(ctx, records)
	s.metrics.EquilibriumRecordsLoaded.WithLabelValues("csv").Add(float64(report.Records))
	s.metrics.EquilibriumRecordsSkipped.WithLabelValues("csv").Add(float64(report.Skipped))
	if err != nil {
		return nil, err
	}
	s.registryChanged(ctx)

	s.logger.Info("equilibrium table imported",
		logging.Int("records", report.Records),
		logging.Int("skipped", report.Skipped),
		logging.Int("compounds", report.Compounds))
	return &ImportResult{
		Source:    "csv",
		Records:   report.Records,
		Skipped:   report.Skipped,
		Compounds: report.Compounds,
	}, nil
}

func (s *serviceImpl) ImportObject(ctx context.Context, key string) (*ImportResult, error) {
	if s.objects == nil {
		return nil, ErrNoObjectStore
	}
	rc, err := s.objects.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	res, err := s.ImportCSV(ctx, rc)
	if err != nil {
		return nil, err
	}
	res.Source = key
	return res, nil
}

func (s *serviceImpl) LoadFromStore(ctx context.Context) (*ImportResult, error) {
	if s.store == nil {
		return nil, ErrNoRowStore
	}
	start := time.Now()
	rows, err := s.store.LoadRows(ctx)
	s.metrics.RecordStoreOperation(s.driver, "load_rows", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	skipped, err := s.registry.LoadRows(ctx, rows)
	s.metrics.EquilibriumRecordsLoaded.WithLabelValues(s.driver).Add(float64(len(rows) - skipped))
	s.metrics.EquilibriumRecordsSkipped.WithLabelValues(s.driver).Add(float64(skipped))
	if err != nil {
		return nil, err
	}
	s.registryChanged(ctx)

	s.logger.Info("registry loaded from store",
		logging.String("driver", s.driver),
		logging.Int("rows", len(rows)),
		logging.Int("skipped", skipped))
	return &ImportResult{
		Source:    s.driver,
		Records:   len(rows) - skipped,
		Skipped:   skipped,
		Compounds: s.registry.Len(),
	}, nil
}

func (s *serviceImpl) SaveToStore(ctx context.Context) (n int, err error) {
	if s.store == nil {
		return 0, ErrNoRowStore
	}
	if s.locker != nil {
		if err := s.locker.Lock(ctx); err != nil {
			return 0, err
		}
		defer func() {
			if uerr := s.locker.Unlock(context.WithoutCancel(ctx)); uerr != nil {
				s.logger.Warn("failed to release store lock", logging.Err(uerr))
			}
		}()
	}

	rows := s.registry.ToRows()
	start := time.Now()
	err = s.store.SaveRows(ctx, rows)
	s.metrics.RecordStoreOperation(s.driver, "save_rows", time.Since(start), err)
	if err != nil {
		return 0, err
	}
	s.logger.Info("registry saved", logging.String("driver", s.driver), logging.Int("rows", len(rows)))
	return len(rows), nil
}

// registryChanged drops cached transforms once the registry contents change.
func (s *serviceImpl) registryChanged(ctx context.Context) {
	s.metrics.RegistryCompounds.WithLabelValues().Set(float64(s.registry.Len()))
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("failed to invalidate transform cache", logging.Err(err))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) ListCompounds(ctx context.Context) ([]CompoundSummary, error) {
	cids := s.registry.GetAllCIDs()
	out := make([]CompoundSummary, 0, len(cids))
	for _, cid := range cids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, ok := s.registry.Table(cid)
		if !ok {
			continue
		}
		sum := CompoundSummary{CID: cid.String(), Name: t.Name, Equilibria: t.Len()}
		if nH, ok := t.MinNH(); ok {
			sum.MinNH = &nH
		}
		out = append(out, sum)
	}
	return out, nil
}

func (s *serviceImpl) Transform(ctx context.Context, input *TransformInput) (*TransformResult, error) {
	c := s.defaults
	if input.Conditions != nil {
		c = *input.Conditions
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cid := input.CID
	start := time.Now()

	if err := s.checkKnown(ctx, cid); err != nil {
		s.metrics.RecordTransform("missing", time.Since(start))
		return nil, err
	}

	compute := func(ctx context.Context) (float64, error) {
		return s.registry.Transform(ctx, cid, c)
	}

	var (
		dG0Prime float64
		cached   bool
		err      error
	)
	if s.cache != nil {
		dG0Prime, cached, err = s.cache.GetOrCompute(ctx, cid, c, compute)
	} else {
		dG0Prime, err = compute(ctx)
	}
	if err != nil {
		return nil, s.transformFailed(ctx, cid, start, err)
	}
	if s.cache != nil {
		s.metrics.RecordCacheAccess(cached)
	}
	s.metrics.RecordTransform("ok", time.Since(start))

	res := &TransformResult{
		CID:        cid.String(),
		Conditions: c,
		DG0Prime:   dG0Prime,
		Cached:     cached,
	}
	if t, ok := s.registry.Table(cid); ok {
		if m, err := t.GetMostAbundantPseudoisomer(c); err == nil {
			res.MostAbundant = &m
		}
		if smiles, ok, err := t.GetMostAbundantStructure(c); err == nil && ok {
			res.SMILES = smiles
		}
	}
	return res, nil
}

// checkKnown rejects compounds that are known to have no table, either
// locally, by another process, or because estimation is disabled.
func (s *serviceImpl) checkKnown(ctx context.Context, cid dissociation.CID) error {
	if s.registry.IsMissing(cid) {
		return noTable(cid, nil)
	}
	if _, ok := s.registry.Table(cid); ok {
		return nil
	}
	if !s.createIfMissing {
		return noTable(cid, nil)
	}
	if s.cache == nil {
		return nil
	}
	missing, err := s.cache.IsMissing(ctx, cid)
	if err != nil {
		s.logger.Warn("negative cache lookup failed", logging.Stringer("cid", cid), logging.Err(err))
		return nil
	}
	if missing {
		s.registry.SetMissing(cid)
		return noTable(cid, nil)
	}
	return nil
}

func (s *serviceImpl) transformFailed(ctx context.Context, cid dissociation.CID, start time.Time, err error) error {
	var missing *dissociation.MissingDissociationConstantError
	if !stderrors.As(err, &missing) {
		s.metrics.RecordTransform("error", time.Since(start))
		s.metrics.RecordError("transform", string(errors.GetCode(err)))
		return err
	}
	s.metrics.RecordTransform("missing", time.Since(start))
	if !missing.NoTable {
		return err
	}
	if s.cache != nil {
		if merr := s.cache.MarkMissing(ctx, cid); merr != nil {
			s.logger.Warn("failed to mark compound missing", logging.Stringer("cid", cid), logging.Err(merr))
		}
	}
	return noTable(cid, err)
}

func noTable(cid dissociation.CID, cause error) error {
	e := errors.New(errors.ErrCodeCompoundNotFound, "compound has no dissociation table").
		WithDetail("cid=" + cid.String())
	if cause != nil {
		e = e.WithCause(cause)
	}
	return e
}

func (s *serviceImpl) Pseudoisomers(ctx context.Context, cid dissociation.CID) (*PseudoisomerResult, error) {
	if err := s.checkKnown(ctx, cid); err != nil {
		return nil, err
	}
	m, err := s.registry.GetPseudoisomerMap(ctx, cid)
	if err != nil {
		var missing *dissociation.MissingDissociationConstantError
		if stderrors.As(err, &missing) && missing.NoTable {
			return nil, noTable(cid, err)
		}
		return nil, err
	}
	t, _ := s.registry.Table(cid)

	entries := make([]*dissociation.PseudoisomerEntry, 0, len(m))
	for _, e := range m {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Magnesiums != entries[j].Magnesiums {
			return entries[i].Magnesiums < entries[j].Magnesiums
		}
		return entries[i].Hydrogens < entries[j].Hydrogens
	})
	return &PseudoisomerResult{
		CID:           cid.String(),
		Name:          t.Name,
		Pseudoisomers: entries,
		Table:         t.String(),
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Export
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	rows := s.registry.ToRows()
	if err := dissociation.WriteRowsCSV(w, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (s *serviceImpl) ExportObject(ctx context.Context, key string) (*minio.ObjectInfo, error) {
	if s.objects == nil {
		return nil, ErrNoObjectStore
	}
	var buf bytes.Buffer
	n, err := s.ExportCSV(ctx, &buf)
	if err != nil {
		return nil, err
	}
	info, err := s.objects.Put(ctx, key, buf.Bytes(), minio.ContentTypeCSV)
	if err != nil {
		return nil, err
	}
	s.logger.Info("registry exported", logging.String("key", key), logging.Int("rows", n))
	return info, nil
}

//Personal.AI order the ending
