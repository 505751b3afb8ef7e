package redis

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jasmincar/milo-lab/internal/config"
	"github.com/jasmincar/milo-lab/internal/domain/dissociation"
	"github.com/jasmincar/milo-lab/internal/domain/thermo"
	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/logging"
)

const (
	transformKeyPrefix = "transform:"
	missingKeyPrefix   = "missing:"
)

// TransformCache memoises ΔG'° per compound and condition, and shares the
// set of compounds whose estimate failed between processes.
type TransformCache struct {
	cache       *Cache
	ttl         time.Duration
	negativeTTL time.Duration
	logger      logging.Logger
}

// NewTransformCache builds the cache with the TTLs from cfg.
func NewTransformCache(client *Client, cfg config.RedisConfig, log logging.Logger) *TransformCache {
	ttl, negTTL := cfg.TransformTTL, cfg.NegativeTTL
	if ttl == 0 {
		ttl = config.DefaultTransformTTL
	}
	if negTTL == 0 {
		negTTL = config.DefaultNegativeTTL
	}
	return &TransformCache{
		cache:       NewCache(client, log, WithDefaultTTL(ttl), WithNullCacheTTL(negTTL)),
		ttl:         ttl,
		negativeTTL: negTTL,
		logger:      log,
	}
}

// TransformKey identifies a transform result. Conditions are written at full
// precision; any two distinct conditions get distinct keys.
func TransformKey(cid dissociation.CID, c thermo.Conditions) string {
	var b strings.Builder
	b.WriteString(transformKeyPrefix)
	b.WriteString(cid.String())
	for _, f := range [...]struct {
		name string
		v    float64
	}{{"ph", c.PH}, {"i", c.I}, {"pmg", c.PMg}, {"t", c.T}} {
		b.WriteString(":" + f.name + "=")
		b.WriteString(strconv.FormatFloat(f.v, 'g', -1, 64))
	}
	return b.String()
}

func missingKey(cid dissociation.CID) string {
	return missingKeyPrefix + cid.String()
}

// Get returns a cached transform, reporting whether one was present.
func (t *TransformCache) Get(ctx context.Context, cid dissociation.CID, c thermo.Conditions) (float64, bool, error) {
	var v float64
	switch err := t.cache.Get(ctx, TransformKey(cid, c), &v); err {
	case nil:
		return v, true, nil
	case ErrCacheMiss, ErrCachedNull:
		return 0, false, nil
	default:
		return 0, false, err
	}
}

// Put stores a transform result.
func (t *TransformCache) Put(ctx context.Context, cid dissociation.CID, c thermo.Conditions, dG0Prime float64) error {
	return t.cache.Set(ctx, TransformKey(cid, c), dG0Prime, t.ttl)
}

// GetOrCompute returns the cached value or runs compute once across
// concurrent callers. cached is true only when the value was read from
// redis. Errors from compute are not cached.
func (t *TransformCache) GetOrCompute(ctx context.Context, cid dissociation.CID, c thermo.Conditions,
	compute func(ctx context.Context) (float64, error)) (v float64, cached bool, err error) {
	cached, err = t.cache.Load(ctx, TransformKey(cid, c), &v, t.ttl, func(ctx context.Context) (interface{}, error) {
		return compute(ctx)
	})
	return v, cached, err
}

// MarkMissing records that no dissociation table could be built for cid.
func (t *TransformCache) MarkMissing(ctx context.Context, cid dissociation.CID) error {
	return t.cache.SetNull(ctx, missingKey(cid), t.negativeTTL)
}

// IsMissing reports whether another process recently failed to build a
// table for cid.
func (t *TransformCache) IsMissing(ctx context.Context, cid dissociation.CID) (bool, error) {
	var ignored struct{}
	switch err := t.cache.Get(ctx, missingKey(cid), &ignored); err {
	case ErrCachedNull:
		return true, nil
	case nil, ErrCacheMiss:
		return false, nil
	default:
		return false, err
	}
}

// Invalidate drops every cached transform and negative entry. It is called
// whenever the registry contents change.
func (t *TransformCache) Invalidate(ctx context.Context) (int64, error) {
	n, err := t.cache.DeleteByPrefix(ctx, transformKeyPrefix)
	if err != nil {
		return n, err
	}
	m, err := t.cache.DeleteByPrefix(ctx, missingKeyPrefix)
	if err == nil {
		t.logger.Debug("transform cache invalidated", logging.Int64("keys", n+m))
	}
	return n + m, err
}

//Personal.AI order the ending
