package observer

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/nevindra/docex"
)

// ObservedCache wraps a docex.Cache and counts lookups and writes.
type ObservedCache struct {
	inner docex.Cache
	inst  *Instruments
}

var _ docex.Cache = (*ObservedCache)(nil)

// WrapCache returns an instrumented cache.
func WrapCache(inner docex.Cache, inst *Instruments) *ObservedCache {
	return &ObservedCache{inner: inner, inst: inst}
}

func (o *ObservedCache) Load(ctx context.Context, key docex.CacheKey) (*docex.CacheEntry, error) {
	e, err := o.inner.Load(ctx, key)
	result := "hit"
	switch {
	case err != nil:
		result = "error"
	case e == nil:
		result = "miss"
	}
	o.inst.CacheLookups.Add(ctx, 1, metric.WithAttributes(AttrCacheResult.String(result)))
	return e, err
}

func (o *ObservedCache) Save(ctx context.Context, key docex.CacheKey, e *docex.CacheEntry) error {
	err := o.inner.Save(ctx, key, e)
	status := "ok"
	if err != nil {
		status = "error"
	}
	o.inst.CacheSaves.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	return err
}
