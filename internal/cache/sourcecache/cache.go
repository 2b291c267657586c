// Package sourcecache keeps parsed sources (the emissions table, boundary
// collections) in process memory, keyed by source identity. Entries are
// populated on first access and live until the process exits.
package sourcecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/mohammed-shakir/br-emissions/internal/cache/keys"
	"github.com/mohammed-shakir/br-emissions/internal/core/observability"
)

const (
	DefaultSize    = 16
	DefaultTimeout = 30 * time.Second
)

// LoadFunc produces the value for a source on a miss.
type LoadFunc[V any] func(ctx context.Context, source string) (V, error)

type Cache[V any] struct {
	kind    string
	load    LoadFunc[V]
	timeout time.Duration
	lru     *lru.Cache[string, V]
	group   singleflight.Group
}

// New builds a cache for one kind of source ("table", "boundaries"). timeout
// bounds each load; non-positive means DefaultTimeout.
func New[V any](kind string, size int, timeout time.Duration, load LoadFunc[V]) (*Cache[V], error) {
	if kind == "" {
		return nil, errors.New("sourcecache: kind is required")
	}
	if load == nil {
		return nil, errors.New("sourcecache: load func is required")
	}
	if size <= 0 {
		size = DefaultSize
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	l, err := lru.New[string, V](size)
	if err != nil {
		return nil, fmt.Errorf("sourcecache: %w", err)
	}
	return &Cache[V]{kind: kind, load: load, timeout: timeout, lru: l}, nil
}

// Get returns the cached value for source, loading it once on a miss.
// Concurrent misses for the same source share one load. Failed loads are
// not cached.
//
// The shared load runs detached from ctx under the cache timeout, so one
// caller giving up does not fail the others. ctx still bounds how long this
// caller waits.
func (c *Cache[V]) Get(ctx context.Context, source string) (V, error) {
	var zero V
	key := keys.Source(c.kind, source)
	if v, ok := c.lru.Get(key); ok {
		observability.IncSourceCacheHit(c.kind)
		return v, nil
	}
	observability.IncSourceCacheMiss(c.kind)

	ch := c.group.DoChan(key, func() (any, error) {
		if v, ok := c.lru.Get(key); ok {
			return v, nil
		}
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		v, err := c.load(lctx, source)
		if err != nil {
			return v, err
		}
		c.lru.Add(key, v)
		return v, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, fmt.Errorf("load %s %q: %w", c.kind, source, res.Err)
		}
		return res.Val.(V), nil
	case <-ctx.Done():
		return zero, fmt.Errorf("load %s %q: %w", c.kind, source, ctx.Err())
	}
}

// Peek reports whether source is already cached without loading it.
func (c *Cache[V]) Peek(source string) (V, bool) {
	return c.lru.Peek(keys.Source(c.kind, source))
}
