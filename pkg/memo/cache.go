/*
Copyright 2023 The Tempoproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package memo deduplicates function invocations against a durable store.
// An invocation is addressed by the function identity and its ordered
// arguments, and the compute function runs at most once per address for the
// lifetime of the store, restarts included. Concurrent callers of the same
// address share one in-flight compute.
package memo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/tempoproj/tempoflow/pkg/memo/store"
	metricspkg "github.com/tempoproj/tempoflow/pkg/metrics"
	"github.com/tempoproj/tempoflow/pkg/shared/logging"
)

// Cache memoizes invocations in a durable store. It is safe for concurrent
// use.
type Cache struct {
	name          string
	store         store.Store
	group         singleflight.Group
	sem           *semaphore.Weighted
	hot           *lru.Cache[string, []byte]
	cacheFailures bool
	log           *zap.SugaredLogger

	calls          atomic.Int64
	hits           atomic.Int64
	misses         atomic.Int64
	failuresCached atomic.Int64
	corruptEntries atomic.Int64
}

// Stats is a point in time snapshot of cache activity. Calls counts Invoke
// calls that resolved a key, Hits the ones served without running the
// compute function and Misses the ones that ran it. FailuresCached counts
// recorded failures and CorruptEntries the stored entries discarded as
// unreadable.
type Stats struct {
	Calls          int64
	Hits           int64
	Misses         int64
	FailuresCached int64
	CorruptEntries int64
}

// invokeResult is what one single-flight carries back to its callers.
type invokeResult struct {
	payload   []byte
	fromCache bool
}

// NewCache builds a cache on top of the given store. The cache does not own
// the store, closing it is the caller's business.
func NewCache(ctx context.Context, st store.Store, opts ...Option) (*Cache, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			if err := opt(o); err != nil {
				return nil, err
			}
		}
	}
	c := &Cache{
		name:          o.name,
		store:         st,
		sem:           semaphore.NewWeighted(int64(o.maxInflight)),
		cacheFailures: o.cacheFailures,
		log:           logging.FromContext(ctx).With("memoCache", o.name),
	}
	if o.hotCacheSize > 0 {
		c.hot, _ = lru.New[string, []byte](o.hotCacheSize)
	}
	return c, nil
}

// Name returns the cache name used in logs and metrics.
func (c *Cache) Name() string {
	return c.name
}

// Invoke returns the memoized result for fnID over args, running the applier
// only when no usable entry exists. Failed computes are returned to every
// waiting caller and are not recorded unless failure caching is on.
func (c *Cache) Invoke(ctx context.Context, fnID string, args []interface{}, applier Applier) ([]byte, error) {
	if applier == nil {
		return nil, fmt.Errorf("applier is required")
	}
	key, err := CacheKey(fnID, args)
	if err != nil {
		return nil, err
	}
	c.calls.Inc()
	callsCount.With(c.labels(fnID)).Inc()

	if payload, ok := c.hotGet(key); ok {
		c.recordHit(fnID)
		return payload, nil
	}

	// led is only set in the caller whose closure actually ran, the others
	// joined its flight
	var led bool
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		led = true
		return c.invokeKey(ctx, key, fnID, args, applier)
	})
	if err != nil {
		if errors.Is(err, ErrFailureCached) {
			c.recordHit(fnID)
		} else if led {
			invokeErrors.With(c.labels(fnID)).Inc()
		}
		return nil, err
	}
	r := v.(invokeResult)
	if !led || r.fromCache {
		c.recordHit(fnID)
	} else {
		c.recordMiss(fnID)
	}
	return r.payload, nil
}

// Stats returns a snapshot of the activity counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Calls:          c.calls.Load(),
		Hits:           c.hits.Load(),
		Misses:         c.misses.Load(),
		FailuresCached: c.failuresCached.Load(),
		CorruptEntries: c.corruptEntries.Load(),
	}
}

// invokeKey runs inside the single-flight for key. It consults the durable
// store, computes on a miss and persists the outcome.
func (c *Cache) invokeKey(ctx context.Context, key, fnID string, args []interface{}, applier Applier) (invokeResult, error) {
	entry, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		if entry.Valid {
			c.hotAdd(key, entry.Payload)
			return invokeResult{payload: entry.Payload, fromCache: true}, nil
		}
		if c.cacheFailures {
			return invokeResult{fromCache: true}, fmt.Errorf("%w: %s", ErrFailureCached, entry.Payload)
		}
		// a recorded failure with failure caching off gets recomputed
	case errors.Is(err, store.ErrEntryNotFound):
	case errors.Is(err, store.ErrEntryCorrupt):
		c.corruptEntries.Inc()
		corruptEntriesCount.With(c.labels(fnID)).Inc()
		c.log.Warnw("Discarding corrupt entry", zap.String("key", key), zap.Error(err))
	default:
		return invokeResult{}, fmt.Errorf("failed to read store: %w", err)
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return invokeResult{}, err
	}
	applyStart := time.Now()
	payload, applyErr := applier.Apply(ctx, args)
	c.sem.Release(1)
	applyTime.With(c.labels(fnID)).Observe(float64(time.Since(applyStart).Microseconds()))

	if applyErr != nil {
		if c.cacheFailures {
			failure := &store.Entry{
				FnID:      fnID,
				Payload:   []byte(applyErr.Error()),
				CreatedAt: time.Now().UTC(),
			}
			if putErr := c.store.Put(ctx, key, failure); putErr != nil {
				c.log.Warnw("Failed to record failure", zap.String("key", key), zap.Error(putErr))
			} else {
				c.failuresCached.Inc()
			}
		}
		return invokeResult{}, applyErr
	}

	// another writer may have published while we computed, the stored entry
	// wins so every reader observes one result per key
	if existing, getErr := c.store.Get(ctx, key); getErr == nil && existing.Valid {
		if !bytes.Equal(existing.Payload, payload) {
			c.log.Warnw("Recomputed result differs from stored entry, keeping stored",
				zap.String("fnID", fnID), zap.String("key", key))
		}
		c.hotAdd(key, existing.Payload)
		return invokeResult{payload: existing.Payload, fromCache: false}, nil
	}

	entry = &store.Entry{
		FnID:      fnID,
		Payload:   payload,
		Valid:     true,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.store.Put(ctx, key, entry); err != nil {
		return invokeResult{}, fmt.Errorf("failed to persist result: %w", err)
	}
	c.hotAdd(key, payload)
	return invokeResult{payload: payload, fromCache: false}, nil
}

func (c *Cache) hotGet(key string) ([]byte, bool) {
	if c.hot == nil {
		return nil, false
	}
	return c.hot.Get(key)
}

func (c *Cache) hotAdd(key string, payload []byte) {
	if c.hot != nil {
		c.hot.Add(key, payload)
	}
}

func (c *Cache) recordHit(fnID string) {
	c.hits.Inc()
	hitsCount.With(c.labels(fnID)).Inc()
}

func (c *Cache) recordMiss(fnID string) {
	c.misses.Inc()
	missesCount.With(c.labels(fnID)).Inc()
}

func (c *Cache) labels(fnID string) map[string]string {
	return map[string]string{
		metricspkg.LabelStore:    c.name,
		metricspkg.LabelFunction: fnID,
	}
}
