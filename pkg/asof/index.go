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

package asof

import (
	"context"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/tempoproj/tempoflow/pkg/row"
)

// candidate is one lookup side row, carrying its arrival position in the
// batch and its timestamp value.
type candidate struct {
	pos int
	t   interface{}
}

// scopeIndex holds the candidates of one equality key scope, sorted by
// timestamp. Entries with equal timestamps keep their arrival order, so the
// first entry of an equal timestamp run is the earliest arrived one.
type scopeIndex struct {
	entries []candidate
}

func (ix *scopeIndex) sortByTime(o *row.Ordering) {
	sort.SliceStable(ix.entries, func(i, j int) bool {
		return o.Compare(ix.entries[i].t, ix.entries[j].t) < 0
	})
}

// backward returns the entry index of the candidate with the greatest
// timestamp at or before t. With several candidates at that timestamp the
// earliest arrived one wins.
func (ix *scopeIndex) backward(o *row.Ordering, t interface{}) (int, bool) {
	hi := sort.Search(len(ix.entries), func(i int) bool {
		return o.Compare(ix.entries[i].t, t) > 0
	})
	if hi == 0 {
		return 0, false
	}
	best := ix.entries[hi-1].t
	lo := sort.Search(len(ix.entries), func(i int) bool {
		return o.Compare(ix.entries[i].t, best) >= 0
	})
	return lo, true
}

// forward returns the entry index of the candidate with the smallest
// timestamp at or after t. With several candidates at that timestamp the
// earliest arrived one wins, it is the first entry of its timestamp run.
func (ix *scopeIndex) forward(o *row.Ordering, t interface{}) (int, bool) {
	i := sort.Search(len(ix.entries), func(i int) bool {
		return o.Compare(ix.entries[i].t, t) >= 0
	})
	if i == len(ix.entries) {
		return 0, false
	}
	return i, true
}

// nearest returns the entry index of the candidate with the smallest
// absolute distance to t. The forward candidate is taken only when it is
// strictly closer, a distance tie keeps the backward one.
func (ix *scopeIndex) nearest(o *row.Ordering, t interface{}) (int, bool) {
	b, okB := ix.backward(o, t)
	f, okF := ix.forward(o, t)
	switch {
	case !okB && !okF:
		return 0, false
	case !okB:
		return f, true
	case !okF:
		return b, true
	default:
		if o.Closer(t, ix.entries[f].t, ix.entries[b].t) {
			return f, true
		}
		return b, true
	}
}

// lookup resolves one probe timestamp to the arrival position of the
// selected candidate.
func (ix *scopeIndex) lookup(o *row.Ordering, d Direction, t interface{}) (int, bool) {
	var entry int
	var ok bool
	switch d {
	case DirectionBackward:
		entry, ok = ix.backward(o, t)
	case DirectionForward:
		entry, ok = ix.forward(o, t)
	case DirectionNearest:
		entry, ok = ix.nearest(o, t)
	}
	if !ok {
		return 0, false
	}
	return ix.entries[entry].pos, true
}

// scopeTable maps canonical key strings to their scope, sharded by key hash
// so shards can be built by independent workers without coordination. Probes
// reach a scope through the shard precomputed in their rowMeta.
type scopeTable struct {
	shards []map[string]*scopeIndex
}

// rowMeta carries the per row values the join needs repeatedly: the canonical
// key string, its shard, and the timestamp.
type rowMeta struct {
	key   string
	shard uint64
	t     interface{}
	valid bool
}

// extractMeta computes the metadata of every row of the batch in parallel
// chunks. With lenient unset the first row with an unusable timestamp fails
// the extraction.
func extractMeta(ctx context.Context, batch *row.Batch, timePos int, keyFn row.KeyFunc, o *row.Ordering, shardCount uint64, parallelism int, lenient bool) ([]rowMeta, error) {
	metas := make([]rowMeta, batch.Len())
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range chunkRanges(batch.Len(), parallelism) {
		lo, hi := r[0], r[1]
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%1024 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				rw := batch.Row(i)
				t := rw.ValueAt(timePos)
				if !o.Valid(t) {
					if !lenient {
						return fmt.Errorf("row %d: %w", i, ErrInvalidTimestamp)
					}
					metas[i] = rowMeta{valid: false}
					continue
				}
				key := keyFn(rw)
				metas[i] = rowMeta{
					key:   key,
					shard: xxhash.Sum64String(key) % shardCount,
					t:     t,
					valid: true,
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return metas, nil
}

// buildTable groups the lookup side rows into scopes and sorts each scope by
// timestamp. One worker owns one shard, walking the metadata in arrival
// order so scope entries arrive ordered before the stable sort.
func buildTable(ctx context.Context, metas []rowMeta, o *row.Ordering, shardCount int) (*scopeTable, error) {
	table := &scopeTable{shards: make([]map[string]*scopeIndex, shardCount)}
	g, ctx := errgroup.WithContext(ctx)
	for s := 0; s < shardCount; s++ {
		shard := uint64(s)
		table.shards[s] = make(map[string]*scopeIndex)
		scopes := table.shards[s]
		g.Go(func() error {
			for i := range metas {
				if i%1024 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				m := &metas[i]
				if !m.valid || m.shard != shard {
					continue
				}
				ix, ok := scopes[m.key]
				if !ok {
					ix = &scopeIndex{}
					scopes[m.key] = ix
				}
				ix.entries = append(ix.entries, candidate{pos: i, t: m.t})
			}
			for _, ix := range scopes {
				ix.sortByTime(o)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return table, nil
}

// chunkRanges splits n elements into at most workers contiguous [lo, hi)
// ranges of near equal size.
func chunkRanges(n, workers int) [][2]int {
	if n == 0 {
		return nil
	}
	if workers > n {
		workers = n
	}
	ranges := make([][2]int, 0, workers)
	size := n / workers
	rest := n % workers
	lo := 0
	for w := 0; w < workers; w++ {
		hi := lo + size
		if w < rest {
			hi++
		}
		ranges = append(ranges, [2]int{lo, hi})
		lo = hi
	}
	return ranges
}
