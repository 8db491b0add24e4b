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

package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/atomic"
	"go.uber.org/goleak"

	"github.com/tempoproj/tempoflow/pkg/asof"
	"github.com/tempoproj/tempoflow/pkg/memo"
	"github.com/tempoproj/tempoflow/pkg/memo/store/memory"
	"github.com/tempoproj/tempoflow/pkg/row"
	"github.com/tempoproj/tempoflow/pkg/row/testutils"
)

var testStartTime = time.Unix(1636470000, 0).UTC()

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func memCache(t *testing.T) *memo.Cache {
	t.Helper()
	st, err := memory.NewStores().CreateStore(context.Background(), "pipeline-test")
	assert.NoError(t, err)
	cache, err := memo.NewCache(context.Background(), st)
	assert.NoError(t, err)
	return cache
}

func upperApplier(invocations *atomic.Int64) memo.Applier {
	return memo.ApplyFunc(func(_ context.Context, args []interface{}) ([]byte, error) {
		invocations.Inc()
		return []byte(fmt.Sprintf("enriched-%v", args[0])), nil
	})
}

func TestBuilderValidation(t *testing.T) {
	ctx := context.Background()
	var invocations atomic.Int64

	t.Run("empty pipeline name", func(t *testing.T) {
		b := NewBuilder("")
		b.Source("in", testutils.BuildTrades(1, testStartTime, time.Second))
		_, err := b.Run(ctx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "pipeline name")
	})

	t.Run("no stages", func(t *testing.T) {
		_, err := NewBuilder("empty").Run(ctx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no stages")
	})

	t.Run("bad parallelism", func(t *testing.T) {
		b := NewBuilder("p", WithParallelism(0))
		b.Source("in", testutils.BuildTrades(1, testStartTime, time.Second))
		_, err := b.Run(ctx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "parallelism")
	})

	t.Run("nil source batch", func(t *testing.T) {
		b := NewBuilder("p")
		b.Source("in", nil)
		_, err := b.Run(ctx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), `source "in"`)
	})

	t.Run("duplicate stage names", func(t *testing.T) {
		b := NewBuilder("p")
		b.Source("in", testutils.BuildTrades(1, testStartTime, time.Second))
		b.Source("in", testutils.BuildTrades(1, testStartTime, time.Second))
		_, err := b.Run(ctx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate stage name")
	})

	t.Run("stage of another builder", func(t *testing.T) {
		other := NewBuilder("other")
		foreign := other.Source("in", testutils.BuildTrades(1, testStartTime, time.Second))

		b := NewBuilder("p")
		b.Enrich(foreign, "fn", []string{"symbol"},
			row.Field{Name: "note", Kind: row.KindString},
			upperApplier(&invocations), memCache(t), nil)
		_, err := b.Run(ctx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "another builder")
	})

	t.Run("unknown argument field", func(t *testing.T) {
		b := NewBuilder("p")
		src := b.Source("in", testutils.BuildTrades(1, testStartTime, time.Second))
		b.Enrich(src, "fn", []string{"nope"},
			row.Field{Name: "note", Kind: row.KindString},
			upperApplier(&invocations), memCache(t), nil)
		_, err := b.Run(ctx)
		assert.ErrorIs(t, err, row.ErrFieldNotFound)
	})

	t.Run("result field collides with input", func(t *testing.T) {
		b := NewBuilder("p")
		src := b.Source("in", testutils.BuildTrades(1, testStartTime, time.Second))
		b.Enrich(src, "fn", []string{"symbol"},
			row.Field{Name: "price", Kind: row.KindString},
			upperApplier(&invocations), memCache(t), nil)
		_, err := b.Run(ctx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "collides")
	})

	t.Run("two terminal stages", func(t *testing.T) {
		b := NewBuilder("p")
		b.Source("a", testutils.BuildTrades(1, testStartTime, time.Second))
		b.Source("b", testutils.BuildQuotes(1, testStartTime, time.Second))
		_, err := b.Run(ctx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "exactly one terminal stage")
	})

	t.Run("violations aggregate", func(t *testing.T) {
		b := NewBuilder("p")
		b.Source("in", nil)
		b.Enrich(Stage{}, "", nil, row.Field{}, nil, nil, nil)
		_, err := b.Run(ctx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), `source "in"`)
		assert.Contains(t, err.Error(), "fnID")
	})

	assert.Zero(t, invocations.Load(), "no applier may run for an invalid pipeline")
}

func TestRunSourceOnly(t *testing.T) {
	ctx := context.Background()
	trades := testutils.BuildTrades(3, testStartTime, time.Second)

	b := NewBuilder("passthrough")
	b.Source("in", trades)
	report, err := b.Run(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "passthrough", report.Pipeline)
	assert.NotEmpty(t, report.RunID)
	assert.Same(t, trades, report.Batch)
	assert.Empty(t, report.Joins)
	assert.Empty(t, report.Enrichments)
}

func TestRunJoinAndEnrich(t *testing.T) {
	ctx := context.Background()

	trades := row.NewBatch(testutils.TradeSchema())
	trades.MustAppend("AAA", testStartTime.Add(2*time.Second), 100.25, int64(10))
	trades.MustAppend("BBB", testStartTime.Add(5*time.Second), 55.5, int64(3))

	quotes := row.NewBatch(testutils.QuoteSchema())
	quotes.MustAppend("AAA", testStartTime, 99.5, 100.5)
	quotes.MustAppend("AAA", testStartTime.Add(4*time.Second), 100.0, 101.0)

	joiner, err := asof.NewJoiner(testutils.TradeSchema(), testutils.QuoteSchema(), "at", "at",
		asof.WithName("quotes-at-trade"), asof.WithEqualityKeys("symbol"))
	assert.NoError(t, err)

	var invocations atomic.Int64
	cache := memCache(t)

	build := func() *Builder {
		b := NewBuilder("trades-enriched", WithParallelism(4))
		tr := b.Source("trades", trades)
		qt := b.Source("quotes", quotes)
		joined := b.AsofJoin(tr, qt, joiner)
		b.Enrich(joined, "classify_symbol", []string{"symbol"},
			row.Field{Name: "class", Kind: row.KindString},
			upperApplier(&invocations), cache, nil)
		return b
	}

	report, err := build().Run(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2, report.Batch.Len())
	assert.Greater(t, report.Took, time.Duration(0))

	// AAA at +2s matched the quote at +0s backward, BBB has no quote
	assert.Equal(t, []JoinCounts{{Stage: "quotes-at-trade", Matched: 1, Unmatched: 1}}, report.Joins)
	classPos, err := report.Batch.Schema().Lookup("class")
	assert.NoError(t, err)
	assert.Equal(t, "enriched-AAA", report.Batch.Row(0).ValueAt(classPos))
	assert.Equal(t, "enriched-BBB", report.Batch.Row(1).ValueAt(classPos))
	bidPos, err := report.Batch.Schema().Lookup("bid")
	assert.NoError(t, err)
	assert.Equal(t, 99.5, report.Batch.Row(0).ValueAt(bidPos))

	// two distinct symbols, two computes
	assert.Equal(t, int64(2), invocations.Load())
	assert.Len(t, report.Enrichments, 1)
	assert.Equal(t, "classify_symbol", report.Enrichments[0].Stage)
	assert.Equal(t, 2, report.Enrichments[0].Rows)
	assert.Equal(t, memo.Stats{Calls: 2, Misses: 2}, report.Enrichments[0].Cache)

	// a fresh builder over the same cache reruns without computing
	report, err = build().Run(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), invocations.Load())
	assert.Equal(t, memo.Stats{Calls: 2, Hits: 2}, report.Enrichments[0].Cache)
}

// Six distinct addresses compute once each, a rerun computes nothing, and
// swapping three addresses computes exactly the three new ones.
func TestRunEnrichComputeCounts(t *testing.T) {
	ctx := context.Background()

	schema, err := row.NewSchema(
		row.Field{Name: "user", Kind: row.KindString},
		row.Field{Name: "email", Kind: row.KindString},
	)
	assert.NoError(t, err)
	build := func(emails []string) *row.Batch {
		b := row.NewBatch(schema)
		for i, e := range emails {
			b.MustAppend(fmt.Sprintf("u%d", i), e)
		}
		return b
	}
	emails := []string{"a@x.io", "b@x.io", "c@x.io", "d@x.io", "e@x.io", "f@x.io"}

	var invocations atomic.Int64
	applier := memo.ApplyFunc(func(_ context.Context, _ []interface{}) ([]byte, error) {
		invocations.Inc()
		return []byte("deliverable"), nil
	})
	cache := memCache(t)

	run := func(batch *row.Batch) memo.Stats {
		b := NewBuilder("verify-emails", WithParallelism(3))
		src := b.Source("users", batch)
		b.Enrich(src, "verify_email", []string{"email"},
			row.Field{Name: "verdict", Kind: row.KindString},
			applier, cache, nil)
		report, err := b.Run(ctx)
		assert.NoError(t, err)
		return report.Enrichments[0].Cache
	}

	assert.Equal(t, memo.Stats{Calls: 6, Misses: 6}, run(build(emails)))
	assert.Equal(t, int64(6), invocations.Load())

	assert.Equal(t, memo.Stats{Calls: 6, Hits: 6}, run(build(emails)))
	assert.Equal(t, int64(6), invocations.Load())

	changed := append([]string(nil), emails...)
	changed[1] = "b@y.io"
	changed[3] = "d@y.io"
	changed[5] = "f@y.io"
	assert.Equal(t, memo.Stats{Calls: 6, Hits: 3, Misses: 3}, run(build(changed)))
	assert.Equal(t, int64(9), invocations.Load())
}

// Slower early rows must not push their results behind faster late rows.
func TestRunEnrichKeepsArrivalOrder(t *testing.T) {
	ctx := context.Background()
	const rows = 12

	events := testutils.BuildEvents(rows, "k", 0)
	applier := memo.ApplyFunc(func(_ context.Context, args []interface{}) ([]byte, error) {
		seq := args[0].(int64)
		time.Sleep(time.Duration(rows-seq) * time.Millisecond)
		return []byte(fmt.Sprintf("r%d", seq)), nil
	})

	b := NewBuilder("ordered", WithParallelism(6))
	src := b.Source("events", events)
	b.Enrich(src, "slow_first", []string{"seq"},
		row.Field{Name: "result", Kind: row.KindString},
		applier, memCache(t), nil)

	report, err := b.Run(ctx)
	assert.NoError(t, err)
	assert.Equal(t, rows, report.Batch.Len())
	pos, err := report.Batch.Schema().Lookup("result")
	assert.NoError(t, err)
	for i := 0; i < rows; i++ {
		assert.Equal(t, fmt.Sprintf("r%d", i), report.Batch.Row(i).ValueAt(pos))
	}
	assert.GreaterOrEqual(t, report.Enrichments[0].LatencyMS.P99, report.Enrichments[0].LatencyMS.P50)
}

func TestRunEnrichApplierFailure(t *testing.T) {
	ctx := context.Background()
	applier := memo.ApplyFunc(func(_ context.Context, _ []interface{}) ([]byte, error) {
		return nil, fmt.Errorf("upstream down")
	})

	b := NewBuilder("failing")
	src := b.Source("events", testutils.BuildEvents(3, "k", 0))
	b.Enrich(src, "lookup", []string{"seq"},
		row.Field{Name: "result", Kind: row.KindString},
		applier, memCache(t), nil)

	_, err := b.Run(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `stage "lookup"`)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestRunEnrichDecodeFailure(t *testing.T) {
	ctx := context.Background()
	applier := memo.ApplyFunc(func(_ context.Context, _ []interface{}) ([]byte, error) {
		return []byte("not-a-number"), nil
	})

	b := NewBuilder("baddecode")
	src := b.Source("events", testutils.BuildEvents(1, "k", 0))
	b.Enrich(src, "score", []string{"payload"},
		row.Field{Name: "score", Kind: row.KindFloat},
		applier, memCache(t), nil)

	_, err := b.Run(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode result")
}

func TestRunJoinSchemaMismatch(t *testing.T) {
	ctx := context.Background()
	joiner, err := asof.NewJoiner(testutils.TradeSchema(), testutils.QuoteSchema(), "at", "at")
	assert.NoError(t, err)

	b := NewBuilder("mismatch")
	tr := b.Source("trades", testutils.BuildTrades(1, testStartTime, time.Second))
	b.AsofJoin(tr, tr, joiner)
	_, err = b.Run(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "other schema")
}

func TestRunContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var invocations atomic.Int64
	b := NewBuilder("cancelled")
	src := b.Source("events", testutils.BuildEvents(4, "k", 0))
	b.Enrich(src, "fn", []string{"seq"},
		row.Field{Name: "result", Kind: row.KindString},
		upperApplier(&invocations), memCache(t), nil)

	_, err := b.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, invocations.Load())
}
