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

// Package asof joins two bounded batches on the time axis. Every retained
// row selects at most one row from the opposite batch, the one its direction
// policy points at within the rows sharing its equality key values. The
// selection is deterministic, ties on the time axis fall back to arrival
// order.
package asof

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	metricspkg "github.com/tempoproj/tempoflow/pkg/metrics"
	"github.com/tempoproj/tempoflow/pkg/row"
	"github.com/tempoproj/tempoflow/pkg/shared/logging"
)

// OtherFieldPrefix renames other side fields that collide with self side
// field names in the joined schema.
const OtherFieldPrefix = "other_"

const (
	matchNone = -1
	matchSkip = -2
)

// Joiner joins batches of its two schemas. A joiner is immutable after
// construction and safe for concurrent Join calls.
type Joiner struct {
	name   string
	self   *row.Schema
	other  *row.Schema
	joined *row.Schema

	selfTimePos  int
	otherTimePos int
	ordering     *row.Ordering
	selfKey      row.KeyFunc
	otherKey     row.KeyFunc

	selfDefaults  []interface{}
	otherDefaults []interface{}

	direction   Direction
	mode        Mode
	parallelism int
	lenient     bool
}

// Result is the outcome of one Join call.
type Result struct {
	// Batch holds the joined rows.
	Batch *row.Batch
	// Matched counts emitted rows carrying both sides.
	Matched int
	// Unmatched counts retained rows without a selected candidate. They are
	// emitted with defaults, or dropped in inner mode.
	Unmatched int
	// Appended counts never selected other rows added by full mode.
	Appended int
	// Skipped counts rows dropped by lenient timestamp handling.
	Skipped int
}

// NewJoiner builds a joiner over the self and other schemas with the named
// timestamp fields. All schema bound validation happens here, Join calls
// only validate that the batches carry the right schemas.
func NewJoiner(self, other *row.Schema, selfTime, otherTime string, opts ...Option) (*Joiner, error) {
	if self == nil || other == nil {
		return nil, fmt.Errorf("both schemas are required")
	}
	o := DefaultOptions()
	for _, opt := range opts {
		if opt != nil {
			if err := opt(o); err != nil {
				return nil, err
			}
		}
	}

	selfTimePos, err := self.Lookup(selfTime)
	if err != nil {
		return nil, fmt.Errorf("self timestamp field: %w", err)
	}
	otherTimePos, err := other.Lookup(otherTime)
	if err != nil {
		return nil, fmt.Errorf("other timestamp field: %w", err)
	}
	selfKind := self.FieldAt(selfTimePos).Kind
	otherKind := other.FieldAt(otherTimePos).Kind
	if selfKind != otherKind {
		return nil, fmt.Errorf("%w: self %q is %q, other %q is %q",
			ErrTimeKindMismatch, selfTime, selfKind, otherTime, otherKind)
	}
	ordering, err := row.OrderingFor(selfKind)
	if err != nil {
		return nil, fmt.Errorf("timestamp field %q: %w", selfTime, err)
	}

	for _, k := range o.equalityKeys {
		sp, err := self.Lookup(k)
		if err != nil {
			return nil, fmt.Errorf("equality key on self side: %w", err)
		}
		op, err := other.Lookup(k)
		if err != nil {
			return nil, fmt.Errorf("equality key on other side: %w", err)
		}
		if sk, otk := self.FieldAt(sp).Kind, other.FieldAt(op).Kind; sk != otk {
			return nil, fmt.Errorf("equality key %q: self is %q, other is %q", k, sk, otk)
		}
	}
	selfKey, err := self.KeyFuncFor(o.equalityKeys)
	if err != nil {
		return nil, err
	}
	otherKey, err := other.KeyFuncFor(o.equalityKeys)
	if err != nil {
		return nil, err
	}

	for name := range o.defaults {
		_, selfErr := self.Lookup(name)
		_, otherErr := other.Lookup(name)
		if selfErr != nil && otherErr != nil {
			return nil, fmt.Errorf("default value: %w: %q", row.ErrFieldNotFound, name)
		}
	}
	selfDefaults, err := defaultsFor(self, o.defaults, "self")
	if err != nil {
		return nil, err
	}
	otherDefaults, err := defaultsFor(other, o.defaults, "other")
	if err != nil {
		return nil, err
	}

	joined, err := self.Concat(other, OtherFieldPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to build joined schema: %w", err)
	}

	return &Joiner{
		name:          o.name,
		self:          self,
		other:         other,
		joined:        joined,
		selfTimePos:   selfTimePos,
		otherTimePos:  otherTimePos,
		ordering:      ordering,
		selfKey:       selfKey,
		otherKey:      otherKey,
		selfDefaults:  selfDefaults,
		otherDefaults: otherDefaults,
		direction:     o.direction,
		mode:          o.mode,
		parallelism:   o.parallelism,
		lenient:       o.lenient,
	}, nil
}

// Name returns the joiner name used in logs and metrics.
func (j *Joiner) Name() string {
	return j.name
}

// Schema returns the schema of the joined output, self side fields first.
func (j *Joiner) Schema() *row.Schema {
	return j.joined
}

// SelfSchema returns the schema the self side batches must carry.
func (j *Joiner) SelfSchema() *row.Schema {
	return j.self
}

// OtherSchema returns the schema the other side batches must carry.
func (j *Joiner) OtherSchema() *row.Schema {
	return j.other
}

// Join joins the two batches. The self batch must carry the self schema and
// the other batch the other schema the joiner was built with.
func (j *Joiner) Join(ctx context.Context, selfBatch, otherBatch *row.Batch) (*Result, error) {
	if selfBatch == nil || otherBatch == nil {
		return nil, fmt.Errorf("both batches are required")
	}
	if !selfBatch.Schema().Equal(j.self) {
		return nil, fmt.Errorf("%w: self batch", ErrSchemaMismatch)
	}
	if !otherBatch.Schema().Equal(j.other) {
		return nil, fmt.Errorf("%w: other batch", ErrSchemaMismatch)
	}
	log := logging.FromContext(ctx).With("join", j.name)
	start := time.Now()

	// in right mode the other side is retained, so it probes and the self
	// side is indexed
	probeBatch, lookupBatch := selfBatch, otherBatch
	probeTimePos, lookupTimePos := j.selfTimePos, j.otherTimePos
	probeKey, lookupKey := j.selfKey, j.otherKey
	if j.mode == ModeRight {
		probeBatch, lookupBatch = otherBatch, selfBatch
		probeTimePos, lookupTimePos = j.otherTimePos, j.selfTimePos
		probeKey, lookupKey = j.otherKey, j.selfKey
	}

	shardCount := uint64(j.parallelism)
	lookupMetas, err := extractMeta(ctx, lookupBatch, lookupTimePos, lookupKey, j.ordering, shardCount, j.parallelism, j.lenient)
	if err != nil {
		joinErrors.With(map[string]string{metricspkg.LabelJoin: j.name}).Inc()
		return nil, fmt.Errorf("failed to index %s side: %w", j.lookupSideName(), err)
	}
	table, err := buildTable(ctx, lookupMetas, j.ordering, j.parallelism)
	if err != nil {
		joinErrors.With(map[string]string{metricspkg.LabelJoin: j.name}).Inc()
		return nil, fmt.Errorf("failed to index %s side: %w", j.lookupSideName(), err)
	}
	probeMetas, err := extractMeta(ctx, probeBatch, probeTimePos, probeKey, j.ordering, shardCount, j.parallelism, j.lenient)
	if err != nil {
		joinErrors.With(map[string]string{metricspkg.LabelJoin: j.name}).Inc()
		return nil, fmt.Errorf("failed to probe %s side: %w", j.probeSideName(), err)
	}
	matches, err := j.matchProbe(ctx, table, probeMetas)
	if err != nil {
		joinErrors.With(map[string]string{metricspkg.LabelJoin: j.name}).Inc()
		return nil, fmt.Errorf("failed to probe %s side: %w", j.probeSideName(), err)
	}

	res, err := j.emit(probeBatch, lookupBatch, matches, lookupMetas)
	if err != nil {
		joinErrors.With(map[string]string{metricspkg.LabelJoin: j.name}).Inc()
		return nil, err
	}

	j.observe(res, time.Since(start))
	if res.Skipped > 0 {
		log.Warnw("Dropped rows with unusable timestamps", zap.Int("count", res.Skipped))
	}
	log.Debugw("Completed asof join",
		zap.Int("selfRows", selfBatch.Len()),
		zap.Int("otherRows", otherBatch.Len()),
		zap.Int("outRows", res.Batch.Len()),
		zap.Int("matched", res.Matched),
		zap.Int("unmatched", res.Unmatched),
		zap.Duration("took", time.Since(start)))
	return res, nil
}

// matchProbe resolves every probe row to the arrival position of its
// selected lookup row, matchNone without one, matchSkip for lenient drops.
func (j *Joiner) matchProbe(ctx context.Context, table *scopeTable, metas []rowMeta) ([]int, error) {
	matches := make([]int, len(metas))
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range chunkRanges(len(metas), j.parallelism) {
		lo, hi := r[0], r[1]
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%1024 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				m := &metas[i]
				if !m.valid {
					matches[i] = matchSkip
					continue
				}
				ix := table.shards[m.shard][m.key]
				if ix == nil {
					matches[i] = matchNone
					continue
				}
				if pos, ok := ix.lookup(j.ordering, j.direction, m.t); ok {
					matches[i] = pos
				} else {
					matches[i] = matchNone
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return matches, nil
}

// emit assembles the output batch in a single pass over the probe matches,
// so the output order is the probe side arrival order. Full mode appends the
// never selected lookup rows afterwards in their arrival order.
func (j *Joiner) emit(probeBatch, lookupBatch *row.Batch, matches []int, lookupMetas []rowMeta) (*Result, error) {
	out := row.NewBatch(j.joined)
	res := &Result{Batch: out}
	swapped := j.mode == ModeRight

	for i := range lookupMetas {
		if !lookupMetas[i].valid {
			res.Skipped++
		}
	}

	var selected []bool
	if j.mode == ModeFull {
		selected = make([]bool, lookupBatch.Len())
	}

	for i, m := range matches {
		switch {
		case m == matchSkip:
			res.Skipped++
		case m == matchNone:
			res.Unmatched++
			if j.mode == ModeInner {
				continue
			}
			var values []interface{}
			if swapped {
				values = concatValues(j.selfDefaults, probeBatch.Row(i).Values())
			} else {
				values = concatValues(probeBatch.Row(i).Values(), j.otherDefaults)
			}
			if err := out.Append(values...); err != nil {
				return nil, fmt.Errorf("failed to emit row %d: %w", i, err)
			}
		default:
			res.Matched++
			if selected != nil {
				selected[m] = true
			}
			var values []interface{}
			if swapped {
				values = concatValues(lookupBatch.Row(m).Values(), probeBatch.Row(i).Values())
			} else {
				values = concatValues(probeBatch.Row(i).Values(), lookupBatch.Row(m).Values())
			}
			if err := out.Append(values...); err != nil {
				return nil, fmt.Errorf("failed to emit row %d: %w", i, err)
			}
		}
	}

	if j.mode == ModeFull {
		for pos := 0; pos < lookupBatch.Len(); pos++ {
			if selected[pos] || !lookupMetas[pos].valid {
				continue
			}
			values := concatValues(j.selfDefaults, lookupBatch.Row(pos).Values())
			if err := out.Append(values...); err != nil {
				return nil, fmt.Errorf("failed to emit appended row %d: %w", pos, err)
			}
			res.Appended++
		}
	}
	return res, nil
}

func (j *Joiner) observe(res *Result, took time.Duration) {
	labels := map[string]string{metricspkg.LabelJoin: j.name}
	joinsCount.With(map[string]string{
		metricspkg.LabelJoin:      j.name,
		metricspkg.LabelDirection: string(j.direction),
		metricspkg.LabelMode:      string(j.mode),
	}).Inc()
	rowsMatchedCount.With(labels).Add(float64(res.Matched))
	rowsUnmatchedCount.With(labels).Add(float64(res.Unmatched))
	rowsAppendedCount.With(labels).Add(float64(res.Appended))
	rowsSkippedCount.With(labels).Add(float64(res.Skipped))
	joinProcessingTime.With(labels).Observe(float64(took.Microseconds()))
}

func (j *Joiner) probeSideName() string {
	if j.mode == ModeRight {
		return "other"
	}
	return "self"
}

func (j *Joiner) lookupSideName() string {
	if j.mode == ModeRight {
		return "self"
	}
	return "other"
}

func concatValues(a, b []interface{}) []interface{} {
	values := make([]interface{}, 0, len(a)+len(b))
	values = append(values, a...)
	return append(values, b...)
}

func defaultsFor(s *row.Schema, overrides map[string]interface{}, side string) ([]interface{}, error) {
	vals := make([]interface{}, s.Len())
	for i := 0; i < s.Len(); i++ {
		f := s.FieldAt(i)
		vals[i] = f.Kind.ZeroValue()
		if overrides == nil {
			continue
		}
		if ov, ok := overrides[f.Name]; ok {
			if err := f.Kind.CheckValue(ov); err != nil {
				return nil, fmt.Errorf("default value for %s field %q: %w", side, f.Name, err)
			}
			vals[i] = ov
		}
	}
	return vals, nil
}
