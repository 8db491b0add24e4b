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

// Package pipeline assembles bounded batch runs out of source, join and
// enrich stages. A Builder holds the stages of exactly one run, Run executes
// them and hands back a report. Nothing is shared between builders, a second
// run starts from a fresh one.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tempoproj/tempoflow/pkg/asof"
	"github.com/tempoproj/tempoflow/pkg/memo"
	metricspkg "github.com/tempoproj/tempoflow/pkg/metrics"
	"github.com/tempoproj/tempoflow/pkg/row"
	"github.com/tempoproj/tempoflow/pkg/shared/logging"
)

// Stage is a handle to one defined stage, used to wire later stages to its
// output. A Stage is only valid with the builder that produced it.
type Stage struct {
	b  *Builder
	id int
}

type stageDef struct {
	name   string
	source *sourceDef
	join   *joinDef
	enrich *enrichDef
	// schema of the stage output, resolved at definition time
	schema *row.Schema
	// consumed is set when a later stage reads this stage
	consumed bool
	// batch is the stage output, set during Run
	batch *row.Batch
}

type sourceDef struct {
	batch *row.Batch
}

type joinDef struct {
	left   int
	right  int
	joiner *asof.Joiner
}

type enrichDef struct {
	input   int
	fnID    string
	argPos  []int
	out     row.Field
	applier memo.Applier
	cache   *memo.Cache
	decode  Decoder
}

// Builder collects the stages of one pipeline run. Definition methods do not
// return errors, violations accumulate and fail Run before any row is
// processed. A Builder is not safe for concurrent use and is spent after Run.
type Builder struct {
	name        string
	parallelism int
	stages      []*stageDef
	errs        error
}

// NewBuilder returns a builder for the named pipeline.
func NewBuilder(name string, opts ...Option) *Builder {
	b := &Builder{name: name, parallelism: 1}
	if name == "" {
		b.errs = multierr.Append(b.errs, fmt.Errorf("pipeline name must not be empty"))
	}
	for _, opt := range opts {
		if opt != nil {
			if err := opt(b); err != nil {
				b.errs = multierr.Append(b.errs, err)
			}
		}
	}
	return b
}

func (b *Builder) add(def *stageDef) Stage {
	for _, s := range b.stages {
		if s.name == def.name {
			b.errs = multierr.Append(b.errs, fmt.Errorf("duplicate stage name %q", def.name))
		}
	}
	b.stages = append(b.stages, def)
	return Stage{b: b, id: len(b.stages) - 1}
}

// invalid records err and returns a handle to a placeholder stage, so a
// caller chaining definitions off a broken one still gets every violation
// reported by Run instead of a panic.
func (b *Builder) invalid(name string, err error) Stage {
	b.errs = multierr.Append(b.errs, err)
	b.stages = append(b.stages, &stageDef{name: name})
	return Stage{b: b, id: len(b.stages) - 1}
}

// Source defines a stage emitting the given batch unchanged.
func (b *Builder) Source(name string, batch *row.Batch) Stage {
	if batch == nil {
		return b.invalid(name, fmt.Errorf("source %q: batch is required", name))
	}
	return b.add(&stageDef{
		name:   name,
		source: &sourceDef{batch: batch},
		schema: batch.Schema(),
	})
}

// AsofJoin defines a stage joining the left stage's batch to the right
// stage's batch with the given joiner. The stage is named after the joiner.
func (b *Builder) AsofJoin(left, right Stage, joiner *asof.Joiner) Stage {
	if joiner == nil {
		return b.invalid("asof", fmt.Errorf("asof join: joiner is required"))
	}
	name := joiner.Name()
	l, err := b.resolve(left)
	if err != nil {
		return b.invalid(name, fmt.Errorf("asof join %q: left: %w", name, err))
	}
	r, err := b.resolve(right)
	if err != nil {
		return b.invalid(name, fmt.Errorf("asof join %q: right: %w", name, err))
	}
	if l.schema != nil && !l.schema.Equal(joiner.SelfSchema()) {
		return b.invalid(name, fmt.Errorf("asof join %q: left stage %q does not carry the joiner's self schema", name, l.name))
	}
	if r.schema != nil && !r.schema.Equal(joiner.OtherSchema()) {
		return b.invalid(name, fmt.Errorf("asof join %q: right stage %q does not carry the joiner's other schema", name, r.name))
	}
	l.consumed = true
	r.consumed = true
	return b.add(&stageDef{
		name:   name,
		join:   &joinDef{left: left.id, right: right.id, joiner: joiner},
		schema: joiner.Schema(),
	})
}

// Enrich defines a stage appending one computed field to every row of the
// input stage. The named argument fields feed the applier through the cache
// under fnID, decode turns the applier payload into the out field's value
// and defaults to DecoderFor of the out kind when nil. The stage is named
// after fnID.
func (b *Builder) Enrich(input Stage, fnID string, argFields []string, out row.Field, applier memo.Applier, cache *memo.Cache, decode Decoder) Stage {
	if fnID == "" {
		return b.invalid("enrich", fmt.Errorf("enrich: fnID must not be empty"))
	}
	in, err := b.resolve(input)
	if err != nil {
		return b.invalid(fnID, fmt.Errorf("enrich %q: input: %w", fnID, err))
	}
	if applier == nil {
		return b.invalid(fnID, fmt.Errorf("enrich %q: applier is required", fnID))
	}
	if cache == nil {
		return b.invalid(fnID, fmt.Errorf("enrich %q: cache is required", fnID))
	}
	if in.schema == nil {
		// the input stage failed definition already, one report is enough
		return b.invalid(fnID, fmt.Errorf("enrich %q: input stage %q has no schema", fnID, in.name))
	}
	if out.Name == "" {
		return b.invalid(fnID, fmt.Errorf("enrich %q: result field name must not be empty", fnID))
	}
	argPos := make([]int, len(argFields))
	for i, f := range argFields {
		p, err := in.schema.Lookup(f)
		if err != nil {
			return b.invalid(fnID, fmt.Errorf("enrich %q: argument field: %w", fnID, err))
		}
		argPos[i] = p
	}
	schema, err := in.schema.Concat(mustSchema(out), "")
	if err != nil {
		return b.invalid(fnID, fmt.Errorf("enrich %q: result field %q collides with an input field", fnID, out.Name))
	}
	if decode == nil {
		decode, err = DecoderFor(out.Kind)
		if err != nil {
			return b.invalid(fnID, fmt.Errorf("enrich %q: %w", fnID, err))
		}
	}
	in.consumed = true
	return b.add(&stageDef{
		name: fnID,
		enrich: &enrichDef{
			input:   input.id,
			fnID:    fnID,
			argPos:  argPos,
			out:     out,
			applier: applier,
			cache:   cache,
			decode:  decode,
		},
		schema: schema,
	})
}

func (b *Builder) resolve(s Stage) (*stageDef, error) {
	if s.b != b {
		return nil, fmt.Errorf("stage belongs to another builder")
	}
	if s.id < 0 || s.id >= len(b.stages) {
		return nil, fmt.Errorf("unknown stage")
	}
	return b.stages[s.id], nil
}

// validate aggregates every definition violation plus the structural checks
// only possible once all stages are known: the run needs stages, and exactly
// one stage may be left unconsumed, it is the run output.
func (b *Builder) validate() error {
	errs := b.errs
	if len(b.stages) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("pipeline has no stages"))
		return errs
	}
	if errs != nil {
		return errs
	}
	var terminals []string
	for _, s := range b.stages {
		if !s.consumed {
			terminals = append(terminals, s.name)
		}
	}
	if len(terminals) != 1 {
		errs = multierr.Append(errs, fmt.Errorf("pipeline must have exactly one terminal stage, found %d %v", len(terminals), terminals))
	}
	return errs
}

// Run validates the pipeline and executes its stages in definition order,
// which is a topological order because a stage can only consume handles
// defined before it. The report carries the terminal stage's batch.
func (b *Builder) Run(ctx context.Context) (*Report, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	runID := uuid.New().String()
	log := logging.FromContext(ctx).With("pipeline", b.name).With("runID", runID)
	ctx = logging.WithLogger(ctx, log)
	start := time.Now()

	report := &Report{Pipeline: b.name, RunID: runID}
	var terminal *stageDef
	for _, s := range b.stages {
		if err := b.runStage(ctx, s, report); err != nil {
			runErrors.With(map[string]string{metricspkg.LabelPipeline: b.name}).Inc()
			return nil, fmt.Errorf("stage %q: %w", s.name, err)
		}
		log.Debugw("Completed stage", zap.String("stage", s.name), zap.Int("rows", s.batch.Len()))
		if !s.consumed {
			terminal = s
		}
	}

	report.Batch = terminal.batch
	report.Took = time.Since(start)
	runsCount.With(map[string]string{metricspkg.LabelPipeline: b.name}).Inc()
	rowsOutCount.With(map[string]string{metricspkg.LabelPipeline: b.name}).Add(float64(report.Batch.Len()))
	runProcessingTime.With(map[string]string{metricspkg.LabelPipeline: b.name}).Observe(float64(report.Took.Microseconds()))
	log.Infow("Completed pipeline run",
		zap.Int("stages", len(b.stages)),
		zap.Int("rowsOut", report.Batch.Len()),
		zap.Duration("took", report.Took))
	return report, nil
}

func (b *Builder) runStage(ctx context.Context, s *stageDef, report *Report) error {
	switch {
	case s.source != nil:
		s.batch = s.source.batch
		return nil
	case s.join != nil:
		res, err := s.join.joiner.Join(ctx, b.stages[s.join.left].batch, b.stages[s.join.right].batch)
		if err != nil {
			return err
		}
		s.batch = res.Batch
		report.Joins = append(report.Joins, JoinCounts{
			Stage:     s.name,
			Matched:   res.Matched,
			Unmatched: res.Unmatched,
			Appended:  res.Appended,
			Skipped:   res.Skipped,
		})
		return nil
	case s.enrich != nil:
		return b.runEnrich(ctx, s, report)
	default:
		return fmt.Errorf("stage has no operation")
	}
}

// runEnrich resolves every input row through the cache in parallel chunks.
// Results land in a position indexed slice, so the output batch keeps the
// input arrival order no matter which worker finished first.
func (b *Builder) runEnrich(ctx context.Context, s *stageDef, report *Report) error {
	e := s.enrich
	in := b.stages[e.input].batch
	before := e.cache.Stats()

	values := make([]interface{}, in.Len())
	latencies := make([]float64, in.Len())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.parallelism)
	for i := 0; i < in.Len(); i++ {
		i := i
		g.Go(func() error {
			args := make([]interface{}, len(e.argPos))
			for j, p := range e.argPos {
				args[j] = in.Row(i).ValueAt(p)
			}
			invokeStart := time.Now()
			payload, err := e.cache.Invoke(gctx, e.fnID, args, e.applier)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			latencies[i] = float64(time.Since(invokeStart).Microseconds()) / 1000.0
			v, err := e.decode(payload)
			if err != nil {
				return fmt.Errorf("row %d: failed to decode result: %w", i, err)
			}
			if err := e.out.Kind.CheckValue(v); err != nil {
				return fmt.Errorf("row %d: decoded result: %w", i, err)
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := row.NewBatch(s.schema)
	for i := 0; i < in.Len(); i++ {
		vals := append(in.Row(i).Values(), values[i])
		if err := out.Append(vals...); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	s.batch = out
	report.Enrichments = append(report.Enrichments, EnrichmentReport{
		Stage:     s.name,
		Rows:      in.Len(),
		Cache:     delta(before, e.cache.Stats()),
		LatencyMS: summarizeLatency(latencies),
	})
	return nil
}

func mustSchema(f row.Field) *row.Schema {
	s, err := row.NewSchema(f)
	if err != nil {
		panic(err)
	}
	return s
}
