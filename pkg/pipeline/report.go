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
	"time"

	"github.com/montanaflynn/stats"

	"github.com/tempoproj/tempoflow/pkg/memo"
	"github.com/tempoproj/tempoflow/pkg/row"
)

// Report is the outcome of one pipeline run.
type Report struct {
	// Pipeline is the name the builder was created with.
	Pipeline string
	// RunID identifies this run in logs.
	RunID string
	// Batch is the terminal stage's output.
	Batch *row.Batch
	// Joins holds the counts of every join stage in definition order.
	Joins []JoinCounts
	// Enrichments holds the cache and latency summary of every enrich stage
	// in definition order.
	Enrichments []EnrichmentReport
	// Took is the wall clock duration of the run.
	Took time.Duration
}

// JoinCounts carries the row counts of one join stage.
type JoinCounts struct {
	Stage     string
	Matched   int
	Unmatched int
	Appended  int
	Skipped   int
}

// EnrichmentReport carries the cache activity and invocation latency of one
// enrich stage. Cache counts are the stage's own, a cache shared across
// stages or runs reports only what this stage added.
type EnrichmentReport struct {
	Stage     string
	Rows      int
	Cache     memo.Stats
	LatencyMS Latency
}

// Latency summarizes per row invocation latencies in milliseconds. Cache
// hits count too, which is what makes a well cached rerun visibly cheap.
type Latency struct {
	P50 float64
	P90 float64
	P99 float64
}

// delta returns the counter movement between two snapshots of one cache.
func delta(before, after memo.Stats) memo.Stats {
	return memo.Stats{
		Calls:          after.Calls - before.Calls,
		Hits:           after.Hits - before.Hits,
		Misses:         after.Misses - before.Misses,
		FailuresCached: after.FailuresCached - before.FailuresCached,
		CorruptEntries: after.CorruptEntries - before.CorruptEntries,
	}
}

func summarizeLatency(latencies []float64) Latency {
	var l Latency
	if len(latencies) == 0 {
		return l
	}
	// Percentile only errors on empty input, which is handled above
	l.P50, _ = stats.Percentile(latencies, 50)
	l.P90, _ = stats.Percentile(latencies, 90)
	l.P99, _ = stats.Percentile(latencies, 99)
	return l
}
