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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	metricspkg "github.com/tempoproj/tempoflow/pkg/metrics"
)

var joinsCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "asof",
	Name:      "joins_total",
	Help:      "Total number of join calls",
}, []string{metricspkg.LabelJoin, metricspkg.LabelDirection, metricspkg.LabelMode})

var rowsMatchedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "asof",
	Name:      "rows_matched_total",
	Help:      "Total number of emitted rows carrying both sides",
}, []string{metricspkg.LabelJoin})

var rowsUnmatchedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "asof",
	Name:      "rows_unmatched_total",
	Help:      "Total number of retained rows without a selected candidate",
}, []string{metricspkg.LabelJoin})

var rowsAppendedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "asof",
	Name:      "rows_appended_total",
	Help:      "Total number of never selected other rows appended by full mode",
}, []string{metricspkg.LabelJoin})

var rowsSkippedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "asof",
	Name:      "rows_skipped_total",
	Help:      "Total number of rows dropped by lenient timestamp handling",
}, []string{metricspkg.LabelJoin})

var joinErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "asof",
	Name:      "errors_total",
	Help:      "Errors encountered during join calls",
}, []string{metricspkg.LabelJoin})

var joinProcessingTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Subsystem: "asof",
	Name:      "join_processing_time",
	Help:      "Processing times of join calls (100 microseconds to 10 minutes)",
	Buckets:   prometheus.ExponentialBucketsRange(100, 60000000*10, 10),
}, []string{metricspkg.LabelJoin})
