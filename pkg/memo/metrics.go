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

package memo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	metricspkg "github.com/tempoproj/tempoflow/pkg/metrics"
)

var callsCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "memo",
	Name:      "calls_total",
	Help:      "Total number of Invoke calls",
}, []string{metricspkg.LabelStore, metricspkg.LabelFunction})

var hitsCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "memo",
	Name:      "hits_total",
	Help:      "Total number of calls served without running the compute function",
}, []string{metricspkg.LabelStore, metricspkg.LabelFunction})

var missesCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "memo",
	Name:      "misses_total",
	Help:      "Total number of calls that ran the compute function",
}, []string{metricspkg.LabelStore, metricspkg.LabelFunction})

var corruptEntriesCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "memo",
	Name:      "corrupt_entries_total",
	Help:      "Total number of stored entries discarded as corrupt",
}, []string{metricspkg.LabelStore, metricspkg.LabelFunction})

var invokeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "memo",
	Name:      "errors",
	Help:      "Errors encountered",
}, []string{metricspkg.LabelStore, metricspkg.LabelFunction})

var applyTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Subsystem: "memo",
	Name:      "apply_time",
	Help:      "Compute function processing time (100 microseconds to 60 seconds)",
	Buckets:   prometheus.ExponentialBucketsRange(100, 60000000, 10),
}, []string{metricspkg.LabelStore, metricspkg.LabelFunction})
