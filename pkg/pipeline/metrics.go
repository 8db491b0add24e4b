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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	metricspkg "github.com/tempoproj/tempoflow/pkg/metrics"
)

var runsCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "pipeline",
	Name:      "runs_total",
	Help:      "Total number of completed pipeline runs",
}, []string{metricspkg.LabelPipeline})

var runErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "pipeline",
	Name:      "run_errors_total",
	Help:      "Total number of pipeline runs failed by a stage",
}, []string{metricspkg.LabelPipeline})

var rowsOutCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "pipeline",
	Name:      "rows_out_total",
	Help:      "Total number of rows emitted by terminal stages",
}, []string{metricspkg.LabelPipeline})

var runProcessingTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Subsystem: "pipeline",
	Name:      "run_processing_time",
	Help:      "Processing times of pipeline runs (100 microseconds to 10 minutes)",
	Buckets:   prometheus.ExponentialBucketsRange(100, 60000000*10, 10),
}, []string{metricspkg.LabelPipeline})
