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

package fs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	metricspkg "github.com/tempoproj/tempoflow/pkg/metrics"
)

const labelErrorKind = "kind"

var entriesCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "memo_store_fs",
	Name:      "entries_total",
	Help:      "Total number of entries written across all stores",
}, []string{metricspkg.LabelStore})

var entryWriteTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Subsystem: "memo_store_fs",
	Name:      "entry_write_time",
	Help:      "Entry write time (1 to 60 milliseconds)",
	Buckets:   prometheus.ExponentialBucketsRange(1, 60, 5),
}, []string{metricspkg.LabelStore})

var fileSyncWaitTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Subsystem: "memo_store_fs",
	Name:      "file_sync_wait_time",
	Help:      "File Sync wait time (1 to 60 milliseconds)",
	Buckets:   prometheus.ExponentialBucketsRange(1, 60, 5),
}, []string{metricspkg.LabelStore})

var storeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "memo_store_fs",
	Name:      "errors",
	Help:      "Errors encountered",
}, []string{metricspkg.LabelStore, labelErrorKind})
