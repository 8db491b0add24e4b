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

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tempoproj/tempoflow"
	"github.com/tempoproj/tempoflow/pkg/memo"
	"github.com/tempoproj/tempoflow/pkg/memo/store"
	fsstore "github.com/tempoproj/tempoflow/pkg/memo/store/fs"
	memorystore "github.com/tempoproj/tempoflow/pkg/memo/store/memory"
	noopstore "github.com/tempoproj/tempoflow/pkg/memo/store/noop"
	redisstore "github.com/tempoproj/tempoflow/pkg/memo/store/redis"
	"github.com/tempoproj/tempoflow/pkg/metrics"
	"github.com/tempoproj/tempoflow/pkg/pipeline"
	"github.com/tempoproj/tempoflow/pkg/shared/logging"
)

func NewEnrichCommand() *cobra.Command {

	var (
		configFile      string
		inputFile       string
		schemaSpecs     []string
		fnID            string
		argFields       []string
		resultFieldSpec string
		endpoint        string
		storeType       string
		storeDir        string
		storeName       string
		redisURL        string
		maxInflight     int
		parallelism     int
		cacheFailures   bool
		metricsPort     int
		outputFile      string
	)
	command := &cobra.Command{
		Use:   "enrich",
		Short: "Add a field computed by a memoized function to every row",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewLogger().Named("enrich")

			conf, err := LoadConfig(configFile)
			if err != nil {
				return err
			}
			storeType = resolveString(cmd, "store", storeType, conf.StoreType)
			storeDir = resolveString(cmd, "store-dir", storeDir, conf.StoreDir)
			storeName = resolveString(cmd, "store-name", storeName, conf.StoreName)
			redisURL = resolveString(cmd, "redis-url", redisURL, conf.RedisURL)
			maxInflight = resolveInt(cmd, "max-inflight", maxInflight, conf.MaxInflight)
			parallelism = resolveInt(cmd, "parallelism", parallelism, conf.Parallelism)
			metricsPort = resolveInt(cmd, "metrics-port", metricsPort, conf.MetricsPort)

			if fnID == "" {
				return fmt.Errorf("a function id is required")
			}
			schema, err := parseSchema(schemaSpecs)
			if err != nil {
				return fmt.Errorf("invalid schema: %w", err)
			}
			resultField, err := parseField(resultFieldSpec)
			if err != nil {
				return fmt.Errorf("invalid result field: %w", err)
			}
			batch, err := readBatchFile(cmd, inputFile, schema)
			if err != nil {
				return fmt.Errorf("failed to read the input: %w", err)
			}
			applier, err := memo.NewHTTPApplier(endpoint)
			if err != nil {
				return err
			}

			ctx := logging.WithLogger(context.Background(), logger)
			manager, closeManager, err := newStoreManager(storeType, storeDir, redisURL)
			if err != nil {
				return err
			}
			defer func() { _ = closeManager() }()
			st, err := manager.CreateStore(ctx, storeName)
			if err != nil {
				return fmt.Errorf("failed to create the store %q: %w", storeName, err)
			}
			defer func() { _ = st.Close() }()

			cacheOpts := []memo.Option{
				memo.WithName(storeName),
				memo.WithMaxInflight(maxInflight),
			}
			if cacheFailures {
				cacheOpts = append(cacheOpts, memo.WithFailureCaching())
			}
			cache, err := memo.NewCache(ctx, st, cacheOpts...)
			if err != nil {
				return err
			}

			if metricsPort > 0 {
				metrics.BuildInfo.WithLabelValues("enrich", tempoflow.GetVersion().Version, tempoflow.GetVersion().Platform).Set(1)
				ms := metrics.NewMetricsServer(
					metrics.WithPort(metricsPort),
					metrics.WithHealthCheckExecutor(func() error {
						_, err := st.Exists(ctx, "healthz")
						return err
					}),
				)
				if shutdown, err := ms.Start(ctx); err != nil {
					return fmt.Errorf("failed to start the metrics server, error: %w", err)
				} else {
					defer func() { _ = shutdown(context.Background()) }()
				}
			}

			logger.Infow("Starting enrich", "version", tempoflow.GetVersion(), "function", fnID,
				"store", storeType, "rows", batch.Len())
			b := pipeline.NewBuilder("enrich", pipeline.WithParallelism(parallelism))
			input := b.Source("input", batch)
			b.Enrich(input, fnID, argFields, resultField, applier, cache, nil)
			report, err := b.Run(ctx)
			if err != nil {
				return err
			}
			if err := writeBatchFile(cmd, outputFile, report.Batch); err != nil {
				return fmt.Errorf("failed to write the enriched rows: %w", err)
			}
			er := report.Enrichments[0]
			logger.Infow("Finished enrich", "rows", er.Rows, "calls", er.Cache.Misses, "hits", er.Cache.Hits,
				"p50ms", er.LatencyMS.P50, "p99ms", er.LatencyMS.P99, "took", report.Took)
			fmt.Fprintf(cmd.ErrOrStderr(), "enriched %d rows, %d calls, %d served from cache\n",
				er.Rows, er.Cache.Misses, er.Cache.Hits)
			return nil
		},
	}
	command.Flags().StringVar(&configFile, "config", "", "Path to an optional config file")
	command.Flags().StringVar(&inputFile, "input", "", "Input row file, '-' reads stdin")
	command.Flags().StringSliceVar(&schemaSpecs, "schema", nil, "Input fields as name:kind")
	command.Flags().StringVar(&fnID, "fn-id", "", "Identity of the compute function, part of every cache key")
	command.Flags().StringSliceVar(&argFields, "args", nil, "Fields passed to the function, in order")
	command.Flags().StringVar(&resultFieldSpec, "result-field", "", "Field to append as name:kind")
	command.Flags().StringVar(&endpoint, "endpoint", "", "HTTP endpoint computing the function")
	command.Flags().StringVar(&storeType, "store", "fs", "Store type, one of none, memory, fs or redis")
	command.Flags().StringVar(&storeDir, "store-dir", defaultStoreDir, "Root dir of the fs store")
	command.Flags().StringVar(&storeName, "store-name", "default", "Store holding this function's entries")
	command.Flags().StringVar(&redisURL, "redis-url", "", "URL of the redis store, e.g. redis://localhost:6379/0")
	command.Flags().IntVar(&maxInflight, "max-inflight", 8, "Max concurrent compute invocations per cache")
	command.Flags().IntVar(&parallelism, "parallelism", 1, "Number of rows enriched concurrently")
	command.Flags().BoolVar(&cacheFailures, "cache-failures", false, "Record failed invocations and replay them as errors")
	command.Flags().IntVar(&metricsPort, "metrics-port", 0, "Port to serve metrics on, 0 disables the endpoint")
	command.Flags().StringVar(&outputFile, "output", "-", "Output row file, '-' writes stdout")
	return command
}

const defaultStoreDir = "/var/run/tempoflow/memo"

// newStoreManager builds the manager for a store type, the returned closer
// releases whatever the manager owns.
func newStoreManager(storeType, storeDir, redisURL string) (store.Manager, func() error, error) {
	noClose := func() error { return nil }
	switch storeType {
	case "none":
		return noopstore.NewStores(), noClose, nil
	case "memory":
		return memorystore.NewStores(), noClose, nil
	case "fs":
		manager, err := fsstore.NewStores(storeDir)
		if err != nil {
			return nil, nil, err
		}
		return manager, noClose, nil
	case "redis":
		return redisstore.NewStoresFromURL(redisURL)
	default:
		return nil, nil, fmt.Errorf("unsupported store type %q", storeType)
	}
}
