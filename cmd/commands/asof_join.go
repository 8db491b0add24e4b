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
	"github.com/tempoproj/tempoflow/pkg/asof"
	"github.com/tempoproj/tempoflow/pkg/shared/logging"
)

func NewAsofJoinCommand() *cobra.Command {

	var (
		configFile       string
		selfFile         string
		otherFile        string
		selfSchemaSpecs  []string
		otherSchemaSpecs []string
		selfTime         string
		otherTime        string
		equalityKeys     []string
		directionName    string
		modeName         string
		defaultSpecs     []string
		parallelism      int
		lenient          bool
		outputFile       string
	)
	command := &cobra.Command{
		Use:   "asof-join",
		Short: "Join two row files on the closest timestamp",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewLogger().Named("asof-join")

			conf, err := LoadConfig(configFile)
			if err != nil {
				return err
			}
			parallelism = resolveInt(cmd, "parallelism", parallelism, conf.Parallelism)

			selfSchema, err := parseSchema(selfSchemaSpecs)
			if err != nil {
				return fmt.Errorf("invalid self schema: %w", err)
			}
			otherSchema, err := parseSchema(otherSchemaSpecs)
			if err != nil {
				return fmt.Errorf("invalid other schema: %w", err)
			}
			direction, err := asof.ParseDirection(directionName)
			if err != nil {
				return err
			}
			mode, err := asof.ParseMode(modeName)
			if err != nil {
				return err
			}
			defaults, err := parseDefaults(selfSchema, otherSchema, defaultSpecs)
			if err != nil {
				return err
			}

			opts := []asof.Option{
				asof.WithDirection(direction),
				asof.WithMode(mode),
				asof.WithParallelism(parallelism),
			}
			if len(equalityKeys) > 0 {
				opts = append(opts, asof.WithEqualityKeys(equalityKeys...))
			}
			if len(defaults) > 0 {
				opts = append(opts, asof.WithDefaults(defaults))
			}
			if lenient {
				opts = append(opts, asof.WithLenient())
			}
			joiner, err := asof.NewJoiner(selfSchema, otherSchema, selfTime, otherTime, opts...)
			if err != nil {
				return err
			}

			selfBatch, err := readBatchFile(cmd, selfFile, selfSchema)
			if err != nil {
				return fmt.Errorf("failed to read the self side: %w", err)
			}
			otherBatch, err := readBatchFile(cmd, otherFile, otherSchema)
			if err != nil {
				return fmt.Errorf("failed to read the other side: %w", err)
			}

			ctx := logging.WithLogger(context.Background(), logger)
			logger.Infow("Starting asof join", "version", tempoflow.GetVersion(), "direction", direction, "mode", mode,
				"selfRows", selfBatch.Len(), "otherRows", otherBatch.Len())
			res, err := joiner.Join(ctx, selfBatch, otherBatch)
			if err != nil {
				return err
			}
			if err := writeBatchFile(cmd, outputFile, res.Batch); err != nil {
				return fmt.Errorf("failed to write the joined rows: %w", err)
			}
			logger.Infow("Finished asof join", "rows", res.Batch.Len(), "matched", res.Matched,
				"unmatched", res.Unmatched, "appended", res.Appended, "skipped", res.Skipped)
			return nil
		},
	}
	command.Flags().StringVar(&configFile, "config", "", "Path to an optional config file")
	command.Flags().StringVar(&selfFile, "self", "", "Self side row file, '-' reads stdin")
	command.Flags().StringVar(&otherFile, "other", "", "Other side row file, '-' reads stdin")
	command.Flags().StringSliceVar(&selfSchemaSpecs, "self-schema", nil, "Self side fields as name:kind")
	command.Flags().StringSliceVar(&otherSchemaSpecs, "other-schema", nil, "Other side fields as name:kind")
	command.Flags().StringVar(&selfTime, "self-time", "", "Timestamp field of the self side")
	command.Flags().StringVar(&otherTime, "other-time", "", "Timestamp field of the other side")
	command.Flags().StringSliceVar(&equalityKeys, "on", nil, "Equality key fields candidates must match on")
	command.Flags().StringVar(&directionName, "direction", string(asof.DirectionBackward), "Lookup direction, one of backward, forward or nearest")
	command.Flags().StringVar(&modeName, "mode", string(asof.ModeLeft), "Retention mode, one of left, right, full or inner")
	command.Flags().StringSliceVar(&defaultSpecs, "default", nil, "Fill values for unmatched rows as field=value")
	command.Flags().IntVar(&parallelism, "parallelism", 1, "Number of workers for index build and probe")
	command.Flags().BoolVar(&lenient, "lenient", false, "Drop rows with unusable timestamps instead of failing")
	command.Flags().StringVar(&outputFile, "output", "-", "Output row file, '-' writes stdout")
	return command
}
