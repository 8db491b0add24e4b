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

	"github.com/tempoproj/tempoflow/pkg/memo/store"
	fsstore "github.com/tempoproj/tempoflow/pkg/memo/store/fs"
	"github.com/tempoproj/tempoflow/pkg/shared/logging"
)

func NewStoreValidateCommand() *cobra.Command {

	var (
		storeDir  string
		storeName string
	)

	command := &cobra.Command{
		Use:   "store-validate",
		Short: "Validate the entries of a file backed store",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewLogger().Named("store-validate")
			ctx := logging.WithLogger(context.Background(), logger)

			names := []string{storeName}
			if storeName == "" {
				manager, err := fsstore.NewStores(storeDir)
				if err != nil {
					return err
				}
				if names, err = manager.DiscoverStores(ctx); err != nil {
					return err
				}
			}

			corrupt := 0
			for _, name := range names {
				var valid, failures, bad int
				err := fsstore.Walk(storeDir, name, func(key string, entry *store.Entry, decodeErr error) error {
					switch {
					case decodeErr != nil:
						logger.Warnw("Found a corrupt entry", "store", name, "key", key, "error", decodeErr)
						bad++
					case entry.Valid:
						valid++
					default:
						failures++
					}
					return nil
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "store %s: %d valid, %d failure records, %d corrupt\n",
					name, valid, failures, bad)
				corrupt += bad
			}
			if corrupt > 0 {
				return fmt.Errorf("found %d corrupt entries", corrupt)
			}
			return nil
		},
	}
	command.Flags().StringVar(&storeDir, "store-dir", defaultStoreDir, "Root dir of the fs store")
	command.Flags().StringVar(&storeName, "store-name", "", "Store to validate, empty validates all stores")
	return command
}
