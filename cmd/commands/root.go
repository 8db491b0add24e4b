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
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// CLIName is the name of the CLI.
const CLIName = "tempoflow"

var rootCmd = &cobra.Command{
	Use:   CLIName,
	Short: "Join bounded row streams on the time axis and memoize per-row calls",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.HelpFunc()(cmd, args)
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(NewAsofJoinCommand())
	rootCmd.AddCommand(NewEnrichCommand())
	rootCmd.AddCommand(NewStoreValidateCommand())
}
