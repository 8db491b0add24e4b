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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// GlobalConfig holds defaults shared by the commands, typically mounted as a
// config file and overridden per invocation with flags. The tool runs one
// batch and exits, so the file is read once, there is no hot reloading.
type GlobalConfig struct {
	StoreType   string `json:"storeType"`
	StoreDir    string `json:"storeDir"`
	StoreName   string `json:"storeName"`
	RedisURL    string `json:"redisUrl"`
	Parallelism int    `json:"parallelism"`
	MaxInflight int    `json:"maxInflight"`
	MetricsPort int    `json:"metricsPort"`
}

// LoadConfig reads the config file at path. An empty path yields an empty
// config, everything then comes from flags.
func LoadConfig(path string) (*GlobalConfig, error) {
	conf := &GlobalConfig{}
	if path == "" {
		return conf, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration file. %w", err)
	}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("failed unmarshal configuration file. %w", err)
	}
	return conf, nil
}

// resolveString picks the flag value when the flag was set on the command
// line, otherwise a non-empty config value, otherwise the flag default.
func resolveString(cmd *cobra.Command, name, flagValue, confValue string) string {
	if cmd.Flags().Changed(name) {
		return flagValue
	}
	if confValue != "" {
		return confValue
	}
	return flagValue
}

func resolveInt(cmd *cobra.Command, name string, flagValue, confValue int) int {
	if cmd.Flags().Changed(name) {
		return flagValue
	}
	if confValue != 0 {
		return confValue
	}
	return flagValue
}
