/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"runtime"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"draggrid/internal/config"
	"draggrid/internal/version"
)

func addVersion(top *cobra.Command) {
	short := false
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the draggrid version.",
		Args:  cobra.NoArgs,
		// no config needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), version.String())
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "draggrid %s (%s, %s/%s)\n", version.String(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print just the version number.")
	top.AddCommand(cmd)
}

func addConfig(top *cobra.Command, a *app) {
	top.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration and its environment overrides.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.configPath
			if path == "" {
				path, _ = config.ConfigPath()
			}
			fmt.Fprintf(a.out, "# file: %s\n", path)
			var overridden []string
			for _, key := range config.Keys() {
				if name, ok := config.EnvOverrideFor(key); ok {
					overridden = append(overridden, fmt.Sprintf("# %s overridden by %s", key, name))
				}
			}
			sort.Strings(overridden)
			for _, line := range overridden {
				fmt.Fprintln(a.out, line)
			}
			enc := yaml.NewEncoder(a.out)
			enc.SetIndent(2)
			if err := enc.Encode(a.cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	})
}
