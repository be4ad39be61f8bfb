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

	"github.com/spf13/cobra"

	"draggrid/internal/bundle"
)

func addBundle(top *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Archive or install every stored board.",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "export <file.zip>",
		Short: "Write all boards of the local store into a zip.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			n, err := bundle.Export(cmd.Context(), a.local, svc.Key(""), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "archived %d boards to %s\n", n, args[0])
			return nil
		},
	})
	var overwrite bool
	install := &cobra.Command{
		Use:   "import <file.zip>",
		Short: "Install the boards of a zip into the local store.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.service(cmd.Context()); err != nil {
				return err
			}
			n, err := bundle.Install(a.local, args[0], overwrite)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "installed %d boards\n", n)
			return nil
		},
	}
	install.Flags().BoolVar(&overwrite, "overwrite", false, "Replace boards that already exist.")
	cmd.AddCommand(install)
	top.AddCommand(cmd)
}
