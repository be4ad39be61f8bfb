/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"github.com/spf13/cobra"

	"draggrid/internal/backend"
)

func addServe(top *cobra.Command, a *app) {
	var (
		memory bool
		addr   string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference persistence sink.",
		Long: "Run the HTTP sink that accepts pushed layouts. Postgres is used unless --memory is set; " +
			"the DSN comes from server.database_url, DATABASE_URL or DGR_PG_DSN. " +
			"Tokens are signed with DGR_AUTH_SECRET.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := backend.LoadConfig()
			if a.cfg.Server.DatabaseURL != "" {
				cfg.DBURL = a.cfg.Server.DatabaseURL
			}
			if a.cfg.Server.Addr != "" {
				cfg.Addr = a.cfg.Server.Addr
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			cfg.Memory = memory || a.cfg.Server.Memory
			return backend.Serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().BoolVar(&memory, "memory", false, "Keep layouts in memory instead of Postgres.")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address.")
	top.AddCommand(cmd)
}
