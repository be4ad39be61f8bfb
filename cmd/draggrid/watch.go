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
	"log/slog"

	"github.com/spf13/cobra"

	applog "draggrid/internal/log"
)

func addWatch(top *cobra.Command, a *app) {
	top.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Reload boards when another process changes the local store.",
		Long: "Watch the local store and reload every board written by another process. " +
			"Reloaded boards are recorded in the history and the snapshot index. Stop with Ctrl+C.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			keys, err := a.local.Watch(cmd.Context())
			if err != nil {
				return err
			}
			log := applog.WithOperation(applog.WithComponent("cli"), "watch")
			log.Info("watching", slog.String("dir", a.local.Base()))
			for key := range keys {
				name, ok := svc.BoardForKey(key)
				if !ok {
					continue
				}
				changed, err := svc.Reload(name)
				if err != nil {
					log.Warn("reload failed", slog.String("board", name), slog.Any("err", err))
					continue
				}
				if changed {
					layout, _ := svc.Layout(name)
					fmt.Fprintf(a.out, "%s reloaded (%d widgets)\n", name, len(layout))
				}
			}
			return nil
		},
	})
}
