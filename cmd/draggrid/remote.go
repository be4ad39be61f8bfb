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
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"draggrid/internal/backend"
	"draggrid/internal/config"
	"draggrid/internal/grid"
	applog "draggrid/internal/log"
)

func addRemote(top *cobra.Command, a *app) {
	top.AddCommand(&cobra.Command{
		Use:   "push <board>",
		Short: "Send a board to the configured save URL and wait for the answer.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.Push(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "pushed %s\n", args[0])
			return nil
		},
	})

	var server string
	pull := &cobra.Command{
		Use:   "pull <board>",
		Short: "Replace a board with the latest version stored on a sink.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, layout, err := backend.NewClient(server, a.token).Latest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			err = a.withEngine(cmd, args[0], func(e *grid.Engine) error {
				e.Load(layout)
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "pulled %s version %d (%d widgets)\n", args[0], env.Version, len(layout))
			return nil
		},
	}
	pull.Flags().StringVar(&server, "server", "http://localhost:8080", "Sink base URL.")
	top.AddCommand(pull)

	var remoteServer string
	remote := &cobra.Command{
		Use:   "remote",
		Short: "List the boards stored on a sink.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := backend.NewClient(remoteServer, a.token).Boards(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "BOARD\tVERSION\tWIDGETS\tUPDATED")
			for _, b := range list {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", b.Board, b.Version, b.Widgets, b.UpdatedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
	remote.Flags().StringVar(&remoteServer, "server", "http://localhost:8080", "Sink base URL.")
	top.AddCommand(remote)

	var (
		loginServer string
		subject     string
		ttl         time.Duration
		scope       []string
	)
	login := &cobra.Command{
		Use:   "login",
		Short: "Obtain a bearer token from a sink and keep it in the OS keyring.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tok, exp, err := backend.NewClient(loginServer, "").IssueToken(cmd.Context(), subject, ttl, scope...)
			if err != nil {
				return err
			}
			if err := config.SaveToken(tok); err != nil {
				return err
			}
			applog.WithComponent("cli").Info("token stored",
				slog.String("subject", subject),
				slog.Any("boards", scope),
				slog.Time("expires", exp))
			fmt.Fprintf(a.out, "token valid until %s\n", exp.Local().Format(time.DateTime))
			return nil
		},
	}
	login.Flags().StringVar(&loginServer, "server", "http://localhost:8080", "Sink base URL.")
	login.Flags().StringVar(&subject, "subject", "dev", "Token subject.")
	login.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime (at most 24h).")
	login.Flags().StringSliceVar(&scope, "board", nil, "Limit the token to these boards (repeatable; default all).")
	top.AddCommand(login)

	top.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Remove the stored bearer token.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return config.DeleteToken()
		},
	})
}
