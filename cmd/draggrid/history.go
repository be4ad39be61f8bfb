/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"draggrid/internal/board"
)

func addHistoryCommands(top *cobra.Command, a *app) {
	step := func(use, short string, fn func(*board.Service, string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <board>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := a.service(cmd.Context())
				if err != nil {
					return err
				}
				if err := fn(svc, args[0]); err != nil {
					if errors.Is(err, board.ErrNoHistory) {
						return fmt.Errorf("%s %s: %w", use, args[0], err)
					}
					return err
				}
				undo, redo := svc.History(args[0])
				fmt.Fprintf(a.out, "undo %d, redo %d\n", undo, redo)
				return nil
			},
		}
	}
	top.AddCommand(step("undo", "Restore the previous state.", (*board.Service).Undo))
	top.AddCommand(step("redo", "Re-apply the last undone state.", (*board.Service).Redo))

	var limit int
	cmd := &cobra.Command{
		Use:   "history <board>",
		Short: "Show undo depth and the snapshot index.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			// opening restores the board and its history
			if _, err := svc.Layout(args[0]); err != nil {
				return err
			}
			undo, redo := svc.History(args[0])
			fmt.Fprintf(a.out, "undo %d, redo %d\n", undo, redo)
			if a.index == nil {
				return nil
			}
			snaps, err := a.index.ListSnapshots(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SNAPSHOT\tTIME\tWIDGETS")
			for _, s := range snaps {
				fmt.Fprintf(tw, "%d\t%s\t%d\n", s.ID, s.TS.Local().Format(time.DateTime), len(s.Layout))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of snapshots to list.")
	top.AddCommand(cmd)
}

func intPair(a, b string) (int, int, error) {
	p, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid number %q", a)
	}
	q, err := strconv.Atoi(b)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid number %q", b)
	}
	return p, q, nil
}
