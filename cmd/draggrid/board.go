/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"draggrid/internal/grid"
)

var (
	// errUnknownWidget is returned when a command names a widget the board lacks.
	errUnknownWidget = errors.New("unknown widget")
	errOffGrid       = errors.New("outside the grid")
)

// withEngine opens board and runs fn on its engine.
func (a *app) withEngine(cmd *cobra.Command, name string, fn func(e *grid.Engine) error) error {
	svc, err := a.service(cmd.Context())
	if err != nil {
		return err
	}
	return svc.Do(name, fn)
}

func addBoardCommands(top *cobra.Command, a *app) {
	addShow(top, a)
	addBoards(top, a)
	addAdd(top, a)

	top.AddCommand(&cobra.Command{
		Use:   "remove <board> <id>",
		Short: "Remove a widget.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd, args[0], func(e *grid.Engine) error {
				if !e.RemoveWidget(args[1]) {
					return fmt.Errorf("%w: %s", errUnknownWidget, args[1])
				}
				return nil
			})
		},
	})

	top.AddCommand(&cobra.Command{
		Use:   "swap <board> <id> <id>",
		Short: "Exchange the positions of two widgets.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd, args[0], func(e *grid.Engine) error {
				if !e.Swap(args[1], args[2]) {
					return fmt.Errorf("%w: %s or %s", errUnknownWidget, args[1], args[2])
				}
				return nil
			})
		},
	})

	top.AddCommand(&cobra.Command{
		Use:   "compact <board>",
		Short: "Pack widgets upwards and leftwards.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd, args[0], func(e *grid.Engine) error {
				e.Compact()
				return nil
			})
		},
	})

	top.AddCommand(&cobra.Command{
		Use:   "clear <board>",
		Short: "Remove every widget.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd, args[0], func(e *grid.Engine) error {
				e.Clear()
				return nil
			})
		},
	})

	addPlacement(top, a, "move <board> <id> <x> <y>", "Move a widget to a cell.", func(e *grid.Engine, w grid.Widget, x, y int) error {
		if err := inGrid(e, grid.R(x, y, w.W, w.H)); err != nil {
			return err
		}
		e.MoveWidget(w.ID, x, y)
		return nil
	})
	addPlacement(top, a, "resize <board> <id> <width> <height>", "Resize a widget in cells.", func(e *grid.Engine, w grid.Widget, width, height int) error {
		if err := inGrid(e, grid.R(w.X, w.Y, width, height)); err != nil {
			return err
		}
		e.ResizeWidget(w.ID, width, height)
		return nil
	})
	addEdit(top, a)
	addGesture(top, a, "drag", "Drag a widget by a pixel delta.", (*grid.Engine).BeginDrag)
	addGesture(top, a, "resize-drag", "Drag a widget's resize handle by a pixel delta.", (*grid.Engine).BeginResize)
}

func addShow(top *cobra.Command, a *app) {
	var asHTML, asJSON bool
	cmd := &cobra.Command{
		Use:   "show <board>",
		Short: "Print a board.",
		Example: `
draggrid show main
draggrid show main --json
draggrid show main --html > board.html
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			if asHTML {
				m, err := svc.Mirror(args[0])
				if err != nil {
					return err
				}
				return m.WriteHTML(a.out)
			}
			layout, err := svc.Layout(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(layout)
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tX\tY\tW\tH\tTITLE")
			for _, r := range layout {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\n", r.ID, r.X, r.Y, r.Width, r.Height, r.Title)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asHTML, "html", false, "Render the board as HTML.")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the serialized layout.")
	cmd.MarkFlagsMutuallyExclusive("html", "json")
	top.AddCommand(cmd)
}

func addBoards(top *cobra.Command, a *app) {
	top.AddCommand(&cobra.Command{
		Use:   "boards",
		Short: "List stored boards and their snapshot counts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			snapshots := map[string]int{}
			if a.index != nil {
				list, err := a.index.Boards(cmd.Context())
				if err != nil {
					return err
				}
				for _, b := range list {
					snapshots[b.Board] = b.Snapshots
				}
			}
			seen := map[string]bool{}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "BOARD\tSNAPSHOTS")
			for _, key := range a.local.Keys(cmd.Context(), svc.Key("")) {
				name, ok := svc.BoardForKey(key)
				if !ok || seen[name] {
					continue
				}
				seen[name] = true
				fmt.Fprintf(tw, "%s\t%d\n", name, snapshots[name])
			}
			for name, n := range snapshots {
				if !seen[name] {
					fmt.Fprintf(tw, "%s\t%d\n", name, n)
				}
			}
			return tw.Flush()
		},
	})
}

func addAdd(top *cobra.Command, a *app) {
	var spec grid.WidgetSpec
	cmd := &cobra.Command{
		Use:   "add <board>",
		Short: "Add a widget.",
		Example: `
draggrid add main --id sales --x 0 --y 0 --w 4 --h 2 --title Sales
draggrid add main --auto --w 3 --h 2
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd, args[0], func(e *grid.Engine) error {
				w := e.AddWidget(spec)
				fmt.Fprintf(a.out, "%s %d,%d %dx%d\n", w.ID, w.X, w.Y, w.W, w.H)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&spec.ID, "id", "", "Widget id (generated when empty).")
	cmd.Flags().IntVar(&spec.X, "x", 0, "Column.")
	cmd.Flags().IntVar(&spec.Y, "y", 0, "Row.")
	cmd.Flags().IntVar(&spec.Width, "w", 0, "Width in cells (default 3).")
	cmd.Flags().IntVar(&spec.Height, "h", 0, "Height in cells (default 2).")
	cmd.Flags().StringVar(&spec.Title, "title", "", "Header title.")
	cmd.Flags().StringVar(&spec.Content, "content", "", "Content HTML.")
	cmd.Flags().StringVar(&spec.Class, "class", "", "Extra CSS class.")
	cmd.Flags().BoolVar(&spec.AutoPlace, "auto", false, "Place at the first free position.")
	top.AddCommand(cmd)
}

func addEdit(top *cobra.Command, a *app) {
	var title, content, addClass, removeClass string
	cmd := &cobra.Command{
		Use:   "edit <board> <id>",
		Short: "Change a widget's title, content or classes.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[1]
			return a.withEngine(cmd, args[0], func(e *grid.Engine) error {
				if _, ok := e.Widget(id); !ok {
					return fmt.Errorf("%w: %s", errUnknownWidget, id)
				}
				if cmd.Flags().Changed("title") {
					e.UpdateTitle(id, title)
				}
				if cmd.Flags().Changed("content") {
					e.UpdateContent(id, content)
				}
				if addClass != "" {
					e.AddClass(id, addClass)
				}
				if removeClass != "" {
					e.RemoveClass(id, removeClass)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New header title.")
	cmd.Flags().StringVar(&content, "content", "", "New content HTML.")
	cmd.Flags().StringVar(&addClass, "add-class", "", "CSS class to add.")
	cmd.Flags().StringVar(&removeClass, "remove-class", "", "CSS class to remove.")
	top.AddCommand(cmd)
}

// inGrid rejects rectangles the engine would store outside its bounds.
// Overlaps stay allowed: explicit placement is caller-asserted.
func inGrid(e *grid.Engine, r grid.Rect) error {
	cfg := e.Config()
	if r.X < 0 || r.Y < 0 || r.W < 1 || r.H < 1 || r.Right() > cfg.Columns || r.Bottom() > cfg.MaxRows {
		return fmt.Errorf("%w: %dx%d at %d,%d on %d columns and %d rows", errOffGrid, r.W, r.H, r.X, r.Y, cfg.Columns, cfg.MaxRows)
	}
	return nil
}

func addPlacement(top *cobra.Command, a *app, use, short string, fn func(e *grid.Engine, w grid.Widget, p, q int) error) {
	top.AddCommand(&cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, q, err := intPair(args[2], args[3])
			if err != nil {
				return err
			}
			return a.withEngine(cmd, args[0], func(e *grid.Engine) error {
				w, ok := e.Widget(args[1])
				if !ok {
					return fmt.Errorf("%w: %s", errUnknownWidget, args[1])
				}
				return fn(e, w, p, q)
			})
		},
	})
}

// addGesture replays a pointer gesture: press at the origin, move by the
// delta, release there.
func addGesture(top *cobra.Command, a *app, name, short string, begin func(*grid.Engine, string, grid.Point) bool) {
	var dx, dy float64
	cmd := &cobra.Command{
		Use:   name + " <board> <id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[1]
			return a.withEngine(cmd, args[0], func(e *grid.Engine) error {
				if !begin(e, id, grid.Point{}) {
					if _, ok := e.Widget(id); !ok {
						return fmt.Errorf("%w: %s", errUnknownWidget, id)
					}
					return fmt.Errorf("%s is disabled for this board", name)
				}
				end := grid.Point{X: dx, Y: dy}
				pv := e.PointerMove(end)
				e.PointerUp(end)
				w, _ := e.Widget(id)
				fmt.Fprintf(a.out, "%s %s -> %d,%d %dx%d\n", id, pv.Kind, w.X, w.Y, w.W, w.H)
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&dx, "dx", 0, "Horizontal pointer delta in px.")
	cmd.Flags().Float64Var(&dy, "dy", 0, "Vertical pointer delta in px.")
	top.AddCommand(cmd)
}
