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

	"draggrid/internal/export"
	"draggrid/internal/grid"
	"draggrid/internal/storage"
	"draggrid/internal/textlayout"
)

func addExport(top *cobra.Command, a *app) {
	var formats, out, fontPath string
	var fontSize float64
	cmd := &cobra.Command{
		Use:   "export <board>",
		Short: "Write wireframe previews of a board.",
		Example: `
draggrid export main --format png,svg --out ./previews
draggrid export main --format pdf --font ./Inter.ttf
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := export.ParseFormats(formats)
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			layout, err := svc.Layout(args[0])
			if err != nil {
				return err
			}
			g := a.cfg.Grid
			opt := export.Options{
				Columns:   g.Columns,
				CellWidth: int(g.SurfaceWidth) / max(g.Columns, 1),
				RowHeight: g.RowHeight,
				Margin:    g.Margin,
				Title:     args[0],
				Colors:    g.Colors,
			}
			if g.Margin == 0 {
				opt.Margin = -1
			}
			if fontPath != "" {
				p, err := textlayout.LoadTTF(fontPath, fontSize, 72)
				if err != nil {
					return err
				}
				opt.Font = p
			}
			paths, err := export.Batch(out, args[0], list, layout, opt)
			for _, p := range paths {
				fmt.Fprintln(a.out, p)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&formats, "format", "png", "Comma separated formats: png, svg, pdf, json (empty for all).")
	cmd.Flags().StringVarP(&out, "out", "o", ".", "Output directory.")
	cmd.Flags().StringVar(&fontPath, "font", "", "TrueType/OpenType font for PNG labels.")
	cmd.Flags().Float64Var(&fontSize, "font-size", 12, "Label font size in points.")
	top.AddCommand(cmd)
}

func addImport(top *cobra.Command, a *app) {
	top.AddCommand(&cobra.Command{
		Use:   "import <board> <file>",
		Short: "Replace a board with a layout file.",
		Long: "Replace a board with a layout file. A JSON array of records is expected; " +
			"when the file is unreadable the newest backup next to it is used.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := storage.ReadLayoutFile(args[1])
			if err != nil {
				return err
			}
			return a.withEngine(cmd, args[0], func(e *grid.Engine) error {
				e.Load(layout)
				fmt.Fprintf(a.out, "imported %d widgets into %s\n", e.Len(), args[0])
				return nil
			})
		},
	})
}
