/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders board layouts as wireframe previews. One grid cell
// maps to CellWidth x RowHeight pixels (points for PDF); widgets are inset by
// half the margin on every side like the rendered board.
package export

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"draggrid/internal/domain"
	"draggrid/internal/textlayout"
)

// Options controls every exporter. Zero values take the defaults below.
type Options struct {
	Columns   int
	CellWidth int
	RowHeight int
	Margin    int // px between widgets; negative for none
	// Title names the document in PDF metadata and the SVG title element.
	Title string
	// Colors reads the keys background, widget, border and text as #rgb or
	// #rrggbb. Missing or unparsable entries use the defaults.
	Colors domain.Colors
	// Font draws PNG labels; nil selects basicfont.
	Font textlayout.Provider
}

const (
	defaultColumns   = 12
	defaultCellWidth = 80
	defaultRowHeight = 50
	defaultMargin    = 10
	labelPad         = 4
)

func (o Options) withDefaults() Options {
	if o.Columns <= 0 {
		o.Columns = defaultColumns
	}
	if o.CellWidth <= 0 {
		o.CellWidth = defaultCellWidth
	}
	if o.RowHeight <= 0 {
		o.RowHeight = defaultRowHeight
	}
	switch {
	case o.Margin == 0:
		o.Margin = defaultMargin
	case o.Margin < 0:
		o.Margin = 0
	}
	if o.Title == "" {
		o.Title = "DragGrid layout"
	}
	if o.Font == nil {
		o.Font = textlayout.BasicProvider{}
	}
	return o
}

// box is a widget resolved to canvas coordinates.
type box struct {
	ID    string
	Label string
	Class string
	X, Y  int
	W, H  int
}

// frame computes the canvas size and the widget boxes. The canvas spans at
// least the configured columns and one row, wider when widgets overflow.
func frame(layout domain.Layout, o Options) (int, int, []box) {
	cols, rows := o.Columns, 1
	boxes := make([]box, 0, len(layout))
	half := o.Margin / 2
	for _, r := range layout {
		w, h := r.Width, r.Height
		if w <= 0 {
			w = domain.DefaultWidth
		}
		if h <= 0 {
			h = domain.DefaultHeight
		}
		x, y := max(r.X, 0), max(r.Y, 0)
		cols = max(cols, x+w)
		rows = max(rows, y+h)
		b := box{
			ID:    r.ID,
			Label: label(r),
			Class: r.Class,
			X:     x*o.CellWidth + half,
			Y:     y*o.RowHeight + half,
			W:     max(w*o.CellWidth-o.Margin, 1),
			H:     max(h*o.RowHeight-o.Margin, 1),
		}
		boxes = append(boxes, b)
	}
	return cols * o.CellWidth, rows * o.RowHeight, boxes
}

func label(r domain.Record) string {
	if t := strings.TrimSpace(r.Title); t != "" {
		return t
	}
	return r.ID
}

type palette struct {
	Background, Widget, Border, Text color.RGBA
}

func paletteOf(c domain.Colors) palette {
	p := palette{
		Background: color.RGBA{R: 245, G: 245, B: 245, A: 255},
		Widget:     color.RGBA{R: 255, G: 255, B: 255, A: 255},
		Border:     color.RGBA{R: 60, G: 60, B: 60, A: 255},
		Text:       color.RGBA{R: 0, G: 0, B: 0, A: 255},
	}
	set := func(key string, dst *color.RGBA) {
		if v, ok := c[key]; ok {
			if col, err := parseHex(v); err == nil {
				*dst = col
			}
		}
	}
	set("background", &p.Background)
	set("widget", &p.Widget)
	set("border", &p.Border)
	set("text", &p.Text)
	return p
}

func parseHex(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("color %q: want #rgb or #rrggbb", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

func hexOf(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
