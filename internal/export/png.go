/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"draggrid/internal/domain"
	"draggrid/internal/textlayout"
)

// PNG encodes a raster wireframe of layout to w.
func PNG(w io.Writer, layout domain.Layout, opt Options) error {
	img := Raster(layout, opt)
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// Raster draws layout into a new RGBA image.
func Raster(layout domain.Layout, opt Options) *image.RGBA {
	opt = opt.withDefaults()
	width, height, boxes := frame(layout, opt)
	pal := paletteOf(opt.Colors)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: pal.Background}, image.Point{}, draw.Src)

	face := opt.Font.Face()
	m := textlayout.MetricsOf(face)
	for _, b := range boxes {
		fillRect(img, b.X, b.Y, b.X+b.W-1, b.Y+b.H-1, pal.Widget)
		strokeRect(img, b.X, b.Y, b.X+b.W-1, b.Y+b.H-1, pal.Border)
		if m.LineHeight <= 0 {
			continue
		}
		maxLines := (b.H - 2*labelPad) / m.LineHeight
		if maxLines <= 0 {
			continue
		}
		lines := textlayout.Wrap(face, b.Label, b.W-2*labelPad, maxLines)
		// labels never bleed outside their widget
		clip := img.SubImage(image.Rect(b.X+1, b.Y+1, b.X+b.W-1, b.Y+b.H-1)).(*image.RGBA)
		d := &font.Drawer{Dst: clip, Src: image.NewUniform(pal.Text), Face: face}
		for i, line := range lines {
			d.Dot = fixed.P(b.X+labelPad, b.Y+labelPad+m.Ascent+i*m.LineHeight)
			d.DrawString(line)
		}
	}
	return img
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}
