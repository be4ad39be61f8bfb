/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"draggrid/internal/domain"
	"draggrid/internal/textlayout"
)

// SVG writes a vector wireframe of layout to w. Labels are wrapped with the
// basicfont metrics so line breaks match the PNG output.
func SVG(w io.Writer, layout domain.Layout, opt Options) error {
	opt = opt.withDefaults()
	width, height, boxes := frame(layout, opt)
	pal := paletteOf(opt.Colors)
	face := textlayout.BasicProvider{}.Face()
	m := textlayout.MetricsOf(face)

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "<svg xmlns=\"http://www.w3.org/2000/svg\" width=\"%d\" height=\"%d\" viewBox=\"0 0 %d %d\">\n", width, height, width, height)
	fmt.Fprintf(bw, "  <title>%s</title>\n", text(opt.Title))
	fmt.Fprintf(bw, "  <rect x=\"0\" y=\"0\" width=\"%d\" height=\"%d\" fill=\"%s\"/>\n", width, height, hexOf(pal.Background))
	for _, b := range boxes {
		cls := "grid-stack-item"
		if b.Class != "" {
			cls += " " + b.Class
		}
		fmt.Fprintf(bw, "  <g id=\"%s\" class=\"%s\">\n", attr(b.ID), attr(cls))
		fmt.Fprintf(bw, "    <rect x=\"%d\" y=\"%d\" width=\"%d\" height=\"%d\" fill=\"%s\" stroke=\"%s\" stroke-width=\"1\"/>\n",
			b.X, b.Y, b.W, b.H, hexOf(pal.Widget), hexOf(pal.Border))
		maxLines := (b.H - 2*labelPad) / m.LineHeight
		if lines := textlayout.Wrap(face, b.Label, b.W-2*labelPad, maxLines); maxLines > 0 && len(lines) > 0 {
			fmt.Fprintf(bw, "    <text font-family=\"monospace\" font-size=\"%d\" fill=\"%s\">", m.LineHeight-1, hexOf(pal.Text))
			for i, line := range lines {
				fmt.Fprintf(bw, "<tspan x=\"%d\" y=\"%d\">%s</tspan>", b.X+labelPad, b.Y+labelPad+m.Ascent+i*m.LineHeight, text(line))
			}
			bw.WriteString("</text>\n")
		}
		bw.WriteString("  </g>\n")
	}
	bw.WriteString("</svg>\n")
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func text(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}

// attr escapes s for a double-quoted attribute.
func attr(s string) string { return text(s) }
