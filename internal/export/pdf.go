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
	"image/color"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"draggrid/internal/domain"
)

const pdfFontSize = 10.0

// PDF writes a single-page wireframe of layout to path. Units are points, one
// pixel of the raster preview per point; labels use built-in Helvetica.
func PDF(path string, layout domain.Layout, opt Options) error {
	pdf, err := buildPDF(layout, opt)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure out dir: %w", err)
		}
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func buildPDF(layout domain.Layout, opt Options) (*gofpdf.Fpdf, error) {
	opt = opt.withDefaults()
	width, height, boxes := frame(layout, opt)
	pal := paletteOf(opt.Colors)

	size := gofpdf.SizeType{Wd: float64(width), Ht: float64(height)}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", Size: size})
	pdf.SetTitle(opt.Title, true)
	pdf.SetCreator("draggrid", true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPageFormat("", size)
	pdf.SetFont("Helvetica", "", pdfFontSize)

	setFillColor(pdf, pal.Background)
	pdf.Rect(0, 0, size.Wd, size.Ht, "F")

	lineH := pdfFontSize * 1.2
	pdf.SetLineWidth(1)
	for _, b := range boxes {
		x, y, w, h := float64(b.X), float64(b.Y), float64(b.W), float64(b.H)
		setFillColor(pdf, pal.Widget)
		setDrawColor(pdf, pal.Border)
		pdf.Rect(x, y, w, h, "FD")

		avail := w - 2*labelPad
		if avail <= 0 {
			continue
		}
		maxLines := int((h - 2*labelPad) / lineH)
		lines := pdf.SplitText(pdf.UnicodeTranslatorFromDescriptor("")(b.Label), avail)
		if len(lines) > maxLines {
			lines = lines[:max(maxLines, 0)]
		}
		setTextColor(pdf, pal.Text)
		for i, line := range lines {
			pdf.Text(x+labelPad, y+labelPad+pdfFontSize+float64(i)*lineH, line)
		}
	}
	return pdf, pdf.Error()
}

func setDrawColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}

func setTextColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
}
