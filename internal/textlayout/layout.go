/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout measures and wraps widget labels for the raster and
// vector exporters. All measurement goes through a font.Face so results are
// deterministic for a given face.
package textlayout

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Ellipsis marks text cut off by Wrap.
const Ellipsis = "..."

// Provider hands out the face used for labels.
type Provider interface {
	Face() font.Face
}

// BasicProvider uses x/image/basicfont Face7x13 for deterministic output.
type BasicProvider struct{}

func (BasicProvider) Face() font.Face { return basicfont.Face7x13 }

// Metrics provides font metrics in pixels for a face.
type Metrics struct {
	Ascent, Descent, LineHeight int
}

// MetricsOf rounds the metrics of face to whole pixels.
func MetricsOf(face font.Face) Metrics {
	m := face.Metrics()
	return Metrics{Ascent: m.Ascent.Round(), Descent: m.Descent.Round(), LineHeight: m.Height.Round()}
}

// Width measures s in pixels.
func Width(face font.Face, s string) int {
	return font.MeasureString(face, s).Round()
}

// Wrap breaks text into lines no wider than maxWidth. Words wider than a line
// are split by rune. When maxLines > 0 and the text needs more, the last line
// ends in Ellipsis. Explicit newlines are kept.
func Wrap(face font.Face, text string, maxWidth, maxLines int) []string {
	text = strings.TrimSpace(text)
	if text == "" || maxWidth <= 0 {
		return nil
	}
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		lines = append(lines, wrapParagraph(face, strings.Fields(para), maxWidth)...)
	}
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
		lines[maxLines-1] = withEllipsis(face, lines[maxLines-1], maxWidth)
	}
	return lines
}

func wrapParagraph(face font.Face, words []string, maxWidth int) []string {
	var (
		lines []string
		cur   string
	)
	for _, word := range words {
		candidate := word
		if cur != "" {
			candidate = cur + " " + word
		}
		if Width(face, candidate) <= maxWidth {
			cur = candidate
			continue
		}
		if cur != "" {
			lines = append(lines, cur)
			cur = ""
		}
		// hard split words that do not fit on their own
		for Width(face, word) > maxWidth {
			head, rest := splitAt(face, word, maxWidth)
			lines = append(lines, head)
			word = rest
		}
		cur = word
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// splitAt returns the longest prefix of s that fits maxWidth (at least one rune).
func splitAt(face font.Face, s string, maxWidth int) (string, string) {
	end := 0
	for i, r := range s {
		next := i + utf8.RuneLen(r)
		if end > 0 && Width(face, s[:next]) > maxWidth {
			break
		}
		end = next
	}
	return s[:end], s[end:]
}

func withEllipsis(face font.Face, line string, maxWidth int) string {
	for line != "" && Width(face, line+Ellipsis) > maxWidth {
		_, size := utf8.DecodeLastRuneInString(line)
		line = strings.TrimRight(line[:len(line)-size], " ")
	}
	if Width(face, line+Ellipsis) > maxWidth {
		return ""
	}
	return line + Ellipsis
}
