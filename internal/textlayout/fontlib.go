/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// OTProvider serves a face parsed from an OpenType/TrueType file and falls
// back to another Provider when no font is loaded.
type OTProvider struct {
	face     font.Face
	Fallback Provider
}

// LoadTTF parses the font file at path and prepares a face of sizePt at dpi
// (72 if zero).
func LoadTTF(path string, sizePt, dpi float64) (*OTProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	return ParseTTF(data, sizePt, dpi)
}

// ParseTTF is LoadTTF for font bytes already in memory.
func ParseTTF(data []byte, sizePt, dpi float64) (*OTProvider, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	if sizePt <= 0 {
		sizePt = 12
	}
	if dpi <= 0 {
		dpi = 72
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: sizePt, DPI: dpi, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}
	return &OTProvider{face: face}, nil
}

func (p *OTProvider) Face() font.Face {
	if p != nil && p.face != nil {
		return p.face
	}
	if p != nil && p.Fallback != nil {
		return p.Fallback.Face()
	}
	return BasicProvider{}.Face()
}
