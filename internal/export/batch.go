/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"draggrid/internal/domain"
)

// Format names an export target.
type Format string

const (
	FormatPNG  Format = "png"
	FormatSVG  Format = "svg"
	FormatPDF  Format = "pdf"
	FormatJSON Format = "json"
)

// Formats lists every supported format in its default batch order.
var Formats = []Format{FormatPNG, FormatSVG, FormatPDF, FormatJSON}

// ParseFormats turns a comma separated list such as "png,svg" into formats.
// An empty list selects all formats; duplicates collapse.
func ParseFormats(list string) ([]Format, error) {
	if strings.TrimSpace(list) == "" {
		return append([]Format(nil), Formats...), nil
	}
	seen := map[Format]bool{}
	var out []Format
	for _, part := range strings.Split(list, ",") {
		f := Format(strings.ToLower(strings.TrimSpace(part)))
		if f == "" || seen[f] {
			continue
		}
		if !f.valid() {
			return nil, fmt.Errorf("unknown export format %q", part)
		}
		seen[f] = true
		out = append(out, f)
	}
	return out, nil
}

func (f Format) valid() bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

// File writes layout to path in format f.
func File(path string, f Format, layout domain.Layout, opt Options) error {
	if f == FormatPDF {
		return PDF(path, layout, opt)
	}
	if !f.valid() {
		return fmt.Errorf("unknown export format %q", f)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", f, err)
	}
	switch f {
	case FormatPNG:
		err = PNG(out, layout, opt)
	case FormatSVG:
		err = SVG(out, layout, opt)
	case FormatJSON:
		if layout == nil {
			layout = domain.Layout{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(layout)
	}
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close %s: %w", f, cerr)
	}
	return err
}

// Batch writes <dir>/<name>.<format> for every format and returns the paths
// written, in format order.
func Batch(dir, name string, formats []Format, layout domain.Layout, opt Options) ([]string, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("export name is required")
	}
	if len(formats) == 0 {
		formats = Formats
	}
	var written []string
	for _, f := range formats {
		path := filepath.Join(dir, name+"."+string(f))
		if err := File(path, f, layout, opt); err != nil {
			return written, fmt.Errorf("export %s: %w", f, err)
		}
		written = append(written, path)
	}
	return written, nil
}
