/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the wire format shared by the grid engine, the local and
// remote stores and the exporters. A Layout is what serialize produces and what
// load accepts; it is also the JSON body pushed to a remote persistence target.

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Default geometry applied to records that omit (or zero) width and height.
const (
	DefaultWidth  = 3
	DefaultHeight = 2
)

// MaxRows is the default row budget of a board: no widget reaches below it.
const MaxRows = 1000

// coerceLimit bounds coerced integers so far-off values stay representable.
const coerceLimit = math.MaxInt32

// Record is one persisted widget.
type Record struct {
	ID      string `json:"id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Content string `json:"content"`
	Class   string `json:"class"`
	Title   string `json:"title"`
}

// Layout is an ordered list of records in widget insertion order.
type Layout []Record

// Colors is the theming passthrough carried by the grid configuration.
// The engine never reads it.
type Colors map[string]string

// UnmarshalJSON decodes a record leniently: geometry fields accept numbers or
// numeric strings with parseInt-style truncation, ids may be numbers, and any
// field that cannot be interpreted keeps its zero value.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		// Non-object entries load as an empty record.
		*r = Record{}
		return nil
	}
	*r = Record{
		ID:      coerceString(raw["id"]),
		X:       CoerceInt(raw["x"], 0),
		Y:       CoerceInt(raw["y"], 0),
		Width:   CoerceInt(raw["width"], 0),
		Height:  CoerceInt(raw["height"], 0),
		Content: coerceString(raw["content"]),
		Class:   coerceString(raw["class"]),
		Title:   coerceString(raw["title"]),
	}
	return nil
}

// DecodeLayout parses a JSON layout. Input that is not a JSON array yields an
// empty layout and no error; only unparsable JSON is reported.
func DecodeLayout(data []byte) (Layout, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return Layout{}, nil
	}
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return Layout{}, fmt.Errorf("decode layout: %w", err)
	}
	if _, ok := v.([]any); !ok {
		return Layout{}, nil
	}
	var out Layout
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		return Layout{}, fmt.Errorf("decode layout: %w", err)
	}
	if out == nil {
		out = Layout{}
	}
	return out, nil
}

// Encode marshals the layout in its compact wire form. A nil layout encodes
// as an empty array.
func (l Layout) Encode() ([]byte, error) {
	if l == nil {
		l = Layout{}
	}
	return json.Marshal(l)
}

// CoerceInt converts v to an int the way parseInt would: numbers are truncated
// toward zero, strings are parsed from their leading integer prefix. def is
// returned when nothing usable is found.
func CoerceInt(v any, def int) int {
	switch t := v.(type) {
	case nil:
		return def
	case int:
		return t
	case int64:
		return int(max(min(t, coerceLimit), -coerceLimit))
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return def
		}
		return int(max(min(t, coerceLimit), -coerceLimit))
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return CoerceInt(n, def)
		}
		if f, err := t.Float64(); err == nil {
			return CoerceInt(f, def)
		}
		return def
	case string:
		return parseIntPrefix(t, def)
	}
	return def
}

func parseIntPrefix(s string, def int) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return def
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil && n == 0 {
		return def
	}
	return CoerceInt(n, def)
}

func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}
