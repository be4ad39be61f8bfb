/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package grid

import (
	"net/http"
	"strings"

	"draggrid/internal/domain"
)

// Config is the engine configuration. Pixel values only matter for gesture
// translation and for renderers; the occupancy logic works in cells.
type Config struct {
	Columns   int
	RowHeight int // px
	Margin    int // px
	MinWidth  int // px
	// MaxRows bounds the board: every widget ends at or above this row.
	MaxRows int

	Draggable bool
	Resizable bool
	Removable bool
	Swappable bool
	// Compact re-packs the board after a remove or a shrinking resize.
	Compact bool
	Animate bool

	SaveURL         string
	SaveMethod      string
	LocalStorageKey string

	Colors domain.Colors
}

// DefaultConfig returns the stock DragGrid options.
func DefaultConfig() Config {
	return Config{
		Columns:         12,
		RowHeight:       50,
		Margin:          10,
		MinWidth:        100,
		MaxRows:         domain.MaxRows,
		Draggable:       true,
		Resizable:       true,
		Removable:       false,
		Swappable:       false,
		Compact:         true,
		Animate:         true,
		SaveMethod:      http.MethodPost,
		LocalStorageKey: "gridConfig",
	}
}

// normalized fills zero numeric fields with defaults so a partially filled
// Config is always usable.
func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.Columns <= 0 {
		c.Columns = d.Columns
	}
	if c.RowHeight <= 0 {
		c.RowHeight = d.RowHeight
	}
	if c.Margin < 0 {
		c.Margin = 0
	}
	if c.MinWidth <= 0 {
		c.MinWidth = d.MinWidth
	}
	if c.MaxRows <= 0 {
		c.MaxRows = d.MaxRows
	}
	c.SaveMethod = strings.ToUpper(strings.TrimSpace(c.SaveMethod))
	if c.SaveMethod == "" {
		c.SaveMethod = d.SaveMethod
	}
	if strings.TrimSpace(c.LocalStorageKey) == "" {
		c.LocalStorageKey = d.LocalStorageKey
	}
	return c
}
