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
	"fmt"
	"sort"
)

// compact moves every widget to the lowest row available in its own column,
// processing widgets top to bottom then left to right. Columns never change.
func (e *Engine) compact() {
	order := make([]*Widget, len(e.widgets))
	copy(order, e.widgets)
	byRowCol(order)
	for _, w := range order {
		e.occ.free(w.ID)
	}
	moved := 0
	for _, w := range order {
		y := e.scanDown(w, w.X, 0)
		if y != w.Y {
			w.Y = y
			moved++
			e.renderer.Place(*w)
		}
		e.occ.occupy(w.ID, w.Rect)
	}
	if moved > 0 {
		e.log.Debug("compacted", "moved", moved)
	}
}

// FindEmptySpace returns the first top-left cell, scanning rows then columns,
// where a w×h rectangle fits. When no gap exists inside the occupied extent
// it returns column 0 of the row after the last occupied one.
func (e *Engine) FindEmptySpace(w, h int) (x, y int) {
	w = clamp(w, 1, e.cfg.Columns)
	h = clamp(h, 1, e.cfg.MaxRows)
	limit := e.occ.extent()
	for row := 0; row < limit; row++ {
		for col := 0; col+w <= e.cfg.Columns; col++ {
			if e.occ.canFit(col, row, w, h, "") {
				return col, row
			}
		}
	}
	if limit == 0 {
		return 0, 0
	}
	return 0, e.occ.maxRow() + 1
}

// CheckOccupancy verifies that the occupancy grid matches the widget list
// exactly. Boards holding caller-asserted overlaps fail the check.
func (e *Engine) CheckOccupancy() error {
	want := 0
	for _, w := range e.widgets {
		for row := w.Y; row < w.Bottom(); row++ {
			for col := w.X; col < w.Right(); col++ {
				if got := e.occ.at(row, col); got != w.ID {
					return fmt.Errorf("cell (%d,%d): want %q, got %q", row, col, w.ID, got)
				}
				want++
			}
		}
	}
	if got := len(e.occ.cells); got != want {
		return fmt.Errorf("occupancy holds %d cells, widgets cover %d", got, want)
	}
	return nil
}

// Overlaps lists every pair of widgets whose rectangles intersect.
func (e *Engine) Overlaps() [][2]string {
	var out [][2]string
	for i, a := range e.widgets {
		for _, b := range e.widgets[i+1:] {
			if a.Rect.Intersects(b.Rect) {
				out = append(out, [2]string{a.ID, b.ID})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}
