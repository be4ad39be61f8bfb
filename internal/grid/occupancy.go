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

// cell addresses one grid square.
type cell struct{ row, col int }

// occupancy is a sparse row/column map of widget ids. Rows are unbounded;
// writes outside [0, cols) are ignored.
type occupancy struct {
	cols  int
	cells map[cell]string
}

func newOccupancy(cols int) *occupancy {
	return &occupancy{cols: cols, cells: make(map[cell]string)}
}

func (o *occupancy) reset() { o.cells = make(map[cell]string) }

// at returns the id covering (row, col), or "" when the cell is empty.
func (o *occupancy) at(row, col int) string { return o.cells[cell{row, col}] }

// occupy stamps id over r. Existing owners are overwritten.
func (o *occupancy) occupy(id string, r Rect) {
	for row := r.Y; row < r.Bottom(); row++ {
		if row < 0 {
			continue
		}
		for col := r.X; col < r.Right(); col++ {
			if col < 0 || col >= o.cols {
				continue
			}
			o.cells[cell{row, col}] = id
		}
	}
}

// free clears every cell owned by id, wherever it is.
func (o *occupancy) free(id string) {
	for c, owner := range o.cells {
		if owner == id {
			delete(o.cells, c)
		}
	}
}

// maxRow returns the largest occupied row, or 0 for an empty grid.
func (o *occupancy) maxRow() int {
	m := 0
	for c := range o.cells {
		if c.row > m {
			m = c.row
		}
	}
	return m
}

// extent is the first row past every occupied cell.
func (o *occupancy) extent() int {
	if len(o.cells) == 0 {
		return 0
	}
	return o.maxRow() + 1
}

// canFit is the single overlap oracle used by every placement decision.
func (o *occupancy) canFit(x, y, w, h int, skipID string) bool {
	if x < 0 || y < 0 || x+w > o.cols {
		return false
	}
	for row := y; row < y+h; row++ {
		for col := x; col < x+w; col++ {
			if owner, ok := o.cells[cell{row, col}]; ok && owner != skipID {
				return false
			}
		}
	}
	return true
}

// counts tallies owned cells per id inside r, skipping skipID.
func (o *occupancy) counts(r Rect, skipID string) map[string]int {
	out := make(map[string]int)
	for row := r.Y; row < r.Bottom(); row++ {
		for col := r.X; col < r.Right(); col++ {
			if owner, ok := o.cells[cell{row, col}]; ok && owner != skipID {
				out[owner]++
			}
		}
	}
	return out
}
