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

import "testing"

func TestOccupancy_CanFit(t *testing.T) {
	o := newOccupancy(12)
	o.occupy("a", R(2, 1, 3, 2))
	cases := []struct {
		name       string
		x, y, w, h int
		skip       string
		want       bool
	}{
		{"empty area", 6, 0, 2, 2, "", true},
		{"negative x", -1, 0, 1, 1, "", false},
		{"negative y", 0, -1, 1, 1, "", false},
		{"past right edge", 11, 0, 2, 1, "", false},
		{"exactly right edge", 10, 0, 2, 1, "", true},
		{"overlap", 4, 2, 2, 2, "", false},
		{"overlap skipped", 4, 2, 2, 2, "a", true},
		{"below a", 2, 3, 3, 1, "", true},
		{"far rows", 0, 10000, 12, 1, "", true},
	}
	for _, c := range cases {
		if got := o.canFit(c.x, c.y, c.w, c.h, c.skip); got != c.want {
			t.Fatalf("%s: canFit = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestOccupancy_OccupyFree(t *testing.T) {
	o := newOccupancy(4)
	o.occupy("a", R(-1, -1, 7, 3))
	if len(o.cells) != 8 {
		t.Fatalf("cells = %d, want 8 (out-of-range writes ignored)", len(o.cells))
	}
	if o.maxRow() != 1 || o.extent() != 2 {
		t.Fatalf("maxRow=%d extent=%d", o.maxRow(), o.extent())
	}
	o.occupy("b", R(0, 0, 1, 1))
	if o.at(0, 0) != "b" {
		t.Fatalf("overwrite failed")
	}
	c := o.counts(R(0, 0, 4, 2), "")
	if c["a"] != 7 || c["b"] != 1 {
		t.Fatalf("counts = %v", c)
	}
	o.free("a")
	if len(o.cells) != 1 {
		t.Fatalf("free left %d cells", len(o.cells))
	}
	o.reset()
	if o.extent() != 0 || o.maxRow() != 0 {
		t.Fatalf("reset grid not empty")
	}
}

func TestRectIntersects(t *testing.T) {
	a := R(0, 0, 2, 2)
	if !a.Intersects(R(1, 1, 2, 2)) {
		t.Fatalf("expected overlap")
	}
	if a.Intersects(R(2, 0, 1, 1)) || a.Intersects(R(0, 2, 1, 1)) {
		t.Fatalf("edge-adjacent rectangles must not intersect")
	}
}

func TestRound(t *testing.T) {
	for in, want := range map[float64]int{0.5: 1, 1.49: 1, -0.5: 0, -0.51: -1, -1.5: -1, 2.5: 3} {
		if got := round(in); got != want {
			t.Fatalf("round(%v) = %d, want %d", in, got, want)
		}
	}
}
