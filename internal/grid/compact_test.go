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
	"reflect"
	"testing"
)

func TestCompact_PacksUpwardInColumn(t *testing.T) {
	e, _ := newEngine(t, func(c *Config) { c.Compact = false })
	add(e, "a", 0, 3, 4, 2)
	add(e, "b", 2, 8, 4, 1)
	add(e, "c", 8, 5, 2, 2)
	e.Compact()
	wantRect(t, e, "a", R(0, 0, 4, 2))
	wantRect(t, e, "b", R(2, 2, 4, 1))
	wantRect(t, e, "c", R(8, 0, 2, 2))
	wantConsistent(t, e)
}

func TestCompact_Idempotent(t *testing.T) {
	e, _ := newEngine(t, func(c *Config) { c.Compact = false })
	add(e, "a", 0, 2, 3, 2)
	add(e, "b", 3, 7, 3, 3)
	add(e, "c", 1, 9, 4, 1)
	add(e, "d", 9, 4, 3, 2)
	add(e, "f", 6, 1, 2, 5)
	e.Compact()
	first := e.Serialize()
	e.Compact()
	if second := e.Serialize(); !reflect.DeepEqual(first, second) {
		t.Fatalf("second compaction changed layout:\n%+v\n%+v", first, second)
	}
	wantConsistent(t, e)
}

func TestCompact_KeepsColumns(t *testing.T) {
	e, _ := newEngine(t, func(c *Config) { c.Compact = false })
	add(e, "a", 5, 4, 2, 2)
	add(e, "b", 6, 9, 2, 2)
	e.Compact()
	wantRect(t, e, "a", R(5, 0, 2, 2))
	wantRect(t, e, "b", R(6, 2, 2, 2))
}

func TestFindEmptySpace(t *testing.T) {
	e, _ := newEngine(t, nil)
	if x, y := e.FindEmptySpace(3, 2); x != 0 || y != 0 {
		t.Fatalf("empty board = (%d,%d)", x, y)
	}
	add(e, "a", 0, 0, 12, 1)
	add(e, "b", 0, 1, 10, 2)
	if x, y := e.FindEmptySpace(2, 2); x != 10 || y != 1 {
		t.Fatalf("gap = (%d,%d), want (10,1)", x, y)
	}
	if x, y := e.FindEmptySpace(3, 1); x != 0 || y != 3 {
		t.Fatalf("fallback = (%d,%d), want (0,3)", x, y)
	}
}

func TestClassify(t *testing.T) {
	start := R(2, 2, 3, 3)
	cases := []struct {
		name     string
		cur      Rect
		resizing bool
		want     Shape
	}{
		{"move down", R(2, 4, 3, 3), false, ShapeVertical},
		{"move up", R(2, 0, 3, 3), false, ShapeGeneral},
		{"move right", R(5, 2, 3, 3), false, ShapeGeneral},
		{"move left", R(0, 2, 3, 3), false, ShapeGeneral},
		{"move diagonal", R(3, 3, 3, 3), false, ShapeGeneral},
		{"grow height", R(2, 2, 3, 5), true, ShapeVertical},
		{"grow width", R(2, 2, 6, 3), true, ShapeHorizontal},
		{"grow both", R(2, 2, 4, 4), true, ShapeDiagonal},
		{"narrower and taller", R(2, 2, 2, 5), true, ShapeGeneral},
		{"shrink height", R(2, 2, 3, 2), true, ShapeGeneral},
		{"unchanged", start, false, ShapeGeneral},
	}
	for _, c := range cases {
		if got := classify(c.cur, start, c.resizing); got != c.want {
			t.Fatalf("%s: shape = %v, want %v", c.name, got, c.want)
		}
	}
}
