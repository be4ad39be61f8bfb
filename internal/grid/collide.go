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
	"log/slog"
	"sort"
)

// Shape classifies how a gesture changed a widget relative to its start.
type Shape int

const (
	ShapeGeneral Shape = iota
	ShapeVertical
	ShapeHorizontal
	ShapeDiagonal
)

func (s Shape) String() string {
	switch s {
	case ShapeVertical:
		return "vertical"
	case ShapeHorizontal:
		return "horizontal"
	case ShapeDiagonal:
		return "diagonal"
	default:
		return "general"
	}
}

// classify compares the committed rectangle with the start snapshot. Only
// growth counts for resizes; a move is vertical only when it went straight
// down. Everything else is general.
func classify(cur, start Rect, resizing bool) Shape {
	if !resizing {
		if cur.X == start.X && cur.Y > start.Y {
			return ShapeVertical
		}
		return ShapeGeneral
	}
	taller, wider := cur.H > start.H, cur.W > start.W
	switch {
	case wider && taller:
		return ShapeDiagonal
	case taller && cur.W == start.W:
		return ShapeVertical
	case wider && cur.H == start.H:
		return ShapeHorizontal
	}
	return ShapeGeneral
}

// resolveCollisions displaces every widget overlapping w after a committed
// gesture. start is w's geometry when the gesture began. Each displaced
// widget is placed without overlapping w or anything settled before it.
func (e *Engine) resolveCollisions(w *Widget, start Rect, resizing bool) {
	var affected []*Widget
	for _, o := range e.widgets {
		if o != w && o.Rect.Intersects(w.Rect) {
			affected = append(affected, o)
		}
	}
	if len(affected) == 0 {
		return
	}
	for _, a := range affected {
		e.occ.free(a.ID)
	}
	// w may have lost cells to an overlapping widget's stale stamp.
	e.occ.occupy(w.ID, w.Rect)

	shape := classify(w.Rect, start, resizing)
	e.log.Debug("resolve collisions",
		slog.String("id", w.ID),
		slog.String("shape", shape.String()),
		slog.Int("affected", len(affected)))

	switch shape {
	case ShapeDiagonal:
		e.resolveDiagonal(w, start, affected)
	case ShapeVertical:
		threshold := start.Y
		if resizing {
			threshold = start.Bottom()
		}
		byRowCol(affected)
		for _, a := range affected {
			if a.Y >= threshold {
				a.Y = e.scanDown(a, a.X, w.Bottom())
			}
			e.settle(a)
		}
	case ShapeHorizontal:
		sort.SliceStable(affected, func(i, j int) bool { return affected[i].X < affected[j].X })
		for _, a := range affected {
			if a.X >= start.Right() && rowsOverlap(a.Rect, w.Rect) {
				e.pushRight(a, w.Rect)
			}
			e.settle(a)
		}
	default:
		byRowCol(affected)
		for _, a := range affected {
			switch {
			case e.occ.canFit(a.X, w.Bottom(), a.W, a.H, a.ID):
				a.Y = w.Bottom()
			case e.occ.canFit(w.Right(), a.Y, a.W, a.H, a.ID):
				a.X = w.Right()
			default:
				a.Y = e.scanDown(a, a.X, w.Bottom())
			}
			e.settle(a)
		}
	}
	// widgets left in place keep overlapping; w keeps its cells.
	e.occ.occupy(w.ID, w.Rect)
	e.updateHeight()
}

// resolveDiagonal partitions the affected widgets by their position relative
// to w's start footprint: to the right, below, and the rest.
func (e *Engine) resolveDiagonal(w *Widget, start Rect, affected []*Widget) {
	var right, below, rest []*Widget
	for _, a := range affected {
		switch {
		case a.X >= w.X+start.W && a.Y < w.Y+start.H && a.Bottom() > w.Y:
			right = append(right, a)
		case a.Y >= w.Y+start.H && a.X < w.X+start.W && a.Right() > w.X:
			below = append(below, a)
		default:
			rest = append(rest, a)
		}
	}

	sort.SliceStable(right, func(i, j int) bool { return right[i].X < right[j].X })
	for _, a := range right {
		e.pushRight(a, w.Rect)
		e.settle(a)
	}
	sort.SliceStable(below, func(i, j int) bool { return below[i].Y < below[j].Y })
	for _, a := range below {
		a.Y = e.scanDown(a, a.X, w.Bottom())
		e.settle(a)
	}
	for _, a := range rest {
		switch {
		case e.occ.canFit(w.Right(), a.Y, a.W, a.H, a.ID):
			a.X = w.Right()
		case e.occ.canFit(a.X, w.Bottom(), a.W, a.H, a.ID):
			a.Y = w.Bottom()
		default:
			x := a.X
			if w.Right()+a.W <= e.cfg.Columns {
				x = w.Right()
			}
			a.X = x
			a.Y = e.scanDown(a, x, w.Bottom())
		}
		e.settle(a)
	}
}

// pushRight moves a to the first free column right of r on its own row, or
// below r when the row has no room.
func (e *Engine) pushRight(a *Widget, r Rect) {
	if x, ok := e.scanRight(a, r.Right(), a.Y); ok {
		a.X = x
		return
	}
	a.Y = e.scanDown(a, a.X, r.Bottom())
}

// scanRight returns the first column at or after fromX where a fits on row y.
func (e *Engine) scanRight(a *Widget, fromX, y int) (int, bool) {
	for x := fromX; x+a.W <= e.cfg.Columns; x++ {
		if e.occ.canFit(x, y, a.W, a.H, a.ID) {
			return x, true
		}
	}
	return 0, false
}

// scanDown returns the first row at or below fromY where a fits in column x.
// Every row past the occupied extent is empty, so the scan is bounded.
func (e *Engine) scanDown(a *Widget, x, fromY int) int {
	limit := max(fromY, e.occ.extent())
	for y := fromY; y < limit; y++ {
		if e.occ.canFit(x, y, a.W, a.H, a.ID) {
			return y
		}
	}
	return limit
}

func (e *Engine) settle(a *Widget) {
	e.occ.occupy(a.ID, a.Rect)
	e.renderer.Place(*a)
}

func rowsOverlap(a, b Rect) bool { return a.Y < b.Bottom() && a.Bottom() > b.Y }

func byRowCol(ws []*Widget) {
	sort.SliceStable(ws, func(i, j int) bool {
		if ws[i].Y != ws[j].Y {
			return ws[i].Y < ws[j].Y
		}
		return ws[i].X < ws[j].X
	})
}
