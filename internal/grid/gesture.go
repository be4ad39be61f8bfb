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

import "log/slog"

// GestureKind identifies the active pointer gesture.
type GestureKind int

const (
	GestureNone GestureKind = iota
	GestureDrag
	GestureResize
)

func (k GestureKind) String() string {
	switch k {
	case GestureDrag:
		return "drag"
	case GestureResize:
		return "resize"
	default:
		return "none"
	}
}

// gesture is the state of the single in-flight pointer interaction.
type gesture struct {
	kind   GestureKind
	id     string
	origin Point
	start  Rect
	// pixel footprint at gesture start, resize only
	startW, startH float64
	swapTarget     string
}

// Gesture returns the active gesture kind and the widget it operates on.
func (e *Engine) Gesture() (GestureKind, string) { return e.g.kind, e.g.id }

func (e *Engine) colWidth() float64 { return e.surfaceW / float64(e.cfg.Columns) }

// BeginDrag starts dragging the widget at pointer p. It returns false when
// dragging is disabled, another gesture is active or the widget is unknown.
func (e *Engine) BeginDrag(id string, p Point) bool {
	if !e.cfg.Draggable || e.g.kind != GestureNone {
		return false
	}
	_, w := e.find(id)
	if w == nil {
		return false
	}
	e.g = gesture{kind: GestureDrag, id: id, origin: p, start: w.Rect}
	e.renderer.Preview(Preview{Kind: PreviewFit, Rect: w.Rect})
	return true
}

// BeginResize starts resizing the widget from its bottom-right handle.
func (e *Engine) BeginResize(id string, p Point) bool {
	if !e.cfg.Resizable || e.g.kind != GestureNone {
		return false
	}
	_, w := e.find(id)
	if w == nil {
		return false
	}
	e.g = gesture{
		kind:   GestureResize,
		id:     id,
		origin: p,
		start:  w.Rect,
		startW: float64(w.W) * e.colWidth(),
		startH: float64(w.H * e.cfg.RowHeight),
	}
	e.renderer.Preview(Preview{Kind: PreviewResize, Rect: w.Rect})
	return true
}

// PointerMove updates the placeholder for the active gesture. The layout is
// not modified.
func (e *Engine) PointerMove(p Point) Preview {
	var pv Preview
	switch e.g.kind {
	case GestureDrag:
		pv = e.dragPreview(p)
	case GestureResize:
		r := e.resizeTarget(p)
		pv = Preview{Kind: PreviewResizeBlocked, Rect: r}
		if e.occ.canFit(r.X, r.Y, r.W, r.H, e.g.id) {
			pv.Kind = PreviewResize
		}
	default:
		return Preview{}
	}
	e.renderer.Preview(pv)
	return pv
}

// PointerUp commits the active gesture at pointer p. It reports whether a
// gesture was active.
func (e *Engine) PointerUp(p Point) bool {
	switch e.g.kind {
	case GestureDrag:
		e.endDrag(p)
	case GestureResize:
		e.endResize(p)
	default:
		return false
	}
	return true
}

// CancelGesture abandons the active gesture without touching the layout.
func (e *Engine) CancelGesture() {
	if e.g.kind == GestureNone {
		return
	}
	e.g = gesture{}
	e.renderer.Preview(Preview{})
}

// dragTarget snaps the pointer delta to whole cells and clamps the result
// into the grid.
func (e *Engine) dragTarget(p Point) Rect {
	s := e.g.start
	dx := round((p.X - e.g.origin.X) / e.colWidth())
	dy := round((p.Y - e.g.origin.Y) / float64(e.cfg.RowHeight))
	x := clamp(s.X+dx, 0, e.cfg.Columns-s.W)
	y := clamp(s.Y+dy, 0, max(0, e.cfg.MaxRows-s.H))
	return R(x, y, s.W, s.H)
}

func (e *Engine) dragPreview(p Point) Preview {
	r := e.dragTarget(p)
	e.g.swapTarget = ""
	if e.occ.canFit(r.X, r.Y, r.W, r.H, e.g.id) {
		return Preview{Kind: PreviewFit, Rect: r}
	}
	if e.cfg.Swappable {
		if t := e.predominant(r, e.g.id); t != nil {
			e.g.swapTarget = t.ID
			return Preview{Kind: PreviewSwap, Rect: t.Rect, Target: t.ID}
		}
	}
	return Preview{}
}

// predominant returns the widget owning the most cells inside r. Ties go to
// the lexicographically smallest id.
func (e *Engine) predominant(r Rect, skipID string) *Widget {
	best, bestN := "", 0
	for id, n := range e.occ.counts(r, skipID) {
		if n > bestN || (n == bestN && id < best) {
			best, bestN = id, n
		}
	}
	if best == "" {
		return nil
	}
	_, w := e.find(best)
	return w
}

func (e *Engine) endDrag(p Point) {
	st := e.g
	r := e.dragTarget(p)
	e.g = gesture{}
	e.renderer.Preview(Preview{})

	_, w := e.find(st.id)
	if w == nil {
		return
	}
	e.occ.free(w.ID)
	switch {
	case e.occ.canFit(r.X, r.Y, r.W, r.H, w.ID):
		w.X, w.Y = r.X, r.Y
		e.occ.occupy(w.ID, w.Rect)
		e.renderer.Place(*w)
	case e.cfg.Swappable && st.swapTarget != "" && e.exists(st.swapTarget):
		_, t := e.find(st.swapTarget)
		e.occ.occupy(w.ID, w.Rect)
		e.swap(w, t)
	default:
		w.X, w.Y = r.X, r.Y
		e.occ.occupy(w.ID, w.Rect)
		e.renderer.Place(*w)
		e.resolveCollisions(w, st.start, false)
	}
	e.updateHeight()
	e.log.Debug("drag end", slog.String("id", w.ID), slog.Int("x", w.X), slog.Int("y", w.Y))
	e.changed("drag")
}

// resizeTarget converts the pointer delta into a whole-cell size anchored at
// the widget's start position.
func (e *Engine) resizeTarget(p Point) Rect {
	s := e.g.start
	cw := e.colWidth()
	rh := float64(e.cfg.RowHeight)
	wpx := max(e.g.startW+(p.X-e.g.origin.X), float64(e.cfg.MinWidth))
	hpx := max(e.g.startH+(p.Y-e.g.origin.Y), rh)
	wpx = min(wpx, float64(e.cfg.Columns-s.X)*cw)
	w := clamp(round(wpx/cw), 1, max(1, e.cfg.Columns-s.X))
	h := clamp(round(hpx/rh), 1, max(1, e.cfg.MaxRows-s.Y))
	return R(s.X, s.Y, w, h)
}

func (e *Engine) endResize(p Point) {
	st := e.g
	r := e.resizeTarget(p)
	e.g = gesture{}
	e.renderer.Preview(Preview{})

	_, w := e.find(st.id)
	if w == nil {
		return
	}
	old := w.Rect
	e.occ.free(w.ID)
	w.W, w.H = r.W, r.H
	e.occ.occupy(w.ID, w.Rect)
	e.renderer.Place(*w)
	if w.W > old.W || w.H > old.H {
		e.resolveCollisions(w, st.start, true)
	}
	if e.cfg.Compact && (w.W < old.W || w.H < old.H) {
		e.compact()
	}
	e.updateHeight()
	e.log.Debug("resize end", slog.String("id", w.ID), slog.Int("w", w.W), slog.Int("h", w.H))
	e.changed("resize")
}

func (e *Engine) exists(id string) bool {
	_, w := e.find(id)
	return w != nil
}
