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

import "draggrid/internal/domain"

// PreviewKind describes the placeholder shown during a gesture.
type PreviewKind int

const (
	PreviewNone PreviewKind = iota
	// PreviewFit marks a free drop location.
	PreviewFit
	// PreviewSwap marks the rectangle of the widget that would be swapped.
	PreviewSwap
	// PreviewResize marks a resize target that fits.
	PreviewResize
	// PreviewResizeBlocked marks a resize target that overlaps other widgets.
	PreviewResizeBlocked
)

func (k PreviewKind) String() string {
	switch k {
	case PreviewFit:
		return "fit"
	case PreviewSwap:
		return "swap"
	case PreviewResize:
		return "resize"
	case PreviewResizeBlocked:
		return "resize-blocked"
	default:
		return "none"
	}
}

// Preview is the placeholder state after a pointer event.
type Preview struct {
	Kind   PreviewKind
	Rect   Rect
	Target string // swap target id for PreviewSwap
}

// Visible reports whether a placeholder should be drawn.
func (p Preview) Visible() bool { return p.Kind != PreviewNone }

// Renderer receives presentation updates. Implementations must not call back
// into the engine.
type Renderer interface {
	// Place is called whenever a widget is added or its geometry changes.
	Place(w Widget)
	Remove(id string)
	Preview(p Preview)
	// Resize reports the container height in pixels.
	Resize(heightPx int)
}

type nopRenderer struct{}

func (nopRenderer) Place(Widget)    {}
func (nopRenderer) Remove(string)   {}
func (nopRenderer) Preview(Preview) {}
func (nopRenderer) Resize(int)      {}

// Publisher accepts serialized layouts for asynchronous remote persistence.
type Publisher interface {
	Enqueue(layout domain.Layout)
}
