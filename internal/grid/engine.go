/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package grid implements the drag-and-resize grid layout engine.
//
// The engine owns an occupancy grid of fixed column count and unbounded rows,
// the ordered widget list placed on it, and the state of at most one pointer
// gesture. Every mutation is synchronous; presentation is delegated to a
// Renderer and persistence to the OnChange callback and an optional Publisher.
// An Engine is not safe for concurrent use.
package grid

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"draggrid/internal/domain"
	applog "draggrid/internal/log"
)

// DefaultSurfaceWidth is the container width assumed until SetContainerWidth is called.
const DefaultSurfaceWidth = 1200.0

// minVisibleRows keeps an empty board at a usable height.
const minVisibleRows = 5

// Widget is a placed rectangle with an opaque payload.
type Widget struct {
	ID string
	Rect
	Title   string
	Content string
	Class   string
}

// Record converts the widget into its wire form.
func (w Widget) Record() domain.Record {
	return domain.Record{
		ID:      w.ID,
		X:       w.X,
		Y:       w.Y,
		Width:   w.W,
		Height:  w.H,
		Content: w.Content,
		Class:   w.Class,
		Title:   w.Title,
	}
}

// WidgetSpec describes a widget to add. Zero Width/Height take the default
// 3x2 size; an empty ID is generated. AutoPlace ignores X/Y and uses the first
// empty space that fits.
type WidgetSpec struct {
	ID        string
	X, Y      int
	Width     int
	Height    int
	AutoPlace bool
	Title     string
	Content   string
	Class     string
}

// SpecFromRecord maps a wire record to a WidgetSpec.
func SpecFromRecord(r domain.Record) WidgetSpec {
	return WidgetSpec{
		ID:      r.ID,
		X:       r.X,
		Y:       r.Y,
		Width:   r.Width,
		Height:  r.Height,
		Title:   r.Title,
		Content: r.Content,
		Class:   r.Class,
	}
}

// Engine is the grid layout engine.
type Engine struct {
	cfg      Config
	widgets  []*Widget
	occ      *occupancy
	surfaceW float64
	g        gesture

	onChange func(domain.Layout)
	renderer Renderer
	pub      Publisher
	log      *slog.Logger
	newID    func() string
}

// Option customizes an Engine at construction.
type Option func(*Engine)

// WithRenderer attaches the presentation subscriber.
func WithRenderer(r Renderer) Option {
	return func(e *Engine) {
		if r != nil {
			e.renderer = r
		}
	}
}

// WithPublisher attaches the remote persistence sink used when SaveURL is set.
func WithPublisher(p Publisher) Option { return func(e *Engine) { e.pub = p } }

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithIDFunc overrides widget id generation.
func WithIDFunc(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// New creates an empty engine.
func New(cfg Config, opts ...Option) *Engine {
	cfg = cfg.normalized()
	e := &Engine{
		cfg:      cfg,
		occ:      newOccupancy(cfg.Columns),
		surfaceW: DefaultSurfaceWidth,
		renderer: nopRenderer{},
		newID:    func() string { return "widget-" + uuid.NewString() },
	}
	for _, o := range opts {
		o(e)
	}
	if e.log == nil {
		e.log = applog.WithComponent("grid")
	}
	return e
}

// Config returns the current configuration.
func (e *Engine) Config() Config { return e.cfg }

// OnChange registers the single change subscriber. It receives the full
// serialized layout after every successful mutation.
func (e *Engine) OnChange(fn func(domain.Layout)) { e.onChange = fn }

// SetPublisher replaces the remote persistence sink. nil detaches it.
func (e *Engine) SetPublisher(p Publisher) { e.pub = p }

// SetContainerWidth records the rendering surface width used to translate
// pointer deltas into columns.
func (e *Engine) SetContainerWidth(px float64) {
	if px > 0 {
		e.surfaceW = px
	}
}

// ContainerWidth returns the surface width in pixels.
func (e *Engine) ContainerWidth() float64 { return e.surfaceW }

// ContainerHeight returns the board height in pixels.
func (e *Engine) ContainerHeight() int {
	bottom := 0
	for _, w := range e.widgets {
		bottom = max(bottom, w.Bottom())
	}
	return max(minVisibleRows, bottom) * e.cfg.RowHeight
}

// capRows keeps a rectangle of height h starting at row y above MaxRows,
// shrinking it to the budget and lifting it when it would end below.
func (e *Engine) capRows(y, h int) (int, int) {
	h = min(h, e.cfg.MaxRows)
	return min(y, e.cfg.MaxRows-h), h
}

// CanFit reports whether a w×h rectangle at (x, y) lies inside the grid and
// overlaps no widget other than skipID.
func (e *Engine) CanFit(x, y, w, h int, skipID string) bool {
	return e.occ.canFit(x, y, w, h, skipID)
}

// OccupantAt returns the id owning the cell, or "" when empty.
func (e *Engine) OccupantAt(row, col int) string { return e.occ.at(row, col) }

// Len returns the number of widgets.
func (e *Engine) Len() int { return len(e.widgets) }

// Widget returns a copy of the widget with the given id.
func (e *Engine) Widget(id string) (Widget, bool) {
	if _, w := e.find(id); w != nil {
		return *w, true
	}
	return Widget{}, false
}

// Widgets returns copies of all widgets in insertion order.
func (e *Engine) Widgets() []Widget {
	out := make([]Widget, len(e.widgets))
	for i, w := range e.widgets {
		out[i] = *w
	}
	return out
}

// AddWidget places a widget as requested. Overlap with existing widgets is the
// caller's responsibility; the newest widget owns any shared cells.
func (e *Engine) AddWidget(s WidgetSpec) Widget {
	w := e.place(s)
	e.updateHeight()
	e.changed("add")
	return *w
}

func (e *Engine) place(s WidgetSpec) *Widget {
	cols := e.cfg.Columns
	width, height := s.Width, s.Height
	if width <= 0 {
		width = domain.DefaultWidth
	}
	if height <= 0 {
		height = domain.DefaultHeight
	}
	width = min(width, cols)
	x, y := s.X, s.Y
	if s.AutoPlace {
		x, y = e.FindEmptySpace(width, height)
	}
	x = clamp(x, 0, cols-width)
	y, height = e.capRows(max(y, 0), height)

	id := strings.TrimSpace(s.ID)
	if _, dup := e.find(id); dup != nil {
		fresh := e.newID()
		e.log.Warn("duplicate widget id, assigned a fresh one", slog.String("id", id), slog.String("new", fresh))
		id = fresh
	}
	if id == "" {
		id = e.newID()
	}
	w := &Widget{
		ID:      id,
		Rect:    R(x, y, width, height),
		Title:   s.Title,
		Content: s.Content,
		Class:   s.Class,
	}
	e.occ.occupy(w.ID, w.Rect)
	e.widgets = append(e.widgets, w)
	e.renderer.Place(*w)
	return w
}

// RemoveWidget deletes the widget and, with compaction enabled, re-packs the
// board. Unknown ids are ignored.
func (e *Engine) RemoveWidget(id string) bool {
	i, w := e.find(id)
	if w == nil {
		return false
	}
	if e.g.kind != GestureNone && e.g.id == id {
		e.g = gesture{}
		e.renderer.Preview(Preview{})
	}
	e.occ.free(w.ID)
	e.renderer.Remove(w.ID)
	e.widgets = append(e.widgets[:i], e.widgets[i+1:]...)
	if e.cfg.Compact {
		e.compact()
	}
	e.updateHeight()
	e.changed("remove")
	return true
}

// MoveWidget sets the widget position exactly. No collision resolution runs.
func (e *Engine) MoveWidget(id string, x, y int) bool {
	_, w := e.find(id)
	if w == nil {
		return false
	}
	e.occ.free(w.ID)
	w.X = x
	w.Y, _ = e.capRows(y, w.H)
	e.occ.occupy(w.ID, w.Rect)
	e.renderer.Place(*w)
	e.updateHeight()
	e.changed("move")
	return true
}

// ResizeWidget sets the widget size exactly. No collision resolution runs.
func (e *Engine) ResizeWidget(id string, width, height int) bool {
	_, w := e.find(id)
	if w == nil {
		return false
	}
	e.occ.free(w.ID)
	w.W = width
	w.Y, w.H = e.capRows(w.Y, height)
	e.occ.occupy(w.ID, w.Rect)
	e.renderer.Place(*w)
	e.updateHeight()
	e.changed("resize")
	return true
}

// Swap exchanges the full geometry of two widgets.
func (e *Engine) Swap(a, b string) bool {
	_, wa := e.find(a)
	_, wb := e.find(b)
	if wa == nil || wb == nil || wa == wb {
		return false
	}
	e.swap(wa, wb)
	e.changed("swap")
	return true
}

func (e *Engine) swap(a, b *Widget) {
	e.occ.free(a.ID)
	e.occ.free(b.ID)
	a.Rect, b.Rect = b.Rect, a.Rect
	e.occ.occupy(a.ID, a.Rect)
	e.occ.occupy(b.ID, b.Rect)
	e.renderer.Place(*a)
	e.renderer.Place(*b)
	e.updateHeight()
}

// UpdateContent replaces the widget body.
func (e *Engine) UpdateContent(id, content string) bool {
	return e.edit(id, "content", func(w *Widget) { w.Content = content })
}

// UpdateTitle replaces the widget title.
func (e *Engine) UpdateTitle(id, title string) bool {
	return e.edit(id, "title", func(w *Widget) { w.Title = title })
}

// AddClass appends a CSS class to the widget's class list.
func (e *Engine) AddClass(id, class string) bool {
	class = strings.TrimSpace(class)
	if class == "" {
		return false
	}
	return e.edit(id, "class", func(w *Widget) {
		fields := strings.Fields(w.Class)
		for _, f := range fields {
			if f == class {
				return
			}
		}
		w.Class = strings.Join(append(fields, class), " ")
	})
}

// RemoveClass drops a CSS class from the widget's class list.
func (e *Engine) RemoveClass(id, class string) bool {
	class = strings.TrimSpace(class)
	if class == "" {
		return false
	}
	return e.edit(id, "class", func(w *Widget) {
		fields := strings.Fields(w.Class)
		kept := fields[:0]
		for _, f := range fields {
			if f != class {
				kept = append(kept, f)
			}
		}
		w.Class = strings.Join(kept, " ")
	})
}

func (e *Engine) edit(id, op string, fn func(w *Widget)) bool {
	_, w := e.find(id)
	if w == nil {
		return false
	}
	fn(w)
	e.renderer.Place(*w)
	e.changed(op)
	return true
}

// Serialize returns the layout in insertion order.
func (e *Engine) Serialize() domain.Layout {
	out := make(domain.Layout, len(e.widgets))
	for i, w := range e.widgets {
		out[i] = w.Record()
	}
	return out
}

// Load replaces every widget with the given layout. Missing ids are generated
// and zero sizes take the defaults. One change notification is emitted.
func (e *Engine) Load(l domain.Layout) {
	e.reset()
	for _, r := range l {
		e.place(SpecFromRecord(r))
	}
	e.updateHeight()
	e.changed("load")
}

// LoadJSON decodes and loads a JSON layout. Input that is not an array loads
// as an empty board; unparsable JSON leaves the engine untouched.
func (e *Engine) LoadJSON(data []byte) error {
	l, err := domain.DecodeLayout(data)
	if err != nil {
		return err
	}
	e.Load(l)
	return nil
}

// Clear removes every widget.
func (e *Engine) Clear() {
	e.reset()
	e.updateHeight()
	e.changed("clear")
}

func (e *Engine) reset() {
	e.g = gesture{}
	for _, w := range e.widgets {
		e.renderer.Remove(w.ID)
	}
	e.widgets = nil
	e.occ.reset()
}

// Compact re-packs every widget toward the top of its column.
func (e *Engine) Compact() {
	e.compact()
	e.updateHeight()
	e.changed("compact")
}

// SetCompact toggles automatic compaction; enabling it compacts immediately.
func (e *Engine) SetCompact(enabled bool) {
	e.cfg.Compact = enabled
	if enabled {
		e.Compact()
	}
}

func (e *Engine) SetDraggable(enabled bool) { e.cfg.Draggable = enabled }
func (e *Engine) SetResizable(enabled bool) { e.cfg.Resizable = enabled }
func (e *Engine) SetRemovable(enabled bool) { e.cfg.Removable = enabled }
func (e *Engine) SetSwappable(enabled bool) { e.cfg.Swappable = enabled }

// UpdateConfig replaces the configuration and re-renders every widget. A
// column count change rebuilds the occupancy grid.
func (e *Engine) UpdateConfig(cfg Config) {
	cfg = cfg.normalized()
	rebuild := cfg.Columns != e.cfg.Columns
	e.cfg = cfg
	if rebuild {
		e.occ = newOccupancy(cfg.Columns)
		for _, w := range e.widgets {
			e.occ.occupy(w.ID, w.Rect)
		}
	}
	for _, w := range e.widgets {
		e.renderer.Place(*w)
	}
	e.updateHeight()
}

func (e *Engine) find(id string) (int, *Widget) {
	for i, w := range e.widgets {
		if w.ID == id {
			return i, w
		}
	}
	return -1, nil
}

func (e *Engine) updateHeight() { e.renderer.Resize(e.ContainerHeight()) }

// changed fans the serialized layout out to the subscriber and, when a remote
// target is configured, to the publisher.
func (e *Engine) changed(op string) {
	layout := e.Serialize()
	e.log.Debug("layout changed", slog.String("op", op), slog.Int("widgets", len(layout)))
	if e.onChange != nil {
		e.onChange(layout)
	}
	if e.cfg.SaveURL != "" && e.pub != nil {
		e.pub.Enqueue(layout)
	}
}
