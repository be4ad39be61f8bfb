/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package render mirrors engine state as HTML element attributes and styles.
// A Mirror is the engine's Renderer for headless use: it records what a
// browser surface would show and can write a static HTML snapshot.
package render

import (
	_ "embed"
	"html/template"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"draggrid/internal/domain"
	"draggrid/internal/grid"
)

// Attribute names written on every widget element.
const (
	AttrX      = "data-gs-x"
	AttrY      = "data-gs-y"
	AttrWidth  = "data-gs-width"
	AttrHeight = "data-gs-height"
)

const itemClass = "drag-grid-item"

// Element is the mirrored state of one widget element.
type Element struct {
	ID      string
	Attrs   map[string]string
	Style   map[string]string
	Classes []string
	Title   string
	Content string
}

func (e Element) clone() Element {
	out := e
	out.Attrs = make(map[string]string, len(e.Attrs))
	for k, v := range e.Attrs {
		out.Attrs[k] = v
	}
	out.Style = make(map[string]string, len(e.Style))
	for k, v := range e.Style {
		out.Style[k] = v
	}
	out.Classes = append([]string(nil), e.Classes...)
	return out
}

// Mirror implements grid.Renderer. It is safe for concurrent reads while the
// engine writes.
type Mirror struct {
	mu          sync.RWMutex
	cfg         grid.Config
	elems       map[string]*Element
	order       []string
	placeholder grid.Preview
	heightPx    int
}

// NewMirror creates an empty mirror for the given grid configuration.
func NewMirror(cfg grid.Config) *Mirror {
	if cfg.Columns <= 0 {
		cfg = grid.DefaultConfig()
	}
	return &Mirror{cfg: cfg, elems: make(map[string]*Element)}
}

// Place creates or updates the element for w.
func (m *Mirror) Place(w grid.Widget) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.elems[w.ID]
	if !ok {
		el = &Element{ID: w.ID}
		m.elems[w.ID] = el
		m.order = append(m.order, w.ID)
	}
	el.Attrs = map[string]string{
		AttrX:      strconv.Itoa(w.X),
		AttrY:      strconv.Itoa(w.Y),
		AttrWidth:  strconv.Itoa(w.W),
		AttrHeight: strconv.Itoa(w.H),
	}
	el.Style = styleFor(m.cfg, w.Rect)
	el.Classes = append([]string{itemClass}, strings.Fields(w.Class)...)
	el.Title = w.Title
	el.Content = w.Content
}

func (m *Mirror) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.elems[id]; !ok {
		return
	}
	delete(m.elems, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *Mirror) Preview(p grid.Preview) {
	m.mu.Lock()
	m.placeholder = p
	m.mu.Unlock()
}

func (m *Mirror) Resize(heightPx int) {
	m.mu.Lock()
	m.heightPx = heightPx
	m.mu.Unlock()
}

// Attr returns an attribute of the element with the given id.
func (m *Mirror) Attr(id, name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	el, ok := m.elems[id]
	if !ok {
		return "", false
	}
	v, ok := el.Attrs[name]
	return v, ok
}

// Element returns a copy of the mirrored element.
func (m *Mirror) Element(id string) (Element, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	el, ok := m.elems[id]
	if !ok {
		return Element{}, false
	}
	return el.clone(), true
}

// IDs returns element ids in creation order.
func (m *Mirror) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// Height returns the last container height in pixels.
func (m *Mirror) Height() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.heightPx
}

// Placeholder returns the current gesture preview.
func (m *Mirror) Placeholder() grid.Preview {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.placeholder
}

// Layout reads the layout back from the element attributes.
func (m *Mirror) Layout() domain.Layout {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(domain.Layout, 0, len(m.order))
	for _, id := range m.order {
		el := m.elems[id]
		out = append(out, domain.Record{
			ID:      id,
			X:       domain.CoerceInt(el.Attrs[AttrX], 0),
			Y:       domain.CoerceInt(el.Attrs[AttrY], 0),
			Width:   domain.CoerceInt(el.Attrs[AttrWidth], domain.DefaultWidth),
			Height:  domain.CoerceInt(el.Attrs[AttrHeight], domain.DefaultHeight),
			Content: el.Content,
			Class:   strings.Join(el.Classes[1:], " "),
			Title:   el.Title,
		})
	}
	return out
}

// styleFor positions a rectangle: horizontal values are percentages of the
// container, vertical values are pixels, the margin sits inside the cell.
func styleFor(cfg grid.Config, r grid.Rect) map[string]string {
	colPct := 100 / float64(cfg.Columns)
	margin := cfg.Margin
	return map[string]string{
		"left":   num(float64(r.X)*colPct) + "%",
		"top":    strconv.Itoa(r.Y*cfg.RowHeight) + "px",
		"width":  "calc(" + num(float64(r.W)*colPct) + "% - " + strconv.Itoa(margin*2) + "px)",
		"height": strconv.Itoa(r.H*cfg.RowHeight-margin*2) + "px",
		"margin": strconv.Itoa(margin) + "px",
	}
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func styleString(style map[string]string) template.CSS {
	keys := make([]string, 0, len(style))
	for k := range style {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(k + ": " + style[k] + ";")
	}
	return template.CSS(b.String())
}

//go:embed board.html.tmpl
var boardTemplate string

var boardTmpl = template.Must(template.New("board").Parse(boardTemplate))

type htmlItem struct {
	ID      string
	Class   string
	X, Y    string
	W, H    string
	Style   template.CSS
	Title   string
	Content template.HTML
}

type htmlBoard struct {
	Height      int
	Removable   bool
	Resizable   bool
	Items       []htmlItem
	Placeholder template.CSS
}

// WriteHTML writes a static snapshot of the mirrored board. Widget content is
// the caller's markup and is emitted unescaped.
func (m *Mirror) WriteHTML(w io.Writer) error {
	m.mu.RLock()
	data := htmlBoard{
		Height:    max(m.heightPx, 5*m.cfg.RowHeight),
		Removable: m.cfg.Removable,
		Resizable: m.cfg.Resizable,
	}
	for _, id := range m.order {
		el := m.elems[id]
		data.Items = append(data.Items, htmlItem{
			ID:      id,
			Class:   strings.Join(el.Classes, " "),
			X:       el.Attrs[AttrX],
			Y:       el.Attrs[AttrY],
			W:       el.Attrs[AttrWidth],
			H:       el.Attrs[AttrHeight],
			Style:   styleString(el.Style),
			Title:   el.Title,
			Content: template.HTML(el.Content),
		})
	}
	if m.placeholder.Visible() {
		data.Placeholder = styleString(styleFor(m.cfg, m.placeholder.Rect))
	}
	m.mu.RUnlock()
	return boardTmpl.Execute(w, data)
}

// RenderHTML writes a static HTML snapshot of layout without an engine.
func RenderHTML(w io.Writer, cfg grid.Config, layout domain.Layout) error {
	m := NewMirror(cfg)
	bottom := 0
	for _, r := range layout {
		m.Place(grid.Widget{
			ID:      r.ID,
			Rect:    grid.R(r.X, r.Y, r.Width, r.Height),
			Title:   r.Title,
			Content: r.Content,
			Class:   r.Class,
		})
		bottom = max(bottom, r.Y+r.Height)
	}
	m.Resize(max(5, bottom) * m.cfg.RowHeight)
	return m.WriteHTML(w)
}
