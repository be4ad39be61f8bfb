/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package history keeps per-board undo/redo stacks of serialized layouts.
package history

import (
	"sync"
	"time"

	"draggrid/internal/domain"
)

// Snapshot is one serialized layout state of a board. Size is estimated as
// len(Blob). TS is when the state was captured.
type Snapshot struct {
	Board string    `json:"board"`
	Blob  []byte    `json:"blob"`
	TS    time.Time `json:"ts"`
}

// NewSnapshot encodes layout into a snapshot.
func NewSnapshot(board string, layout domain.Layout, ts time.Time) (Snapshot, error) {
	b, err := layout.Encode()
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Board: board, Blob: b, TS: ts}, nil
}

// Layout decodes the snapshot blob.
func (s Snapshot) Layout() (domain.Layout, error) { return domain.DecodeLayout(s.Blob) }

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerBoard limits the number of states kept per board (0 means unlimited).
	MaxPerBoard int
	// MinInterval coalesces states captured within the interval for the same
	// board, replacing the newest one instead of pushing a new entry.
	MinInterval time.Duration
}

// Manager holds, per board, the stack of states up to and including the
// current one plus the redo stack. It is safe for concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex
	// per-board stacks; the top of undo is the current state
	undo map[string][]Snapshot
	redo map[string][]Snapshot
	// accounting
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &Manager{cfg: cfg, undo: make(map[string][]Snapshot), redo: make(map[string][]Snapshot)}
}

// Push records the current state of a board and clears its redo stack. A
// state captured within MinInterval of the previous one replaces it, except
// that the oldest state of a board is never replaced.
func (m *Manager) Push(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[s.Board]
	if n := len(stack); n > 1 {
		last := stack[n-1]
		if s.TS.Sub(last.TS) < m.cfg.MinInterval {
			m.totalBytes -= len(last.Blob)
			m.totalBytes += len(s.Blob)
			stack[n-1] = s
			m.redo[s.Board] = nil
			m.enforceCapsLocked(s.Board)
			return
		}
	}
	m.undo[s.Board] = append(stack, s)
	m.totalBytes += len(s.Blob)
	m.redo[s.Board] = nil
	m.enforceCapsLocked(s.Board)
}

// Undo moves the current state onto the redo stack and returns the state
// before it.
func (m *Manager) Undo(board string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[board]
	if len(stack) < 2 {
		return Snapshot{}, false
	}
	cur := stack[len(stack)-1]
	m.undo[board] = stack[:len(stack)-1]
	m.totalBytes -= len(cur.Blob)
	m.redo[board] = append(m.redo[board], cur)
	return m.undo[board][len(m.undo[board])-1], true
}

// Redo re-applies the most recently undone state and returns it.
func (m *Manager) Redo(board string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[board]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[board] = r[:len(r)-1]
	m.undo[board] = append(m.undo[board], s)
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked(board)
	return s, true
}

// Depth reports how many undo and redo steps are available for a board.
func (m *Manager) Depth(board string) (undo, redo int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return max(len(m.undo[board])-1, 0), len(m.redo[board])
}

// Current returns the current state of a board.
func (m *Manager) Current(board string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[board]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	return stack[len(stack)-1], true
}

// State is the exportable history of one board.
type State struct {
	Undo []Snapshot `json:"undo"`
	Redo []Snapshot `json:"redo"`
}

// Export copies the stacks of a board.
func (m *Manager) Export(board string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		Undo: append([]Snapshot(nil), m.undo[board]...),
		Redo: append([]Snapshot(nil), m.redo[board]...),
	}
}

// Import replaces the stacks of a board with st. Caps apply afterwards.
func (m *Manager) Import(board string, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[board] {
		m.totalBytes -= len(s.Blob)
	}
	undo := make([]Snapshot, 0, len(st.Undo))
	for _, s := range st.Undo {
		s.Board = board
		undo = append(undo, s)
		m.totalBytes += len(s.Blob)
	}
	redo := make([]Snapshot, 0, len(st.Redo))
	for _, s := range st.Redo {
		s.Board = board
		redo = append(redo, s)
	}
	m.undo[board] = undo
	m.redo[board] = redo
	m.enforceCapsLocked(board)
}

// Clear drops every state of a board.
func (m *Manager) Clear(board string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[board] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.undo, board)
	delete(m.redo, board)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, boards int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	boards = len(m.undo)
	for _, v := range m.undo {
		totalSnapshots += len(v)
	}
	return m.totalBytes, boards, totalSnapshots
}

func (m *Manager) enforceCapsLocked(board string) {
	if m.cfg.MaxPerBoard > 0 {
		stack := m.undo[board]
		if len(stack) > m.cfg.MaxPerBoard {
			toDrop := len(stack) - m.cfg.MaxPerBoard
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[board] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune oldest across all boards, never a board's
	// current state.
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldest := ""
		found := false
		var oldestTS time.Time
		for b, stack := range m.undo {
			if len(stack) < 2 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldest, oldestTS, found = b, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldest]
		m.totalBytes -= len(stack[0].Blob)
		m.undo[oldest] = stack[1:]
	}
}
