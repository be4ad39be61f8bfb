/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package history

import (
	"testing"
	"time"

	"draggrid/internal/domain"
)

func TestUndoRedoBasic(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024 * 1024, MaxPerBoard: 10, MinInterval: 10 * time.Millisecond})
	b := "main"
	t0 := time.Now()
	m.Push(Snapshot{Board: b, Blob: []byte("a"), TS: t0})
	m.Push(Snapshot{Board: b, Blob: []byte("b"), TS: t0.Add(20 * time.Millisecond)})
	if _, boards, total := m.Stats(); boards != 1 || total != 2 {
		t.Fatalf("expected 1 board and 2 snapshots, got boards=%d total=%d", boards, total)
	}
	s, ok := m.Undo(b)
	if !ok || string(s.Blob) != "a" {
		t.Fatalf("undo expected 'a', got ok=%v blob=%q", ok, string(s.Blob))
	}
	if _, ok := m.Undo(b); ok {
		t.Fatalf("undo past the first state must fail")
	}
	s, ok = m.Redo(b)
	if !ok || string(s.Blob) != "b" {
		t.Fatalf("redo expected 'b', got ok=%v blob=%q", ok, string(s.Blob))
	}
	if u, r := m.Depth(b); u != 1 || r != 0 {
		t.Fatalf("depth = %d/%d, want 1/0", u, r)
	}
}

func TestPushClearsRedo(t *testing.T) {
	m := NewManager(Config{MinInterval: time.Millisecond})
	t0 := time.Now()
	m.Push(Snapshot{Board: "x", Blob: []byte("1"), TS: t0})
	m.Push(Snapshot{Board: "x", Blob: []byte("2"), TS: t0.Add(time.Second)})
	m.Undo("x")
	m.Push(Snapshot{Board: "x", Blob: []byte("3"), TS: t0.Add(2 * time.Second)})
	if _, ok := m.Redo("x"); ok {
		t.Fatalf("redo must be cleared by a new state")
	}
}

func TestCoalesce(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024 * 1024, MaxPerBoard: 10, MinInterval: 50 * time.Millisecond})
	b := "dash"
	t0 := time.Now()
	m.Push(Snapshot{Board: b, Blob: []byte("base"), TS: t0})
	m.Push(Snapshot{Board: b, Blob: []byte("1"), TS: t0.Add(10 * time.Millisecond)}) // never replaces the base
	m.Push(Snapshot{Board: b, Blob: []byte("2"), TS: t0.Add(20 * time.Millisecond)}) // coalesce
	_, _, total := m.Stats()
	if total != 2 {
		t.Fatalf("expected 2 snapshots after coalescing, got %d", total)
	}
	s, ok := m.Undo(b)
	if !ok || string(s.Blob) != "base" {
		t.Fatalf("expected base state, got ok=%v blob=%q", ok, string(s.Blob))
	}
	s, _ = m.Redo(b)
	if string(s.Blob) != "2" {
		t.Fatalf("expected coalesced snapshot '2', got %q", string(s.Blob))
	}
}

func TestCaps(t *testing.T) {
	m := NewManager(Config{MaxBytes: 20, MaxPerBoard: 2, MinInterval: 1 * time.Millisecond})
	b := "capped"
	for i := 0; i < 10; i++ {
		m.Push(Snapshot{Board: b, Blob: []byte("xxxxx"), TS: time.Now().Add(time.Duration(i) * 10 * time.Millisecond)})
	}
	_, _, total := m.Stats()
	if total > 2 {
		t.Fatalf("expected MaxPerBoard cap to limit to 2, got %d", total)
	}
}

func TestSnapshotLayout(t *testing.T) {
	l := domain.Layout{{ID: "a", X: 1, Y: 2, Width: 3, Height: 4}}
	s, err := NewSnapshot("b", l, time.Now())
	if err != nil {
		t.Fatalf("NewSnapshot error: %v", err)
	}
	got, err := s.Layout()
	if err != nil {
		t.Fatalf("Layout error: %v", err)
	}
	if len(got) != 1 || got[0] != l[0] {
		t.Fatalf("layout = %+v", got)
	}
}
