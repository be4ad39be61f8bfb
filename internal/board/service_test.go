/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package board

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"draggrid/internal/domain"
	"draggrid/internal/grid"
	"draggrid/internal/history"
	"draggrid/internal/storage"
)

type fixture struct {
	svc   *Service
	local *storage.Local
	index *storage.Index
	root  string
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	root := t.TempDir()
	return openFixture(t, root, opts)
}

func openFixture(t *testing.T, root string, opts Options) *fixture {
	t.Helper()
	local, err := storage.OpenLocal(filepath.Join(root, "local"))
	if err != nil {
		t.Fatalf("OpenLocal error: %v", err)
	}
	index, err := storage.OpenIndex(root)
	if err != nil {
		t.Fatalf("OpenIndex error: %v", err)
	}
	t.Cleanup(func() { _ = index.Close() })
	svc := NewService(opts, Deps{
		Local:   local,
		Index:   index,
		History: history.NewManager(history.Config{MinInterval: time.Nanosecond}),
	})
	t0 := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	svc.now = func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
	return &fixture{svc: svc, local: local, index: index, root: root}
}

func add(t *testing.T, s *Service, board, id string, x, y, w, h int) {
	t.Helper()
	err := s.Do(board, func(e *grid.Engine) error {
		e.AddWidget(grid.WidgetSpec{ID: id, X: x, Y: y, Width: w, Height: h})
		return nil
	})
	if err != nil {
		t.Fatalf("Do(%s) error: %v", board, err)
	}
}

func ids(l domain.Layout) string {
	out := make([]string, len(l))
	for i, r := range l {
		out[i] = r.ID
	}
	return strings.Join(out, ",")
}

func TestMutationsPersistLocallyAndInIndex(t *testing.T) {
	f := newFixture(t, Options{})
	add(t, f.svc, "main", "a", 0, 0, 3, 2)

	got, ok, err := f.local.Load("gridConfig/main")
	if err != nil || !ok || ids(got) != "a" {
		t.Fatalf("local store got %v ok=%v err=%v", got, ok, err)
	}
	snap, ok, err := f.index.LatestSnapshot(context.Background(), "main")
	if err != nil || !ok || ids(snap.Layout) != "a" {
		t.Fatalf("index got %+v ok=%v err=%v", snap, ok, err)
	}
	if open := f.svc.Open(); len(open) != 1 || open[0] != "main" {
		t.Fatalf("Open got %v", open)
	}
}

func TestOpenRestoresFromLocal(t *testing.T) {
	f := newFixture(t, Options{})
	stored := domain.Layout{{ID: "x", X: 2, Y: 1, Width: 4, Height: 2, Title: "kept"}}
	if err := f.local.Save("gridConfig/main", stored); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	got, err := f.svc.Layout("main")
	if err != nil {
		t.Fatalf("Layout error: %v", err)
	}
	if len(got) != 1 || got[0] != stored[0] {
		t.Fatalf("restore got %+v", got)
	}
	m, err := f.svc.Mirror("main")
	if err != nil {
		t.Fatalf("Mirror error: %v", err)
	}
	if v, ok := m.Attr("x", "data-gs-x"); !ok || v != "2" {
		t.Fatalf("mirror not populated: %q %v", v, ok)
	}
	// restoring alone is not an undoable step
	if u, _ := f.svc.History("main"); u != 0 {
		t.Fatalf("expected no undo after restore, got %d", u)
	}
}

func TestOpenFallsBackToIndex(t *testing.T) {
	f := newFixture(t, Options{})
	l := domain.Layout{{ID: "from-index", Width: 2, Height: 2}}
	if err := f.index.SaveSnapshot(context.Background(), "main", l, time.Now()); err != nil {
		t.Fatalf("SaveSnapshot error: %v", err)
	}
	got, err := f.svc.Layout("main")
	if err != nil || ids(got) != "from-index" {
		t.Fatalf("index restore got %v err %v", got, err)
	}
}

func TestUndoRedo(t *testing.T) {
	f := newFixture(t, Options{})
	add(t, f.svc, "main", "a", 0, 0, 3, 2)
	add(t, f.svc, "main", "b", 3, 0, 3, 2)
	if u, r := f.svc.History("main"); u != 2 || r != 0 {
		t.Fatalf("History got undo=%d redo=%d", u, r)
	}
	if err := f.svc.Undo("main"); err != nil {
		t.Fatalf("Undo error: %v", err)
	}
	if got, _ := f.svc.Layout("main"); ids(got) != "a" {
		t.Fatalf("after undo got %s", ids(got))
	}
	// undo writes through to the local store
	if got, _, _ := f.local.Load("gridConfig/main"); ids(got) != "a" {
		t.Fatalf("local store after undo got %s", ids(got))
	}
	if err := f.svc.Redo("main"); err != nil {
		t.Fatalf("Redo error: %v", err)
	}
	if got, _ := f.svc.Layout("main"); ids(got) != "a,b" {
		t.Fatalf("after redo got %s", ids(got))
	}
	_ = f.svc.Undo("main")
	_ = f.svc.Undo("main")
	if got, _ := f.svc.Layout("main"); len(got) != 0 {
		t.Fatalf("expected empty base state, got %s", ids(got))
	}
	if err := f.svc.Undo("main"); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("expected ErrNoHistory, got %v", err)
	}
	if err := f.svc.Redo("other"); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("expected ErrNoHistory on fresh board, got %v", err)
	}
}

func TestPersistHistoryAcrossServices(t *testing.T) {
	root := t.TempDir()
	f := openFixture(t, root, Options{PersistHistory: true})
	add(t, f.svc, "main", "a", 0, 0, 3, 2)
	add(t, f.svc, "main", "b", 3, 0, 3, 2)
	f.svc.Close(context.Background())

	g := openFixture(t, root, Options{PersistHistory: true})
	if got, _ := g.svc.Layout("main"); ids(got) != "a,b" {
		t.Fatalf("reopen got %s", ids(got))
	}
	if err := g.svc.Undo("main"); err != nil {
		t.Fatalf("Undo after reopen: %v", err)
	}
	if got, _ := g.svc.Layout("main"); ids(got) != "a" {
		t.Fatalf("after undo got %s", ids(got))
	}
	g.svc.Close(context.Background())

	h := openFixture(t, root, Options{PersistHistory: true})
	if err := h.svc.Redo("main"); err != nil {
		t.Fatalf("Redo after second reopen: %v", err)
	}
	if got, _ := h.svc.Layout("main"); ids(got) != "a,b" {
		t.Fatalf("after redo got %s", ids(got))
	}
	keys := h.local.Keys(context.Background(), "")
	boards := 0
	for _, k := range keys {
		if _, ok := h.svc.BoardForKey(k); ok {
			boards++
		}
	}
	if boards != 1 {
		t.Fatalf("history keys must not look like boards: %v", keys)
	}
}

func TestReload(t *testing.T) {
	f := newFixture(t, Options{})
	add(t, f.svc, "main", "a", 0, 0, 3, 2)
	if changed, err := f.svc.Reload("main"); err != nil || changed {
		t.Fatalf("unchanged reload got changed=%v err=%v", changed, err)
	}
	ext := domain.Layout{{ID: "ext", X: 1, Width: 2, Height: 1}}
	if err := f.local.Save("gridConfig/main", ext); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	changed, err := f.svc.Reload("main")
	if err != nil || !changed {
		t.Fatalf("reload got changed=%v err=%v", changed, err)
	}
	if got, _ := f.svc.Layout("main"); ids(got) != "ext" {
		t.Fatalf("after reload got %s", ids(got))
	}
	// an external change is undoable
	if err := f.svc.Undo("main"); err != nil {
		t.Fatalf("Undo error: %v", err)
	}
	if got, _ := f.svc.Layout("main"); ids(got) != "a" {
		t.Fatalf("after undo got %s", ids(got))
	}
}

func TestReloadSeesOtherProcessWrites(t *testing.T) {
	f := newFixture(t, Options{})
	add(t, f.svc, "main", "a", 0, 0, 3, 2)
	other, err := storage.OpenLocal(filepath.Join(f.root, "local"))
	if err != nil {
		t.Fatalf("OpenLocal error: %v", err)
	}
	for _, id := range []string{"first", "second"} {
		if err := other.Save("gridConfig/main", domain.Layout{{ID: id, Width: 2, Height: 1}}); err != nil {
			t.Fatalf("Save error: %v", err)
		}
		changed, err := f.svc.Reload("main")
		if err != nil || !changed {
			t.Fatalf("reload %s got changed=%v err=%v", id, changed, err)
		}
		if got, _ := f.svc.Layout("main"); ids(got) != id {
			t.Fatalf("after reload got %s, want %s", ids(got), id)
		}
	}
}

func TestRemotePush(t *testing.T) {
	var mu sync.Mutex
	var paths, bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path+" "+r.Header.Get("Authorization"))
		bodies = append(bodies, string(b))
		mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	cfg := grid.DefaultConfig()
	cfg.SaveURL = srv.URL + "/api/layouts/" + BoardPlaceholder
	cfg.SaveMethod = http.MethodPut
	f := newFixture(t, Options{Grid: cfg, Token: "t0k"})
	add(t, f.svc, "main", "a", 0, 0, 3, 2)
	if err := f.svc.Push(context.Background(), "main"); err != nil {
		t.Fatalf("Push error: %v", err)
	}
	f.svc.Close(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(paths) < 2 {
		t.Fatalf("expected async and explicit pushes, got %v", paths)
	}
	for _, p := range paths {
		if p != "PUT /api/layouts/main Bearer t0k" {
			t.Fatalf("unexpected request %q", p)
		}
	}
	if !strings.Contains(bodies[len(bodies)-1], `"id":"a"`) {
		t.Fatalf("unexpected body %s", bodies[len(bodies)-1])
	}
}

func TestOpenDoesNotPushRestoredLayout(t *testing.T) {
	var hits int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	cfg := grid.DefaultConfig()
	cfg.SaveURL = srv.URL + "/api/layouts/" + BoardPlaceholder
	f := newFixture(t, Options{Grid: cfg})
	stored := domain.Layout{{ID: "a", X: 0, Y: 0, Width: 3, Height: 2}}
	if err := f.local.Save(f.svc.Key("main"), stored); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if got, err := f.svc.Layout("main"); err != nil || ids(got) != "a" {
		t.Fatalf("Layout = %s, %v", ids(got), err)
	}
	f.svc.Close(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if hits != 0 {
		t.Fatalf("restore pushed %d times, want 0", hits)
	}
}

func TestPushWithoutTarget(t *testing.T) {
	f := newFixture(t, Options{})
	if err := f.svc.Push(context.Background(), "main"); err == nil {
		t.Fatalf("expected error without target")
	}
}

func TestInvalidNames(t *testing.T) {
	f := newFixture(t, Options{})
	for _, name := range []string{"", " x", "a/b", "..", `a\b`, "c:"} {
		err := f.svc.Do(name, func(*grid.Engine) error { return nil })
		if !errors.Is(err, ErrInvalidName) {
			t.Fatalf("Do(%q) expected ErrInvalidName, got %v", name, err)
		}
	}
	if _, ok := f.svc.BoardForKey("gridConfig/main"); !ok {
		t.Fatalf("BoardForKey rejected a board key")
	}
	if _, ok := f.svc.BoardForKey("other/main"); ok {
		t.Fatalf("BoardForKey accepted a foreign key")
	}
}

func TestDoPropagatesError(t *testing.T) {
	f := newFixture(t, Options{})
	boom := errors.New("boom")
	if err := f.svc.Do("main", func(*grid.Engine) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
}

func TestAutosaveWritesLayoutFiles(t *testing.T) {
	f := newFixture(t, Options{})
	add(t, f.svc, "main", "a", 0, 0, 3, 2)
	add(t, f.svc, "ops", "b", 1, 1, 2, 2)

	dir := filepath.Join(f.root, "autosave")
	paths, err := f.svc.Autosave(dir)
	if err != nil {
		t.Fatalf("Autosave error: %v", err)
	}
	if len(paths) != 2 || filepath.Base(paths[0]) != "main.json" || filepath.Base(paths[1]) != "ops.json" {
		t.Fatalf("unexpected paths %v", paths)
	}
	got, err := storage.ReadLayoutFile(paths[1])
	if err != nil || ids(got) != "b" {
		t.Fatalf("ReadLayoutFile got %v err=%v", got, err)
	}

	f.svc.mu.Lock()
	_, err = f.svc.Autosave(dir)
	f.svc.mu.Unlock()
	if err == nil {
		t.Fatalf("expected busy error while the service is locked")
	}
}
