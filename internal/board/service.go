/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package board manages named grid engines and connects their change
// notifications to the local store, the undo history, the snapshot index and
// the remote push target.
package board

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"draggrid/internal/domain"
	"draggrid/internal/grid"
	"draggrid/internal/history"
	applog "draggrid/internal/log"
	"draggrid/internal/persist"
	"draggrid/internal/render"
	"draggrid/internal/storage"
)

var (
	ErrInvalidName = errors.New("board: invalid name")
	ErrNoHistory   = errors.New("board: nothing to undo or redo")
)

// BoardPlaceholder in Grid.SaveURL is replaced by the board name.
const BoardPlaceholder = "{board}"

// Options configures every engine the service opens.
type Options struct {
	Grid         grid.Config
	SurfaceWidth float64
	// SnapshotKeep prunes the index to the newest N snapshots per board (0 keeps all).
	SnapshotKeep int
	// PersistHistory keeps undo/redo stacks in the local store across Close.
	PersistHistory bool
	// Token authenticates remote pushes.
	Token     string
	Timeout   time.Duration
	QueueSize int
}

// Deps are the optional collaborators. Nil members are skipped.
type Deps struct {
	Local   *storage.Local
	Index   *storage.Index
	History *history.Manager
}

// source tells the change hook where a notification came from.
type source int

const (
	fromUser source = iota
	fromHistory
	fromDisk
	fromRestore
)

type entry struct {
	name   string
	eng    *grid.Engine
	mirror *render.Mirror
	pub    *persist.Client
	src    source
}

// Service owns named boards. All engine access goes through the service
// mutex; engines themselves are single-writer.
type Service struct {
	mu     sync.Mutex
	opts   Options
	deps   Deps
	boards map[string]*entry
	log    *slog.Logger
	now    func() time.Time
}

// NewService creates a service. A nil History gets a default manager.
func NewService(opts Options, deps Deps) *Service {
	if deps.History == nil {
		deps.History = history.NewManager(history.Config{})
	}
	if opts.Grid.Columns == 0 {
		opts.Grid = grid.DefaultConfig()
	}
	return &Service{
		opts:   opts,
		deps:   deps,
		boards: map[string]*entry{},
		log:    applog.WithComponent("board"),
		now:    time.Now,
	}
}

// ValidName reports whether name can be used as a board name.
func ValidName(name string) error {
	if strings.TrimSpace(name) != name || name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\:`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Key returns the local store key of a board.
func (s *Service) Key(name string) string {
	key := s.opts.Grid.LocalStorageKey
	if key == "" {
		key = grid.DefaultConfig().LocalStorageKey
	}
	return key + "/" + name
}

func (s *Service) historyKey(name string) string {
	return s.Key(".history/" + name)
}

// Open returns the names of the boards currently open, sorted.
func (s *Service) Open() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.boards))
	for name := range s.boards {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Do runs fn against the engine of board name, opening it first if needed.
func (s *Service) Do(name string, fn func(e *grid.Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	en, err := s.openLocked(name)
	if err != nil {
		return err
	}
	return fn(en.eng)
}

// Layout returns the serialized layout of board name.
func (s *Service) Layout(name string) (domain.Layout, error) {
	var out domain.Layout
	err := s.Do(name, func(e *grid.Engine) error {
		out = e.Serialize()
		return nil
	})
	return out, err
}

// Mirror returns the render mirror of board name.
func (s *Service) Mirror(name string) (*render.Mirror, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	en, err := s.openLocked(name)
	if err != nil {
		return nil, err
	}
	return en.mirror, nil
}

// Undo restores the previous state of board name.
func (s *Service) Undo(name string) error {
	return s.step(name, s.deps.History.Undo)
}

// Redo re-applies the most recently undone state of board name.
func (s *Service) Redo(name string) error {
	return s.step(name, s.deps.History.Redo)
}

// History reports the available undo and redo depth of board name.
func (s *Service) History(name string) (undo, redo int) {
	return s.deps.History.Depth(name)
}

func (s *Service) step(name string, fn func(string) (history.Snapshot, bool)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	en, err := s.openLocked(name)
	if err != nil {
		return err
	}
	snap, ok := fn(name)
	if !ok {
		return ErrNoHistory
	}
	layout, err := snap.Layout()
	if err != nil {
		return fmt.Errorf("decode history state: %w", err)
	}
	en.src = fromHistory
	en.eng.Load(layout)
	en.src = fromUser
	return nil
}

// Reload re-reads board name from the local store, e.g. after another process
// wrote it. Unchanged layouts are ignored. It reports whether the board changed.
func (s *Service) Reload(name string) (bool, error) {
	if s.deps.Local == nil {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	en, err := s.openLocked(name)
	if err != nil {
		return false, err
	}
	layout, ok, err := s.deps.Local.Load(s.Key(name))
	if err != nil || !ok {
		return false, err
	}
	if sameLayout(layout, en.eng.Serialize()) {
		return false, nil
	}
	en.src = fromDisk
	en.eng.Load(layout)
	en.src = fromUser
	return true, nil
}

// BoardForKey maps a local store key back to a board name.
func (s *Service) BoardForKey(key string) (string, bool) {
	prefix := s.Key("")
	if !strings.HasPrefix(key, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(key, prefix)
	if ValidName(name) != nil {
		return "", false
	}
	return name, true
}

// Push sends the current layout of board name to the remote target and
// waits for the answer.
func (s *Service) Push(ctx context.Context, name string) error {
	s.mu.Lock()
	en, err := s.openLocked(name)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	layout := en.eng.Serialize()
	pub := en.pub
	s.mu.Unlock()
	if pub == nil {
		return persist.ErrNoTarget
	}
	ctx = applog.WithBoard(ctx, name)
	if _, err = pub.Save(ctx, layout); err != nil {
		s.log.WarnContext(ctx, "remote push failed", slog.Any("err", err))
		return err
	}
	s.log.InfoContext(ctx, "layout pushed", slog.Int("widgets", len(layout)))
	return nil
}

// Close saves history, flushes pending remote pushes and stops their workers.
func (s *Service) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, en := range s.boards {
		s.saveHistory(en.name)
		if en.pub != nil {
			en.pub.Flush(ctx)
			en.pub.Close()
		}
	}
	s.boards = map[string]*entry{}
}

// Autosave writes every open board to <dir>/<name>.json as a layout file
// with backups. It gives up instead of blocking when the service is busy.
func (s *Service) Autosave(dir string) ([]string, error) {
	if !s.mu.TryLock() {
		return nil, errors.New("board: service busy, autosave skipped")
	}
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.boards))
	for name := range s.boards {
		names = append(names, name)
	}
	sort.Strings(names)
	var (
		written []string
		errs    []error
	)
	for _, name := range names {
		path := filepath.Join(dir, name+".json")
		if err := storage.WriteLayoutFile(path, s.boards[name].eng.Serialize()); err != nil {
			errs = append(errs, fmt.Errorf("autosave %s: %w", name, err))
			continue
		}
		written = append(written, path)
	}
	return written, errors.Join(errs...)
}

func (s *Service) openLocked(name string) (*entry, error) {
	if en, ok := s.boards[name]; ok {
		return en, nil
	}
	if err := ValidName(name); err != nil {
		return nil, err
	}
	cfg := s.opts.Grid
	cfg.SaveURL = strings.ReplaceAll(cfg.SaveURL, BoardPlaceholder, url.PathEscape(name))
	en := &entry{name: name, mirror: render.NewMirror(cfg), src: fromRestore}
	engOpts := []grid.Option{
		grid.WithRenderer(en.mirror),
		grid.WithLogger(applog.WithComponent("grid").With(slog.String("board", name))),
	}
	if cfg.SaveURL != "" {
		en.pub = persist.New(persist.Config{
			URL:       cfg.SaveURL,
			Method:    cfg.SaveMethod,
			Token:     s.opts.Token,
			Timeout:   s.opts.Timeout,
			QueueSize: s.opts.QueueSize,
		})
	}
	en.eng = grid.New(cfg, engOpts...)
	if s.opts.SurfaceWidth > 0 {
		en.eng.SetContainerWidth(s.opts.SurfaceWidth)
	}
	en.eng.OnChange(func(l domain.Layout) { s.persist(en, l) })
	s.boards[name] = en

	s.loadHistory(name)
	layout, ok := s.restore(name)
	if ok {
		en.eng.Load(layout)
	} else if _, ok := s.deps.History.Current(name); !ok {
		// An empty board still gets a base state to undo back to.
		s.pushHistory(name, en.eng.Serialize())
	}
	// The restored layout is what the target already has.
	if en.pub != nil {
		en.eng.SetPublisher(en.pub)
	}
	en.src = fromUser
	return en, nil
}

// restore reads the last known layout: local store first, snapshot index second.
func (s *Service) restore(name string) (domain.Layout, bool) {
	log := applog.WithOperation(s.log, "restore")
	ctx := applog.WithBoard(context.Background(), name)
	if s.deps.Local != nil {
		layout, ok, err := s.deps.Local.Load(s.Key(name))
		if err != nil {
			log.WarnContext(ctx, "local layout unreadable", slog.Any("err", err))
		} else if ok {
			return layout, true
		}
	}
	if s.deps.Index != nil {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		snap, ok, err := s.deps.Index.LatestSnapshot(ctx, name)
		if err != nil {
			log.WarnContext(ctx, "snapshot lookup failed", slog.Any("err", err))
		} else if ok {
			log.InfoContext(ctx, "restored from snapshot index", slog.Time("ts", snap.TS))
			return snap.Layout, true
		}
	}
	return nil, false
}

// persist is the change hook. Failures are logged; the mutation stands.
func (s *Service) persist(en *entry, layout domain.Layout) {
	ctx := applog.WithBoard(context.Background(), en.name)
	if en.src == fromRestore {
		if cur, ok := s.deps.History.Current(en.name); ok && sameBlob(cur.Blob, layout) {
			return
		}
		s.pushHistory(en.name, layout)
		return
	}
	if en.src != fromHistory {
		s.pushHistory(en.name, layout)
	}
	if s.deps.Local != nil && en.src != fromDisk {
		if err := s.deps.Local.Save(s.Key(en.name), layout); err != nil {
			s.log.WarnContext(ctx, "local save failed", slog.Any("err", err))
		}
	}
	if s.deps.Index != nil {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.deps.Index.SaveSnapshot(ctx, en.name, layout, s.now()); err != nil {
			s.log.WarnContext(ctx, "snapshot save failed", slog.Any("err", err))
		} else if s.opts.SnapshotKeep > 0 {
			if _, err := s.deps.Index.PruneSnapshots(ctx, en.name, s.opts.SnapshotKeep); err != nil {
				s.log.WarnContext(ctx, "snapshot prune failed", slog.Any("err", err))
			}
		}
	}
}

func (s *Service) pushHistory(name string, layout domain.Layout) {
	snap, err := history.NewSnapshot(name, layout, s.now())
	if err != nil {
		s.log.WarnContext(applog.WithBoard(context.Background(), name), "history snapshot failed", slog.Any("err", err))
		return
	}
	s.deps.History.Push(snap)
}

func (s *Service) loadHistory(name string) {
	if !s.opts.PersistHistory || s.deps.Local == nil {
		return
	}
	data, ok, err := s.deps.Local.Get(s.historyKey(name))
	if err != nil || !ok {
		return
	}
	var st history.State
	if err := json.Unmarshal(data, &st); err != nil {
		s.log.WarnContext(applog.WithBoard(context.Background(), name), "history unreadable, starting fresh", slog.Any("err", err))
		return
	}
	s.deps.History.Import(name, st)
}

func (s *Service) saveHistory(name string) {
	if !s.opts.PersistHistory || s.deps.Local == nil {
		return
	}
	data, err := json.Marshal(s.deps.History.Export(name))
	if err == nil {
		err = s.deps.Local.Put(s.historyKey(name), data)
	}
	if err != nil {
		s.log.WarnContext(applog.WithBoard(context.Background(), name), "history save failed", slog.Any("err", err))
	}
}

func sameBlob(blob []byte, layout domain.Layout) bool {
	b, err := layout.Encode()
	return err == nil && bytes.Equal(blob, b)
}

func sameLayout(a, b domain.Layout) bool {
	ab, err1 := a.Encode()
	bb, err2 := b.Encode()
	return err1 == nil && err2 == nil && bytes.Equal(ab, bb)
}
