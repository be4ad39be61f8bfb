/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemStore keeps every version in memory. It backs tests and `serve --memory`.
type MemStore struct {
	mu     sync.RWMutex
	boards map[string][]memEntry
	now    func() time.Time
}

type memEntry struct {
	env     Envelope
	widgets int
}

func NewMemStore() *MemStore {
	return &MemStore{boards: map[string][]memEntry{}, now: time.Now}
}

func (m *MemStore) Ping(context.Context) error { return nil }

func (m *MemStore) SaveLayout(_ context.Context, board, subject string, layout json.RawMessage, widgets int) (Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	versions := m.boards[board]
	env := Envelope{
		Board:     board,
		Version:   int64(len(versions)) + 1,
		CreatedAt: m.now().UTC(),
		Subject:   subject,
		Layout:    append(json.RawMessage(nil), layout...),
	}
	m.boards[board] = append(versions, memEntry{env: env, widgets: widgets})
	return env, nil
}

func (m *MemStore) LatestLayout(_ context.Context, board string) (Envelope, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	versions := m.boards[board]
	if len(versions) == 0 {
		return Envelope{}, ErrNotFound
	}
	return versions[len(versions)-1].env, nil
}

func (m *MemStore) Boards(context.Context) ([]BoardInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]BoardInfo, 0, len(m.boards))
	for name, versions := range m.boards {
		last := versions[len(versions)-1]
		out = append(out, BoardInfo{Board: name, Version: last.env.Version, Widgets: last.widgets, UpdatedAt: last.env.CreatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Board < out[j].Board })
	return out, nil
}
