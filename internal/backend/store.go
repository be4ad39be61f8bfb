/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package backend is the reference persistence sink for pushed layouts: a
// small HTTP API with bearer tokens, schema validation and Postgres storage.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned by a Store when a board has no stored layout.
var ErrNotFound = errors.New("backend: not found")

// Envelope is one stored layout version.
type Envelope struct {
	Board     string          `json:"board"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	Subject   string          `json:"subject,omitempty"`
	Layout    json.RawMessage `json:"layout,omitempty"`
}

// BoardInfo summarizes a board on the server.
type BoardInfo struct {
	Board     string    `json:"board"`
	Version   int64     `json:"version"`
	Widgets   int       `json:"widgets"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists layout versions. Versions start at 1 and increase by one per
// save of the same board.
type Store interface {
	Ping(ctx context.Context) error
	SaveLayout(ctx context.Context, board, subject string, layout json.RawMessage, widgets int) (Envelope, error)
	LatestLayout(ctx context.Context, board string) (Envelope, error)
	Boards(ctx context.Context) ([]BoardInfo, error)
}
