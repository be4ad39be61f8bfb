/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"draggrid/internal/domain"
)

// language=SQL
// dialect=SQLite
const insertSnapshotSQL = `INSERT INTO snapshots(board, ts, layout, widgets) VALUES (?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestSnapshotSQL = `SELECT id, ts, layout FROM snapshots WHERE board = ? ORDER BY ts DESC, id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listSnapshotsSQL = `SELECT id, ts, layout FROM snapshots WHERE board = ? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldSnapshotsSQL = `DELETE FROM snapshots WHERE board = ? AND id NOT IN (
	SELECT id FROM snapshots WHERE board = ? ORDER BY ts DESC, id DESC LIMIT ?
)`

// language=SQL
// dialect=SQLite
const listBoardsSQL = `SELECT board, COUNT(*), MAX(ts) FROM snapshots GROUP BY board ORDER BY board`

// tsFormat is fixed width so text ordering matches time ordering.
const tsFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Snapshot is one stored layout state.
type Snapshot struct {
	ID     int64
	Board  string
	TS     time.Time
	Layout domain.Layout
}

// BoardSummary describes the snapshot history of one board.
type BoardSummary struct {
	Board     string
	Snapshots int
	Latest    time.Time
}

// SaveSnapshot persists a layout for board with a timestamp.
func (ix *Index) SaveSnapshot(ctx context.Context, board string, layout domain.Layout, ts time.Time) error {
	if board == "" {
		return errors.New("board is required")
	}
	blob, err := layout.Encode()
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = ix.db.ExecContext(ctx, insertSnapshotSQL, board, ts.UTC().Format(tsFormat), blob, len(layout))
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the newest snapshot for board; ok is false when none exists.
func (ix *Index) LatestSnapshot(ctx context.Context, board string) (Snapshot, bool, error) {
	var (
		s     Snapshot
		tsStr string
		blob  []byte
	)
	err := ix.db.QueryRowContext(ctx, selectLatestSnapshotSQL, board).Scan(&s.ID, &tsStr, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	s.Board = board
	s.TS, _ = time.Parse(tsFormat, tsStr)
	if s.Layout, err = domain.DecodeLayout(blob); err != nil {
		return Snapshot{}, false, err
	}
	return s, true, nil
}

// ListSnapshots returns up to limit most recent snapshots for board, newest first.
func (ix *Index) ListSnapshots(ctx context.Context, board string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := ix.db.QueryContext(ctx, listSnapshotsSQL, board, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Snapshot
	for rows.Next() {
		var (
			s     Snapshot
			tsStr string
			blob  []byte
		)
		if err := rows.Scan(&s.ID, &tsStr, &blob); err != nil {
			return nil, err
		}
		s.Board = board
		s.TS, _ = time.Parse(tsFormat, tsStr)
		// a corrupt row still lists, with an empty layout
		s.Layout, _ = domain.DecodeLayout(blob)
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneSnapshots keeps at most keepLast snapshots for board and deletes older ones.
func (ix *Index) PruneSnapshots(ctx context.Context, board string, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := ix.db.ExecContext(ctx, pruneOldSnapshotsSQL, board, board, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Boards summarizes every board with stored snapshots.
func (ix *Index) Boards(ctx context.Context) ([]BoardSummary, error) {
	rows, err := ix.db.QueryContext(ctx, listBoardsSQL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []BoardSummary
	for rows.Next() {
		var (
			b     BoardSummary
			tsStr string
		)
		if err := rows.Scan(&b.Board, &b.Snapshots, &tsStr); err != nil {
			return nil, err
		}
		b.Latest, _ = time.Parse(tsFormat, tsStr)
		out = append(out, b)
	}
	return out, rows.Err()
}
