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
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	applog "draggrid/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// language=SQL
// dialect=PostgreSQL
const insertLayoutSQL = `INSERT INTO layouts(board, version, layout, widgets, subject)
SELECT $1::text, COALESCE(MAX(version), 0) + 1, $2::jsonb, $3::int, $4::text FROM layouts WHERE board = $1::text
RETURNING version, created_at`

// language=SQL
// dialect=PostgreSQL
const latestLayoutSQL = `SELECT version, layout, subject, created_at FROM layouts WHERE board = $1 ORDER BY version DESC LIMIT 1`

// language=SQL
// dialect=PostgreSQL
const listBoardsSQL = `SELECT DISTINCT ON (board) board, version, widgets, created_at FROM layouts ORDER BY board, version DESC`

// PGStore is the Postgres Store, opened through the pgx database/sql driver.
type PGStore struct {
	db *sql.DB
}

// OpenPG connects to dsn, pings and applies the embedded migrations.
func OpenPG(ctx context.Context, dsn string) (*PGStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &PGStore{db: db}, nil
}

func (s *PGStore) Close() error { return s.db.Close() }

func (s *PGStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// SaveLayout stores the next version of board. Saves of the same board are
// serialized with a transaction-scoped advisory lock.
func (s *PGStore) SaveLayout(ctx context.Context, board, subject string, layout json.RawMessage, widgets int) (Envelope, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Envelope{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, board); err != nil {
		return Envelope{}, fmt.Errorf("lock board: %w", err)
	}
	env := Envelope{Board: board, Subject: subject, Layout: layout}
	if err := tx.QueryRowContext(ctx, insertLayoutSQL, board, string(layout), widgets, subject).Scan(&env.Version, &env.CreatedAt); err != nil {
		return Envelope{}, fmt.Errorf("insert layout: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Envelope{}, fmt.Errorf("commit: %w", err)
	}
	return env, nil
}

func (s *PGStore) LatestLayout(ctx context.Context, board string) (Envelope, error) {
	env := Envelope{Board: board}
	var raw []byte
	err := s.db.QueryRowContext(ctx, latestLayoutSQL, board).Scan(&env.Version, &raw, &env.Subject, &env.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Envelope{}, ErrNotFound
	}
	if err != nil {
		return Envelope{}, err
	}
	env.Layout = json.RawMessage(raw)
	return env, nil
}

func (s *PGStore) Boards(ctx context.Context) ([]BoardInfo, error) {
	rows, err := s.db.QueryContext(ctx, listBoardsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BoardInfo
	for rows.Next() {
		var b BoardInfo
		if err := rows.Scan(&b.Board, &b.Version, &b.Widgets, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// applyMigrations applies embedded SQL migrations in filename order and
// records each applied version.
func applyMigrations(ctx context.Context, db *sql.DB) error {
	log := applog.WithOperation(applog.WithComponent("backend"), "migrate")
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(strings.ToLower(name), ".sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)

	// dialect=PostgreSQL
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied := map[int64]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, fname := range files {
		version, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[version] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		sqlText := string(b)
		if strings.TrimSpace(sqlText) == "" {
			continue
		}
		log.Info("applying migration", slog.String("file", fname))
		if _, err := db.ExecContext(ctx, sqlText); err != nil {
			return fmt.Errorf("apply %s: %w", fname, err)
		}
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES($1, $2) ON CONFLICT DO NOTHING`, version, fname); err != nil {
			return fmt.Errorf("record %s: %w", fname, err)
		}
	}
	return nil
}

func parseVersion(name string) (int64, error) {
	base := path.Base(name)
	parts := strings.SplitN(base, "_", 2)
	if len(parts) < 2 {
		return 0, errors.New("invalid migration filename: " + name)
	}
	v, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}
