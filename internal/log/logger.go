/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log sets up the process-wide slog logger for draggrid.
//
// Records go to a console handler (one line per record, or JSON) and, when a
// file is configured, to a rotating JSON file as well. Every record carries
// app and ver. A record logged with a context from WithBoard also carries the
// board it concerns, so callers pass the board once instead of adding it to
// every call.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	lj "gopkg.in/natefinch/lumberjack.v2"

	"draggrid/internal/version"
)

// Environment variables read by FromEnv.
const (
	EnvLevel  = "DGR_LOG_LEVEL"
	EnvFormat = "DGR_LOG_FORMAT"
	EnvSource = "DGR_LOG_SOURCE"
	EnvFile   = "DGR_LOG_FILE"
)

// Rotation limits of the log file.
const (
	fileMaxSizeMB  = 10
	fileMaxBackups = 3
	fileMaxAgeDays = 28
)

// Options controls Init. The zero value logs INFO and above to stderr in
// console format.
type Options struct {
	Level     string // debug, info, warn or error
	Format    string // console or json
	AddSource bool
	File      string    // JSON log file, rotated
	Writer    io.Writer // console destination, stderr when nil
}

var (
	mu      sync.RWMutex
	current *slog.Logger
	file    *lj.Logger
)

// L returns the application logger. Before Init it is configured from the
// environment.
func L() *slog.Logger {
	mu.RLock()
	l := current
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(FromEnv())
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Init replaces the application logger and slog.Default. A log file opened by
// an earlier Init is closed.
func Init(opts Options) {
	level := parseLevel(opts.Level)
	out := opts.Writer
	if out == nil {
		out = os.Stderr
	}
	var console slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		console = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level, AddSource: opts.AddSource})
	} else {
		console = newConsoleHandler(out, level, opts.AddSource)
	}
	handlers := []slog.Handler{console}

	var f *lj.Logger
	if path := strings.TrimSpace(opts.File); path != "" {
		f = &lj.Logger{
			Filename:   path,
			MaxSize:    fileMaxSizeMB,
			MaxBackups: fileMaxBackups,
			MaxAge:     fileMaxAgeDays,
			Compress:   true,
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level, AddSource: opts.AddSource}))
	}

	logger := slog.New(boardHandler{next: fanout(handlers)}).With(
		slog.String("app", "draggrid"),
		slog.String("ver", version.String()),
	)

	mu.Lock()
	prev := file
	current, file = logger, f
	mu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}
	slog.SetDefault(logger)
}

// Close releases the log file, if one is open. Logging keeps working; the
// file is reopened on the next write.
func Close() error {
	mu.RLock()
	f := file
	mu.RUnlock()
	if f == nil {
		return nil
	}
	return f.Close()
}

// FromEnv reads Options from the DGR_LOG_* variables.
func FromEnv() Options {
	opts := Options{
		Level:  os.Getenv(EnvLevel),
		Format: os.Getenv(EnvFormat),
		File:   strings.TrimSpace(os.Getenv(EnvFile)),
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvSource))) {
	case "1", "true", "yes", "on":
		opts.AddSource = true
	}
	return opts
}

// WithComponent returns the application logger with component=name.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation annotates l with op.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

type boardKey struct{}

// WithBoard returns a context whose log records carry board=name.
func WithBoard(ctx context.Context, name string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, boardKey{}, name)
}

// BoardFrom reports the board stored by WithBoard.
func BoardFrom(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	name, ok := ctx.Value(boardKey{}).(string)
	return name, ok && name != ""
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
