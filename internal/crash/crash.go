/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic at the CLI entry into a crash report and a
// last-chance autosave of the open boards.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "draggrid/internal/log"
	"draggrid/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// AutosaveFunc writes whatever state can still be saved and returns the files written.
type AutosaveFunc func() ([]string, error)

// Handler reports panics. Fields are read when the panic happens, so they
// may be filled in after the deferred call is registered.
type Handler struct {
	// Dir receives the crash report; the temp dir when empty.
	Dir      string
	Autosave AutosaveFunc
}

// Recover captures a panic, logs it with stacktrace, writes an error report
// and runs Autosave if set. It must be deferred directly:
//
//	h := &crash.Handler{}
//	defer h.Recover()
func (h *Handler) Recover() {
	if r := recover(); r != nil {
		h.handle(r)
	}
}

// Recover is Handler.Recover for a fixed dir and autosave.
//
// Usage: defer crash.Recover(dir, autosave)
func Recover(dir string, autosave AutosaveFunc) {
	if r := recover(); r != nil {
		(&Handler{Dir: dir, Autosave: autosave}).handle(r)
	}
}

func (h *Handler) handle(r any) {
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(h.Dir, r, stack)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}
	if h.Autosave != nil {
		runAutosave(l, h.Autosave)
	}

	if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
		l.Error("failed to write version info to stderr", slog.Any("err", err))
	}
	// Exit with a non-zero code to indicate failure in CLI context.
	exitFn(2)
}

// runAutosave must not let a second panic escape.
func runAutosave(l *slog.Logger, autosave AutosaveFunc) {
	defer func() {
		if r := recover(); r != nil {
			l.Error("autosave panicked", slog.Any("panic", r))
		}
	}()
	paths, err := autosave()
	if err != nil {
		l.Error("autosave failed", slog.Any("err", err))
	}
	for _, p := range paths {
		l.Info("autosave written", slog.String("path", p))
	}
}

func writeReport(dir string, panicVal any, stack []byte) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure crash dir: %w", err)
	}
	stamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", stamp))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "DragGrid Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(&buf, "Go: %s\n", runtime.Version())
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()
	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	return path, f.Sync()
}
