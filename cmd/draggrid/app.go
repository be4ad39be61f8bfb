/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"draggrid/internal/board"
	"draggrid/internal/config"
	"draggrid/internal/crash"
	"draggrid/internal/history"
	applog "draggrid/internal/log"
	"draggrid/internal/storage"
)

// app carries the state shared by every command of one invocation.
type app struct {
	configPath string
	dir        string
	noIndex    bool

	cfg   config.AppConfig
	token string
	out   io.Writer

	local *storage.Local
	index *storage.Index
	svc   *board.Service
	crash *crash.Handler
}

// run executes the CLI with args and returns the process exit code.
func run(args []string) int { return runWith(args, os.Stdout, os.Stderr) }

func runWith(args []string, stdout, stderr io.Writer) int {
	a := &app{out: stdout}
	a.crash = &crash.Handler{Dir: filepath.Join(os.TempDir(), "draggrid"), Autosave: a.autosave}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := 0
	func() {
		defer a.crash.Recover()
		cmd := newRootCmd(a)
		cmd.SetArgs(args)
		err := cmd.ExecuteContext(ctx)
		a.close()
		if err != nil {
			applog.WithComponent("cli").Debug("command failed", slog.Any("err", err))
			fmt.Fprintln(stderr, "Error:", err)
			code = 1
		}
	}()
	return code
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "draggrid",
		Short:         "Drag-and-resize grid layouts on the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.SetOut(a.out)
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: per-user config.yaml).")
	cmd.PersistentFlags().StringVar(&a.dir, "dir", "", "Storage directory, overrides storage.dir.")
	cmd.PersistentFlags().BoolVar(&a.noIndex, "no-index", false, "Do not record snapshots in the SQLite index.")

	addVersion(cmd)
	addConfig(cmd, a)
	addBoardCommands(cmd, a)
	addHistoryCommands(cmd, a)
	addExport(cmd, a)
	addImport(cmd, a)
	addRemote(cmd, a)
	addBundle(cmd, a)
	addWatch(cmd, a)
	addServe(cmd, a)
	return cmd
}

// load reads the configuration and initializes logging.
func (a *app) load() error {
	var err error
	if a.configPath != "" {
		a.cfg, a.token, err = config.LoadFrom(a.configPath)
	} else {
		a.cfg, a.token, err = config.Load()
	}
	if err != nil {
		return err
	}
	if a.dir != "" {
		a.cfg.Storage.Dir = a.dir
	}
	if a.cfg.Storage.Dir != "" {
		a.crash.Dir = filepath.Join(a.cfg.Storage.Dir, "crash")
	}
	applog.Init(applog.Options{
		Level:     a.cfg.Logging.Level,
		Format:    a.cfg.Logging.Format,
		AddSource: a.cfg.Logging.Source,
		File:      a.cfg.Logging.File,
	})
	return a.cfg.Validate()
}

// service opens the stores and the board service on first use.
func (a *app) service(ctx context.Context) (*board.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	dir := a.cfg.Storage.Dir
	local, err := storage.OpenLocal(filepath.Join(dir, "local"))
	if err != nil {
		return nil, err
	}
	a.local = local
	if !a.noIndex {
		if rebuilt, err := storage.DetectAndRebuildIndex(ctx, dir); err != nil {
			return nil, fmt.Errorf("check snapshot index: %w", err)
		} else if rebuilt {
			applog.WithComponent("cli").Warn("snapshot index was corrupt and has been rebuilt", slog.String("dir", dir))
		}
		if a.index, err = storage.OpenIndex(dir); err != nil {
			return nil, err
		}
	}
	a.svc = board.NewService(board.Options{
		Grid:           a.cfg.Grid.Engine(),
		SurfaceWidth:   a.cfg.Grid.SurfaceWidth,
		SnapshotKeep:   a.cfg.Storage.SnapshotKeep,
		PersistHistory: a.cfg.Storage.PersistHistory,
		Token:          a.token,
		Timeout:        a.cfg.Remote.Timeout(),
		QueueSize:      a.cfg.Remote.QueueSize,
	}, board.Deps{
		Local:   a.local,
		Index:   a.index,
		// every invocation is one deliberate edit, nothing to coalesce
		History: history.NewManager(history.Config{MinInterval: time.Nanosecond}),
	})
	return a.svc, nil
}

func (a *app) close() {
	if a.svc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Remote.Timeout())
		a.svc.Close(ctx)
		cancel()
		a.svc = nil
	}
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			applog.WithComponent("cli").Warn("close index", slog.Any("err", err))
		}
		a.index = nil
	}
}

func (a *app) autosave() ([]string, error) {
	if a.svc == nil {
		return nil, nil
	}
	if a.cfg.Storage.Dir == "" {
		return nil, errors.New("no storage directory")
	}
	return a.svc.Autosave(filepath.Join(a.cfg.Storage.Dir, "autosave"))
}
