/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package bundle archives the boards of a local store into a zip file and
// installs such archives into another store.
package bundle

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"draggrid/internal/domain"
	applog "draggrid/internal/log"
	"draggrid/internal/storage"
)

// ManifestName is the human readable entry at the root of every bundle.
const ManifestName = "bundle.manifest.txt"

const entryExt = ".json"

// Export writes every layout stored under prefix into a zip at destZipPath.
// Hidden keys (history stacks) are left out. It returns the number of
// layouts archived.
func Export(ctx context.Context, local *storage.Local, prefix, destZipPath string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("bundle"), "export").With(slog.String("zip", destZipPath))
	if local == nil {
		return 0, errors.New("local store is required")
	}
	if strings.TrimSpace(destZipPath) == "" {
		return 0, errors.New("destZipPath is required")
	}
	if err := os.MkdirAll(filepath.Dir(destZipPath), 0o755); err != nil {
		return 0, fmt.Errorf("ensure zip dir: %w", err)
	}
	// On Windows, remove destination if present before create
	_ = os.Remove(destZipPath)

	zf, err := os.Create(destZipPath)
	if err != nil {
		return 0, fmt.Errorf("create zip: %w", err)
	}
	added, err := write(ctx, zip.NewWriter(zf), local, prefix)
	if cerr := zf.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close zip: %w", cerr)
	}
	if err != nil {
		l.Error("zip build failed", slog.Any("err", err))
		return added, err
	}
	l.Info("bundle exported", slog.Int("layouts", added))
	return added, nil
}

func write(ctx context.Context, zw *zip.Writer, local *storage.Local, prefix string) (int, error) {
	manifest := fmt.Sprintf("DragGrid Board Bundle\nCreated: %s\nPrefix: %s\n\nOne JSON layout per stored key.\n",
		time.Now().Format(time.RFC3339), prefix)
	w, err := zw.Create(ManifestName)
	if err != nil {
		return 0, fmt.Errorf("add manifest: %w", err)
	}
	if _, err := io.WriteString(w, manifest); err != nil {
		return 0, fmt.Errorf("write manifest: %w", err)
	}
	added := 0
	for _, key := range local.Keys(ctx, prefix) {
		if hidden(key) {
			continue
		}
		data, ok, err := local.Get(key)
		if err != nil {
			return added, err
		}
		if !ok {
			continue
		}
		fw, err := zw.Create(key + entryExt)
		if err != nil {
			return added, fmt.Errorf("add %s: %w", key, err)
		}
		if _, err := fw.Write(data); err != nil {
			return added, fmt.Errorf("write %s: %w", key, err)
		}
		added++
	}
	if err := zw.Close(); err != nil {
		return added, fmt.Errorf("finish zip: %w", err)
	}
	return added, nil
}

// Install copies the layouts of the bundle at packZipPath into local.
// Existing keys are skipped unless overwrite is set. Entries that are not
// valid layouts or not valid keys are skipped with a warning. It returns the
// number of layouts installed.
func Install(local *storage.Local, packZipPath string, overwrite bool) (int, error) {
	l := applog.WithOperation(applog.WithComponent("bundle"), "install").With(slog.String("zip", packZipPath))
	if local == nil {
		return 0, errors.New("local store is required")
	}
	r, err := zip.OpenReader(packZipPath)
	if err != nil {
		return 0, fmt.Errorf("open bundle: %w", err)
	}
	defer func() { _ = r.Close() }()

	installed := 0
	for _, f := range r.File {
		if f.Name == ManifestName || f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, entryExt) {
			continue
		}
		key := strings.TrimSuffix(f.Name, entryExt)
		if hidden(key) {
			continue
		}
		if !overwrite {
			if _, ok, _ := local.Get(key); ok {
				l.Warn("skip existing board", slog.String("key", key))
				continue
			}
		}
		data, err := readEntry(f)
		if err != nil {
			return installed, err
		}
		if _, err := domain.DecodeLayout(data); err != nil {
			l.Warn("skip invalid layout", slog.String("key", key), slog.Any("err", err))
			continue
		}
		if err := local.Put(key, data); err != nil {
			if errors.Is(err, storage.ErrInvalidKey) {
				l.Warn("skip invalid key", slog.String("entry", f.Name))
				continue
			}
			return installed, err
		}
		installed++
	}
	l.Info("bundle installed", slog.Int("layouts", installed))
	return installed, nil
}

// maxEntryBytes bounds a single layout read from an archive.
const maxEntryBytes = 16 << 20

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(io.LimitReader(rc, maxEntryBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	if len(data) > maxEntryBytes {
		return nil, fmt.Errorf("%s: entry too large", f.Name)
	}
	return data, nil
}

func hidden(key string) bool {
	for _, seg := range strings.Split(key, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
