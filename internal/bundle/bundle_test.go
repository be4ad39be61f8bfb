/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package bundle

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"draggrid/internal/domain"
	"draggrid/internal/storage"
)

func openLocal(t *testing.T) *storage.Local {
	t.Helper()
	l, err := storage.OpenLocal(t.TempDir())
	if err != nil {
		t.Fatalf("OpenLocal error: %v", err)
	}
	return l
}

func TestExportInstallRoundTrip(t *testing.T) {
	src := openLocal(t)
	if err := src.Save("gridConfig/main", domain.Layout{{ID: "a", X: 1, Width: 2, Height: 2}}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := src.Save("gridConfig/ops", domain.Layout{{ID: "b", Width: 3, Height: 1}}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := src.Put("gridConfig/.history/main", []byte(`{"undo":[]}`)); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if err := src.Save("other/x", domain.Layout{}); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	zipPath := filepath.Join(t.TempDir(), "out", "boards.zip")
	n, err := Export(context.Background(), src, "gridConfig/", zipPath)
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 layouts, got %d", n)
	}
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	names := map[string]bool{}
	for _, f := range r.File {
		names[f.Name] = true
	}
	_ = r.Close()
	if !names[ManifestName] || !names["gridConfig/main.json"] || names["gridConfig/.history/main.json"] || names["other/x.json"] {
		t.Fatalf("unexpected entries %v", names)
	}

	dst := openLocal(t)
	installed, err := Install(dst, zipPath, false)
	if err != nil || installed != 2 {
		t.Fatalf("Install = %d, %v", installed, err)
	}
	got, ok, err := dst.Load("gridConfig/main")
	if err != nil || !ok || len(got) != 1 || got[0].X != 1 {
		t.Fatalf("installed layout mismatch: %+v ok=%v err=%v", got, ok, err)
	}
}

func TestInstallSkipsExistingUnlessOverwrite(t *testing.T) {
	src := openLocal(t)
	_ = src.Save("gridConfig/main", domain.Layout{{ID: "new", Width: 1, Height: 1}})
	zipPath := filepath.Join(t.TempDir(), "b.zip")
	if _, err := Export(context.Background(), src, "", zipPath); err != nil {
		t.Fatalf("Export error: %v", err)
	}

	dst := openLocal(t)
	_ = dst.Save("gridConfig/main", domain.Layout{{ID: "old", Width: 1, Height: 1}})
	if n, err := Install(dst, zipPath, false); err != nil || n != 0 {
		t.Fatalf("expected skip, got %d %v", n, err)
	}
	if got, _, _ := dst.Load("gridConfig/main"); got[0].ID != "old" {
		t.Fatalf("existing board was overwritten")
	}
	if n, err := Install(dst, zipPath, true); err != nil || n != 1 {
		t.Fatalf("expected overwrite, got %d %v", n, err)
	}
	if got, _, _ := dst.Load("gridConfig/main"); got[0].ID != "new" {
		t.Fatalf("overwrite did not replace the board")
	}
}

func TestInstallRejectsUnsafeEntries(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "evil.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, body := range map[string]string{
		"../escape.json":      `[]`,
		"gridConfig/ok.json":  `[{"id":"a"}]`,
		"gridConfig/bad.json": `{not json`,
	} {
		w, _ := zw.Create(name)
		_, _ = w.Write([]byte(body))
	}
	_ = zw.Close()
	_ = f.Close()

	dst := openLocal(t)
	n, err := Install(dst, zipPath, false)
	if err != nil || n != 1 {
		t.Fatalf("Install = %d, %v", n, err)
	}
	if _, ok, _ := dst.Load("gridConfig/ok"); !ok {
		t.Fatalf("valid entry not installed")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dst.Base()), "escape.json")); err == nil {
		t.Fatalf("entry escaped the store")
	}
}
