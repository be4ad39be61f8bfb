/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type memTokens map[string]string

func (m memTokens) Get(service, key string) (string, error) { return m[service+"/"+key], nil }
func (m memTokens) Set(service, key, value string) error {
	m[service+"/"+key] = value
	return nil
}
func (m memTokens) Delete(service, key string) error {
	delete(m, service+"/"+key)
	return nil
}

// isolate points the config at a temp file and stubs the keyring.
func isolate(t *testing.T) (string, memTokens) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfig, path)
	for _, name := range envKeys {
		t.Setenv(name, "")
	}
	t.Setenv(EnvRemoteToken, "")
	tokens := memTokens{}
	t.Cleanup(SetTokenStore(tokens))
	return path, tokens
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)
	cfg, tok, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tok != "" {
		t.Fatalf("unexpected token %q", tok)
	}
	g := cfg.Grid.Engine()
	if g.Columns != 12 || g.RowHeight != 50 || g.Margin != 10 || g.MinWidth != 100 {
		t.Fatalf("unexpected grid defaults: %+v", g)
	}
	if !g.Draggable || !g.Resizable || g.Removable || g.Swappable || !g.Compact || !g.Animate {
		t.Fatalf("unexpected flag defaults: %+v", g)
	}
	if g.SaveMethod != "POST" || g.LocalStorageKey != "gridConfig" {
		t.Fatalf("unexpected persistence defaults: %+v", g)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestFileKeepsUnsetDefaults(t *testing.T) {
	path, _ := isolate(t)
	data := "grid:\n  columns: 6\n  swappable: true\n  save_method: put\n  colors:\n    border: \"#ff0000\"\nlogging:\n  level: DEBUG\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write error: %v", err)
	}
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Grid.Columns != 6 || !cfg.Grid.Swappable || cfg.Grid.SaveMethod != "PUT" {
		t.Fatalf("file values not applied: %+v", cfg.Grid)
	}
	// untouched keys keep the defaults, true booleans included
	if cfg.Grid.RowHeight != 50 || !cfg.Grid.Draggable || !cfg.Grid.Compact {
		t.Fatalf("defaults lost: %+v", cfg.Grid)
	}
	if cfg.Grid.Colors["border"] != "#ff0000" || cfg.Logging.Level != "debug" {
		t.Fatalf("colors or logging not loaded: %+v %+v", cfg.Grid.Colors, cfg.Logging)
	}
}

func TestInvalidYAMLIsAnError(t *testing.T) {
	path, _ := isolate(t)
	if err := os.WriteFile(path, []byte("grid: [oops"), 0o600); err != nil {
		t.Fatalf("write error: %v", err)
	}
	if _, _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvSaveURL, "https://example.test/api/layouts/{board}")
	t.Setenv(EnvSaveMethod, "put")
	t.Setenv(EnvColumns, "24")
	t.Setenv(EnvRemoteTimeout, "250")
	t.Setenv(EnvLogLevel, "ERROR")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "X:/dgr.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Grid.SaveURL != "https://example.test/api/layouts/{board}" || cfg.Grid.SaveMethod != "PUT" || cfg.Grid.Columns != 24 {
		t.Fatalf("grid overrides not applied: %+v", cfg.Grid)
	}
	if cfg.Remote.Timeout().Milliseconds() != 250 {
		t.Fatalf("timeout override not applied: %v", cfg.Remote.Timeout())
	}
	if cfg.Logging.Level != "error" || !cfg.Logging.Source || cfg.Logging.File != "X:/dgr.log" {
		t.Fatalf("logging overrides not applied: %+v", cfg.Logging)
	}
	if name, ok := EnvOverrideFor("grid.save_url"); !ok || name != EnvSaveURL {
		t.Fatalf("EnvOverrideFor = %q %v", name, ok)
	}
	if _, ok := EnvOverrideFor("grid.row_height"); ok {
		t.Fatalf("row_height has no override")
	}
}

func TestSaveRoundTripAndToken(t *testing.T) {
	path, tokens := isolate(t)
	cfg := Defaults()
	cfg.Grid.Removable = true
	cfg.Storage.Dir = "/data/boards"
	if err := Save(cfg, "s3cret"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if strings.Contains(string(data), "s3cret") {
		t.Fatalf("token must not be written to disk")
	}
	if tokens[keyringService+"/"+keyringToken] != "s3cret" {
		t.Fatalf("token not stored in keyring: %v", tokens)
	}
	got, tok, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !got.Grid.Removable || got.Storage.Dir != "/data/boards" || tok != "s3cret" {
		t.Fatalf("round trip mismatch: %+v token=%q", got, tok)
	}
	t.Setenv(EnvRemoteToken, "from-env")
	if _, tok, _ := Load(); tok != "from-env" {
		t.Fatalf("env token should win, got %q", tok)
	}
	if err := SaveToken(""); err == nil {
		t.Fatalf("expected error for empty token")
	}
	if err := DeleteToken(); err != nil {
		t.Fatalf("DeleteToken error: %v", err)
	}
	if len(tokens) != 0 {
		t.Fatalf("token not deleted")
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Grid.Columns = 0
	cfg.Grid.SaveMethod = "GET"
	cfg.Grid.LocalStorageKey = " "
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	for _, want := range []string{"grid.columns", "grid.save_method", "grid.local_storage_key"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("missing %q in %v", want, err)
		}
	}
}
