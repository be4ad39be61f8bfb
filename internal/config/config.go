/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package config loads the user configuration from a YAML file in the user
// scope. Environment variables are read-only overrides applied at runtime and
// the remote bearer token lives in the OS keyring, never on disk.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"draggrid/internal/domain"
	"draggrid/internal/grid"
)

// CurrentVersion is bumped when the file structure changes incompatibly.
const CurrentVersion = 1

// GridConfig mirrors the engine construction options.
type GridConfig struct {
	Columns         int           `yaml:"columns"`
	RowHeight       int           `yaml:"row_height"`
	Margin          int           `yaml:"margin"`
	MinWidth        int           `yaml:"min_width"`
	MaxRows         int           `yaml:"max_rows"`
	Draggable       bool          `yaml:"draggable"`
	Resizable       bool          `yaml:"resizable"`
	Removable       bool          `yaml:"removable"`
	Swappable       bool          `yaml:"swappable"`
	Compact         bool          `yaml:"compact"`
	Animate         bool          `yaml:"animate"`
	SaveURL         string        `yaml:"save_url"`
	SaveMethod      string        `yaml:"save_method"`
	LocalStorageKey string        `yaml:"local_storage_key"`
	Colors          domain.Colors `yaml:"colors,omitempty"`
	// SurfaceWidth is the container width in px used to turn gesture deltas into cells.
	SurfaceWidth float64 `yaml:"surface_width"`
}

type StorageConfig struct {
	Dir            string `yaml:"dir"`
	SnapshotKeep   int    `yaml:"snapshot_keep"`
	PersistHistory bool   `yaml:"persist_history"`
}

type RemoteConfig struct {
	TimeoutMs int `yaml:"timeout_ms"`
	QueueSize int `yaml:"queue_size"`
	// Token is not stored on disk; it lives in the OS keyring.
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	DatabaseURL string `yaml:"database_url"`
	Memory      bool   `yaml:"memory"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// AppConfig is the whole configuration file.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Grid          GridConfig    `yaml:"grid"`
	Storage       StorageConfig `yaml:"storage"`
	Remote        RemoteConfig  `yaml:"remote"`
	Server        ServerConfig  `yaml:"server"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults. Grid values match the stock
// engine options.
func Defaults() AppConfig {
	g := grid.DefaultConfig()
	return AppConfig{
		ConfigVersion: CurrentVersion,
		Grid: GridConfig{
			Columns:         g.Columns,
			RowHeight:       g.RowHeight,
			Margin:          g.Margin,
			MinWidth:        g.MinWidth,
			MaxRows:         g.MaxRows,
			Draggable:       g.Draggable,
			Resizable:       g.Resizable,
			Removable:       g.Removable,
			Swappable:       g.Swappable,
			Compact:         g.Compact,
			Animate:         g.Animate,
			SaveMethod:      g.SaveMethod,
			LocalStorageKey: g.LocalStorageKey,
			SurfaceWidth:    grid.DefaultSurfaceWidth,
		},
		Storage: StorageConfig{Dir: defaultDataDir(), SnapshotKeep: 50, PersistHistory: true},
		Remote:  RemoteConfig{TimeoutMs: 5000, QueueSize: 16},
		Server:  ServerConfig{Addr: ":8080"},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Engine converts the grid section to engine options.
func (g GridConfig) Engine() grid.Config {
	return grid.Config{
		Columns:         g.Columns,
		RowHeight:       g.RowHeight,
		Margin:          g.Margin,
		MinWidth:        g.MinWidth,
		MaxRows:         g.MaxRows,
		Draggable:       g.Draggable,
		Resizable:       g.Resizable,
		Removable:       g.Removable,
		Swappable:       g.Swappable,
		Compact:         g.Compact,
		Animate:         g.Animate,
		SaveURL:         g.SaveURL,
		SaveMethod:      g.SaveMethod,
		LocalStorageKey: g.LocalStorageKey,
		Colors:          g.Colors,
	}
}

// Timeout returns the remote timeout, falling back to the default.
func (r RemoteConfig) Timeout() time.Duration {
	if r.TimeoutMs <= 0 {
		return time.Duration(Defaults().Remote.TimeoutMs) * time.Millisecond
	}
	return time.Duration(r.TimeoutMs) * time.Millisecond
}

// Validate rejects values the engine cannot work with.
func (c AppConfig) Validate() error {
	var errs []error
	if c.Grid.Columns < 1 {
		errs = append(errs, fmt.Errorf("grid.columns must be at least 1, got %d", c.Grid.Columns))
	}
	if c.Grid.RowHeight < 1 {
		errs = append(errs, fmt.Errorf("grid.row_height must be at least 1, got %d", c.Grid.RowHeight))
	}
	if c.Grid.MaxRows < 0 {
		errs = append(errs, fmt.Errorf("grid.max_rows must not be negative, got %d", c.Grid.MaxRows))
	}
	switch strings.ToUpper(c.Grid.SaveMethod) {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		errs = append(errs, fmt.Errorf("grid.save_method %q is not POST, PUT or PATCH", c.Grid.SaveMethod))
	}
	if strings.TrimSpace(c.Grid.LocalStorageKey) == "" {
		errs = append(errs, errors.New("grid.local_storage_key is required"))
	}
	if c.ConfigVersion > CurrentVersion {
		errs = append(errs, fmt.Errorf("config_version %d is newer than supported %d", c.ConfigVersion, CurrentVersion))
	}
	return errors.Join(errs...)
}

// Env var names used as overrides.
const (
	EnvConfig        = "DGR_CONFIG"
	EnvColumns       = "DGR_COLUMNS"
	EnvSaveURL       = "DGR_SAVE_URL"
	EnvSaveMethod    = "DGR_SAVE_METHOD"
	EnvStorageKey    = "DGR_STORAGE_KEY"
	EnvStorageDir    = "DGR_STORAGE_DIR"
	EnvRemoteTimeout = "DGR_REMOTE_TIMEOUT_MS"
	EnvRemoteToken   = "DGR_REMOTE_TOKEN"
	EnvServerAddr    = "DGR_SERVER_ADDR"
	EnvDatabaseURL   = "DGR_DATABASE_URL"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "DGR_LOG_LEVEL"
	EnvLogFormat = "DGR_LOG_FORMAT"
	EnvLogSource = "DGR_LOG_SOURCE"
	EnvLogFile   = "DGR_LOG_FILE"
)

// envKeys maps dotted config keys to the variable overriding them.
var envKeys = map[string]string{
	"grid.columns":           EnvColumns,
	"grid.save_url":          EnvSaveURL,
	"grid.save_method":       EnvSaveMethod,
	"grid.local_storage_key": EnvStorageKey,
	"storage.dir":            EnvStorageDir,
	"remote.timeout_ms":      EnvRemoteTimeout,
	"server.addr":            EnvServerAddr,
	"server.database_url":    EnvDatabaseURL,
	"logging.level":          EnvLogLevel,
	"logging.format":         EnvLogFormat,
	"logging.source":         EnvLogSource,
	"logging.file":           EnvLogFile,
}

// ConfigPath returns the per-user config file path. DGR_CONFIG wins.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfig)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "DragGrid")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "DragGrid")
	default: // linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "draggrid")
		} else if home := os.Getenv("HOME"); home != "" {
			base = filepath.Join(home, ".config", "draggrid")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

func defaultDataDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "draggrid")
	}
	return filepath.Join(os.TempDir(), "draggrid")
}

// Load reads the user config file (if present) over the defaults and merges
// environment overrides. The token comes from DGR_REMOTE_TOKEN or the keyring
// and is returned separately.
func Load() (AppConfig, string, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, "", err
	}
	return LoadFrom(path)
}

// LoadFrom is Load for an explicit file path. A missing file is not an error.
func LoadFrom(path string) (AppConfig, string, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// decoding onto the defaults keeps every key the file leaves out
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Defaults(), "", fmt.Errorf("parse config %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return cfg, "", fmt.Errorf("read config %s: %w", path, err)
	}
	normalize(&cfg)
	applyEnvOverrides(&cfg)
	return cfg, token(), nil
}

func token() string {
	if v := strings.TrimSpace(os.Getenv(EnvRemoteToken)); v != "" {
		return v
	}
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return tok
}

// Save writes the config YAML to the user path and persists the token into
// the OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg, token)
}

// SaveTo is Save for an explicit file path.
func SaveTo(path string, cfg AppConfig, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return fmt.Errorf("store token: %w", err)
		}
	}
	return nil
}

func normalize(cfg *AppConfig) {
	cfg.Grid.SaveMethod = strings.ToUpper(strings.TrimSpace(cfg.Grid.SaveMethod))
	if cfg.Grid.SaveMethod == "" {
		cfg.Grid.SaveMethod = http.MethodPost
	}
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	cfg.Logging.File = strings.TrimSpace(cfg.Logging.File)
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvColumns)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Grid.Columns = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvSaveURL)); v != "" {
		cfg.Grid.SaveURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSaveMethod)); v != "" {
		cfg.Grid.SaveMethod = strings.ToUpper(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageKey)); v != "" {
		cfg.Grid.LocalStorageKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageDir)); v != "" {
		cfg.Storage.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRemoteTimeout)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Remote.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerAddr)); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDatabaseURL)); v != "" {
		cfg.Server.DatabaseURL = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// EnvOverrideFor returns the env var name if the dotted key is overridden by
// the environment.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Keys lists the dotted keys that have an environment override, sorted.
func Keys() []string {
	out := make([]string, 0, len(envKeys))
	for k := range envKeys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
