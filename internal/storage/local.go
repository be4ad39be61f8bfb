/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterbourgon/diskv/v3"

	"draggrid/internal/domain"
)

// ErrInvalidKey is returned for keys that cannot map to a file path.
var ErrInvalidKey = errors.New("storage: invalid key")

const localExt = ".json"

// Local is a key-value layout store on disk. Keys are slash separated, e.g.
// "gridConfig/main"; each segment becomes a directory and the last one the
// file name.
type Local struct {
	d    *diskv.Diskv
	base string
}

// OpenLocal creates the store rooted at base.
func OpenLocal(base string) (*Local, error) {
	if strings.TrimSpace(base) == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &Local{d: diskv.New(diskv.Options{
		BasePath:          base,
		AdvancedTransform: keyToPath,
		InverseTransform:  pathToKey,
		CacheSizeMax:      0, // no read cache, other processes write these files
	}), base: base}, nil
}

// Base returns the store root.
func (l *Local) Base() string { return l.base }

// Save stores the compact wire form of layout under key.
func (l *Local) Save(key string, layout domain.Layout) error {
	data, err := layout.Encode()
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", key, err)
	}
	return l.Put(key, data)
}

// Put stores raw JSON under key.
func (l *Local) Put(key string, data []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	return l.d.Write(key, data)
}

// Get reads the raw value under key. ok is false when nothing is stored.
func (l *Local) Get(key string) ([]byte, bool, error) {
	if err := validKey(key); err != nil {
		return nil, false, err
	}
	data, err := l.d.Read(key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return data, true, nil
}

// Load reads the layout under key. ok is false when nothing is stored.
func (l *Local) Load(key string) (domain.Layout, bool, error) {
	data, ok, err := l.Get(key)
	if err != nil || !ok {
		return nil, ok, err
	}
	layout, err := domain.DecodeLayout(data)
	if err != nil {
		return nil, true, fmt.Errorf("storage: decode %s: %w", key, err)
	}
	return layout, true, nil
}

// Delete removes key. Missing keys are not an error.
func (l *Local) Delete(key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if !l.d.Has(key) {
		return nil
	}
	return l.d.Erase(key)
}

// Keys lists every stored key, sorted, optionally restricted to a prefix.
func (l *Local) Keys(ctx context.Context, prefix string) []string {
	var out []string
	for key := range l.d.KeysPrefix(prefix, ctx.Done()) {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func validKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." || strings.ContainsAny(seg, `\:`) {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

func keyToPath(key string) *diskv.PathKey {
	parts := strings.Split(key, "/")
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1] + localExt,
	}
}

func pathToKey(pk *diskv.PathKey) string {
	name := strings.TrimSuffix(pk.FileName, localExt)
	if len(pk.Path) == 0 {
		return name
	}
	return strings.Join(pk.Path, "/") + "/" + name
}

// keyForPath maps a file below base back to its key, or "" for anything that
// is not a stored layout.
func (l *Local) keyForPath(path string) string {
	rel, err := filepath.Rel(l.base, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	if !strings.HasSuffix(rel, localExt) || strings.HasPrefix(filepath.Base(rel), ".") {
		return ""
	}
	return strings.TrimSuffix(filepath.ToSlash(rel), localExt)
}
