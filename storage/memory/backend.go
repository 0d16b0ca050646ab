// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package memory implements the storage backend as a map from path to
// byte buffer held in process memory. It exists so the store protocol can
// be exercised deterministically without touching disk.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/folio/storage"
)

type backend struct {
	mu    sync.RWMutex
	files map[string][]byte
	mtime map[string]time.Time
}

var (
	_ storage.Backend = (*backend)(nil)
	_ storage.Statter = (*backend)(nil)
)

// New returns an empty in-memory backend.
func New() storage.Backend {
	return &backend{files: map[string][]byte{}, mtime: map[string]time.Time{}}
}

// Populate returns an in-memory backend preloaded with the given files.
// Test construction helper.
func Populate(files map[string][]byte) storage.Backend {
	b := &backend{
		files: make(map[string][]byte, len(files)),
		mtime: make(map[string]time.Time, len(files)),
	}
	now := time.Now()
	for path, data := range files {
		b.files[path] = append([]byte(nil), data...)
		b.mtime[path] = now
	}
	return b
}

func (b *backend) Read(path string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.files[path]
	if !ok {
		return nil, storage.NotExist("read", path)
	}
	return append([]byte(nil), data...), nil
}

func (b *backend) Write(path string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[path] = append([]byte(nil), data...)
	b.mtime[path] = time.Now()
	return nil
}

func (b *backend) Remove(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.files[path]; !ok {
		return storage.NotExist("remove", path)
	}
	delete(b.files, path)
	delete(b.mtime, path)
	return nil
}

func (b *backend) Rename(oldPath, newPath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.files[oldPath]
	if !ok {
		return storage.NotExist("rename", oldPath)
	}
	delete(b.files, oldPath)
	b.files[newPath] = data
	b.mtime[newPath] = b.mtime[oldPath]
	delete(b.mtime, oldPath)
	return nil
}

func (b *backend) Stat(path string) (storage.Info, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.files[path]
	if !ok {
		return storage.Info{}, storage.NotExist("stat", path)
	}
	return storage.Info{Size: int64(len(data)), ModTime: b.mtime[path]}, nil
}

func (b *backend) Exists(path string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.files[path]
	return ok, nil
}

// List yields stored paths under prefix in sorted order. The snapshot is
// taken up front so fn may mutate the backend while walking.
func (b *backend) List(prefix string, fn func(path string) error) error {
	b.mu.RLock()
	paths := make([]string, 0, len(b.files))
	for path := range b.files {
		if underPrefix(path, prefix) {
			paths = append(paths, path)
		}
	}
	b.mu.RUnlock()

	sort.Strings(paths)
	for _, path := range paths {
		if err := fn(path); err != nil {
			if err == storage.ErrStopWalk {
				return nil
			}
			return err
		}
	}
	return nil
}

func underPrefix(path, prefix string) bool {
	if prefix == "" || prefix == "." {
		return true
	}
	prefix = strings.TrimSuffix(prefix, "/")
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func (b *backend) Close() error { return nil }
