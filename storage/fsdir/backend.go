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


// Package fsdir implements the storage backend over a real directory tree.
// One record is one regular file. Writes go through a temporary file in
// the destination directory followed by a rename, so readers never see a
// half-written record. The backend also provides cooperative advisory
// locks via ".lock" sidecar files.
package fsdir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/folio/storage"
)

type backend struct {
	root string
}

var (
	_ storage.Backend = (*backend)(nil)
	_ storage.Locker  = (*backend)(nil)
	_ storage.Statter = (*backend)(nil)
)

// New opens a filesystem backend rooted at the given directory, creating
// it if it does not exist.
func New(root string) (storage.Backend, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, storage.NewIOError("open", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, storage.NewIOError("open", abs, err)
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, storage.NewIOError("open", abs, err)
		}
	} else if !info.IsDir() {
		return nil, storage.NewIOError("open", abs, fmt.Errorf("not a directory"))
	}
	return &backend{root: abs}, nil
}

func (b *backend) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.NotExist("read", path)
		}
		return nil, storage.NewIOError("read", path, err)
	}
	return data, nil
}

// Write replaces the file at path atomically: the bytes are written to a
// temporary file in the same directory, synced, then renamed over the
// destination.
func (b *backend) Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return storage.NewIOError("write", path, err)
	}
	tmp, err := os.CreateTemp(dir, ".folio-tmp-*")
	if err != nil {
		return storage.NewIOError("write", path, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return storage.NewIOError("write", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return storage.NewIOError("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return storage.NewIOError("write", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return storage.NewIOError("write", path, err)
	}
	return nil
}

func (b *backend) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return storage.NotExist("remove", path)
		}
		return storage.NewIOError("remove", path, err)
	}
	return nil
}

func (b *backend) Rename(oldPath, newPath string) error {
	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return storage.NewIOError("rename", newPath, err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		if os.IsNotExist(err) {
			return storage.NotExist("rename", oldPath)
		}
		return storage.NewIOError("rename", oldPath, err)
	}
	return nil
}

func (b *backend) Exists(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, storage.NewIOError("stat", path, err)
	}
	return true, nil
}

func (b *backend) Stat(path string) (storage.Info, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return storage.Info{}, storage.NotExist("stat", path)
		}
		return storage.Info{}, storage.NewIOError("stat", path, err)
	}
	return storage.Info{Size: info.Size(), ModTime: info.ModTime()}, nil
}

// List walks the tree below prefix, yielding regular files only. Dotfiles
// and lock sidecars never reach fn.
func (b *backend) List(prefix string, fn func(path string) error) error {
	if _, err := os.Stat(prefix); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return storage.NewIOError("list", prefix, err)
	}
	err := filepath.WalkDir(prefix, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return storage.NewIOError("list", path, err)
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != prefix {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, lockSuffix) {
			return nil
		}
		return fn(path)
	})
	if errors.Is(err, storage.ErrStopWalk) {
		return nil
	}
	return err
}

func (b *backend) Close() error { return nil }
