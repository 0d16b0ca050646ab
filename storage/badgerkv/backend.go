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


// Package badgerkv implements the storage backend on top of BadgerDB.
// Record bytes live under one key per path, with a small metadata sidecar
// key per record. Useful where a store should live inside a single
// database file tree instead of loose files, and for tests via the
// in-memory mode.
package badgerkv

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/poiesic/folio/storage"
)

const (
	// key prefixes; paths are appended verbatim
	entryPrefix = "e:"
	metaPrefix  = "m:"
)

type backend struct {
	db *badger.DB
}

var (
	_ storage.Backend = (*backend)(nil)
	_ storage.Statter = (*backend)(nil)
)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens a BadgerDB-backed storage backend at the given directory,
// creating it if needed. With inMemory set, no files are touched.
func Open(filePath string, inMemory bool) (storage.Backend, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, storage.NewIOError("open", filePath, err)
			}
			if err := os.MkdirAll(filePath, 0o755); err != nil {
				return nil, storage.NewIOError("open", filePath, err)
			}
		} else if !info.IsDir() {
			return nil, storage.NewIOError("open", filePath, fmt.Errorf("not a directory"))
		}
		opts = badger.DefaultOptions(filePath)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, storage.NewIOError("open", filePath, err)
	}

	return &backend{db: db}, nil
}

// withTx executes fn within a BadgerDB transaction. The transaction is
// discarded automatically when fn errors.
func (b *backend) withTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	if err := fn(tx); err != nil {
		return err
	}
	if isWrite {
		return tx.Commit()
	}
	return nil
}

func (b *backend) Read(path string) ([]byte, error) {
	var data []byte
	err := b.withTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(entryPrefix + path))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	}, false)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, storage.NotExist("read", path)
		}
		return nil, storage.NewIOError("read", path, err)
	}
	return data, nil
}

func (b *backend) Write(path string, data []byte) error {
	meta := marshalMeta(fileMeta{
		Size:    int64(len(data)),
		ModTime: time.Now().UnixMicro(),
	})
	err := b.withTx(func(tx *badger.Txn) error {
		if err := tx.Set([]byte(entryPrefix+path), data); err != nil {
			return err
		}
		return tx.Set([]byte(metaPrefix+path), meta)
	}, true)
	if err != nil {
		return storage.NewIOError("write", path, err)
	}
	return nil
}

func (b *backend) Remove(path string) error {
	err := b.withTx(func(tx *badger.Txn) error {
		if _, err := tx.Get([]byte(entryPrefix + path)); err != nil {
			return err
		}
		if err := tx.Delete([]byte(entryPrefix + path)); err != nil {
			return err
		}
		return tx.Delete([]byte(metaPrefix + path))
	}, true)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return storage.NotExist("remove", path)
		}
		return storage.NewIOError("remove", path, err)
	}
	return nil
}

func (b *backend) Rename(oldPath, newPath string) error {
	err := b.withTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(entryPrefix + oldPath))
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		metaItem, err := tx.Get([]byte(metaPrefix + oldPath))
		if err != nil {
			return err
		}
		meta, err := metaItem.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := tx.Set([]byte(entryPrefix+newPath), data); err != nil {
			return err
		}
		if err := tx.Set([]byte(metaPrefix+newPath), meta); err != nil {
			return err
		}
		if err := tx.Delete([]byte(entryPrefix + oldPath)); err != nil {
			return err
		}
		return tx.Delete([]byte(metaPrefix + oldPath))
	}, true)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return storage.NotExist("rename", oldPath)
		}
		return storage.NewIOError("rename", oldPath, err)
	}
	return nil
}

func (b *backend) Exists(path string) (bool, error) {
	err := b.withTx(func(tx *badger.Txn) error {
		_, err := tx.Get([]byte(entryPrefix + path))
		return err
	}, false)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return false, nil
		}
		return false, storage.NewIOError("stat", path, err)
	}
	return true, nil
}

// Stat reads the metadata sidecar for path.
func (b *backend) Stat(path string) (storage.Info, error) {
	var meta fileMeta
	err := b.withTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(metaPrefix + path))
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		meta, err = unmarshalMeta(raw)
		return err
	}, false)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return storage.Info{}, storage.NotExist("stat", path)
		}
		return storage.Info{}, storage.NewIOError("stat", path, err)
	}
	return storage.Info{Size: meta.Size, ModTime: time.UnixMicro(meta.ModTime)}, nil
}

// List yields stored paths under prefix in key order. The prefix is
// matched on whole path segments, like a directory walk.
func (b *backend) List(prefix string, fn func(path string) error) error {
	var fnErr error
	err := b.withTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(entryPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			path := strings.TrimPrefix(string(iter.Item().Key()), entryPrefix)
			if !underPrefix(path, prefix) {
				continue
			}
			if fnErr = fn(path); fnErr != nil {
				return nil
			}
		}
		return nil
	}, false)
	if err != nil {
		return storage.NewIOError("list", prefix, err)
	}
	if fnErr == storage.ErrStopWalk {
		return nil
	}
	return fnErr
}

func underPrefix(path, prefix string) bool {
	if prefix == "" || prefix == "." {
		return true
	}
	prefix = strings.TrimSuffix(prefix, "/")
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func (b *backend) Close() error {
	return b.db.Close()
}
