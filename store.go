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


// Package folio is the entry store beneath a plain-text personal
// information management suite: every note, contact, habit or diary entry
// is one uniformly structured text record under a single root directory.
//
// The store maps validated identifiers to records, caches open records in
// memory, enforces single-writer access per record and exposes lazy
// iteration over the whole collection. Records are checked out through
// handles that write their state back exactly once on release:
//
//	st, err := folio.Open("/home/me/.pim")
//	...
//	h, err := st.Create(core.MustID("notes/shopping"))
//	...
//	defer h.Close()
//	h.SetContent("milk\neggs\n")
package folio

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/record"
	"github.com/poiesic/folio/storage"
	"github.com/poiesic/folio/storage/fsdir"
)

// openRoots guards against two stores in one process fighting over the
// same root directory. Roots are released on Close.
var openRoots = struct {
	sync.Mutex
	m map[string]bool
}{m: map[string]bool{}}

// Store is the facade over one record collection root. It owns the entry
// cache and the chosen backend and enforces the per-record protocol:
// a record is Absent, Loaded, or CheckedOut by exactly one handle.
type Store struct {
	root     string
	backend  storage.Backend
	cache    *entryCache
	locker   storage.Locker
	logger   *slog.Logger
	advisory bool

	closeMu sync.Mutex
	closed  bool
}

// Option configures a Store.
type Option func(*Store)

// WithBackend substitutes the storage backend. Default is a filesystem
// backend rooted at the store root.
func WithBackend(b storage.Backend) Option {
	return func(s *Store) { s.backend = b }
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAdvisoryLocks engages cooperative per-record filesystem locks, if
// the backend supports them. They narrow, but do not close, the window
// for another process editing the same record.
func WithAdvisoryLocks(enabled bool) Option {
	return func(s *Store) { s.advisory = enabled }
}

// Open opens the store rooted at the given directory. At most one open
// Store per root is allowed within a process; a second Open fails with
// core.ErrStoreOpen until the first store is closed.
func Open(root string, opts ...Option) (*Store, error) {
	s := &Store{root: root, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	if s.backend == nil {
		backend, err := fsdir.New(root)
		if err != nil {
			return nil, err
		}
		s.backend = backend
	}
	if s.advisory {
		if locker, ok := s.backend.(storage.Locker); ok {
			s.locker = locker
		} else {
			s.logger.Warn("advisory locks requested but backend does not support them",
				"root", root)
		}
	}

	if root != "" {
		openRoots.Lock()
		if openRoots.m[root] {
			openRoots.Unlock()
			return nil, fmt.Errorf("%w: %s", core.ErrStoreOpen, root)
		}
		openRoots.m[root] = true
		openRoots.Unlock()
	}

	s.cache = newEntryCache(s.backend)
	return s, nil
}

// Root returns the store root directory.
func (s *Store) Root() string { return s.root }

// backendPath renders the backend-native path for an identifier.
func (s *Store) backendPath(id core.ID) string {
	return id.WithBase(s.root).FSPath()
}

// collectionPath renders the backend-native path for a collection prefix.
func (s *Store) collectionPath(coll string) string {
	if coll == "" {
		return s.root
	}
	return filepath.Join(s.root, filepath.FromSlash(coll))
}

// Create inserts a new empty record for id and checks it out. Fails with
// core.ErrAlreadyExists when a record is already present in the cache or
// on the backend. There is deliberately no overwrite path: creating over
// an existing record is always an error.
func (s *Store) Create(id core.ID) (*Handle, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("%w: empty id", core.ErrInvalidIdentifier)
	}
	path := s.backendPath(id)

	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()

	if s.cache.lookup(id) != nil {
		return nil, fmt.Errorf("%s: %w", id, core.ErrAlreadyExists)
	}
	exists, err := s.backend.Exists(path)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%s: %w", id, core.ErrAlreadyExists)
	}

	if err := s.lockRecord(path); err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	entry := s.cache.insert(id, path, record.New())
	entry.borrowed = true
	s.logger.Debug("created entry", "id", id.Local())
	return newHandle(s, entry), nil
}

// Retrieve loads the record for id (from cache or backend) and checks it
// out. Fails with core.ErrNotFound when the backend has no such record
// and core.ErrAlreadyBorrowed when another handle is outstanding; it
// never blocks waiting for the other handle.
func (s *Store) Retrieve(id core.ID) (*Handle, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("%w: empty id", core.ErrInvalidIdentifier)
	}
	path := s.backendPath(id)

	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()

	entry := s.cache.lookup(id)
	if entry == nil {
		var err error
		entry, err = s.cache.load(id, path)
		if err != nil {
			if storage.IsNotExist(err) {
				return nil, fmt.Errorf("%s: %w", id, core.ErrNotFound)
			}
			return nil, err
		}
	}
	if entry.borrowed {
		return nil, fmt.Errorf("%s: %w", id, core.ErrAlreadyBorrowed)
	}
	if err := s.lockRecord(path); err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	entry.borrowed = true
	return newHandle(s, entry), nil
}

// Get is Retrieve for callers that only want to probe: an absent record
// yields (nil, false, nil) instead of an error. Genuine failures,
// including core.ErrAlreadyBorrowed, are still errors.
func (s *Store) Get(id core.ID) (*Handle, bool, error) {
	h, err := s.Retrieve(id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return h, true, nil
}

// Delete removes the record for id from the backend and the cache. Fails
// with core.ErrAlreadyBorrowed while a handle is outstanding, and with
// core.ErrNotFound when the record is absent from both cache and backend.
func (s *Store) Delete(id core.ID) error {
	if id.IsZero() {
		return fmt.Errorf("%w: empty id", core.ErrInvalidIdentifier)
	}
	path := s.backendPath(id)

	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()

	entry := s.cache.lookup(id)
	if entry != nil && entry.borrowed {
		return fmt.Errorf("%s: %w", id, core.ErrAlreadyBorrowed)
	}
	if entry == nil {
		exists, err := s.backend.Exists(path)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%s: %w", id, core.ErrNotFound)
		}
		if err := s.backend.Remove(path); err != nil {
			return err
		}
		s.logger.Debug("deleted entry", "id", id.Local())
		return nil
	}
	if err := s.cache.remove(entry); err != nil {
		return err
	}
	s.logger.Debug("deleted entry", "id", id.Local())
	return nil
}

// Move renames the record behind from to the identifier to. The source
// must not be checked out and the destination must not exist anywhere.
// A cached source entry is flushed first so no unwritten changes are
// lost, then follows the record to its new identifier.
func (s *Store) Move(from, to core.ID) error {
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: empty id", core.ErrInvalidIdentifier)
	}
	fromPath := s.backendPath(from)
	toPath := s.backendPath(to)

	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()

	if s.cache.lookup(to) != nil {
		return fmt.Errorf("%s: %w", to, core.ErrAlreadyExists)
	}
	exists, err := s.backend.Exists(toPath)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%s: %w", to, core.ErrAlreadyExists)
	}

	entry := s.cache.lookup(from)
	if entry != nil {
		if entry.borrowed {
			return fmt.Errorf("%s: %w", from, core.ErrAlreadyBorrowed)
		}
		if err := s.cache.flushEntry(entry); err != nil {
			return err
		}
	} else {
		exists, err := s.backend.Exists(fromPath)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%s: %w", from, core.ErrNotFound)
		}
	}

	if err := s.backend.Rename(fromPath, toPath); err != nil {
		return err
	}
	if entry != nil {
		delete(s.cache.entries, from.Local())
		entry.id = to.WithoutBase()
		entry.path = toPath
		s.cache.entries[to.Local()] = entry
	}
	s.logger.Debug("moved entry", "from", from.Local(), "to", to.Local())
	return nil
}

// release is the write-back path of a checkout handle: persist the
// record's current state and return the entry to Loaded. This is the only
// way mutations reach the backend.
func (s *Store) release(entry *cacheEntry) error {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()

	flushErr := s.cache.flushEntry(entry)
	entry.borrowed = false
	if s.locker != nil {
		if err := s.locker.Unlock(entry.path); err != nil {
			s.logger.Warn("releasing advisory lock failed",
				"id", entry.id.Local(), "err", err)
		}
	}
	return flushErr
}

// lockRecord takes the advisory lock for a record about to be checked
// out. A lock held elsewhere surfaces as core.ErrAlreadyBorrowed.
// Caller holds the cache mutex.
func (s *Store) lockRecord(path string) error {
	if s.locker == nil {
		return nil
	}
	if err := s.locker.Lock(path); err != nil {
		if errors.Is(err, storage.ErrLocked) {
			return core.ErrAlreadyBorrowed
		}
		return err
	}
	return nil
}

// WithEntry retrieves id, hands the record to fn and releases it on every
// exit path, including a panic in fn. The write-back error, if any, wins
// over a nil error from fn.
func (s *Store) WithEntry(id core.ID, fn func(*Handle) error) error {
	h, err := s.Retrieve(id)
	if err != nil {
		return err
	}
	defer h.Close()
	if err := fn(h); err != nil {
		return err
	}
	return h.Close()
}

// WithNewEntry is WithEntry over a freshly created record.
func (s *Store) WithNewEntry(id core.ID, fn func(*Handle) error) error {
	h, err := s.Create(id)
	if err != nil {
		return err
	}
	defer h.Close()
	if err := fn(h); err != nil {
		return err
	}
	return h.Close()
}

// Flush writes every entry with unflushed changes through the backend.
// Entries that fail stay dirty and are reported.
func (s *Store) Flush() error {
	return s.cache.flushAll()
}

// Evict drops a clean, unborrowed entry from the cache without writing.
// Useful to bound memory during long bulk operations.
func (s *Store) Evict(id core.ID) error {
	return s.cache.evict(id)
}

// Stat reports size and modification time of the record behind id as the
// backend sees it, without loading the record. Backends without stat
// support yield errors.ErrUnsupported.
func (s *Store) Stat(id core.ID) (storage.Info, error) {
	statter, ok := s.backend.(storage.Statter)
	if !ok {
		return storage.Info{}, fmt.Errorf("stat %s: %w", id, errors.ErrUnsupported)
	}
	return statter.Stat(s.backendPath(id))
}

// CacheSize returns the number of records currently held in memory.
func (s *Store) CacheSize() int {
	return s.cache.size()
}

// Close flushes all unflushed entries, releases the root registration and
// closes the backend. The store must not be used afterwards.
func (s *Store) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	flushErr := s.cache.flushAll()

	if s.root != "" {
		openRoots.Lock()
		delete(openRoots.m, s.root)
		openRoots.Unlock()
	}

	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		if flushErr == nil {
			return err
		}
	}
	return flushErr
}
