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


package folio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/record"
	"github.com/poiesic/folio/storage"
)

// cacheEntry pairs a loaded record with its bookkeeping. The cache owns
// the record; checkout handles only hold a pointer into the slot.
type cacheEntry struct {
	id       core.ID
	path     string // backend path
	rec      *record.Record
	borrowed bool
	dirty    bool
	// persisted is false until the entry has hit the backend at least
	// once; digest is the hash of the last persisted serialization and is
	// only meaningful while persisted is true.
	persisted bool
	digest    [record.DigestSize]byte
}

// entryCache maps identifiers to loaded records. It is shared by
// reference between the store and its iterators and is internally
// synchronized.
type entryCache struct {
	mu      sync.Mutex
	backend storage.Backend
	entries map[string]*cacheEntry
}

func newEntryCache(backend storage.Backend) *entryCache {
	return &entryCache{
		backend: backend,
		entries: map[string]*cacheEntry{},
	}
}

// lookup returns the cached entry for id, or nil. Caller holds mu.
func (c *entryCache) lookup(id core.ID) *cacheEntry {
	return c.entries[id.Local()]
}

// load reads and parses the record behind id into the cache. A failed
// load leaves the cache unchanged. Caller holds mu.
func (c *entryCache) load(id core.ID, path string) (*cacheEntry, error) {
	data, err := c.backend.Read(path)
	if err != nil {
		return nil, err
	}
	rec, err := record.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	entry := &cacheEntry{
		id:        id,
		path:      path,
		rec:       rec,
		persisted: true,
		digest:    record.Digest(data),
	}
	c.entries[id.Local()] = entry
	return entry, nil
}

// insert places a fresh, never-persisted record into the cache.
// Caller holds mu.
func (c *entryCache) insert(id core.ID, path string, rec *record.Record) *cacheEntry {
	entry := &cacheEntry{id: id, path: path, rec: rec, dirty: true}
	c.entries[id.Local()] = entry
	return entry
}

// flushEntry serializes the entry and writes it through the backend.
// Unchanged bytes are never rewritten: the serialization is compared
// against the digest of the last persisted state. On write failure the
// entry stays dirty so a later retry can pick it up. Caller holds mu.
func (c *entryCache) flushEntry(entry *cacheEntry) error {
	data, err := entry.rec.Serialize()
	if err != nil {
		entry.dirty = true
		return fmt.Errorf("%s: %w", entry.id, err)
	}
	digest := record.Digest(data)
	if entry.persisted && digest == entry.digest {
		entry.dirty = false
		return nil
	}
	if err := c.backend.Write(entry.path, data); err != nil {
		entry.dirty = true
		return err
	}
	entry.persisted = true
	entry.digest = digest
	entry.dirty = false
	return nil
}

// flushAll flushes every entry that may have changed. All failures are
// reported; entries that failed stay dirty.
func (c *entryCache) flushAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for _, entry := range c.entries {
		if !entry.dirty && entry.persisted {
			continue
		}
		if err := c.flushEntry(entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// evict drops a clean entry from memory without writing. Borrowed entries
// and entries with unflushed changes are refused.
func (c *entryCache) evict(id core.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := c.lookup(id)
	if entry == nil {
		return nil
	}
	if entry.borrowed {
		return fmt.Errorf("%s: %w", id, core.ErrAlreadyBorrowed)
	}
	if entry.dirty || !entry.persisted {
		return fmt.Errorf("%s: entry has unflushed changes", id)
	}
	// a handle may have mutated the record without marking it; trust the
	// bytes, not the flag
	data, err := entry.rec.Serialize()
	if err != nil {
		return fmt.Errorf("%s: %w", id, err)
	}
	if record.Digest(data) != entry.digest {
		return fmt.Errorf("%s: entry has unflushed changes", id)
	}
	delete(c.entries, id.Local())
	return nil
}

// remove deletes the entry from the backend and drops it from the cache
// unconditionally. Caller holds mu.
func (c *entryCache) remove(entry *cacheEntry) error {
	err := c.backend.Remove(entry.path)
	if err != nil && !storage.IsNotExist(err) {
		return err
	}
	delete(c.entries, entry.id.Local())
	return nil
}

// size returns the number of cached entries.
func (c *entryCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
