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
	"fmt"
	"sync"

	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/record"
)

// Handle is a scoped checkout of one record: exclusive access from
// Create or Retrieve until Close. Closing writes the record's current
// state back through the store exactly once and returns the record to
// the Loaded state; write-back is not opt-in and happens on every exit
// path as long as Close runs (use defer).
//
// A Handle is the only entity permitted to mutate its record. It is not
// safe for concurrent use; the single-writer rule already makes a shared
// handle a protocol violation.
type Handle struct {
	store *Store
	entry *cacheEntry

	mu       sync.Mutex
	released bool
}

func newHandle(s *Store, entry *cacheEntry) *Handle {
	return &Handle{store: s, entry: entry}
}

// ID returns the identifier of the checked-out record.
func (h *Handle) ID() core.ID { return h.entry.id }

// Content returns the record's text blob, or "" after release.
func (h *Handle) Content() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return ""
	}
	h.store.cache.mu.Lock()
	defer h.store.cache.mu.Unlock()
	return h.entry.rec.Content()
}

// SetContent replaces the record's text blob.
func (h *Handle) SetContent(content string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return fmt.Errorf("%s: %w", h.entry.id, core.ErrReleased)
	}
	h.store.cache.mu.Lock()
	defer h.store.cache.mu.Unlock()
	h.entry.rec.SetContent(content)
	h.entry.dirty = true
	return nil
}

// Header returns the record's metadata tree for reading, or nil after
// release. Use SetField and DeleteField for mutation so the entry is
// tracked as changed.
func (h *Handle) Header() *record.Header {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	return h.entry.rec.Header()
}

// SetField stores a header value at a dotted path. Writing under the
// reserved namespace fails with core.ErrReservedHeader.
func (h *Handle) SetField(path string, value any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return fmt.Errorf("%s: %w", h.entry.id, core.ErrReleased)
	}
	h.store.cache.mu.Lock()
	defer h.store.cache.mu.Unlock()
	if err := h.entry.rec.Header().Set(path, value); err != nil {
		return err
	}
	h.entry.dirty = true
	return nil
}

// DeleteField removes a header value at a dotted path.
func (h *Handle) DeleteField(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return fmt.Errorf("%s: %w", h.entry.id, core.ErrReleased)
	}
	h.store.cache.mu.Lock()
	defer h.store.cache.mu.Unlock()
	if err := h.entry.rec.Header().Delete(path); err != nil {
		return err
	}
	h.entry.dirty = true
	return nil
}

// Close writes the record back and releases the checkout. The first call
// does the work and reports the write-back result; every later call is a
// no-op returning nil. A failed write-back leaves the entry dirty in the
// cache, so Store.Flush can retry it.
func (h *Handle) Close() error {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return nil
	}
	h.released = true
	h.mu.Unlock()

	return h.store.release(h.entry)
}
