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
	"strings"

	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/record"
	"github.com/poiesic/folio/storage"
)

// Entries is a lazy traversal of the identifiers in the store or one of
// its sub-collections. Nothing is walked until a terminal operation
// (ForEach, CollectIDs, Records.ForEach) runs; combinators only stack
// transformations.
//
// Every item is an identifier or an error (a backend path that fails
// identifier validation, for example); errors travel through every
// combinator instead of being dropped, so bulk operations always see
// their failures.
type Entries struct {
	store *Store
	seq   func(yield func(core.ID, error) bool)
}

// Entries returns a traversal over every identifier in the store.
func (s *Store) Entries() (*Entries, error) {
	return s.EntriesIn("")
}

// EntriesIn returns a traversal restricted to one collection prefix.
// An empty prefix means the whole store.
func (s *Store) EntriesIn(coll string) (*Entries, error) {
	coll = strings.Trim(coll, "/")
	if coll != "" {
		if _, err := core.NewID(coll); err != nil {
			return nil, err
		}
	}
	prefix := s.collectionPath(coll)
	seq := func(yield func(core.ID, error) bool) {
		stopped := false
		walkErr := s.backend.List(prefix, func(path string) error {
			id, err := core.IDFromPath(s.root, path)
			if err != nil {
				if !yield(core.ID{}, err) {
					stopped = true
					return storage.ErrStopWalk
				}
				return nil
			}
			if !yield(id.WithoutBase(), nil) {
				stopped = true
				return storage.ErrStopWalk
			}
			return nil
		})
		// a failing walk is an item too, not a silent end
		if walkErr != nil && !stopped {
			yield(core.ID{}, walkErr)
		}
	}
	return &Entries{store: s, seq: seq}, nil
}

func (e *Entries) derive(seq func(yield func(core.ID, error) bool)) *Entries {
	return &Entries{store: e.store, seq: seq}
}

// InCollection keeps only identifiers under the given collection prefix.
// Errors pass through.
func (e *Entries) InCollection(coll string) *Entries {
	return e.derive(func(yield func(core.ID, error) bool) {
		e.seq(func(id core.ID, err error) bool {
			if err != nil {
				return yield(core.ID{}, err)
			}
			if !id.InCollection(coll) {
				return true
			}
			return yield(id, nil)
		})
	})
}

// FindByIDSubstr keeps identifiers whose local path contains substr.
// Useful when the user supplied only part of an ID, such as a UUID
// fragment.
func (e *Entries) FindByIDSubstr(substr string) *Entries {
	return e.filterID(func(id core.ID) bool {
		return strings.Contains(id.Local(), substr)
	})
}

// FindByIDStartsWith keeps identifiers whose local path starts with
// prefix, compared textually.
func (e *Entries) FindByIDStartsWith(prefix string) *Entries {
	return e.filterID(func(id core.ID) bool {
		return strings.HasPrefix(id.Local(), prefix)
	})
}

func (e *Entries) filterID(pred func(core.ID) bool) *Entries {
	return e.derive(func(yield func(core.ID, error) bool) {
		e.seq(func(id core.ID, err error) bool {
			if err != nil {
				return yield(core.ID{}, err)
			}
			if !pred(id) {
				return true
			}
			return yield(id, nil)
		})
	})
}

// ForEach runs the traversal, calling fn once per item. fn receives
// either an identifier or the error that produced no identifier, and may
// return an error to stop the traversal; that error is returned.
func (e *Entries) ForEach(fn func(core.ID, error) error) error {
	var fnErr error
	e.seq(func(id core.ID, err error) bool {
		fnErr = fn(id, err)
		return fnErr == nil
	})
	return fnErr
}

// CollectIDs runs the traversal and gathers all identifiers, failing
// fast on the first error item.
func (e *Entries) CollectIDs() ([]core.ID, error) {
	var ids []core.ID
	err := e.ForEach(func(id core.ID, err error) error {
		if err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Count runs the traversal and returns the number of identifiers,
// failing fast on the first error item.
func (e *Entries) Count() (int, error) {
	n := 0
	err := e.ForEach(func(_ core.ID, err error) error {
		if err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Records turns the identifier traversal into a record traversal: each
// identifier is checked out via Store.Retrieve as the consumer reaches
// it.
func (e *Entries) Records() *Records {
	return &Records{entries: e}
}

// Records is a lazy traversal of checked-out records.
type Records struct {
	entries *Entries
	preds   []func(*record.Record) bool
}

// Filter keeps records matching a predicate over the loaded record,
// typically a header field check. Non-matching records are released
// untouched. Error items pass through.
func (r *Records) Filter(pred func(*record.Record) bool) *Records {
	return &Records{
		entries: r.entries,
		preds:   append(append([]func(*record.Record) bool{}, r.preds...), pred),
	}
}

// ForEach runs the traversal. For every item fn receives either a live
// checkout handle or an error; iteration errors and retrieve failures
// arrive through the same channel, never silently dropped. The handle is
// released after fn returns, on every path. fn may return an error to
// stop the traversal.
func (r *Records) ForEach(fn func(*Handle, error) error) error {
	return r.entries.ForEach(func(id core.ID, err error) error {
		if err != nil {
			return fn(nil, err)
		}
		h, err := r.entries.store.Retrieve(id)
		if err != nil {
			return fn(nil, err)
		}
		defer h.Close()
		for _, pred := range r.preds {
			if !pred(h.entry.rec) {
				return nil
			}
		}
		if err := fn(h, nil); err != nil {
			return err
		}
		return h.Close()
	})
}
