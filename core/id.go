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


package core

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ID identifies one record in a store. It is composed of an optional base
// (the absolute store root) and a local path relative to that root, such as
// "diary/2019/05/01". The local path always uses forward slashes, is never
// absolute and never contains traversal segments.
//
// IDs are immutable values; transformations return new IDs. Equality ignores
// the base so that identifiers from different roots compare equal when they
// name the same record.
type ID struct {
	base  string
	local string
}

// NewID builds a baseless ID from a collection-relative path.
// Returns ErrInvalidIdentifier if the path is empty, absolute, contains
// backslashes, traversal segments or is not valid UTF-8.
func NewID(local string) (ID, error) {
	if err := validateLocal(local); err != nil {
		return ID{}, err
	}
	return ID{local: local}, nil
}

// MustID is NewID for static identifiers; it panics on validation failure.
func MustID(local string) ID {
	id, err := NewID(local)
	if err != nil {
		panic(err)
	}
	return id
}

// IDFromPath derives an ID from an absolute backend path by stripping the
// store root. Used when walking the backend, where only full paths exist.
func IDFromPath(base, full string) (ID, error) {
	rel, err := filepath.Rel(base, full)
	if err != nil {
		return ID{}, fmt.Errorf("%w: %q is not under root %q", ErrInvalidIdentifier, full, base)
	}
	local := filepath.ToSlash(rel)
	if err := validateLocal(local); err != nil {
		return ID{}, err
	}
	return ID{base: base, local: local}, nil
}

func validateLocal(local string) error {
	if local == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidIdentifier)
	}
	if !utf8.ValidString(local) {
		return fmt.Errorf("%w: path is not valid UTF-8", ErrInvalidIdentifier)
	}
	if strings.ContainsRune(local, '\\') {
		return fmt.Errorf("%w: %q contains backslash", ErrInvalidIdentifier, local)
	}
	if strings.HasPrefix(local, "/") {
		return fmt.Errorf("%w: %q is absolute", ErrInvalidIdentifier, local)
	}
	for seg := range strings.SplitSeq(local, "/") {
		switch seg {
		case "":
			return fmt.Errorf("%w: %q contains empty segment", ErrInvalidIdentifier, local)
		case ".", "..":
			return fmt.Errorf("%w: %q contains traversal segment", ErrInvalidIdentifier, local)
		}
	}
	return nil
}

// Local returns the collection-relative path.
func (id ID) Local() string { return id.local }

// Base returns the store root this ID was bound to, or "" for baseless IDs.
func (id ID) Base() string { return id.base }

// WithBase returns a copy of the ID bound to the given store root.
func (id ID) WithBase(base string) ID {
	return ID{base: base, local: id.local}
}

// WithoutBase returns a baseless copy of the ID.
func (id ID) WithoutBase() ID {
	return ID{local: id.local}
}

// FSPath renders the platform path the backend should operate on.
// For baseless IDs this is just the slash-converted local path.
func (id ID) FSPath() string {
	if id.base == "" {
		return filepath.FromSlash(id.local)
	}
	return filepath.Join(id.base, filepath.FromSlash(id.local))
}

// Collection returns the first segment of the local path, the top-level
// grouping this record belongs to.
func (id ID) Collection() string {
	if i := strings.IndexByte(id.local, '/'); i >= 0 {
		return id.local[:i]
	}
	return id.local
}

// InCollection reports whether the ID lives under the given collection
// prefix. The prefix is matched on whole segments: "diary/2019/05/01" is in
// "diary" and "diary/2019" but not in "dia". The empty prefix matches
// everything.
func (id ID) InCollection(coll string) bool {
	if coll == "" {
		return true
	}
	coll = strings.TrimSuffix(coll, "/")
	return id.local == coll || strings.HasPrefix(id.local, coll+"/")
}

// Equal reports whether two IDs name the same record, ignoring the base.
func (id ID) Equal(other ID) bool {
	return id.local == other.local
}

// IsZero reports whether the ID is the zero value.
func (id ID) IsZero() bool { return id.local == "" }

func (id ID) String() string { return id.local }
