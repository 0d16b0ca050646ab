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


package record

import (
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/poiesic/folio/core"
)

const (
	// ReservedNamespace is the header table owned by the store itself.
	ReservedNamespace = "folio"

	// FormatVersion is written to <ReservedNamespace>.version on every
	// serialized record.
	FormatVersion = "1.0.0"
)

// Header is the structured metadata tree of a record: a TOML document of
// strings, integers, floats, booleans, arrays and sub-tables. Values are
// addressed by dotted paths such as "note.title".
//
// A Header is not safe for concurrent mutation; the store's single-writer
// rule is what serializes access in practice.
type Header struct {
	tree map[string]any
}

// NewHeader returns an empty header containing only the reserved table.
func NewHeader() *Header {
	h := &Header{tree: map[string]any{}}
	h.ensureReserved()
	return h
}

func (h *Header) ensureReserved() {
	ns, ok := h.tree[ReservedNamespace].(map[string]any)
	if !ok {
		ns = map[string]any{}
		h.tree[ReservedNamespace] = ns
	}
	if _, ok := ns["version"]; !ok {
		ns["version"] = FormatVersion
	}
}

// Version returns the record format version from the reserved table.
func (h *Header) Version() string {
	v, _ := h.GetString(ReservedNamespace + ".version")
	return v
}

// Encode writes the header tree as TOML.
func (h *Header) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(h.tree)
}

// Has reports whether a value exists at the given dotted path.
func (h *Header) Has(path string) bool {
	_, ok := h.Get(path)
	return ok
}

// Get returns the value at the given dotted path.
func (h *Header) Get(path string) (any, bool) {
	segs := strings.Split(path, ".")
	node := h.tree
	for i, seg := range segs {
		v, ok := node[seg]
		if !ok {
			return nil, false
		}
		if i == len(segs)-1 {
			return v, true
		}
		node, ok = v.(map[string]any)
		if !ok {
			return nil, false
		}
	}
	return nil, false
}

// GetString returns the string value at path, or false if the path is
// absent or holds a different type.
func (h *Header) GetString(path string) (string, bool) {
	v, ok := h.Get(path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetInt returns the integer value at path.
func (h *Header) GetInt(path string) (int64, bool) {
	v, ok := h.Get(path)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

// GetBool returns the boolean value at path.
func (h *Header) GetBool(path string) (bool, bool) {
	v, ok := h.Get(path)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Set stores a value at the given dotted path, creating intermediate
// tables as needed. Writing under the reserved namespace fails with
// core.ErrReservedHeader; a path whose intermediate segment already holds
// a non-table value is rejected.
func (h *Header) Set(path string, value any) error {
	if isReserved(path) {
		return fmt.Errorf("%w: %q", core.ErrReservedHeader, path)
	}
	segs := strings.Split(path, ".")
	if err := validatePathSegments(path, segs); err != nil {
		return err
	}
	node := h.tree
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node[seg]
		if !ok {
			next := map[string]any{}
			node[seg] = next
			node = next
			continue
		}
		next, ok := child.(map[string]any)
		if !ok {
			return fmt.Errorf("header path %q: segment %q is not a table", path, seg)
		}
		node = next
	}
	node[segs[len(segs)-1]] = value
	return nil
}

// Delete removes the value at the given dotted path. Deleting a missing
// path is a no-op; deleting under the reserved namespace fails.
func (h *Header) Delete(path string) error {
	if isReserved(path) {
		return fmt.Errorf("%w: %q", core.ErrReservedHeader, path)
	}
	segs := strings.Split(path, ".")
	if err := validatePathSegments(path, segs); err != nil {
		return err
	}
	node := h.tree
	for _, seg := range segs[:len(segs)-1] {
		next, ok := node[seg].(map[string]any)
		if !ok {
			return nil
		}
		node = next
	}
	delete(node, segs[len(segs)-1])
	return nil
}

func validatePathSegments(path string, segs []string) error {
	for _, seg := range segs {
		if seg == "" {
			return fmt.Errorf("header path %q: empty segment", path)
		}
	}
	return nil
}

func isReserved(path string) bool {
	return path == ReservedNamespace || strings.HasPrefix(path, ReservedNamespace+".")
}

// clone returns a deep copy of the header tree.
func (h *Header) clone() *Header {
	return &Header{tree: cloneTree(h.tree)}
}

func cloneTree(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case map[string]any:
			out[k] = cloneTree(t)
		case []any:
			cp := make([]any, len(t))
			copy(cp, t)
			out[k] = cp
		default:
			out[k] = v
		}
	}
	return out
}
