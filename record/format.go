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
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/BurntSushi/toml"

	"github.com/poiesic/folio/core"
)

// delimiter opens and closes the header block.
const delimiter = "---"

// Parse decodes stored bytes into a Record.
//
// The header block is the span between the first delimiter line and the
// next one; everything after the second delimiter is content, verbatim. A
// buffer that does not start with a delimiter line is content-only. Parsing
// fails with core.ErrMalformedRecord when an opened header block is never
// closed or its body is not valid TOML.
func Parse(data []byte) (*Record, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: not valid UTF-8", core.ErrMalformedRecord)
	}
	text := string(data)
	lines := strings.Split(text, "\n")

	if lines[0] != delimiter {
		r := New()
		r.content = text
		return r, nil
	}

	closing := -1
	for i := 1; i < len(lines); i++ {
		if lines[i] == delimiter {
			closing = i
			break
		}
	}
	if closing < 0 {
		return nil, fmt.Errorf("%w: header block never closed", core.ErrMalformedRecord)
	}

	headerText := strings.Join(lines[1:closing], "\n")
	content := strings.Join(lines[closing+1:], "\n")

	var tree map[string]any
	if err := toml.Unmarshal([]byte(headerText), &tree); err != nil {
		return nil, fmt.Errorf("%w: header: %v", core.ErrMalformedRecord, err)
	}
	if tree == nil {
		tree = map[string]any{}
	}
	if ns, present := tree[ReservedNamespace]; present {
		if _, ok := ns.(map[string]any); !ok {
			return nil, fmt.Errorf("%w: reserved %q entry is not a table",
				core.ErrMalformedRecord, ReservedNamespace)
		}
	}

	h := &Header{tree: tree}
	h.ensureReserved()
	return &Record{header: h, content: content}, nil
}

// Serialize encodes the record into its on-disk form: the header block
// (the reserved table is always present), the closing delimiter, then the
// content unchanged. Serializing an unmodified parsed record reproduces
// identical bytes.
func (r *Record) Serialize() ([]byte, error) {
	r.header.ensureReserved()

	var buf bytes.Buffer
	buf.WriteString(delimiter)
	buf.WriteByte('\n')

	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(r.header.tree); err != nil {
		return nil, fmt.Errorf("encoding header: %w", err)
	}
	if buf.Bytes()[buf.Len()-1] != '\n' {
		buf.WriteByte('\n')
	}

	buf.WriteString(delimiter)
	buf.WriteByte('\n')
	buf.WriteString(r.content)
	return buf.Bytes(), nil
}
