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

import "github.com/go-crypt/x/blake2b"

// Record is the in-memory decomposition of one stored item: a structured
// header and a free-text content blob.
type Record struct {
	header  *Header
	content string
}

// New returns an empty record with an initialized reserved header table.
func New() *Record {
	return &Record{header: NewHeader()}
}

// Header returns the record's metadata tree. The returned header is live:
// mutations through it mutate the record.
func (r *Record) Header() *Header { return r.header }

// Content returns the text blob.
func (r *Record) Content() string { return r.content }

// SetContent replaces the text blob.
func (r *Record) SetContent(content string) { r.content = content }

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	return &Record{header: r.header.clone(), content: r.content}
}

// DigestSize is the size in bytes of a record digest.
const DigestSize = 32

// Digest hashes serialized record bytes with BLAKE2b-256. The store uses
// digests to detect whether an entry actually changed since its last
// write-back.
func Digest(data []byte) [DigestSize]byte {
	h, _ := blake2b.New(DigestSize, nil)
	h.Write(data)
	var d [DigestSize]byte
	copy(d[:], h.Sum(nil))
	return d
}
