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


package badgerkv

import "github.com/mus-format/mus-go/varint"

// fileMeta is the sidecar metadata kept per stored path.
type fileMeta struct {
	Size    int64
	ModTime int64 // unix microseconds
}

// marshalMeta serializes a fileMeta to bytes.
func marshalMeta(m fileMeta) []byte {
	buf := make([]byte, varint.Int64.Size(m.Size)+varint.Int64.Size(m.ModTime))
	n := varint.Int64.Marshal(m.Size, buf)
	varint.Int64.Marshal(m.ModTime, buf[n:])
	return buf
}

// unmarshalMeta deserializes a fileMeta from bytes.
func unmarshalMeta(data []byte) (fileMeta, error) {
	size, n, err := varint.Int64.Unmarshal(data)
	if err != nil {
		return fileMeta{}, err
	}
	modTime, _, err := varint.Int64.Unmarshal(data[n:])
	if err != nil {
		return fileMeta{}, err
	}
	return fileMeta{Size: size, ModTime: modTime}, nil
}
