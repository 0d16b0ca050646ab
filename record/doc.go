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


// Package record implements the in-memory representation of one stored item
// and its on-disk text format.
//
// A record is a structured TOML header plus a free-text content blob. On
// disk the header sits between two "---" delimiter lines at the top of the
// file; everything after the second delimiter is content, verbatim:
//
//	---
//	[folio]
//	  version = "1.0.0"
//	[note]
//	  title = "shopping"
//	---
//	milk
//	eggs
//
// A file with no leading delimiter is all content with an empty header.
// Only the first two delimiter lines are ever interpreted; a "---" line
// inside the content is content.
//
// The "folio" header table is reserved for the store itself and cannot be
// written through the public header accessors.
package record
