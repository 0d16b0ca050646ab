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


// Package storage defines the backend abstraction of the entry store: the
// raw byte-level file operations every backend must provide.
//
// This package decouples the store from the medium records live on. It
// allows different backends (a real directory tree, an in-memory map for
// deterministic tests, a BadgerDB key space) to be used interchangeably.
//
// # Constructor Return Type Pattern
//
// Backend packages follow a "return interface" pattern for their public
// constructors:
//
//	backend, err := fsdir.New("/path/to/store")  // returns storage.Backend
//
// so consumers never couple to a concrete backend type.
//
// # Error Surface
//
// Every failing operation returns an *IOError carrying the operation name,
// the failing path and the underlying cause. Not-found conditions wrap
// io/fs.ErrNotExist and are detectable with IsNotExist.
//
// # Caching
//
// Backends perform no caching; that is the entry cache's responsibility.
// Backends may be shared between the store and its iterators and must be
// safe for concurrent use.
//
// # Optional Capabilities
//
// A backend may additionally implement Locker to provide cooperative
// advisory per-file locks. Consumers discover the capability with a type
// assertion and must work without it.
package storage
