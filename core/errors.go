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

import "errors"

// Store contract errors
var (
	// ErrInvalidIdentifier indicates a malformed or unsafe identifier path.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrNotFound indicates the operation targets a record that does not exist.
	ErrNotFound = errors.New("entry not found")

	// ErrAlreadyExists indicates a create collided with an existing record.
	ErrAlreadyExists = errors.New("entry already exists")

	// ErrAlreadyBorrowed indicates a single-writer violation: the record is
	// already checked out through another handle.
	ErrAlreadyBorrowed = errors.New("entry already borrowed")

	// ErrMalformedRecord indicates stored bytes that do not parse as a record.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrReservedHeader indicates an attempt to write under the reserved
	// header namespace.
	ErrReservedHeader = errors.New("reserved header namespace")

	// ErrReleased indicates use of a checkout handle after its release.
	ErrReleased = errors.New("handle already released")

	// ErrStoreOpen indicates a second store was opened on a root that
	// already has an open store in this process.
	ErrStoreOpen = errors.New("store already open for this root")
)
