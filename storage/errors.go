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


package storage

import (
	"errors"
	"io/fs"
)

var (
	// ErrStopWalk ends a List walk early without error.
	ErrStopWalk = errors.New("stop walk")

	// ErrLocked indicates an advisory lock is held by someone else.
	ErrLocked = errors.New("path is locked")
)

// IOError is the error type for every failing backend operation. It always
// carries the operation name and the failing path alongside the cause.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error { return e.Err }

// NewIOError wraps a cause into an IOError for the given operation and path.
func NewIOError(op, path string, err error) *IOError {
	return &IOError{Op: op, Path: path, Err: err}
}

// NotExist returns the IOError a backend reports for an absent path.
func NotExist(op, path string) *IOError {
	return &IOError{Op: op, Path: path, Err: fs.ErrNotExist}
}

// IsNotExist reports whether err stems from an absent path.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
