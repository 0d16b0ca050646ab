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


package fsdir

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/poiesic/folio/storage"
)

const lockSuffix = ".lock"

// Lock creates the advisory lock sidecar for path. The lock is
// cooperative: it only keeps out other processes that also take locks.
// Fails fast with storage.ErrLocked when the sidecar already exists.
func (b *backend) Lock(path string) error {
	lockPath := path + lockSuffix
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return storage.NewIOError("lock", path, err)
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return storage.NewIOError("lock", path, storage.ErrLocked)
		}
		return storage.NewIOError("lock", path, err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	if err := f.Close(); err != nil {
		os.Remove(lockPath)
		return storage.NewIOError("lock", path, err)
	}
	return nil
}

// Unlock removes the advisory lock sidecar. Unlocking an unlocked path is
// a no-op.
func (b *backend) Unlock(path string) error {
	if err := os.Remove(path + lockSuffix); err != nil && !os.IsNotExist(err) {
		return storage.NewIOError("unlock", path, err)
	}
	return nil
}
