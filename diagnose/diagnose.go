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

// Package diagnose sweeps a whole store and reports every record that
// cannot be loaded cleanly: malformed headers, missing format versions,
// records held by another handle, undecodable backend paths. The sweep
// records problems as findings and keeps going; it only fails when the
// walk itself cannot proceed.
package diagnose

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/folio"
	"github.com/poiesic/folio/core"
)

// Kind classifies a finding.
type Kind string

const (
	// KindWalk marks a backend path that could not be decoded into an
	// identifier, or a failing walk.
	KindWalk Kind = "walk"
	// KindMalformed marks a record whose bytes do not parse.
	KindMalformed Kind = "malformed"
	// KindBorrowed marks a record that was checked out elsewhere during
	// the sweep.
	KindBorrowed Kind = "borrowed"
	// KindNoVersion marks a record whose format version field is not a
	// string.
	KindNoVersion Kind = "no-version"
	// KindIO marks any other load or stat failure.
	KindIO Kind = "io"
)

// Finding is one problem discovered during a sweep. ID is the zero value
// when the problem predates identification, such as an undecodable path.
type Finding struct {
	ID   core.ID
	Kind Kind
	Err  error
}

func (f Finding) String() string {
	if f.ID.IsZero() {
		return fmt.Sprintf("[%s] %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("[%s] %s: %v", f.Kind, f.ID, f.Err)
}

// Report is the outcome of one sweep.
type Report struct {
	Scanned    int
	TotalBytes int64
	Findings   []Finding
}

// Clean reports whether the sweep found nothing wrong.
func (r *Report) Clean() bool { return len(r.Findings) == 0 }

type sweeper struct {
	store   *folio.Store
	workers int
	logger  *slog.Logger

	mu     sync.Mutex
	report Report
}

// Option configures a sweep.
type Option func(*sweeper) error

// WithWorkers sets the number of records checked concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithWorkers(n int) Option {
	return func(s *sweeper) error {
		if n < 1 {
			n = 1
		}
		s.workers = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *sweeper) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// Run sweeps every record in the store. Per-record problems land in the
// report; the returned error is reserved for failures of the sweep
// itself.
func Run(store *folio.Store, opts ...Option) (*Report, error) {
	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}
	s := &sweeper{store: store, workers: workers, logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	entries, err := store.Entries()
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	walkErr := entries.ForEach(func(id core.ID, err error) error {
		if err != nil {
			s.record(Finding{Kind: KindWalk, Err: err})
			return nil
		}
		wg.Add(1)
		if submitErr := pool.Submit(func() {
			defer wg.Done()
			s.check(id)
		}); submitErr != nil {
			wg.Done()
			return submitErr
		}
		return nil
	})
	wg.Wait()
	if walkErr != nil {
		return nil, walkErr
	}

	s.logger.Debug("sweep finished",
		"scanned", s.report.Scanned, "findings", len(s.report.Findings))
	return &s.report, nil
}

func (s *sweeper) record(f Finding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report.Findings = append(s.report.Findings, f)
}

func (s *sweeper) check(id core.ID) {
	s.mu.Lock()
	s.report.Scanned++
	s.mu.Unlock()

	if info, err := s.store.Stat(id); err == nil {
		s.mu.Lock()
		s.report.TotalBytes += info.Size
		s.mu.Unlock()
	} else if !errors.Is(err, errors.ErrUnsupported) {
		s.record(Finding{ID: id, Kind: KindIO, Err: err})
	}

	err := s.store.WithEntry(id, func(h *folio.Handle) error {
		if h.Header().Version() == "" {
			s.record(Finding{ID: id, Kind: KindNoVersion,
				Err: errors.New("header carries no format version string")})
		}
		return nil
	})
	switch {
	case err == nil:
		// a clean record need not stay cached for the rest of the sweep
		_ = s.store.Evict(id)
	case errors.Is(err, core.ErrAlreadyBorrowed):
		s.record(Finding{ID: id, Kind: KindBorrowed, Err: err})
	case errors.Is(err, core.ErrMalformedRecord):
		s.record(Finding{ID: id, Kind: KindMalformed, Err: err})
	default:
		s.record(Finding{ID: id, Kind: KindIO, Err: err})
	}
}
