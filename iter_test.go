package folio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/record"
	"github.com/poiesic/folio/storage/memory"
)

func seedStore(t *testing.T, locals ...string) *Store {
	t.Helper()
	st := newMemStore(t)
	for _, local := range locals {
		require.NoError(t, st.WithNewEntry(core.MustID(local), func(h *Handle) error {
			if err := h.SetContent("content of " + local); err != nil {
				return err
			}
			return h.SetField("name", local)
		}))
	}
	return st
}

func collectLocals(t *testing.T, e *Entries) []string {
	t.Helper()
	ids, err := e.CollectIDs()
	require.NoError(t, err)
	locals := make([]string, 0, len(ids))
	for _, id := range ids {
		locals = append(locals, id.Local())
	}
	return locals
}

func TestEntries_WholeStore(t *testing.T) {
	st := seedStore(t, "a/1", "a/2", "b/1")

	e, err := st.Entries()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a/1", "a/2", "b/1"}, collectLocals(t, e))
}

func TestEntriesIn(t *testing.T) {
	st := seedStore(t, "a/1", "a/2", "b/1")

	e, err := st.EntriesIn("a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a/1", "a/2"}, collectLocals(t, e))

	e, err = st.EntriesIn("b")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b/1"}, collectLocals(t, e))

	e, err = st.EntriesIn("nothing/here")
	require.NoError(t, err)
	assert.Empty(t, collectLocals(t, e))
}

func TestEntriesIn_InvalidPrefix(t *testing.T) {
	st := seedStore(t)
	_, err := st.EntriesIn("../escape")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidIdentifier)
}

func TestInCollection_SegmentAware(t *testing.T) {
	st := seedStore(t, "a/1", "ab/1")

	e, err := st.Entries()
	require.NoError(t, err)
	// "ab/1" is not in collection "a"
	assert.ElementsMatch(t, []string{"a/1"},
		collectLocals(t, e.InCollection("a")))
}

func TestFindByID(t *testing.T) {
	st := seedStore(t, "notes/2f9c", "notes/7a10", "contacts/2f9c")

	e, err := st.Entries()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"notes/2f9c", "contacts/2f9c"},
		collectLocals(t, e.FindByIDSubstr("2f9c")))

	e, err = st.Entries()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"notes/2f9c", "notes/7a10"},
		collectLocals(t, e.FindByIDStartsWith("notes/")))
}

func TestEntries_Count(t *testing.T) {
	st := seedStore(t, "a/1", "a/2", "b/1")
	e, err := st.Entries()
	require.NoError(t, err)
	n, err := e.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestEntries_ForEachStops(t *testing.T) {
	st := seedStore(t, "a/1", "a/2", "a/3")

	stop := errors.New("enough")
	seen := 0
	e, err := st.Entries()
	require.NoError(t, err)
	err = e.ForEach(func(core.ID, error) error {
		seen++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, seen)
}

func TestEntries_InvalidBackendPath(t *testing.T) {
	backend := memory.Populate(map[string][]byte{
		"a/good": []byte("fine\n"),
		"a\\bad": []byte("fine too\n"),
	})
	st, err := Open("", WithBackend(backend))
	require.NoError(t, err)
	defer st.Close()

	e, err := st.Entries()
	require.NoError(t, err)

	// the undecodable path arrives as an error item, not a silent gap
	var ids, errItems int
	require.NoError(t, e.ForEach(func(_ core.ID, err error) error {
		if err != nil {
			assert.ErrorIs(t, err, core.ErrInvalidIdentifier)
			errItems++
		} else {
			ids++
		}
		return nil
	}))
	assert.Equal(t, 1, ids)
	assert.Equal(t, 1, errItems)

	// fail-fast terminals surface it
	_, err = e.CollectIDs()
	assert.ErrorIs(t, err, core.ErrInvalidIdentifier)
}

func TestRecords_ForEach(t *testing.T) {
	st := seedStore(t, "a/1", "b/1")

	e, err := st.Entries()
	require.NoError(t, err)

	var contents []string
	require.NoError(t, e.Records().ForEach(func(h *Handle, err error) error {
		if err != nil {
			return err
		}
		contents = append(contents, h.Content())
		return nil
	}))
	assert.ElementsMatch(t,
		[]string{"content of a/1", "content of b/1"}, contents)

	// every handle was released on the way
	h, err := st.Retrieve(core.MustID("a/1"))
	require.NoError(t, err)
	require.NoError(t, h.Close())
}

func TestRecords_Filter(t *testing.T) {
	st := seedStore(t, "a/1", "a/2", "b/1")

	e, err := st.Entries()
	require.NoError(t, err)

	var matched []string
	err = e.Records().
		Filter(func(rec *record.Record) bool {
			name, _ := rec.Header().GetString("name")
			return name == "a/2"
		}).
		ForEach(func(h *Handle, err error) error {
			if err != nil {
				return err
			}
			matched = append(matched, h.ID().Local())
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/2"}, matched)
}

func TestRecords_BorrowConflictFlowsThrough(t *testing.T) {
	st := seedStore(t, "a/1", "a/2")

	borrowed, err := st.Retrieve(core.MustID("a/1"))
	require.NoError(t, err)
	defer borrowed.Close()

	e, err := st.Entries()
	require.NoError(t, err)

	var ok []string
	var conflicts int
	require.NoError(t, e.Records().ForEach(func(h *Handle, err error) error {
		if err != nil {
			assert.ErrorIs(t, err, core.ErrAlreadyBorrowed)
			conflicts++
			return nil
		}
		ok = append(ok, h.ID().Local())
		return nil
	}))
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, []string{"a/2"}, ok)
}

func TestEntries_Lazy(t *testing.T) {
	st := seedStore(t, "a/1", "a/2", "a/3")
	for _, local := range []string{"a/1", "a/2", "a/3"} {
		require.NoError(t, st.Evict(core.MustID(local)))
	}
	require.Equal(t, 0, st.CacheSize())

	// stopping the consumer stops the walk; later items are never touched
	stop := errors.New("first only")
	var seen int
	e, err := st.Entries()
	require.NoError(t, err)
	err = e.Records().ForEach(func(h *Handle, err error) error {
		require.NoError(t, err)
		seen++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, seen)
	// only the visited record is in the cache
	assert.Equal(t, 1, st.CacheSize())
}
