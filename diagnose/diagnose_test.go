package diagnose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/folio"
	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/storage/memory"
)

func openStore(t *testing.T, files map[string][]byte) *folio.Store {
	t.Helper()
	st, err := folio.Open("", folio.WithBackend(memory.Populate(files)))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func findingKinds(r *Report) map[Kind]int {
	kinds := map[Kind]int{}
	for _, f := range r.Findings {
		kinds[f.Kind]++
	}
	return kinds
}

func TestRun_CleanStore(t *testing.T) {
	st := openStore(t, map[string][]byte{
		"notes/a": []byte("---\n[folio]\nversion = \"1.0.0\"\n---\nalpha\n"),
		"notes/b": []byte("plain content, no header\n"),
	})

	report, err := Run(st)
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Equal(t, 2, report.Scanned)
	assert.Positive(t, report.TotalBytes)
}

func TestRun_MalformedDoesNotAbort(t *testing.T) {
	st := openStore(t, map[string][]byte{
		"notes/good": []byte("fine\n"),
		"notes/bad":  []byte("---\nnot == toml\n"),
	})

	report, err := Run(st)
	require.NoError(t, err)
	assert.False(t, report.Clean())
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, map[Kind]int{KindMalformed: 1}, findingKinds(report))

	f := report.Findings[0]
	assert.Equal(t, "notes/bad", f.ID.Local())
	assert.ErrorIs(t, f.Err, core.ErrMalformedRecord)
	assert.Contains(t, f.String(), "notes/bad")
}

func TestRun_BorrowedRecorded(t *testing.T) {
	st := openStore(t, map[string][]byte{
		"a/1": []byte("one\n"),
		"a/2": []byte("two\n"),
	})

	h, err := st.Retrieve(core.MustID("a/1"))
	require.NoError(t, err)
	defer h.Close()

	report, err := Run(st, WithWorkers(1))
	require.NoError(t, err)
	assert.Equal(t, map[Kind]int{KindBorrowed: 1}, findingKinds(report))
	assert.Equal(t, 2, report.Scanned)
}

func TestRun_UndecodablePath(t *testing.T) {
	st := openStore(t, map[string][]byte{
		"a/ok":  []byte("fine\n"),
		"a\\no": []byte("bad path\n"),
	})

	report, err := Run(st)
	require.NoError(t, err)
	kinds := findingKinds(report)
	assert.Equal(t, 1, kinds[KindWalk])
	assert.Equal(t, 1, report.Scanned)
}

func TestRun_VersionNotAString(t *testing.T) {
	st := openStore(t, map[string][]byte{
		"a/1": []byte("---\n[folio]\nversion = 42\n---\n"),
	})

	report, err := Run(st)
	require.NoError(t, err)
	assert.Equal(t, map[Kind]int{KindNoVersion: 1}, findingKinds(report))
}

func TestRun_WorkerClamp(t *testing.T) {
	st := openStore(t, map[string][]byte{"a/1": []byte("x\n")})

	report, err := Run(st, WithWorkers(0))
	require.NoError(t, err)
	assert.True(t, report.Clean())
}
