package core

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID_Valid(t *testing.T) {
	for _, local := range []string{
		"note",
		"diary/2019/05/01",
		"contacts/abc-def.vcf",
		"a/b/c/d/e/f",
	} {
		id, err := NewID(local)
		require.NoError(t, err, local)
		assert.Equal(t, local, id.Local())
		assert.Empty(t, id.Base())
	}
}

func TestNewID_Invalid(t *testing.T) {
	for _, local := range []string{
		"",
		"/absolute/path",
		"../escape",
		"a/../b",
		"a/./b",
		"a//b",
		"a/",
		"a\\b",
		"a/\xff\xfe",
	} {
		_, err := NewID(local)
		require.Error(t, err, "%q should be rejected", local)
		assert.ErrorIs(t, err, ErrInvalidIdentifier)
	}
}

func TestIDFromPath(t *testing.T) {
	base := filepath.Join("/", "tmp", "store")
	full := filepath.Join(base, "diary", "2019", "05", "01")

	id, err := IDFromPath(base, full)
	require.NoError(t, err)
	assert.Equal(t, "diary/2019/05/01", id.Local())
	assert.Equal(t, base, id.Base())
}

func TestIDFromPath_OutsideRoot(t *testing.T) {
	_, err := IDFromPath("/tmp/store", "/tmp/elsewhere/note")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestIDBaseHandling(t *testing.T) {
	id := MustID("notes/shopping")
	based := id.WithBase("/var/pim")

	assert.Equal(t, "/var/pim", based.Base())
	assert.Equal(t, "notes/shopping", based.Local())
	assert.Empty(t, based.WithoutBase().Base())

	// base does not take part in equality
	assert.True(t, id.Equal(based))
	assert.True(t, based.Equal(id))
}

func TestIDFSPath(t *testing.T) {
	id := MustID("notes/shopping")
	assert.Equal(t, filepath.FromSlash("notes/shopping"), id.FSPath())

	based := id.WithBase(filepath.FromSlash("/var/pim"))
	assert.Equal(t, filepath.FromSlash("/var/pim/notes/shopping"), based.FSPath())
}

func TestIDCollection(t *testing.T) {
	id := MustID("diary/2019/05/01")

	assert.Equal(t, "diary", id.Collection())
	assert.True(t, id.InCollection(""))
	assert.True(t, id.InCollection("diary"))
	assert.True(t, id.InCollection("diary/"))
	assert.True(t, id.InCollection("diary/2019"))
	assert.True(t, id.InCollection("diary/2019/05/01"))

	assert.False(t, id.InCollection("dia"))
	assert.False(t, id.InCollection("diary/20"))
	assert.False(t, id.InCollection("contacts"))

	flat := MustID("note")
	assert.Equal(t, "note", flat.Collection())
}

func TestMustIDPanics(t *testing.T) {
	assert.Panics(t, func() { MustID("../nope") })
}
