package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCatRemoveLifecycle(t *testing.T) {
	root := t.TempDir()
	app := newApp()

	err := app.Run([]string{"folio", "--store", root, "create", "notes/todo",
		"--content", "milk\neggs\n", "--field", "title=shopping"})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "notes", "todo"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "milk\neggs\n")
	assert.Contains(t, string(data), `title = "shopping"`)

	err = app.Run([]string{"folio", "--store", root, "rm", "notes/todo"})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "notes", "todo"))
	assert.True(t, os.IsNotExist(err))
}

func TestCreate_RefusesExisting(t *testing.T) {
	root := t.TempDir()
	app := newApp()

	require.NoError(t, app.Run(
		[]string{"folio", "--store", root, "create", "a/1"}))
	err := app.Run([]string{"folio", "--store", root, "create", "a/1"})
	require.Error(t, err)
}

func TestCreate_BadField(t *testing.T) {
	root := t.TempDir()
	app := newApp()

	err := app.Run([]string{"folio", "--store", root, "create", "a/1",
		"--field", "no-equals-sign"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key=value")
}

func TestCreate_InvalidIdentifier(t *testing.T) {
	root := t.TempDir()
	app := newApp()

	err := app.Run([]string{"folio", "--store", root, "create", "../escape"})
	require.Error(t, err)
}

func TestMissingStoreFlag(t *testing.T) {
	app := newApp()
	err := app.Run([]string{"folio", "cat", "a/1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store path is required")
}

func TestUnknownBackend(t *testing.T) {
	app := newApp()
	err := app.Run([]string{"folio", "--store", t.TempDir(),
		"--backend", "tape", "ids"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
}

func TestSetupLogger_InvalidLevel(t *testing.T) {
	app := newApp()
	err := app.Run([]string{"folio", "--log-level", "loud",
		"--store", t.TempDir(), "ids"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestVerify_CleanStore(t *testing.T) {
	root := t.TempDir()
	app := newApp()

	require.NoError(t, app.Run(
		[]string{"folio", "--store", root, "create", "a/1", "--content", "x"}))
	require.NoError(t, app.Run(
		[]string{"folio", "--store", root, "verify", "--workers", "2"}))
}

func TestVerify_ReportsDamage(t *testing.T) {
	root := t.TempDir()
	app := newApp()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "a"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "bad"),
		[]byte("---\nnot == toml\n"), 0o644))

	err := app.Run([]string{"folio", "--store", root, "verify"})
	require.Error(t, err)
}
